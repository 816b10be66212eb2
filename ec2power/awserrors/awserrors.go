package awserrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go/aws/awserr"
)

type ErrorMessage struct {
	HTTPCode int
	Message  string
}

// AWSError carries an EC2 error code and a field-specific message, as
// returned by a Hive daemon over NATS.
type AWSError struct {
	Code   string
	Detail string
}

func (e *AWSError) Error() string {
	return e.Code
}

// NewError creates an AWSError with a field-specific detail message.
func NewError(code, detail string) *AWSError {
	return &AWSError{Code: code, Detail: detail}
}

// NewErrorf creates an AWSError with a formatted detail message.
func NewErrorf(code, format string, args ...any) *AWSError {
	return &AWSError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

var (
	ErrorAuthFailure                = "AuthFailure"
	ErrorIncorrectInstanceState     = "IncorrectInstanceState"
	ErrorInternalError              = "InternalError"
	ErrorInvalidInstanceIDMalformed = "InvalidInstanceID.Malformed"
	ErrorInvalidInstanceIDNotFound  = "InvalidInstanceID.NotFound"
	ErrorMissingParameter           = "MissingParameter"
	ErrorServerInternal             = "ServerInternal"
	ErrorServiceUnavailable         = "ServiceUnavailable"
	ErrorUnauthorizedOperation      = "UnauthorizedOperation"
	ErrorUnavailable                = "Unavailable"
	ErrorUnsupportedOperation       = "UnsupportedOperation"
)

var ErrorLookup = map[string]ErrorMessage{
	ErrorAuthFailure:                {HTTPCode: 403, Message: "The provided credentials could not be validated."},
	ErrorIncorrectInstanceState:     {HTTPCode: 409, Message: "The instance is in an incorrect state for the requested action."},
	ErrorInternalError:              {HTTPCode: 500, Message: "An internal error has occurred. Retry your request, but if the problem persists, contact us with details by posting a message on AWS re:Post."},
	ErrorInvalidInstanceIDMalformed: {HTTPCode: 400, Message: "The specified instance ID is malformed. Ensure that you provide the full instance ID in the request, in the form i-xxxxxxxx or i-xxxxxxxxxxxxxxxxx."},
	ErrorInvalidInstanceIDNotFound:  {HTTPCode: 404, Message: "The specified instance does not exist."},
	ErrorMissingParameter:           {HTTPCode: 400, Message: "The request is missing a required parameter. Ensure that you have supplied all the required parameters for the request; for example, the resource ID."},
	ErrorServerInternal:             {HTTPCode: 500, Message: "An internal error has occurred. Retry your request, but if the problem persists, contact us with details by posting a message on AWS re:Post."},
	ErrorServiceUnavailable:         {HTTPCode: 503, Message: "The request has failed due to a temporary failure of the server."},
	ErrorUnauthorizedOperation:      {HTTPCode: 403, Message: "You are not authorized to perform this operation. Check your IAM policies, and ensure that you are using the correct credentials."},
	ErrorUnavailable:                {HTTPCode: 503, Message: "The server is overloaded and can't handle the request."},
	ErrorUnsupportedOperation:       {HTTPCode: 400, Message: "The specified request includes an unsupported operation."},
}

// APICallError is returned for any failure of a lifecycle call, whatever
// its cause. Op is the API operation, e.g. "StartInstances".
type APICallError struct {
	Op    string
	Cause error
}

func NewAPICallError(op string, cause error) *APICallError {
	return &APICallError{Op: op, Cause: cause}
}

func (e *APICallError) Error() string {
	if e.Cause == nil {
		return e.Op + ": unknown error"
	}
	return e.Op + ": " + e.Cause.Error()
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

type errorMetadata struct {
	HTTPStatusCode int    `json:"httpStatusCode,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
}

// serializedError is the wire shape of a failed invocation's body.
type serializedError struct {
	Name      string         `json:"name"`
	Message   string         `json:"message"`
	Operation string         `json:"operation,omitempty"`
	Fault     string         `json:"$fault,omitempty"`
	Metadata  *errorMetadata `json:"$metadata,omitempty"`
}

func (e *APICallError) MarshalJSON() ([]byte, error) {
	out := describe(e.Cause)
	out.Operation = e.Op
	return json.Marshal(out)
}

func describe(err error) serializedError {
	if err == nil {
		return serializedError{Name: "Error", Message: "unknown error"}
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		return serializedError{
			Name:    reqErr.Code(),
			Message: reqErr.Message(),
			Fault:   fault(reqErr.StatusCode()),
			Metadata: &errorMetadata{
				HTTPStatusCode: reqErr.StatusCode(),
				RequestID:      reqErr.RequestID(),
			},
		}
	}

	var sdkErr awserr.Error
	if errors.As(err, &sdkErr) {
		return serializedError{Name: sdkErr.Code(), Message: sdkErr.Message()}
	}

	var hiveErr *AWSError
	if errors.As(err, &hiveErr) {
		out := serializedError{Name: hiveErr.Code, Message: hiveErr.Detail}
		if known, ok := ErrorLookup[hiveErr.Code]; ok {
			if out.Message == "" {
				out.Message = known.Message
			}
			out.Fault = fault(known.HTTPCode)
			out.Metadata = &errorMetadata{HTTPStatusCode: known.HTTPCode}
		}
		return out
	}

	return serializedError{Name: "Error", Message: err.Error()}
}

func fault(status int) string {
	switch {
	case status >= 500:
		return "server"
	case status >= 400:
		return "client"
	}
	return ""
}

// Serialize renders err as the JSON body of a failure response. It never
// fails: if marshaling does, the error text is returned as a JSON string.
func Serialize(err error) string {
	var apiErr *APICallError
	if !errors.As(err, &apiErr) {
		apiErr = &APICallError{Cause: err}
	}

	data, mErr := json.Marshal(apiErr)
	if mErr != nil {
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		return strconv.Quote(msg)
	}
	return string(data)
}

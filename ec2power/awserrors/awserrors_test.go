package awserrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out), "body must be valid JSON: %s", body)
	return out
}

func TestAPICallError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewAPICallError("StopInstances", cause)

	assert.Equal(t, "StopInstances: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("handler: %w", err)
	var apiErr *APICallError
	require.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, "StopInstances", apiErr.Op)
}

func TestAPICallError_NilCause(t *testing.T) {
	err := NewAPICallError("StartInstances", nil)
	assert.Equal(t, "StartInstances: unknown error", err.Error())

	body := decode(t, Serialize(err))
	assert.Equal(t, "Error", body["name"])
}

func TestSerialize_RequestFailure(t *testing.T) {
	cause := awserr.NewRequestFailure(
		awserr.New(ErrorInvalidInstanceIDNotFound, "The instance ID 'i-0abc' does not exist", nil),
		400, "req-1234",
	)

	body := decode(t, Serialize(NewAPICallError("StartInstances", cause)))

	assert.Equal(t, ErrorInvalidInstanceIDNotFound, body["name"])
	assert.Equal(t, "The instance ID 'i-0abc' does not exist", body["message"])
	assert.Equal(t, "StartInstances", body["operation"])
	assert.Equal(t, "client", body["$fault"])

	meta, ok := body["$metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(400), meta["httpStatusCode"])
	assert.Equal(t, "req-1234", meta["requestId"])
}

func TestSerialize_ServerFault(t *testing.T) {
	cause := awserr.NewRequestFailure(awserr.New(ErrorUnavailable, "overloaded", nil), 503, "req-5")

	body := decode(t, Serialize(NewAPICallError("StopInstances", cause)))
	assert.Equal(t, "server", body["$fault"])
}

func TestSerialize_PlainSDKError(t *testing.T) {
	cause := awserr.New("RequestCanceled", "request context canceled", errCanceled)

	body := decode(t, Serialize(NewAPICallError("StopInstances", cause)))
	assert.Equal(t, "RequestCanceled", body["name"])
	assert.Equal(t, "request context canceled", body["message"])
	assert.NotContains(t, body, "$metadata")
	assert.NotContains(t, body, "$fault")
}

var errCanceled = errors.New("context canceled")

func TestSerialize_HiveError(t *testing.T) {
	tests := []struct {
		name       string
		err        *AWSError
		wantMsg    string
		wantStatus float64
		wantFault  string
	}{
		{
			name:       "KnownCodeNoDetail",
			err:        NewError(ErrorIncorrectInstanceState, ""),
			wantMsg:    ErrorLookup[ErrorIncorrectInstanceState].Message,
			wantStatus: 409,
			wantFault:  "client",
		},
		{
			name:       "KnownCodeWithDetail",
			err:        NewErrorf(ErrorInvalidInstanceIDNotFound, "instance %s not found", "i-123"),
			wantMsg:    "instance i-123 not found",
			wantStatus: 404,
			wantFault:  "client",
		},
		{
			name:       "ServerCode",
			err:        NewError(ErrorServerInternal, ""),
			wantMsg:    ErrorLookup[ErrorServerInternal].Message,
			wantStatus: 500,
			wantFault:  "server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := decode(t, Serialize(NewAPICallError("StartInstances", tt.err)))

			assert.Equal(t, tt.err.Code, body["name"])
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.Equal(t, tt.wantFault, body["$fault"])
			meta, ok := body["$metadata"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, meta["httpStatusCode"])
		})
	}
}

func TestSerialize_UnknownHiveCode(t *testing.T) {
	body := decode(t, Serialize(NewAPICallError("StartInstances", NewError("SomethingNew", "odd"))))

	assert.Equal(t, "SomethingNew", body["name"])
	assert.Equal(t, "odd", body["message"])
	assert.NotContains(t, body, "$metadata")
}

func TestSerialize_GenericError(t *testing.T) {
	body := decode(t, Serialize(errors.New("dial tcp: i/o timeout")))

	assert.Equal(t, "Error", body["name"])
	assert.Equal(t, "dial tcp: i/o timeout", body["message"])
	assert.NotContains(t, body, "operation")
}

func TestSerialize_Nil(t *testing.T) {
	body := decode(t, Serialize(nil))
	assert.Equal(t, "Error", body["name"])
}

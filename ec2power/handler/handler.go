// Package handler implements the start and stop entry points. Each
// invocation issues exactly one lifecycle call for the configured instance
// and maps the outcome onto a fixed response shape. Failures never escape:
// they become a 500 response whose body is the serialized error.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/mulgadc/ec2power/ec2power/awserrors"
	"github.com/mulgadc/ec2power/ec2power/config"
	"github.com/mulgadc/ec2power/ec2power/lifecycle"
)

const (
	StartingBody = "EC2 starting"
	StoppingBody = "EC2 stopping"
)

// Handler holds the injected configuration and lifecycle API. It is
// immutable after New and safe for concurrent invocations.
type Handler struct {
	instanceID string
	ctrl       lifecycle.Controller
}

func New(cfg *config.Config, ctrl lifecycle.Controller) *Handler {
	return &Handler{instanceID: cfg.InstanceID, ctrl: ctrl}
}

// Start requests that the instance be started. A 200 means the API accepted
// the request, not that the instance has booted.
func (h *Handler) Start(ctx context.Context) events.APIGatewayProxyResponse {
	return h.invoke(ctx, "StartInstances", h.ctrl.StartInstances, StartingBody)
}

// Stop requests that the instance be stopped.
func (h *Handler) Stop(ctx context.Context) events.APIGatewayProxyResponse {
	return h.invoke(ctx, "StopInstances", h.ctrl.StopInstances, StoppingBody)
}

// HandleStart is the Lambda entry point for Start. The error is always nil.
func (h *Handler) HandleStart(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	return h.Start(ctx), nil
}

// HandleStop is the Lambda entry point for Stop. The error is always nil.
func (h *Handler) HandleStop(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	return h.Stop(ctx), nil
}

func (h *Handler) invoke(ctx context.Context, op string, call func(context.Context, []string) error, okBody string) events.APIGatewayProxyResponse {
	log := slog.With("op", op, "invocation_id", invocationID(ctx), "instance_id", h.instanceID)

	if err := call(ctx, []string{h.instanceID}); err != nil {
		log.Error(op+": Lifecycle request failed", "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       awserrors.Serialize(err),
		}
	}

	log.Info(op + ": Lifecycle request accepted")
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       okBody,
	}
}

// invocationID returns the Lambda request ID, or a fresh UUID outside Lambda
func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

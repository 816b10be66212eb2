package lifecycle_nats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ec2power/ec2power/awserrors"
	"github.com/mulgadc/ec2power/ec2power/config"
	"github.com/mulgadc/ec2power/ec2power/lifecycle"
	"github.com/nats-io/nats.go"
)

const (
	// Queue group topic; any daemon with capacity can launch a stopped instance
	startSubject = "ec2.start"
	// Per-instance command topic, owned by the daemon running the instance
	commandSubjectFormat = "ec2.cmd.%s"

	defaultTimeout = 30 * time.Second
)

// startRequest is the payload sent to the ec2.start topic
type startRequest struct {
	InstanceID string `json:"instance_id"`
}

// instanceCommand is the QMP envelope a Hive daemon accepts on ec2.cmd.<id>
type instanceCommand struct {
	ID         string     `json:"id"`
	QMPCommand qmpCommand `json:"command"`
	Attributes attributes `json:"attributes"`
}

type qmpCommand struct {
	Execute   string         `json:"execute"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type attributes struct {
	StopInstance   bool `json:"stop_instance"`
	DeleteInstance bool `json:"delete_instance"`
}

// NATSController sends lifecycle commands straight to Hive daemons over
// NATS, bypassing the AWS gateway.
type NATSController struct {
	natsConn *nats.Conn
	timeout  time.Duration
}

var _ lifecycle.Controller = (*NATSController)(nil)

// New creates a NATS-based controller. A zero timeout uses 30s.
func New(conn *nats.Conn, timeout time.Duration) *NATSController {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &NATSController{natsConn: conn, timeout: timeout}
}

// Connect dials the NATS server described by cfg
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{nats.Name("ec2power")}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Host, err)
	}
	return nc, nil
}

// StartInstances asks the ec2.start queue group to launch each stopped instance
func (c *NATSController) StartInstances(ctx context.Context, instanceIDs []string) error {
	for _, instanceID := range instanceIDs {
		slog.Info("StartInstances: Sending NATS request", "subject", startSubject, "instance_id", instanceID)

		if err := c.request(ctx, startSubject, startRequest{InstanceID: instanceID}); err != nil {
			slog.Error("StartInstances: Request failed", "instance_id", instanceID, "err", err)
			return awserrors.NewAPICallError("StartInstances", err)
		}

		slog.Info("StartInstances: Command sent successfully", "instance_id", instanceID)
	}
	return nil
}

// StopInstances sends system_powerdown to each instance. stop_instance is
// left false so the instance can be started again.
func (c *NATSController) StopInstances(ctx context.Context, instanceIDs []string) error {
	for _, instanceID := range instanceIDs {
		command := instanceCommand{
			ID: instanceID,
			QMPCommand: qmpCommand{
				Execute:   "system_powerdown",
				Arguments: map[string]any{},
			},
		}

		subject := fmt.Sprintf(commandSubjectFormat, instanceID)
		slog.Info("StopInstances: Sending NATS request", "subject", subject, "instance_id", instanceID)

		if err := c.request(ctx, subject, command); err != nil {
			slog.Error("StopInstances: Request failed", "instance_id", instanceID, "err", err)
			return awserrors.NewAPICallError("StopInstances", err)
		}

		slog.Info("StopInstances: Command sent successfully", "instance_id", instanceID)
	}
	return nil
}

func (c *NATSController) request(ctx context.Context, subject string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.natsConn.RequestWithContext(ctx, subject, jsonData)
	if err != nil {
		return fmt.Errorf("NATS request to %s failed: %w", subject, err)
	}

	if responseError := validateErrorPayload(msg.Data); responseError != nil {
		return responseError
	}
	return nil
}

// validateErrorPayload returns the daemon's error if payload is an EC2
// ResponseError with a Code, and nil for any other reply.
func validateErrorPayload(payload []byte) *awserrors.AWSError {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	var responseError ec2.ResponseError
	if err := decoder.Decode(&responseError); err != nil || responseError.Code == nil {
		return nil
	}

	return awserrors.NewError(aws.StringValue(responseError.Code), aws.StringValue(responseError.Message))
}

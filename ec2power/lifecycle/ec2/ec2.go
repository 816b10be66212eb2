package lifecycle_ec2

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/mulgadc/ec2power/ec2power/awserrors"
	"github.com/mulgadc/ec2power/ec2power/lifecycle"
)

// EC2Controller issues StartInstances/StopInstances through the EC2 API,
// or any EC2-compatible gateway the client is pointed at.
type EC2Controller struct {
	client ec2iface.EC2API
}

// New creates a controller on top of an EC2 client
func New(client ec2iface.EC2API) *EC2Controller {
	return &EC2Controller{client: client}
}

var _ lifecycle.Controller = (*EC2Controller)(nil)

func (c *EC2Controller) StartInstances(ctx context.Context, instanceIDs []string) error {
	slog.Info("StartInstances: Sending request", "instance_ids", instanceIDs)

	output, err := c.client.StartInstancesWithContext(ctx, &ec2.StartInstancesInput{
		InstanceIds: aws.StringSlice(instanceIDs),
	})
	if err != nil {
		slog.Error("StartInstances: Request failed", "instance_ids", instanceIDs, "err", err)
		return awserrors.NewAPICallError("StartInstances", err)
	}

	logStateChanges("StartInstances", output.StartingInstances)
	return nil
}

func (c *EC2Controller) StopInstances(ctx context.Context, instanceIDs []string) error {
	slog.Info("StopInstances: Sending request", "instance_ids", instanceIDs)

	output, err := c.client.StopInstancesWithContext(ctx, &ec2.StopInstancesInput{
		InstanceIds: aws.StringSlice(instanceIDs),
	})
	if err != nil {
		slog.Error("StopInstances: Request failed", "instance_ids", instanceIDs, "err", err)
		return awserrors.NewAPICallError("StopInstances", err)
	}

	logStateChanges("StopInstances", output.StoppingInstances)
	return nil
}

func logStateChanges(op string, changes []*ec2.InstanceStateChange) {
	for _, sc := range changes {
		if sc == nil {
			continue
		}
		var prev, curr string
		if sc.PreviousState != nil {
			prev = aws.StringValue(sc.PreviousState.Name)
		}
		if sc.CurrentState != nil {
			curr = aws.StringValue(sc.CurrentState.Name)
		}
		slog.Info(op+": State change", "instance_id", aws.StringValue(sc.InstanceId), "previous", prev, "current", curr)
	}
}

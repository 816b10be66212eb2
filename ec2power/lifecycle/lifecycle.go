package lifecycle

import "context"

// Controller issues instance lifecycle commands against a compute API.
// Implementations return *awserrors.APICallError on failure and do not
// retry or wait for the instance to reach its target state.
type Controller interface {
	StartInstances(ctx context.Context, instanceIDs []string) error
	StopInstances(ctx context.Context, instanceIDs []string) error
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/google/uuid"
	"github.com/mulgadc/ec2power/ec2power/awserrors"
	"github.com/mulgadc/ec2power/ec2power/config"
	"github.com/mulgadc/ec2power/ec2power/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInstanceID = "i-0123456789abcdef0"

func newTestHandler(err error) (*Handler, *lifecycle.MockController) {
	mock := lifecycle.NewMockController(err)
	return New(&config.Config{InstanceID: testInstanceID}, mock), mock
}

func TestStart_Success(t *testing.T) {
	h, mock := newTestHandler(nil)

	resp := h.Start(context.Background())

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "EC2 starting", resp.Body)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "StartInstances", calls[0].Op)
	assert.Equal(t, []string{testInstanceID}, calls[0].InstanceIDs)
}

func TestStop_Success(t *testing.T) {
	h, mock := newTestHandler(nil)

	resp := h.Stop(context.Background())

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "EC2 stopping", resp.Body)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "StopInstances", calls[0].Op)
	assert.Equal(t, []string{testInstanceID}, calls[0].InstanceIDs)
}

func TestFailure(t *testing.T) {
	cause := awserr.NewRequestFailure(
		awserr.New("UnauthorizedOperation", "You are not authorized to perform this operation.", nil),
		403, "req-abc",
	)

	tests := []struct {
		name   string
		err    error
		invoke func(*Handler) (int, string, error)
		wantOp string
	}{
		{
			name: "StartAPIError",
			err:  awserrors.NewAPICallError("StartInstances", cause),
			invoke: func(h *Handler) (int, string, error) {
				resp, err := h.HandleStart(context.Background())
				return resp.StatusCode, resp.Body, err
			},
			wantOp: "StartInstances",
		},
		{
			name: "StopAPIError",
			err:  awserrors.NewAPICallError("StopInstances", cause),
			invoke: func(h *Handler) (int, string, error) {
				resp, err := h.HandleStop(context.Background())
				return resp.StatusCode, resp.Body, err
			},
			wantOp: "StopInstances",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newTestHandler(tt.err)

			status, body, err := tt.invoke(h)

			require.NoError(t, err, "errors must not escape the handler")
			assert.Equal(t, 500, status)

			var decoded map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &decoded))
			assert.Equal(t, "UnauthorizedOperation", decoded["name"])
			assert.Equal(t, tt.wantOp, decoded["operation"])
			assert.Equal(t, "client", decoded["$fault"])

			assert.Len(t, mock.Calls(), 1, "no retry on failure")
		})
	}
}

func TestFailure_UnwrappedError(t *testing.T) {
	h, _ := newTestHandler(errors.New("dial tcp 10.0.0.1:443: i/o timeout"))

	resp := h.Start(context.Background())

	assert.Equal(t, 500, resp.StatusCode)
	assert.JSONEq(t, `{"name":"Error","message":"dial tcp 10.0.0.1:443: i/o timeout"}`, resp.Body)
}

func TestHandleStart_Success(t *testing.T) {
	h, _ := newTestHandler(nil)

	resp, err := h.HandleStart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, StartingBody, resp.Body)
}

func TestHandleStop_Success(t *testing.T) {
	h, _ := newTestHandler(nil)

	resp, err := h.HandleStop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, StoppingBody, resp.Body)
}

func TestEmptyInstanceIDNotValidated(t *testing.T) {
	mock := lifecycle.NewMockController(nil)
	h := New(&config.Config{}, mock)

	resp := h.Start(context.Background())
	assert.Equal(t, 200, resp.StatusCode)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{""}, calls[0].InstanceIDs)
}

func TestConcurrentInvocations(t *testing.T) {
	h, mock := newTestHandler(nil)

	const n = 50
	var wg sync.WaitGroup
	results := make([]int, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i] = h.Start(context.Background()).StatusCode
			} else {
				results[i] = h.Stop(context.Background()).StatusCode
			}
		}(i)
	}
	wg.Wait()

	for i, status := range results {
		assert.Equal(t, 200, status, fmt.Sprintf("invocation %d", i))
	}

	calls := mock.Calls()
	require.Len(t, calls, n)

	var starts, stops int
	for _, c := range calls {
		assert.Equal(t, []string{testInstanceID}, c.InstanceIDs)
		switch c.Op {
		case "StartInstances":
			starts++
		case "StopInstances":
			stops++
		}
	}
	assert.Equal(t, n/2, starts)
	assert.Equal(t, n/2, stops)
}

func TestInvocationID(t *testing.T) {
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "lambda-req-1"})
	assert.Equal(t, "lambda-req-1", invocationID(ctx))

	id := invocationID(context.Background())
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, invocationID(context.Background()))
}

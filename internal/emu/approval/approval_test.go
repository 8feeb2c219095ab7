package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessApprove(t *testing.T) {
	sink := NewInProcess(1)
	ctx := context.Background()

	decisions := sink.OnRequest(ctx, SigningRequest{ID: 1})

	go func() {
		req, resolve, ok := sink.Next(ctx)
		require.True(t, ok)
		assert.EqualValues(t, 1, req.ID)
		resolve(Approve)
	}()

	select {
	case d := <-decisions:
		assert.True(t, d.Approved)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decision")
	}
}

func TestInProcessReject(t *testing.T) {
	sink := NewInProcess(1)
	ctx := context.Background()

	decisions := sink.OnRequest(ctx, SigningRequest{ID: 2})
	go func() {
		_, resolve, ok := sink.Next(ctx)
		require.True(t, ok)
		resolve(Reject("user declined"))
	}()

	d := <-decisions
	assert.False(t, d.Approved)
	assert.Equal(t, "user declined", d.Reason)
}

func TestWaitWithTimeoutReturnsEarlyDecision(t *testing.T) {
	decisions := make(chan Decision, 1)
	decisions <- Approve

	d := WaitWithTimeout(decisions)
	assert.True(t, d.Approved)
}

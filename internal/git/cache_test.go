package git

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingService counts status reads; unimplemented methods panic.
type countingService struct {
	Service
	statusCalls int
	stageErr    error
}

func (c *countingService) Status(context.Context) (*StatusResult, error) {
	c.statusCalls++
	return &StatusResult{Branch: BranchInfo{Head: "main"}}, nil
}

func (c *countingService) Stage(context.Context, ...string) error { return c.stageErr }

func TestCachedServiceStatus(t *testing.T) {
	inner := &countingService{}
	c := NewCachedService(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st, err := c.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "main", st.Branch.Head)
	}
	assert.Equal(t, 1, inner.statusCalls)

	c.Invalidate()
	_, _ = c.Status(ctx)
	assert.Equal(t, 2, inner.statusCalls)
}

func TestCachedServiceInvalidatesOnFailedWrite(t *testing.T) {
	inner := &countingService{stageErr: errors.New("boom")}
	c := NewCachedService(inner, time.Minute)
	ctx := context.Background()

	_, _ = c.Status(ctx)
	require.Error(t, c.Stage(ctx, "a.txt"))
	_, _ = c.Status(ctx)
	assert.Equal(t, 2, inner.statusCalls)
}

func TestCachedServiceZeroTTL(t *testing.T) {
	inner := &countingService{}
	c := NewCachedService(inner, 0)
	ctx := context.Background()

	_, _ = c.Status(ctx)
	_, _ = c.Status(ctx)
	assert.Equal(t, 2, inner.statusCalls)
}

func TestCachedServiceSkipsCancelledReads(t *testing.T) {
	inner := &countingService{}
	c := NewCachedService(inner, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _ = c.Status(ctx)
	_, _ = c.Status(context.Background())
	assert.Equal(t, 2, inner.statusCalls)
}

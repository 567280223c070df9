package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(context.Background(), mr.Addr(), 1, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_SetGetDel(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	type payload struct {
		A string `json:"a"`
	}
	require.NoError(t, c.SetJSON(ctx, "k", payload{A: "x"}, time.Minute))

	var got payload
	require.NoError(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, "x", got.A)

	require.NoError(t, c.Del(ctx, "k"))
	assert.ErrorIs(t, c.GetJSON(ctx, "k", &got), ErrNil)
	require.NoError(t, c.Del(ctx, "k"))
}

func TestClient_KeyExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", 1, time.Minute))
	mr.FastForward(2 * time.Minute)

	var got int
	assert.ErrorIs(t, c.GetJSON(ctx, "k", &got), ErrNil)
}

func TestNewClient_FailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), addr, 1, zap.NewNop())
	require.Error(t, err)
}

func TestNewClient_StopsRetryingOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := NewClient(ctx, addr, 30, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	st, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)

	require.NoError(t, m.Set(ctx, 1, StateAwaitingSubmission))
	st, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingSubmission, st)

	require.NoError(t, m.Set(ctx, 1, StateIdle))
	assert.NotContains(t, m.states, int64(1), "idle participants are not kept")

	op, err := m.Operator(ctx)
	require.NoError(t, err)
	assert.False(t, op.Awaiting())

	a := Action{TargetID: 111, RefID: 3}
	require.NoError(t, m.SetOperator(ctx, AwaitingReplyText(a)))
	op, err = m.Operator(ctx)
	require.NoError(t, err)
	assert.True(t, op.Awaiting())
	assert.Equal(t, a, op.Target)
}

func TestDecodeAction(t *testing.T) {
	a, err := decodeAction("111:3")
	require.NoError(t, err)
	assert.Equal(t, Action{TargetID: 111, RefID: 3}, a)

	for _, bad := range []string{"", "111", "x:3", "111:-1"} {
		_, err := decodeAction(bad)
		assert.Error(t, err, bad)
	}
}

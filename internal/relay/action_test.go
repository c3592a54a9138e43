package relay_test

import (
	"anonrelay/backend/internal/relay"
	"anonrelay/backend/internal/session"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeAction(t *testing.T) {
	assert.Equal(t, "reply_to_111_1", relay.EncodeAction(session.Action{TargetID: 111, RefID: 1}))
}

func TestDecodeAction(t *testing.T) {
	a, ok := relay.DecodeAction("reply_to_5512345_42")
	assert.True(t, ok)
	assert.Equal(t, session.Action{TargetID: 5512345, RefID: 42}, a)

	for _, bad := range []string{
		"",
		"reply_to_",
		"reply_to_111",
		"reply_to_111_",
		"reply_to_abc_1",
		"reply_to_111_x",
		"reply_to_0_1",
		"reply_to_111_0",
		"reply_to_111_1_2",
		"set_lang_en",
	} {
		_, ok := relay.DecodeAction(bad)
		assert.False(t, ok, bad)
	}

	assert.True(t, relay.IsAction("reply_to_1_1"))
	assert.False(t, relay.IsAction("edit_age"))
}

func TestError_IsMatchesByCode(t *testing.T) {
	wrapped := &relay.Error{Code: relay.CodeDeliveryFailed, Reason: "send reply", Err: errSend}

	assert.ErrorIs(t, wrapped, relay.ErrDeliveryFailed)
	assert.ErrorIs(t, wrapped, errSend)
	assert.NotErrorIs(t, wrapped, relay.ErrMissingTarget)
	assert.Equal(t, relay.CodeDeliveryFailed, relay.CodeOf(wrapped))
	assert.Equal(t, relay.CodeInternal, relay.CodeOf(errSend))
	assert.Contains(t, wrapped.Error(), "DELIVERY_FAILED")
}

func TestOperators(t *testing.T) {
	ops := relay.Operators{10, 20}
	assert.True(t, ops.Has(20))
	assert.False(t, ops.Has(30))
	id, ok := ops.Primary()
	assert.True(t, ok)
	assert.Equal(t, int64(10), id)

	_, ok = relay.Operators(nil).Primary()
	assert.False(t, ok)
}

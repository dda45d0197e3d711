package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mrarejimmyz/chatcore/core"
)

func TestMessageBuilder(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMessageBuilder().Assistant("done").ID("m1").At(ts).Backend("action").
		Action(core.ActionDescriptor{Type: core.ActionTrade, Target: "FOO"}, "p1").Build()

	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, core.RoleAssistant, m.Role)
	assert.Equal(t, ts, m.Timestamp)
	if assert.NotNil(t, m.Metadata) {
		assert.True(t, m.Metadata.ActionExecuted)
		assert.Equal(t, "p1", m.Metadata.Proof)
	}

	u := NewMessageBuilder().User("hi").Build()
	assert.Nil(t, u.Metadata)
	assert.NotEmpty(t, u.ID)
}

func TestConversation(t *testing.T) {
	msgs := Conversation("sys", 3)
	assert.Len(t, msgs, 4)
	assert.True(t, msgs[0].IsSystem())
	assert.Equal(t, "user 1", msgs[1].Content)
	assert.Equal(t, "assistant 2", msgs[2].Content)
	assert.Empty(t, Conversation("", 0))
}

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationAppendOnly(t *testing.T) {
	conv := NewConversation()
	conv = conv.AddMessage(NewMessage("", RoleUser, NewTextPart("hi")))
	conv = conv.AddMessage(NewMessage("", RoleAgent, NewTextPart("hello")))

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, conv.ConversationID, conv.Messages[0].ConversationID)

	last, ok := conv.LastMessage()
	require.True(t, ok)
	assert.Equal(t, RoleAgent, last.Role)
}

func TestConversationRoundTrip(t *testing.T) {
	SetGoogleA2ACompat(false)
	conv := NewConversation()
	conv = conv.AddMessage(NewMessage("", RoleUser, NewTextPart("first")))
	conv = conv.AddMessage(NewMessage("", RoleAgent, NewTextPart("second")))

	obj, err := conv.ToDict()
	require.NoError(t, err)

	decoded, err := ConversationFromDict(obj)
	require.NoError(t, err)
	assert.Equal(t, conv.ConversationID, decoded.ConversationID)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, "first", decoded.Messages[0].Content.Text)
	assert.Equal(t, "second", decoded.Messages[1].Content.Text)
}

func TestConversationEmptyLastMessage(t *testing.T) {
	conv := NewConversation()
	_, ok := conv.LastMessage()
	assert.False(t, ok)
}

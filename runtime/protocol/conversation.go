package protocol

import "github.com/google/uuid"

// Conversation is an append-only sequence of Messages sharing a stable
// ConversationID. Messages are never removed or reordered once appended.
type Conversation struct {
	ConversationID string
	Messages       []Message
	Metadata       map[string]any
}

// NewConversation constructs an empty Conversation with a freshly generated
// ConversationID.
func NewConversation() Conversation {
	return Conversation{ConversationID: uuid.NewString()}
}

// AddMessage appends msg to the conversation, stamping its ConversationID if
// unset, and returns the updated Conversation.
func (c Conversation) AddMessage(msg Message) Conversation {
	if msg.ConversationID == "" {
		msg.ConversationID = c.ConversationID
	}
	c.Messages = append(c.Messages, msg)
	return c
}

// LastMessage returns the most recently appended message, or the zero
// Message and false if the conversation is empty.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// ToDict encodes the conversation using the process-wide default dialect.
func (c Conversation) ToDict() (map[string]any, error) {
	msgs := make([]any, 0, len(c.Messages))
	for _, m := range c.Messages {
		d, err := m.ToDict()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, d)
	}
	key := "messages"
	idKey := "conversation_id"
	if GoogleA2ACompat() {
		idKey = "conversationId"
	}
	obj := map[string]any{idKey: c.ConversationID, key: msgs}
	if c.Metadata != nil {
		obj["metadata"] = c.Metadata
	}
	return obj, nil
}

// ConversationFromDict decodes a conversation using the process-wide default
// dialect.
func ConversationFromDict(obj map[string]any) (Conversation, error) {
	var c Conversation
	if id, ok := obj["conversation_id"].(string); ok {
		c.ConversationID = id
	} else if id, ok := obj["conversationId"].(string); ok {
		c.ConversationID = id
	}
	if meta, ok := obj["metadata"].(map[string]any); ok {
		c.Metadata = meta
	}
	rawMsgs, _ := obj["messages"].([]any)
	for _, rm := range rawMsgs {
		mObj, ok := rm.(map[string]any)
		if !ok {
			continue
		}
		msg, err := MessageFromDict(mObj)
		if err != nil {
			return Conversation{}, err
		}
		c.Messages = append(c.Messages, msg)
	}
	return c, nil
}

package protocol

import (
	"encoding/json"
	"sync/atomic"

	"github.com/google/uuid"
)

// MessageRole identifies who authored a Message.
type MessageRole string

// Known roles.
const (
	RoleUser   MessageRole = "user"
	RoleAgent  MessageRole = "agent"
	RoleSystem MessageRole = "system"
)

var googleA2ACompat atomic.Bool

// SetGoogleA2ACompat toggles the process-wide default wire dialect. When
// enabled, Encode/Decode helpers that are not explicitly dialect-qualified
// (the plain ToDict/FromDict pair) use the Google A2A compat shape instead of
// the native one. Transport layers that need to serve both dialects
// simultaneously should call ToGoogleA2A/FromGoogleA2A or
// ToNativeDict/FromNativeDict directly rather than relying on this flag.
func SetGoogleA2ACompat(enabled bool) {
	googleA2ACompat.Store(enabled)
}

// GoogleA2ACompat reports the current process-wide dialect setting.
func GoogleA2ACompat() bool {
	return googleA2ACompat.Load()
}

// Message is a single turn in a Conversation: one role, one piece of typed
// Content, plus routing metadata.
type Message struct {
	MessageID      string
	ConversationID string
	Role           MessageRole
	Content        Content
	ParentMessageID string
	Metadata       map[string]any
}

// NewMessage constructs a Message with a freshly generated MessageID.
func NewMessage(conversationID string, role MessageRole, content Content) Message {
	return Message{
		MessageID:      uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
}

// ToDict encodes the message using the process-wide default dialect.
func (m Message) ToDict() (map[string]any, error) {
	if GoogleA2ACompat() {
		return m.ToGoogleA2A()
	}
	return m.ToNativeDict()
}

// MessageFromDict decodes a message using the process-wide default dialect.
func MessageFromDict(obj map[string]any) (Message, error) {
	if GoogleA2ACompat() {
		return MessageFromGoogleA2A(obj)
	}
	return MessageFromNativeDict(obj)
}

// ToNativeDict encodes the message using this runtime's native snake_case
// wire shape.
func (m Message) ToNativeDict() (map[string]any, error) {
	contentObj, err := partToMap(m.Content)
	if err != nil {
		return nil, err
	}
	obj := map[string]any{
		"message_id":      m.MessageID,
		"conversation_id": m.ConversationID,
		"role":            string(m.Role),
		"content":         contentObj,
	}
	if m.ParentMessageID != "" {
		obj["parent_message_id"] = m.ParentMessageID
	}
	if m.Metadata != nil {
		obj["metadata"] = m.Metadata
	}
	return obj, nil
}

// MessageFromNativeDict decodes a message from the native snake_case wire
// shape.
func MessageFromNativeDict(obj map[string]any) (Message, error) {
	var m Message
	m.MessageID, _ = obj["message_id"].(string)
	m.ConversationID, _ = obj["conversation_id"].(string)
	role, _ := obj["role"].(string)
	m.Role = MessageRole(role)
	m.ParentMessageID, _ = obj["parent_message_id"].(string)
	if meta, ok := obj["metadata"].(map[string]any); ok {
		m.Metadata = meta
	}
	contentObj, ok := obj["content"].(map[string]any)
	if !ok {
		return Message{}, &ErrBadEnum{Field: "content", Value: "missing"}
	}
	content, err := partFromMap(contentObj)
	if err != nil {
		return Message{}, err
	}
	m.Content = content
	return m, nil
}

// ToGoogleA2A encodes the message using the Google A2A compat wire shape:
// camelCase keys and a "parts" array instead of a singular "content" object,
// matching upstream Google A2A's message envelope.
func (m Message) ToGoogleA2A() (map[string]any, error) {
	obj := map[string]any{
		"messageId":      m.MessageID,
		"conversationId": m.ConversationID,
		"role":           string(m.Role),
		"parts":          []any{m.Content.ToGoogleA2A()},
	}
	if m.ParentMessageID != "" {
		obj["parentMessageId"] = m.ParentMessageID
	}
	if m.Metadata != nil {
		obj["metadata"] = m.Metadata
	}
	return obj, nil
}

// MessageFromGoogleA2A decodes a message from the Google A2A compat wire
// shape.
func MessageFromGoogleA2A(obj map[string]any) (Message, error) {
	var m Message
	m.MessageID, _ = obj["messageId"].(string)
	m.ConversationID, _ = obj["conversationId"].(string)
	role, _ := obj["role"].(string)
	m.Role = MessageRole(role)
	m.ParentMessageID, _ = obj["parentMessageId"].(string)
	if meta, ok := obj["metadata"].(map[string]any); ok {
		m.Metadata = meta
	}
	parts, ok := obj["parts"].([]any)
	if !ok || len(parts) == 0 {
		return Message{}, &ErrBadEnum{Field: "parts", Value: "missing"}
	}
	first, ok := parts[0].(map[string]any)
	if !ok {
		return Message{}, &ErrBadEnum{Field: "parts[0]", Value: "not an object"}
	}
	content, err := PartFromGoogleA2A(first)
	if err != nil {
		return Message{}, err
	}
	m.Content = content
	return m, nil
}

func partToMap(p Part) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func partFromMap(obj map[string]any) (Part, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return Part{}, err
	}
	var p Part
	if err := json.Unmarshal(data, &p); err != nil {
		return Part{}, err
	}
	return p, nil
}

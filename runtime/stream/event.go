// Package stream defines the event types and Sink interface used to fan out
// task lifecycle updates to SSE subscribers and, optionally, to a
// Redis-backed Pulse stream for multi-replica aggregation. It generalizes
// runtime/agent/stream's event model (deleted along with the LLM agent
// runtime it served) to the task lifecycle this module tracks.
package stream

import (
	"time"

	"goa.design/a2arun/runtime/protocol"
)

// EventType identifies the kind of update an Event carries.
type EventType string

// Known event types, mirroring the TaskEvent variants
// runtime/a2a/server.go's statusEvent/errorEvent/artifactEvent construct.
const (
	EventStatus   EventType = "status"
	EventArtifact EventType = "artifact"
	EventMessage  EventType = "message"
	EventError    EventType = "error"
)

// Event is a single task lifecycle update pushed to subscribers.
type Event struct {
	Type           EventType
	TaskID         string
	ConversationID string
	Status         *protocol.TaskStatus
	Artifact       *protocol.Artifact
	Message        *protocol.Message
	Final          bool
	Timestamp      time.Time
}

// StatusEvent constructs a status-kind Event, marking Final when the status
// has reached a terminal task state.
func StatusEvent(taskID, conversationID string, status protocol.TaskStatus) Event {
	return Event{
		Type:           EventStatus,
		TaskID:         taskID,
		ConversationID: conversationID,
		Status:         &status,
		Final:          status.State.Terminal(),
		Timestamp:      time.Now(),
	}
}

// ArtifactEvent constructs an artifact-kind Event.
func ArtifactEvent(taskID, conversationID string, artifact protocol.Artifact) Event {
	return Event{
		Type:           EventArtifact,
		TaskID:         taskID,
		ConversationID: conversationID,
		Artifact:       &artifact,
		Timestamp:      time.Now(),
	}
}

// ErrorEvent constructs an error-kind, final Event.
func ErrorEvent(taskID, conversationID, message string) Event {
	status := protocol.TaskStatus{State: protocol.TaskFailed, Message: message, Timestamp: time.Now()}
	return Event{
		Type:           EventError,
		TaskID:         taskID,
		ConversationID: conversationID,
		Status:         &status,
		Final:          true,
		Timestamp:      time.Now(),
	}
}

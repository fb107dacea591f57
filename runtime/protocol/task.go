package protocol

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskState is one node of the task execution state machine.
type TaskState string

// Task states. submitted is the initial state; completed, failed, and
// canceled are terminal. waiting and input-required are intermediate
// states a task can return to repeatedly before reaching a terminal one.
const (
	TaskSubmitted     TaskState = "submitted"
	TaskWaiting       TaskState = "waiting"
	TaskInputRequired TaskState = "input-required"
	TaskCompleted     TaskState = "completed"
	TaskFailed        TaskState = "failed"
	TaskCanceled      TaskState = "canceled"
	// TaskUnknown is the decode-time fallback for a wire status carrying no
	// recognized state value, never a state a task is transitioned into
	// directly.
	TaskUnknown TaskState = "unknown"
)

// taskStateFromWire maps a decoded wire state string to a TaskState,
// falling back to TaskUnknown for anything unrecognized (including an
// absent or empty value).
func taskStateFromWire(value string) TaskState {
	switch TaskState(value) {
	case TaskSubmitted, TaskWaiting, TaskInputRequired, TaskCompleted, TaskFailed, TaskCanceled:
		return TaskState(value)
	default:
		return TaskUnknown
	}
}

// Terminal reports whether a task in this state can no longer transition.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCanceled:
		return true
	default:
		return false
	}
}

// validTransitions enumerates the task state machine's edges. Any state can
// move to canceled except the terminal states themselves.
var validTransitions = map[TaskState]map[TaskState]bool{
	TaskSubmitted: {
		TaskWaiting:       true,
		TaskInputRequired: true,
		TaskCompleted:     true,
		TaskFailed:        true,
		TaskCanceled:      true,
	},
	TaskWaiting: {
		TaskWaiting:       true,
		TaskInputRequired: true,
		TaskCompleted:     true,
		TaskFailed:        true,
		TaskCanceled:      true,
	},
	TaskInputRequired: {
		TaskWaiting:       true,
		TaskInputRequired: true,
		TaskCompleted:     true,
		TaskFailed:        true,
		TaskCanceled:      true,
	},
}

// ErrInvalidTransition is returned when a caller attempts to move a task out
// of a terminal state, or along an edge the state machine does not define.
type ErrInvalidTransition struct {
	From TaskState
	To   TaskState
}

// Error implements the error interface.
func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid task transition from %s to %s", e.From, e.To)
}

// TaskStatus records a task's current state, an optional human-readable
// message, and the time of the last transition.
type TaskStatus struct {
	State     TaskState
	Message   string
	Timestamp time.Time
}

// CanTransitionTo reports whether moving from the current status to next is
// a legal state machine edge.
func (s TaskStatus) CanTransitionTo(next TaskState) bool {
	if s.State.Terminal() {
		return false
	}
	return validTransitions[s.State][next]
}

// Artifact is a named, append-only bundle of output Parts produced while a
// task executes. A task can accumulate multiple artifacts over its
// lifetime; none are ever removed once appended.
type Artifact struct {
	ArtifactID string
	Name       string
	// Type classifies the artifact's content (e.g. "file", "text"). Optional.
	Type string
	// Role attributes the artifact to its producer (e.g. "agent"). Optional.
	Role  string
	Parts []Part
	Index int
	Extra map[string]any
}

// Task is a unit of work tracked by the task engine: an input Message, a
// TaskStatus reflecting its place in the state machine, the conversation
// History accumulated up to (and including) this turn, and the Artifacts it
// has produced so far.
type Task struct {
	TaskID         string
	ConversationID string
	Status         TaskStatus
	Message        Message
	History        []Message
	Artifacts      []Artifact
	Extra          map[string]any
}

// NewTask constructs a submitted Task for the given input message.
func NewTask(conversationID string, message Message) Task {
	return Task{
		TaskID:         uuid.NewString(),
		ConversationID: conversationID,
		Status:         TaskStatus{State: TaskSubmitted, Timestamp: time.Now()},
		Message:        message,
	}
}

// Transition moves the task to next, stamping the status message and
// timestamp. It returns ErrInvalidTransition if the edge is not legal, for
// example attempting to move a completed task back to waiting.
func (t *Task) Transition(next TaskState, message string) error {
	if !t.Status.CanTransitionTo(next) {
		return &ErrInvalidTransition{From: t.Status.State, To: next}
	}
	t.Status = TaskStatus{State: next, Message: message, Timestamp: time.Now()}
	return nil
}

// AddArtifact appends art to the task's artifact list, always setting its
// Index to its position in that list and assigning an ArtifactID if unset.
func (t *Task) AddArtifact(art Artifact) {
	if art.ArtifactID == "" {
		art.ArtifactID = uuid.NewString()
	}
	art.Index = len(t.Artifacts)
	t.Artifacts = append(t.Artifacts, art)
}

// ToDict encodes the task using the process-wide default dialect.
func (t Task) ToDict() (map[string]any, error) {
	if GoogleA2ACompat() {
		return t.toGoogleA2ADict()
	}
	return t.toNativeDict()
}

func (t Task) toNativeDict() (map[string]any, error) {
	msgObj, err := t.Message.ToNativeDict()
	if err != nil {
		return nil, err
	}
	history := make([]any, 0, len(t.History))
	for _, m := range t.History {
		ho, err := m.ToNativeDict()
		if err != nil {
			return nil, err
		}
		history = append(history, ho)
	}
	artifacts := make([]any, 0, len(t.Artifacts))
	for _, a := range t.Artifacts {
		ao, err := artifactToNativeMap(a)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, ao)
	}
	obj := map[string]any{
		"task_id":         t.TaskID,
		"conversation_id": t.ConversationID,
		"status": map[string]any{
			"state":     string(t.Status.State),
			"message":   t.Status.Message,
			"timestamp": t.Status.Timestamp.Format(time.RFC3339Nano),
		},
		"message":   msgObj,
		"history":   history,
		"artifacts": artifacts,
	}
	mergeExtra(obj, t.Extra)
	return obj, nil
}

func (t Task) toGoogleA2ADict() (map[string]any, error) {
	msgObj, err := t.Message.ToGoogleA2A()
	if err != nil {
		return nil, err
	}
	history := make([]any, 0, len(t.History))
	for _, m := range t.History {
		ho, err := m.ToGoogleA2A()
		if err != nil {
			return nil, err
		}
		history = append(history, ho)
	}
	artifacts := make([]any, 0, len(t.Artifacts))
	for _, a := range t.Artifacts {
		artifacts = append(artifacts, artifactToGoogleA2AMap(a))
	}
	obj := map[string]any{
		"taskId":         t.TaskID,
		"conversationId": t.ConversationID,
		"status": map[string]any{
			"state":     string(t.Status.State),
			"message":   t.Status.Message,
			"timestamp": t.Status.Timestamp.Format(time.RFC3339Nano),
		},
		"message":   msgObj,
		"history":   history,
		"artifacts": artifacts,
	}
	mergeExtra(obj, t.Extra)
	return obj, nil
}

func artifactToNativeMap(a Artifact) (map[string]any, error) {
	parts := make([]any, 0, len(a.Parts))
	for _, p := range a.Parts {
		pm, err := partToMap(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, pm)
	}
	obj := map[string]any{
		"artifact_id": a.ArtifactID,
		"name":        a.Name,
		"parts":       parts,
		"index":       a.Index,
	}
	if a.Type != "" {
		obj["type"] = a.Type
	}
	if a.Role != "" {
		obj["role"] = a.Role
	}
	mergeExtra(obj, a.Extra)
	return obj, nil
}

func artifactToGoogleA2AMap(a Artifact) map[string]any {
	parts := make([]any, 0, len(a.Parts))
	for _, p := range a.Parts {
		parts = append(parts, p.ToGoogleA2A())
	}
	obj := map[string]any{
		"artifactId": a.ArtifactID,
		"name":       a.Name,
		"parts":      parts,
		"index":      a.Index,
	}
	if a.Type != "" {
		obj["type"] = a.Type
	}
	if a.Role != "" {
		obj["role"] = a.Role
	}
	return mergeExtra(obj, a.Extra)
}

// TaskFromDict decodes a task using the process-wide default dialect.
func TaskFromDict(obj map[string]any) (Task, error) {
	if GoogleA2ACompat() {
		return TaskFromGoogleA2A(obj)
	}
	return TaskFromNativeDict(obj)
}

// TaskFromNativeDict decodes a task from the native snake_case wire shape
// produced by toNativeDict.
func TaskFromNativeDict(obj map[string]any) (Task, error) {
	var t Task
	t.TaskID, _ = obj["task_id"].(string)
	t.ConversationID, _ = obj["conversation_id"].(string)

	status, _ := obj["status"].(map[string]any)
	state, _ := status["state"].(string)
	t.Status.State = taskStateFromWire(state)
	t.Status.Message, _ = status["message"].(string)
	if ts, ok := status["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			t.Status.Timestamp = parsed
		}
	}

	if msgObj, ok := obj["message"].(map[string]any); ok {
		msg, err := MessageFromNativeDict(msgObj)
		if err != nil {
			return Task{}, err
		}
		t.Message = msg
	}

	if rawHistory, ok := obj["history"].([]any); ok {
		t.History = make([]Message, 0, len(rawHistory))
		for _, raw := range rawHistory {
			ho, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			m, err := MessageFromNativeDict(ho)
			if err != nil {
				return Task{}, err
			}
			t.History = append(t.History, m)
		}
	}

	if rawArtifacts, ok := obj["artifacts"].([]any); ok {
		t.Artifacts = make([]Artifact, 0, len(rawArtifacts))
		for _, raw := range rawArtifacts {
			ao, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			a, err := artifactFromNativeMap(ao)
			if err != nil {
				return Task{}, err
			}
			t.Artifacts = append(t.Artifacts, a)
		}
	}

	known := []string{"task_id", "conversation_id", "status", "message", "history", "artifacts"}
	t.Extra = extraFromMap(obj, known...)
	return t, nil
}

// TaskFromGoogleA2A decodes a task from the Google A2A compat wire shape
// produced by toGoogleA2ADict.
func TaskFromGoogleA2A(obj map[string]any) (Task, error) {
	var t Task
	t.TaskID, _ = obj["taskId"].(string)
	t.ConversationID, _ = obj["conversationId"].(string)

	status, _ := obj["status"].(map[string]any)
	state, _ := status["state"].(string)
	t.Status.State = taskStateFromWire(state)
	t.Status.Message, _ = status["message"].(string)
	if ts, ok := status["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			t.Status.Timestamp = parsed
		}
	}

	if msgObj, ok := obj["message"].(map[string]any); ok {
		msg, err := MessageFromGoogleA2A(msgObj)
		if err != nil {
			return Task{}, err
		}
		t.Message = msg
	}

	if rawHistory, ok := obj["history"].([]any); ok {
		t.History = make([]Message, 0, len(rawHistory))
		for _, raw := range rawHistory {
			ho, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			m, err := MessageFromGoogleA2A(ho)
			if err != nil {
				return Task{}, err
			}
			t.History = append(t.History, m)
		}
	}

	if rawArtifacts, ok := obj["artifacts"].([]any); ok {
		t.Artifacts = make([]Artifact, 0, len(rawArtifacts))
		for _, raw := range rawArtifacts {
			ao, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			a, err := artifactFromGoogleA2AMap(ao)
			if err != nil {
				return Task{}, err
			}
			t.Artifacts = append(t.Artifacts, a)
		}
	}

	known := []string{"taskId", "conversationId", "status", "message", "history", "artifacts"}
	t.Extra = extraFromMap(obj, known...)
	return t, nil
}

func artifactFromNativeMap(obj map[string]any) (Artifact, error) {
	var a Artifact
	a.ArtifactID, _ = obj["artifact_id"].(string)
	a.Name, _ = obj["name"].(string)
	a.Type, _ = obj["type"].(string)
	a.Role, _ = obj["role"].(string)
	if idx, ok := obj["index"].(float64); ok {
		a.Index = int(idx)
	}
	if rawParts, ok := obj["parts"].([]any); ok {
		a.Parts = make([]Part, 0, len(rawParts))
		for _, raw := range rawParts {
			pm, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			p, err := partFromMap(pm)
			if err != nil {
				return Artifact{}, err
			}
			a.Parts = append(a.Parts, p)
		}
	}
	known := []string{"artifact_id", "name", "type", "role", "parts", "index"}
	a.Extra = extraFromMap(obj, known...)
	return a, nil
}

func artifactFromGoogleA2AMap(obj map[string]any) (Artifact, error) {
	var a Artifact
	a.ArtifactID, _ = obj["artifactId"].(string)
	a.Name, _ = obj["name"].(string)
	a.Type, _ = obj["type"].(string)
	a.Role, _ = obj["role"].(string)
	if idx, ok := obj["index"].(float64); ok {
		a.Index = int(idx)
	}
	if rawParts, ok := obj["parts"].([]any); ok {
		a.Parts = make([]Part, 0, len(rawParts))
		for _, raw := range rawParts {
			pm, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			p, err := PartFromGoogleA2A(pm)
			if err != nil {
				return Artifact{}, err
			}
			a.Parts = append(a.Parts, p)
		}
	}
	known := []string{"artifactId", "name", "type", "role", "parts", "index"}
	a.Extra = extraFromMap(obj, known...)
	return a, nil
}

// extraFromMap copies obj's keys other than known into a fresh map, or
// returns nil if nothing is left over. It mirrors splitKnown's extra-bag
// behavior for callers already holding a decoded map[string]any rather than
// raw JSON bytes.
func extraFromMap(obj map[string]any, known ...string) map[string]any {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
	}
	var extra map[string]any
	for k, v := range obj {
		if knownSet[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}

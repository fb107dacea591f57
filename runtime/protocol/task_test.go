package protocol

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskTransitionLifecycle(t *testing.T) {
	task := NewTask("conv-1", NewMessage("conv-1", RoleUser, NewTextPart("do the thing")))
	assert.Equal(t, TaskSubmitted, task.Status.State)

	require.NoError(t, task.Transition(TaskWaiting, "working on it"))
	require.NoError(t, task.Transition(TaskInputRequired, "need more info"))
	require.NoError(t, task.Transition(TaskWaiting, "resuming"))
	require.NoError(t, task.Transition(TaskCompleted, "done"))
	assert.True(t, task.Status.State.Terminal())
}

func TestTaskCancelFromAnyNonTerminalState(t *testing.T) {
	for _, start := range []TaskState{TaskSubmitted, TaskWaiting, TaskInputRequired} {
		task := NewTask("conv-1", NewMessage("conv-1", RoleUser, NewTextPart("x")))
		task.Status.State = start
		require.NoError(t, task.Transition(TaskCanceled, "user canceled"), "from state %s", start)
	}
}

func TestTaskTerminalStateIsImmutable(t *testing.T) {
	for _, terminal := range []TaskState{TaskCompleted, TaskFailed, TaskCanceled} {
		task := NewTask("conv-1", NewMessage("conv-1", RoleUser, NewTextPart("x")))
		task.Status.State = terminal
		err := task.Transition(TaskWaiting, "should not happen")
		require.Error(t, err, "terminal state %s must not transition", terminal)
		var transErr *ErrInvalidTransition
		require.ErrorAs(t, err, &transErr)
	}
}

func TestTaskArtifactsAreAppendOnlyAndIndexed(t *testing.T) {
	task := NewTask("conv-1", NewMessage("conv-1", RoleUser, NewTextPart("x")))
	task.AddArtifact(Artifact{Name: "first", Parts: []Part{NewTextPart("a")}})
	task.AddArtifact(Artifact{Name: "second", Parts: []Part{NewTextPart("b")}})

	require.Len(t, task.Artifacts, 2)
	assert.Equal(t, 0, task.Artifacts[0].Index)
	assert.Equal(t, 1, task.Artifacts[1].Index)
	assert.NotEmpty(t, task.Artifacts[0].ArtifactID)
	assert.NotEqual(t, task.Artifacts[0].ArtifactID, task.Artifacts[1].ArtifactID)
}

func TestTaskNativeDictRoundTrip(t *testing.T) {
	SetGoogleA2ACompat(false)
	task := NewTask("conv-1", NewMessage("conv-1", RoleUser, NewTextPart("do it")))
	task.History = []Message{
		NewMessage("conv-1", RoleUser, NewTextPart("earlier turn")),
		NewMessage("conv-1", RoleAgent, NewTextPart("earlier reply")),
	}
	require.NoError(t, task.Transition(TaskCompleted, "done"))
	task.AddArtifact(Artifact{Name: "result", Type: "text", Role: "agent", Parts: []Part{NewTextPart("42")}})

	obj, err := task.ToDict()
	require.NoError(t, err)
	assert.Equal(t, string(TaskCompleted), obj["status"].(map[string]any)["state"])
	artifacts := obj["artifacts"].([]any)
	require.Len(t, artifacts, 1)

	decoded, err := TaskFromDict(obj)
	require.NoError(t, err)
	assert.Equal(t, task.TaskID, decoded.TaskID)
	assert.Equal(t, task.ConversationID, decoded.ConversationID)
	assert.Equal(t, task.Status.State, decoded.Status.State)
	assert.Equal(t, task.Status.Message, decoded.Status.Message)
	assert.Equal(t, task.Message.Content.Text, decoded.Message.Content.Text)

	require.Len(t, decoded.History, 2)
	assert.Equal(t, "earlier turn", decoded.History[0].Content.Text)
	assert.Equal(t, "earlier reply", decoded.History[1].Content.Text)

	require.Len(t, decoded.Artifacts, 1)
	assert.Equal(t, "result", decoded.Artifacts[0].Name)
	assert.Equal(t, "text", decoded.Artifacts[0].Type)
	assert.Equal(t, "agent", decoded.Artifacts[0].Role)
	assert.Equal(t, "42", decoded.Artifacts[0].Parts[0].Text)
}

func TestTaskUnknownStateFallback(t *testing.T) {
	SetGoogleA2ACompat(false)
	obj := map[string]any{
		"task_id":         "t-1",
		"conversation_id": "conv-1",
		"status":          map[string]any{"state": "not_a_real_state"},
	}
	decoded, err := TaskFromDict(obj)
	require.NoError(t, err)
	assert.Equal(t, TaskUnknown, decoded.Status.State)

	obj["status"] = map[string]any{}
	decoded, err = TaskFromDict(obj)
	require.NoError(t, err)
	assert.Equal(t, TaskUnknown, decoded.Status.State)
}

// genTaskState picks among every declared task state uniformly.
var genTaskState = gen.OneConstOf(
	TaskSubmitted, TaskWaiting, TaskInputRequired, TaskCompleted, TaskFailed, TaskCanceled,
)

// TestTaskStateMachineNeverLeavesTerminalStates is a property test: no matter
// which state a task starts in, once it reaches a terminal state no further
// transition (to any other state) succeeds.
func TestTaskStateMachineNeverLeavesTerminalStates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("terminal states reject every transition", prop.ForAll(
		func(terminal TaskState, attempted TaskState) bool {
			if !terminal.Terminal() {
				return true
			}
			task := NewTask("conv-1", NewMessage("conv-1", RoleUser, NewTextPart("x")))
			task.Status.State = terminal
			err := task.Transition(attempted, "attempt")
			return err != nil
		},
		genTaskState,
		genTaskState,
	))

	properties.TestingRun(t)
}

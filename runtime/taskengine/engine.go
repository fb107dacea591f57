package taskengine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"goa.design/a2arun/runtime/adapter"
	"goa.design/a2arun/runtime/protocol"
	"goa.design/a2arun/runtime/stream"
	"goa.design/a2arun/runtime/telemetry"
)

// ErrTaskNotFound is returned by Get/Cancel when the referenced task
// id is unknown to the engine's TaskStore.
var ErrTaskNotFound = errors.New("taskengine: task not found")

// Engine drives the A2A task lifecycle for a single agent.Adapter: it
// accepts new tasks, tracks their state machine transitions in a TaskStore,
// and fans out lifecycle events to any subscribed stream.Sink. It
// generalizes runtime/a2a/server.go's Server (which wires one
// agentruntime.Client to one inMemoryTaskStore) to the adapter.TaskAdapter
// contract and the richer protocol.Task state machine. StreamingAdapter and
// SubscribingAdapter are not used by the engine.
type Engine struct {
	agent adapter.TaskAdapter
	store TaskStore

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer

	mu            sync.Mutex
	cancels       map[string]context.CancelFunc
	bridges       map[string]*stream.Bridge
	conversations map[string][]protocol.Message
}

// Option configures optional aspects of an Engine.
type Option func(*Engine)

// WithTaskStore overrides the default in-memory TaskStore.
func WithTaskStore(store TaskStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithTelemetry overrides the no-op logger/metrics/tracer.
func WithTelemetry(logger telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
		if metrics != nil {
			e.metrics = metrics
		}
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// New constructs an Engine driving agent. By default it uses an in-memory
// TaskStore and no-op telemetry.
func New(agent adapter.Adapter, opts ...Option) *Engine {
	e := &Engine{
		agent:   adapter.ResolveTaskAdapter(agent),
		store:   NewInMemoryTaskStore(),
		logger:  telemetry.NewNoopLogger(),
		metrics: telemetry.NewNoopMetrics(),
		tracer:  telemetry.NewNoopTracer(),
		cancels:       make(map[string]context.CancelFunc),
		bridges:       make(map[string]*stream.Bridge),
		conversations: make(map[string][]protocol.Message),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Send implements tasks/send: it runs the task to completion (or failure)
// synchronously and returns the final Task snapshot.
func (e *Engine) Send(ctx context.Context, conversationID string, message protocol.Message) (*protocol.Task, error) {
	task := protocol.NewTask(conversationID, message)
	task.History = e.conversationHistory(conversationID)
	defer e.appendHistory(conversationID, message)
	ctx, span := e.tracer.Start(ctx, "taskengine.Send")
	defer span.End()

	taskCtx, cancel := context.WithCancel(ctx)
	e.registerCancel(task.TaskID, cancel)
	defer e.unregisterCancel(task.TaskID)

	if err := task.Transition(protocol.TaskWaiting, "executing"); err != nil {
		cancel()
		return nil, err
	}
	if err := e.store.Store(&task); err != nil {
		cancel()
		return nil, err
	}

	err := e.agent.ExecuteTask(taskCtx, &task, func(a protocol.Artifact) {
		task.AddArtifact(a)
	})
	if err != nil {
		_ = task.Transition(protocol.TaskFailed, err.Error())
		e.metrics.IncCounter("taskengine.task.failed", 1)
		_ = e.store.Store(&task)
		return &task, nil
	}
	if transErr := task.Transition(protocol.TaskCompleted, ""); transErr != nil {
		return nil, transErr
	}
	e.metrics.IncCounter("taskengine.task.completed", 1)
	_ = e.store.Store(&task)
	return &task, nil
}

// Get implements tasks/get. historyLength, when greater than zero,
// truncates the returned task's History to the last historyLength entries;
// zero or negative returns the full stored history.
func (e *Engine) Get(taskID string, historyLength int) (*protocol.Task, error) {
	task, ok := e.store.Load(taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if historyLength <= 0 || len(task.History) <= historyLength {
		return task, nil
	}
	truncated := *task
	truncated.History = task.History[len(task.History)-historyLength:]
	return &truncated, nil
}

// Cancel implements tasks/cancel: it invokes the task's cancellation
// function (stopping the adapter's context) and transitions the task to
// canceled, unless it has already reached a terminal state.
func (e *Engine) Cancel(taskID string) (*protocol.Task, error) {
	task, ok := e.store.Load(taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	e.mu.Lock()
	cancel := e.cancels[taskID]
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if task.Status.State.Terminal() {
		return task, nil
	}
	if err := task.Transition(protocol.TaskCanceled, "canceled by caller"); err != nil {
		return nil, err
	}
	_ = e.store.Store(task)
	return task, nil
}

// SendSubscribe implements tasks/sendSubscribe: it starts the task
// asynchronously and streams lifecycle events to sink until the task
// reaches a terminal state or ctx is canceled.
func (e *Engine) SendSubscribe(ctx context.Context, conversationID string, message protocol.Message, sink stream.Sink) error {
	task := protocol.NewTask(conversationID, message)
	task.History = e.conversationHistory(conversationID)
	defer e.appendHistory(conversationID, message)
	if err := task.Transition(protocol.TaskWaiting, "executing"); err != nil {
		return err
	}
	if err := e.store.Store(&task); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	e.registerCancel(task.TaskID, cancel)
	defer e.unregisterCancel(task.TaskID)

	bridge := stream.NewBridge(64)
	e.registerBridge(task.TaskID, bridge)
	defer e.unregisterBridge(task.TaskID)

	if err := bridge.Send(stream.StatusEvent(task.TaskID, conversationID, task.Status)); err != nil {
		e.logger.Warn(ctx, "dropped initial status event", "task_id", task.TaskID, "err", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- e.runSubscribed(taskCtx, &task, bridge)
	}()

	pumpErr := bridge.Pump(ctx, sink)
	runErr := <-done
	if pumpErr != nil {
		return pumpErr
	}
	return runErr
}

func (e *Engine) runSubscribed(ctx context.Context, task *protocol.Task, bridge *stream.Bridge) error {
	err := e.agent.ExecuteTask(ctx, task, func(a protocol.Artifact) {
		task.AddArtifact(a)
		_ = bridge.Send(stream.ArtifactEvent(task.TaskID, task.ConversationID, a))
	})
	if err != nil {
		_ = task.Transition(protocol.TaskFailed, err.Error())
		_ = e.store.Store(task)
		_ = bridge.Send(stream.ErrorEvent(task.TaskID, task.ConversationID, err.Error()))
		bridge.Close()
		return fmt.Errorf("taskengine: task %s failed: %w", task.TaskID, err)
	}
	if transErr := task.Transition(protocol.TaskCompleted, ""); transErr != nil {
		bridge.Close()
		return transErr
	}
	_ = e.store.Store(task)
	_ = bridge.Send(stream.StatusEvent(task.TaskID, task.ConversationID, task.Status))
	bridge.Close()
	return nil
}

// conversationHistory returns a copy of the messages accumulated so far for
// conversationID, safe for a caller to store on a new Task without aliasing
// the engine's internal buffer.
func (e *Engine) conversationHistory(conversationID string) []protocol.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	existing := e.conversations[conversationID]
	if len(existing) == 0 {
		return nil
	}
	history := make([]protocol.Message, len(existing))
	copy(history, existing)
	return history
}

// appendHistory records message as having been sent on conversationID, so
// later tasks on the same conversation see it in their History.
func (e *Engine) appendHistory(conversationID string, message protocol.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conversations[conversationID] = append(e.conversations[conversationID], message)
}

func (e *Engine) registerCancel(taskID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels[taskID] = cancel
}

func (e *Engine) unregisterCancel(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cancels, taskID)
}

func (e *Engine) registerBridge(taskID string, bridge *stream.Bridge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bridges[taskID] = bridge
}

func (e *Engine) unregisterBridge(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.bridges, taskID)
}

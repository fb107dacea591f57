// Package aggregate fans a single logical request out across multiple
// agent sources, picking one via a configurable load-balancing Strategy
// and falling back to the next candidate if the chosen source times out or
// errors. It builds on runtime/client/streaming.Client for the underlying
// per-source SSE connection; a failed source is not retried, the next
// candidate is tried instead.
package aggregate

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"goa.design/a2arun/runtime/a2a/retry"
	"goa.design/a2arun/runtime/client/streaming"
	"goa.design/a2arun/runtime/protocol"
	"goa.design/a2arun/runtime/stream"
	"goa.design/a2arun/runtime/telemetry"
)

// Strategy selects which source handles the next request.
type Strategy string

// Supported load-balancing strategies.
const (
	RoundRobin Strategy = "round_robin"
	Random     Strategy = "random"
	LeastBusy  Strategy = "least_busy"
)

// SourceTimeout bounds how long the aggregator waits for a single source to
// produce its first event before treating it as unavailable and trying the
// next candidate.
const SourceTimeout = 5 * time.Second

// Source is one agent endpoint the aggregator can route to.
type Source struct {
	Name   string
	Client *streaming.Client
}

// sourceMetrics tracks per-source retry/latency counters ("requests",
// "errors", "last_latency") so the least_busy strategy's score
// (requests / (1 + last_latency)) can be recomputed after every attempt.
type sourceMetrics struct {
	requests    int
	errors      int
	lastLatency time.Duration
}

func (m sourceMetrics) score() float64 {
	return float64(m.requests) / (1 + m.lastLatency.Seconds())
}

// Aggregator routes SendSubscribe calls across a fixed set of Sources.
type Aggregator struct {
	Strategy Strategy
	Retry    retry.Config
	Metrics  telemetry.Metrics
	// Limiter gates how fast the aggregator opens new source connections
	// (each attempt, including failover to the next candidate), so a
	// flapping source cannot be hammered with reconnect attempts. Defaults
	// to 10/s burst 10.
	Limiter *rate.Limiter

	mu       sync.Mutex
	sources  []Source
	inFlight map[string]int
	metrics  map[string]sourceMetrics
	rrCursor int
}

// NewAggregator constructs an Aggregator over sources using strategy.
func NewAggregator(sources []Source, strategy Strategy) *Aggregator {
	return &Aggregator{
		Strategy: strategy,
		Retry:    retry.DefaultConfig(),
		Metrics:  telemetry.NewNoopMetrics(),
		Limiter:  rate.NewLimiter(rate.Limit(10), 10),
		sources:  sources,
		inFlight: make(map[string]int),
		metrics:  make(map[string]sourceMetrics),
	}
}

// ErrNoSources is returned when the aggregator has no configured sources.
var ErrNoSources = errors.New("aggregate: no sources configured")

// SendSubscribe picks a source per the configured Strategy and streams its
// events. If the chosen source fails to deliver an event within
// SourceTimeout, the aggregator records the failure and retries against the
// next candidate source (in the order candidateOrder gives for the
// Strategy) until sources are exhausted.
func (a *Aggregator) SendSubscribe(ctx context.Context, conversationID string, message protocol.Message) (<-chan stream.Event, <-chan error, error) {
	order := a.candidateOrder()
	if len(order) == 0 {
		return nil, nil, ErrNoSources
	}

	var lastErr error
	for _, src := range order {
		if a.Limiter != nil {
			if err := a.Limiter.Wait(ctx); err != nil {
				return nil, nil, err
			}
		}
		a.markBusy(src.Name, 1)
		start := time.Now()
		events, errs, err := a.trySource(ctx, src, conversationID, message)
		a.markBusy(src.Name, -1)
		a.recordAttempt(src.Name, time.Since(start), err)
		if err == nil {
			return events, errs, nil
		}
		lastErr = err
		a.Metrics.IncCounter("aggregate.source.failed", 1, "source", src.Name)
	}
	return nil, nil, lastErr
}

// recordAttempt updates the per-source requests/errors/last_latency
// counters used by the least_busy strategy's score.
func (a *Aggregator) recordAttempt(name string, latency time.Duration, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.metrics[name]
	m.requests++
	if err != nil {
		m.errors++
	}
	m.lastLatency = latency
	a.metrics[name] = m
}

func (a *Aggregator) trySource(ctx context.Context, src Source, conversationID string, message protocol.Message) (<-chan stream.Event, <-chan error, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, SourceTimeout)
	defer cancel()

	events, errs, err := src.Client.SendSubscribe(ctx, conversationID, message)
	if err != nil {
		return nil, nil, err
	}

	select {
	case first, ok := <-events:
		if !ok {
			return nil, nil, errors.New("aggregate: source closed stream with no events")
		}
		relayed := make(chan stream.Event, 16)
		relayed <- first
		go func() {
			defer close(relayed)
			for e := range events {
				relayed <- e
			}
		}()
		return relayed, errs, nil
	case err := <-errs:
		return nil, nil, err
	case <-timeoutCtx.Done():
		return nil, nil, errors.New("aggregate: source " + src.Name + " timed out")
	}
}

// TaggedChunk is one interleaved chunk from a Broadcast fan-out, tagged
// with the source that produced it: {type, source, content, chunk_index,
// timestamp}.
type TaggedChunk struct {
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Timestamp  time.Time `json:"timestamp"`
}

// AggregateComplete terminates a Broadcast's output channel, reporting how
// many sources out of the total contributed at least one chunk.
type AggregateComplete struct {
	Type              string `json:"type"`
	TotalChunks       int    `json:"total_chunks"`
	SuccessfulSources int    `json:"successful_sources"`
	TotalSources      int    `json:"total_sources"`
}

// Broadcast streams from every configured source concurrently, relaying
// each as a TaggedChunk on the returned channel (interleaved in whatever
// order sources produce them) and finishing with a single AggregateComplete
// value. A source that errors or exceeds SourceTimeout waiting for its next
// chunk is dropped from the broadcast without failing the others — the
// final AggregateComplete.SuccessfulSources reports how many did contribute.
func (a *Aggregator) Broadcast(ctx context.Context, conversationID string, message protocol.Message) (<-chan any, error) {
	a.mu.Lock()
	sources := make([]Source, len(a.sources))
	copy(sources, a.sources)
	a.mu.Unlock()
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	out := make(chan any, 32)
	var totalChunks int64
	var successful int64
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			n := a.streamOneSource(ctx, src, conversationID, message, out)
			if n > 0 {
				atomic.AddInt64(&successful, 1)
			}
			atomic.AddInt64(&totalChunks, int64(n))
		}(src)
	}
	go func() {
		wg.Wait()
		out <- AggregateComplete{
			Type:              "aggregate_complete",
			TotalChunks:       int(atomic.LoadInt64(&totalChunks)),
			SuccessfulSources: int(atomic.LoadInt64(&successful)),
			TotalSources:      len(sources),
		}
		close(out)
	}()
	return out, nil
}

// streamOneSource relays src's events as TaggedChunks onto out until the
// source's stream ends, errors, goes idle past SourceTimeout, or ctx is
// canceled. It returns the number of chunks relayed.
func (a *Aggregator) streamOneSource(ctx context.Context, src Source, conversationID string, message protocol.Message, out chan<- any) int {
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return 0
		}
	}
	start := time.Now()
	events, errs, err := src.Client.SendSubscribe(ctx, conversationID, message)
	a.recordAttempt(src.Name, time.Since(start), err)
	if err != nil {
		a.Metrics.IncCounter("aggregate.source.failed", 1, "source", src.Name)
		return 0
	}

	chunkIndex := 0
	for {
		select {
		case <-ctx.Done():
			return chunkIndex
		case e, ok := <-errs:
			if ok {
				a.Metrics.IncCounter("aggregate.source.failed", 1, "source", src.Name)
				_ = e
			}
			return chunkIndex
		case ev, ok := <-events:
			if !ok {
				return chunkIndex
			}
			chunk := TaggedChunk{
				Type:       string(ev.Type),
				Source:     src.Name,
				Content:    eventText(ev),
				ChunkIndex: chunkIndex,
				Timestamp:  time.Now(),
			}
			chunkIndex++
			select {
			case out <- chunk:
			case <-ctx.Done():
				return chunkIndex
			}
			if ev.Final {
				return chunkIndex
			}
		case <-time.After(SourceTimeout):
			return chunkIndex
		}
	}
}

// eventText projects a stream.Event down to the text a TaggedChunk carries
// in its Content field: the task status message if present, else the
// message content's text projection.
func eventText(ev stream.Event) string {
	if ev.Status != nil && ev.Status.Message != "" {
		return ev.Status.Message
	}
	if ev.Message != nil {
		return ev.Message.Content.TextProjection()
	}
	return ""
}

// candidateOrder returns sources in the order they should be attempted,
// per the configured Strategy.
func (a *Aggregator) candidateOrder() []Source {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.sources)
	if n == 0 {
		return nil
	}

	switch a.Strategy {
	case Random:
		order := make([]Source, n)
		copy(order, a.sources)
		rand.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		return order
	case LeastBusy:
		// Primary key: live in-flight requests (the most direct reading of
		// "busy"). Ties break on the historical score,
		// requests/(1+last_latency) — a source with more completed
		// requests relative to its last observed latency sorts later.
		order := make([]Source, n)
		copy(order, a.sources)
		for i := 1; i < len(order); i++ {
			for j := i; j > 0 && a.lessBusy(order[j].Name, order[j-1].Name); j-- {
				order[j], order[j-1] = order[j-1], order[j]
			}
		}
		return order
	default: // RoundRobin
		order := make([]Source, n)
		for i := range order {
			order[i] = a.sources[(a.rrCursor+i)%n]
		}
		a.rrCursor = (a.rrCursor + 1) % n
		return order
	}
}

func (a *Aggregator) markBusy(name string, delta int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight[name] += delta
}

// lessBusy reports whether source a should be tried before source b under
// the LeastBusy strategy. Caller holds a.mu.
func (a *Aggregator) lessBusy(nameA, nameB string) bool {
	if a.inFlight[nameA] != a.inFlight[nameB] {
		return a.inFlight[nameA] < a.inFlight[nameB]
	}
	return a.metrics[nameA].score() < a.metrics[nameB].score()
}

// SourceScore reports source's current least_busy score
// (requests/(1+last_latency)) and in-flight request count, for callers
// wanting to observe the strategy's inputs (metrics dashboards, tests).
func (a *Aggregator) SourceScore(name string) (score float64, inFlight int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics[name].score(), a.inFlight[name]
}

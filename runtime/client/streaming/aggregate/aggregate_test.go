package aggregate

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/a2arun/runtime/adapter"
	"goa.design/a2arun/runtime/client/streaming"
	"goa.design/a2arun/runtime/protocol"
	"goa.design/a2arun/runtime/taskengine"
	transporthttp "goa.design/a2arun/runtime/transport/http"
)

func TestCandidateOrderRoundRobinRotates(t *testing.T) {
	sources := []Source{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	agg := NewAggregator(sources, RoundRobin)

	first := agg.candidateOrder()
	second := agg.candidateOrder()
	assert.Equal(t, "a", first[0].Name)
	assert.Equal(t, "b", second[0].Name)
}

func TestCandidateOrderLeastBusyPrefersIdle(t *testing.T) {
	sources := []Source{{Name: "a"}, {Name: "b"}}
	agg := NewAggregator(sources, LeastBusy)
	agg.markBusy("a", 3)

	order := agg.candidateOrder()
	assert.Equal(t, "b", order[0].Name)
}

func TestSendSubscribeNoSources(t *testing.T) {
	agg := NewAggregator(nil, RoundRobin)
	msg := protocol.NewMessage("conv-1", protocol.RoleUser, protocol.NewTextPart("ping"))
	_, _, err := agg.SendSubscribe(context.Background(), "conv-1", msg)
	assert.ErrorIs(t, err, ErrNoSources)
}

// TestBroadcastOneSourceFailing covers three streaming endpoints, one
// unreachable; aggregate_complete must report successful_sources == 2 and
// total_sources == 3.
func TestBroadcastOneSourceFailing(t *testing.T) {
	engine1 := taskengine.New(adapter.EchoAdapter{})
	srv1 := httptest.NewServer(transporthttp.NewServer(engine1, protocol.AgentCard{Name: "echo-1"}))
	defer srv1.Close()

	engine2 := taskengine.New(adapter.EchoAdapter{})
	srv2 := httptest.NewServer(transporthttp.NewServer(engine2, protocol.AgentCard{Name: "echo-2"}))
	defer srv2.Close()

	failing := httptest.NewServer(nil) // closed below, before use: always refuses connections
	failingURL := failing.URL
	failing.Close()

	sources := []Source{
		{Name: "a", Client: streaming.NewClient(srv1.URL)},
		{Name: "b", Client: streaming.NewClient(srv2.URL)},
		{Name: "c", Client: streaming.NewClient(failingURL)},
	}
	agg := NewAggregator(sources, RoundRobin)

	msg := protocol.NewMessage("conv-1", protocol.RoleUser, protocol.NewTextPart("ping"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := agg.Broadcast(ctx, "conv-1", msg)
	require.NoError(t, err)

	var complete *AggregateComplete
	for v := range out {
		if c, ok := v.(AggregateComplete); ok {
			complete = &c
		}
	}
	require.NotNil(t, complete, "expected an aggregate_complete value")
	assert.Equal(t, 3, complete.TotalSources)
	assert.Equal(t, 2, complete.SuccessfulSources)
}

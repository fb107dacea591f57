// Package airouter picks which agent in a network should handle a query.
// Router is the external-collaborator interface point for an LLM-backed
// implementation (mirroring adapter.Adapter's role for task execution);
// KeywordRouter and RandomRouter are the two non-LLM routers; nothing in
// this module switches to them automatically. KeywordRouter's
// scoring is adapted from runtime/registry/search.go's keyword relevance
// computation (ComputeKeywordRelevance): name/description/tag term matches,
// scored and clamped rather than a full semantic search.
package airouter

import (
	"context"
	"errors"
	"math/rand"
	"strings"
)

// Agent describes one routable destination in an agent network.
type Agent struct {
	Name        string
	Description string
	Tags        []string
}

// Decision is a router's pick, with a confidence in [0,1].
type Decision struct {
	AgentName  string
	Confidence float64
}

// Router selects an agent from a network to handle query.
type Router interface {
	Route(ctx context.Context, query string, agents []Agent) (Decision, error)
}

// LLMRouterFunc adapts a function (typically a call out to an LLM) into a
// Router. It is the external-collaborator point: this package ships no
// concrete LLM-backed implementation, only the seam.
type LLMRouterFunc func(ctx context.Context, query string, agents []Agent) (Decision, error)

// Route implements Router.
func (f LLMRouterFunc) Route(ctx context.Context, query string, agents []Agent) (Decision, error) {
	return f(ctx, query, agents)
}

// KeywordRouter scores each agent by how many query terms appear in its
// name, description, or tags and picks the highest scorer. Ties break
// toward the first agent in network order, matching the deterministic
// sort-then-take-best shape of registry/search.go's SearchClient.Search.
type KeywordRouter struct{}

// Route implements Router.
func (KeywordRouter) Route(_ context.Context, query string, agents []Agent) (Decision, error) {
	if len(agents) == 0 {
		return Decision{}, ErrNoAgents
	}
	best := agents[0]
	bestScore := keywordScore(query, best)
	for _, a := range agents[1:] {
		score := keywordScore(query, a)
		if score > bestScore {
			best = a
			bestScore = score
		}
	}
	return Decision{AgentName: best.Name, Confidence: bestScore}, nil
}

// keywordScore counts query-term matches against an agent's name,
// description, and tags, following runtime/registry/search.go's
// keywordSearch term-matching shape, and reports matches-per-ten clamped to
// 1.0 as a conservative confidence score for a router with no learned
// signal.
func keywordScore(query string, a Agent) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	nameLower := strings.ToLower(a.Name)
	descLower := strings.ToLower(a.Description)

	var matches float64
	for _, term := range terms {
		if strings.Contains(nameLower, term) {
			matches++
		}
		if strings.Contains(descLower, term) {
			matches++
		}
		for _, tag := range a.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				matches++
			}
		}
	}
	score := matches / 10
	if score > 1 {
		score = 1
	}
	return score
}

// RandomRouter picks uniformly among the candidates with a fixed 0.5
// confidence, a baseline fallback for when no better signal exists.
type RandomRouter struct{}

// Route implements Router.
func (RandomRouter) Route(_ context.Context, _ string, agents []Agent) (Decision, error) {
	if len(agents) == 0 {
		return Decision{}, ErrNoAgents
	}
	pick := agents[rand.Intn(len(agents))]
	return Decision{AgentName: pick.Name, Confidence: 0.5}, nil
}

// ErrNoAgents is returned when Route is called against an empty network.
var ErrNoAgents = errors.New("airouter: no agents in network")

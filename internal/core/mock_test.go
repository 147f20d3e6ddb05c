package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agenthands/reelgraph/internal/core/model"
)

// MockGraph is an in-memory GraphPort.
type MockGraph struct {
	mu sync.Mutex

	Movies  []model.Movie
	Ratings map[int64][]model.Rating
	Adj     map[model.Node][]model.Neighbor
	Down    bool

	Calls map[string]int
}

func NewMockGraph() *MockGraph {
	return &MockGraph{
		Ratings: make(map[int64][]model.Rating),
		Adj:     make(map[model.Node][]model.Neighbor),
		Calls:   make(map[string]int),
	}
}

func (m *MockGraph) Link(kind model.EdgeKind, from, to model.Node) {
	e := model.Edge{Kind: kind, From: from, To: to}
	m.Adj[from] = append(m.Adj[from], model.Neighbor{Node: to, Edge: e})
	m.Adj[to] = append(m.Adj[to], model.Neighbor{Node: from, Edge: e})
}

func (m *MockGraph) call(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[op]++
	if m.Down {
		return &model.Error{Kind: model.ErrGraphUnavailable, Subject: op, Cause: fmt.Errorf("connection refused")}
	}
	return nil
}

func (m *MockGraph) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

func (m *MockGraph) UserRatings(ctx context.Context, userID int64) ([]model.Rating, error) {
	if err := m.call("user_ratings"); err != nil {
		return nil, err
	}
	return m.Ratings[userID], nil
}

func (m *MockGraph) CatalogTitles(ctx context.Context) ([]model.Movie, error) {
	if err := m.call("catalog"); err != nil {
		return nil, err
	}
	return m.Movies, nil
}

func (m *MockGraph) MovieByTitle(ctx context.Context, title string) ([]model.Movie, error) {
	if err := m.call("movie_by_title"); err != nil {
		return nil, err
	}
	var out []model.Movie
	for _, mv := range m.Movies {
		if mv.Title == title {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (m *MockGraph) Neighbors(ctx context.Context, node model.Node, limit int) ([]model.Neighbor, error) {
	if err := m.call("neighbors"); err != nil {
		return nil, err
	}
	nbs := m.Adj[node]
	if len(nbs) > limit {
		nbs = nbs[:limit]
	}
	return nbs, nil
}

func (m *MockGraph) RatedMovies(ctx context.Context, userID int64, limit int) ([]model.Rating, error) {
	if err := m.call("rated_movies"); err != nil {
		return nil, err
	}
	out := append([]model.Rating(nil), m.Ratings[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockGraph) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Down
}

type MockNarrator struct {
	Response string
	Err      error
	// FailFor makes Narrate fail for these movie ids.
	FailFor map[int64]bool
}

func (n *MockNarrator) Narrate(ctx context.Context, source model.Movie, c model.Candidate) (string, error) {
	if n.Err != nil {
		return "", n.Err
	}
	if n.FailFor[c.MovieID] {
		return "", fmt.Errorf("provider timeout")
	}
	return fmt.Sprintf(n.Response, source.Title, c.Title), nil
}

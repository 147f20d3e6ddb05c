// Package explain finds short relational paths between two movies through
// actors, directors and genres, and renders them as explanation sentences.
package explain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/logging"
	"github.com/agenthands/reelgraph/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type NeighborSource interface {
	// Neighbors returns at most limit nodes adjacent to node.
	Neighbors(ctx context.Context, node model.Node, limit int) ([]model.Neighbor, error)
}

const defaultSearchTimeout = 30 * time.Second

type Options struct {
	MaxHops     int
	FanOut      int
	CacheTTL    time.Duration
	Concurrency int

	// SearchTimeout bounds a shared path search, which outlives any single
	// caller's cancellation.
	SearchTimeout time.Duration
}

type Explainer struct {
	source NeighborSource
	opts   Options
	cache  *gocache.Cache
	group  singleflight.Group
}

func New(source NeighborSource, opts Options) *Explainer {
	if opts.MaxHops < 2 {
		opts.MaxHops = 2
	}
	if opts.FanOut < 1 {
		opts.FanOut = 50
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = defaultSearchTimeout
	}
	e := &Explainer{source: source, opts: opts}
	if opts.CacheTTL > 0 {
		e.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return e
}

// cached is a completed search outcome. err is nil or a NoConnection error;
// transient failures are never stored.
type cached struct {
	path *model.ExplanationPath
	err  error
}

// Path returns the shortest connector path from source to target, or a
// NoConnection error when none exists within the hop bound.
func (e *Explainer) Path(ctx context.Context, source, target model.Movie) (*model.ExplanationPath, error) {
	if source.MovieID == target.MovieID {
		return nil, model.Errorf(model.ErrNoConnection, "%q is the same movie", source.Title)
	}

	key := fmt.Sprintf("%d:%d", source.MovieID, target.MovieID)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			metrics.ExplainCache.WithLabelValues("hit").Inc()
			c := v.(*cached)
			return c.path, c.err
		}
		metrics.ExplainCache.WithLabelValues("miss").Inc()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := e.group.DoChan(key, func() (interface{}, error) {
		searchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.SearchTimeout)
		defer cancel()

		path, err := e.search(searchCtx, source.Node(), target.Node())
		if err != nil && !errors.Is(err, model.ErrNoConnection) {
			return nil, err
		}
		c := &cached{path: path, err: err}
		if e.cache != nil {
			e.cache.Set(key, c, gocache.DefaultExpiration)
		}
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		c := res.Val.(*cached)
		return c.path, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type visit struct {
	node   model.Node
	depth  int
	parent *visit
	edge   model.Edge
}

// search runs a breadth-first search from src over connector nodes. The
// neighbors of dst are fetched once so any frontier node adjacent to dst
// completes a path without fanning out over every movie of a connector.
// Children are queued in (kind priority, label) order, so the first path
// found is also the smallest under that order among the shortest ones.
func (e *Explainer) search(ctx context.Context, src, dst model.Node) (*model.ExplanationPath, error) {
	targetAdj, err := e.source.Neighbors(ctx, dst, e.opts.FanOut)
	if err != nil {
		return nil, err
	}
	intoTarget := make(map[model.Node]model.Edge, len(targetAdj))
	for _, nb := range targetAdj {
		intoTarget[nb.Node] = nb.Edge
	}

	visited := map[model.Node]bool{src: true, dst: true}
	queue := []*visit{{node: src}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]

		if edge, ok := intoTarget[cur.node]; ok && cur.depth+1 <= e.opts.MaxHops {
			return build(cur, dst, edge), nil
		}

		if cur.depth+2 > e.opts.MaxHops {
			continue
		}

		neighbors, err := e.source.Neighbors(ctx, cur.node, e.opts.FanOut)
		if err != nil {
			return nil, err
		}

		children := make([]model.Neighbor, 0, len(neighbors))
		for _, nb := range neighbors {
			if !nb.Node.Kind.Connector() || visited[nb.Node] {
				continue
			}
			children = append(children, nb)
		}
		sort.Slice(children, func(i, j int) bool {
			a, b := children[i].Node, children[j].Node
			if a.Kind.Priority() != b.Kind.Priority() {
				return a.Kind.Priority() < b.Kind.Priority()
			}
			return a.Label < b.Label
		})

		for _, nb := range children {
			if visited[nb.Node] {
				continue
			}
			visited[nb.Node] = true
			queue = append(queue, &visit{node: nb.Node, depth: cur.depth + 1, parent: cur, edge: nb.Edge})
		}
	}

	return nil, model.Errorf(model.ErrNoConnection, "%s and %s within %d hops", src.Label, dst.Label, e.opts.MaxHops)
}

func build(last *visit, dst model.Node, final model.Edge) *model.ExplanationPath {
	var nodes []model.Node
	var edges []model.Edge
	for v := last; v != nil; v = v.parent {
		nodes = append(nodes, v.node)
		if v.parent != nil {
			edges = append(edges, v.edge)
		}
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return &model.ExplanationPath{
		Nodes: append(nodes, dst),
		Edges: append(edges, final),
	}
}

// Explain returns the explanation sentence for recommending target to
// someone who liked source. It never fails: any search error degrades to
// the generic sentence and a nil path.
func (e *Explainer) Explain(ctx context.Context, source, target model.Movie) (string, *model.ExplanationPath) {
	path, err := e.Path(ctx, source, target)
	if err != nil {
		if !errors.Is(err, model.ErrNoConnection) {
			logging.Ctx(ctx).Warn().Err(err).
				Int64("source", source.MovieID).
				Int64("target", target.MovieID).
				Msg("explanation degraded to generic")
		}
		metrics.Explanations.WithLabelValues("generic").Inc()
		return Generic, nil
	}
	metrics.Explanations.WithLabelValues("path").Inc()
	return Render(path), path
}

// ExplainAll fills in Explanation and Path for every candidate, running up
// to Concurrency searches at once. One candidate's failure never affects
// the others.
func (e *Explainer) ExplainAll(ctx context.Context, source model.Movie, candidates []model.Candidate) {
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)

	for i := range candidates {
		i := i
		g.Go(func() error {
			target := model.Movie{MovieID: candidates[i].MovieID, Title: candidates[i].Title}
			candidates[i].Explanation, candidates[i].Path = e.Explain(ctx, source, target)
			return nil
		})
	}
	_ = g.Wait()
}

package core

import (
	"context"
	"errors"

	"github.com/agenthands/reelgraph/internal/config"
	"github.com/agenthands/reelgraph/internal/core/aggregate"
	"github.com/agenthands/reelgraph/internal/core/explain"
	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/core/rank"
	"github.com/agenthands/reelgraph/internal/core/search"
	"github.com/agenthands/reelgraph/internal/embedding"
	"github.com/agenthands/reelgraph/internal/logging"
	"github.com/agenthands/reelgraph/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRatedLimit = 20
	maxRatedLimit     = 100

	msgNoUnseen   = "There are no unseen embedded movies left to recommend."
	msgColdSeed   = "This movie has no embedding; recommendations are based on the actors, directors and genres it is linked to."
	msgColdNoSeed = "This movie has no embedding and none of its connected people or genres do either, so no recommendations can be made."
)

// Recommender is built once at startup and shared by every request. The
// embedding store may be nil, in which case recommendation calls fail with
// model.ErrModelNotLoaded and the graph-only operations keep working.
type Recommender struct {
	Graph    GraphPort
	Store    *embedding.Store
	Narrator Narrator

	ranker     *rank.Ranker
	aggregator *aggregate.Aggregator
	searcher   *search.Searcher
	explainer  *explain.Explainer

	fanOut      int
	concurrency int
}

func NewRecommender(graph GraphPort, store *embedding.Store, narrator Narrator, cfg *config.Config) *Recommender {
	r := &Recommender{
		Graph:    graph,
		Store:    store,
		Narrator: narrator,
		searcher: search.New(graph, search.Options{
			MinQuery:     cfg.Search.MinQuery,
			DefaultLimit: cfg.Search.DefaultLimit,
			MaxLimit:     cfg.Search.MaxLimit,
			CatalogTTL:   cfg.Search.CatalogTTL.Duration,
		}),
		explainer: explain.New(graph, explain.Options{
			MaxHops:     cfg.Explain.MaxHops,
			FanOut:      cfg.Explain.FanOut,
			CacheTTL:    cfg.Explain.CacheTTL.Duration,
			Concurrency: cfg.Explain.Concurrency,
		}),
		fanOut:      cfg.Explain.FanOut,
		concurrency: cfg.Explain.Concurrency,
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}

	if store != nil {
		r.ranker = rank.New(store, cfg.Recommend.DefaultN, cfg.Recommend.MaxN)
		r.aggregator = aggregate.New(graph, store, cfg.Recommend.Threshold)
	}

	return r
}

// RecommendForUser recommends n unseen movies from the user's rating history.
func (r *Recommender) RecommendForUser(ctx context.Context, userID int64, n int) (*model.Recommendation, error) {
	rec, err := r.recommendForUser(ctx, userID, n)
	observe("user", err)
	return rec, err
}

func (r *Recommender) recommendForUser(ctx context.Context, userID int64, n int) (*model.Recommendation, error) {
	if r.Store == nil {
		return nil, model.Errorf(model.ErrModelNotLoaded, "user %d", userID)
	}

	seed, err := r.aggregator.Seed(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(seed.Cold) > 0 {
		logging.Ctx(ctx).Debug().Int64("user_id", userID).Ints64("cold", seed.Cold).Msg("skipped cold rated movies")
	}

	catalog, err := r.searcher.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	scored := r.ranker.Rank(seed.Vector, seed.Exclude, n, catalog.Contains)
	return r.finish(ctx, seed.Source, scored, catalog), nil
}

// RecommendForMovie recommends n movies similar to the movie titled exactly
// title. A movie without an embedding falls back to the average vector of its
// embedded connectors.
func (r *Recommender) RecommendForMovie(ctx context.Context, title string, n int) (*model.Recommendation, error) {
	rec, err := r.recommendForMovie(ctx, title, n)
	observe("guest", err)
	return rec, err
}

func (r *Recommender) recommendForMovie(ctx context.Context, title string, n int) (*model.Recommendation, error) {
	if r.Store == nil {
		return nil, model.Errorf(model.ErrModelNotLoaded, "%q", title)
	}

	movie, err := r.searcher.Resolve(ctx, title)
	if err != nil {
		return nil, err
	}

	catalog, err := r.searcher.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	exclude := model.NewMovieSet(movie.MovieID)
	scored, err := r.ranker.RankFromNode(movie.Node(), exclude, n, catalog.Contains)
	if err == nil {
		return r.finish(ctx, movie, scored, catalog), nil
	}
	if !errors.Is(err, model.ErrColdSeed) {
		return nil, err
	}

	seed, err := r.connectorSeed(ctx, movie)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		return &model.Recommendation{
			SourceMovie: &movie,
			Candidates:  []model.Candidate{},
			Message:     msgColdNoSeed,
		}, nil
	}

	rec := r.finish(ctx, movie, r.ranker.Rank(seed, exclude, n, catalog.Contains), catalog)
	rec.Message = msgColdSeed
	return rec, nil
}

// connectorSeed averages the vectors of the movie's embedded connector
// nodes. It returns nil when none are embedded.
func (r *Recommender) connectorSeed(ctx context.Context, movie model.Movie) (embedding.Vector, error) {
	neighbors, err := r.Graph.Neighbors(ctx, movie.Node(), r.fanOut)
	if err != nil {
		return nil, err
	}

	var sum []float64
	count := 0
	for _, nb := range neighbors {
		if !nb.Node.Kind.Connector() {
			continue
		}
		vec, ok := r.Store.NodeVector(nb.Node)
		if !ok {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		for i, x := range vec {
			sum[i] += float64(x)
		}
		count++
	}
	if count == 0 {
		return nil, nil
	}

	seed := make(embedding.Vector, len(sum))
	for i := range sum {
		seed[i] = float32(sum[i] / float64(count))
	}
	return seed, nil
}

func (r *Recommender) finish(ctx context.Context, source model.Movie, scored []rank.Scored, catalog *search.Catalog) *model.Recommendation {
	candidates := make([]model.Candidate, 0, len(scored))
	for _, s := range scored {
		m, _ := catalog.Movie(s.MovieID)
		candidates = append(candidates, model.Candidate{
			MovieID:    s.MovieID,
			Title:      m.Title,
			Similarity: s.Similarity,
		})
	}

	r.explainer.ExplainAll(ctx, source, candidates)
	r.narrate(ctx, source, candidates)

	rec := &model.Recommendation{SourceMovie: &source, Candidates: candidates}
	if len(candidates) == 0 {
		rec.Message = msgNoUnseen
	}
	return rec
}

// narrate replaces template explanations with narrated ones where the
// narrator succeeds.
func (r *Recommender) narrate(ctx context.Context, source model.Movie, candidates []model.Candidate) {
	if r.Narrator == nil {
		return
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			text, err := r.Narrator.Narrate(ctx, source, candidates[i])
			if err != nil || text == "" {
				logging.Ctx(ctx).Debug().Err(err).Int64("movie_id", candidates[i].MovieID).Msg("narration skipped")
				return nil
			}
			candidates[i].Explanation = text
			return nil
		})
	}
	_ = g.Wait()
}

// SearchTitles is the guest-mode fuzzy title lookup.
func (r *Recommender) SearchTitles(ctx context.Context, query string, limit int) ([]model.TitleMatch, error) {
	return r.searcher.Search(ctx, query, limit)
}

// ExplainPath resolves both titles and returns the connecting path between
// them, or an error matching model.ErrNoConnection.
func (r *Recommender) ExplainPath(ctx context.Context, sourceTitle, targetTitle string) (*model.ExplanationPath, error) {
	source, err := r.searcher.Resolve(ctx, sourceTitle)
	if err != nil {
		return nil, err
	}
	target, err := r.searcher.Resolve(ctx, targetTitle)
	if err != nil {
		return nil, err
	}
	return r.explainer.Path(ctx, source, target)
}

// RatedMovies lists what a user has rated, most recent first.
func (r *Recommender) RatedMovies(ctx context.Context, userID int64, limit int) ([]model.Rating, error) {
	if limit <= 0 {
		limit = defaultRatedLimit
	}
	if limit > maxRatedLimit {
		limit = maxRatedLimit
	}

	ratings, err := r.Graph.RatedMovies(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(ratings) == 0 {
		return nil, model.Errorf(model.ErrUnknownUser, "user %d", userID)
	}
	return ratings, nil
}

func (r *Recommender) Diagnostics() model.Diagnostics {
	return model.Diagnostics{
		ModelLoaded:    r.Store != nil,
		GraphReachable: r.Graph != nil && r.Graph.Reachable(),
	}
}

func observe(mode string, err error) {
	metrics.Recommendations.WithLabelValues(mode, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return model.Code(err)
}

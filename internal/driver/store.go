package driver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/logging"
	"github.com/agenthands/reelgraph/internal/metrics"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	errQueryFailed  = errors.New("query failed")
	errConnectivity = errors.New("connection to graph failed")
)

type StoreOptions struct {
	QueryTimeout time.Duration
	RetryBackoff time.Duration
	// BreakerFailures consecutive failures open the breaker for BreakerOpenFor.
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
	BreakerHalfOpen uint32
}

// GraphStore is the read port over the movie knowledge graph. Every call is
// bounded by QueryTimeout, retried once after RetryBackoff, and guarded by a
// circuit breaker. Failures surface as model.ErrGraphUnavailable carrying
// only the operation name.
type GraphStore struct {
	driver    GraphDriver
	opts      StoreOptions
	breaker   *gobreaker.CircuitBreaker[neo4j.EagerResult]
	reachable atomic.Bool
	log       zerolog.Logger
}

func NewGraphStore(d GraphDriver, opts StoreOptions) *GraphStore {
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerHalfOpen == 0 {
		opts.BreakerHalfOpen = 1
	}

	s := &GraphStore{driver: d, opts: opts, log: logging.WithComponent("graph")}
	s.breaker = gobreaker.NewCircuitBreaker[neo4j.EagerResult](gobreaker.Settings{
		Name:        "neo4j",
		MaxRequests: opts.BreakerHalfOpen,
		Timeout:     opts.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("graph circuit breaker changed state")
		},
	})
	return s
}

// Reachable reports whether the most recent graph call succeeded.
func (s *GraphStore) Reachable() bool {
	return s.reachable.Load()
}

func (s *GraphStore) Ping(ctx context.Context) error {
	_, err := s.run(ctx, "ping", PingQuery, nil)
	return err
}

func (s *GraphStore) run(ctx context.Context, op, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	start := time.Now()
	defer func() {
		metrics.GraphQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	res, err := s.breaker.Execute(func() (neo4j.EagerResult, error) {
		res, err := s.attempt(ctx, query, params)
		if err == nil || ctx.Err() != nil {
			return res, err
		}

		select {
		case <-time.After(s.opts.RetryBackoff):
		case <-ctx.Done():
			return neo4j.EagerResult{}, ctx.Err()
		}
		return s.attempt(ctx, query, params)
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.reachable.Store(false)
		}
		metrics.GraphQueryErrors.WithLabelValues(op).Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("operation", op).Msg("graph query failed")
		return neo4j.EagerResult{}, &model.Error{Kind: model.ErrGraphUnavailable, Subject: op, Cause: sanitize(err)}
	}

	s.reachable.Store(true)
	return res, nil
}

func (s *GraphStore) attempt(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}
	return s.driver.ExecuteQuery(ctx, query, params)
}

// sanitize keeps the class of a failure and drops server messages, which
// may echo query text.
func sanitize(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return err
	case neo4j.IsConnectivityError(err):
		return errConnectivity
	default:
		return errQueryFailed
	}
}

func (s *GraphStore) MovieByTitle(ctx context.Context, title string) ([]model.Movie, error) {
	res, err := s.run(ctx, "movie_by_title", MovieByTitleQuery, map[string]interface{}{"title": title})
	if err != nil {
		return nil, err
	}
	return movies(res.Records), nil
}

func (s *GraphStore) CatalogTitles(ctx context.Context) ([]model.Movie, error) {
	res, err := s.run(ctx, "catalog", CatalogQuery, nil)
	if err != nil {
		return nil, err
	}
	return movies(res.Records), nil
}

func (s *GraphStore) UserRatings(ctx context.Context, userID int64) ([]model.Rating, error) {
	res, err := s.run(ctx, "user_ratings", UserRatingsQuery, map[string]interface{}{"userId": userID})
	if err != nil {
		return nil, err
	}
	return ratings(res.Records), nil
}

func (s *GraphStore) RatedMovies(ctx context.Context, userID int64, limit int) ([]model.Rating, error) {
	res, err := s.run(ctx, "rated_movies", RatedMoviesQuery, map[string]interface{}{"userId": userID, "limit": limit})
	if err != nil {
		return nil, err
	}
	return ratings(res.Records), nil
}

var connectorQueries = map[model.NodeKind]string{
	model.KindActor:    ActorMoviesQuery,
	model.KindDirector: DirectorMoviesQuery,
	model.KindGenre:    GenreMoviesQuery,
}

// Neighbors returns up to limit nodes adjacent to node over ACTED_IN,
// DIRECTED and HAS_GENRE edges. RATED edges are never followed.
func (s *GraphStore) Neighbors(ctx context.Context, node model.Node, limit int) ([]model.Neighbor, error) {
	if err := node.Validate(); err != nil {
		return nil, fmt.Errorf("neighbors: %w", err)
	}

	switch node.Kind {
	case model.KindMovie:
		res, err := s.run(ctx, "movie_neighbors", MovieNeighborsQuery, map[string]interface{}{
			"movieId": node.MovieID(),
			"limit":   limit,
		})
		if err != nil {
			return nil, err
		}
		return movieNeighbors(node, res.Records), nil

	case model.KindActor, model.KindDirector, model.KindGenre:
		res, err := s.run(ctx, "connector_neighbors", connectorQueries[node.Kind], map[string]interface{}{
			"name":  node.ID,
			"limit": limit,
		})
		if err != nil {
			return nil, err
		}
		return connectorNeighbors(node, res.Records), nil

	default:
		return nil, nil
	}
}

func movies(records []*neo4j.Record) []model.Movie {
	out := make([]model.Movie, 0, len(records))
	for _, rec := range records {
		m, ok := movieFromRecord(rec)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	return out
}

func ratings(records []*neo4j.Record) []model.Rating {
	out := make([]model.Rating, 0, len(records))
	for _, rec := range records {
		m, ok := movieFromRecord(rec)
		if !ok {
			continue
		}
		out = append(out, model.Rating{
			Movie:     m,
			Rating:    getFloat64FromRecord(rec, "rating"),
			Timestamp: getInt64FromRecord(rec, "timestamp"),
		})
	}
	return out
}

func movieNeighbors(movie model.Node, records []*neo4j.Record) []model.Neighbor {
	out := make([]model.Neighbor, 0, len(records))
	for _, rec := range records {
		rel := model.EdgeKind(getStringFromRecord(rec, "rel"))
		kind, ok := connectorKind(rel)
		if !ok {
			continue
		}
		n, err := model.NewNamed(kind, getStringFromRecord(rec, "name"))
		if err != nil || n.Validate() != nil {
			continue
		}
		out = append(out, model.Neighbor{Node: n, Edge: edgeFor(rel, movie, n)})
	}
	return out
}

func connectorNeighbors(connector model.Node, records []*neo4j.Record) []model.Neighbor {
	out := make([]model.Neighbor, 0, len(records))
	for _, rec := range records {
		m, ok := movieFromRecord(rec)
		if !ok {
			continue
		}
		rel := model.EdgeKind(getStringFromRecord(rec, "rel"))
		out = append(out, model.Neighbor{Node: m.Node(), Edge: edgeFor(rel, m.Node(), connector)})
	}
	return out
}

func connectorKind(rel model.EdgeKind) (model.NodeKind, bool) {
	switch rel {
	case model.EdgeActedIn:
		return model.KindActor, true
	case model.EdgeDirected:
		return model.KindDirector, true
	case model.EdgeHasGenre:
		return model.KindGenre, true
	default:
		return "", false
	}
}

// edgeFor orients an edge the way it is stored: Actor->Movie, Director->Movie
// and Movie->Genre.
func edgeFor(rel model.EdgeKind, movie, connector model.Node) model.Edge {
	if rel == model.EdgeHasGenre {
		return model.Edge{Kind: rel, From: movie, To: connector}
	}
	return model.Edge{Kind: rel, From: connector, To: movie}
}

func movieFromRecord(rec *neo4j.Record) (model.Movie, bool) {
	if v, ok := rec.Get("movieId"); !ok || v == nil {
		return model.Movie{}, false
	}
	n := model.NewMovie(getInt64FromRecord(rec, "movieId"), getStringFromRecord(rec, "title"))
	if n.Validate() != nil {
		return model.Movie{}, false
	}
	return model.Movie{MovieID: n.MovieID(), Title: n.Title()}, true
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0.0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0.0
}

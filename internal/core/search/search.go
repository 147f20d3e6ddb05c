// Package search implements guest-mode entry: fuzzy title lookup over the
// movie catalog and exact resolution of a chosen title to its movie.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/agenthands/reelgraph/internal/core/model"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	catalogKey          = "catalog"
	defaultFetchTimeout = 30 * time.Second
)

type Source interface {
	CatalogTitles(ctx context.Context) ([]model.Movie, error)
	MovieByTitle(ctx context.Context, title string) ([]model.Movie, error)
}

type Options struct {
	MinQuery     int
	DefaultLimit int
	MaxLimit     int
	CatalogTTL   time.Duration
	// FetchTimeout bounds a shared catalog fetch, which outlives any single
	// caller's cancellation.
	FetchTimeout time.Duration
}

// Catalog is an immutable snapshot of every movie id and title.
type Catalog struct {
	movies []model.Movie
	byID   map[int64]model.Movie
}

func NewCatalog(movies []model.Movie) *Catalog {
	c := &Catalog{
		movies: movies,
		byID:   make(map[int64]model.Movie, len(movies)),
	}
	for _, m := range movies {
		c.byID[m.MovieID] = m
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.movies)
}

func (c *Catalog) Movie(id int64) (model.Movie, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Contains reports whether id is a catalog movie; usable as a ranking filter.
func (c *Catalog) Contains(id int64) bool {
	_, ok := c.byID[id]
	return ok
}

type Searcher struct {
	source Source
	opts   Options
	cache  *gocache.Cache
	group  singleflight.Group
}

func New(source Source, opts Options) *Searcher {
	if opts.MinQuery < 1 {
		opts.MinQuery = 2
	}
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	return &Searcher{
		source: source,
		opts:   opts,
		cache:  gocache.New(opts.CatalogTTL, 2*opts.CatalogTTL+time.Minute),
	}
}

// Catalog returns the cached catalog snapshot, fetching it through the
// source when it has expired. Concurrent misses share one fetch; a caller
// that gives up does not cancel it for the others.
func (s *Searcher) Catalog(ctx context.Context) (*Catalog, error) {
	if v, ok := s.cache.Get(catalogKey); ok {
		return v.(*Catalog), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.group.DoChan(catalogKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.FetchTimeout)
		defer cancel()

		movies, err := s.source.CatalogTitles(fetchCtx)
		if err != nil {
			return nil, err
		}
		c := NewCatalog(movies)
		if s.opts.CatalogTTL > 0 {
			s.cache.Set(catalogKey, c, gocache.DefaultExpiration)
		}
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Catalog), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Search returns up to limit catalog titles matching query, best first.
// A query shorter than the minimum length yields no matches and no error.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]model.TitleMatch, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < s.opts.MinQuery {
		return []model.TitleMatch{}, nil
	}

	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}

	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	matches := Rank(query, catalog.movies)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Resolve maps an exact title to its movie. No match is UnknownMovie and
// more than one movie carrying the title is AmbiguousTitle.
func (s *Searcher) Resolve(ctx context.Context, title string) (model.Movie, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Movie{}, model.Errorf(model.ErrUnknownMovie, "empty title")
	}

	movies, err := s.source.MovieByTitle(ctx, title)
	if err != nil {
		return model.Movie{}, err
	}

	switch len(movies) {
	case 0:
		return model.Movie{}, model.Errorf(model.ErrUnknownMovie, "%q", title)
	case 1:
		return movies[0], nil
	default:
		ids := make([]int64, len(movies))
		for i, m := range movies {
			ids[i] = m.MovieID
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return model.Movie{}, model.Errorf(model.ErrAmbiguousTitle, "%q matches movies %v", title, ids)
	}
}

// Rank scores every movie against query and returns those above the fuzzy
// cutoff, ordered by score descending then title ascending.
func Rank(query string, movies []model.Movie) []model.TitleMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	matches := make([]model.TitleMatch, 0)
	for _, m := range movies {
		score := Score(q, m.Title)
		if score < MinFuzzyScore {
			continue
		}
		matches = append(matches, model.TitleMatch{MovieID: m.MovieID, Title: m.Title, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Title != matches[j].Title {
			return matches[i].Title < matches[j].Title
		}
		return matches[i].MovieID < matches[j].MovieID
	})
	return matches
}

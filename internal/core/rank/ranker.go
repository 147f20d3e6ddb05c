// Package rank scores catalog movies against a seed vector by cosine
// similarity in the embedding space.
package rank

import (
	"sort"

	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/embedding"
	"gonum.org/v1/gonum/blas/gonum"
)

var blas = gonum.Implementation{}

// Scored is one ranked movie.
type Scored struct {
	MovieID    int64
	Similarity float64
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either magnitude is zero.
// The result is clamped to [-1, 1] against float rounding.
func Cosine(a, b embedding.Vector) float64 {
	return cosine(a, a.Norm(), b, b.Norm())
}

func cosine(a embedding.Vector, na float64, b embedding.Vector, nb float64) float64 {
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	dot := float64(blas.Sdot(len(a), a, 1, b, 1))
	sim := dot / (na * nb)
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

type Ranker struct {
	store    *embedding.Store
	defaultN int
	maxN     int
}

func New(store *embedding.Store, defaultN, maxN int) *Ranker {
	return &Ranker{store: store, defaultN: defaultN, maxN: maxN}
}

// ClampN maps a requested result count into [1, maxN]; n <= 0 selects the
// default.
func (r *Ranker) ClampN(n int) int {
	if n <= 0 {
		n = r.defaultN
	}
	if n > r.maxN {
		n = r.maxN
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Rank returns the top n embedded movies most similar to seed, skipping ids
// in exclude and, when eligible is non-nil, ids it rejects. Order is by
// similarity descending then movie id ascending. An empty pool yields an
// empty slice.
func (r *Ranker) Rank(seed embedding.Vector, exclude model.MovieSet, n int, eligible func(int64) bool) []Scored {
	n = r.ClampN(n)
	seedNorm := seed.Norm()

	movies := r.store.Movies()
	pool := make([]Scored, 0, len(movies))
	for _, m := range movies {
		if exclude.Has(m.MovieID) {
			continue
		}
		if eligible != nil && !eligible(m.MovieID) {
			continue
		}
		pool = append(pool, Scored{
			MovieID:    m.MovieID,
			Similarity: cosine(seed, seedNorm, m.Vector, m.Norm),
		})
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Similarity != pool[j].Similarity {
			return pool[i].Similarity > pool[j].Similarity
		}
		return pool[i].MovieID < pool[j].MovieID
	})

	if len(pool) > n {
		pool = pool[:n]
	}
	return pool
}

// RankFromNode ranks against the stored vector of node. A node without a
// vector is a cold seed.
func (r *Ranker) RankFromNode(node model.Node, exclude model.MovieSet, n int, eligible func(int64) bool) ([]Scored, error) {
	seed, ok := r.store.NodeVector(node)
	if !ok {
		return nil, model.Errorf(model.ErrColdSeed, "%s", node.Key())
	}
	return r.Rank(seed, exclude, n, eligible), nil
}

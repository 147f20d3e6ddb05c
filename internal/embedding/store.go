// Package embedding holds the precomputed node2vec vectors of the knowledge
// graph. A Store is built once and never mutated, so concurrent readers need
// no locking.
package embedding

import (
	"fmt"
	"math"
	"sort"

	"github.com/agenthands/reelgraph/internal/core/model"
	"gonum.org/v1/gonum/blas/gonum"
)

var blas = gonum.Implementation{}

// Vector is a fixed-dimension embedding.
type Vector []float32

// Norm is the euclidean magnitude of v.
func (v Vector) Norm() float64 {
	if len(v) == 0 {
		return 0
	}
	return float64(blas.Snrm2(len(v), v, 1))
}

// MovieVector is the embedding of one Movie node.
type MovieVector struct {
	MovieID int64
	Vector  Vector
	Norm    float64
}

type Store struct {
	dim     int
	vectors map[string]Vector
	movies  []MovieVector
}

// New validates entries and builds a store. Every vector must have exactly
// dim finite components.
func New(dim int, entries map[string]Vector) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dim)
	}

	s := &Store{
		dim:     dim,
		vectors: make(map[string]Vector, len(entries)),
	}

	for key, vec := range entries {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector %q has %d dimensions, want %d", key, len(vec), dim)
		}
		for i, x := range vec {
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("vector %q has non-finite component at %d", key, i)
			}
		}
		s.vectors[key] = vec

		if id, ok := model.ParseMovieKey(key); ok {
			s.movies = append(s.movies, MovieVector{MovieID: id, Vector: vec, Norm: vec.Norm()})
		}
	}

	sort.Slice(s.movies, func(i, j int) bool {
		return s.movies[i].MovieID < s.movies[j].MovieID
	})

	return s, nil
}

func (s *Store) Dim() int {
	return s.dim
}

func (s *Store) Len() int {
	return len(s.vectors)
}

// VectorOf returns the vector stored under an embedding key such as
// "movie_1". A missing key is a cold node, not an error.
func (s *Store) VectorOf(key string) (Vector, bool) {
	v, ok := s.vectors[key]
	return v, ok
}

// NodeVector is VectorOf(n.Key()).
func (s *Store) NodeVector(n model.Node) (Vector, bool) {
	return s.VectorOf(n.Key())
}

// MovieVector looks a movie up by id.
func (s *Store) MovieVector(movieID int64) (Vector, bool) {
	return s.VectorOf(model.MovieKey(movieID))
}

// Movies lists every embedded movie in ascending id order. The slice is
// shared and must not be modified.
func (s *Store) Movies() []MovieVector {
	return s.movies
}

package rank

import (
	"errors"
	"testing"

	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, entries map[string]embedding.Vector) *embedding.Store {
	t.Helper()
	s, err := embedding.New(2, entries)
	require.NoError(t, err)
	return s
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine(embedding.Vector{1, 0}, embedding.Vector{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine(embedding.Vector{1, 0}, embedding.Vector{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine(embedding.Vector{1, 1}, embedding.Vector{-1, -1}), 1e-6)
	assert.Equal(t, 0.0, Cosine(embedding.Vector{0, 0}, embedding.Vector{1, 0}))
}

func TestRankOrderAndExclusion(t *testing.T) {
	s := newStore(t, map[string]embedding.Vector{
		"movie_1": {1, 0},
		"movie_2": {0.9, 0.1},
		"movie_3": {0.9, 0.1},
		"movie_4": {0, 1},
		"movie_5": {-1, 0},
		"actor_X": {1, 0},
	})
	r := New(s, 5, 10)

	got := r.Rank(embedding.Vector{1, 0}, model.NewMovieSet(1), 10, nil)
	ids := make([]int64, len(got))
	for i, c := range got {
		ids[i] = c.MovieID
	}

	assert.Equal(t, []int64{2, 3, 4, 5}, ids, "ties break by ascending id; non-movie keys are not candidates")
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Similarity, got[i].Similarity)
	}
	for _, c := range got {
		assert.GreaterOrEqual(t, c.Similarity, -1.0)
		assert.LessOrEqual(t, c.Similarity, 1.0)
	}
}

func TestRankDeterministic(t *testing.T) {
	s := newStore(t, map[string]embedding.Vector{
		"movie_1": {1, 1}, "movie_2": {1, 1}, "movie_3": {1, 1}, "movie_4": {0.5, 1},
	})
	r := New(s, 5, 10)

	first := r.Rank(embedding.Vector{1, 1}, nil, 3, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, r.Rank(embedding.Vector{1, 1}, nil, 3, nil))
	}
	assert.Equal(t, int64(1), first[0].MovieID)
}

func TestRankEmptyPool(t *testing.T) {
	s := newStore(t, map[string]embedding.Vector{"movie_1": {1, 0}})
	r := New(s, 5, 10)

	got := r.Rank(embedding.Vector{1, 0}, model.NewMovieSet(1), 5, nil)
	assert.Empty(t, got)
}

func TestRankEligible(t *testing.T) {
	s := newStore(t, map[string]embedding.Vector{"movie_1": {1, 0}, "movie_2": {1, 0}})
	r := New(s, 5, 10)

	got := r.Rank(embedding.Vector{1, 0}, nil, 5, func(id int64) bool { return id != 1 })
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].MovieID)
}

func TestClampN(t *testing.T) {
	r := New(nil, 5, 10)
	assert.Equal(t, 5, r.ClampN(0))
	assert.Equal(t, 5, r.ClampN(-3))
	assert.Equal(t, 1, r.ClampN(1))
	assert.Equal(t, 10, r.ClampN(50))
}

func TestRankFromNodeColdSeed(t *testing.T) {
	s := newStore(t, map[string]embedding.Vector{"movie_1": {1, 0}, "movie_2": {0, 1}})
	r := New(s, 5, 10)

	_, err := r.RankFromNode(model.NewMovie(99, "Cold (2020)"), nil, 5, nil)
	assert.True(t, errors.Is(err, model.ErrColdSeed))

	got, err := r.RankFromNode(model.NewMovie(1, "Warm (2020)"), model.NewMovieSet(1), 5, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].MovieID)
}

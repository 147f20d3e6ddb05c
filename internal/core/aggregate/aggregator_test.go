package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRatings struct {
	ratings map[int64][]model.Rating
	err     error
}

func (m *mockRatings) UserRatings(ctx context.Context, userID int64) ([]model.Rating, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ratings[userID], nil
}

type mockVectors map[int64]embedding.Vector

func (m mockVectors) MovieVector(id int64) (embedding.Vector, bool) {
	v, ok := m[id]
	return v, ok
}

func rating(id int64, title string, r float64, ts int64) model.Rating {
	return model.Rating{Movie: model.Movie{MovieID: id, Title: title}, Rating: r, Timestamp: ts}
}

func TestSeedThresholdAndExclusion(t *testing.T) {
	src := &mockRatings{ratings: map[int64][]model.Rating{
		42: {
			rating(1, "Movie A", 5.0, 100),
			rating(2, "Movie B", 3.0, 200),
			rating(3, "Movie C", 4.5, 300),
		},
	}}
	vecs := mockVectors{1: {1, 0}, 2: {0, 1}, 3: {0, 1}}

	seed, err := New(src, vecs, 4.0).Seed(context.Background(), 42)
	require.NoError(t, err)

	var qualifying []int64
	for _, r := range seed.Qualifying {
		qualifying = append(qualifying, r.Movie.MovieID)
	}
	assert.ElementsMatch(t, []int64{1, 3}, qualifying)
	assert.Equal(t, model.NewMovieSet(1, 2, 3), seed.Exclude)
	assert.Equal(t, int64(1), seed.Source.MovieID)

	// (5*[1,0] + 4.5*[0,1]) / 9.5
	assert.InDelta(t, 5.0/9.5, seed.Vector[0], 1e-6)
	assert.InDelta(t, 4.5/9.5, seed.Vector[1], 1e-6)
}

func TestSeedFallsBackToHighestRated(t *testing.T) {
	src := &mockRatings{ratings: map[int64][]model.Rating{
		7: {
			rating(10, "Low", 2.0, 100),
			rating(11, "Best Old", 3.5, 100),
			rating(12, "Best New", 3.5, 500),
		},
	}}
	vecs := mockVectors{10: {1, 1}, 11: {1, 0}, 12: {0, 2}}

	seed, err := New(src, vecs, 4.0).Seed(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, seed.Qualifying, 1)
	assert.Equal(t, int64(12), seed.Qualifying[0].Movie.MovieID, "ties break by most recent rating")
	assert.Equal(t, int64(12), seed.Source.MovieID)
	assert.Equal(t, embedding.Vector{0, 2}, seed.Vector)
	assert.Len(t, seed.Exclude, 3)
}

func TestSeedSourceTieBreaksByLowestID(t *testing.T) {
	src := &mockRatings{ratings: map[int64][]model.Rating{
		1: {rating(9, "Nine", 5, 100), rating(4, "Four", 5, 100)},
	}}
	seed, err := New(src, mockVectors{4: {1}, 9: {1}}, 4.0).Seed(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), seed.Source.MovieID)
}

func TestSeedSkipsColdMovies(t *testing.T) {
	src := &mockRatings{ratings: map[int64][]model.Rating{
		5: {rating(1, "Warm", 4.0, 1), rating(2, "Cold", 5.0, 2)},
	}}

	seed, err := New(src, mockVectors{1: {3, 4}}, 4.0).Seed(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, seed.Cold)
	assert.Equal(t, embedding.Vector{3, 4}, seed.Vector)
	assert.Equal(t, int64(2), seed.Source.MovieID, "source is chosen from ratings, not from embedded movies")
}

func TestSeedErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(&mockRatings{}, mockVectors{}, 4.0).Seed(ctx, 404)
	assert.True(t, errors.Is(err, model.ErrUnknownUser))
	assert.Contains(t, err.Error(), "404")

	src := &mockRatings{ratings: map[int64][]model.Rating{3: {rating(1, "Cold", 5, 1)}}}
	_, err = New(src, mockVectors{}, 4.0).Seed(ctx, 3)
	assert.True(t, errors.Is(err, model.ErrInsufficientHistory))

	down := &model.Error{Kind: model.ErrGraphUnavailable, Subject: "user ratings"}
	_, err = New(&mockRatings{err: down}, mockVectors{}, 4.0).Seed(ctx, 3)
	assert.True(t, errors.Is(err, model.ErrGraphUnavailable))
}

func TestSeedZeroWeightsAverageUnweighted(t *testing.T) {
	src := &mockRatings{ratings: map[int64][]model.Rating{
		8: {rating(1, "A", 0, 1), rating(2, "B", 0, 2)},
	}}

	seed, err := New(src, mockVectors{1: {2, 0}, 2: {0, 2}}, 0).Seed(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, embedding.Vector{1, 1}, seed.Vector)
}

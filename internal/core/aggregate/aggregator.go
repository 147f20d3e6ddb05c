// Package aggregate turns a user's rating history into a seed vector for
// ranking.
package aggregate

import (
	"context"
	"sort"

	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/embedding"
)

type RatingSource interface {
	UserRatings(ctx context.Context, userID int64) ([]model.Rating, error)
}

type VectorSource interface {
	MovieVector(movieID int64) (embedding.Vector, bool)
}

// Seed is what the ranker needs for one user-mode request.
type Seed struct {
	Vector embedding.Vector
	// Exclude holds every movie the user has rated.
	Exclude model.MovieSet
	// Source is the user's highest-rated movie, shown as context.
	Source model.Movie
	// Qualifying are the movies that passed the threshold, in rating order.
	Qualifying []model.Rating
	// Cold are qualifying movies skipped for lack of a vector.
	Cold []int64
}

type Aggregator struct {
	ratings   RatingSource
	vectors   VectorSource
	threshold float64
}

func New(ratings RatingSource, vectors VectorSource, threshold float64) *Aggregator {
	return &Aggregator{ratings: ratings, vectors: vectors, threshold: threshold}
}

// Seed builds the rating-weighted average of the vectors of the user's
// qualifying movies. Qualifying means rated at or above the threshold; when
// nothing qualifies the single highest-rated movie is used instead.
func (a *Aggregator) Seed(ctx context.Context, userID int64) (*Seed, error) {
	ratings, err := a.ratings.UserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ratings) == 0 {
		return nil, model.Errorf(model.ErrUnknownUser, "user %d", userID)
	}

	ordered := make([]model.Rating, len(ratings))
	copy(ordered, ratings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return better(ordered[i], ordered[j])
	})

	seed := &Seed{
		Exclude: model.NewMovieSet(),
		Source:  ordered[0].Movie,
	}
	for _, r := range ordered {
		seed.Exclude.Add(r.Movie.MovieID)
		if r.Rating >= a.threshold {
			seed.Qualifying = append(seed.Qualifying, r)
		}
	}
	if len(seed.Qualifying) == 0 {
		seed.Qualifying = ordered[:1]
	}

	var (
		weighted   []float64
		unweighted []float64
		weightSum  float64
		embedded   int
	)
	for _, r := range seed.Qualifying {
		vec, ok := a.vectors.MovieVector(r.Movie.MovieID)
		if !ok {
			seed.Cold = append(seed.Cold, r.Movie.MovieID)
			continue
		}
		if weighted == nil {
			weighted = make([]float64, len(vec))
			unweighted = make([]float64, len(vec))
		}
		for i, x := range vec {
			weighted[i] += r.Rating * float64(x)
			unweighted[i] += float64(x)
		}
		weightSum += r.Rating
		embedded++
	}

	if embedded == 0 {
		return nil, model.Errorf(model.ErrInsufficientHistory, "user %d", userID)
	}

	sum, div := weighted, weightSum
	if weightSum <= 0 {
		sum, div = unweighted, float64(embedded)
	}
	seed.Vector = make(embedding.Vector, len(sum))
	for i := range sum {
		seed.Vector[i] = float32(sum[i] / div)
	}

	return seed, nil
}

// better orders ratings highest first, then most recent, then lowest id.
func better(a, b model.Rating) bool {
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	return a.Movie.MovieID < b.Movie.MovieID
}

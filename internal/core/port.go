package core

import (
	"context"

	"github.com/agenthands/reelgraph/internal/core/aggregate"
	"github.com/agenthands/reelgraph/internal/core/explain"
	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/core/search"
)

// GraphPort is the read-only view of the knowledge graph the recommender
// needs. Implementations only emit valid nodes and report failures as
// model.ErrGraphUnavailable.
type GraphPort interface {
	aggregate.RatingSource
	search.Source
	explain.NeighborSource

	// RatedMovies lists a user's ratings, most recent first.
	RatedMovies(ctx context.Context, userID int64, limit int) ([]model.Rating, error)
	// Reachable reports the outcome of the most recent graph call.
	Reachable() bool
}

// Narrator rephrases a candidate's template explanation. Optional.
type Narrator interface {
	Narrate(ctx context.Context, source model.Movie, candidate model.Candidate) (string, error)
}

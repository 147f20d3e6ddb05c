//go:build integration

package integration

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/agenthands/reelgraph/internal/config"
	"github.com/agenthands/reelgraph/internal/core"
	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/driver"
	"github.com/agenthands/reelgraph/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
)

const adminPassword = "reelgraph-test"

var boltURL string

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcneo4j.Run(ctx, "neo4j:5", tcneo4j.WithAdminPassword(adminPassword))
	if err != nil {
		log.Fatalf("error starting neo4j container: %v", err)
	}

	boltURL, err = container.BoltUrl(ctx)
	if err != nil {
		log.Fatalf("error getting bolt url: %v", err)
	}
	if err := seed(ctx); err != nil {
		log.Fatalf("error seeding graph: %v", err)
	}

	code := m.Run()

	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Printf("error terminating neo4j container: %v", err)
	}
	os.Exit(code)
}

const seedQuery = `
	CREATE (toy:Movie {movieId: 1, title: 'Toy Story (1995)'})
	CREATE (jum:Movie {movieId: 2, title: 'Jumanji (1995)'})
	CREATE (toy2:Movie {movieId: 3, title: 'Toy Story 2 (1999)'})
	CREATE (heat:Movie {movieId: 4, title: 'Heat (1995)'})
	CREATE (casino:Movie {movieId: 5, title: 'Casino (1995)'})
	CREATE (hanks:Actor {name: 'Tom Hanks'})
	CREATE (deniro:Actor {name: 'Robert De Niro'})
	CREATE (lasseter:Director {name: 'John Lasseter'})
	CREATE (animation:Genre {name: 'Animation'})
	CREATE (crime:Genre {name: 'Crime'})
	CREATE (adventure:Genre {name: 'Adventure'})
	CREATE (hanks)-[:ACTED_IN]->(toy), (hanks)-[:ACTED_IN]->(toy2)
	CREATE (deniro)-[:ACTED_IN]->(heat), (deniro)-[:ACTED_IN]->(casino)
	CREATE (lasseter)-[:DIRECTED]->(toy), (lasseter)-[:DIRECTED]->(toy2)
	CREATE (toy)-[:HAS_GENRE]->(animation), (toy2)-[:HAS_GENRE]->(animation)
	CREATE (heat)-[:HAS_GENRE]->(crime), (casino)-[:HAS_GENRE]->(crime)
	CREATE (jum)-[:HAS_GENRE]->(adventure)
	CREATE (u:User {userId: 1})
	CREATE (u)-[:RATED {rating: 5.0, timestamp: 100}]->(toy)
	CREATE (u)-[:RATED {rating: 2.0, timestamp: 200}]->(heat)
`

func seed(ctx context.Context) error {
	d, err := driver.NewNeo4jDriver(boltURL, "neo4j", adminPassword, "neo4j")
	if err != nil {
		return err
	}
	defer d.Close(ctx)

	deadline := time.Now().Add(time.Minute)
	for {
		err = d.VerifyConnectivity(ctx)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return err
	}

	_, err = d.ExecuteQuery(ctx, seedQuery, nil)
	return err
}

func newStore(t *testing.T) *driver.GraphStore {
	t.Helper()
	d, err := driver.NewNeo4jDriver(boltURL, "neo4j", adminPassword, "neo4j")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	return driver.NewGraphStore(d, driver.StoreOptions{
		QueryTimeout:   5 * time.Second,
		RetryBackoff:   100 * time.Millisecond,
		BreakerOpenFor: time.Second,
	})
}

func TestGraphStore(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Ping(ctx))
	assert.True(t, s.Reachable())

	movies, err := s.MovieByTitle(ctx, "Toy Story (1995)")
	require.NoError(t, err)
	assert.Equal(t, []model.Movie{{MovieID: 1, Title: "Toy Story (1995)"}}, movies)

	catalog, err := s.CatalogTitles(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 5)

	ratings, err := s.UserRatings(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ratings, 2)
	assert.Equal(t, 5.0, ratings[0].Rating)
	assert.Equal(t, int64(100), ratings[0].Timestamp)

	rated, err := s.RatedMovies(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, rated, 1)
	assert.Equal(t, "Heat (1995)", rated[0].Movie.Title)

	neighbors, err := s.Neighbors(ctx, model.NewMovie(1, "Toy Story (1995)"), 50)
	require.NoError(t, err)
	require.Len(t, neighbors, 3)
	assert.Equal(t, model.NewActor("Tom Hanks"), neighbors[0].Node)
	assert.Equal(t, model.NewDirector("John Lasseter"), neighbors[1].Node)
	assert.Equal(t, model.NewGenre("Animation"), neighbors[2].Node)

	films, err := s.Neighbors(ctx, model.NewActor("Robert De Niro"), 50)
	require.NoError(t, err)
	assert.Len(t, films, 2)
}

func TestRecommenderEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	store, err := embedding.New(2, map[string]embedding.Vector{
		"movie_1": {1, 0},
		"movie_2": {0.2, 1},
		"movie_3": {1, 0.1},
		"movie_4": {0, 1},
		"movie_5": {0.1, 1},
	})
	require.NoError(t, err)
	r := core.NewRecommender(s, store, nil, config.Default())

	rec, err := r.RecommendForUser(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "Toy Story (1995)", rec.SourceMovie.Title)
	require.Len(t, rec.Candidates, 3)
	assert.Equal(t, int64(3), rec.Candidates[0].MovieID)
	assert.Equal(t, "Because both feature Tom Hanks.", rec.Candidates[0].Explanation)
	for _, c := range rec.Candidates {
		assert.NotContains(t, []int64{1, 4}, c.MovieID)
	}

	guest, err := r.RecommendForMovie(ctx, "Heat (1995)", 1)
	require.NoError(t, err)
	require.Len(t, guest.Candidates, 1)
	assert.Equal(t, int64(5), guest.Candidates[0].MovieID)
	assert.Equal(t, "Because both feature Robert De Niro.", guest.Candidates[0].Explanation)

	path, err := r.ExplainPath(ctx, "Toy Story (1995)", "Jumanji (1995)")
	assert.Nil(t, path)
	assert.True(t, errors.Is(err, model.ErrNoConnection))

	matches, err := r.SearchTitles(ctx, "toy story", 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Toy Story (1995)", matches[0].Title)

	_, err = r.RecommendForUser(ctx, 99, 3)
	assert.True(t, errors.Is(err, model.ErrUnknownUser))

	assert.Equal(t, model.Diagnostics{ModelLoaded: true, GraphReachable: true}, r.Diagnostics())
}

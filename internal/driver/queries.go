package driver

// All queries are read-only.
const (
	PingQuery = `RETURN 1 AS ok`

	MovieByTitleQuery = `
		MATCH (m:Movie {title: $title})
		RETURN m.movieId AS movieId, m.title AS title
		ORDER BY m.movieId
	`

	CatalogQuery = `
		MATCH (m:Movie)
		WHERE m.title IS NOT NULL
		RETURN m.movieId AS movieId, m.title AS title
		ORDER BY m.movieId
	`

	UserRatingsQuery = `
		MATCH (u:User {userId: $userId})-[r:RATED]->(m:Movie)
		RETURN m.movieId AS movieId, m.title AS title, r.rating AS rating, r.timestamp AS timestamp
		ORDER BY m.movieId
	`

	RatedMoviesQuery = `
		MATCH (u:User {userId: $userId})-[r:RATED]->(m:Movie)
		RETURN m.movieId AS movieId, m.title AS title, r.rating AS rating, r.timestamp AS timestamp
		ORDER BY r.timestamp DESC, m.movieId
		LIMIT $limit
	`

	// MovieNeighborsQuery lists the connectors of a movie, actors first,
	// then directors, then genres, each by name.
	MovieNeighborsQuery = `
		MATCH (m:Movie {movieId: $movieId})-[r:ACTED_IN|DIRECTED|HAS_GENRE]-(n)
		WHERE n.name IS NOT NULL
		WITH n, type(r) AS rel,
			CASE type(r) WHEN 'ACTED_IN' THEN 0 WHEN 'DIRECTED' THEN 1 ELSE 2 END AS priority
		RETURN DISTINCT rel, n.name AS name, priority
		ORDER BY priority, name
		LIMIT $limit
	`

	ActorMoviesQuery = `
		MATCH (:Actor {name: $name})-[r:ACTED_IN]->(m:Movie)
		RETURN m.movieId AS movieId, m.title AS title, type(r) AS rel
		ORDER BY m.movieId
		LIMIT $limit
	`

	DirectorMoviesQuery = `
		MATCH (:Director {name: $name})-[r:DIRECTED]->(m:Movie)
		RETURN m.movieId AS movieId, m.title AS title, type(r) AS rel
		ORDER BY m.movieId
		LIMIT $limit
	`

	GenreMoviesQuery = `
		MATCH (m:Movie)-[r:HAS_GENRE]->(:Genre {name: $name})
		RETURN m.movieId AS movieId, m.title AS title, type(r) AS rel
		ORDER BY m.movieId
		LIMIT $limit
	`
)

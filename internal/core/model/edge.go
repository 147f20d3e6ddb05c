package model

type EdgeKind string

const (
	EdgeActedIn  EdgeKind = "ACTED_IN"
	EdgeDirected EdgeKind = "DIRECTED"
	EdgeHasGenre EdgeKind = "HAS_GENRE"
	EdgeRated    EdgeKind = "RATED"
)

// Edge is a relation between two nodes, oriented the way it is stored.
// RATED edges are read as Rating values instead.
type Edge struct {
	Kind EdgeKind `json:"kind"`
	From Node     `json:"from"`
	To   Node     `json:"to"`
}

// Rating is one RATED edge of a user, flattened.
type Rating struct {
	Movie     Movie   `json:"movie"`
	Rating    float64 `json:"rating"`
	Timestamp int64   `json:"timestamp"`
}

// Neighbor is a node adjacent to the node a neighbor fetch was issued for,
// with the edge that connects them.
type Neighbor struct {
	Node Node `json:"node"`
	Edge Edge `json:"edge"`
}

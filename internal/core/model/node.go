package model

import (
	"fmt"
	"strconv"
	"strings"
)

type NodeKind string

const (
	KindMovie    NodeKind = "Movie"
	KindActor    NodeKind = "Actor"
	KindDirector NodeKind = "Director"
	KindGenre    NodeKind = "Genre"
	KindUser     NodeKind = "User"
)

// Connector reports whether nodes of this kind may sit between two movies
// in an explanation path.
func (k NodeKind) Connector() bool {
	return k == KindActor || k == KindDirector || k == KindGenre
}

// Priority orders connectors for explanation tie-breaks: actors first, then
// directors, then genres. Non-connectors sort last.
func (k NodeKind) Priority() int {
	switch k {
	case KindActor:
		return 0
	case KindDirector:
		return 1
	case KindGenre:
		return 2
	default:
		return 3
	}
}

// Node is a knowledge graph vertex. Construct it with the per-kind
// constructors; the zero value is not a valid node.
type Node struct {
	Kind  NodeKind `json:"kind"`
	ID    string   `json:"id"`
	Label string   `json:"label"`
}

func NewMovie(movieID int64, title string) Node {
	return Node{Kind: KindMovie, ID: strconv.FormatInt(movieID, 10), Label: title}
}

func NewActor(name string) Node {
	return Node{Kind: KindActor, ID: name, Label: name}
}

func NewDirector(name string) Node {
	return Node{Kind: KindDirector, ID: name, Label: name}
}

func NewGenre(name string) Node {
	return Node{Kind: KindGenre, ID: name, Label: name}
}

func NewUser(userID int64) Node {
	id := strconv.FormatInt(userID, 10)
	return Node{Kind: KindUser, ID: id, Label: "User " + id}
}

// NewNamed builds an Actor, Director or Genre node from a label name as
// returned by the graph.
func NewNamed(kind NodeKind, name string) (Node, error) {
	switch kind {
	case KindActor:
		return NewActor(name), nil
	case KindDirector:
		return NewDirector(name), nil
	case KindGenre:
		return NewGenre(name), nil
	default:
		return Node{}, fmt.Errorf("%s is not a named node kind", kind)
	}
}

// Validate enforces the per-variant required fields.
func (n Node) Validate() error {
	switch n.Kind {
	case KindMovie:
		if _, err := strconv.ParseInt(n.ID, 10, 64); err != nil {
			return fmt.Errorf("movie node has non-numeric id %q", n.ID)
		}
		if n.Label == "" {
			return fmt.Errorf("movie %s has no title", n.ID)
		}
	case KindUser:
		if _, err := strconv.ParseInt(n.ID, 10, 64); err != nil {
			return fmt.Errorf("user node has non-numeric id %q", n.ID)
		}
	case KindActor, KindDirector, KindGenre:
		if n.ID == "" {
			return fmt.Errorf("%s node has no name", n.Kind)
		}
	default:
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
	return nil
}

// MovieID returns the numeric id of a Movie node.
func (n Node) MovieID() int64 {
	id, _ := strconv.ParseInt(n.ID, 10, 64)
	return id
}

// Title is the display title of a Movie node.
func (n Node) Title() string {
	return n.Label
}

// Key is the node identity used by the embedding artifact, e.g. "movie_1"
// or "actor_Tom Hanks".
func (n Node) Key() string {
	return strings.ToLower(string(n.Kind)) + "_" + n.ID
}

// MovieKey is the embedding key of a movie id.
func MovieKey(movieID int64) string {
	return "movie_" + strconv.FormatInt(movieID, 10)
}

// ParseMovieKey extracts the movie id from an embedding key. ok is false for
// keys of any other node kind.
func ParseMovieKey(key string) (int64, bool) {
	rest, found := strings.CutPrefix(key, "movie_")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

type Movie struct {
	MovieID int64  `json:"movie_id"`
	Title   string `json:"title"`
}

func (m Movie) Node() Node {
	return NewMovie(m.MovieID, m.Title)
}

// MovieSet is a set of movie ids.
type MovieSet map[int64]struct{}

func NewMovieSet(ids ...int64) MovieSet {
	s := make(MovieSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s MovieSet) Add(id int64) {
	s[id] = struct{}{}
}

func (s MovieSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

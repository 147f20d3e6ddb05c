package model

// Candidate is one recommended movie with its score and explanation.
type Candidate struct {
	MovieID     int64            `json:"movie_id"`
	Title       string           `json:"title"`
	Similarity  float64          `json:"similarity"`
	Explanation string           `json:"explanation"`
	Path        *ExplanationPath `json:"path,omitempty"`
}

// Recommendation is the answer to a user-mode or guest-mode request.
type Recommendation struct {
	SourceMovie *Movie      `json:"source_movie"`
	Candidates  []Candidate `json:"recommendations"`
	Message     string      `json:"message,omitempty"`
}

// TitleMatch is a fuzzy search hit.
type TitleMatch struct {
	MovieID int64   `json:"movie_id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
}

// ExplanationPath alternates nodes and edges from the source movie to the
// target movie: len(Edges) == len(Nodes)-1.
type ExplanationPath struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (p *ExplanationPath) Hops() int {
	return len(p.Edges)
}

func (p *ExplanationPath) Source() Node {
	return p.Nodes[0]
}

func (p *ExplanationPath) Target() Node {
	return p.Nodes[len(p.Nodes)-1]
}

// Connectors are the nodes strictly between the endpoints.
func (p *ExplanationPath) Connectors() []Node {
	if len(p.Nodes) <= 2 {
		return nil
	}
	return p.Nodes[1 : len(p.Nodes)-1]
}

// Diagnostics reports readiness of the process-wide collaborators.
type Diagnostics struct {
	ModelLoaded    bool `json:"model_loaded"`
	GraphReachable bool `json:"graph_reachable"`
}

package explain

import (
	"fmt"
	"strings"

	"github.com/agenthands/reelgraph/internal/core/model"
)

// Generic is used whenever no connecting path is available.
const Generic = "Recommended due to structural similarity in the embedding space."

// Render turns a path into one sentence.
func Render(path *model.ExplanationPath) string {
	if path == nil || len(path.Nodes) < 2 {
		return Generic
	}

	connectors := path.Connectors()
	switch len(connectors) {
	case 0:
		return "Because the two movies are directly related."
	case 1:
		c := connectors[0]
		switch c.Kind {
		case model.KindActor:
			return fmt.Sprintf("Because both feature %s.", c.Label)
		case model.KindDirector:
			return fmt.Sprintf("Because both were directed by %s.", c.Label)
		case model.KindGenre:
			return fmt.Sprintf("Because both belong to the %s genre.", c.Label)
		}
	}

	parts := make([]string, len(connectors))
	for i, c := range connectors {
		parts[i] = fmt.Sprintf("%s (%s)", c.Label, strings.ToLower(string(c.Kind)))
	}
	return "Because they are connected through " + joinAnd(parts) + "."
}

func joinAnd(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

package search

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MinFuzzyScore drops edit-distance matches too weak to be useful.
// Substring matches always score above 1.
const MinFuzzyScore = 0.5

var yearSuffix = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)

// Score rates how well query matches title. A case-insensitive substring
// match scores in (1, 2], higher for earlier positions and for titles the
// query covers more of. Otherwise the score is the best normalized
// edit-distance similarity in [0, 1] between the query and either the whole
// title (year stripped) or a run of title words of the same length.
func Score(query, title string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(title)
	if q == "" || t == "" {
		return 0
	}

	if idx := strings.Index(t, q); idx >= 0 {
		tl := float64(len([]rune(t)))
		pos := float64(len([]rune(t[:idx])))
		coverage := float64(len([]rune(q))) / tl
		return 1 + 0.5*(1-pos/tl) + 0.5*coverage
	}

	best := similarity(q, yearSuffix.ReplaceAllString(t, ""))

	qWords := len(strings.Fields(q))
	words := strings.Fields(t)
	for i := 0; i+qWords <= len(words); i++ {
		window := strings.Trim(strings.Join(words[i:i+qWords], " "), ",.:;!?()")
		if s := similarity(q, window); s > best {
			best = s
		}
	}
	return best
}

func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

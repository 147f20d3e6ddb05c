package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	FormatWord2Vec = "word2vec"
	FormatJSON     = "json"
)

// Load reads an embedding artifact from path in the given format.
func Load(path, format string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embeddings '%s': %w", path, err)
	}
	defer f.Close()

	var s *Store
	switch strings.ToLower(format) {
	case FormatWord2Vec, "":
		s, err = ReadWord2Vec(f)
	case FormatJSON:
		s, err = ReadJSON(f)
	default:
		return nil, fmt.Errorf("unsupported embeddings format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings '%s': %w", path, err)
	}
	return s, nil
}

// ReadWord2Vec parses the word2vec text format: a "count dim" header, then
// one key followed by dim floats per line. Keys may contain spaces
// ("actor_Tom Hanks"), so components are taken from the right.
func ReadWord2Vec(r io.Reader) (*Store, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty embeddings file")
	}

	header := strings.Fields(sc.Text())
	if len(header) != 2 {
		return nil, fmt.Errorf("malformed header %q", sc.Text())
	}
	count, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("malformed vector count: %w", err)
	}
	dim, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("malformed dimension: %w", err)
	}
	if count < 0 || dim <= 0 {
		return nil, fmt.Errorf("invalid header: %d vectors of dimension %d", count, dim)
	}

	entries := make(map[string]Vector, count)
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < dim+1 {
			return nil, fmt.Errorf("line %d: %d fields, want a key and %d components", line, len(fields), dim)
		}

		split := len(fields) - dim
		key := strings.Join(fields[:split], " ")
		vec := make(Vector, dim)
		for i, tok := range fields[split:] {
			x, err := strconv.ParseFloat(tok, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: component %d: %w", line, i, err)
			}
			vec[i] = float32(x)
		}
		entries[key] = vec
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(entries) != count {
		return nil, fmt.Errorf("header declares %d vectors, found %d", count, len(entries))
	}

	return New(dim, entries)
}

// ReadJSON parses an object mapping embedding keys to float arrays. The
// dimension is taken from the first vector.
func ReadJSON(r io.Reader) (*Store, error) {
	var raw map[string][]float32
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("embeddings JSON holds no vectors")
	}

	dim := 0
	entries := make(map[string]Vector, len(raw))
	for key, vec := range raw {
		if dim == 0 {
			dim = len(vec)
		}
		entries[key] = vec
	}

	return New(dim, entries)
}

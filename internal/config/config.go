package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration decodes TOML strings such as "10m" or "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type EmbeddingsConfig struct {
	Path string `toml:"path"`
	// Format is word2vec (text, as written by gensim) or json.
	Format string `toml:"format"`
	// Required makes a missing or broken artifact fatal at startup.
	Required bool `toml:"required"`
}

type RecommendConfig struct {
	Threshold float64 `toml:"threshold"`
	DefaultN  int     `toml:"default_n"`
	MaxN      int     `toml:"max_n"`
}

type ExplainConfig struct {
	MaxHops     int      `toml:"max_hops"`
	FanOut      int      `toml:"fan_out"`
	CacheTTL    Duration `toml:"cache_ttl"`
	Concurrency int      `toml:"concurrency"`
}

type SearchConfig struct {
	MinQuery     int      `toml:"min_query"`
	DefaultLimit int      `toml:"default_limit"`
	MaxLimit     int      `toml:"max_limit"`
	CatalogTTL   Duration `toml:"catalog_ttl"`
}

type GraphConfig struct {
	QueryTimeout    Duration `toml:"query_timeout"`
	RetryBackoff    Duration `toml:"retry_backoff"`
	BreakerFailures uint32   `toml:"breaker_failures"`
	BreakerOpenFor  Duration `toml:"breaker_open_for"`
	BreakerHalfOpen uint32   `toml:"breaker_half_open"`
}

type LLMConfig struct {
	Enabled  bool     `toml:"enabled"`
	Provider string   `toml:"provider"`
	Model    string   `toml:"model"`
	APIKey   string   `toml:"api_key"`
	BaseURL  string   `toml:"base_url"`
	Timeout  Duration `toml:"timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Port string `toml:"port"`
	// Mode is the gin mode: debug, release or test.
	Mode string `toml:"mode"`
}

type Config struct {
	Neo4j      Neo4jConfig      `toml:"neo4j"`
	Embeddings EmbeddingsConfig `toml:"embeddings"`
	Recommend  RecommendConfig  `toml:"recommend"`
	Explain    ExplainConfig    `toml:"explain"`
	Search     SearchConfig     `toml:"search"`
	Graph      GraphConfig      `toml:"graph"`
	LLM        LLMConfig        `toml:"llm"`
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
}

func Default() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Embeddings: EmbeddingsConfig{
			Path:   "models/movie_embeddings.kv",
			Format: "word2vec",
		},
		Recommend: RecommendConfig{Threshold: 4.0, DefaultN: 5, MaxN: 10},
		Explain: ExplainConfig{
			MaxHops:     2,
			FanOut:      50,
			CacheTTL:    Duration{10 * time.Minute},
			Concurrency: 4,
		},
		Search: SearchConfig{
			MinQuery:     2,
			DefaultLimit: 10,
			MaxLimit:     50,
			CatalogTTL:   Duration{5 * time.Minute},
		},
		Graph: GraphConfig{
			QueryTimeout:    Duration{3 * time.Second},
			RetryBackoff:    Duration{100 * time.Millisecond},
			BreakerFailures: 5,
			BreakerOpenFor:  Duration{30 * time.Second},
			BreakerHalfOpen: 1,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1",
			BaseURL:  "http://localhost:11434",
			Timeout:  Duration{5 * time.Second},
		},
		Log:    LogConfig{Level: "info", Format: "json"},
		Server: ServerConfig{Port: "8080", Mode: "release"},
	}
}

// Load decodes the TOML file at path over Default(). A missing file yields
// the defaults together with an error matching os.ErrNotExist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with any of the recognised environment
// variables that are set.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Neo4j.URI, "NEO4J_URI")
	set(&c.Neo4j.User, "NEO4J_USER")
	set(&c.Neo4j.Password, "NEO4J_PASSWORD")
	set(&c.Neo4j.Database, "NEO4J_DATABASE")
	set(&c.Embeddings.Path, "EMBEDDINGS_PATH")
	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.Model, "LLM_MODEL")
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.LLM.BaseURL, "LLM_BASE_URL")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")
	set(&c.Server.Port, "PORT")

	if v := os.Getenv("LLM_ENABLED"); v != "" {
		c.LLM.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Neo4j.URI == "" {
		errs = append(errs, errors.New("neo4j.uri is required"))
	}
	switch strings.ToLower(c.Embeddings.Format) {
	case "word2vec", "json":
	default:
		errs = append(errs, fmt.Errorf("embeddings.format %q is not word2vec or json", c.Embeddings.Format))
	}
	if c.Recommend.DefaultN < 1 || c.Recommend.MaxN < c.Recommend.DefaultN {
		errs = append(errs, fmt.Errorf("recommend: need 1 <= default_n <= max_n, got %d and %d", c.Recommend.DefaultN, c.Recommend.MaxN))
	}
	if c.Explain.MaxHops < 2 {
		errs = append(errs, fmt.Errorf("explain.max_hops must be at least 2, got %d", c.Explain.MaxHops))
	}
	if c.Explain.FanOut < 1 {
		errs = append(errs, fmt.Errorf("explain.fan_out must be positive, got %d", c.Explain.FanOut))
	}
	if c.Search.MinQuery < 1 || c.Search.MaxLimit < c.Search.DefaultLimit {
		errs = append(errs, errors.New("search: need min_query >= 1 and default_limit <= max_limit"))
	}
	if c.Graph.QueryTimeout.Duration <= 0 {
		errs = append(errs, errors.New("graph.query_timeout must be positive"))
	}
	return errors.Join(errs...)
}

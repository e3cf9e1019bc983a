package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port               int `yaml:"port"`
	RequestTimeoutSecs int `yaml:"request_timeout_secs"`
}

type ChunkingConfig struct {
	Strategy string `yaml:"strategy"` // fixed | recursive
	Window   int    `yaml:"window"`
	Overlap  int    `yaml:"overlap"`
}

type EmbeddingConfig struct {
	Provider      string `yaml:"provider"` // openai | ollama
	BaseURL       string `yaml:"base_url"`
	Key           string `yaml:"key"`
	Model         string `yaml:"model"`
	MaxInputChars int    `yaml:"max_input_chars"`
}

type PostgresConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

type StoreConfig struct {
	Backend    string         `yaml:"backend"` // chromem | postgres
	Collection string         `yaml:"collection"`
	Path       string         `yaml:"path"`
	Compress   bool           `yaml:"compress"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

type RAGConfig struct {
	Key         string  `yaml:"key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	SearchTopK  int     `yaml:"search_top_k"`
	ChatTopK    int     `yaml:"chat_top_k"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	RAG       RAGConfig       `yaml:"rag"`
	LogLevel  string          `yaml:"log_level"`
}

// LoadConfig reads the yaml config and overlays secrets from the
// environment (.env is loaded first if present, existing vars win).
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	// sentinel distinguishes "overlap: 0" from an absent key
	cfg.Chunking.Overlap = -1
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Window {
		return fmt.Errorf("chunking: overlap (%d) must be in [0, window); window is %d", c.Chunking.Overlap, c.Chunking.Window)
	}
	switch c.Chunking.Strategy {
	case "fixed", "recursive":
	default:
		return fmt.Errorf("chunking: unknown strategy %q", c.Chunking.Strategy)
	}
	switch c.Store.Backend {
	case "chromem":
	case "postgres":
		if c.Store.Postgres.URL == "" {
			return fmt.Errorf("store: postgres.url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Embedding.Provider)
	}
	return nil
}

// RequestTimeout bounds external embedding and completion calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENROUTER_KEY"); v != "" {
		cfg.RAG.Key = v
	}
	if v := os.Getenv("EMBEDDING_KEY"); v != "" {
		cfg.Embedding.Key = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Store.Postgres.URL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 60
	}
	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = "fixed"
	}
	if cfg.Chunking.Window == 0 {
		cfg.Chunking.Window = 500
	}
	if cfg.Chunking.Overlap == -1 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.MaxInputChars == 0 {
		// bge-style small embedding models cap around 512 tokens; the
		// default chunk window stays under this.
		cfg.Embedding.MaxInputChars = 512
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "chromem"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "rag_docs"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./db"
	}
	if cfg.RAG.Temperature == 0 {
		cfg.RAG.Temperature = 0.2
	}
	if cfg.RAG.SearchTopK == 0 {
		cfg.RAG.SearchTopK = 4
	}
	if cfg.RAG.ChatTopK == 0 {
		// keep the LLM context minimal and cheap by default
		cfg.RAG.ChatTopK = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

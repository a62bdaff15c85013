// Package config loads ragqa settings from YAML or TOML, the process
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultAPIKeyEnv is the variable holding the GitHub Models token.
const DefaultAPIKeyEnv = "GITHUB_TOKEN"

// DefaultFiles are tried in order by LoadDefault.
var DefaultFiles = []string{"ragqa.yaml", "ragqa.yml", "ragqa.toml"}

// CorpusConfig locates the documents.
type CorpusConfig struct {
	Dir        string   `yaml:"dir" toml:"dir"`
	Extensions []string `yaml:"extensions" toml:"extensions"`
	Watch      bool     `yaml:"watch" toml:"watch"`
}

// ChunkerConfig sets the window size and overlap, in characters.
type ChunkerConfig struct {
	Size    int `yaml:"size" toml:"size"`
	Overlap int `yaml:"overlap" toml:"overlap"`
}

// IndexConfig selects and tunes the retrieval index.
type IndexConfig struct {
	// Mode is "lexical" or "vector".
	Mode string `yaml:"mode" toml:"mode"`

	// Path is the directory holding the persisted vector index. Empty keeps it in memory.
	Path       string `yaml:"path" toml:"path"`
	Collection string `yaml:"collection" toml:"collection"`

	Concurrency int     `yaml:"concurrency" toml:"concurrency"`
	BatchSize   int     `yaml:"batch_size" toml:"batch_size"`
	EmbedRate   float64 `yaml:"embed_rate" toml:"embed_rate"`
	CacheSize   int     `yaml:"cache_size" toml:"cache_size"`

	// FallbackLexical answers from the lexical index when the embedder is down.
	FallbackLexical bool `yaml:"fallback_lexical" toml:"fallback_lexical"`
}

// RetrievalConfig controls how much context is retrieved.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" toml:"top_k"`
}

// ProviderConfig points at a model endpoint.
type ProviderConfig struct {
	Provider    string `yaml:"provider" toml:"provider"`
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// APIKey reads the key from the configured environment variable.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// RequireAPIKey returns the key, or an error naming the missing variable.
func (p ProviderConfig) RequireAPIKey() (string, error) {
	if p.Provider != ProviderOpenAI {
		return "", nil
	}
	key := p.APIKey()
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", entities.ErrInvalidConfiguration, p.APIKeyEnv)
	}
	return key, nil
}

// LLMConfig is the generation endpoint plus sampling settings.
type LLMConfig struct {
	Provider    string  `yaml:"provider" toml:"provider"`
	BaseURL     string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env" toml:"api_key_env"`
	Model       string  `yaml:"model" toml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" toml:"timeout_secs"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
}

// Endpoint returns the provider part of the LLM settings.
func (l LLMConfig) Endpoint() ProviderConfig {
	return ProviderConfig{
		Provider:    l.Provider,
		BaseURL:     l.BaseURL,
		APIKeyEnv:   l.APIKeyEnv,
		Model:       l.Model,
		TimeoutSecs: l.TimeoutSecs,
	}
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// LogConfig selects level and format.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus    CorpusConfig    `yaml:"corpus" toml:"corpus"`
	Chunker   ChunkerConfig   `yaml:"chunker" toml:"chunker"`
	Index     IndexConfig     `yaml:"index" toml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval" toml:"retrieval"`
	Embedder  ProviderConfig  `yaml:"embedder" toml:"embedder"`
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Log       LogConfig       `yaml:"log" toml:"log"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Corpus:  CorpusConfig{Dir: "documents", Extensions: []string{".txt"}},
		Chunker: ChunkerConfig{Size: 500, Overlap: 50},
		Index: IndexConfig{
			Mode:        "lexical",
			Path:        "./chroma_db",
			Collection:  "document_collection",
			Concurrency: 4,
			BatchSize:   10,
			CacheSize:   256,
		},
		Retrieval: RetrievalConfig{TopK: 3},
		Embedder: ProviderConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     "https://models.inference.ai.azure.com",
			APIKeyEnv:   DefaultAPIKeyEnv,
			Model:       "text-embedding-3-small",
			TimeoutSecs: 60,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     "https://models.inference.ai.azure.com",
			APIKeyEnv:   DefaultAPIKeyEnv,
			Model:       "gpt-4o-mini",
			TimeoutSecs: 120,
			Temperature: 0.7,
			MaxTokens:   500,
		},
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Log:    LogConfig{Level: "info", Format: "pretty"},
	}
}

// LoadEnv loads .env from the working directory if present.
// Variables already set in the environment win.
func LoadEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads a config file on top of the defaults. The format follows the
// extension: .toml is TOML, anything else YAML. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", entities.ErrInvalidConfiguration, path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault tries DefaultFiles in the working directory and falls back to
// the built-in defaults. The returned path is empty when no file was found.
func LoadDefault() (*AppConfig, string, error) {
	for _, path := range DefaultFiles {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
	}
	cfg := Default()
	applyEnv(cfg)
	return cfg, "", nil
}

// Save writes cfg to path as YAML or TOML, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c *AppConfig) Validate() error {
	var problems []string

	if c.Chunker.Size <= 0 {
		problems = append(problems, fmt.Sprintf("chunker.size must be positive, got %d", c.Chunker.Size))
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		problems = append(problems, fmt.Sprintf("chunker.overlap must be in [0, size), got %d", c.Chunker.Overlap))
	}
	if c.Index.Mode != "lexical" && c.Index.Mode != "vector" {
		problems = append(problems, fmt.Sprintf("index.mode must be lexical or vector, got %q", c.Index.Mode))
	}
	if c.Index.Collection == "" {
		problems = append(problems, "index.collection is empty")
	}
	if c.Index.Concurrency < 0 || c.Index.BatchSize < 0 || c.Index.EmbedRate < 0 {
		problems = append(problems, "index.concurrency, index.batch_size and index.embed_rate must not be negative")
	}
	if c.Retrieval.TopK <= 0 {
		problems = append(problems, fmt.Sprintf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	for _, ep := range []struct {
		name string
		cfg  ProviderConfig
	}{{"embedder", c.Embedder}, {"llm", c.LLM.Endpoint()}} {
		name, p := ep.name, ep.cfg
		if p.Provider != ProviderOpenAI && p.Provider != ProviderOllama {
			problems = append(problems, fmt.Sprintf("%s.provider must be openai or ollama, got %q", name, p.Provider))
		}
		if p.Provider == ProviderOpenAI && p.APIKeyEnv == "" {
			problems = append(problems, name+".api_key_env is empty")
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.MaxTokens <= 0 {
		problems = append(problems, "llm.temperature must not be negative and llm.max_tokens must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", entities.ErrInvalidConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// applyEnv applies environment overrides.
func applyEnv(cfg *AppConfig) {
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil && port > 0 {
		cfg.Server.Port = port
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads StackAlchemy settings from a TOML file.
//
// Every setting has a default, so a missing file is not an error. Values
// from the file override the defaults; the CLI overrides both with flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/github"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// ErrUnknownBackend is returned for a storage backend other than badger or postgres.
var ErrUnknownBackend = errors.New("unknown storage backend")

type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	AI        AIConfig        `toml:"ai"`
	GitHub    GitHubConfig    `toml:"github"`
	Ingestion IngestionConfig `toml:"ingestion"`
	Search    SearchConfig    `toml:"search"`
	Commits   CommitsConfig   `toml:"commits"`
}

type StorageConfig struct {
	// Backend is "badger" (default) or "postgres".
	Backend string `toml:"backend"`
	// Path is the badger data directory.
	Path string `toml:"path"`
	// DSN is the postgres connection string.
	DSN string `toml:"dsn"`
}

type AIConfig struct {
	EmbeddingHost   string `toml:"embedding_host"`
	GenerationHost  string `toml:"generation_host"`
	EmbeddingModel  string `toml:"embedding_model"`
	GenerationModel string `toml:"generation_model"`
	APIToken        string `toml:"api_token"`
	MaxSourceChars  int    `toml:"max_source_chars"`
}

type GitHubConfig struct {
	BaseURL           string   `toml:"base_url"`
	Token             string   `toml:"token"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	Concurrency       int      `toml:"concurrency"`
	MaxFileSize       int      `toml:"max_file_size"`
	IgnorePatterns    []string `toml:"ignore_patterns"`
}

type IngestionConfig struct {
	PoolSize int `toml:"pool_size"`
}

type SearchConfig struct {
	MinSimilarity float32 `toml:"min_similarity"`
	KeywordBoost  float32 `toml:"keyword_boost"`
	TopK          int     `toml:"top_k"`
}

type CommitsConfig struct {
	PageSize int `toml:"page_size"`
	PoolSize int `toml:"pool_size"`
}

func DefaultConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	dataDir, err := Dir()
	if err != nil {
		dataDir = ".stackalchemy"
	}
	return &Config{
		Storage: StorageConfig{
			Backend: BackendBadger,
			Path:    filepath.Join(dataDir, "db"),
		},
		AI: AIConfig{
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			GenerationHost:  aiDefaults.GenerationHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			GenerationModel: aiDefaults.GenerationModel,
			MaxSourceChars:  aiDefaults.MaxSourceChars,
		},
		GitHub: GitHubConfig{
			BaseURL:           github.DefaultBaseURL,
			RequestsPerSecond: 10,
			Burst:             5,
			Concurrency:       github.DefaultConcurrency,
			MaxFileSize:       github.DefaultMaxFileSize,
			IgnorePatterns:    append([]string(nil), github.DefaultIgnorePatterns...),
		},
		Ingestion: IngestionConfig{PoolSize: 4},
		Search:    SearchConfig{MinSimilarity: 0.5, TopK: 10},
		Commits:   CommitsConfig{PageSize: github.DefaultCommitPageSize, PoolSize: 4},
	}
}

// Dir returns the per-user StackAlchemy directory, ~/.stackalchemy.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".stackalchemy"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file at path on top of the defaults. An empty path
// means the default location. A file that does not exist yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	cfg.Storage.Path = expandPath(cfg.Storage.Path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path is required for badger")
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
	if c.GitHub.RequestsPerSecond <= 0 || c.GitHub.Burst < 1 {
		return errors.New("config: github rate limit must be positive")
	}
	if c.Search.MinSimilarity < -1 || c.Search.MinSimilarity > 1 {
		return fmt.Errorf("config: search.min_similarity must be within [-1, 1], got %v", c.Search.MinSimilarity)
	}
	if c.Search.TopK < 1 {
		return errors.New("config: search.top_k must be positive")
	}
	return c.AIConfig().Validate()
}

// AIConfig converts the [ai] section into the provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGenerationHost(c.AI.GenerationHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGenerationModel(c.AI.GenerationModel),
		ai.WithAPIToken(c.AI.APIToken),
		ai.WithMaxSourceChars(c.AI.MaxSourceChars),
	)
}

// GitHubOptions converts the [github] section into client options.
func (c *Config) GitHubOptions() []github.Option {
	opts := []github.Option{
		github.WithRateLimit(c.GitHub.RequestsPerSecond, c.GitHub.Burst),
	}
	if c.GitHub.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(c.GitHub.BaseURL))
	}
	if c.GitHub.Token != "" {
		opts = append(opts, github.WithToken(c.GitHub.Token))
	}
	if c.GitHub.Concurrency > 0 {
		opts = append(opts, github.WithConcurrency(c.GitHub.Concurrency))
	}
	if c.GitHub.MaxFileSize > 0 {
		opts = append(opts, github.WithMaxFileSize(c.GitHub.MaxFileSize))
	}
	if c.GitHub.IgnorePatterns != nil {
		opts = append(opts, github.WithIgnorePatterns(c.GitHub.IgnorePatterns...))
	}
	return opts
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Package config provides configuration loading for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Rerank      GatewayConfig     `yaml:"rerank"`
	Generation  GatewayConfig     `yaml:"generation"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Tasks       TasksConfig       `yaml:"tasks"`
	Watch       WatchConfig       `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the metadata database, the vector index
// file and the raw blob directory.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	BlobDir         string `yaml:"blob_dir"`
}

// ChunkingConfig holds splitter settings.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig holds the embedding gateway settings.
type EmbeddingConfig struct {
	Type           string `yaml:"type"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ModelPath      string `yaml:"model_path"`
	MaxTokens      int    `yaml:"max_tokens"`
	Dimensions     int    `yaml:"dimensions"`
	CacheSize      int    `yaml:"cache_size"`
	// Instruction is prepended to query text at retrieval time only.
	Instruction string `yaml:"instruction"`
}

// GatewayConfig holds settings for the rerank and generation gateways.
type GatewayConfig struct {
	Type           string `yaml:"type"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// VectorIndexConfig selects the vector index backend.
type VectorIndexConfig struct {
	Type           string `yaml:"type"`
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	Collection     string `yaml:"collection"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RetrievalConfig holds the two-stage retrieval bounds.
type RetrievalConfig struct {
	TopK int `yaml:"initial_top_k"`
	TopN int `yaml:"final_top_n"`
}

// TasksConfig holds ingestion dispatch settings.
type TasksConfig struct {
	Workers        int `yaml:"workers"`
	QueueSize      int `yaml:"queue_size"`
	MaxAttempts    int `yaml:"max_attempts"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

// WatchConfig holds drop-directory ingestion settings. Watching is enabled
// when at least one directory is configured.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults and validates. A .env file next to the config, if present, is
// loaded first so environment overrides can come from it.
func Load(path string) (*Config, error) {
	configDir := filepath.Dir(path)
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.BlobDir = expandPath(cfg.Storage.BlobDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config without reading a file, with paths rooted
// under dataDir.
func Default(dataDir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dataDir, "db", "kotae.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dataDir, "indices", "vectors.bin")
	cfg.Storage.BlobDir = filepath.Join(dataDir, "blobs")
	return cfg
}

// applyEnv overrides gateway endpoints and credentials from the
// environment, matching the keys the deployment scripts export.
func applyEnv(cfg *Config) {
	if v := os.Getenv("KOTAE_EMBEDDING_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("KOTAE_GENERATION_URL"); v != "" {
		cfg.Generation.BaseURL = v
	}
	if v := os.Getenv("KOTAE_RERANK_URL"); v != "" {
		cfg.Rerank.BaseURL = v
	}
	if v := os.Getenv("KOTAE_QDRANT_URL"); v != "" {
		cfg.VectorIndex.URL = v
	}
	if v := os.Getenv("KOTAE_QDRANT_API_KEY"); v != "" {
		cfg.VectorIndex.APIKey = v
	}
	if v := os.Getenv("KOTAE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// Validate checks cross-field constraints that defaults cannot repair.
func Validate(cfg *Config) error {
	if cfg.Chunking.ChunkOverlap < 0 || cfg.Chunking.ChunkOverlap >= cfg.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be in [0, chunk_size=%d)",
			cfg.Chunking.ChunkOverlap, cfg.Chunking.ChunkSize)
	}
	if cfg.Retrieval.TopK < 1 {
		return fmt.Errorf("initial_top_k must be at least 1")
	}
	if cfg.Retrieval.TopN < 1 || cfg.Retrieval.TopN > cfg.Retrieval.TopK {
		return fmt.Errorf("final_top_n (%d) must be in [1, initial_top_k=%d]",
			cfg.Retrieval.TopN, cfg.Retrieval.TopK)
	}
	if cfg.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

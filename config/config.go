package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline.
type Config struct {
	Ingest    IngestConfig    `yaml:"ingest"`
	Classify  ClassifyConfig  `yaml:"classify"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	OCR       OCRConfig       `yaml:"ocr"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Answer    AnswerConfig    `yaml:"answer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IngestConfig holds batch ingestion and chunking configuration.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Workers  int      `yaml:"workers"`

	ChunkSize    int `yaml:"chunk_size"`    // target characters per chunk
	ChunkOverlap int `yaml:"chunk_overlap"` // overlapping characters between chunks

	TableSingleChunkThreshold int `yaml:"table_single_chunk_threshold"`
	TableRowsPerChunk         int `yaml:"table_rows_per_chunk"`

	IndexRetries int `yaml:"index_retries"` // embedding/upsert retry budget per chunk
}

// ClassifyConfig holds chunk tagging configuration.
type ClassifyConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", "none"
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	Retries        int    `yaml:"retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// EmbeddingConfig holds embedding service configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", "mock"
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// VectorConfig selects and configures the vector store backend.
type VectorConfig struct {
	Provider   string `yaml:"provider"` // "bolt" or "qdrant"
	URL        string `yaml:"url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Collection string `yaml:"collection"`
}

// OCRConfig holds the OCR gateway configuration.
type OCRConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RetrieveConfig holds retrieval and re-ranking configuration. The
// threshold and weights are tunable, not constants: they should be
// validated against a labeled query set per deployment.
type RetrieveConfig struct {
	TopK                int     `yaml:"top_k"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	MinSimilarity       float64 `yaml:"min_similarity"`
	SimWeight           float64 `yaml:"sim_weight"`
	MetaWeight          float64 `yaml:"meta_weight"`
	CacheSize           int     `yaml:"cache_size"`
	CacheTTLSeconds     int     `yaml:"cache_ttl_seconds"`
}

// AnswerConfig holds completion service and confidence configuration.
type AnswerConfig struct {
	Provider         string  `yaml:"provider"` // "openai", "ollama"
	Model            string  `yaml:"model"`
	APIKeyEnv        string  `yaml:"api_key_env"`
	BaseURL          string  `yaml:"base_url"`
	MaxTokens        int     `yaml:"max_tokens"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
	HighConfidence   float64 `yaml:"high_confidence"`   // top similarity >= this -> high
	MediumConfidence float64 `yaml:"medium_confidence"` // top similarity >= this -> medium
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			Includes: []string{
				"**/*.txt", "**/*.md", "**/*.html", "**/*.json", "**/*.xml",
				"**/*.csv", "**/*.tsv",
				"**/*.png", "**/*.jpg", "**/*.jpeg", "**/*.tif", "**/*.tiff", "**/*.pdf",
			},
			Excludes:                  []string{"**/.git/**", "**/node_modules/**", "**/~$*"},
			Workers:                   4,
			ChunkSize:                 1000,
			ChunkOverlap:              150,
			TableSingleChunkThreshold: 2000,
			TableRowsPerChunk:         10,
			IndexRetries:              3,
		},
		Classify: ClassifyConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			Retries:        2,
			TimeoutSeconds: 60,
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      100,
			TimeoutSeconds: 60,
		},
		Vector: VectorConfig{
			Provider:   "bolt",
			Collection: "opsqa",
		},
		OCR: OCRConfig{
			BaseURL:        "http://localhost:8070",
			TimeoutSeconds: 120,
		},
		Retrieve: RetrieveConfig{
			TopK:                8,
			CandidateMultiplier: 3,
			MinSimilarity:       0.30,
			SimWeight:           0.8,
			MetaWeight:          0.2,
			CacheSize:           100,
			CacheTTLSeconds:     300,
		},
		Answer: AnswerConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			APIKeyEnv:        "OPENAI_API_KEY",
			MaxTokens:        1024,
			TimeoutSeconds:   120,
			HighConfidence:   0.60,
			MediumConfidence: 0.45,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for opsqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "opsqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".opsqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".opsqa", "index.db")
}

// EnsureDataDir ensures the .opsqa directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".opsqa"), 0755)
}

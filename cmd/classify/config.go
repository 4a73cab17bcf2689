package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// runConfig is the YAML config for one classification run. Secrets stay out
// of this file: API keys come from the environment (a .env file is honored).
type runConfig struct {
	TaxonomyPath string `yaml:"taxonomy"`
	InputPath    string `yaml:"input"`
	OutputPath   string `yaml:"output"`
	GoldenPath   string `yaml:"golden"`

	CacheDir        string   `yaml:"cache_dir"`
	ConfidenceFloor *float32 `yaml:"confidence_floor"`
	TopK            int      `yaml:"top_k"`

	Embedding embeddingConfig `yaml:"embedding"`
	Rerank    rerankConfig    `yaml:"rerank"`
	Search    searchConfig    `yaml:"search"`
}

type embeddingConfig struct {
	// Provider is "voyage" (hosted API) or "onnx" (local model).
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	// ONNX-only: paths to the exported model and its WordPiece vocab.
	ModelPath string `yaml:"model_path"`
	VocabPath string `yaml:"vocab_path"`
}

type rerankConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

type searchConfig struct {
	// Backend is "local" (cached in-process index, the default), "sqlite",
	// or "pinecone".
	Backend string `yaml:"backend"`

	SQLitePath        string `yaml:"sqlite_path"`
	PineconeHost      string `yaml:"pinecone_host"`
	PineconeNamespace string `yaml:"pinecone_namespace"`
}

func loadRunConfig(path string) (*runConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &runConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.TaxonomyPath == "" {
		return nil, fmt.Errorf("config: taxonomy path is required")
	}
	if cfg.ConfidenceFloor == nil {
		return nil, fmt.Errorf("config: confidence_floor is required")
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "voyage"
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = "local"
	}
	return cfg, nil
}

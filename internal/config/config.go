// Package config provides configuration loading and structs for tansaku.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Storage   StorageConfig   `yaml:"storage"`
	Query     QueryConfig     `yaml:"query"`
	Keyword   KeywordConfig   `yaml:"keyword"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// IngestConfig controls file discovery and extraction.
type IngestConfig struct {
	DocumentsDir      string   `yaml:"documents_dir"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	SkipExtensions    []string `yaml:"skip_extensions"`
	// MinTextChars is the normalized length below which a PDF page is treated as a scan.
	MinTextChars *int `yaml:"min_text_chars"`
	// MinDocumentChars drops flat documents whose whole normalized text is shorter.
	MinDocumentChars *int   `yaml:"min_document_chars"`
	OCRDPI           int    `yaml:"ocr_dpi"`
	OCRLang          string `yaml:"ocr_lang"`
	OCREnabled       *bool  `yaml:"ocr_enabled"`
	Workers          int    `yaml:"workers"`
}

// MinTextCharsOrDefault returns the page threshold; an explicit 0 sends every non-empty
// text layer straight through.
func (c *IngestConfig) MinTextCharsOrDefault() int {
	if c.MinTextChars != nil {
		return *c.MinTextChars
	}
	return DefaultMinTextChars
}

// MinDocumentCharsOrDefault returns the flat document threshold; an explicit 0 keeps
// every non-empty document.
func (c *IngestConfig) MinDocumentCharsOrDefault() int {
	if c.MinDocumentChars != nil {
		return *c.MinDocumentChars
	}
	return DefaultMinDocumentChars
}

// OCREnabledOrDefault returns whether scanned pages go through OCR; defaults to true when unset.
func (c *IngestConfig) OCREnabledOrDefault() bool {
	if c.OCREnabled != nil {
		return *c.OCREnabled
	}
	return true
}

// ChunkingConfig holds chunker parameters, in characters.
type ChunkingConfig struct {
	MaxChars int  `yaml:"max_chars"`
	Overlap  *int `yaml:"overlap"`
}

// OverlapOrDefault returns the configured overlap; an explicit 0 disables overlap.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap != nil {
		return *c.Overlap
	}
	return DefaultOverlap
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is "onnx" or "hash".
	Provider   string `yaml:"provider"`
	ModelName  string `yaml:"model_name"`
	ModelPath  string `yaml:"model_path"`
	// TokenizerPath is the Hugging Face tokenizer.json for the model. Empty means
	// tokenizer.json next to ModelPath.
	TokenizerPath string `yaml:"tokenizer_path"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	BatchSize     int    `yaml:"batch_size"`
	CacheSize     int    `yaml:"cache_size"`
}

// VectorConfig selects the vector index implementation.
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// StorageConfig holds paths for the corpus and index artifacts.
type StorageConfig struct {
	ChunksPath string `yaml:"chunks_path"`
	IndexPath  string `yaml:"index_path"`
	MetaPath   string `yaml:"meta_path"`
	// DatabasePath enables the SQLite chunk mirror when set.
	DatabasePath string `yaml:"database_path"`
	// BleveIndexPath enables the keyword index when set.
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// QueryConfig holds query engine settings.
type QueryConfig struct {
	TopK         int           `yaml:"top_k"`
	PreviewChars int           `yaml:"preview_chars"`
	Timeout      time.Duration `yaml:"timeout"`
}

// KeywordConfig tunes lexical search. Zero values give a plain match query over chunk text
// and source file name.
type KeywordConfig struct {
	Fuzzy       bool    `yaml:"fuzzy"`
	Fuzziness   int     `yaml:"fuzziness"`
	SourceBoost float64 `yaml:"source_boost"`
	PhraseBoost float64 `yaml:"phrase_boost"`
}

// WatchConfig holds rebuild-on-change settings.
type WatchConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	Recursive *bool         `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Default returns a configuration with every default applied, for running without a file.
// Relative paths are resolved against the current directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	expandPaths(&cfg, dir)
	return &cfg
}

// Load reads and parses the config file at path, applies .env and environment overrides,
// defaults and path expansion, then validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := ApplyEnv(&cfg, filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	expandPaths(&cfg, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefaults builds the default configuration for dir, applying dir/.env and environment
// overrides the same way Load does. Used when no config file exists.
func LoadDefaults(dir string) (*Config, error) {
	var cfg Config
	if err := ApplyEnv(&cfg, filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	expandPaths(&cfg, dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects parameter combinations the pipeline cannot run with.
func (c *Config) Validate() error {
	overlap := c.Chunking.OverlapOrDefault()
	switch {
	case c.Chunking.MaxChars <= 0:
		return fmt.Errorf("%w: chunking.max_chars must be positive", ErrInvalid)
	case overlap < 0:
		return fmt.Errorf("%w: chunking.overlap must not be negative", ErrInvalid)
	case overlap >= c.Chunking.MaxChars:
		return fmt.Errorf("%w: chunking.overlap (%d) must be smaller than max_chars (%d)", ErrInvalid, overlap, c.Chunking.MaxChars)
	case c.Ingest.MinTextCharsOrDefault() < 0:
		return fmt.Errorf("%w: ingest.min_text_chars must not be negative", ErrInvalid)
	case c.Ingest.MinDocumentCharsOrDefault() < 0:
		return fmt.Errorf("%w: ingest.min_document_chars must not be negative", ErrInvalid)
	case c.Ingest.OCRDPI <= 0:
		return fmt.Errorf("%w: ingest.ocr_dpi must be positive", ErrInvalid)
	case c.Query.TopK <= 0:
		return fmt.Errorf("%w: query.top_k must be positive", ErrInvalid)
	case c.Embedding.BatchSize <= 0:
		return fmt.Errorf("%w: embedding.batch_size must be positive", ErrInvalid)
	case c.Embedding.ModelName == "":
		return fmt.Errorf("%w: embedding.model_name is required", ErrInvalid)
	case c.Keyword.Fuzziness < 0 || c.Keyword.Fuzziness > 2:
		return fmt.Errorf("%w: keyword.fuzziness must be 0, 1 or 2", ErrInvalid)
	}
	switch c.Embedding.Provider {
	case ProviderONNX, ProviderHash:
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q (supported: onnx, hash)", ErrInvalid, c.Embedding.Provider)
	}
	switch c.Vector.IndexType {
	case "memory", "faiss":
	default:
		return fmt.Errorf("%w: unknown vector.index_type %q (supported: memory, faiss)", ErrInvalid, c.Vector.IndexType)
	}
	return nil
}

func expandPaths(cfg *Config, configDir string) {
	cfg.Ingest.DocumentsDir = expandPath(cfg.Ingest.DocumentsDir, configDir)
	cfg.Storage.ChunksPath = expandPath(cfg.Storage.ChunksPath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.MetaPath = expandPath(cfg.Storage.MetaPath, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Embedding.TokenizerPath == "" && cfg.Embedding.ModelPath != "" {
		cfg.Embedding.TokenizerPath = filepath.Join(filepath.Dir(cfg.Embedding.ModelPath), "tokenizer.json")
	} else {
		cfg.Embedding.TokenizerPath = expandPath(cfg.Embedding.TokenizerPath, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

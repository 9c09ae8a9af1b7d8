package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envOverrides lists the settings that may be supplied through the environment.
// Unset variables leave the YAML value untouched.
type envOverrides struct {
	DocumentsDir *string `envconfig:"DOCUMENTS_DIR"`
	MinTextChars *int    `envconfig:"MIN_TEXT_CHARS"`
	OCRDPI       *int    `envconfig:"OCR_DPI"`
	OCRLang      *string `envconfig:"OCR_LANG"`
	Workers      *int    `envconfig:"WORKERS"`
	MaxChars     *int    `envconfig:"MAX_CHARS"`
	Overlap      *int    `envconfig:"OVERLAP"`
	ModelName    *string `envconfig:"MODEL_NAME"`
	BatchSize    *int    `envconfig:"BATCH_SIZE"`
	TopK         *int    `envconfig:"TOPK"`
	PreviewChars *int    `envconfig:"PREVIEW_CHARS"`
}

// ApplyEnv loads dotenvPath (if it exists) into the process environment without overriding
// variables that are already set, then copies recognized variables onto cfg.
func ApplyEnv(cfg *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("%w: environment: %v", ErrInvalid, err)
	}
	if env.DocumentsDir != nil {
		cfg.Ingest.DocumentsDir = *env.DocumentsDir
	}
	if env.MinTextChars != nil {
		n := *env.MinTextChars
		cfg.Ingest.MinTextChars = &n
	}
	if env.OCRDPI != nil {
		cfg.Ingest.OCRDPI = *env.OCRDPI
	}
	if env.OCRLang != nil {
		cfg.Ingest.OCRLang = *env.OCRLang
	}
	if env.Workers != nil {
		cfg.Ingest.Workers = *env.Workers
	}
	if env.MaxChars != nil {
		cfg.Chunking.MaxChars = *env.MaxChars
	}
	if env.Overlap != nil {
		o := *env.Overlap
		cfg.Chunking.Overlap = &o
	}
	if env.ModelName != nil {
		cfg.Embedding.ModelName = *env.ModelName
	}
	if env.BatchSize != nil {
		cfg.Embedding.BatchSize = *env.BatchSize
	}
	if env.TopK != nil {
		cfg.Query.TopK = *env.TopK
	}
	if env.PreviewChars != nil {
		cfg.Query.PreviewChars = *env.PreviewChars
	}
	return nil
}

package config

import "time"

// Embedding providers.
const (
	ProviderONNX = "onnx"
	ProviderHash = "hash"
)

// Defaults for the recognized configuration surface.
const (
	DefaultMinTextChars     = 40
	DefaultMinDocumentChars = 20
	DefaultOCRDPI           = 250
	DefaultOCRLang          = "rus"
	DefaultMaxChars         = 1000
	DefaultOverlap          = 200
	DefaultModelName        = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
	DefaultDimensions       = 384
	DefaultBatchSize        = 64
	DefaultTopK             = 5
	DefaultPreviewChars     = 900
)

// DefaultAllowedExtensions are the formats ingested when no allow-list is configured.
var DefaultAllowedExtensions = []string{".pdf", ".html", ".htm", ".txt", ".docx"}

// DefaultSkipExtensions are rejected before the allow-list is consulted.
var DefaultSkipExtensions = []string{".zip", ".7z", ".rar", ".exe", ".dll"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Ingest.DocumentsDir == "" {
		cfg.Ingest.DocumentsDir = "./documents"
	}
	if cfg.Ingest.AllowedExtensions == nil {
		cfg.Ingest.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	if cfg.Ingest.SkipExtensions == nil {
		cfg.Ingest.SkipExtensions = append([]string(nil), DefaultSkipExtensions...)
	}
	if cfg.Ingest.MinTextChars == nil {
		n := DefaultMinTextChars
		cfg.Ingest.MinTextChars = &n
	}
	if cfg.Ingest.MinDocumentChars == nil {
		n := DefaultMinDocumentChars
		cfg.Ingest.MinDocumentChars = &n
	}
	if cfg.Ingest.OCRDPI == 0 {
		cfg.Ingest.OCRDPI = DefaultOCRDPI
	}
	if cfg.Ingest.OCRLang == "" {
		cfg.Ingest.OCRLang = DefaultOCRLang
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 1
	}
	if cfg.Chunking.MaxChars == 0 {
		cfg.Chunking.MaxChars = DefaultMaxChars
	}
	if cfg.Chunking.Overlap == nil {
		o := DefaultOverlap
		cfg.Chunking.Overlap = &o
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = DefaultModelName
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "./models/paraphrase-multilingual-MiniLM-L12-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = DefaultDimensions
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = DefaultBatchSize
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Storage.ChunksPath == "" {
		cfg.Storage.ChunksPath = "./processed/chunks.jsonl"
	}
	if cfg.Storage.IndexPath == "" {
		if cfg.Vector.IndexType == "faiss" {
			cfg.Storage.IndexPath = "./vector_store/index.faiss"
		} else {
			cfg.Storage.IndexPath = "./vector_store/index.bin"
		}
	}
	if cfg.Storage.MetaPath == "" {
		cfg.Storage.MetaPath = "./vector_store/meta.json"
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = DefaultTopK
	}
	if cfg.Query.PreviewChars == 0 {
		cfg.Query.PreviewChars = DefaultPreviewChars
	}
	if cfg.Query.Timeout == 0 {
		cfg.Query.Timeout = 30 * time.Second
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
}

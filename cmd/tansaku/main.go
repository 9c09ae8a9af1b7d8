// Package main is the tansaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/cli"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/server"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/vector"
	"github.com/hyperjump/tansaku/internal/watcher"
	"github.com/hyperjump/tansaku/pkg/utils"
)

var version = "dev"

// stdin feeds the interactive query loop.
var stdin io.Reader = os.Stdin

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	var err error
	switch command {
	case "chunks":
		err = runChunks(args, os.Stdout)
	case "index":
		err = runIndex(args, os.Stdout)
	case "build":
		err = runBuild(args, os.Stdout)
	case "query":
		err = runQuery(args, os.Stdout)
	case "keyword":
		err = runKeyword(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "server":
		err = runServer(args, os.Stdout)
	case "watch":
		err = runWatch(args, os.Stdout)
	case "version":
		fmt.Printf("tansaku %s\n", version)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tansaku %s: %v\n", command, err)
		os.Exit(1)
	}
}

// loadConfig loads config from path. An empty path means config.yaml in the current
// directory when it exists, and the built-in defaults (plus .env and environment
// overrides) otherwise. Returns the config and the path that was loaded, "" for defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	fallback := filepath.Join(cwd, "config.yaml")
	if _, statErr := os.Stat(fallback); statErr == nil {
		cfg, loadErr := config.Load(fallback)
		if loadErr != nil {
			return nil, "", loadErr
		}
		return cfg, fallback, nil
	}
	cfg, err := config.LoadDefaults(cwd)
	if err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// commonFlags are shared by every subcommand that reads the config.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
}

func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs, &commonFlags{
		configPath: fs.String("config", "", "config file path (default: ./config.yaml, else built-in defaults)"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

// setup loads the config and logger for a parsed command.
func (f *commonFlags) setup() (*config.Config, *zap.Logger, cli.OutputFormat, error) {
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		return nil, nil, "", err
	}
	cfg, resolved, err := loadConfig(*f.configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load config: %w", err)
	}
	debugMode := cfg.Debug || *f.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, nil, "", fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, logger, format, nil
}

// parseFlags parses args; -h prints usage and is not an error.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runChunks(args []string, out io.Writer) error {
	fs, common := newFlagSet("chunks", out)
	workers := fs.Int("workers", 0, "files extracted in parallel (default: ingest.workers)")
	dir := fs.String("dir", "", "documents directory (default: ingest.documents_dir)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	cfg, logger, format, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	applyIngestFlags(cfg, *workers, *dir)

	if cfg.Ingest.OCREnabledOrDefault() && discovery.NewWalker(cfg.Ingest.AllowedExtensions, cfg.Ingest.SkipExtensions).Accept("scan.pdf") {
		if err := extract.CheckOCRAvailable(); err != nil {
			logger.Warn("scanned PDF pages will be skipped", zap.Error(err))
		}
	}

	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signalContext()
	defer stop()
	summary, err := components.Indexer.BuildCorpus(ctx)
	if err != nil {
		return err
	}
	return cli.WriteRunSummary(out, summary, format)
}

func runIndex(args []string, out io.Writer) error {
	fs, common := newFlagSet("index", out)
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	cfg, logger, format, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signalContext()
	defer stop()
	summary, err := components.Indexer.BuildIndex(ctx)
	if err != nil {
		return err
	}
	return cli.WriteIndexSummary(out, summary, format)
}

func runBuild(args []string, out io.Writer) error {
	fs, common := newFlagSet("build", out)
	workers := fs.Int("workers", 0, "files extracted in parallel (default: ingest.workers)")
	dir := fs.String("dir", "", "documents directory (default: ingest.documents_dir)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	cfg, logger, format, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	applyIngestFlags(cfg, *workers, *dir)

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signalContext()
	defer stop()
	run, built, err := components.Indexer.Build(ctx)
	if run != nil {
		if werr := cli.WriteRunSummary(out, run, format); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	return cli.WriteIndexSummary(out, built, format)
}

func applyIngestFlags(cfg *config.Config, workers int, dir string) {
	if workers > 0 {
		cfg.Ingest.Workers = workers
	}
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		cfg.Ingest.DocumentsDir = dir
	}
}

// argsReorder moves flags that follow the query text to the front so that
// "tansaku query some words --k 3" parses the same as "tansaku query --k 3 some words".
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runQuery(args []string, out io.Writer) error {
	fs, common := newFlagSet("query", out)
	k := fs.Int("k", 0, "number of results (default: query.top_k)")
	serverURL := fs.String("server", "", "query a running server at this URL instead of the local index")
	if ok, err := parseFlags(fs, argsReorder(args)); !ok {
		return err
	}
	text := buildQuery(fs.Args())

	var query cli.QueryFunc
	var format cli.OutputFormat
	if *serverURL != "" {
		f, err := cli.ParseOutputFormat(*common.output)
		if err != nil {
			return err
		}
		format = f
		query = func(ctx context.Context, q string) (*models.QueryResponse, error) {
			return queryViaHTTP(ctx, *serverURL, &models.QueryRequest{Query: q, K: *k})
		}
	} else {
		cfg, logger, f, err := common.setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		format = f
		components, err := initializeComponents(cfg, logger, true)
		if err != nil {
			return err
		}
		defer components.Close()
		if err := components.Engine.Load(context.Background()); err != nil {
			return err
		}
		query = func(ctx context.Context, q string) (*models.QueryResponse, error) {
			return components.Engine.Query(ctx, q, *k)
		}
	}

	ctx, stop := signalContext()
	defer stop()
	if text == "" {
		return cli.RunREPL(ctx, stdin, out, query, format)
	}
	response, err := query(ctx, text)
	if err != nil {
		return err
	}
	return cli.WriteQueryResults(out, response, format)
}

func runKeyword(args []string, out io.Writer) error {
	fs, common := newFlagSet("keyword", out)
	k := fs.Int("k", 0, "number of results (default: query.top_k)")
	serverURL := fs.String("server", "", "query a running server at this URL instead of the local index")
	if ok, err := parseFlags(fs, argsReorder(args)); !ok {
		return err
	}
	text := buildQuery(fs.Args())
	if text == "" {
		return search.ErrEmptyQuery
	}

	ctx, stop := signalContext()
	defer stop()

	if *serverURL != "" {
		format, err := cli.ParseOutputFormat(*common.output)
		if err != nil {
			return err
		}
		response, err := keywordViaHTTP(ctx, *serverURL, text, *k)
		if err != nil {
			return err
		}
		return cli.WriteQueryResults(out, response, format)
	}

	cfg, logger, format, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if cfg.Storage.BleveIndexPath == "" {
		return search.ErrNoKeywordIndex
	}
	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()
	// Keyword hits do not depend on the embedding model.
	if err := components.Engine.Load(ctx); err != nil && !errors.Is(err, vector.ErrModelMismatch) {
		return err
	}
	response, err := components.Engine.KeywordQuery(ctx, text, *k)
	if err != nil {
		return err
	}
	return cli.WriteQueryResults(out, response, format)
}

func runStatus(args []string, out io.Writer) error {
	fs, common := newFlagSet("status", out)
	serverURL := fs.String("server", "", "report the status of a running server at this URL")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	if *serverURL != "" {
		format, err := cli.ParseOutputFormat(*common.output)
		if err != nil {
			return err
		}
		st, err := statusViaHTTP(context.Background(), *serverURL)
		if err != nil {
			return err
		}
		return cli.WriteStatus(out, st, format)
	}

	cfg, logger, format, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	return cli.WriteStatus(out, localStatus(context.Background(), cfg, logger), format)
}

// staticModel reports a model name without loading the model.
type staticModel string

func (m staticModel) ModelName() string { return string(m) }

// localStatus inspects the artifacts on disk without loading the embedder or the index.
func localStatus(ctx context.Context, cfg *config.Config, logger *zap.Logger) *models.Status {
	st := &models.Status{
		Keyword:    cfg.Storage.BleveIndexPath != "" && exists(cfg.Storage.BleveIndexPath),
		TextSource: search.TextNone,
	}
	paths := cfg.Storage
	diskBytes, err := storage.DiskUsageBytes(paths.ChunksPath, paths.IndexPath, paths.MetaPath, paths.DatabasePath, paths.BleveIndexPath)
	if err != nil {
		logger.Warn("status: disk usage failed", zap.Error(err))
	}
	st.DiskBytes = diskBytes

	if !exists(cfg.Storage.IndexPath) {
		st.LoadError = (&vector.MissingArtifactError{Path: cfg.Storage.IndexPath, Kind: vector.ErrIndexMissing}).Error()
		return st
	}
	meta, err := vector.ReadMeta(cfg.Storage.MetaPath)
	if err != nil {
		st.LoadError = err.Error()
		return st
	}
	if err := vector.CheckModel(meta, staticModel(embedding.ModelNameFor(&cfg.Embedding))); err != nil {
		st.LoadError = err.Error()
	}

	st.Loaded = true
	st.Model = meta.Model
	st.IndexType = meta.IndexType
	st.BuildID = meta.BuildID
	st.CreatedAt = meta.CreatedAt
	st.Vectors = meta.Len()
	st.Dimensions = meta.Dimensions
	files := make(map[string]struct{})
	for _, m := range meta.Meta {
		files[m.SourceFile] = struct{}{}
	}
	st.Sources = len(files)

	switch {
	case mirrorStatus(ctx, cfg.Storage.DatabasePath, meta.BuildID, st, logger):
		st.TextSource = search.TextFromMirror
	case exists(cfg.Storage.ChunksPath):
		st.TextSource = search.TextFromCorpus
	}
	return st
}

// mirrorStatus reports whether the chunk mirror at dbPath belongs to buildID and, if so,
// records its chunk and source counts in st.
func mirrorStatus(ctx context.Context, dbPath, buildID string, st *models.Status, logger *zap.Logger) bool {
	if dbPath == "" || !exists(dbPath) {
		return false
	}
	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		logger.Warn("open chunk mirror", zap.String("path", dbPath), zap.Error(err))
		return false
	}
	defer db.Close()
	if id, err := db.BuildID(ctx); err != nil || id != buildID {
		return false
	}
	if st.MirrorChunks, err = db.CountChunks(ctx); err != nil {
		logger.Warn("count mirrored chunks", zap.Error(err))
	}
	if st.MirrorSources, err = db.CountSources(ctx); err != nil {
		logger.Warn("count mirrored sources", zap.Error(err))
	}
	return true
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runServer(args []string, out io.Writer) error {
	fs, common := newFlagSet("server", out)
	watch := fs.Bool("watch", false, "rebuild and reload the index when the documents directory changes")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	cfg, logger, _, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signalContext()
	defer stop()

	if err := components.Engine.Load(ctx); err != nil {
		if !errors.Is(err, vector.ErrModelMismatch) {
			return err
		}
		logger.Error("index model does not match the embedder; queries will be rejected", zap.Error(err))
	}

	if *watch {
		w := newDocumentWatcher(cfg, logger, func(ctx context.Context) error {
			if _, _, err := components.Indexer.Build(ctx); err != nil {
				return err
			}
			return components.Engine.Load(ctx)
		})
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()
	}

	srv := server.NewServer(components.Engine, cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runWatch(args []string, out io.Writer) error {
	fs, common := newFlagSet("watch", out)
	initial := fs.Bool("initial", true, "build once before watching")
	dir := fs.String("dir", "", "documents directory (default: ingest.documents_dir)")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	cfg, logger, format, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	applyIngestFlags(cfg, 0, *dir)

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signalContext()
	defer stop()

	rebuild := func(ctx context.Context) error {
		run, built, err := components.Indexer.Build(ctx)
		if err != nil {
			return err
		}
		logger.Info("rebuild finished",
			zap.Int("chunks", run.Chunks),
			zap.Int("vectors", built.Vectors),
			zap.String("build_id", built.BuildID),
		)
		return nil
	}
	if *initial {
		run, built, err := components.Indexer.Build(ctx)
		if err != nil && !errors.Is(err, indexer.ErrEmptyCorpus) {
			return err
		}
		if run != nil {
			if werr := cli.WriteRunSummary(out, run, format); werr != nil {
				return werr
			}
		}
		if built != nil {
			if werr := cli.WriteIndexSummary(out, built, format); werr != nil {
				return werr
			}
		}
	}

	w := newDocumentWatcher(cfg, logger, rebuild)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	logger.Info("watching documents", zap.String("dir", cfg.Ingest.DocumentsDir))
	<-ctx.Done()
	w.Stop()
	logger.Info("watcher stopped", zap.Int("rebuilds", w.Rebuilds()))
	return nil
}

func newDocumentWatcher(cfg *config.Config, logger *zap.Logger, rebuild watcher.RebuildFunc) *watcher.Watcher {
	return watcher.NewWatcher(
		cfg.Ingest.DocumentsDir,
		discovery.NewWalker(cfg.Ingest.AllowedExtensions, cfg.Ingest.SkipExtensions, discovery.WithLogger(logger)),
		cfg.Watch.RecursiveOrDefault(),
		rebuild,
		watcher.WithLogger(logger),
		watcher.WithDebounce(cfg.Watch.Debounce),
	)
}

func queryViaHTTP(ctx context.Context, serverURL string, req *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	var response models.QueryResponse
	if err := doJSON(httpReq, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func keywordViaHTTP(ctx context.Context, serverURL, text string, k int) (*models.QueryResponse, error) {
	params := url.Values{"q": {text}}
	if k > 0 {
		params.Set("k", strconv.Itoa(k))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/v1/keyword?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var response models.QueryResponse
	if err := doJSON(httpReq, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func statusViaHTTP(ctx context.Context, serverURL string) (*models.Status, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	var st models.Status
	if err := doJSON(httpReq, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func doJSON(req *http.Request, v any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds the pipeline pieces a command needs.
type Components struct {
	Config       *config.Config
	Logger       *zap.Logger
	Embedder     embedding.Embedder
	Storage      *storage.SQLiteStorage
	KeywordIndex *keyword.BleveIndex
	Registry     *extract.Registry
	Indexer      *indexer.Indexer
	Engine       *search.Engine
}

// Close releases the embedder, mirror and keyword index.
func (c *Components) Close() {
	var err error
	if c.Embedder != nil {
		err = multierr.Append(err, c.Embedder.Close())
	}
	if c.Storage != nil {
		err = multierr.Append(err, c.Storage.Close())
	}
	if c.KeywordIndex != nil {
		err = multierr.Append(err, c.KeywordIndex.Close())
	}
	if c.Engine != nil {
		err = multierr.Append(err, c.Engine.Close())
	}
	if err != nil {
		c.Logger.Warn("close components", zap.Error(err))
	}
}

// initializeComponents wires the configured pipeline. The embedder is only created
// when withEmbedder is set; the mirror and keyword index only when their paths are configured.
func initializeComponents(cfg *config.Config, logger *zap.Logger, withEmbedder bool) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}

	if withEmbedder {
		if err := vector.CheckIndexType(cfg.Vector.IndexType); err != nil {
			return nil, err
		}
		e, err := embedding.New(&cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		c.Embedder = e
	}

	var indexerOpts []indexer.IndexerOption
	var engineOpts []search.Option
	if cfg.Storage.DatabasePath != "" {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open chunk mirror: %w", err)
		}
		c.Storage = s
		indexerOpts = append(indexerOpts, indexer.WithStorage(s))
		engineOpts = append(engineOpts, search.WithChunkLookup(s))
	}
	if cfg.Storage.BleveIndexPath != "" {
		k, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open keyword index: %w", err)
		}
		c.KeywordIndex = k
		indexerOpts = append(indexerOpts, indexer.WithKeywordIndex(k))
		engineOpts = append(engineOpts, search.WithKeywordIndex(k))
	}

	c.Registry = extract.NewDefaultRegistry(&cfg.Ingest, extract.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(cfg, c.Registry, c.Embedder, append(indexerOpts, indexer.WithLogger(logger))...)
	if c.Embedder != nil {
		c.Engine = search.NewEngine(cfg, c.Embedder, append(engineOpts, search.WithLogger(logger))...)
	}
	return c, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `tansaku - local semantic search over document folders

Usage:
  tansaku chunks [flags]          Extract and chunk documents into the corpus file
  tansaku index [flags]           Embed the corpus and write the vector index
  tansaku build [flags]           Run chunks then index
  tansaku query [flags] [text]    Query the index (no text starts an interactive prompt)
  tansaku keyword [flags] <text>  Lexical query through the keyword index
  tansaku status [flags]          Show index and artifact status
  tansaku server [flags]          Start the HTTP server
  tansaku watch [flags]           Rebuild when the documents directory changes
  tansaku version                 Show version
  tansaku help                    Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, else built-in defaults)
  --debug            Enable debug logging
  --output string    Output format: text or json (default: text)

Chunks / Build Flags:
  --workers int      Files extracted in parallel (default: ingest.workers)
  --dir string       Documents directory (default: ingest.documents_dir)

Query / Keyword Flags:
  --k int            Number of results (default: query.top_k)
  --server string    Query a running server instead of the local index

Status Flags:
  --server string    Report the status of a running server

Server Flags:
  --watch            Rebuild and reload when documents change

Watch Flags:
  --initial          Build once before watching (default: true)
  --dir string       Documents directory (default: ingest.documents_dir)

Examples:
  tansaku build --dir ./docs
  tansaku query "квартальный отчёт"
  tansaku query --k 3 --output json "retention policy"
  tansaku keyword "invoice 2023"
  tansaku server --watch
  tansaku query --server http://localhost:8080 "contract terms"
  tansaku status --output json`)
}

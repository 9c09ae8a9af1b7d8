package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/search"
	"github.com/hyperjump/tansaku/internal/vector"
)

type mockQueryService struct {
	err      error
	lastText string
	lastK    int
}

func (m *mockQueryService) Query(_ context.Context, text string, k int) (*models.QueryResponse, error) {
	m.lastText, m.lastK = text, k
	if m.err != nil {
		return nil, m.err
	}
	return &models.QueryResponse{
		Query: text,
		Mode:  search.ModeSemantic,
		Results: []*models.QueryResult{{
			Rank: 1, Score: 0.9, ID: "a.pdf::p2::c1", SourceFile: "a.pdf", Page: models.PageRef(2),
			Type: models.TypePDF, Citation: "a.pdf, page 2", Preview: "text", TextAvailable: true,
		}},
		Total: 1,
	}, nil
}

func (m *mockQueryService) KeywordQuery(ctx context.Context, text string, k int) (*models.QueryResponse, error) {
	resp, err := m.Query(ctx, text, k)
	if resp != nil {
		resp.Mode = search.ModeKeyword
	}
	return resp, err
}

func (m *mockQueryService) Status() *models.Status {
	return &models.Status{Loaded: true, Model: "m", Vectors: 7}
}

func newTestServer(svc QueryService) *Server {
	cfg := config.Default()
	cfg.Storage.ChunksPath = ""
	cfg.Storage.IndexPath = ""
	cfg.Storage.MetaPath = ""
	return NewServer(svc, cfg, zap.NewNop())
}

func do(t *testing.T, srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	return w
}

func TestHandleQuery(t *testing.T) {
	mock := &mockQueryService{}
	srv := newTestServer(mock)
	w := do(t, srv, http.MethodPost, "/api/v1/query", []byte(`{"query":"  отчёт  ","k":3}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if mock.lastText != "отчёт" || mock.lastK != 3 {
		t.Errorf("engine called with %q, %d", mock.lastText, mock.lastK)
	}
	var out models.QueryResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || out.Results[0].Citation != "a.pdf, page 2" {
		t.Errorf("response: %+v", out)
	}
}

func TestHandleQuery_defaultK(t *testing.T) {
	mock := &mockQueryService{}
	srv := newTestServer(mock)
	w := do(t, srv, http.MethodPost, "/api/v1/query", []byte(`{"query":"x"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if mock.lastK != config.DefaultTopK {
		t.Errorf("k: got %d, want %d", mock.lastK, config.DefaultTopK)
	}
}

func TestHandleQuery_statusCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"invalid body", `{not json`, nil, http.StatusBadRequest},
		{"empty query", `{"query":"   "}`, nil, http.StatusBadRequest},
		{"engine empty query", `{"query":"x"}`, search.ErrEmptyQuery, http.StatusBadRequest},
		{"model mismatch", `{"query":"x"}`, fmt.Errorf("%w: index built with a", vector.ErrModelMismatch), http.StatusConflict},
		{"not loaded", `{"query":"x"}`, search.ErrNotLoaded, http.StatusServiceUnavailable},
		{"timeout", `{"query":"x"}`, fmt.Errorf("embed query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", `{"query":"x"}`, fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockQueryService{err: tt.err})
			w := do(t, srv, http.MethodPost, "/api/v1/query", []byte(tt.body))
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			var out map[string]string
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestHandleKeyword(t *testing.T) {
	mock := &mockQueryService{}
	srv := newTestServer(mock)

	w := do(t, srv, http.MethodGet, "/api/v1/keyword?q=warehouse&k=4", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if mock.lastText != "warehouse" || mock.lastK != 4 {
		t.Errorf("engine called with %q, %d", mock.lastText, mock.lastK)
	}

	if w := do(t, srv, http.MethodGet, "/api/v1/keyword?q=x&k=many", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad k: got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/v1/keyword", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q: got %d", w.Code)
	}

	disabled := newTestServer(&mockQueryService{err: search.ErrNoKeywordIndex})
	if w := do(t, disabled, http.MethodGet, "/api/v1/keyword?q=x", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("no keyword index: got %d", w.Code)
	}
}

func TestHandleStatusAndHealth(t *testing.T) {
	srv := newTestServer(&mockQueryService{})
	w := do(t, srv, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var st models.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if !st.Loaded || st.Vectors != 7 {
		t.Errorf("status body: %+v", st)
	}

	w = do(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health: got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/v1/query", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET query: got %d", w.Code)
	}
}

func TestServer_withEngine(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Ingest.DocumentsDir = filepath.Join(root, "docs")
	cfg.Storage.ChunksPath = filepath.Join(root, "chunks.jsonl")
	cfg.Storage.IndexPath = filepath.Join(root, "index.bin")
	cfg.Storage.MetaPath = filepath.Join(root, "meta.json")
	if err := os.MkdirAll(cfg.Ingest.DocumentsDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Ingest.DocumentsDir, "notes.txt"),
		[]byte("Notes about the warehouse relocation and inventory."), 0644); err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewHashEmbedder(cfg.Embedding.ModelName, 64, 10)
	if _, _, err := indexer.NewIndexer(cfg, extract.NewDefaultRegistry(&cfg.Ingest), emb).Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	engine := search.NewEngine(cfg, emb)
	defer engine.Close()
	if err := engine.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv := NewServer(engine, cfg, nil)

	w := do(t, srv, http.MethodPost, "/api/v1/query", []byte(`{"query":"warehouse inventory","k":10}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out models.QueryResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || out.Results[0].Citation != "notes.txt" {
		t.Errorf("response: %+v", out)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/status", nil)
	var st models.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Vectors != 1 || st.DiskBytes <= 0 || st.TextSource != search.TextFromCorpus {
		t.Errorf("status: %+v", st)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/keyword?q=warehouse", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("keyword without index: got %d", w.Code)
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clausecheck/internal/chunker"
	"clausecheck/internal/config"
	"clausecheck/internal/index"
	"clausecheck/internal/ingest"
	"clausecheck/internal/models"
	"clausecheck/internal/providers"
	"clausecheck/internal/scoring"
)

const testDim = 32

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Load()
	cfg.DataInRoot = t.TempDir()
	cfg.DataOutRoot = t.TempDir()

	mem := index.NewMemory(testDim)
	embedder := providers.NewMockProvider(testDim)
	pipeline := &ingest.Pipeline{
		Index:    mem,
		Embedder: embedder,
		Chunk:    chunker.Config{ChunkSize: 300, Overlap: 60, Lookahead: 40},
		EmbedDim: testDim,
	}
	analyzer := &scoring.Analyzer{
		Scorer: &scoring.Scorer{
			Retriever: &scoring.Retriever{
				Index:    mem,
				Embedder: embedder,
				TopK:     3,
				EmbedDim: testDim,
			},
			LLM:             providers.NewMockProvider(testDim),
			MaxContextChars: 4000,
		},
		MaxConcurrent: 2,
	}
	return NewServer(cfg, pipeline, analyzer, nil, nil)
}

func seedRegulations(t *testing.T, s *Server) {
	t.Helper()
	text := strings.Repeat("Termination requires thirty days written notice. Deletion requests must be honored.\n\n", 5)
	_, err := s.pipeline.IngestText(context.Background(), "reg-doc", "regulation.txt", text, models.SourceRegulation)
	require.NoError(t, err)
}

func TestHealthz(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestUploadRegulationInline(t *testing.T) {
	s := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "gdpr.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(strings.Repeat("Deletion requests must be honored within thirty days.\n\n", 8)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/regulations", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result ingest.DocumentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "gdpr.txt", result.Filename)
	assert.Greater(t, result.SegmentCount, 0)
}

func TestAnalyzeInline(t *testing.T) {
	s := testServer(t)
	seedRegulations(t, s)

	body := `{"contract_id":"contract-1","text":"SECTION 1. Termination\nEither party may terminate with five days notice.\n\nSECTION 2. Data\nDeletion requests are honored."}`
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "contract-1", report.ContractID)
	require.Len(t, report.Verdicts, 2)

	// The inline path also persists the report for later retrieval.
	getReq := httptest.NewRequest(http.MethodGet, "/reports/"+report.ReportID, nil)
	getRec := httptest.NewRecorder()
	s.Routes().ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"text":"  "}`))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportNotFound(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeAsyncWithoutTemporal(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/analyze/async", strings.NewReader(`{"text":"clause"}`))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

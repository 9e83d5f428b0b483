package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"clausecheck/internal/config"
	"clausecheck/internal/ingest"
	"clausecheck/internal/models"
	"clausecheck/internal/scoring"
	"clausecheck/internal/storage"
	"clausecheck/internal/util"
	"clausecheck/internal/workflows"
)

const maxUploadBytes = 32 << 20

// Server exposes the ingestion and analysis API. Temporal and the
// document repo are optional: without them uploads and analyses run
// inline in the request.
type Server struct {
	cfg      config.Config
	pipeline *ingest.Pipeline
	analyzer *scoring.Analyzer
	temporal client.Client
	docs     *storage.DocumentRepo
}

func NewServer(cfg config.Config, pipeline *ingest.Pipeline, analyzer *scoring.Analyzer, temporal client.Client, docs *storage.DocumentRepo) *Server {
	return &Server{cfg: cfg, pipeline: pipeline, analyzer: analyzer, temporal: temporal, docs: docs}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /regulations", s.handleUploadRegulation)
	mux.HandleFunc("POST /regulations/ingest", s.handleIngestCorpus)
	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /analyze/async", s.handleAnalyzeAsync)
	mux.HandleFunc("GET /reports/{id}", s.handleGetReport)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	return withCORS(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUploadRegulation accepts one multipart document, stores it under
// the inbox and ingests it. With Temporal configured the ingestion runs
// as a workflow and the handler returns immediately.
func (s *Server) handleUploadRegulation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	inbox := filepath.Join(s.cfg.DataInRoot, "regulations")
	if err := util.EnsureDir(inbox); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	dest := util.SafeJoin(inbox, header.Filename)
	out, err := os.Create(dest)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
		return
	}
	out.Close()

	if s.temporal != nil {
		run, err := s.temporal.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
			ID:        "ingest-doc-" + uuid.NewString(),
			TaskQueue: s.cfg.TemporalTaskQueue,
		}, workflows.DocumentIngestWorkflow, workflows.DocumentIngestInput{
			Path:       dest,
			SourceType: models.SourceRegulation,
		})
		if err != nil {
			writeErr(w, http.StatusBadGateway, fmt.Errorf("start ingestion: %w", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"workflow_id": run.GetID(),
			"filename":    header.Filename,
		})
		return
	}

	doc, err := s.pipeline.IngestFile(r.Context(), dest, models.SourceRegulation)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// handleIngestCorpus (re)ingests every document in the regulation inbox.
func (s *Server) handleIngestCorpus(w http.ResponseWriter, r *http.Request) {
	dir := filepath.Join(s.cfg.DataInRoot, "regulations")
	if s.temporal != nil {
		run, err := s.temporal.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
			ID:        "ingest-corpus-" + uuid.NewString(),
			TaskQueue: s.cfg.TemporalTaskQueue,
		}, workflows.CorpusIngestWorkflow, workflows.CorpusIngestInput{
			Dir:         dir,
			SourceType:  models.SourceRegulation,
			MaxParallel: s.cfg.IngestMaxChildren,
		})
		if err != nil {
			writeErr(w, http.StatusBadGateway, fmt.Errorf("start corpus ingestion: %w", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"workflow_id": run.GetID()})
		return
	}

	result, err := s.pipeline.IngestDir(r.Context(), dir, models.SourceRegulation)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		writeErr(w, http.StatusServiceUnavailable, errors.New("document tracking requires a database"))
		return
	}
	sourceType := models.SourceType(r.URL.Query().Get("source_type"))
	docs, err := s.docs.List(r.Context(), sourceType)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

type analyzeRequest struct {
	ContractID string `json:"contract_id,omitempty"`
	Text       string `json:"text"`
}

func (s *Server) readAnalyzeRequest(r *http.Request) (analyzeRequest, error) {
	var req analyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		return analyzeRequest{}, fmt.Errorf("decode request: %w", err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return analyzeRequest{}, errors.New("text is required")
	}
	if req.ContractID == "" {
		req.ContractID = uuid.NewString()
	}
	return req, nil
}

// handleAnalyze scores a contract inline and returns the full report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := s.readAnalyzeRequest(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	report, err := s.analyzer.Analyze(r.Context(), req.ContractID, req.Text)
	if err != nil {
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	if err := s.writeReportArtifact(report); err != nil {
		log.Printf("persist report %s: %v", report.ReportID, err)
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAnalyzeAsync starts an analysis workflow and returns its ID.
func (s *Server) handleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, errors.New("async analysis requires temporal"))
		return
	}
	req, err := s.readAnalyzeRequest(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	run, err := s.temporal.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
		ID:        "analyze-" + req.ContractID,
		TaskQueue: s.cfg.TemporalTaskQueue,
	}, workflows.ContractAnalysisWorkflow, workflows.ContractAnalysisInput{
		ContractID:  req.ContractID,
		Text:        req.Text,
		MaxParallel: s.cfg.MaxConcurrentClauses,
	})
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("start analysis: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"workflow_id": run.GetID(),
		"contract_id": req.ContractID,
	})
}

// handleGetReport serves a previously written report artifact.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" || strings.ContainsAny(id, "/\\.") {
		writeErr(w, http.StatusBadRequest, errors.New("invalid report id"))
		return
	}
	path := filepath.Join(s.cfg.DataOutRoot, "reports", id+".json")
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		writeErr(w, http.StatusNotFound, fmt.Errorf("report %s not found", id))
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// handleGetRun reports the state of an async workflow. Running analysis
// workflows also expose their clause progress.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, errors.New("run tracking requires temporal"))
		return
	}
	id := r.PathValue("id")
	desc, err := s.temporal.DescribeWorkflowExecution(r.Context(), id, "")
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("run %s: %w", id, err))
		return
	}
	info := desc.GetWorkflowExecutionInfo()
	resp := map[string]any{
		"workflow_id": id,
		"status":      info.GetStatus().String(),
	}
	if info.GetStatus() == enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING {
		if value, err := s.temporal.QueryWorkflow(r.Context(), id, "", workflows.ProgressQuery); err == nil {
			var progress workflows.Progress
			if err := value.Get(&progress); err == nil {
				resp["progress"] = progress
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeReportArtifact(report models.Report) error {
	path := filepath.Join(s.cfg.DataOutRoot, "reports", report.ReportID+".json")
	return util.WriteJSONAtomic(path, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe runs the server with sane timeouts until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.APIAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

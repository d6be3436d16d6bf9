package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/api/middleware"
	infra "github.com/dvloznov/settlement-tracker/internal/infra/bigquery"
	"github.com/dvloznov/settlement-tracker/internal/gcsuploader"
	"github.com/dvloznov/settlement-tracker/internal/jobs"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of the workbook size cap for the
// multipart envelope.
const multipartOverhead = 1 << 20

// SettlementParser parses settlement workbooks.
type SettlementParser interface {
	ProcessSettlement(ctx context.Context, r io.Reader) (*pipeline.Result, error)
	MaxInputBytes() int64
}

// SettlementsHandler handles settlement upload and ingestion endpoints.
type SettlementsHandler struct {
	parser    SettlementParser
	publisher jobs.Publisher
}

// NewSettlementsHandler creates a new settlements handler.
func NewSettlementsHandler(parser SettlementParser, publisher jobs.Publisher) *SettlementsHandler {
	return &SettlementsHandler{
		parser:    parser,
		publisher: publisher,
	}
}

// Parse handles POST /api/settlements/parse
// The workbook is read from the multipart field "file" and the parsed
// records are returned without being stored.
func (h *SettlementsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.parser.MaxInputBytes()+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Multipart field \"file\" is required")
		return
	}
	defer file.Close()

	result, err := h.parser.ProcessSettlement(ctx, file)
	if err != nil {
		status := statusForError(err)
		log.Error().Err(err).Str("filename", header.Filename).Int("status", status).Msg("Failed to parse settlement")
		middleware.WriteError(w, status, messageForStatus(status))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"import_id":    result.ImportID,
		"filename":     header.Filename,
		"checksum":     result.Checksum,
		"format":       result.Format,
		"year":         result.Year,
		"header_found": result.HeaderFound,
		"header_row":   result.HeaderRow,
		"columns":      result.Columns,
		"stats":        result.Stats,
		"records":      result.Records,
		"count":        len(result.Records),
	})
}

// EnqueueIngestion handles POST /api/settlements/ingest
func (h *SettlementsHandler) EnqueueIngestion(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Ingestion is not configured")
		return
	}

	var req struct {
		GCSURI string `json:"gcs_uri"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, _, err := gcsuploader.ParseGCSURI(req.GCSURI); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri must look like gs://bucket/object")
		return
	}

	ctx := r.Context()
	log := logger.FromContext(ctx)

	job := &jobs.IngestSettlementJob{GCSURI: req.GCSURI}
	if err := h.publisher.PublishIngestSettlement(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue ingestion job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue ingestion job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("gcs_uri", req.GCSURI).Msg("Ingestion job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": req.GCSURI,
		"status":  string(job.Status),
	})
}

// statusForError maps processing errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, pipeline.ErrEmptyWorkbook):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageForStatus(status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return "File is too large"
	case http.StatusUnsupportedMediaType:
		return "File is not an .xls or .xlsx workbook"
	case http.StatusUnprocessableEntity:
		return "Workbook has no sheets"
	default:
		return "Failed to parse settlement"
	}
}

// ImportsReader lists imports.
type ImportsReader interface {
	ListImports(ctx context.Context) ([]*infra.ImportRow, error)
}

// ImportsHandler handles import-related endpoints.
type ImportsHandler struct {
	repo ImportsReader
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(repo ImportsReader) *ImportsHandler {
	return &ImportsHandler{repo: repo}
}

// ListImports handles GET /api/imports
func (h *ImportsHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	imports, err := h.repo.ListImports(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list imports")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list imports")
		return
	}

	if imports == nil {
		imports = []*infra.ImportRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"imports": imports,
		"count":   len(imports),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		GCSURI: query.Get("gcs_uri"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/pipeline"
)

// ingestStatus is the status message reported after a successful batch.
const ingestStatus = "documents ingested successfully"

// Ingestor accepts a batch of uploaded files and returns the generated
// document IDs in upload order.
type Ingestor interface {
	Ingest(ctx context.Context, uploads []pipeline.Upload) ([]string, error)
}

// Retriever answers similarity queries against the corpus.
type Retriever interface {
	Query(ctx context.Context, text string) ([]api.QueryResult, error)
}

// Lister returns the full corpus in insertion order.
type Lister interface {
	List(ctx context.Context) ([]api.ListEntry, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler routes the document store API. It parses requests, dispatches
// to the pipelines, and serializes responses.
type Handler struct {
	ingestor  Ingestor
	retriever Retriever
	lister    Lister
	health    HealthChecker
	logger    *slog.Logger
	mux       *http.ServeMux

	maxBodySize int64
}

// NewHandler creates the API handler over the given pipelines. The
// health checker is optional; when nil, /healthz only reports process
// liveness.
func NewHandler(ingestor Ingestor, retriever Retriever, lister Lister, health HealthChecker, logger *slog.Logger, maxBodySize int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		ingestor:    ingestor,
		retriever:   retriever,
		lister:      lister,
		health:      health,
		logger:      logger,
		mux:         http.NewServeMux(),
		maxBodySize: maxBodySize,
	}

	h.mux.HandleFunc("POST /ingest/{$}", h.handleIngest)
	h.mux.HandleFunc("GET /query/{$}", h.handleQuery)
	h.mux.HandleFunc("GET /database/{$}", h.handleList)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handleIngest handles POST /ingest/. Files arrive as the repeated
// multipart field "files".
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := r.ParseMultipartForm(h.maxBodySize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteErrorResponse(w,
				api.NewInvalidRequestError("files", fmt.Sprintf("request body too large (max %d bytes)", h.maxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		WriteAPIError(w, api.NewInvalidRequestError("files", "invalid multipart form: "+err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		WriteAPIError(w, api.NewInvalidRequestError("files", "at least one file is required"))
		return
	}

	uploads := make([]pipeline.Upload, 0, len(headers))
	for _, hdr := range headers {
		data, err := readUpload(hdr)
		if err != nil {
			WriteAPIError(w, api.NewInvalidRequestError("files", "reading file "+hdr.Filename+": "+err.Error()))
			return
		}
		uploads = append(uploads, pipeline.Upload{Filename: hdr.Filename, Data: data})
	}

	ids, err := h.ingestor.Ingest(r.Context(), uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, api.IngestResponse{Status: ingestStatus, IDs: ids})
}

// handleQuery handles GET /query/?search_text=...
// The search_text parameter must be present; an empty value is a valid
// query and is embedded like any other text.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("search_text") {
		WriteAPIError(w, api.NewInvalidRequestError("search_text", "search_text query parameter is required"))
		return
	}

	results, err := h.retriever.Query(r.Context(), q.Get("search_text"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []api.QueryResult{}
	}

	h.writeJSON(w, api.QueryResponse{Results: results})
}

// handleList handles GET /database/.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lister.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []api.ListEntry{}
	}

	h.writeJSON(w, api.ListResponse{Documents: entries})
}

// handleHealth handles GET /healthz.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.HealthCheck(r.Context()); err != nil {
			h.logger.Error("health check failed", slog.String("error", err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
	}
	h.writeJSON(w, map[string]string{"status": "ok"})
}

// writeError translates a pipeline error into an HTTP response. Errors
// that are not APIErrors are logged and reported as an opaque server
// error so internal details never reach the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		WriteAPIError(w, apiErr)
		return
	}

	h.logger.Error("request failed",
		slog.String("request_id", RequestIDFromContext(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	WriteAPIError(w, api.NewServerError("internal server error"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// readUpload reads one multipart file into memory.
func readUpload(hdr *multipart.FileHeader) ([]byte, error) {
	f, err := hdr.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

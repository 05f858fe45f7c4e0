package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
	"github.com/finqa/investor-qa/internal/observability/metrics"
)

const serviceName = "api"

// Options carry the request-handling defaults and limits the router needs.
type Options struct {
	DefaultChunkSize    int
	DefaultChunkOverlap int
	DefaultTopK         int
	DefaultProvider     string
	MaxUploadBytes      int64
	RateLimitRPS        float64
	RateLimitBurst      int
	MaxInFlight         int
	MaxInFlightWait     time.Duration
}

type Router struct {
	ingestUC ports.DocumentIngestor
	queryUC  ports.QuestionAnswerer
	resetUC  ports.CorpusResetter
	reader   ports.DocumentReader
	metrics  *metrics.HTTPServerMetrics
	opts     Options
}

func NewRouter(
	ingestUC ports.DocumentIngestor,
	queryUC ports.QuestionAnswerer,
	resetUC ports.CorpusResetter,
	reader ports.DocumentReader,
	m *metrics.HTTPServerMetrics,
	opts Options,
) *Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Router{
		ingestUC: ingestUC,
		queryUC:  queryUC,
		resetUC:  resetUC,
		reader:   reader,
		metrics:  m,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/query", rt.query)
	mux.HandleFunc("/v1/reset", rt.reset)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.opts.MaxInFlight > 0 {
		wait := rt.opts.MaxInFlightWait
		if wait <= 0 {
			wait = 200 * time.Millisecond
		}
		handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, wait)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	confidential, err := formBool(r, "confidential", false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field 'confidential' must be a boolean"})
		return
	}
	chunkSize, err := formInt(r, "chunk_size", rt.opts.DefaultChunkSize)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field 'chunk_size' must be an integer"})
		return
	}
	chunkOverlap, err := formInt(r, "chunk_overlap", rt.opts.DefaultChunkOverlap)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field 'chunk_overlap' must be an integer"})
		return
	}

	doc, err := rt.ingestUC.Upload(r.Context(), ports.UploadRequest{
		Filename:     fileHeader.Filename,
		Confidential: confidential,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Body:         file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.reader.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	settings := domain.QuerySettings{
		ChunkSize:    req.Settings.ChunkSize,
		ChunkOverlap: req.Settings.ChunkOverlap,
		MaxChunks:    req.Settings.MaxChunks,
		Provider:     req.Settings.Provider,
	}
	if settings.ChunkSize == 0 {
		settings.ChunkSize = rt.opts.DefaultChunkSize
		if req.Settings.ChunkOverlap == 0 {
			settings.ChunkOverlap = rt.opts.DefaultChunkOverlap
		}
	}
	if settings.MaxChunks == 0 {
		settings.MaxChunks = rt.opts.DefaultTopK
	}
	if settings.Provider == "" {
		settings.Provider = rt.opts.DefaultProvider
	}

	start := time.Now()
	answer, err := rt.queryUC.Ask(r.Context(), req.Question, settings)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQuery(
			serviceName,
			req.Settings.Provider,
			answer.ProviderUsed,
			answer.ChunksFound,
			answer.ConfidenceUnparsed,
			time.Since(start),
		)
	}
	writeJSON(w, http.StatusOK, toAnswerResponse(answer))
}

func (rt *Router) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := rt.resetUC.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func formBool(r *http.Request, field string, fallback bool) (bool, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func formInt(r *http.Request, field string, fallback int) (int, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

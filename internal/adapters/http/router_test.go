package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
)

type ingestFake struct {
	lastReq ports.UploadRequest
	err     error
}

func (f *ingestFake) Upload(_ context.Context, req ports.UploadRequest) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastReq = req
	if _, err := io.ReadAll(req.Body); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &domain.Document{
		ID:           "doc-1",
		Filename:     req.Filename,
		StoragePath:  "doc-1_file.txt",
		Confidential: req.Confidential,
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
		Status:       domain.StatusUploaded,
		UploadedAt:   now,
		UpdatedAt:    now,
	}, nil
}

type answerFake struct {
	lastSettings domain.QuerySettings
	answer       *domain.Answer
	err          error
}

func (f *answerFake) Ask(_ context.Context, question string, settings domain.QuerySettings) (*domain.Answer, error) {
	f.lastSettings = settings
	if f.err != nil {
		return nil, f.err
	}
	if f.answer != nil {
		return f.answer, nil
	}
	return &domain.Answer{
		Question:     question,
		Text:         "fine",
		Confidence:   80,
		Sources:      []domain.Source{{Filename: "a.pdf", RelevanceScore: 87.3, Preview: "p"}},
		ChunksFound:  1,
		ProviderUsed: "claude",
	}, nil
}

type resetFake struct {
	called bool
	err    error
}

func (f *resetFake) Reset(_ context.Context) error {
	f.called = true
	return f.err
}

type readerFake struct {
	docs []domain.Document
	err  error
}

func (f *readerFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
}

func (f *readerFake) List(_ context.Context) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type handlerFixture struct {
	ingest *ingestFake
	answer *answerFake
	reset  *resetFake
	repo   *readerFake
}

func newTestHandler(opts Options) (http.Handler, *handlerFixture) {
	fx := &handlerFixture{
		ingest: &ingestFake{},
		answer: &answerFake{},
		reset:  &resetFake{},
		repo:   &readerFake{},
	}
	if opts.DefaultChunkSize == 0 {
		opts.DefaultChunkSize = 4000
	}
	if opts.DefaultChunkOverlap == 0 {
		opts.DefaultChunkOverlap = 400
	}
	if opts.DefaultTopK == 0 {
		opts.DefaultTopK = 5
	}
	router := NewRouter(fx.ingest, fx.answer, fx.reset, fx.repo, nil, opts)
	return router.Handler(), fx
}

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler, _ := newTestHandler(Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler, fx := newTestHandler(Options{})
	body, contentType := multipartUpload(t, map[string]string{
		"confidential": "true",
		"chunk_size":   "2000",
	}, "file.txt", "hello")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if !fx.ingest.lastReq.Confidential {
		t.Fatalf("confidential flag lost in transport")
	}
	if fx.ingest.lastReq.ChunkSize != 2000 {
		t.Fatalf("chunk size override lost, got %d", fx.ingest.lastReq.ChunkSize)
	}
	if fx.ingest.lastReq.ChunkOverlap != 400 {
		t.Fatalf("chunk overlap default not applied, got %d", fx.ingest.lastReq.ChunkOverlap)
	}

	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" || docResp["confidential"] != true {
		t.Fatalf("unexpected response: %+v", docResp)
	}
}

func TestUploadDocumentMissingFileField(t *testing.T) {
	handler, _ := newTestHandler(Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentBadChunkSize(t *testing.T) {
	handler, _ := newTestHandler(Options{})
	body, contentType := multipartUpload(t, map[string]string{"chunk_size": "not-a-number"}, "f.txt", "x")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListDocuments(t *testing.T) {
	handler, fx := newTestHandler(Options{})
	fx.repo.docs = []domain.Document{
		{ID: "doc-1", Filename: "a.pdf", Status: domain.StatusReady},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var listResp struct {
		Documents []map[string]any `json:"documents"`
	}
	if err := json.NewDecoder(res.Body).Decode(&listResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listResp.Documents) != 1 || listResp.Documents[0]["id"] != "doc-1" {
		t.Fatalf("unexpected list: %+v", listResp)
	}
}

func TestGetDocumentByIDNotFound(t *testing.T) {
	handler, _ := newTestHandler(Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestQuerySuccessAppliesDefaults(t *testing.T) {
	handler, fx := newTestHandler(Options{DefaultProvider: "claude"})

	payload := bytes.NewBufferString(`{"question":"revenue?"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/query", payload)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if fx.answer.lastSettings.ChunkSize != 4000 || fx.answer.lastSettings.MaxChunks != 5 {
		t.Fatalf("defaults not applied: %+v", fx.answer.lastSettings)
	}
	if fx.answer.lastSettings.Provider != "claude" {
		t.Fatalf("default provider not applied: %q", fx.answer.lastSettings.Provider)
	}

	var answerResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&answerResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if answerResp["answer"] != "fine" || answerResp["provider_used"] != "claude" {
		t.Fatalf("unexpected answer payload: %+v", answerResp)
	}
}

func TestQueryForwardsClientSettings(t *testing.T) {
	handler, fx := newTestHandler(Options{DefaultProvider: "claude"})

	payload := bytes.NewBufferString(`{
		"question": "revenue?",
		"settings": {"chunkSize": 1000, "chunkOverlap": 100, "maxChunks": 2, "provider": "gemini-pro"}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/query", payload)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	want := domain.QuerySettings{ChunkSize: 1000, ChunkOverlap: 100, MaxChunks: 2, Provider: "gemini-pro"}
	if fx.answer.lastSettings != want {
		t.Fatalf("client settings not forwarded: got %+v, want %+v", fx.answer.lastSettings, want)
	}
}

func TestQueryMissingQuestion(t *testing.T) {
	handler, _ := newTestHandler(Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewBufferString(`{"question":"  "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryInvalidSettingsMapsTo400(t *testing.T) {
	handler, fx := newTestHandler(Options{})
	fx.answer.err = domain.WrapError(domain.ErrInvalidConfiguration, "query", errors.New("overlap >= size"))

	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewBufferString(`{"question":"q"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryEmbeddingDownMapsTo503(t *testing.T) {
	handler, fx := newTestHandler(Options{})
	fx.answer.err = domain.WrapError(domain.ErrEmbeddingUnavailable, "embed", errors.New("ollama down"))

	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewBufferString(`{"question":"q"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestQueryExhaustedProvidersMapsTo502WithAttempts(t *testing.T) {
	handler, fx := newTestHandler(Options{})
	fx.answer.err = &domain.ProvidersExhaustedError{
		Attempts: []domain.ProviderFailure{
			{Provider: "claude", Reason: "timeout"},
			{Provider: "openai-gpt4", Reason: "rate limited"},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewBufferString(`{"question":"q"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
	var parsed map[string]any
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	attempts, ok := parsed["attempts"].([]any)
	if !ok || len(attempts) != 2 {
		t.Fatalf("expected per-provider attempts, got %+v", parsed)
	}
}

func TestResetEndpoint(t *testing.T) {
	handler, fx := newTestHandler(Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/reset", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !fx.reset.called {
		t.Fatalf("reset use case not invoked")
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/reset", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", res.Code)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler, _ := newTestHandler(Options{RateLimitRPS: 1, RateLimitBurst: 1})

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated gate, got %d", res2.Code)
	}

	close(release)
	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("held request expected 204, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("held request never finished")
	}
}

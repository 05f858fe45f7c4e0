package usecase

import (
	"bytes"
	"context"
	"io"

	"github.com/finqa/investor-qa/internal/core/domain"
)

type stubRepo struct {
	docs            map[string]*domain.Document
	created         []*domain.Document
	statusCalls     []statusCall
	chunkCounts     map[string]int
	confidentialIDs []string
	deleteAllKeys   []string
	deleteAllCalled bool

	createErr      error
	getErr         error
	statusErr      error
	setCountErr    error
	deleteAllErr   error
	confidentalErr error
}

type statusCall struct {
	id      string
	status  domain.DocumentStatus
	message string
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		docs:        make(map[string]*domain.Document),
		chunkCounts: make(map[string]int),
	}
}

func (r *stubRepo) Create(_ context.Context, doc *domain.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, doc)
	r.docs[doc.ID] = doc
	return nil
}

func (r *stubRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *stubRepo) List(_ context.Context) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (r *stubRepo) ConfidentialIDs(_ context.Context) ([]string, error) {
	if r.confidentalErr != nil {
		return nil, r.confidentalErr
	}
	return r.confidentialIDs, nil
}

func (r *stubRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, message string) error {
	if r.statusErr != nil {
		return r.statusErr
	}
	r.statusCalls = append(r.statusCalls, statusCall{id: id, status: status, message: message})
	return nil
}

func (r *stubRepo) SetChunkCount(_ context.Context, id string, count int) error {
	if r.setCountErr != nil {
		return r.setCountErr
	}
	r.chunkCounts[id] = count
	return nil
}

func (r *stubRepo) DeleteAll(_ context.Context) ([]string, error) {
	if r.deleteAllErr != nil {
		return nil, r.deleteAllErr
	}
	r.deleteAllCalled = true
	return r.deleteAllKeys, nil
}

type stubStorage struct {
	saved    map[string][]byte
	deleted  []string
	saveErr  error
	openErr  error
	deleteAt map[string]error
}

func newStubStorage() *stubStorage {
	return &stubStorage{
		saved:    make(map[string][]byte),
		deleteAt: make(map[string]error),
	}
}

func (s *stubStorage) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	s.saved[key] = body
	return int64(len(body)), nil
}

func (s *stubStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return io.NopCloser(bytes.NewReader(s.saved[key])), nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	if err := s.deleteAt[key]; err != nil {
		return err
	}
	s.deleted = append(s.deleted, key)
	return nil
}

type stubQueue struct {
	published  []string
	publishErr error
}

func (q *stubQueue) PublishDocumentUploaded(_ context.Context, documentID string) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, documentID)
	return nil
}

func (q *stubQueue) SubscribeDocumentUploaded(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

type stubExtractor struct {
	text string
	err  error
}

func (e *stubExtractor) Extract(_ context.Context, _ *domain.Document) (string, error) {
	return e.text, e.err
}

type stubChunker struct {
	chunks []string
	err    error
}

func (c *stubChunker) Split(_ string, _, _ int) ([]string, error) {
	return c.chunks, c.err
}

type stubEmbedder struct {
	vectors     [][]float32
	queryVector []float32
	embedErr    error
	queryErr    error
	embedCalls  int
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.embedCalls++
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	if e.vectors != nil {
		return e.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	if e.queryVector != nil {
		return e.queryVector, nil
	}
	return []float32{1, 0}, nil
}

type stubVectorStore struct {
	upserted      map[string][]domain.Chunk
	searchResult  []domain.RetrievedChunk
	searchErr     error
	upsertErr     error
	deleteErr     error
	deleteCalled  bool
	lastK         int
	lastExcluded  []string
	lastQueryVec  []float32
	upsertedCalls int
}

func newStubVectorStore() *stubVectorStore {
	return &stubVectorStore{upserted: make(map[string][]domain.Chunk)}
}

func (v *stubVectorStore) UpsertChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if v.upsertErr != nil {
		return v.upsertErr
	}
	v.upsertedCalls++
	v.upserted[doc.ID] = chunks
	return nil
}

func (v *stubVectorStore) SimilaritySearch(_ context.Context, queryVector []float32, k int, excluded []string) ([]domain.RetrievedChunk, error) {
	if v.searchErr != nil {
		return nil, v.searchErr
	}
	v.lastQueryVec = queryVector
	v.lastK = k
	v.lastExcluded = excluded
	return v.searchResult, nil
}

func (v *stubVectorStore) DeleteAll(_ context.Context) error {
	if v.deleteErr != nil {
		return v.deleteErr
	}
	v.deleteCalled = true
	return nil
}

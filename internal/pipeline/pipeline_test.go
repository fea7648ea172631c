package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/config"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/constants"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/extractor"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/storage"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/storage/models"
)

const sampleCV = `Jean Dupont
jean.dupont@example.com
Tel : 06 12 34 56 78

Compétences :
Python, SQL, Docker

Expérience professionnelle
Développeur backend chez Acme (2019 - 2022)

Formation
Master Informatique - Université de Lyon

Langues :
Français : natif
Anglais : courant
`

type mockCandidateStore struct {
	mu      sync.Mutex
	rows    map[string]*models.Candidat // keyed by candidat_id
	updates map[string]map[string]interface{}
}

func newMockCandidateStore() *mockCandidateStore {
	return &mockCandidateStore{
		rows:    make(map[string]*models.Candidat),
		updates: make(map[string]map[string]interface{}),
	}
}

func (m *mockCandidateStore) FindCandidatByEmail(ctx context.Context, email string) (*models.Candidat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Email != nil && *row.Email == email {
			return row, nil
		}
	}
	return nil, nil
}

func (m *mockCandidateStore) InsertCandidat(ctx context.Context, row *models.Candidat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.Email != nil {
		for _, existing := range m.rows {
			if existing.Email != nil && *existing.Email == *row.Email {
				return fmt.Errorf("inserting candidat: %w", storage.ErrDuplicateEmail)
			}
		}
	}
	m.rows[row.CandidatID] = row
	return nil
}

func (m *mockCandidateStore) UpdateCandidatFields(ctx context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("candidat %s not found", id)
	}
	m.updates[id] = fields
	return nil
}

type mockDocumentStore struct {
	mu       sync.Mutex
	docs     map[string]*models.CVDocument // keyed by document_id
	statuses map[string][]string
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{
		docs:     make(map[string]*models.CVDocument),
		statuses: make(map[string][]string),
	}
}

func (m *mockDocumentStore) CreateCVDocument(ctx context.Context, doc *models.CVDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.DocumentID] = doc
	m.statuses[doc.DocumentID] = append(m.statuses[doc.DocumentID], doc.Status)
	return nil
}

func (m *mockDocumentStore) FindCVDocumentByObject(ctx context.Context, bucket, objectKey string) (*models.CVDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if doc.Bucket == bucket && doc.ObjectKey == objectKey {
			return doc, nil
		}
	}
	return nil, nil
}

func (m *mockDocumentStore) UpdateCVDocumentStatus(ctx context.Context, documentID, status string, failureReason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return fmt.Errorf("document %s not found", documentID)
	}
	doc.Status = status
	doc.FailureReason = failureReason
	m.statuses[documentID] = append(m.statuses[documentID], status)
	return nil
}

func (m *mockDocumentStore) UpdateCVDocumentFields(ctx context.Context, documentID string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return fmt.Errorf("document %s not found", documentID)
	}
	if status, ok := fields["status"].(string); ok {
		doc.Status = status
		m.statuses[documentID] = append(m.statuses[documentID], status)
	}
	if candidatID, ok := fields["candidat_id"].(string); ok {
		doc.CandidatID = &candidatID
	}
	if textMD5, ok := fields["text_md5"].(string); ok {
		doc.TextMD5 = textMD5
	}
	if format, ok := fields["format"].(string); ok {
		doc.Format = format
	}
	return nil
}

type mockBlobStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	parsedText map[string]string
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{
		objects:    make(map[string][]byte),
		parsedText: make(map[string]string),
	}
}

func (m *mockBlobStore) DownloadCV(ctx context.Context, objectKey string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectKey)
	}
	return data, nil
}

func (m *mockBlobStore) UploadParsedText(ctx context.Context, documentID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parsedText[documentID] = text
	return "cv/" + documentID + "/parsed_text.txt", nil
}

func (m *mockBlobStore) ListCVs(ctx context.Context, prefix string) ([]storage.CVObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.CVObject
	for key, data := range m.objects {
		out = append(out, storage.CVObject{Key: key, Size: int64(len(data)), LastModified: time.Now()})
	}
	return out, nil
}

func (m *mockBlobStore) OriginalsBucket() string {
	return "cv-originals"
}

type mockDedupCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMockDedupCache() *mockDedupCache {
	return &mockDedupCache{seen: make(map[string]bool)}
}

func (m *mockDedupCache) IsTextSeen(ctx context.Context, textMD5 string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[textMD5], nil
}

func (m *mockDedupCache) MarkTextSeen(ctx context.Context, textMD5 string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[textMD5] = true
	return nil
}

type testEnv struct {
	candidates *mockCandidateStore
	documents  *mockDocumentStore
	blobs      *mockBlobStore
	dedup      *mockDedupCache
	pipeline   *Pipeline
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		candidates: newMockCandidateStore(),
		documents:  newMockDocumentStore(),
		blobs:      newMockBlobStore(),
		dedup:      newMockDedupCache(),
	}
	env.pipeline = NewPipeline(
		env.candidates, env.documents, env.blobs, env.dedup,
		extractor.New(),
		config.PipelineConfig{Workers: 2, SkipDuplicateText: true},
	)
	return env
}

func uploadEvent(key string) *storage.CVUploadedEvent {
	return &storage.CVUploadedEvent{
		Bucket:           "cv-originals",
		ObjectKey:        key,
		OriginalFilename: "cv.txt",
		UploadedAt:       time.Now(),
	}
}

func TestProcessDocumentInsertsNewCandidate(t *testing.T) {
	env := newTestEnv(t)
	env.blobs.objects["cv/doc1/original.txt"] = []byte(sampleCV)

	result, err := env.pipeline.ProcessDocument(context.Background(), uploadEvent("cv/doc1/original.txt"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeInserted, result.Outcome)
	assert.NotEmpty(t, result.CandidatID)
	assert.Equal(t, 100, result.Score)

	row := env.candidates.rows[result.CandidatID]
	require.NotNil(t, row)
	require.NotNil(t, row.Email)
	assert.Equal(t, "jean.dupont@example.com", *row.Email)
	require.NotNil(t, row.Prenom)
	assert.Equal(t, "Jean", *row.Prenom)

	doc := env.documents.docs[result.DocumentID]
	require.NotNil(t, doc)
	assert.Equal(t, constants.StatusPersisted, doc.Status)
	require.NotNil(t, doc.CandidatID)
	assert.Equal(t, result.CandidatID, *doc.CandidatID)
	assert.NotEmpty(t, doc.TextMD5)
	assert.Equal(t, "txt", doc.Format)

	// Decoded text is archived next to the document.
	assert.Equal(t, sampleCV, env.blobs.parsedText[result.DocumentID])
	// The text is remembered for dedup.
	assert.True(t, env.dedup.seen[doc.TextMD5])
}

func TestProcessDocumentDuplicateTextSkips(t *testing.T) {
	env := newTestEnv(t)
	env.blobs.objects["cv/doc1/original.txt"] = []byte(sampleCV)
	env.dedup.seen[md5Hex(sampleCV)] = true

	result, err := env.pipeline.ProcessDocument(context.Background(), uploadEvent("cv/doc1/original.txt"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, result.Outcome)
	assert.Empty(t, env.candidates.rows)

	doc := env.documents.docs[result.DocumentID]
	require.NotNil(t, doc)
	assert.Equal(t, constants.StatusSkipped, doc.Status)
}

func TestProcessDocumentUpdatesExistingCandidate(t *testing.T) {
	env := newTestEnv(t)

	// First document: contact details only.
	first := "Jean Dupont\njean.dupont@example.com\n"
	env.blobs.objects["cv/doc1/original.txt"] = []byte(first)
	firstResult, err := env.pipeline.ProcessDocument(context.Background(), uploadEvent("cv/doc1/original.txt"))
	require.NoError(t, err)
	require.Equal(t, OutcomeInserted, firstResult.Outcome)

	// Second document for the same person adds skills and a phone.
	env.blobs.objects["cv/doc2/original.txt"] = []byte(sampleCV)
	secondResult, err := env.pipeline.ProcessDocument(context.Background(), uploadEvent("cv/doc2/original.txt"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeUpdated, secondResult.Outcome)
	assert.Equal(t, firstResult.CandidatID, secondResult.CandidatID)

	fields := env.candidates.updates[firstResult.CandidatID]
	require.NotNil(t, fields)
	assert.Contains(t, fields, "competences")
	assert.Contains(t, fields, "telephone")
	assert.Contains(t, fields, "score")
	assert.Contains(t, fields, "date_analyse")
}

func TestProcessDocumentUnsupportedFormatFails(t *testing.T) {
	env := newTestEnv(t)
	env.blobs.objects["cv/doc1/blob.bin"] = []byte{0x00, 0x01, 0xFF, 0xFE}

	_, err := env.pipeline.ProcessDocument(context.Background(), uploadEvent("cv/doc1/blob.bin"))
	require.Error(t, err)

	var pErr *ProcessError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StageDecode, pErr.Stage)

	doc, findErr := env.documents.FindCVDocumentByObject(context.Background(), "cv-originals", "cv/doc1/blob.bin")
	require.NoError(t, findErr)
	require.NotNil(t, doc)
	assert.Equal(t, constants.StatusFailed, doc.Status)
	require.NotNil(t, doc.FailureReason)
	assert.NotEmpty(t, *doc.FailureReason)
}

func TestProcessBatchReportsOneResultPerInput(t *testing.T) {
	env := newTestEnv(t)
	env.blobs.objects["cv/ok/original.txt"] = []byte(sampleCV)
	env.blobs.objects["cv/bad/original.bin"] = []byte{0x00, 0x01}

	events := []*storage.CVUploadedEvent{
		uploadEvent("cv/ok/original.txt"),
		uploadEvent("cv/bad/original.bin"),
		uploadEvent("cv/missing/original.txt"),
	}
	results := env.pipeline.ProcessBatch(context.Background(), events)

	require.Len(t, results, len(events))

	// Results keep input order: one success, one undecodable blob, one
	// missing object.
	assert.Equal(t, OutcomeInserted, results[0].Outcome)
	assert.Empty(t, results[0].Reason)

	assert.Equal(t, OutcomeFailed, results[1].Outcome)
	assert.NotEmpty(t, results[1].Reason)
	assert.NotEmpty(t, results[1].DocumentID, "failures after row creation keep their document id")

	assert.Equal(t, OutcomeFailed, results[2].Outcome)
	assert.NotEmpty(t, results[2].Reason)

	// The undecodable document stays FAILED for a later retry.
	doc, err := env.documents.FindCVDocumentByObject(context.Background(), "cv-originals", "cv/bad/original.bin")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, constants.StatusFailed, doc.Status)
}

func TestHandleUploadDelivery(t *testing.T) {
	env := newTestEnv(t)
	env.blobs.objects["cv/ok/original.txt"] = []byte(sampleCV)

	eventBody := func(key string) []byte {
		body, err := json.Marshal(uploadEvent(key))
		require.NoError(t, err)
		return body
	}

	tests := []struct {
		name    string
		body    []byte
		wantAck bool
	}{
		{name: "processed document acks", body: eventBody("cv/ok/original.txt"), wantAck: true},
		{name: "malformed event acks away", body: []byte("{not json"), wantAck: true},
		{name: "undecodable blob acks away", body: eventBody("cv/bad/original.bin"), wantAck: true},
		{name: "missing object requeues", body: eventBody("cv/missing/original.txt"), wantAck: false},
	}

	env.blobs.objects["cv/bad/original.bin"] = []byte{0x00, 0x01}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := env.pipeline.handleUploadDelivery(context.Background(), tt.body, time.Millisecond)
			assert.Equal(t, tt.wantAck, got)
		})
	}
}

func TestProcessDocumentEmptyTextIsLoggedNotFailed(t *testing.T) {
	env := newTestEnv(t)
	env.blobs.objects["cv/blank/original.txt"] = []byte("   \n\t\n   ")

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var logs bytes.Buffer
	testLogger := zerolog.New(&logs)
	ctx := testLogger.WithContext(context.Background())

	result, err := env.pipeline.ProcessDocument(ctx, uploadEvent("cv/blank/original.txt"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeInserted, result.Outcome)
	assert.Equal(t, 0, result.Score)
	assert.Contains(t, logs.String(), "document text is empty")
}

func TestProcessTextWithoutEmailAlwaysInserts(t *testing.T) {
	env := newTestEnv(t)

	text := "Marie Curie\nChercheuse en physique\n"
	first, err := env.pipeline.ProcessText(context.Background(), "local/cv1.txt", text)
	require.NoError(t, err)
	second, err := env.pipeline.ProcessText(context.Background(), "local/cv2.txt", text)
	require.NoError(t, err)

	assert.Equal(t, OutcomeInserted, first.Outcome)
	assert.Equal(t, OutcomeInserted, second.Outcome)
	assert.NotEqual(t, first.CandidatID, second.CandidatID, "records without email never merge")
	assert.Len(t, env.candidates.rows, 2)
}

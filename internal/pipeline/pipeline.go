// Package pipeline drives a document from uploaded bytes to a persisted
// candidate row: download, decode, extract, reconcile, persist, with the
// per-document state tracked in cv_documents.
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/candidate"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/config"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/constants"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/extractor"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/logger"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/parser"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/reconcile"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/storage"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/storage/models"
)

// CandidateStore is the candidate-row surface the pipeline needs from the
// relational store.
type CandidateStore interface {
	FindCandidatByEmail(ctx context.Context, email string) (*models.Candidat, error)
	InsertCandidat(ctx context.Context, row *models.Candidat) error
	UpdateCandidatFields(ctx context.Context, id string, fields map[string]interface{}) error
}

// DocumentStore tracks per-document processing state.
type DocumentStore interface {
	CreateCVDocument(ctx context.Context, doc *models.CVDocument) error
	FindCVDocumentByObject(ctx context.Context, bucket, objectKey string) (*models.CVDocument, error)
	UpdateCVDocumentStatus(ctx context.Context, documentID, status string, failureReason *string) error
	UpdateCVDocumentFields(ctx context.Context, documentID string, fields map[string]interface{}) error
}

// BlobStore reads uploads and keeps the decoded text next to them.
type BlobStore interface {
	DownloadCV(ctx context.Context, objectKey string) ([]byte, error)
	UploadParsedText(ctx context.Context, documentID, text string) (string, error)
	ListCVs(ctx context.Context, prefix string) ([]storage.CVObject, error)
	OriginalsBucket() string
}

// DedupCache remembers the MD5 of every decoded text already processed.
type DedupCache interface {
	IsTextSeen(ctx context.Context, textMD5 string) (bool, error)
	MarkTextSeen(ctx context.Context, textMD5 string) error
}

// Outcome of processing one document.
const (
	OutcomeInserted  = "inserted"
	OutcomeUpdated   = "updated"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Result summarizes one processed document. Reason is set only for failed
// outcomes.
type Result struct {
	DocumentID string
	Outcome    string
	CandidatID string
	Score      int
	Reason     string
}

// Pipeline wires the extraction engine to the stores. Safe for concurrent
// use; every document is independent.
type Pipeline struct {
	candidates CandidateStore
	documents  DocumentStore
	blobs      BlobStore
	dedup      DedupCache // nil disables text dedup
	extractor  *extractor.Extractor
	cfg        config.PipelineConfig
}

// NewPipeline assembles a pipeline. dedup may be nil.
func NewPipeline(candidates CandidateStore, documents DocumentStore, blobs BlobStore, dedup DedupCache, ext *extractor.Extractor, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		candidates: candidates,
		documents:  documents,
		blobs:      blobs,
		dedup:      dedup,
		extractor:  ext,
		cfg:        cfg,
	}
}

// ProcessDocument runs the full pipeline for one uploaded object. Failures
// after the tracking row exists mark it FAILED with the reason; the error is
// returned as well.
func (p *Pipeline) ProcessDocument(ctx context.Context, event *storage.CVUploadedEvent) (*Result, error) {
	doc, err := p.ensureDocumentRow(ctx, event)
	if err != nil {
		return nil, err
	}
	log := logger.Ctx(ctx).With().
		Str("document_id", doc.DocumentID).
		Str("object_key", doc.ObjectKey).
		Logger()

	result, err := p.runStages(ctx, doc)
	if err != nil {
		reason := err.Error()
		if stErr := p.documents.UpdateCVDocumentStatus(ctx, doc.DocumentID, constants.StatusFailed, &reason); stErr != nil {
			log.Error().Err(stErr).Msg("recording failure status failed")
		}
		log.Error().Err(err).Msg("document processing failed")
		return nil, err
	}

	log.Info().
		Str("outcome", result.Outcome).
		Str("candidat_id", result.CandidatID).
		Int("score", result.Score).
		Msg("document processed")
	return result, nil
}

// ensureDocumentRow finds or creates the tracking row for the event.
// Re-processing an already finished document is allowed: re-analysis after a
// rules upgrade goes through the same path.
func (p *Pipeline) ensureDocumentRow(ctx context.Context, event *storage.CVUploadedEvent) (*models.CVDocument, error) {
	existing, err := p.documents.FindCVDocumentByObject(ctx, event.Bucket, event.ObjectKey)
	if err != nil {
		return nil, stageErr(StageDownload, event.DocumentID, err)
	}
	if existing != nil {
		return existing, nil
	}

	documentID := event.DocumentID
	if documentID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, stageErr(StageDownload, "", fmt.Errorf("generating document id: %w", err))
		}
		documentID = id.String()
	}

	doc := &models.CVDocument{
		DocumentID:       documentID,
		Bucket:           event.Bucket,
		ObjectKey:        event.ObjectKey,
		OriginalFilename: event.OriginalFilename,
		Status:           constants.StatusDownloaded,
		ParserVersion:    constants.ParserVersion,
	}
	if err := p.documents.CreateCVDocument(ctx, doc); err != nil {
		return nil, stageErr(StageDownload, documentID, err)
	}
	return doc, nil
}

func (p *Pipeline) runStages(ctx context.Context, doc *models.CVDocument) (*Result, error) {
	data, err := p.blobs.DownloadCV(ctx, doc.ObjectKey)
	if err != nil {
		return nil, stageErr(StageDownload, doc.DocumentID, err)
	}

	format, err := parser.Sniff(data)
	if err != nil {
		return nil, stageErr(StageDecode, doc.DocumentID, err)
	}
	text, err := parser.DecodeText(data)
	if err != nil {
		return nil, stageErr(StageDecode, doc.DocumentID, err)
	}

	textMD5 := md5Hex(text)
	if err := p.documents.UpdateCVDocumentFields(ctx, doc.DocumentID, map[string]interface{}{
		"status":   constants.StatusDecoded,
		"format":   string(format),
		"text_md5": textMD5,
	}); err != nil {
		return nil, stageErr(StageDecode, doc.DocumentID, err)
	}

	if p.cfg.SkipDuplicateText && p.dedup != nil {
		seen, err := p.dedup.IsTextSeen(ctx, textMD5)
		if err != nil {
			// Dedup is an optimization; a cache error must not fail the
			// document.
			logger.Ctx(ctx).Warn().Err(err).Msg("text dedup check failed, continuing")
		} else if seen {
			if err := p.documents.UpdateCVDocumentStatus(ctx, doc.DocumentID, constants.StatusSkipped, nil); err != nil {
				return nil, stageErr(StagePersist, doc.DocumentID, err)
			}
			return &Result{DocumentID: doc.DocumentID, Outcome: OutcomeDuplicate}, nil
		}
	}

	if _, err := p.blobs.UploadParsedText(ctx, doc.DocumentID, text); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("storing parsed text failed, continuing")
	}

	if strings.TrimSpace(text) == "" {
		logger.Ctx(ctx).Debug().
			Str("document_id", doc.DocumentID).
			Msg("document text is empty, record will carry raw text only")
	}

	sourceRef := doc.Bucket + "/" + doc.ObjectKey
	record := p.extractor.ExtractCandidate(text, sourceRef)
	if err := p.documents.UpdateCVDocumentStatus(ctx, doc.DocumentID, constants.StatusExtracted, nil); err != nil {
		return nil, stageErr(StageExtract, doc.DocumentID, err)
	}

	result, err := p.persistRecord(ctx, doc, record)
	if err != nil {
		return nil, err
	}

	if p.dedup != nil {
		if err := p.dedup.MarkTextSeen(ctx, textMD5); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("recording text md5 failed")
		}
	}
	return result, nil
}

// persistRecord reconciles the record against the store and applies the
// decided action. An insert that loses the unique-email race is reconciled
// once more against the row that won.
func (p *Pipeline) persistRecord(ctx context.Context, doc *models.CVDocument, record *candidate.Record) (*Result, error) {
	for attempt := 0; ; attempt++ {
		action, err := reconcile.Reconcile(ctx, record, p.lookupByEmail)
		if err != nil {
			return nil, stageErr(StageReconcile, doc.DocumentID, err)
		}
		if err := p.documents.UpdateCVDocumentStatus(ctx, doc.DocumentID, constants.StatusReconciled, nil); err != nil {
			return nil, stageErr(StageReconcile, doc.DocumentID, err)
		}

		result, err := p.applyAction(ctx, doc, action)
		if errors.Is(err, storage.ErrDuplicateEmail) && attempt == 0 {
			// Lost the insert race: the winning row exists now, re-run the
			// lookup and update it instead.
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func (p *Pipeline) lookupByEmail(ctx context.Context, email string) (*reconcile.Existing, error) {
	row, err := p.candidates.FindCandidatByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	rec, err := row.ToRecord()
	if err != nil {
		return nil, fmt.Errorf("decoding stored candidat %s: %w", row.CandidatID, err)
	}
	return &reconcile.Existing{ID: row.CandidatID, Record: rec}, nil
}

func (p *Pipeline) applyAction(ctx context.Context, doc *models.CVDocument, action reconcile.Action) (*Result, error) {
	switch action.Type {
	case reconcile.ActionInsert:
		id, err := uuid.NewV7()
		if err != nil {
			return nil, stageErr(StagePersist, doc.DocumentID, fmt.Errorf("generating candidat id: %w", err))
		}
		row, err := models.CandidatFromRecord(id.String(), action.Record, constants.ParserVersion)
		if err != nil {
			return nil, stageErr(StagePersist, doc.DocumentID, err)
		}
		if err := p.candidates.InsertCandidat(ctx, row); err != nil {
			if errors.Is(err, storage.ErrDuplicateEmail) {
				return nil, err
			}
			return nil, stageErr(StagePersist, doc.DocumentID, err)
		}
		if err := p.finishDocument(ctx, doc, constants.StatusPersisted, row.CandidatID); err != nil {
			return nil, err
		}
		return &Result{
			DocumentID: doc.DocumentID,
			Outcome:    OutcomeInserted,
			CandidatID: row.CandidatID,
			Score:      action.Record.ConfidenceScore,
		}, nil

	case reconcile.ActionUpdate:
		if err := p.candidates.UpdateCandidatFields(ctx, action.ID, action.Fields); err != nil {
			return nil, stageErr(StagePersist, doc.DocumentID, err)
		}
		if err := p.finishDocument(ctx, doc, constants.StatusPersisted, action.ID); err != nil {
			return nil, err
		}
		score, _ := action.Fields["score"].(int)
		return &Result{
			DocumentID: doc.DocumentID,
			Outcome:    OutcomeUpdated,
			CandidatID: action.ID,
			Score:      score,
		}, nil

	case reconcile.ActionSkip:
		if err := p.finishDocument(ctx, doc, constants.StatusSkipped, ""); err != nil {
			return nil, err
		}
		return &Result{DocumentID: doc.DocumentID, Outcome: OutcomeSkipped}, nil

	default:
		return nil, stageErr(StagePersist, doc.DocumentID, fmt.Errorf("unknown action %q", action.Type))
	}
}

func (p *Pipeline) finishDocument(ctx context.Context, doc *models.CVDocument, status, candidatID string) error {
	fields := map[string]interface{}{
		"status":         status,
		"parser_version": constants.ParserVersion,
	}
	if candidatID != "" {
		fields["candidat_id"] = candidatID
	}
	if err := p.documents.UpdateCVDocumentFields(ctx, doc.DocumentID, fields); err != nil {
		return stageErr(StagePersist, doc.DocumentID, err)
	}
	return nil
}

// ProcessBatch processes events concurrently, bounded by the configured
// worker count. Every input event yields exactly one result, in input order:
// per-document failures become a failed result carrying the reason, the
// batch continues, and the tracking row stays FAILED for a later retry.
func (p *Pipeline) ProcessBatch(ctx context.Context, events []*storage.CVUploadedEvent) []*Result {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]*Result, len(events))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, event := range events {
		i, event := i, event
		g.Go(func() error {
			result, err := p.ProcessDocument(ctx, event)
			if err != nil {
				// Already logged and recorded on the tracking row.
				results[i] = failedResult(event, err)
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// failedResult maps a processing error to the result reported for its input
// event. The document id comes from the error when the tracking row was
// created before the failure.
func failedResult(event *storage.CVUploadedEvent, err error) *Result {
	documentID := event.DocumentID
	var pErr *ProcessError
	if errors.As(err, &pErr) && pErr.DocumentID != "" {
		documentID = pErr.DocumentID
	}
	return &Result{DocumentID: documentID, Outcome: OutcomeFailed, Reason: err.Error()}
}

// ProcessBucketPrefix processes every object under the given prefix of the
// originals bucket, for backfills and re-analysis runs.
func (p *Pipeline) ProcessBucketPrefix(ctx context.Context, prefix string) ([]*Result, error) {
	objects, err := p.blobs.ListCVs(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing bucket prefix %q: %w", prefix, err)
	}

	events := make([]*storage.CVUploadedEvent, 0, len(objects))
	for _, obj := range objects {
		events = append(events, &storage.CVUploadedEvent{
			Bucket:     p.blobs.OriginalsBucket(),
			ObjectKey:  obj.Key,
			UploadedAt: obj.LastModified,
		})
	}
	logger.Ctx(ctx).Info().Int("documents", len(events)).Str("prefix", prefix).Msg("starting batch")
	return p.ProcessBatch(ctx, events), nil
}

// StartUploadConsumer declares the upload topology and consumes upload
// events until the returned stop channel is closed. A handler returning
// false requeues the delivery, so transient store failures retry.
func (p *Pipeline) StartUploadConsumer(ctx context.Context, mq *storage.RabbitMQ, queueName string, prefetchCount int) (chan<- struct{}, error) {
	if err := mq.EnsureUploadTopology(); err != nil {
		return nil, fmt.Errorf("declaring upload topology: %w", err)
	}

	retryDelay := mq.RetryInterval()
	return mq.StartConsumer(queueName, prefetchCount, func(body []byte) bool {
		return p.handleUploadDelivery(ctx, body, retryDelay)
	})
}

// handleUploadDelivery processes one queue delivery. Returning false nacks
// the message back onto the queue after retryDelay, so transient store
// failures retry without redelivering in a hot loop.
func (p *Pipeline) handleUploadDelivery(ctx context.Context, body []byte, retryDelay time.Duration) bool {
	var event storage.CVUploadedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("malformed upload event, dropping")
		return true // unparseable messages never succeed, ack them away
	}
	if _, err := p.ProcessDocument(ctx, &event); err != nil {
		var pErr *ProcessError
		if errors.As(err, &pErr) && pErr.Stage == StageDecode {
			// Terminal per-document failure: requeueing cannot fix the
			// bytes.
			return true
		}
		time.Sleep(retryDelay)
		return false
	}
	return true
}

// ProcessText runs extraction and persistence over already decoded text,
// for local files and tests. No tracking row is involved.
func (p *Pipeline) ProcessText(ctx context.Context, sourceRef, text string) (*Result, error) {
	record := p.extractor.ExtractCandidate(text, sourceRef)

	action, err := reconcile.Reconcile(ctx, record, p.lookupByEmail)
	if err != nil {
		return nil, fmt.Errorf("reconciling %s: %w", sourceRef, err)
	}

	switch action.Type {
	case reconcile.ActionInsert:
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating candidat id: %w", err)
		}
		row, err := models.CandidatFromRecord(id.String(), action.Record, constants.ParserVersion)
		if err != nil {
			return nil, err
		}
		if err := p.candidates.InsertCandidat(ctx, row); err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeInserted, CandidatID: row.CandidatID, Score: record.ConfidenceScore}, nil
	case reconcile.ActionUpdate:
		if err := p.candidates.UpdateCandidatFields(ctx, action.ID, action.Fields); err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeUpdated, CandidatID: action.ID, Score: record.ConfidenceScore}, nil
	default:
		return &Result{Outcome: OutcomeSkipped}, nil
	}
}

func md5Hex(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/config"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/logger"
)

// MinIO holds the two pipeline buckets: uploaded CVs as received, and the
// decoded plain text kept next to each cv_documents row.
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	parsedBucket   string
}

// CVObject describes one stored upload, as returned by ListCVs.
type CVObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// NewMinIO creates the client and makes sure both buckets exist, with their
// lifecycle rules applied when expiry is configured.
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("minio config cannot be nil")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	parsedBucket := cfg.ParsedTextBucket
	if parsedBucket == "" {
		parsedBucket = "parsed-text"
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		originalBucket: cfg.OriginalsBucket,
		parsedBucket:   parsedBucket,
	}

	if err := m.ensureBucketExists(m.originalBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("ensuring originals bucket %s: %w", m.originalBucket, err)
	}
	if err := m.ensureBucketExists(m.parsedBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("ensuring parsed-text bucket %s: %w", m.parsedBucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 || cfg.ParsedTextExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			// Lifecycle failures are not fatal: the pipeline works, objects
			// just never expire.
			logger.Warn().Err(err).Msg("setting minio lifecycle rules failed")
		}
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("originals_bucket", m.originalBucket).
		Str("parsed_bucket", m.parsedBucket).
		Msg("minio client initialized")
	return m, nil
}

// OriginalsBucket returns the bucket name holding uploaded CVs.
func (m *MinIO) OriginalsBucket() string {
	return m.originalBucket
}

func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", bucketName, err)
	}
	logger.Info().Str("bucket", bucketName).Msg("bucket created")
	return nil
}

func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setBucketExpiry(ctx, m.originalBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return err
		}
	}
	if m.cfg.ParsedTextExpireDays > 0 {
		if err := m.setBucketExpiry(ctx, m.parsedBucket, "expire-parsed-text", m.cfg.ParsedTextExpireDays); err != nil {
			return err
		}
	}
	return nil
}

func (m *MinIO) setBucketExpiry(ctx context.Context, bucketName, ruleID string, days int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:         ruleID,
			Status:     "Enabled",
			Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(days)},
		},
	}
	if err := m.client.SetBucketLifecycle(ctx, bucketName, lc); err != nil {
		return fmt.Errorf("setting lifecycle on %s: %w", bucketName, err)
	}
	return nil
}

// UploadCV stores an uploaded document under cv/<documentID>/original<ext>
// and returns the object key together with the content MD5, computed while
// streaming.
func (m *MinIO) UploadCV(ctx context.Context, documentID, filename string, reader io.Reader, size int64) (string, string, error) {
	ext := strings.ToLower(path.Ext(filename))
	objectKey := fmt.Sprintf("cv/%s/original%s", documentID, ext)

	hash := md5.New()
	tee := io.TeeReader(reader, hash)

	_, err := m.client.PutObject(ctx, m.originalBucket, objectKey, tee, size,
		minio.PutObjectOptions{ContentType: contentTypeForExt(ext)})
	if err != nil {
		return "", "", fmt.Errorf("uploading %s/%s: %w", m.originalBucket, objectKey, err)
	}
	return objectKey, hex.EncodeToString(hash.Sum(nil)), nil
}

// DownloadCV reads a stored upload fully into memory. CVs are small; the
// pipeline works on whole documents.
func (m *MinIO) DownloadCV(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.originalBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", m.originalBucket, objectKey, err)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("stat %s/%s: %w", m.originalBucket, objectKey, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", m.originalBucket, objectKey, err)
	}
	return data, nil
}

// UploadParsedText stores the decoded text of a document in the parsed-text
// bucket, keyed by document ID.
func (m *MinIO) UploadParsedText(ctx context.Context, documentID, text string) (string, error) {
	objectKey := fmt.Sprintf("cv/%s/parsed_text.txt", documentID)
	_, err := m.client.PutObject(ctx, m.parsedBucket, objectKey,
		bytes.NewReader([]byte(text)), int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("uploading parsed text %s/%s: %w", m.parsedBucket, objectKey, err)
	}
	return objectKey, nil
}

// GetParsedText reads back a stored decoded text.
func (m *MinIO) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.parsedBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("getting %s/%s: %w", m.parsedBucket, objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("reading %s/%s: %w", m.parsedBucket, objectKey, err)
	}
	return string(data), nil
}

// ListCVs lists uploads under the given prefix in the originals bucket.
func (m *MinIO) ListCVs(ctx context.Context, prefix string) ([]CVObject, error) {
	var out []CVObject
	for info := range m.client.ListObjects(ctx, m.originalBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("listing %s with prefix %q: %w", m.originalBucket, prefix, info.Err)
		}
		out = append(out, CVObject{
			Key:          info.Key,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	return out, nil
}

// PresignedCVURL returns a temporary download link for a stored upload.
func (m *MinIO) PresignedCVURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.originalBucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presigning %s/%s: %w", m.originalBucket, objectKey, err)
	}
	return u.String(), nil
}

// DeleteCV removes a stored upload.
func (m *MinIO) DeleteCV(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.originalBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing %s/%s: %w", m.originalBucket, objectKey, err)
	}
	return nil
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

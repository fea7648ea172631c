package constants

import "time"

const (
	// ParserVersion is recorded on every cv_documents row so that a later
	// re-analysis can tell which extraction rules produced a record.
	ParserVersion = "rules-1.0"

	// Redis set holding the MD5 of every decoded document text already
	// pushed through the pipeline. Used to skip duplicate uploads.
	TextMD5SetKey = "cv:text_md5s"

	// TextMD5Expire bounds how long the dedup set survives without writes.
	TextMD5Expire = 365 * 24 * time.Hour
)

// Processing statuses of a document, in pipeline order.
const (
	StatusDownloaded = "DOWNLOADED"
	StatusDecoded    = "DECODED"
	StatusExtracted  = "EXTRACTED"
	StatusReconciled = "RECONCILED"
	StatusPersisted  = "PERSISTED"
	StatusSkipped    = "SKIPPED"
	StatusFailed     = "FAILED"
)

// Bounds on stored free-text fields.
const (
	MaxSummaryChars   = 2000
	MaxObjectiveChars = 500
	MaxRawTextBytes   = 64 * 1024
)

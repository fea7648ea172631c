package storage

import "time"

// CVUploadedEvent announces a new document in the originals bucket. The
// upload edge (outside this service) publishes it; the pipeline worker
// consumes it.
type CVUploadedEvent struct {
	DocumentID       string    `json:"document_id"`
	Bucket           string    `json:"bucket"`
	ObjectKey        string    `json:"object_key"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	ContentMD5       string    `json:"content_md5,omitempty"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

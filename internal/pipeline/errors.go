package pipeline

import "fmt"

// Pipeline stages, used in ProcessError and logs.
const (
	StageDownload  = "download"
	StageDecode    = "decode"
	StageExtract   = "extract"
	StageReconcile = "reconcile"
	StagePersist   = "persist"
)

// ProcessError carries the failing stage and document through the error
// chain.
type ProcessError struct {
	Stage      string
	DocumentID string
	Err        error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("processing document %s failed at %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

func stageErr(stage, documentID string, err error) *ProcessError {
	return &ProcessError{Stage: stage, DocumentID: documentID, Err: err}
}

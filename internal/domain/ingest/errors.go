package ingest

import "errors"

// Sentinel kinds for ingestion errors. File-level errors wrap ErrFile and
// abort only the file they occur in.
var (
	ErrValidation     = errors.New("invalid value")
	ErrFile           = errors.New("file rejected")
	ErrEmptyFile      = errors.New("empty file")
	ErrFileName       = errors.New("unrecognized file name")
	ErrUnknownFile    = errors.New("unrecognized file")
	ErrMissingColumns = errors.New("missing required columns")
)

// fileError binds a file-level failure to the file that caused it.
type fileError struct {
	name string
	err  error
}

func (e *fileError) Error() string { return e.name + ": " + e.err.Error() }

func (e *fileError) Unwrap() []error { return []error{ErrFile, e.err} }

package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrPlayerNotFound   = errors.New("player not found")
	ErrStopped          = errors.New("service stopped")
	ErrIngestInProgress = errors.New("archive ingestion already in progress")
)

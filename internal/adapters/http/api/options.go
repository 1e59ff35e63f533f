package api

import "github.com/okian/focusengine/pkg/logger"

type options struct {
	maxUploadBytes int64
	log            logger.Logger
}

// Option configures the API server.
type Option func(*options)

// WithMaxUploadBytes bounds the ingestion request body.
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

package config

import "errors"

var (
	// ErrInvalidConfig wraps every problem Validate finds in a loaded Config.
	ErrInvalidConfig = errors.New("invalid focus engine configuration")
	// ErrLoadConfig wraps failures reading .env, the YAML file or FOCUS_ variables.
	ErrLoadConfig = errors.New("cannot load focus engine configuration")
)

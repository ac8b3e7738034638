package config

import "errors"

var (
	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigFileTooLarge is returned for YAML files above maxConfigFileSize.
	ErrConfigFileTooLarge = errors.New("config file too large")
)

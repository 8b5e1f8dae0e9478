package config

import "errors"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrMissingFlag    = errors.New("required flag is missing")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	BackendKey    = "backend"
	FlagKey       = "flag"
)

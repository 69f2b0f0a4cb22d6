package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths (files or directories)
	// and translates it into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)

	// LoadDefaults returns the built-in configuration.
	LoadDefaults(ctx context.Context) (*Model, error)
}

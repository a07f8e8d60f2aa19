// Package config loads, validates, and normalizes the TOML configuration
// consumed by every pipeline stage. Configuration is resolved once at startup
// and treated as immutable for the duration of a batch run.
package config

// Package config loads and validates the TOML configuration for ingot.
// Loading runs defaults, file decode, normalization (path expansion,
// lower-casing of source systems), then validation. The resulting Config is
// treated as immutable and passed explicitly into every component
// constructor.
package config

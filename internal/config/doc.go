// Package config loads, validates, and normalizes collate configuration.
//
// Configuration comes from a TOML file (default ~/.config/collate/config.toml,
// or ./collate.toml for project-local setups). All path values are expanded
// to absolute paths during Load, so downstream packages never deal with "~"
// or relative segments.
package config

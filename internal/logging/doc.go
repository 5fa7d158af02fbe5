// Package logging builds the slog loggers used throughout collate.
//
// Two output formats are supported: a human-oriented console format (single
// line per record, key=value attrs, ANSI level colors when attached to a
// terminal) and machine-readable JSON with normalized ts/level/msg keys.
// Loggers are constructed once and injected; packages never reach for a
// global logger.
package logging

// Package logging configures slog output for the application.
//
// Console output uses a compact single-line format with the component name
// inlined into the message prefix; JSON output is intended for log files and
// machine consumption. Helpers attach standardized item/stage/run fields
// pulled from the request context.
package logging

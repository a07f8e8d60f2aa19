// Package workflow orchestrates one batch run: a fixed pool of workers
// claims pending queue items and drives each through analysis,
// identification, and organization. Items that cannot be decoded or time
// out are demoted to UNKNOWN decisions and still placed, so the input
// directory drains completely every run.
package workflow

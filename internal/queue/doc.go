// Package queue persists batch items in SQLite and provides the status
// transitions workers use to claim and advance them through the pipeline.
package queue

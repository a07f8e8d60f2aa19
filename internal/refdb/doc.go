// Package refdb loads the read-only actor embedding and studio logo template
// databases into an immutable snapshot shared by all workers for the duration
// of a batch run. Population and refresh of the underlying SQLite file is an
// external responsibility.
package refdb

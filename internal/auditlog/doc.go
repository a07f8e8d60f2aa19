// Package auditlog appends actor-detection audit rows to a CSV file shared
// by all workers, guarded by an in-process mutex and a cross-process flock.
package auditlog

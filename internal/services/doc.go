// Package services provides shared error classification and context
// propagation helpers used by pipeline stages and the batch orchestrator.
package services

package auditlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gofrs/flock"
)

// Row is one actor-detection audit record.
type Row struct {
	VideoPath     string
	ActorID       string
	Confidence    float64
	DecisionTitle string
}

var header = []string{"video_path", "actor_id", "confidence", "decision_title"}

// Writer appends rows to the audit CSV. A mutex serializes appends within
// the process and a flock sidecar serializes them across processes. The
// header is written once, when the file is created.
type Writer struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// New constructs a Writer for the given CSV path. The parent directory is
// created on first append, not here.
func New(path string) *Writer {
	return &Writer{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the audit CSV location.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one row, creating the file and header as needed.
func (w *Writer) Append(row Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create audit log directory: %w", err)
	}
	if err := w.lock.Lock(); err != nil {
		return fmt.Errorf("acquire audit log lock: %w", err)
	}
	defer w.lock.Unlock()

	info, err := os.Stat(w.path)
	needsHeader := err != nil || info.Size() == 0

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if needsHeader {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("write audit header: %w", err)
		}
	}
	record := []string{
		row.VideoPath,
		row.ActorID,
		strconv.FormatFloat(row.Confidence, 'f', 4, 64),
		row.DecisionTitle,
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	return nil
}

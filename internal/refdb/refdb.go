package refdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// Reference is one known actor embedding or studio logo template.
type Reference struct {
	ID     string
	Name   string
	Vector []float64
	Titles []string
}

// Snapshot holds the reference databases loaded once before the worker pool
// starts. It is immutable for the duration of a batch run and safe for
// concurrent reads.
type Snapshot struct {
	actors []Reference
	logos  []Reference
}

// Load reads the reference SQLite database into an immutable snapshot.
// A missing file or empty path yields an empty snapshot: detection degrades
// to producing no signals rather than failing the run.
func Load(ctx context.Context, path string) (*Snapshot, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return &Snapshot{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("stat reference db: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open reference db: %w", err)
	}
	defer db.Close()

	actors, err := loadReferences(ctx, db, "actors", "actor_titles", "actor_id")
	if err != nil {
		return nil, err
	}
	logos, err := loadReferences(ctx, db, "logos", "logo_titles", "logo_id")
	if err != nil {
		return nil, err
	}

	return &Snapshot{actors: actors, logos: logos}, nil
}

// NewSnapshot builds an in-memory snapshot. Intended for tests and tooling
// that bootstraps reference data programmatically.
func NewSnapshot(actors, logos []Reference) *Snapshot {
	return &Snapshot{actors: actors, logos: logos}
}

// Actors returns the actor references. Callers must not mutate the result.
func (s *Snapshot) Actors() []Reference {
	if s == nil {
		return nil
	}
	return s.actors
}

// Logos returns the studio logo references. Callers must not mutate the result.
func (s *Snapshot) Logos() []Reference {
	if s == nil {
		return nil
	}
	return s.logos
}

// Empty reports whether the snapshot carries no reference data at all.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.actors) == 0 && len(s.logos) == 0)
}

func loadReferences(ctx context.Context, db *sql.DB, table, titlesTable, fkColumn string) ([]Reference, error) {
	exists, err := tableExists(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, vector FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var refs []Reference
	index := make(map[string]int)
	for rows.Next() {
		var (
			ref       Reference
			vectorRaw string
		)
		if err := rows.Scan(&ref.ID, &ref.Name, &vectorRaw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		if err := json.Unmarshal([]byte(vectorRaw), &ref.Vector); err != nil {
			return nil, fmt.Errorf("decode %s vector for %s: %w", table, ref.ID, err)
		}
		index[ref.ID] = len(refs)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachTitles(ctx, db, titlesTable, fkColumn, refs, index); err != nil {
		return nil, err
	}
	return refs, nil
}

// attachTitles loads the association table mapping references to the titles
// they are known to co-occur with. The table is optional.
func attachTitles(ctx context.Context, db *sql.DB, table, fkColumn string, refs []Reference, index map[string]int) error {
	exists, err := tableExists(ctx, db, table)
	if err != nil || !exists {
		return err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+fkColumn+`, title FROM `+table)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		if pos, ok := index[id]; ok {
			refs[pos].Titles = append(refs[pos].Titles, title)
		}
	}
	return rows.Err()
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

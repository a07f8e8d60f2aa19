package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, source_path, source_size, status, quality, duration_seconds, fragments_json, signals_json, subtitles_json, decision_json, final_path, error_message, run_id, progress_stage, progress_percent, progress_message, needs_review, review_reason, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id              int64
		sourcePath      string
		sourceSize      sql.NullInt64
		statusStr       string
		quality         sql.NullString
		duration        sql.NullFloat64
		fragments       sql.NullString
		signals         sql.NullString
		subtitles       sql.NullString
		decision        sql.NullString
		finalPath       sql.NullString
		errorMessage    sql.NullString
		runID           sql.NullString
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		needsReview     sql.NullInt64
		reviewReason    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&sourceSize,
		&statusStr,
		&quality,
		&duration,
		&fragments,
		&signals,
		&subtitles,
		&decision,
		&finalPath,
		&errorMessage,
		&runID,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&needsReview,
		&reviewReason,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		SourcePath:      sourcePath,
		SourceSize:      sourceSize.Int64,
		Status:          Status(statusStr),
		Quality:         quality.String,
		DurationSeconds: duration.Float64,
		FragmentsJSON:   fragments.String,
		SignalsJSON:     signals.String,
		SubtitlesJSON:   subtitles.String,
		DecisionJSON:    decision.String,
		FinalPath:       finalPath.String,
		ErrorMessage:    errorMessage.String,
		RunID:           runID.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ReviewReason:    reviewReason.String,
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

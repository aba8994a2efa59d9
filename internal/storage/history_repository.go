package storage

import (
	"context"
	"time"
)

// HistoryEntry is one finished download outcome. History is append-only:
// it is never read back to restore task state.
type HistoryEntry struct {
	TaskID     string
	URL        string
	Kind       string
	Status     string
	Filename   string
	Error      string
	IsPlaylist bool
	CreatedAt  time.Time
	FinishedAt time.Time
}

// HistoryRepository is the data access layer for the download history.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record appends one finished download outcome.
func (r *HistoryRepository) Record(ctx context.Context, e HistoryEntry) error {
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO downloads (id, url, kind, status, filename, error, is_playlist, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TaskID, e.URL, e.Kind, e.Status, e.Filename, e.Error, e.IsPlaylist, e.CreatedAt, e.FinishedAt,
	)
	return err
}

// Recent returns the most recently finished downloads, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url, kind, status, filename, error, is_playlist, created_at, finished_at
		FROM downloads ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.TaskID, &e.URL, &e.Kind, &e.Status, &e.Filename,
			&e.Error, &e.IsPlaylist, &e.CreatedAt, &e.FinishedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

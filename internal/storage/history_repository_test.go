package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHistoryRecordAndRecent(t *testing.T) {
	repo := NewHistoryRepository(openTestDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Record(ctx, HistoryEntry{
		TaskID:     "task-1",
		URL:        "https://youtu.be/abc",
		Kind:       "mp4",
		Status:     "completed",
		Filename:   "clip.mp4",
		CreatedAt:  now.Add(-time.Minute),
		FinishedAt: now.Add(-30 * time.Second),
	}))
	require.NoError(t, repo.Record(ctx, HistoryEntry{
		TaskID:     "task-2",
		URL:        "https://youtu.be/def",
		Kind:       "mp3",
		Status:     "error",
		Error:      "video unavailable",
		CreatedAt:  now,
		FinishedAt: now,
	}))

	entries, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "task-2", entries[0].TaskID)
	assert.Equal(t, "error", entries[0].Status)
	assert.Equal(t, "video unavailable", entries[0].Error)
	assert.Equal(t, "task-1", entries[1].TaskID)
	assert.Equal(t, "clip.mp4", entries[1].Filename)
}

func TestHistoryRecordDefaultsFinishedAt(t *testing.T) {
	repo := NewHistoryRepository(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, HistoryEntry{
		TaskID:    "task-3",
		URL:       "https://youtu.be/ghi",
		Kind:      "mp4",
		Status:    "cancelled",
		CreatedAt: time.Now(),
	}))

	entries, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].FinishedAt.IsZero())
}

func TestHistoryRecentLimit(t *testing.T) {
	repo := NewHistoryRepository(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, HistoryEntry{
			TaskID:    string(rune('a' + i)),
			URL:       "https://youtu.be/x",
			Kind:      "mp4",
			Status:    "completed",
			CreatedAt: time.Now(),
		}))
	}

	entries, err := repo.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

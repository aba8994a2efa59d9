// Package downloader runs download jobs in the background, one goroutine
// per submitted task, translating engine progress into task-record
// updates.
package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"snatch/internal/activity"
	xlog "snatch/internal/log"
	"snatch/internal/media"
	"snatch/internal/storage"
	"snatch/internal/task"
)

// maxPlaylistItems caps how many entries of a playlist are fetched.
const maxPlaylistItems = 50

// HistoryRecorder persists finished download outcomes. Recording
// failures never fail the task.
type HistoryRecorder interface {
	Record(ctx context.Context, e storage.HistoryEntry) error
}

// Downloader owns the worker side of the task lifecycle.
type Downloader struct {
	engine      media.Engine
	history     HistoryRecorder
	tracker     *activity.Tracker
	downloadDir string
	log         zerolog.Logger
}

// New creates a Downloader. history may be nil to disable the audit log;
// tracker may be nil when idle accounting is not wanted.
func New(engine media.Engine, history HistoryRecorder, tracker *activity.Tracker, downloadDir string) *Downloader {
	return &Downloader{
		engine:      engine,
		history:     history,
		tracker:     tracker,
		downloadDir: downloadDir,
		log:         xlog.WithComponent("downloader"),
	}
}

// touch resets the idle clock. An in-flight download counts as activity,
// so the idle monitor never sleeps or shuts down a busy server.
func (d *Downloader) touch() {
	if d.tracker != nil {
		d.tracker.Touch()
	}
}

// Download drives one URL through the engine to completion, updating the
// task record as it goes. Meant to be launched as a goroutine; the task
// always ends in a terminal state and no error is returned.
func (d *Downloader) Download(t *task.Task, url string, kind media.Kind, selector string) {
	ctx := context.Background()

	req := media.FetchRequest{
		URL:       url,
		Kind:      kind,
		Selector:  effectiveSelector(kind, selector),
		OutputDir: d.downloadDir,
	}

	sink := media.ProgressFunc(func(ev media.ProgressEvent) {
		d.touch()
		switch ev.Phase {
		case media.PhaseDownloading:
			if ev.BytesTotal > 0 {
				t.SetDownloading(float64(ev.BytesDownloaded) / float64(ev.BytesTotal) * 100)
			}
		case media.PhaseFinished:
			t.SetProcessing()
		}
	})

	result, err := d.engine.Fetch(ctx, req, sink)
	if err != nil {
		d.log.Error().Err(err).Str("task_id", t.ID).Str("url", url).Msg("download failed")
		t.Fail(err.Error())
		d.record(ctx, t, url, kind)
		return
	}

	filename := filepath.Base(result.FilePath)
	if kind == media.KindMP3 {
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".mp3"
	}
	t.Complete(filename)
	d.log.Info().Str("task_id", t.ID).Str("filename", filename).Msg("download completed")
	d.record(ctx, t, url, kind)
}

// DownloadPlaylist fetches every entry of a playlist in listed order.
// Single bad items are logged and skipped; cancellation is honoured at
// item boundaries. Meant to be launched as a goroutine.
func (d *Downloader) DownloadPlaylist(t *task.Task, url string, kind media.Kind, selector string) {
	ctx := context.Background()

	pl, err := d.engine.ProbePlaylist(ctx, url, maxPlaylistItems)
	if err != nil {
		d.log.Error().Err(err).Str("task_id", t.ID).Str("url", url).Msg("playlist probe failed")
		t.Fail(err.Error())
		d.record(ctx, t, url, kind)
		return
	}

	total := len(pl.Entries)
	t.SetPlaylistInfo(pl.Title, total)

	success := 0
	for i, entry := range pl.Entries {
		d.touch()
		if t.Cancelled() {
			t.FinishCancelled(summary(success) + " (cancelled)")
			d.log.Info().Str("task_id", t.ID).Int("completed", success).Msg("playlist cancelled")
			d.record(ctx, t, url, kind)
			return
		}

		t.StartItem(i+1, entry.Title, float64(i)/float64(total)*100)

		req := media.FetchRequest{
			URL:       media.WatchURL(entry.ID),
			Kind:      kind,
			Selector:  effectiveSelector(kind, selector),
			OutputDir: d.downloadDir,
		}
		// Per-item byte progress is not wired through for playlists;
		// progress advances one item at a time.
		if _, err := d.engine.Fetch(ctx, req, nil); err != nil {
			d.log.Warn().Err(err).
				Str("task_id", t.ID).
				Str("video_id", entry.ID).
				Int("item", i+1).
				Msg("playlist item failed, skipping")
			continue
		}
		success++
	}

	// A cancel that landed during the last item leaves the task terminal
	// already; write the cancelled summary instead of a silent no-op.
	if t.Cancelled() {
		t.FinishCancelled(summary(success) + " (cancelled)")
		d.log.Info().Str("task_id", t.ID).Int("completed", success).Msg("playlist cancelled")
		d.record(ctx, t, url, kind)
		return
	}

	t.Complete(summary(success))
	d.log.Info().Str("task_id", t.ID).Int("completed", success).Int("total", total).Msg("playlist completed")
	d.record(ctx, t, url, kind)
}

func summary(count int) string {
	return fmt.Sprintf("%d files downloaded", count)
}

// effectiveSelector applies the defaults the reference client relies on:
// audio jobs always run an audio-only selector, and "best" expands to
// the full best-video-plus-audio expression.
func effectiveSelector(kind media.Kind, selector string) string {
	if kind == media.KindMP3 {
		if strings.Contains(selector, "bestaudio") {
			return selector
		}
		return "bestaudio/best"
	}
	if selector == "" || selector == "best" {
		return "bestvideo+bestaudio/best"
	}
	return selector
}

func (d *Downloader) record(ctx context.Context, t *task.Task, url string, kind media.Kind) {
	if d.history == nil {
		return
	}
	entry := storage.HistoryEntry{
		TaskID:     t.ID,
		URL:        url,
		Kind:       string(kind),
		Status:     string(t.Status()),
		Filename:   t.Filename(),
		Error:      t.ErrMsg(),
		IsPlaylist: t.IsPlaylist,
		CreatedAt:  t.CreatedAt,
	}
	if err := d.history.Record(ctx, entry); err != nil {
		d.log.Warn().Err(err).Str("task_id", t.ID).Msg("failed to record history")
	}
}

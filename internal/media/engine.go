// Package media wraps the external extraction engine behind a small
// facade: metadata probes, stream downloads with progress reporting, and
// flat playlist listings.
package media

import "context"

// Kind is the requested output container.
type Kind string

const (
	KindMP4 Kind = "mp4"
	KindMP3 Kind = "mp3"
)

// Phase tags a progress event.
type Phase string

const (
	// PhaseDownloading carries byte counts for an in-flight transfer.
	PhaseDownloading Phase = "downloading"
	// PhaseFinished marks the transfer done; post-processing may follow.
	PhaseFinished Phase = "finished"
)

// ProgressEvent is one progress callback from the engine. BytesTotal is
// zero when the total size is unknown.
type ProgressEvent struct {
	Phase           Phase
	BytesDownloaded int64
	BytesTotal      int64
}

// ProgressSink receives progress events on the worker's goroutine. The
// handler must not block beyond trivial record updates.
type ProgressSink interface {
	OnProgress(ProgressEvent)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(ProgressEvent)

// OnProgress implements ProgressSink.
func (f ProgressFunc) OnProgress(ev ProgressEvent) { f(ev) }

// Format is one stream variant reported by a probe.
type Format struct {
	Height       int // pixels, zero when not a video stream
	AudioBitrate int // kbps, zero when unknown
	HasVideo     bool
	HasAudio     bool
}

// Info is the result of a metadata probe. Probing never downloads media.
type Info struct {
	Title     string
	Channel   string
	Duration  int // seconds
	Thumbnail string
	Formats   []Format
}

// FetchRequest describes one download invocation.
type FetchRequest struct {
	URL       string
	Kind      Kind
	Selector  string // format-selection expression, e.g. "bestaudio[abr<=128]"
	OutputDir string
}

// FetchResult reports a finished download.
type FetchResult struct {
	Title    string
	FilePath string
}

// PlaylistEntry is one item of a flat playlist listing.
type PlaylistEntry struct {
	ID       string
	Title    string
	Duration int // seconds
}

// PlaylistInfo is the result of a flat playlist probe.
type PlaylistInfo struct {
	ID      string
	Title   string
	Entries []PlaylistEntry
}

// Engine is the extraction engine contract the rest of the server
// depends on. Implementations may block inside Fetch for the duration
// of the transfer; cancellation happens through ctx.
type Engine interface {
	// Probe queries stream metadata for a single video URL.
	Probe(ctx context.Context, url string) (*Info, error)
	// Fetch downloads one item, reporting progress to sink (which may
	// be nil) and returning the final output path.
	Fetch(ctx context.Context, req FetchRequest, sink ProgressSink) (*FetchResult, error)
	// ProbePlaylist lists up to max entries of a playlist without
	// downloading anything.
	ProbePlaylist(ctx context.Context, url string, max int) (*PlaylistInfo, error)
}

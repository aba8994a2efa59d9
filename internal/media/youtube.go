package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"

	xlog "snatch/internal/log"
)

// YouTube implements Engine on top of the kkdai youtube client.
type YouTube struct {
	client youtube.Client
	log    zerolog.Logger
}

// NewYouTube creates a ready-to-use engine.
func NewYouTube() *YouTube {
	return &YouTube{log: xlog.WithComponent("youtube")}
}

// Probe implements Engine.
func (c *YouTube) Probe(ctx context.Context, url string) (*Info, error) {
	video, err := c.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &Info{
		Title:     video.Title,
		Channel:   video.Author,
		Duration:  int(video.Duration.Seconds()),
		Thumbnail: bestThumbnail(video.Thumbnails),
		Formats:   probeFormats(video.Formats),
	}, nil
}

// probeFormats maps raw stream variants to probe formats. Bitrate on a
// muxed stream describes the whole stream, so AudioBitrate is only taken
// from audio-only formats.
func probeFormats(raw youtube.FormatList) []Format {
	formats := make([]Format, 0, len(raw))
	for _, f := range raw {
		audioOnly := strings.HasPrefix(f.MimeType, "audio/")
		format := Format{
			Height:   f.Height,
			HasVideo: strings.HasPrefix(f.MimeType, "video/"),
			HasAudio: audioOnly || f.AudioChannels > 0,
		}
		if audioOnly {
			format.AudioBitrate = f.Bitrate / 1000
		}
		formats = append(formats, format)
	}
	return formats
}

// ProbePlaylist implements Engine. It lists entries without touching any
// media streams.
func (c *YouTube) ProbePlaylist(ctx context.Context, url string, max int) (*PlaylistInfo, error) {
	pl, err := c.client.GetPlaylistContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	videos := pl.Videos
	if max > 0 && len(videos) > max {
		videos = videos[:max]
	}

	entries := make([]PlaylistEntry, 0, len(videos))
	for _, v := range videos {
		entries = append(entries, PlaylistEntry{
			ID:       v.ID,
			Title:    v.Title,
			Duration: int(v.Duration.Seconds()),
		})
	}

	return &PlaylistInfo{ID: pl.ID, Title: pl.Title, Entries: entries}, nil
}

// Fetch implements Engine.
func (c *YouTube) Fetch(ctx context.Context, req FetchRequest, sink ProgressSink) (*FetchResult, error) {
	video, err := c.client.GetVideoContext(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	ceil := ParseSelector(req.Selector)
	if req.Kind == KindMP3 {
		return c.fetchAudio(ctx, video, ceil, req.OutputDir, sink)
	}
	return c.fetchVideo(ctx, video, ceil, req.OutputDir, sink)
}

func (c *YouTube) fetchAudio(ctx context.Context, video *youtube.Video, ceil Ceilings, dir string, sink ProgressSink) (*FetchResult, error) {
	format := pickAudio(video.Formats, ceil.Bitrate)
	if format == nil {
		return nil, fmt.Errorf("no audio formats available")
	}

	rawPath := filepath.Join(dir, sanitizeFilename(video.Title)+audioExt(format.MimeType))
	total := format.ContentLength
	if err := c.downloadStream(ctx, video, format, rawPath, progressReporter(sink, 0, total)); err != nil {
		return nil, err
	}
	notifyFinished(sink, total)

	outPath := strings.TrimSuffix(rawPath, filepath.Ext(rawPath)) + ".mp3"
	if err := ExtractMP3(ctx, rawPath, outPath); err != nil {
		os.Remove(rawPath)
		return nil, err
	}
	os.Remove(rawPath)

	return &FetchResult{Title: video.Title, FilePath: outPath}, nil
}

func (c *YouTube) fetchVideo(ctx context.Context, video *youtube.Video, ceil Ceilings, dir string, sink ProgressSink) (*FetchResult, error) {
	outPath := filepath.Join(dir, sanitizeFilename(video.Title)+".mp4")

	// Progressive streams carry audio and video together and need no merge.
	if format := pickProgressive(video.Formats, ceil.Height); format != nil {
		total := format.ContentLength
		if err := c.downloadStream(ctx, video, format, outPath, progressReporter(sink, 0, total)); err != nil {
			return nil, err
		}
		notifyFinished(sink, total)
		return &FetchResult{Title: video.Title, FilePath: outPath}, nil
	}

	videoFormat := pickVideoOnly(video.Formats, ceil.Height)
	if videoFormat == nil {
		return nil, fmt.Errorf("no video formats available")
	}
	audioFormat := pickAudio(video.Formats, 0)

	// Separate streams: download both, then merge into the mp4 container.
	if audioFormat == nil {
		total := videoFormat.ContentLength
		if err := c.downloadStream(ctx, video, videoFormat, outPath, progressReporter(sink, 0, total)); err != nil {
			return nil, err
		}
		notifyFinished(sink, total)
		return &FetchResult{Title: video.Title, FilePath: outPath}, nil
	}

	c.log.Debug().
		Int("height", videoFormat.Height).
		Msg("no progressive stream, merging separate streams")

	total := combinedTotal(videoFormat.ContentLength, audioFormat.ContentLength)
	videoTmp := outPath + ".video.tmp"
	audioTmp := outPath + ".audio.tmp"
	defer os.Remove(videoTmp)
	defer os.Remove(audioTmp)

	if err := c.downloadStream(ctx, video, videoFormat, videoTmp, progressReporter(sink, 0, total)); err != nil {
		return nil, err
	}
	if err := c.downloadStream(ctx, video, audioFormat, audioTmp, progressReporter(sink, videoFormat.ContentLength, total)); err != nil {
		return nil, err
	}
	notifyFinished(sink, total)

	if err := MergeMP4(ctx, videoTmp, audioTmp, outPath); err != nil {
		return nil, err
	}

	return &FetchResult{Title: video.Title, FilePath: outPath}, nil
}

// downloadStream copies one stream to disk, reporting written bytes.
// The partial file is removed on failure.
func (c *YouTube) downloadStream(ctx context.Context, video *youtube.Video, format *youtube.Format, path string, report func(written int64)) error {
	stream, _, err := c.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := copyWithProgress(ctx, file, stream, report); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to download: %w", err)
	}
	return nil
}

// copyWithProgress copies src to dst, invoking report after every write.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, report func(written int64)) error {
	buf := make([]byte, 32*1024)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		nr, err := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[0:nr])
			if nw > 0 {
				written += int64(nw)
				if report != nil {
					report(written)
				}
			}
			if ew != nil {
				return ew
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}

	return nil
}

// progressReporter turns raw written-byte counts into downloading events,
// offset by bytes already transferred in earlier streams of the same job.
func progressReporter(sink ProgressSink, offset, total int64) func(written int64) {
	if sink == nil {
		return nil
	}
	return func(written int64) {
		sink.OnProgress(ProgressEvent{
			Phase:           PhaseDownloading,
			BytesDownloaded: offset + written,
			BytesTotal:      total,
		})
	}
}

func notifyFinished(sink ProgressSink, total int64) {
	if sink == nil {
		return
	}
	sink.OnProgress(ProgressEvent{
		Phase:           PhaseFinished,
		BytesDownloaded: total,
		BytesTotal:      total,
	})
}

// combinedTotal sums two stream sizes, treating an unknown size as
// making the whole total unknown.
func combinedTotal(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return a + b
}

// pickAudio returns the highest-bitrate audio-only format at or below
// maxKbps, falling back to the overall best when none fits or the
// ceiling is zero.
func pickAudio(formats youtube.FormatList, maxKbps int) *youtube.Format {
	var best, bestUnder *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
		if maxKbps > 0 && f.Bitrate/1000 <= maxKbps {
			if bestUnder == nil || f.Bitrate > bestUnder.Bitrate {
				bestUnder = f
			}
		}
	}
	if bestUnder != nil {
		return bestUnder
	}
	return best
}

// pickProgressive returns the tallest audio-carrying video format at or
// below maxHeight, preferring mp4 containers.
func pickProgressive(formats youtube.FormatList, maxHeight int) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/") || f.AudioChannels == 0 {
			continue
		}
		if maxHeight > 0 && f.Height > maxHeight {
			continue
		}
		if best == nil || betterVideo(f, best) {
			best = f
		}
	}
	return best
}

// pickVideoOnly returns the tallest video-only format at or below
// maxHeight, falling back to the overall tallest when none fits.
func pickVideoOnly(formats youtube.FormatList, maxHeight int) *youtube.Format {
	var best, bestUnder *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/") || f.AudioChannels != 0 {
			continue
		}
		if best == nil || betterVideo(f, best) {
			best = f
		}
		if maxHeight == 0 || f.Height <= maxHeight {
			if bestUnder == nil || betterVideo(f, bestUnder) {
				bestUnder = f
			}
		}
	}
	if bestUnder != nil {
		return bestUnder
	}
	return best
}

// betterVideo prefers taller streams, breaking ties in favour of mp4.
func betterVideo(a, b *youtube.Format) bool {
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	return strings.Contains(a.MimeType, "mp4") && !strings.Contains(b.MimeType, "mp4")
}

// audioExt maps an audio MIME type to a file extension.
func audioExt(mimeType string) string {
	if strings.Contains(mimeType, "mp4") {
		return ".m4a"
	}
	if strings.Contains(mimeType, "webm") {
		return ".webm"
	}
	return ".audio"
}

// bestThumbnail picks the largest available thumbnail URL.
func bestThumbnail(thumbnails []youtube.Thumbnail) string {
	var best string
	var bestWidth uint
	for _, t := range thumbnails {
		if best == "" || t.Width > bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	return best
}

// sanitizeFilename replaces characters that are unsafe in file names.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

package media

import (
	"fmt"
	"sort"
)

// VideoQuality is one selectable video variant offered to the client.
type VideoQuality struct {
	FormatID string `json:"format_id"`
	Height   int    `json:"height"`
	Label    string `json:"label"`
}

// AudioQuality is one selectable audio variant offered to the client.
type AudioQuality struct {
	FormatID string `json:"format_id"`
	Bitrate  int    `json:"abr"`
	Label    string `json:"label"`
}

var videoLabels = map[int]string{
	2160: "4K (2160p)",
	1440: "2K (1440p)",
	1080: "Full HD (1080p)",
	720:  "HD (720p)",
	480:  "SD (480p)",
	360:  "Low (360p)",
}

var audioLabels = map[int]string{
	320: "320 kbps (Best)",
	256: "256 kbps",
	192: "192 kbps",
	128: "128 kbps",
}

// VideoLabel maps a height to its display label.
func VideoLabel(height int) string {
	if label, ok := videoLabels[height]; ok {
		return label
	}
	return fmt.Sprintf("%dp", height)
}

// AudioLabel maps a bitrate in kbps to its display label.
func AudioLabel(abr int) string {
	if label, ok := audioLabels[abr]; ok {
		return label
	}
	return fmt.Sprintf("%d kbps", abr)
}

// DeriveQualities builds the selectable quality lists from probed
// formats: video variants deduplicated by height, audio-only variants
// deduplicated by bitrate, both sorted highest first. An empty list is
// replaced by a single synthetic "Best Available" entry so the client
// always has something to pick.
func DeriveQualities(formats []Format) ([]VideoQuality, []AudioQuality) {
	var videos []VideoQuality
	var audios []AudioQuality
	seenHeights := make(map[int]bool)
	seenBitrates := make(map[int]bool)

	for _, f := range formats {
		if f.HasVideo && f.Height > 0 && !seenHeights[f.Height] {
			seenHeights[f.Height] = true
			videos = append(videos, VideoQuality{
				FormatID: fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", f.Height, f.Height),
				Height:   f.Height,
				Label:    VideoLabel(f.Height),
			})
		}
		if f.HasAudio && !f.HasVideo && f.AudioBitrate > 0 && !seenBitrates[f.AudioBitrate] {
			seenBitrates[f.AudioBitrate] = true
			audios = append(audios, AudioQuality{
				FormatID: fmt.Sprintf("bestaudio[abr<=%d]", f.AudioBitrate),
				Bitrate:  f.AudioBitrate,
				Label:    AudioLabel(f.AudioBitrate),
			})
		}
	}

	sort.Slice(videos, func(i, j int) bool { return videos[i].Height > videos[j].Height })
	sort.Slice(audios, func(i, j int) bool { return audios[i].Bitrate > audios[j].Bitrate })

	if len(videos) == 0 {
		videos = []VideoQuality{{FormatID: "bestvideo+bestaudio/best", Height: 1080, Label: "Best Available"}}
	}
	if len(audios) == 0 {
		audios = []AudioQuality{{FormatID: "bestaudio/best", Bitrate: 320, Label: "Best Available"}}
	}

	return videos, audios
}

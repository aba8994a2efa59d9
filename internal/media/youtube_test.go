package media

import (
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeFormatsAudioBitrateOnlyOnAudioStreams(t *testing.T) {
	raw := youtube.FormatList{
		// Muxed stream: its bitrate covers video and must not leak into
		// the audio bitrate.
		{MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Bitrate: 2_500_000, Height: 720, AudioChannels: 2},
		{MimeType: `video/webm; codecs="vp9"`, Bitrate: 4_000_000, Height: 1080},
		{MimeType: `audio/webm; codecs="opus"`, Bitrate: 160_000, AudioChannels: 2},
	}

	formats := probeFormats(raw)
	require.Len(t, formats, 3)

	muxed := formats[0]
	assert.True(t, muxed.HasVideo)
	assert.True(t, muxed.HasAudio)
	assert.Equal(t, 720, muxed.Height)
	assert.Zero(t, muxed.AudioBitrate)

	videoOnly := formats[1]
	assert.True(t, videoOnly.HasVideo)
	assert.False(t, videoOnly.HasAudio)
	assert.Zero(t, videoOnly.AudioBitrate)

	audioOnly := formats[2]
	assert.False(t, audioOnly.HasVideo)
	assert.True(t, audioOnly.HasAudio)
	assert.Equal(t, 160, audioOnly.AudioBitrate)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeFilename("a/b:c"))
	assert.Equal(t, "why_ _quotes_ _here_", sanitizeFilename(`why? "quotes" <here>`))
	assert.Equal(t, "plain title", sanitizeFilename("plain title"))
}

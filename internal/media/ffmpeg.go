package media

import (
	"context"
	"fmt"
	"os/exec"
)

// ExtractMP3 transcodes a downloaded audio stream to MP3 at a fixed
// 320 kbps target. Requires ffmpeg on PATH.
func ExtractMP3(ctx context.Context, inputPath, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found: please install ffmpeg to convert audio")
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-vn",
		"-codec:a", "libmp3lame",
		"-b:a", "320k",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg audio extraction failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// MergeMP4 muxes separate video and audio streams into an MP4 container,
// copying the video stream and re-encoding audio to AAC.
func MergeMP4(ctx context.Context, videoPath, audioPath, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found: please install ffmpeg to merge streams")
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg merge failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

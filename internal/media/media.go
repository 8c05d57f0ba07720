package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Store resolves a response's media reference to a readable local path. The
// production implementation is provided by the host application; Dir covers
// local volumes.
type Store interface {
	Path(ctx context.Context, mediaRef string) (string, error)
}

// Dir serves media files from a local directory.
type Dir struct {
	Root string
}

func (d Dir) Path(_ context.Context, mediaRef string) (string, error) {
	ref := strings.TrimSpace(mediaRef)
	if ref == "" {
		return "", errors.New("media reference is empty")
	}

	path := filepath.Join(d.Root, filepath.Clean("/"+ref))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("media file %q: %w", ref, err)
	}
	return path, nil
}

// AudioExtractor pulls the audio track out of a video file. It backs the
// transcription fallback path when the provider rejects the full video.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath string) (audioPath string, cleanup func(), err error)
}

// FFmpeg extracts audio by shelling out to the ffmpeg binary.
type FFmpeg struct {
	// Binary overrides the ffmpeg executable name. Defaults to "ffmpeg".
	Binary string
}

func (f FFmpeg) ExtractAudio(ctx context.Context, videoPath string) (string, func(), error) {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	tmp, err := os.CreateTemp("", "interview-audio-*.mp3")
	if err != nil {
		return "", nil, fmt.Errorf("create temp audio file: %w", err)
	}
	audioPath := tmp.Name()
	tmp.Close()
	cleanup := func() { os.Remove(audioPath) }

	cmd := exec.CommandContext(ctx, binary,
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", "44100",
		"-ac", "2",
		audioPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ffmpeg audio extraction: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return audioPath, cleanup, nil
}

package gemini

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/media"
)

const transcriptionPrompt = "Transcribe the spoken content from this recording. Return only the transcribed text."

// mediaTranscriber is the slice of Client the transcriber depends on.
type mediaTranscriber interface {
	TranscribeFile(ctx context.Context, path, prompt string) (string, error)
}

// Transcriber implements the transcription gateway on top of Gemini's
// multimodal file API. When the provider rejects the full video it extracts
// the audio track and retries once before surfacing the failure.
type Transcriber struct {
	client    mediaTranscriber
	extractor media.AudioExtractor
	logger    *zap.Logger
}

func NewTranscriber(client mediaTranscriber, extractor media.AudioExtractor, logger *zap.Logger) *Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Transcriber{
		client:    client,
		extractor: extractor,
		logger:    logger,
	}
}

func (t *Transcriber) Transcribe(ctx context.Context, mediaPath string) (string, error) {
	text, videoErr := t.client.TranscribeFile(ctx, mediaPath, transcriptionPrompt)
	if videoErr == nil {
		return text, nil
	}

	if t.extractor == nil {
		return "", fmt.Errorf("transcribe media: %w", videoErr)
	}

	t.logger.Warn("direct video transcription failed, extracting audio track",
		zap.String("media_path", mediaPath),
		zap.Error(videoErr),
	)

	audioPath, cleanup, err := t.extractor.ExtractAudio(ctx, mediaPath)
	if err != nil {
		return "", fmt.Errorf("transcribe media: %w (audio extraction: %v)", videoErr, err)
	}
	defer cleanup()

	text, audioErr := t.client.TranscribeFile(ctx, audioPath, transcriptionPrompt)
	if audioErr != nil {
		return "", fmt.Errorf("transcribe media: %w (audio fallback: %v)", videoErr, audioErr)
	}

	t.logger.Info("audio fallback transcription succeeded", zap.String("media_path", mediaPath))
	return text, nil
}

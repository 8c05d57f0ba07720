package ai

import "context"

// BatchItem is one transcript submitted for scoring.
type BatchItem struct {
	Transcript  string
	Question    string
	Competency  string
	RoleContext string
}

// Scores is the rubric returned by the scoring provider for one item. Every
// sub-score is an integer clamped to [0, 100]. Overall is the provider's own
// value and is never recomputed downstream.
type Scores struct {
	Sentiment        int
	Confidence       int
	Clarity          int
	ContentRelevance int
	Overall          int

	Summary string
	Raw     string
}

// Transcriber converts a media file into plain text. An empty string is a
// valid result and means no speech was detected.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (string, error)
}

// BatchScorer grades transcripts against the rubric. ScoreBatch is expected
// to be order-preserving and length-preserving; Score is the per-item
// fallback used when a batch response cannot be aligned with its request.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, items []BatchItem) ([]Scores, error)
	Score(ctx context.Context, item BatchItem) (Scores, error)
}

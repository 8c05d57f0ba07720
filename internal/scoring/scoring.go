// Package scoring applies the caller-side contract around the batch scoring
// gateway: transcripts with no usable speech are short-circuited to a
// technical-issue sentinel and never sent to the provider, a misaligned batch
// response falls back to per-item calls, and the categorical recommendation
// is derived locally from the returned rubric.
package scoring

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/ai"
	"github.com/talentgate/interview-pipeline/internal/models"
)

// minTranscriptLength is the shortest transcript considered scorable.
const minTranscriptLength = 10

// noAudioPhrases are provider phrasings that mean the recording contained no
// usable speech. Matching transcripts are technical issues, not answers.
var noAudioPhrases = []string{
	"[no audible speech]",
	"no spoken content",
	"there is no audio",
	"no audio detected",
	"silence",
}

// Outcome is the scoring result for one submitted item, in request order.
// A technical issue carries no scores and is excluded from aggregation.
type Outcome struct {
	TechnicalIssue bool
	Scores         *ai.Scores
	Recommendation string
}

// Service wraps a BatchScorer with the orchestrator-side scoring policy.
type Service struct {
	scorer ai.BatchScorer
	logger *zap.Logger
}

func New(scorer ai.BatchScorer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scorer: scorer, logger: logger}
}

// IsTechnicalIssue reports whether a transcript has no scorable content:
// empty, shorter than the minimum length, or a known no-audio phrase.
func IsTechnicalIssue(transcript string) bool {
	normalized := strings.ToLower(strings.TrimSpace(transcript))
	if len(normalized) < minTranscriptLength {
		return true
	}
	for _, phrase := range noAudioPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

// Recommend maps a rubric to the categorical hiring hint. The mapping is a
// caller-side hint, not provider output.
func Recommend(s ai.Scores) string {
	switch {
	case s.Overall < 50 || s.ContentRelevance < 40:
		return models.RecommendationFail
	case s.Overall >= 70 && s.ContentRelevance >= 65:
		return models.RecommendationPass
	default:
		return models.RecommendationReview
	}
}

// Run scores the given items, returning one Outcome per item in the original
// order. Technical issues are short-circuited before the provider call. When
// the batch response length does not match the request, the unmatched tail is
// scored with individual fallback calls; a hard provider error is returned to
// the caller for run-level retry.
func (s *Service) Run(ctx context.Context, items []ai.BatchItem) ([]Outcome, error) {
	outcomes := make([]Outcome, len(items))

	var scorable []ai.BatchItem
	var scorableIdx []int
	for i, item := range items {
		if IsTechnicalIssue(item.Transcript) {
			outcomes[i] = Outcome{
				TechnicalIssue: true,
				Recommendation: models.RecommendationTechnicalIssue,
			}
			continue
		}
		scorable = append(scorable, item)
		scorableIdx = append(scorableIdx, i)
	}

	if len(scorable) == 0 {
		return outcomes, nil
	}

	batch, err := s.scorer.ScoreBatch(ctx, scorable)
	if err != nil {
		return nil, err
	}

	if len(batch) != len(scorable) {
		s.logger.Warn("batch scoring result count mismatch, falling back to individual calls",
			zap.Int("requested", len(scorable)),
			zap.Int("returned", len(batch)),
		)
	}
	if len(batch) > len(scorable) {
		batch = batch[:len(scorable)]
	}

	for pos, idx := range scorableIdx {
		var scores ai.Scores
		if pos < len(batch) {
			scores = batch[pos]
		} else {
			scores, err = s.scorer.Score(ctx, scorable[pos])
			if err != nil {
				return nil, err
			}
		}

		scoresCopy := scores
		outcomes[idx] = Outcome{
			Scores:         &scoresCopy,
			Recommendation: Recommend(scores),
		}
	}

	return outcomes, nil
}

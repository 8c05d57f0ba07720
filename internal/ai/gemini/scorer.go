package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/talentgate/interview-pipeline/internal/ai"
	"github.com/talentgate/interview-pipeline/internal/util"
)

const defaultMaxLogLength = 200

// textGenerator is the slice of Client the scorer depends on.
type textGenerator interface {
	GenerateText(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

// Scorer implements the batch scoring gateway against Gemini. One call grades
// every transcript in the batch; Score covers the per-item fallback path.
type Scorer struct {
	generator textGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator textGenerator, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) ScoreBatch(ctx context.Context, items []ai.BatchItem) ([]ai.Scores, error) {
	if len(items) == 0 {
		return nil, nil
	}

	prompt := buildBatchPrompt(items)

	s.logger.Debug("gemini batch scoring request",
		zap.Int("items", len(items)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateText(ctx, prompt, scoringConfig())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini batch scoring response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, s.maxLogLen)),
	)

	return parseBatchResponse(raw)
}

func (s *Scorer) Score(ctx context.Context, item ai.BatchItem) (ai.Scores, error) {
	prompt := buildSinglePrompt(item)

	raw, err := s.generator.GenerateText(ctx, prompt, scoringConfig())
	if err != nil {
		return ai.Scores{}, err
	}

	return parseSingleResponse(raw)
}

func scoringConfig() *genai.GenerateContentConfig {
	// Low temperature keeps scoring consistent across candidates.
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.3),
		ResponseMIMEType: "application/json",
	}
}

const rubricInstructions = `EVALUATION CRITERIA (score each from 0 to 100):
1. sentiment_score: emotional tone and professionalism. Neutral tone is acceptable; penalize frustration or disengagement.
2. confidence_score: clear statements and logical flow. Do not reward overconfidence or verbosity.
3. speech_clarity_score: grammar, sentence structure, ease of understanding. Accent is not a penalty.
4. content_relevance_score: how directly the answer addresses the question. This is the most important score.
5. overall_score: the average of the above, rounded to the nearest whole number.
6. analysis_summary: 2-3 short sentences on what was strong and what was missing. Avoid judgmental language.

Base all judgments strictly on the transcript content. Do not assume intent,
skill, or experience unless explicitly stated. Be consistent and conservative.`

func buildBatchPrompt(items []ai.BatchItem) string {
	var b strings.Builder
	b.WriteString("You are a junior HR analyst grading multiple video interview responses.\n")
	b.WriteString("Evaluate ALL responses and return a JSON array with one object per response, in order.\n\n")
	b.WriteString(rubricInstructions)
	b.WriteString("\n")

	for i, item := range items {
		fmt.Fprintf(&b, "\n=== RESPONSE %d ===\n", i+1)
		fmt.Fprintf(&b, "Question: %s\n", item.Question)
		fmt.Fprintf(&b, "Competency: %s\n", item.Competency)
		if item.RoleContext != "" {
			fmt.Fprintf(&b, "Role context: %s\n", item.RoleContext)
		}
		fmt.Fprintf(&b, "Answer: %s\n", item.Transcript)
	}

	fmt.Fprintf(&b, `
Return ONLY a JSON array with exactly %d objects, one per response in order:
[
  {
    "sentiment_score": <number>,
    "confidence_score": <number>,
    "speech_clarity_score": <number>,
    "content_relevance_score": <number>,
    "overall_score": <number>,
    "analysis_summary": "<explanation>"
  }
]
Do not include markdown or any text outside the JSON array.`, len(items))

	return b.String()
}

func buildSinglePrompt(item ai.BatchItem) string {
	var b strings.Builder
	b.WriteString("You are a junior HR analyst grading one video interview response.\n\n")
	b.WriteString(rubricInstructions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Question: %s\n", item.Question)
	fmt.Fprintf(&b, "Competency: %s\n", item.Competency)
	if item.RoleContext != "" {
		fmt.Fprintf(&b, "Role context: %s\n", item.RoleContext)
	}
	fmt.Fprintf(&b, "\nCandidate response (verbatim transcript):\n\"\"\"\n%s\n\"\"\"\n", item.Transcript)
	b.WriteString(`
Return ONLY one valid JSON object:
{
  "sentiment_score": <number>,
  "confidence_score": <number>,
  "speech_clarity_score": <number>,
  "content_relevance_score": <number>,
  "overall_score": <number>,
  "analysis_summary": "<explanation>"
}
Do not include markdown or any text outside the JSON object.`)

	return b.String()
}

func parseBatchResponse(raw string) ([]ai.Scores, error) {
	cleaned := extractJSON(raw)

	var entries []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, fmt.Errorf("parse gemini batch response: %w", err)
	}

	scores := make([]ai.Scores, 0, len(entries))
	for _, entry := range entries {
		scores = append(scores, scoresFromPayload(entry))
	}

	return scores, nil
}

func parseSingleResponse(raw string) (ai.Scores, error) {
	cleaned := extractJSON(raw)

	var entry map[string]any
	if err := json.Unmarshal([]byte(cleaned), &entry); err != nil {
		return ai.Scores{}, fmt.Errorf("parse gemini response: %w", err)
	}

	if err := validatePayload(entry); err != nil {
		return ai.Scores{}, err
	}

	return scoresFromPayload(entry), nil
}

var requiredScoreFields = []string{
	"sentiment_score",
	"confidence_score",
	"speech_clarity_score",
	"content_relevance_score",
	"overall_score",
}

func validatePayload(entry map[string]any) error {
	for _, field := range requiredScoreFields {
		if _, ok := entry[field]; !ok {
			return fmt.Errorf("gemini response is missing field %q", field)
		}
	}
	return nil
}

func scoresFromPayload(entry map[string]any) ai.Scores {
	raw, _ := json.Marshal(entry)

	return ai.Scores{
		Sentiment:        clampScore(entry["sentiment_score"]),
		Confidence:       clampScore(entry["confidence_score"]),
		Clarity:          clampScore(entry["speech_clarity_score"]),
		ContentRelevance: clampScore(entry["content_relevance_score"]),
		Overall:          clampScore(entry["overall_score"]),
		Summary:          coerceString(entry["analysis_summary"]),
		Raw:              string(raw),
	}
}

// clampScore normalizes a provider score to an integer in [0, 100].
func clampScore(v any) int {
	f := coerceFloat(v)
	if math.IsNaN(f) {
		return 0
	}

	n := int(math.Round(f))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

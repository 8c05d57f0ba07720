package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/talentgate/interview-pipeline/internal/ai"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) GenerateText(_ context.Context, prompt string, _ *genai.GenerateContentConfig) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestScoreBatchParsesOrderedArray(t *testing.T) {
	generator := &stubGenerator{response: `[
		{"sentiment_score": 80, "confidence_score": 75, "speech_clarity_score": 82,
		 "content_relevance_score": 90, "overall_score": 82, "analysis_summary": "Solid answer."},
		{"sentiment_score": 40, "confidence_score": 35, "speech_clarity_score": 50,
		 "content_relevance_score": 30, "overall_score": 39, "analysis_summary": "Off topic."}
	]`}
	scorer := NewScorer(generator, nil, 0)

	items := []ai.BatchItem{
		{Transcript: "first answer", Question: "Q1", Competency: "communication"},
		{Transcript: "second answer", Question: "Q2", Competency: "troubleshooting"},
	}
	scores, err := scorer.ScoreBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("got %d score sets, want 2", len(scores))
	}
	if scores[0].Overall != 82 || scores[1].Overall != 39 {
		t.Errorf("overall scores = %d, %d", scores[0].Overall, scores[1].Overall)
	}
	if scores[0].Summary != "Solid answer." {
		t.Errorf("summary = %q", scores[0].Summary)
	}
	if scores[0].Raw == "" {
		t.Error("raw payload not preserved")
	}

	prompt := generator.prompts[0]
	if !strings.Contains(prompt, "=== RESPONSE 1 ===") || !strings.Contains(prompt, "=== RESPONSE 2 ===") {
		t.Errorf("prompt missing numbered response blocks:\n%s", prompt)
	}
	if !strings.Contains(prompt, "exactly 2 objects") {
		t.Errorf("prompt missing expected count:\n%s", prompt)
	}
}

func TestScoreBatchEmptyInputSkipsProvider(t *testing.T) {
	generator := &stubGenerator{}
	scorer := NewScorer(generator, nil, 0)

	scores, err := scorer.ScoreBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if scores != nil {
		t.Errorf("scores = %v, want nil", scores)
	}
	if len(generator.prompts) != 0 {
		t.Errorf("provider called %d times, want 0", len(generator.prompts))
	}
}

func TestScoreBatchStripsMarkdownFence(t *testing.T) {
	generator := &stubGenerator{response: "```json\n[{\"sentiment_score\": 70, \"confidence_score\": 70, \"speech_clarity_score\": 70, \"content_relevance_score\": 70, \"overall_score\": 70, \"analysis_summary\": \"ok\"}]\n```"}
	scorer := NewScorer(generator, nil, 0)

	scores, err := scorer.ScoreBatch(context.Background(), []ai.BatchItem{{Transcript: "answer"}})
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(scores) != 1 || scores[0].Overall != 70 {
		t.Errorf("scores = %+v", scores)
	}
}

func TestScoreBatchPropagatesProviderError(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	scorer := NewScorer(&stubGenerator{err: wantErr}, nil, 0)

	_, err := scorer.ScoreBatch(context.Background(), []ai.BatchItem{{Transcript: "answer"}})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestScoreValidatesRequiredFields(t *testing.T) {
	generator := &stubGenerator{response: `{"sentiment_score": 70, "analysis_summary": "partial"}`}
	scorer := NewScorer(generator, nil, 0)

	_, err := scorer.Score(context.Background(), ai.BatchItem{Transcript: "answer"})
	if err == nil || !strings.Contains(err.Error(), "missing field") {
		t.Fatalf("error = %v, want missing field", err)
	}
}

func TestScoreSingleObject(t *testing.T) {
	generator := &stubGenerator{response: `{"sentiment_score": "88", "confidence_score": 91.4,
		"speech_clarity_score": 150, "content_relevance_score": -5, "overall_score": 77,
		"analysis_summary": "  padded  "}`}
	scorer := NewScorer(generator, nil, 0)

	scores, err := scorer.Score(context.Background(), ai.BatchItem{Transcript: "answer"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	// Strings coerce, floats round, and out-of-range values clamp.
	if scores.Sentiment != 88 || scores.Confidence != 91 {
		t.Errorf("sentiment/confidence = %d/%d", scores.Sentiment, scores.Confidence)
	}
	if scores.Clarity != 100 || scores.ContentRelevance != 0 {
		t.Errorf("clarity/relevance = %d/%d, want clamped 100/0", scores.Clarity, scores.ContentRelevance)
	}
	if scores.Summary != "padded" {
		t.Errorf("summary = %q", scores.Summary)
	}
}

func TestClampScore(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{75.6, 76},
		{"42", 42},
		{-3, 0},
		{250, 100},
		{"not a number", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := clampScore(tc.in); got != tc.want {
			t.Errorf("clampScore(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

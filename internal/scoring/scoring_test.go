package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/talentgate/interview-pipeline/internal/ai"
	"github.com/talentgate/interview-pipeline/internal/models"
)

type stubScorer struct {
	batch      []ai.Scores
	batchErr   error
	batchCalls int

	singleErr   error
	singleCalls []ai.BatchItem
}

func (s *stubScorer) ScoreBatch(_ context.Context, items []ai.BatchItem) ([]ai.Scores, error) {
	s.batchCalls++
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	if s.batch != nil {
		return s.batch, nil
	}
	out := make([]ai.Scores, len(items))
	for i := range items {
		out[i] = ai.Scores{Sentiment: 70, Confidence: 70, Clarity: 70, ContentRelevance: 70, Overall: 70}
	}
	return out, nil
}

func (s *stubScorer) Score(_ context.Context, item ai.BatchItem) (ai.Scores, error) {
	s.singleCalls = append(s.singleCalls, item)
	if s.singleErr != nil {
		return ai.Scores{}, s.singleErr
	}
	return ai.Scores{Sentiment: 55, Confidence: 55, Clarity: 55, ContentRelevance: 55, Overall: 55}, nil
}

func item(transcript string) ai.BatchItem {
	return ai.BatchItem{Transcript: transcript, Question: "Tell me about yourself", Competency: "communication"}
}

func TestIsTechnicalIssue(t *testing.T) {
	cases := []struct {
		transcript string
		want       bool
	}{
		{"", true},
		{"   ", true},
		{"short", true},
		{"[No audible speech]", true},
		{"The recording contains no spoken content at all.", true},
		{"There is no audio in this clip.", true},
		{"No audio detected during playback.", true},
		{"Mostly silence throughout the answer.", true},
		{"I have five years of network engineering experience.", false},
	}
	for _, tc := range cases {
		if got := IsTechnicalIssue(tc.transcript); got != tc.want {
			t.Errorf("IsTechnicalIssue(%q) = %v, want %v", tc.transcript, got, tc.want)
		}
	}
}

func TestRecommend(t *testing.T) {
	cases := []struct {
		name    string
		overall int
		relev   int
		want    string
	}{
		{"strong answer", 85, 80, models.RecommendationPass},
		{"pass boundary", 70, 65, models.RecommendationPass},
		{"high overall low relevance", 80, 50, models.RecommendationReview},
		{"middling", 60, 60, models.RecommendationReview},
		{"low overall", 49, 70, models.RecommendationFail},
		{"off topic", 60, 39, models.RecommendationFail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Recommend(ai.Scores{Overall: tc.overall, ContentRelevance: tc.relev})
			if got != tc.want {
				t.Errorf("Recommend(overall=%d, relevance=%d) = %q, want %q", tc.overall, tc.relev, got, tc.want)
			}
		})
	}
}

func TestRunExcludesTechnicalIssues(t *testing.T) {
	scorer := &stubScorer{}
	svc := New(scorer, nil)

	items := []ai.BatchItem{
		item("I designed the BGP failover plan for two data centers."),
		item(""),
		item("We migrated the call center to a new ticketing tool last year."),
	}
	outcomes, err := svc.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if !outcomes[1].TechnicalIssue || outcomes[1].Scores != nil {
		t.Errorf("outcome[1] = %+v, want technical issue without scores", outcomes[1])
	}
	if outcomes[1].Recommendation != models.RecommendationTechnicalIssue {
		t.Errorf("outcome[1].Recommendation = %q", outcomes[1].Recommendation)
	}
	for _, i := range []int{0, 2} {
		if outcomes[i].TechnicalIssue || outcomes[i].Scores == nil {
			t.Errorf("outcome[%d] = %+v, want scored", i, outcomes[i])
		}
	}
	if scorer.batchCalls != 1 {
		t.Errorf("batch calls = %d, want 1", scorer.batchCalls)
	}
	if len(scorer.singleCalls) != 0 {
		t.Errorf("single calls = %d, want 0", len(scorer.singleCalls))
	}
}

func TestRunAllTechnicalIssuesSkipsProvider(t *testing.T) {
	scorer := &stubScorer{}
	svc := New(scorer, nil)

	outcomes, err := svc.Run(context.Background(), []ai.BatchItem{item(""), item("silence")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, o := range outcomes {
		if !o.TechnicalIssue {
			t.Errorf("outcome[%d] not a technical issue", i)
		}
	}
	if scorer.batchCalls != 0 {
		t.Errorf("batch calls = %d, want 0", scorer.batchCalls)
	}
}

func TestRunMismatchFallsBackForUnmatchedTail(t *testing.T) {
	transcripts := []string{
		"First answer about routing protocols and redundancy planning.",
		"Second answer about handling an upset customer escalation.",
		"Third answer about scheduling and calendar management tools.",
		"Fourth answer about documenting runbooks for the on-call team.",
	}
	items := make([]ai.BatchItem, len(transcripts))
	for i, tr := range transcripts {
		items[i] = item(tr)
		items[i].Question = fmt.Sprintf("question %d", i)
	}

	scorer := &stubScorer{batch: []ai.Scores{
		{Overall: 90, ContentRelevance: 90},
		{Overall: 91, ContentRelevance: 91},
	}}
	svc := New(scorer, nil)

	outcomes, err := svc.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := len(scorer.singleCalls), len(items)-len(scorer.batch); got != want {
		t.Fatalf("single calls = %d, want %d", got, want)
	}
	for i, call := range scorer.singleCalls {
		if call.Question != items[len(scorer.batch)+i].Question {
			t.Errorf("fallback call %d scored %q, want %q", i, call.Question, items[len(scorer.batch)+i].Question)
		}
	}
	if outcomes[0].Scores.Overall != 90 || outcomes[1].Scores.Overall != 91 {
		t.Errorf("batch results not applied in order: %+v", outcomes[:2])
	}
	if outcomes[2].Scores.Overall != 55 || outcomes[3].Scores.Overall != 55 {
		t.Errorf("fallback results not applied: %+v", outcomes[2:])
	}
}

func TestRunOversizedBatchTruncated(t *testing.T) {
	scorer := &stubScorer{batch: []ai.Scores{
		{Overall: 80, ContentRelevance: 80},
		{Overall: 10, ContentRelevance: 10},
	}}
	svc := New(scorer, nil)

	outcomes, err := svc.Run(context.Background(), []ai.BatchItem{
		item("Only one real answer in the batch request here."),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Scores.Overall != 80 {
		t.Errorf("outcome = %+v, want first batch entry", outcomes[0])
	}
	if len(scorer.singleCalls) != 0 {
		t.Errorf("single calls = %d, want 0", len(scorer.singleCalls))
	}
}

func TestRunBatchErrorPropagates(t *testing.T) {
	wantErr := errors.New("provider unavailable")
	scorer := &stubScorer{batchErr: wantErr}
	svc := New(scorer, nil)

	_, err := svc.Run(context.Background(), []ai.BatchItem{
		item("An answer long enough to reach the provider call."),
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want %v", err, wantErr)
	}
}

func TestRunFallbackErrorPropagates(t *testing.T) {
	wantErr := errors.New("rate limited")
	scorer := &stubScorer{batch: []ai.Scores{}, singleErr: wantErr}
	svc := New(scorer, nil)

	_, err := svc.Run(context.Background(), []ai.BatchItem{
		item("An answer long enough to reach the provider call."),
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run error = %v, want %v", err, wantErr)
	}
}

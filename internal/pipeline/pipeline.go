// Package pipeline runs the interview analysis job: transcribe every
// response, score the batch, assess authenticity, persist per-response
// analyses, aggregate the final score, and close out the ledger entry.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talentgate/interview-pipeline/internal/aggregate"
	"github.com/talentgate/interview-pipeline/internal/ai"
	"github.com/talentgate/interview-pipeline/internal/authenticity"
	"github.com/talentgate/interview-pipeline/internal/media"
	"github.com/talentgate/interview-pipeline/internal/models"
	"github.com/talentgate/interview-pipeline/internal/notify"
	"github.com/talentgate/interview-pipeline/internal/queue"
	"github.com/talentgate/interview-pipeline/internal/scoring"
	"github.com/talentgate/interview-pipeline/internal/store"
)

const (
	// defaultTranscribeLimit bounds concurrent transcription calls.
	defaultTranscribeLimit = 5
	// maxAttempts is the number of full pipeline runs before the interview
	// is marked failed.
	maxAttempts = 3
	// retryStep spaces run attempts: 1x after the first failure, 2x after
	// the second.
	retryStep = time.Minute
)

// Assessor produces an authenticity assessment for one video. Assessment
// failures surface inside the result, never as an error.
type Assessor interface {
	Assess(ctx context.Context, videoPath string) authenticity.Assessment
}

// Runner executes one pipeline run end to end.
type Runner struct {
	store       store.Store
	media       media.Store
	transcriber ai.Transcriber
	scoring     *scoring.Service
	assessor    Assessor
	notifier    notify.Notifier
	logger      *zap.Logger

	transcribeLimit int
	retryStep       time.Duration
}

// RunnerParams collects the collaborators of a Runner. Zero values fall back
// to defaults where a default exists.
type RunnerParams struct {
	Store       store.Store
	Media       media.Store
	Transcriber ai.Transcriber
	Scoring     *scoring.Service
	Assessor    Assessor
	Notifier    notify.Notifier
	Logger      *zap.Logger

	TranscribeLimit int
	RetryStep       time.Duration
}

func NewRunner(p RunnerParams) *Runner {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.TranscribeLimit <= 0 {
		p.TranscribeLimit = defaultTranscribeLimit
	}
	if p.RetryStep <= 0 {
		p.RetryStep = retryStep
	}
	if p.Notifier == nil {
		p.Notifier = notify.NewLog(p.Logger)
	}
	return &Runner{
		store:           p.Store,
		media:           p.Media,
		transcriber:     p.Transcriber,
		scoring:         p.Scoring,
		assessor:        p.Assessor,
		notifier:        p.Notifier,
		logger:          p.Logger,
		transcribeLimit: p.TranscribeLimit,
		retryStep:       p.RetryStep,
	}
}

// Process runs the job with run-level retries. After the final failed
// attempt the interview and its ledger entry are marked failed with the
// error recorded.
func (r *Runner) Process(ctx context.Context, job queue.Job) error {
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{step: r.retryStep}, maxAttempts-1), ctx)

	err := backoff.Retry(func() error {
		attempt++
		runErr := r.Run(ctx, job)
		if runErr != nil {
			r.logger.Error("pipeline run failed",
				zap.Uint("interview_id", job.InterviewID),
				zap.Int("attempt", attempt),
				zap.Error(runErr),
			)
		}
		return runErr
	}, policy)
	if err == nil {
		return nil
	}

	now := time.Now()
	if failErr := r.store.FailInterview(ctx, job.InterviewID, err.Error()); failErr != nil {
		r.logger.Error("recording interview failure", zap.Uint("interview_id", job.InterviewID), zap.Error(failErr))
	}
	if job.LedgerID != "" {
		if ledgerErr := r.store.FinishLedgerEntry(ctx, job.LedgerID, models.LedgerFailed, err.Error(), now); ledgerErr != nil {
			r.logger.Error("recording ledger failure", zap.String("ledger_id", job.LedgerID), zap.Error(ledgerErr))
		}
	}
	return err
}

// Run executes a single pipeline attempt. Re-running a completed interview
// is safe: analyses and the result are upserted, never duplicated.
func (r *Runner) Run(ctx context.Context, job queue.Job) error {
	log := r.logger.With(zap.Uint("interview_id", job.InterviewID))
	log.Info("starting interview analysis")

	if job.LedgerID != "" {
		if err := r.store.StartLedgerEntry(ctx, job.LedgerID, time.Now()); err != nil {
			log.Warn("ledger entry not started", zap.String("ledger_id", job.LedgerID), zap.Error(err))
		}
	}

	interview, err := r.store.Interview(ctx, job.InterviewID)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("loading interview %d: %w", job.InterviewID, err))
	}

	if err := r.store.SetInterviewStatus(ctx, interview.ID, models.InterviewProcessing); err != nil {
		return fmt.Errorf("marking interview processing: %w", err)
	}

	responses, err := r.store.Responses(ctx, interview.ID)
	if err != nil {
		return fmt.Errorf("loading responses: %w", err)
	}
	log.Info("responses loaded", zap.Int("count", len(responses)))

	paths := make([]string, len(responses))
	for i, resp := range responses {
		paths[i], err = r.media.Path(ctx, resp.MediaRef)
		if err != nil {
			return fmt.Errorf("resolving media for response %d: %w", resp.ID, err)
		}
	}

	if err := r.transcribeAll(ctx, responses, paths); err != nil {
		return err
	}

	roleContext := aggregate.PromptContext(interview.RoleCode)
	items := make([]ai.BatchItem, len(responses))
	for i, resp := range responses {
		question := resp.QuestionText
		if question == "" {
			question = resp.QuestionRef
		}
		items[i] = ai.BatchItem{
			Transcript:  resp.Transcript,
			Question:    question,
			Competency:  resp.Competency,
			RoleContext: roleContext,
		}
	}

	outcomes, err := r.scoring.Run(ctx, items)
	if err != nil {
		return fmt.Errorf("scoring batch: %w", err)
	}

	stats := make(map[string]aggregate.CompetencyStat)
	anyFlagged := false
	savedFailures := 0

	for i, resp := range responses {
		assessment := r.assessor.Assess(ctx, paths[i])
		if assessment.Status == models.AuthenticitySuspicious || assessment.Status == models.AuthenticityHighRisk {
			anyFlagged = true
		}

		rec, scoreValue := buildRecord(resp, outcomes[i], assessment)
		if err := r.store.SaveResponseAnalysis(ctx, rec); err != nil {
			log.Error("persisting response analysis",
				zap.Uint("response_id", resp.ID),
				zap.Error(err),
			)
			savedFailures++
			if markErr := r.store.MarkResponseFailed(ctx, resp.ID); markErr != nil {
				log.Error("marking response failed", zap.Uint("response_id", resp.ID), zap.Error(markErr))
			}
			continue
		}

		if outcomes[i].TechnicalIssue {
			log.Warn("response flagged as technical issue", zap.Uint("response_id", resp.ID))
			continue
		}

		// HR overrides survive re-analysis: the override, not the fresh
		// AI score, feeds aggregation.
		if resp.HROverrideScore != nil {
			scoreValue = *resp.HROverrideScore
		}
		competency := resp.Competency
		if competency == "" {
			competency = "general"
		}
		stat := stats[competency]
		stat.Sum += scoreValue
		stat.Count++
		stats[competency] = stat
	}

	authStatus := models.AuthenticityVerified
	if anyFlagged {
		authStatus = models.AuthenticityUnderInvestigation
	}
	if err := r.store.SetInterviewAuthenticity(ctx, interview.ID, anyFlagged, authStatus); err != nil {
		return fmt.Errorf("updating interview authenticity: %w", err)
	}

	out := aggregate.Aggregate(stats, interview.RoleCode)
	result := &models.Result{
		InterviewID:        interview.ID,
		FinalScore:         out.FinalScore,
		Passed:             out.Recommendation == models.RecommendationPass,
		RawScores:          out.Raw,
		WeightedScores:     out.Weighted,
		WeightsUsed:        out.WeightsUsed,
		RoleProfile:        out.RoleProfile,
		Explanation:        out.Explanation,
		Recommendation:     out.Recommendation,
		AllTechnicalIssues: out.AllTechnicalIssues,
	}
	if err := r.store.UpsertResult(ctx, result); err != nil {
		return fmt.Errorf("saving result: %w", err)
	}

	now := time.Now()
	if err := r.store.CompleteInterview(ctx, interview.ID, now); err != nil {
		return fmt.Errorf("completing interview: %w", err)
	}
	if job.LedgerID != "" {
		if err := r.store.FinishLedgerEntry(ctx, job.LedgerID, models.LedgerCompleted, "", now); err != nil {
			log.Warn("ledger entry not finished", zap.String("ledger_id", job.LedgerID), zap.Error(err))
		}
	}

	interview.AuthenticityFlag = anyFlagged
	interview.AuthenticityStatus = authStatus
	if err := r.notifier.ResultReady(ctx, interview, result); err != nil {
		log.Warn("result notification failed", zap.Error(err))
	}

	log.Info("interview analysis complete",
		zap.Float64("final_score", result.FinalScore),
		zap.String("recommendation", result.Recommendation),
		zap.Int("persist_failures", savedFailures),
	)
	return nil
}

// transcribeAll fills in missing transcripts with bounded parallelism. Any
// transcription failure fails the whole run so it can be retried.
func (r *Runner) transcribeAll(ctx context.Context, responses []*models.Response, paths []string) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.transcribeLimit)

	for i, resp := range responses {
		if resp.HasTranscript() || resp.Status == models.ResponseAnalyzed {
			continue
		}
		i, resp := i, resp
		group.Go(func() error {
			transcript, err := r.transcriber.Transcribe(groupCtx, paths[i])
			if err != nil {
				return fmt.Errorf("transcribing response %d: %w", resp.ID, err)
			}
			if err := r.store.SaveTranscript(groupCtx, resp.ID, transcript); err != nil {
				return fmt.Errorf("saving transcript for response %d: %w", resp.ID, err)
			}
			resp.Transcript = transcript
			return nil
		})
	}
	return group.Wait()
}

// buildRecord assembles the atomic persistence unit for one response and
// returns the score value that feeds aggregation.
func buildRecord(resp *models.Response, outcome scoring.Outcome, assessment authenticity.Assessment) (store.ResponseAnalysis, float64) {
	rec := store.ResponseAnalysis{
		ResponseID:                 resp.ID,
		Transcript:                 resp.Transcript,
		Status:                     models.ResponseAnalyzed,
		AuthenticityClassification: assessment.Status,
	}
	if detail, err := json.Marshal(assessment); err == nil {
		s := string(detail)
		rec.AuthenticityDetail = &s
	}

	if outcome.TechnicalIssue {
		return rec, 0
	}

	scores := outcome.Scores
	overall := float64(scores.Overall)
	rec.AIScore = &overall
	rec.Analysis = &models.Analysis{
		ResponseID:       resp.ID,
		Sentiment:        scores.Sentiment,
		Confidence:       scores.Confidence,
		Clarity:          scores.Clarity,
		ContentRelevance: scores.ContentRelevance,
		Overall:          scores.Overall,
		Recommendation:   outcome.Recommendation,
		Summary:          scores.Summary,
	}
	if scores.Raw != "" {
		raw := scores.Raw
		rec.Analysis.RawPayload = &raw
	}
	return rec, overall
}

// linearBackOff waits step, 2*step, 3*step between attempts.
type linearBackOff struct {
	step    time.Duration
	retries int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	return time.Duration(b.retries) * b.step
}

func (b *linearBackOff) Reset() { b.retries = 0 }

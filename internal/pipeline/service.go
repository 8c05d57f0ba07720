package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/models"
	"github.com/talentgate/interview-pipeline/internal/queue"
	"github.com/talentgate/interview-pipeline/internal/store"
)

// Service is the control surface for pipeline runs: enqueueing, status
// polling, and result retrieval. The queue carries the jobs; the ledger
// records their lifecycle.
type Service struct {
	store     store.Store
	publisher queue.Publisher
	logger    *zap.Logger
}

func NewService(st store.Store, publisher queue.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, publisher: publisher, logger: logger}
}

// Progress summarizes how far a run has come through the interview.
type Progress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Remaining int `json:"remaining"`
}

// JobStatus is the polling view of the latest pipeline run.
type JobStatus struct {
	LedgerID     string     `json:"ledger_id"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	QueuedAt     time.Time  `json:"queued_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Progress     Progress   `json:"progress"`
}

// Enqueue records a new ledger entry and publishes the analysis job.
func (s *Service) Enqueue(ctx context.Context, interviewID uint) (*models.JobLedgerEntry, error) {
	interview, err := s.store.Interview(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("loading interview %d: %w", interviewID, err)
	}

	entry := &models.JobLedgerEntry{
		ID:          uuid.NewString(),
		InterviewID: interview.ID,
		Status:      models.LedgerPending,
		QueuedAt:    time.Now(),
	}
	if err := s.store.CreateLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("recording ledger entry: %w", err)
	}

	job := queue.Job{InterviewID: interview.ID, LedgerID: entry.ID}
	if err := s.publisher.Publish(ctx, job); err != nil {
		if finishErr := s.store.FinishLedgerEntry(ctx, entry.ID, models.LedgerFailed, err.Error(), time.Now()); finishErr != nil {
			s.logger.Error("recording publish failure", zap.String("ledger_id", entry.ID), zap.Error(finishErr))
		}
		return nil, fmt.Errorf("publishing analysis job: %w", err)
	}

	s.logger.Info("analysis job enqueued",
		zap.Uint("interview_id", interview.ID),
		zap.String("ledger_id", entry.ID),
	)
	return entry, nil
}

// Status reports the latest ledger entry for the interview plus response
// progress counts.
func (s *Service) Status(ctx context.Context, interviewID uint) (*JobStatus, error) {
	entry, err := s.store.LatestLedgerEntry(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("loading ledger for interview %d: %w", interviewID, err)
	}

	responses, err := s.store.Responses(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("loading responses: %w", err)
	}

	progress := Progress{Total: len(responses)}
	for _, resp := range responses {
		if resp.Status == models.ResponseAnalyzed || resp.Status == models.ResponseFailed {
			progress.Processed++
		}
	}
	progress.Remaining = progress.Total - progress.Processed

	return &JobStatus{
		LedgerID:     entry.ID,
		Status:       entry.Status,
		ErrorMessage: entry.ErrorMessage,
		QueuedAt:     entry.QueuedAt,
		StartedAt:    entry.StartedAt,
		CompletedAt:  entry.CompletedAt,
		Progress:     progress,
	}, nil
}

// Result returns the aggregated outcome of a completed interview.
func (s *Service) Result(ctx context.Context, interviewID uint) (*models.Result, error) {
	return s.store.Result(ctx, interviewID)
}

// RequeueFailed re-enqueues every failed interview and returns the new
// ledger entries.
func (s *Service) RequeueFailed(ctx context.Context) ([]*models.JobLedgerEntry, error) {
	failed, err := s.store.FailedInterviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading failed interviews: %w", err)
	}

	entries := make([]*models.JobLedgerEntry, 0, len(failed))
	for _, interview := range failed {
		entry, err := s.Enqueue(ctx, interview.ID)
		if err != nil {
			return entries, fmt.Errorf("requeueing interview %d: %w", interview.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

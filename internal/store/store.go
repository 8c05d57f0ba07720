package store

import (
	"context"
	"errors"
	"time"

	"github.com/talentgate/interview-pipeline/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ResponseAnalysis is the atomic persistence unit for one analyzed response:
// the transcript, score fields, authenticity fields, the terminal status, and
// the Analysis row (nil for a technical issue). All of it is written in a
// single transaction so a crash mid-run leaves other responses intact.
type ResponseAnalysis struct {
	ResponseID uint
	Transcript string
	AIScore    *float64
	Status     string

	AuthenticityClassification string
	AuthenticityDetail         *string

	Analysis *models.Analysis
}

// Store is the persistence facade consumed by the pipeline and the API
// surface. The MySQL implementation is the production one; Mem backs tests.
type Store interface {
	Interview(ctx context.Context, id uint) (*models.Interview, error)
	Responses(ctx context.Context, interviewID uint) ([]*models.Response, error)
	FailedInterviews(ctx context.Context) ([]*models.Interview, error)

	SetInterviewStatus(ctx context.Context, id uint, status string) error
	CompleteInterview(ctx context.Context, id uint, completedAt time.Time) error
	FailInterview(ctx context.Context, id uint, reason string) error
	SetInterviewAuthenticity(ctx context.Context, id uint, flagged bool, status string) error

	SaveTranscript(ctx context.Context, responseID uint, transcript string) error
	SaveResponseAnalysis(ctx context.Context, rec ResponseAnalysis) error
	MarkResponseFailed(ctx context.Context, responseID uint) error

	CreateLedgerEntry(ctx context.Context, entry *models.JobLedgerEntry) error
	StartLedgerEntry(ctx context.Context, id string, at time.Time) error
	FinishLedgerEntry(ctx context.Context, id string, status string, errText string, at time.Time) error
	LatestLedgerEntry(ctx context.Context, interviewID uint) (*models.JobLedgerEntry, error)

	UpsertResult(ctx context.Context, res *models.Result) error
	Result(ctx context.Context, interviewID uint) (*models.Result, error)
}

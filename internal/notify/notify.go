// Package notify is the outbound hook fired when an interview finishes
// analysis. Delivery is best-effort: the pipeline logs failures and moves on.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/talentgate/interview-pipeline/internal/models"
)

// Notifier is invoked once per completed pipeline run.
type Notifier interface {
	ResultReady(ctx context.Context, interview *models.Interview, result *models.Result) error
}

// Log records completions in the structured log. It stands in until a real
// delivery channel (mail, webhook) is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) ResultReady(_ context.Context, interview *models.Interview, result *models.Result) error {
	l.logger.Info("interview result ready",
		zap.Uint("interview_id", interview.ID),
		zap.Float64("final_score", result.FinalScore),
		zap.Bool("passed", result.Passed),
		zap.String("recommendation", result.Recommendation),
		zap.Bool("authenticity_flag", interview.AuthenticityFlag),
	)
	return nil
}

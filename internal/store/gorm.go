package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/talentgate/interview-pipeline/internal/models"
)

// Gorm is the MySQL-backed Store.
type Gorm struct {
	db *gorm.DB
}

// Open connects to MySQL with the provided DSN and migrates the pipeline
// schema. The surrounding CRUD application shares the same database.
func Open(dsn string) (*Gorm, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Interview{},
		&models.Response{},
		&models.Analysis{},
		&models.Result{},
		&models.JobLedgerEntry{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Gorm{db: db}, nil
}

// NewGorm wraps an existing gorm connection. Used when the host application
// owns the connection pool.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Interview(ctx context.Context, id uint) (*models.Interview, error) {
	var interview models.Interview
	err := g.db.WithContext(ctx).First(&interview, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load interview %d: %w", id, err)
	}
	return &interview, nil
}

func (g *Gorm) Responses(ctx context.Context, interviewID uint) ([]*models.Response, error) {
	var responses []*models.Response
	err := g.db.WithContext(ctx).
		Preload("Analysis").
		Where("interview_id = ?", interviewID).
		Order("id").
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("load responses for interview %d: %w", interviewID, err)
	}
	return responses, nil
}

func (g *Gorm) FailedInterviews(ctx context.Context) ([]*models.Interview, error) {
	var interviews []*models.Interview
	err := g.db.WithContext(ctx).
		Where("status = ?", models.InterviewFailed).
		Order("id").
		Find(&interviews).Error
	if err != nil {
		return nil, fmt.Errorf("load failed interviews: %w", err)
	}
	return interviews, nil
}

func (g *Gorm) SetInterviewStatus(ctx context.Context, id uint, status string) error {
	return g.updateInterview(ctx, id, map[string]any{"status": status})
}

func (g *Gorm) CompleteInterview(ctx context.Context, id uint, completedAt time.Time) error {
	return g.updateInterview(ctx, id, map[string]any{
		"status":        models.InterviewCompleted,
		"completed_at":  completedAt,
		"error_message": "",
	})
}

func (g *Gorm) FailInterview(ctx context.Context, id uint, reason string) error {
	return g.updateInterview(ctx, id, map[string]any{
		"status":        models.InterviewFailed,
		"error_message": reason,
	})
}

func (g *Gorm) SetInterviewAuthenticity(ctx context.Context, id uint, flagged bool, status string) error {
	return g.updateInterview(ctx, id, map[string]any{
		"authenticity_flag":   flagged,
		"authenticity_status": status,
	})
}

func (g *Gorm) updateInterview(ctx context.Context, id uint, fields map[string]any) error {
	err := g.db.WithContext(ctx).
		Model(&models.Interview{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("update interview %d: %w", id, err)
	}
	return nil
}

func (g *Gorm) SaveTranscript(ctx context.Context, responseID uint, transcript string) error {
	err := g.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("id = ?", responseID).
		Update("transcript", transcript).Error
	if err != nil {
		return fmt.Errorf("save transcript for response %d: %w", responseID, err)
	}
	return nil
}

func (g *Gorm) SaveResponseAnalysis(ctx context.Context, rec ResponseAnalysis) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]any{
			"transcript":                  rec.Transcript,
			"ai_score":                    rec.AIScore,
			"status":                      rec.Status,
			"authenticity_classification": rec.AuthenticityClassification,
			"authenticity_detail":         rec.AuthenticityDetail,
		}
		if err := tx.Model(&models.Response{}).Where("id = ?", rec.ResponseID).Updates(fields).Error; err != nil {
			return err
		}

		if rec.Analysis == nil {
			// Technical issue: no analysis row is created, and a stale one
			// from a previous run must not survive a re-run.
			return tx.Where("response_id = ?", rec.ResponseID).Delete(&models.Analysis{}).Error
		}

		rec.Analysis.ResponseID = rec.ResponseID
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "response_id"}},
			UpdateAll: true,
		}).Create(rec.Analysis).Error
	})
	if err != nil {
		return fmt.Errorf("persist analysis for response %d: %w", rec.ResponseID, err)
	}
	return nil
}

func (g *Gorm) MarkResponseFailed(ctx context.Context, responseID uint) error {
	err := g.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("id = ?", responseID).
		Update("status", models.ResponseFailed).Error
	if err != nil {
		return fmt.Errorf("mark response %d failed: %w", responseID, err)
	}
	return nil
}

func (g *Gorm) CreateLedgerEntry(ctx context.Context, entry *models.JobLedgerEntry) error {
	if err := g.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	return nil
}

func (g *Gorm) StartLedgerEntry(ctx context.Context, id string, at time.Time) error {
	return g.updateLedgerEntry(ctx, id, map[string]any{
		"status":     models.LedgerProcessing,
		"started_at": at,
	})
}

func (g *Gorm) FinishLedgerEntry(ctx context.Context, id string, status string, errText string, at time.Time) error {
	return g.updateLedgerEntry(ctx, id, map[string]any{
		"status":        status,
		"error_message": errText,
		"completed_at":  at,
	})
}

func (g *Gorm) updateLedgerEntry(ctx context.Context, id string, fields map[string]any) error {
	err := g.db.WithContext(ctx).
		Model(&models.JobLedgerEntry{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("update ledger entry %s: %w", id, err)
	}
	return nil
}

func (g *Gorm) LatestLedgerEntry(ctx context.Context, interviewID uint) (*models.JobLedgerEntry, error) {
	var entry models.JobLedgerEntry
	err := g.db.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		Order("queued_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger entry for interview %d: %w", interviewID, err)
	}
	return &entry, nil
}

func (g *Gorm) UpsertResult(ctx context.Context, res *models.Result) error {
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "interview_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"final_score", "passed", "raw_scores", "weighted_scores",
			"weights_used", "role_profile", "explanation",
			"recommendation", "all_technical_issues", "updated_at",
		}),
	}).Create(res).Error
	if err != nil {
		return fmt.Errorf("upsert result for interview %d: %w", res.InterviewID, err)
	}
	return nil
}

func (g *Gorm) Result(ctx context.Context, interviewID uint) (*models.Result, error) {
	var res models.Result
	err := g.db.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result for interview %d: %w", interviewID, err)
	}
	return &res, nil
}

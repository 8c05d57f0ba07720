package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Interview lifecycle statuses.
const (
	InterviewPending    = "pending"
	InterviewInProgress = "in_progress"
	InterviewSubmitted  = "submitted"
	InterviewProcessing = "processing"
	InterviewCompleted  = "completed"
	InterviewFailed     = "failed"
)

// Response lifecycle statuses.
const (
	ResponseUploaded   = "uploaded"
	ResponseProcessing = "processing"
	ResponseAnalyzed   = "analyzed"
	ResponseFailed     = "failed"
)

// Authenticity classifications produced by the gaze scorer.
const (
	AuthenticityClear      = "clear"
	AuthenticitySuspicious = "suspicious"
	AuthenticityHighRisk   = "high_risk"
)

// Interview-level authenticity statuses.
const (
	AuthenticityVerified           = "verified"
	AuthenticityUnderInvestigation = "under_investigation"
	AuthenticityFailed             = "failed_authenticity"
)

// Recommendations attached to an Analysis or Result.
const (
	RecommendationPass           = "pass"
	RecommendationReview         = "review"
	RecommendationFail           = "fail"
	RecommendationTechnicalIssue = "technical_issue"
)

// Job ledger entry statuses.
const (
	LedgerPending    = "pending"
	LedgerProcessing = "processing"
	LedgerCompleted  = "completed"
	LedgerFailed     = "failed"
)

// ScoreMap stores a competency -> score mapping as a JSON column.
type ScoreMap map[string]float64

func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *ScoreMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan ScoreMap: unsupported type %T", value)
	}

	return json.Unmarshal(data, m)
}

// Interview aggregates the responses of one candidate attempt at one role.
type Interview struct {
	ID       uint   `gorm:"primaryKey"`
	RoleCode string `gorm:"size:64;index"`
	Status   string `gorm:"size:20;default:'pending';index"`

	AuthenticityFlag   bool   `gorm:"default:false"`
	AuthenticityStatus string `gorm:"size:20;default:'verified'"`

	ErrorMessage string `gorm:"type:text"`

	SubmittedAt *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Responses []Response `gorm:"constraint:OnDelete:CASCADE"`
}

// Response is one answer to one question. The transcript is set once; a nil
// FinalScore marks a technical issue (no usable audio), which is excluded from
// aggregation but is not an error.
type Response struct {
	ID          uint `gorm:"primaryKey"`
	InterviewID uint `gorm:"not null;index"`

	QuestionRef  string `gorm:"size:255;not null"`
	QuestionText string `gorm:"type:text"`
	Competency   string `gorm:"size:64;index"`
	MediaRef     string `gorm:"size:512;not null"`

	Transcript string `gorm:"type:text"`
	Status     string `gorm:"size:20;default:'uploaded'"`

	AIScore         *float64
	HROverrideScore *float64
	HRComments      string `gorm:"type:text"`
	HRReviewedAt    *time.Time

	AuthenticityClassification string  `gorm:"size:20"`
	AuthenticityDetail         *string `gorm:"type:json"`

	UploadedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time

	Analysis *Analysis `gorm:"constraint:OnDelete:CASCADE"`
}

// FinalScore returns the HR override when present, otherwise the AI score.
// A nil result means the response carries no usable score.
func (r *Response) FinalScore() *float64 {
	if r.HROverrideScore != nil {
		return r.HROverrideScore
	}
	return r.AIScore
}

// HasTranscript reports whether a non-empty transcript is already stored.
// An empty transcript can still be a valid outcome; the caller checks the
// response status to tell an unprocessed response from a silent one.
func (r *Response) HasTranscript() bool {
	return r.Transcript != ""
}

// Analysis is the detailed scoring record for one response, 1:1 and upserted.
type Analysis struct {
	ID         uint `gorm:"primaryKey"`
	ResponseID uint `gorm:"not null;uniqueIndex"`

	Sentiment        int `gorm:"not null"`
	Confidence       int `gorm:"not null"`
	Clarity          int `gorm:"not null"`
	ContentRelevance int `gorm:"not null"`
	Overall          int `gorm:"not null"`

	Recommendation string  `gorm:"size:20;not null"`
	Summary        string  `gorm:"type:text"`
	RawPayload     *string `gorm:"type:json"`

	AnalyzedAt time.Time `gorm:"autoCreateTime"`
}

// Result is the single aggregated outcome of a completed interview,
// recreated via upsert and never duplicated.
type Result struct {
	ID          uint `gorm:"primaryKey"`
	InterviewID uint `gorm:"not null;uniqueIndex"`

	FinalScore float64
	Passed     bool

	RawScores      ScoreMap `gorm:"type:json"`
	WeightedScores ScoreMap `gorm:"type:json"`
	WeightsUsed    ScoreMap `gorm:"type:json"`
	RoleProfile    string   `gorm:"size:64"`
	Explanation    string   `gorm:"type:text"`

	Recommendation     string `gorm:"size:20"`
	AllTechnicalIssues bool   `gorm:"default:false"`

	FinalDecision      string `gorm:"size:20"`
	FinalDecisionNotes string `gorm:"type:text"`
	DecidedAt          *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobLedgerEntry records one pipeline run attempt for an interview. Several
// entries may exist across retries; the latest is authoritative for polling.
type JobLedgerEntry struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	InterviewID uint   `gorm:"not null;index"`

	Status       string `gorm:"size:20;default:'pending'"`
	ErrorMessage string `gorm:"type:text"`

	QueuedAt    time.Time `gorm:"autoCreateTime"`
	StartedAt   *time.Time
	CompletedAt *time.Time
}

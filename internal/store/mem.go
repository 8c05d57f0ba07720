package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/talentgate/interview-pipeline/internal/models"
)

// Mem is an in-memory Store used by tests and local development.
type Mem struct {
	mu         sync.Mutex
	interviews map[uint]*models.Interview
	responses  map[uint]*models.Response
	analyses   map[uint]*models.Analysis // keyed by response ID
	results    map[uint]*models.Result   // keyed by interview ID
	ledger     []*models.JobLedgerEntry

	// SaveFailures injects a persistence error for specific response IDs,
	// exercising response-level failure isolation.
	SaveFailures map[uint]error
}

func NewMem() *Mem {
	return &Mem{
		interviews: make(map[uint]*models.Interview),
		responses:  make(map[uint]*models.Response),
		analyses:   make(map[uint]*models.Analysis),
		results:    make(map[uint]*models.Result),
	}
}

// AddInterview seeds an interview and its responses.
func (m *Mem) AddInterview(interview *models.Interview, responses ...*models.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *interview
	m.interviews[cp.ID] = &cp
	for _, r := range responses {
		rc := *r
		rc.InterviewID = cp.ID
		m.responses[rc.ID] = &rc
	}
}

// AnalysisCount reports how many analysis rows exist for an interview.
func (m *Mem) AnalysisCount(interviewID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.responses {
		if r.InterviewID == interviewID {
			if _, ok := m.analyses[id]; ok {
				n++
			}
		}
	}
	return n
}

func (m *Mem) Interview(_ context.Context, id uint) (*models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	interview, ok := m.interviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *interview
	return &cp, nil
}

func (m *Mem) Responses(_ context.Context, interviewID uint) ([]*models.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Response
	for _, r := range m.responses {
		if r.InterviewID != interviewID {
			continue
		}
		cp := *r
		if a, ok := m.analyses[r.ID]; ok {
			ac := *a
			cp.Analysis = &ac
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Mem) FailedInterviews(_ context.Context) ([]*models.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Interview
	for _, interview := range m.interviews {
		if interview.Status == models.InterviewFailed {
			cp := *interview
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Mem) SetInterviewStatus(_ context.Context, id uint, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	interview, ok := m.interviews[id]
	if !ok {
		return ErrNotFound
	}
	interview.Status = status
	return nil
}

func (m *Mem) CompleteInterview(_ context.Context, id uint, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	interview, ok := m.interviews[id]
	if !ok {
		return ErrNotFound
	}
	interview.Status = models.InterviewCompleted
	interview.CompletedAt = &completedAt
	interview.ErrorMessage = ""
	return nil
}

func (m *Mem) FailInterview(_ context.Context, id uint, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	interview, ok := m.interviews[id]
	if !ok {
		return ErrNotFound
	}
	interview.Status = models.InterviewFailed
	interview.ErrorMessage = reason
	return nil
}

func (m *Mem) SetInterviewAuthenticity(_ context.Context, id uint, flagged bool, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	interview, ok := m.interviews[id]
	if !ok {
		return ErrNotFound
	}
	interview.AuthenticityFlag = flagged
	interview.AuthenticityStatus = status
	return nil
}

func (m *Mem) SaveTranscript(_ context.Context, responseID uint, transcript string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	response, ok := m.responses[responseID]
	if !ok {
		return ErrNotFound
	}
	response.Transcript = transcript
	return nil
}

func (m *Mem) SaveResponseAnalysis(_ context.Context, rec ResponseAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.SaveFailures[rec.ResponseID]; ok {
		return err
	}
	response, ok := m.responses[rec.ResponseID]
	if !ok {
		return ErrNotFound
	}

	response.Transcript = rec.Transcript
	response.AIScore = rec.AIScore
	response.Status = rec.Status
	response.AuthenticityClassification = rec.AuthenticityClassification
	response.AuthenticityDetail = rec.AuthenticityDetail

	if rec.Analysis == nil {
		delete(m.analyses, rec.ResponseID)
		return nil
	}
	cp := *rec.Analysis
	cp.ResponseID = rec.ResponseID
	if existing, ok := m.analyses[rec.ResponseID]; ok {
		cp.ID = existing.ID
	} else {
		cp.ID = uint(len(m.analyses) + 1)
	}
	m.analyses[rec.ResponseID] = &cp
	return nil
}

func (m *Mem) MarkResponseFailed(_ context.Context, responseID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	response, ok := m.responses[responseID]
	if !ok {
		return ErrNotFound
	}
	response.Status = models.ResponseFailed
	return nil
}

func (m *Mem) CreateLedgerEntry(_ context.Context, entry *models.JobLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		return errors.New("ledger entry id is required")
	}
	cp := *entry
	if cp.QueuedAt.IsZero() {
		cp.QueuedAt = time.Now()
	}
	m.ledger = append(m.ledger, &cp)
	return nil
}

func (m *Mem) StartLedgerEntry(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.findLedger(id)
	if entry == nil {
		return ErrNotFound
	}
	entry.Status = models.LedgerProcessing
	entry.StartedAt = &at
	return nil
}

func (m *Mem) FinishLedgerEntry(_ context.Context, id string, status string, errText string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.findLedger(id)
	if entry == nil {
		return ErrNotFound
	}
	entry.Status = status
	entry.ErrorMessage = errText
	entry.CompletedAt = &at
	return nil
}

func (m *Mem) LatestLedgerEntry(_ context.Context, interviewID uint) (*models.JobLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.JobLedgerEntry
	for _, entry := range m.ledger {
		if entry.InterviewID != interviewID {
			continue
		}
		if latest == nil || entry.QueuedAt.After(latest.QueuedAt) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *Mem) UpsertResult(_ context.Context, res *models.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *res
	if existing, ok := m.results[res.InterviewID]; ok {
		cp.ID = existing.ID
	} else {
		cp.ID = uint(len(m.results) + 1)
	}
	m.results[res.InterviewID] = &cp
	return nil
}

func (m *Mem) Result(_ context.Context, interviewID uint) (*models.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[interviewID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *Mem) findLedger(id string) *models.JobLedgerEntry {
	for _, entry := range m.ledger {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

package assessment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// repoMemory is the in-memory Repository used when no database is
// configured. All reads return copies so callers never share state with
// the store.
type repoMemory struct {
	mu          sync.RWMutex
	assessments map[uuid.UUID]*Assessment
	results     map[uuid.UUID][]*AssessmentResult
	logs        map[uuid.UUID][]*LogEntry
}

// NewMemoryRepo creates an empty in-memory repository.
func NewMemoryRepo() Repository {
	return &repoMemory{
		assessments: make(map[uuid.UUID]*Assessment),
		results:     make(map[uuid.UUID][]*AssessmentResult),
		logs:        make(map[uuid.UUID][]*LogEntry),
	}
}

func (r *repoMemory) CreateAssessment(_ context.Context, a *Assessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.assessments[a.ID] = &cp
	return nil
}

func (r *repoMemory) GetAssessment(_ context.Context, id uuid.UUID) (*Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assessments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *repoMemory) UpdateAssessmentStatus(_ context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assessments[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	now := time.Now()
	switch {
	case status == StatusRunning && a.StartedAt == nil:
		a.StartedAt = &now
	case status.Terminal() && a.CompletedAt == nil:
		a.CompletedAt = &now
	}
	return nil
}

func (r *repoMemory) SaveResult(_ context.Context, res *AssessmentResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *res
	r.results[res.AssessmentID] = append(r.results[res.AssessmentID], &cp)
	return nil
}

func (r *repoMemory) ListResults(_ context.Context, assessmentID uuid.UUID) ([]*AssessmentResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.results[assessmentID]
	out := make([]*AssessmentResult, 0, len(stored))
	for _, res := range stored {
		cp := *res
		out = append(out, &cp)
	}
	return out, nil
}

func (r *repoMemory) SaveLog(_ context.Context, entry *LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.logs[entry.AssessmentID] = append(r.logs[entry.AssessmentID], &cp)
	return nil
}

func (r *repoMemory) ListLogs(_ context.Context, assessmentID uuid.UUID) ([]*LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.logs[assessmentID]
	out := make([]*LogEntry, 0, len(stored))
	for _, entry := range stored {
		cp := *entry
		out = append(out, &cp)
	}
	return out, nil
}

func (r *repoMemory) Ping(_ context.Context) error { return nil }

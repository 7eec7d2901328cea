package assessment

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TypeProgress tracks how far one resource type's evaluation has advanced.
type TypeProgress struct {
	ResourceType string     `json:"resourceType"`
	Status       TypeStatus `json:"status"`
	Total        int        `json:"total"`
	Completed    int        `json:"completed"`
}

// ProgressState is a point-in-time snapshot of an assessment's progress.
type ProgressState struct {
	AssessmentID    uuid.UUID      `json:"assessmentId"`
	Status          Status         `json:"status"`
	OverallProgress int            `json:"overallProgress"`
	Types           []TypeProgress `json:"resourceTypes"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type progressEntry struct {
	state      ProgressState
	terminalAt time.Time
}

// ProgressStore keeps live progress for running assessments in memory.
// Entries for terminal assessments are evicted after the retention window
// so polling clients have time to observe the final state.
type ProgressStore struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]*progressEntry
	retention time.Duration
	now       func() time.Time
}

// NewProgressStore creates a store evicting terminal entries after retention.
// A non-positive retention keeps terminal entries until the process exits.
func NewProgressStore(retention time.Duration) *ProgressStore {
	return &ProgressStore{
		entries:   make(map[uuid.UUID]*progressEntry),
		retention: retention,
		now:       time.Now,
	}
}

// Init registers an assessment with one pending slot per resource type.
// Each slot starts with the provisional total so the overall percentage
// accounts for every selected type from the first poll; SetTypeTotal
// corrects each slot once the real fetch count is known.
func (s *ProgressStore) Init(id uuid.UUID, resourceTypes []string, provisionalTotal int) {
	types := make([]TypeProgress, len(resourceTypes))
	for i, rt := range resourceTypes {
		types[i] = TypeProgress{ResourceType: rt, Status: TypePending, Total: provisionalTotal}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.entries[id] = &progressEntry{state: ProgressState{
		AssessmentID: id,
		Status:       StatusPending,
		Types:        types,
		UpdatedAt:    s.now(),
	}}
}

// SetStatus records the assessment-level status. Terminal statuses start the
// retention clock; completion forces overall progress to 100.
func (s *ProgressStore) SetStatus(id uuid.UUID, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.state.Status = status
	if status == StatusCompleted {
		e.state.OverallProgress = 100
	}
	if status.Terminal() {
		e.terminalAt = s.now()
	}
	e.state.UpdatedAt = s.now()
}

// StartType marks a resource type in progress with the given expected total.
func (s *ProgressStore) StartType(id uuid.UUID, resourceType string, total int) {
	s.update(id, resourceType, func(tp *TypeProgress) {
		tp.Status = TypeInProgress
		tp.Total = total
	})
}

// SetTypeTotal corrects a resource type's expected total, e.g. once the
// actual fetch count is known.
func (s *ProgressStore) SetTypeTotal(id uuid.UUID, resourceType string, total int) {
	s.update(id, resourceType, func(tp *TypeProgress) {
		tp.Total = total
		if tp.Completed > total {
			tp.Completed = total
		}
	})
}

// SetCompleted records the cumulative number of resources evaluated so far
// for a resource type.
func (s *ProgressStore) SetCompleted(id uuid.UUID, resourceType string, completed int) {
	s.update(id, resourceType, func(tp *TypeProgress) {
		tp.Completed = completed
		if tp.Total < completed {
			tp.Total = completed
		}
	})
}

// CompleteType marks a resource type finished, snapping completed to total.
func (s *ProgressStore) CompleteType(id uuid.UUID, resourceType string) {
	s.update(id, resourceType, func(tp *TypeProgress) {
		tp.Status = TypeComplete
		tp.Completed = tp.Total
	})
}

// Snapshot returns a copy of the current state for an assessment.
func (s *ProgressStore) Snapshot(id uuid.UUID) (ProgressState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return ProgressState{}, false
	}
	out := e.state
	out.Types = make([]TypeProgress, len(e.state.Types))
	copy(out.Types, e.state.Types)
	return out, true
}

func (s *ProgressStore) update(id uuid.UUID, resourceType string, fn func(*TypeProgress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return
	}
	for i := range e.state.Types {
		if e.state.Types[i].ResourceType == resourceType {
			fn(&e.state.Types[i])
			break
		}
	}
	e.state.OverallProgress = overallProgress(e.state.Types)
	if e.state.Status == StatusCompleted {
		e.state.OverallProgress = 100
	}
	e.state.UpdatedAt = s.now()
}

// overallProgress is the rounded percentage of completed resources across
// all resource types combined. With no known totals yet it reports zero.
func overallProgress(types []TypeProgress) int {
	var total, completed int
	for _, tp := range types {
		total += tp.Total
		completed += tp.Completed
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// evictLocked drops terminal entries older than the retention window.
// Callers must hold the write lock.
func (s *ProgressStore) evictLocked() {
	if s.retention <= 0 {
		return
	}
	cutoff := s.now().Add(-s.retention)
	for id, e := range s.entries {
		if !e.terminalAt.IsZero() && e.terminalAt.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}

package assessment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a repository lookup matches nothing.
var ErrNotFound = errors.New("assessment not found")

// Repository persists assessments, their per-resource-type results, and
// their run logs.
type Repository interface {
	CreateAssessment(ctx context.Context, a *Assessment) error
	GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error)
	UpdateAssessmentStatus(ctx context.Context, id uuid.UUID, status Status) error

	SaveResult(ctx context.Context, res *AssessmentResult) error
	ListResults(ctx context.Context, assessmentID uuid.UUID) ([]*AssessmentResult, error)

	SaveLog(ctx context.Context, entry *LogEntry) error
	ListLogs(ctx context.Context, assessmentID uuid.UUID) ([]*LogEntry, error)

	Ping(ctx context.Context) error
}

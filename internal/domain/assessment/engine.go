package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
	"github.com/fhirspective/fhirspective/internal/platform/fhirclient"
)

// Fetcher retrieves resources of one type from a FHIR server. A limit of
// zero fetches everything the server returns.
type Fetcher interface {
	FetchResources(ctx context.Context, server fhirclient.ServerConfig, resourceType string, limit int) ([]fhir.Resource, error)
}

const (
	defaultBatchSize = 10
	// defaultSampleTotal seeds the progress denominator for an unbounded
	// fetch until the real count is known.
	defaultSampleTotal = 100
)

// Engine runs assessments: it fetches resources per resource type, validates
// them in batches, scores and summarizes the outcome, and persists results
// while keeping live progress available for polling.
type Engine struct {
	repo      Repository
	fetcher   Fetcher
	progress  *ProgressStore
	validator *fhir.Validator
	log       zerolog.Logger

	batchSize  int
	batchDelay time.Duration
}

// NewEngine wires an engine. A non-positive batchSize falls back to the
// default of 10; batchDelay is the pause between batches.
func NewEngine(repo Repository, fetcher Fetcher, progress *ProgressStore, log zerolog.Logger, batchSize int, batchDelay time.Duration) *Engine {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Engine{
		repo:       repo,
		fetcher:    fetcher,
		progress:   progress,
		validator:  fhir.NewValidator(),
		log:        log,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// StartAssessment validates and persists a new assessment, then launches the
// run in the background. The returned assessment carries the assigned ID and
// pending status; callers poll progress and results separately.
func (e *Engine) StartAssessment(ctx context.Context, a *Assessment) (*Assessment, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.Status = StatusPending
	if err := e.repo.CreateAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	e.progress.Init(a.ID, a.ResourceTypes, provisionalTotal(a))

	run := *a
	go e.run(&run)
	return a, nil
}

// provisionalTotal is the expected resource count per type before the fetch
// answers: the requested sample size, or a default when fetching everything.
func provisionalTotal(a *Assessment) int {
	if a.SampleSize == SampleAll {
		return defaultSampleTotal
	}
	return a.SampleSize
}

// run executes one assessment to a terminal state. Runs are detached from
// the request context; a failure anywhere marks the assessment failed rather
// than crashing the process.
func (e *Engine) run(a *Assessment) {
	ctx := context.Background()
	log := e.log.With().Stringer("assessment_id", a.ID).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("stage", "run").Interface("panic", rec).Msg("assessment run panicked")
			e.finish(ctx, a, StatusFailed)
			e.logLine(ctx, a.ID, "error", fmt.Sprintf("assessment aborted: %v", rec))
		}
	}()

	e.setStatus(ctx, a, StatusRunning)
	e.logLine(ctx, a.ID, "info", fmt.Sprintf("assessment started for %d resource types", len(a.ResourceTypes)))

	for _, rt := range a.ResourceTypes {
		e.runResourceType(ctx, a, rt, log)
	}

	e.finish(ctx, a, StatusCompleted)
	e.logLine(ctx, a.ID, "info", "assessment completed")
	log.Info().Str("stage", "run").Msg("assessment completed")
}

// runResourceType fetches, validates, scores, and persists one resource
// type. Fetch failures are contained here: the type completes with zero
// resources evaluated and the run moves on.
func (e *Engine) runResourceType(ctx context.Context, a *Assessment, resourceType string, log zerolog.Logger) {
	log = log.With().Str("resource_type", resourceType).Logger()

	e.progress.StartType(a.ID, resourceType, provisionalTotal(a))

	resources, err := e.fetcher.FetchResources(ctx, a.Server, resourceType, a.SampleSize)
	if err != nil {
		var fe *fhirclient.FetchError
		if errors.As(err, &fe) {
			log.Warn().Str("stage", "fetch").Err(err).Msg("fetch failed, recording empty result")
		} else {
			log.Error().Str("stage", "fetch").Err(err).Msg("unexpected fetch error, recording empty result")
		}
		e.logLine(ctx, a.ID, "warning", fmt.Sprintf("%s: fetch failed: %v", resourceType, err))
		e.progress.SetTypeTotal(a.ID, resourceType, 0)
		e.progress.CompleteType(a.ID, resourceType)
		e.persistResult(ctx, a, resourceType, nil, log)
		return
	}

	e.progress.SetTypeTotal(a.ID, resourceType, len(resources))
	log.Info().Str("stage", "fetch").Int("count", len(resources)).Msg("resources fetched")

	results := make([]fhir.ValidationResult, 0, len(resources))
	for start := 0; start < len(resources); start += e.batchSize {
		end := start + e.batchSize
		if end > len(resources) {
			end = len(resources)
		}
		for _, r := range resources[start:end] {
			results = append(results, e.validator.Validate(r, resourceType, a.Guide))
		}
		e.progress.SetCompleted(a.ID, resourceType, end)
		if end < len(resources) && e.batchDelay > 0 {
			time.Sleep(e.batchDelay)
		}
	}

	log.Info().Str("stage", "validate").Int("evaluated", len(results)).Msg("resources validated")

	e.progress.CompleteType(a.ID, resourceType)
	e.persistResult(ctx, a, resourceType, results, log)
}

func (e *Engine) persistResult(ctx context.Context, a *Assessment, resourceType string, results []fhir.ValidationResult, log zerolog.Logger) {
	res := buildResult(a, resourceType, results, time.Now())
	if err := e.repo.SaveResult(ctx, res); err != nil {
		log.Error().Str("stage", "persist").Err(err).Msg("failed to persist result")
		e.logLine(ctx, a.ID, "error", fmt.Sprintf("%s: failed to persist result: %v", resourceType, err))
		return
	}
	e.logLine(ctx, a.ID, "info", fmt.Sprintf(
		"%s: evaluated %d resources, %d issues, %d auto-fixed, quality score %d",
		resourceType, res.ResourcesEvaluated, res.IssuesIdentified, res.AutoFixed, res.QualityScore,
	))
}

func (e *Engine) setStatus(ctx context.Context, a *Assessment, status Status) {
	a.Status = status
	if err := e.repo.UpdateAssessmentStatus(ctx, a.ID, status); err != nil {
		e.log.Error().Str("stage", "persist").Err(err).Stringer("assessment_id", a.ID).Msg("failed to update assessment status")
	}
	e.progress.SetStatus(a.ID, status)
}

func (e *Engine) finish(ctx context.Context, a *Assessment, status Status) {
	if a.Status.Terminal() {
		return
	}
	e.setStatus(ctx, a, status)
}

// logLine persists one line of the assessment's run log. Logging must never
// interrupt a run, so persistence errors only reach the process log.
func (e *Engine) logLine(ctx context.Context, id uuid.UUID, level, message string) {
	entry := &LogEntry{AssessmentID: id, Level: level, Message: message, CreatedAt: time.Now()}
	if err := e.repo.SaveLog(ctx, entry); err != nil {
		e.log.Error().Str("stage", "persist").Err(err).Stringer("assessment_id", id).Msg("failed to persist log entry")
	}
}

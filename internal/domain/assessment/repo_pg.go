package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates a Postgres-backed repository. Server credentials are never
// persisted; only the base URL and auth type are stored with the run.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const assessmentCols = `id, server_base_url, server_auth_type, resource_types, sample_size,
	dimensions, validator, framework, implementation_guide, status,
	created_at, started_at, completed_at`

func (r *repoPG) CreateAssessment(ctx context.Context, a *Assessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	dims := make([]string, len(a.Dimensions))
	for i, d := range a.Dimensions {
		dims[i] = string(d)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assessment (
			id, server_base_url, server_auth_type, resource_types, sample_size,
			dimensions, validator, framework, implementation_guide, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.Server.BaseURL, a.Server.AuthType, a.ResourceTypes, a.SampleSize,
		dims, a.Validator, a.Framework, a.Guide, string(a.Status),
	)
	return err
}

func (r *repoPG) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assessmentCols+` FROM assessment WHERE id = $1`, id)

	var a Assessment
	var status string
	var dims []string
	err := row.Scan(
		&a.ID, &a.Server.BaseURL, &a.Server.AuthType, &a.ResourceTypes, &a.SampleSize,
		&dims, &a.Validator, &a.Framework, &a.Guide, &status,
		&a.CreatedAt, &a.StartedAt, &a.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	a.Status = Status(status)
	a.Dimensions = make([]fhir.Dimension, len(dims))
	for i, d := range dims {
		a.Dimensions[i] = fhir.Dimension(d)
	}
	return &a, nil
}

func (r *repoPG) UpdateAssessmentStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE assessment SET
			status = $2,
			started_at = CASE WHEN $2 = 'running' AND started_at IS NULL THEN NOW() ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed','failed') AND completed_at IS NULL THEN NOW() ELSE completed_at END
		WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SaveResult(ctx context.Context, res *AssessmentResult) error {
	issues, err := json.Marshal(res.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO assessment_result (
			assessment_id, resource_type, resources_evaluated, issues_identified, auto_fixed,
			quality_score, completeness_score, conformity_score, plausibility_score,
			timeliness_score, calculability_score, issues
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		res.AssessmentID, res.ResourceType, res.ResourcesEvaluated, res.IssuesIdentified, res.AutoFixed,
		res.QualityScore, res.CompletenessScore, res.ConformityScore, res.PlausibilityScore,
		res.TimelinessScore, res.CalculabilityScore, issues,
	)
	return err
}

func (r *repoPG) ListResults(ctx context.Context, assessmentID uuid.UUID) ([]*AssessmentResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT assessment_id, resource_type, resources_evaluated, issues_identified, auto_fixed,
			quality_score, completeness_score, conformity_score, plausibility_score,
			timeliness_score, calculability_score, issues, created_at
		FROM assessment_result WHERE assessment_id = $1
		ORDER BY created_at, resource_type`,
		assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AssessmentResult
	for rows.Next() {
		var res AssessmentResult
		var issues []byte
		err := rows.Scan(
			&res.AssessmentID, &res.ResourceType, &res.ResourcesEvaluated, &res.IssuesIdentified, &res.AutoFixed,
			&res.QualityScore, &res.CompletenessScore, &res.ConformityScore, &res.PlausibilityScore,
			&res.TimelinessScore, &res.CalculabilityScore, &issues, &res.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if len(issues) > 0 {
			if err := json.Unmarshal(issues, &res.Issues); err != nil {
				return nil, fmt.Errorf("unmarshal issues: %w", err)
			}
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

func (r *repoPG) SaveLog(ctx context.Context, entry *LogEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assessment_log (assessment_id, level, message)
		VALUES ($1,$2,$3)`,
		entry.AssessmentID, entry.Level, entry.Message,
	)
	return err
}

func (r *repoPG) ListLogs(ctx context.Context, assessmentID uuid.UUID) ([]*LogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT assessment_id, level, message, created_at
		FROM assessment_log WHERE assessment_id = $1
		ORDER BY created_at`,
		assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LogEntry
	for rows.Next() {
		var entry LogEntry
		if err := rows.Scan(&entry.AssessmentID, &entry.Level, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

func (r *repoPG) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

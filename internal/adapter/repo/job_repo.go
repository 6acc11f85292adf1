package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, owner_id, project_id, external_task_id, status, source_asset_url, result_url, external_result_url, failure_reason, created_at, updated_at`

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	query := `
INSERT INTO generation_jobs (id, owner_id, project_id, external_task_id, status, source_asset_url, result_url, external_result_url, failure_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	if !job.Status.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidStatus, int(job.Status))
	}
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.OwnerID,
		job.ProjectID,
		job.ExternalTaskID,
		int16(job.Status),
		job.SourceAssetURL,
		job.ResultURL,
		job.ExternalResultURL,
		job.FailureReason,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	query := `
SELECT ` + jobColumns + `
FROM generation_jobs
WHERE id = $1;
`
	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByOwner returns the owner's most recent jobs.
func (r *JobRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.GenerationJob, error) {
	query := `
SELECT ` + jobColumns + `
FROM generation_jobs
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListProcessing returns up to limit jobs still in Processing, oldest
// first so no job starves behind newer submissions.
func (r *JobRepositoryPG) ListProcessing(ctx context.Context, limit int) ([]domain.GenerationJob, error) {
	query := `
SELECT ` + jobColumns + `
FROM generation_jobs
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, int16(domain.JobStatusProcessing), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// MarkSucceeded applies the terminal Success transition. The update is
// conditional on the job still being in Processing; false means another
// writer already finished the job and nothing changed.
func (r *JobRepositoryPG) MarkSucceeded(ctx context.Context, id uuid.UUID, resultURL, externalResultURL string) (bool, error) {
	query := `
UPDATE generation_jobs
SET status = $2,
    result_url = $3,
    external_result_url = $4,
    updated_at = NOW()
WHERE id = $1 AND status = $5;
`
	tag, err := r.pool.Exec(ctx, query, id, int16(domain.JobStatusSuccess), resultURL, externalResultURL, int16(domain.JobStatusProcessing))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed applies the terminal Failed transition, conditional on the
// job still being in Processing.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `
UPDATE generation_jobs
SET status = $2,
    failure_reason = $3,
    updated_at = NOW()
WHERE id = $1 AND status = $4;
`
	tag, err := r.pool.Exec(ctx, query, id, int16(domain.JobStatusFailed), reason, int16(domain.JobStatusProcessing))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanJob(row pgx.Row) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	var status int16
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.ProjectID,
		&job.ExternalTaskID,
		&status,
		&job.SourceAssetURL,
		&job.ResultURL,
		&job.ExternalResultURL,
		&job.FailureReason,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if !job.Status.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidStatus, status)
	}
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.GenerationJob, error) {
	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)

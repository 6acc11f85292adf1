package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
)

// ErrMissingSource is returned when the request carries no source
// artifact reference.
var ErrMissingSource = errors.New("source artifact required")

const (
	defaultSize  = "1024x1024"
	dispatchCost = 1
)

// SubmitClient is the slice of the generation API the dispatcher needs.
type SubmitClient interface {
	Submit(ctx context.Context, prompt, negativePrompt, size string) (string, error)
}

// Request is one generation submission from the API surface.
type Request struct {
	OwnerID        string
	ProjectID      string
	SourceAssetURL string
	Size           string
	Prompt         domain.PromptSpec
}

// Dispatcher validates a generation request, submits it to the external
// service and persists the job. It returns as soon as the submission is
// accepted; completion is the scheduler's problem.
type Dispatcher struct {
	jobs   domain.JobRepository
	ledger domain.CreditLedger
	client SubmitClient
	logger zerolog.Logger
}

func New(jobs domain.JobRepository, ledger domain.CreditLedger, client SubmitClient, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{jobs: jobs, ledger: ledger, client: client, logger: logger}
}

// Dispatch submits one job. On submit success the job is persisted in
// Processing with the external task id and handed off to the scheduler.
// On submit failure the job is persisted in Failed with no task id (so
// the scheduler never considers it), the credit debit is refunded, and
// the error is surfaced to the caller. Dispatch failures are terminal;
// they are never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*domain.GenerationJob, error) {
	if strings.TrimSpace(req.SourceAssetURL) == "" {
		return nil, ErrMissingSource
	}
	positive, negative, err := req.Prompt.Resolve()
	if err != nil {
		return nil, err
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = defaultSize
	}

	if err := d.ledger.Debit(ctx, req.OwnerID, dispatchCost); err != nil {
		return nil, err
	}

	job := &domain.GenerationJob{
		ID:             uuid.New(),
		OwnerID:        req.OwnerID,
		ProjectID:      req.ProjectID,
		SourceAssetURL: req.SourceAssetURL,
	}

	taskID, err := d.client.Submit(ctx, positive, negative, size)
	if err != nil {
		d.logger.Error().Err(err).Str("owner_id", req.OwnerID).Msg("dispatch: submit failed")
		job.Status = domain.JobStatusFailed
		job.FailureReason = err.Error()
		if createErr := d.jobs.Create(ctx, job); createErr != nil {
			d.logger.Error().Err(createErr).Str("job_id", job.ID.String()).Msg("dispatch: record failed job")
		}
		if refundErr := d.ledger.Refund(ctx, req.OwnerID, dispatchCost); refundErr != nil {
			d.logger.Error().Err(refundErr).Str("owner_id", req.OwnerID).Msg("dispatch: refund failed")
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	job.Status = domain.JobStatusProcessing
	job.ExternalTaskID = &taskID
	if err := d.jobs.Create(ctx, job); err != nil {
		// The external task is already running; without a row the
		// scheduler can never pick it up.
		d.logger.Error().Err(err).Str("external_task_id", taskID).Msg("dispatch: persist job failed")
		return nil, fmt.Errorf("dispatch: persist job: %w", err)
	}

	d.logger.Info().
		Str("job_id", job.ID.String()).
		Str("external_task_id", taskID).
		Str("owner_id", req.OwnerID).
		Msg("dispatch: job submitted")
	return job, nil
}

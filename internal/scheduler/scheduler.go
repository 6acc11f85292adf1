package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"server/internal/domain"
	"server/internal/genapi"
)

// PollClient is the slice of the generation API the scheduler needs.
type PollClient interface {
	Poll(ctx context.Context, taskID string) (genapi.TaskStatus, error)
}

// ArtifactIngestor moves a finished artifact into durable storage.
type ArtifactIngestor interface {
	Ingest(ctx context.Context, remoteURL, ownerID string) (string, bool)
}

// Config tunes the polling loop. Zero values fall back to defaults.
type Config struct {
	TickInterval   time.Duration
	BatchSize      int
	MaxJobLifetime time.Duration
	Workers        int
}

const (
	defaultTickInterval   = 5 * time.Second
	defaultBatchSize      = 20
	defaultMaxJobLifetime = 30 * time.Minute
	defaultWorkers        = 4
)

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxJobLifetime <= 0 {
		c.MaxJobLifetime = defaultMaxJobLifetime
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	return c
}

// Scheduler drives every Processing job to a terminal state. It is the
// only writer of job state after dispatch; all of its transitions are
// conditional on the job still being in Processing, so overlapping
// ticks and concurrent instances cannot double-apply a terminal state.
type Scheduler struct {
	jobs     domain.JobRepository
	client   PollClient
	ingestor ArtifactIngestor
	logger   zerolog.Logger
	cfg      Config

	stop chan struct{}
	done chan struct{}
}

func New(jobs domain.JobRepository, client PollClient, ingestor ArtifactIngestor, logger zerolog.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		client:   client,
		ingestor: ingestor,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the recurring tick loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop signals shutdown and blocks until the in-flight tick has
// finished its current batch. Transitions are single atomic writes, so
// nothing is ever left half-applied.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	s.logger.Info().
		Dur("tick_interval", s.cfg.TickInterval).
		Int("batch_size", s.cfg.BatchSize).
		Dur("max_job_lifetime", s.cfg.MaxJobLifetime).
		Msg("scheduler: started")

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.logger.Info().Msg("scheduler: stopped")
			return
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler: context cancelled")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass: select a bounded batch of Processing
// jobs, oldest first, and advance each independently.
func (s *Scheduler) Tick(ctx context.Context) {
	jobs, err := s.jobs.ListProcessing(ctx, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduler: list processing jobs")
		return
	}
	if len(jobs) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error {
			s.processJob(ctx, &job)
			return nil
		})
	}
	_ = g.Wait()
}

// processJob advances one job. Transient poll failures leave the job
// untouched; it is simply picked up again next tick, bounded overall by
// the staleness ceiling.
func (s *Scheduler) processJob(ctx context.Context, job *domain.GenerationJob) {
	log := s.logger.With().Str("job_id", job.ID.String()).Logger()

	// Staleness first: a silently dropped external task must not keep
	// the job in Processing forever.
	if job.Age(time.Now()) > s.cfg.MaxJobLifetime {
		s.fail(ctx, job, "job exceeded max lifetime", log)
		return
	}

	if job.ExternalTaskID == nil {
		// Processing implies a task id; a row like this can never
		// complete.
		s.fail(ctx, job, "missing external task id", log)
		return
	}

	status, err := s.client.Poll(ctx, *job.ExternalTaskID)
	if err != nil {
		log.Warn().Err(err).Msg("scheduler: poll failed, will retry next tick")
		return
	}

	switch status.State {
	case genapi.TaskRunning:
		return
	case genapi.TaskErrored:
		s.fail(ctx, job, status.Message, log)
	case genapi.TaskDone:
		s.succeed(ctx, job, status.ResultURL, log)
	}
}

// succeed ingests the artifact and applies the Success transition. An
// ingestion failure degrades durability, not availability: the raw
// provider URL is recorded instead and the job still succeeds.
func (s *Scheduler) succeed(ctx context.Context, job *domain.GenerationJob, externalResultURL string, log zerolog.Logger) {
	resultURL := externalResultURL
	if durableURL, ok := s.ingestor.Ingest(ctx, externalResultURL, job.OwnerID); ok {
		resultURL = durableURL
	} else {
		log.Warn().Str("external_result_url", externalResultURL).Msg("scheduler: ingestion failed, keeping remote url")
	}
	applied, err := s.jobs.MarkSucceeded(ctx, job.ID, resultURL, externalResultURL)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: mark succeeded")
		return
	}
	if !applied {
		log.Debug().Msg("scheduler: job already terminal")
		return
	}
	log.Info().Str("result_url", resultURL).Msg("scheduler: job succeeded")
}

func (s *Scheduler) fail(ctx context.Context, job *domain.GenerationJob, reason string, log zerolog.Logger) {
	applied, err := s.jobs.MarkFailed(ctx, job.ID, reason)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: mark failed")
		return
	}
	if !applied {
		log.Debug().Msg("scheduler: job already terminal")
		return
	}
	log.Info().Str("reason", reason).Msg("scheduler: job failed")
}

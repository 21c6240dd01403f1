package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"leavehub/internal/domain/delegation"
	"leavehub/internal/domain/request"
	"leavehub/internal/platform/config"
	"leavehub/internal/platform/metrics"
)

const (
	JobEscalation      = "leave_escalation"
	JobDelegationSweep = "delegation_sweep"
)

// Service runs background work on a single in-process worker. Every run,
// scheduled or manual, leaves a job_runs row.
type Service struct {
	DB          *pgxpool.Pool
	Cfg         config.Config
	Requests    *request.Service
	Delegations *delegation.Service
	Metrics     *metrics.Collector
	queue       chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, requests *request.Service, delegations *delegation.Service, collector *metrics.Collector) *Service {
	return &Service{
		DB:          db,
		Cfg:         cfg,
		Requests:    requests,
		Delegations: delegations,
		Metrics:     collector,
		queue:       make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.EscalationInterval > 0 {
		go s.schedule(ctx, s.Cfg.EscalationInterval, JobEscalation, s.runEscalation)
	}
	if s.Cfg.DelegationSweepInterval > 0 {
		go s.schedule(ctx, s.Cfg.DelegationSweepInterval, JobDelegationSweep, s.runDelegationSweep)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// RunEscalationNow is the manual trigger behind the admin endpoint.
func (s *Service) RunEscalationNow(ctx context.Context) (any, error) {
	return s.RunNow(ctx, JobEscalation, s.runEscalation)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, interval time.Duration, jobType string, run func(context.Context) (any, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(jobType, run)
		}
	}
}

func (s *Service) runEscalation(ctx context.Context) (any, error) {
	count, err := s.Requests.CheckAutoEscalation(ctx, s.Cfg.EscalationAfter)
	if err != nil {
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.RecordEscalations(count)
	}
	return map[string]any{"escalated": count}, nil
}

func (s *Service) runDelegationSweep(ctx context.Context) (any, error) {
	count, err := s.Delegations.SweepExpired(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	return map[string]any{"deactivated": count}, nil
}

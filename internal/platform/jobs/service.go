package jobs

import (
	"context"
	"log/slog"
	"time"

	"appraise/internal/domain/appraisal"
	"appraise/internal/domain/audit"
	"appraise/internal/platform/config"
	"appraise/internal/platform/metrics"
)

const dueBatchSize = 50

// staleClaimAge bounds how long a processing claim is trusted. A runner
// that died after claiming never marks its task, so claims older than this
// are handed back to the pending pool.
const staleClaimAge = 10 * time.Minute

// Service sweeps the scheduled appraisal tasks. Each sweep claims due tasks
// one by one; the conditional claim makes overlapping sweeps (several
// instances, or a manual run racing the ticker) safe.
type Service struct {
	Appraisals *appraisal.Service
	Audit      *audit.Service
	Metrics    *metrics.Collector
	Cfg        config.Config
}

func New(appraisals *appraisal.Service, auditlog *audit.Service, collector *metrics.Collector, cfg config.Config) *Service {
	return &Service{Appraisals: appraisals, Audit: auditlog, Metrics: collector, Cfg: cfg}
}

func (s *Service) Start(ctx context.Context) {
	if s.Cfg.SweepInterval <= 0 {
		return
	}
	go s.loop(ctx)
}

func (s *Service) loop(ctx context.Context) {
	ticker := time.NewTicker(s.Cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunDue(ctx, time.Now().UTC()); err != nil {
				slog.Warn("scheduled task sweep failed", "err", err)
			}
		}
	}
}

// Promoted reports one task's outcome in a sweep.
type Promoted struct {
	TaskID             string `json:"taskId"`
	TenantID           string `json:"tenantId"`
	Executed           bool   `json:"executed"`
	EvaluationsCreated int    `json:"evaluationsCreated"`
	Error              string `json:"error,omitempty"`
}

// RunDue claims and executes every pending task whose trigger time has
// passed. A task another sweep already claimed is skipped silently. A
// failed execution marks the task failed and moves on; it is not retried
// until someone re-arms it.
func (s *Service) RunDue(ctx context.Context, now time.Time) ([]Promoted, error) {
	reclaimed, err := s.Appraisals.ReclaimStalledTasks(ctx, now.Add(-staleClaimAge))
	if err != nil {
		return nil, err
	}
	if reclaimed > 0 {
		slog.Info("reclaimed stalled task claims", "count", reclaimed)
	}

	due, err := s.Appraisals.DueTasks(ctx, now, dueBatchSize)
	if err != nil {
		return nil, err
	}

	var out []Promoted
	executed, failed := 0, 0
	for _, task := range due {
		claimed, err := s.Appraisals.ClaimTask(ctx, task.ID, now)
		if err != nil {
			return out, err
		}
		if !claimed {
			continue
		}

		p := Promoted{TaskID: task.ID, TenantID: task.TenantID}
		result, execErr := s.Appraisals.ExecuteTask(ctx, task)
		if execErr != nil {
			failed++
			p.Error = execErr.Error()
			if err := s.Appraisals.MarkTaskFailed(ctx, task.ID, execErr.Error()); err != nil {
				slog.Warn("mark task failed", "taskId", task.ID, "err", err)
			}
			s.record(ctx, task, audit.ActionTaskFailed, p)
		} else {
			executed++
			p.Executed = true
			p.EvaluationsCreated = result.EvaluationsCreated
			if err := s.Appraisals.MarkTaskExecuted(ctx, task.ID, time.Now().UTC()); err != nil {
				slog.Warn("mark task executed", "taskId", task.ID, "err", err)
			}
			s.record(ctx, task, audit.ActionTaskExecuted, p)
		}
		out = append(out, p)
	}

	if s.Metrics != nil {
		s.Metrics.RecordSweep(executed, failed)
	}
	if len(out) > 0 {
		slog.Info("scheduled task sweep", "due", len(due), "executed", executed, "failed", failed)
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, task appraisal.ScheduledTask, action string, after Promoted) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, task.TenantID, "", action, "scheduled_appraisal_task", task.ID, "", "", nil, after); err != nil {
		slog.Warn("task audit record failed", "taskId", task.ID, "err", err)
	}
}

package appraisal

import (
	"context"
	"time"
)

const taskColumns = `
    id, tenant_id, appraisal_group_id, appraisal_cycle_id, appraisal_type,
    frequency_calendar_id, frequency_calendar_detail_id,
    trigger_at, days_to_close, status, COALESCE(error,''),
    started_at, executed_at, created_at`

func scanTask(row scanner, t *ScheduledTask) error {
	return row.Scan(
		&t.ID, &t.TenantID, &t.AppraisalGroupID, &t.AppraisalCycleID, &t.AppraisalType,
		&t.FrequencyCalendarID, &t.FrequencyCalendarDetailID,
		&t.TriggerAt, &t.DaysToClose, &t.Status, &t.Error,
		&t.StartedAt, &t.ExecutedAt, &t.CreatedAt,
	)
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) CreateTasks(ctx context.Context, tenantID string, tasks []ScheduledTask) ([]string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		var id string
		if err := tx.QueryRow(ctx, `
      INSERT INTO scheduled_appraisal_tasks (tenant_id, appraisal_group_id, appraisal_cycle_id, appraisal_type,
                                             frequency_calendar_id, frequency_calendar_detail_id, trigger_at, days_to_close, status)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
      RETURNING id
    `, tenantID, t.AppraisalGroupID, t.AppraisalCycleID, t.AppraisalType,
			t.FrequencyCalendarID, t.FrequencyCalendarDetailID, t.TriggerAt, t.DaysToClose, TaskStatusPending).Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ListTasks(ctx context.Context, tenantID, status string) ([]ScheduledTask, error) {
	query := `
    SELECT` + taskColumns + `
    FROM scheduled_appraisal_tasks
    WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY trigger_at"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledTask
	for rows.Next() {
		var t ScheduledTask
		if err := scanTask(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) GetTask(ctx context.Context, tenantID, taskID string) (*ScheduledTask, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+taskColumns+`
    FROM scheduled_appraisal_tasks
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, taskID)

	var t ScheduledTask
	if err := scanTask(row, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DueTasks scans pending tasks whose trigger time has passed, across all
// tenants. The sweep runs tenant-blind; each task row carries its tenant.
func (s *Store) DueTasks(ctx context.Context, now time.Time, limit int) ([]ScheduledTask, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+taskColumns+`
    FROM scheduled_appraisal_tasks
    WHERE status = $1 AND trigger_at <= $2
    ORDER BY trigger_at
    LIMIT $3
  `, TaskStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScheduledTask
	for rows.Next() {
		var t ScheduledTask
		if err := scanTask(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ClaimTask moves a task pending to processing. A false return means
// another sweep claimed it first; the caller must skip it.
func (s *Store) ClaimTask(ctx context.Context, taskID string, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE scheduled_appraisal_tasks
    SET status = $1, started_at = $2
    WHERE id = $3 AND status = $4
  `, TaskStatusProcessing, now, taskID, TaskStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkTaskExecuted(ctx context.Context, taskID string, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE scheduled_appraisal_tasks
    SET status = $1, executed_at = $2, error = NULL
    WHERE id = $3
  `, TaskStatusExecuted, now, taskID)
	return err
}

func (s *Store) MarkTaskFailed(ctx context.Context, taskID, errText string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE scheduled_appraisal_tasks
    SET status = $1, error = $2
    WHERE id = $3
  `, TaskStatusFailed, errText, taskID)
	return err
}

// ReclaimStalled resets processing tasks claimed before the cutoff back to
// pending. A runner that dies between claiming and marking leaves its task
// in processing; without this reset the task would be stranded forever.
func (s *Store) ReclaimStalled(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE scheduled_appraisal_tasks
    SET status = $1, started_at = NULL
    WHERE status = $2 AND started_at < $3
  `, TaskStatusPending, TaskStatusProcessing, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RearmTask resets a failed task so the next sweep picks it up again.
func (s *Store) RearmTask(ctx context.Context, tenantID, taskID string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE scheduled_appraisal_tasks
    SET status = $1, error = NULL, started_at = NULL
    WHERE tenant_id = $2 AND id = $3 AND status = $4
  `, TaskStatusPending, tenantID, taskID, TaskStatusFailed)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

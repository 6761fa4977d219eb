package appraisal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListCycles(ctx context.Context, tenantID string) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, start_date, end_date, status, created_at
    FROM appraisal_cycles
    WHERE tenant_id = $1
    ORDER BY start_date DESC
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		var c Cycle
		if err := rows.Scan(&c.ID, &c.Name, &c.StartDate, &c.EndDate, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) GetCycle(ctx context.Context, tenantID, cycleID string) (*Cycle, error) {
	var c Cycle
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, start_date, end_date, status, created_at
    FROM appraisal_cycles
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, cycleID).Scan(&c.ID, &c.Name, &c.StartDate, &c.EndDate, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCycle(ctx context.Context, tenantID string, c Cycle) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisal_cycles (tenant_id, name, start_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, tenantID, c.Name, c.StartDate, c.EndDate, c.Status).Scan(&id)
	return id, err
}

func (s *Store) UpdateCycleStatus(ctx context.Context, tenantID, cycleID, status string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_cycles SET status = $1 WHERE tenant_id = $2 AND id = $3
  `, status, tenantID, cycleID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListCalendars(ctx context.Context, tenantID string) ([]Calendar, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, created_at
    FROM frequency_calendars
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Calendar
	index := map[string]int{}
	for rows.Next() {
		var c Calendar
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if len(out) == 0 {
		return out, nil
	}

	detailRows, err := s.DB.Query(ctx, `
    SELECT id, calendar_id, name, period_start, period_end, trigger_at, created_at
    FROM frequency_calendar_details
    WHERE tenant_id = $1
    ORDER BY period_start
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer detailRows.Close()

	for detailRows.Next() {
		var d CalendarDetail
		if err := detailRows.Scan(&d.ID, &d.CalendarID, &d.Name, &d.PeriodStart, &d.PeriodEnd, &d.TriggerAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[d.CalendarID]; ok {
			out[i].Details = append(out[i].Details, d)
		}
	}
	return out, nil
}

func (s *Store) CreateCalendar(ctx context.Context, tenantID string, cal Calendar) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO frequency_calendars (tenant_id, name) VALUES ($1,$2) RETURNING id
  `, tenantID, cal.Name).Scan(&id); err != nil {
		return "", err
	}
	for _, d := range cal.Details {
		if _, err := tx.Exec(ctx, `
      INSERT INTO frequency_calendar_details (tenant_id, calendar_id, name, period_start, period_end, trigger_at)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, tenantID, id, d.Name, d.PeriodStart, d.PeriodEnd, d.TriggerAt); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// CalendarDetails loads the selected periods of one calendar. Details
// belonging to a different calendar are silently absent from the result;
// the caller detects the mismatch by count.
func (s *Store) CalendarDetails(ctx context.Context, tenantID, calendarID string, detailIDs []string) ([]CalendarDetail, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, calendar_id, name, period_start, period_end, trigger_at, created_at
    FROM frequency_calendar_details
    WHERE tenant_id = $1 AND calendar_id = $2 AND id = ANY($3)
    ORDER BY period_start
  `, tenantID, calendarID, detailIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CalendarDetail
	for rows.Next() {
		var d CalendarDetail
		if err := rows.Scan(&d.ID, &d.CalendarID, &d.Name, &d.PeriodStart, &d.PeriodEnd, &d.TriggerAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) ListGroups(ctx context.Context, tenantID string) ([]Group, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name,
           COALESCE(location_id::text,''), COALESCE(department_id::text,''),
           COALESCE(level_id::text,''), COALESCE(grade_id::text,''),
           COALESCE(manager_id::text,''), created_at
    FROM appraisal_groups
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.LocationID, &g.DepartmentID, &g.LevelID, &g.GradeID, &g.ManagerID, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) GetGroup(ctx context.Context, tenantID, groupID string) (*Group, error) {
	var g Group
	err := s.DB.QueryRow(ctx, `
    SELECT id, name,
           COALESCE(location_id::text,''), COALESCE(department_id::text,''),
           COALESCE(level_id::text,''), COALESCE(grade_id::text,''),
           COALESCE(manager_id::text,''), created_at
    FROM appraisal_groups
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, groupID).Scan(&g.ID, &g.Name, &g.LocationID, &g.DepartmentID, &g.LevelID, &g.GradeID, &g.ManagerID, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) CreateGroup(ctx context.Context, tenantID string, g Group) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisal_groups (tenant_id, name, location_id, department_id, level_id, grade_id, manager_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, g.Name, nullIfEmpty(g.LocationID), nullIfEmpty(g.DepartmentID),
		nullIfEmpty(g.LevelID), nullIfEmpty(g.GradeID), nullIfEmpty(g.ManagerID)).Scan(&id)
	return id, err
}

// GroupMembers resolves the group filter against active employees at call
// time. Set filter fields intersect; unset fields match everyone.
func (s *Store) GroupMembers(ctx context.Context, tenantID string, g Group) ([]GroupMember, error) {
	query := `
    SELECT e.id, e.first_name || ' ' || e.last_name,
           COALESCE(e.manager_id::text,''), COALESCE(e.level_id::text,''),
           COALESCE(e.grade_id::text,''), COALESCE(e.location_id::text,'')
    FROM employees e
    WHERE e.tenant_id = $1 AND e.status = 'active'`
	args := []any{tenantID}
	add := func(column, value string) {
		if value != "" {
			query += fmt.Sprintf(" AND e.%s = $%d", column, len(args)+1)
			args = append(args, value)
		}
	}
	add("location_id", g.LocationID)
	add("department_id", g.DepartmentID)
	add("level_id", g.LevelID)
	add("grade_id", g.GradeID)
	add("manager_id", g.ManagerID)
	query += " ORDER BY e.last_name, e.first_name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupMember
	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.EmployeeID, &m.Name, &m.ManagerID, &m.LevelID, &m.GradeID, &m.LocationID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) ListInitiatedAppraisals(ctx context.Context, tenantID string) ([]InitiatedAppraisal, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, appraisal_group_id, appraisal_cycle_id, appraisal_type,
           COALESCE(frequency_calendar_id::text,''), COALESCE(frequency_calendar_detail_id::text,''),
           status, days_to_close, created_at
    FROM initiated_appraisals
    WHERE tenant_id = $1
    ORDER BY created_at DESC
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InitiatedAppraisal
	for rows.Next() {
		var a InitiatedAppraisal
		if err := rows.Scan(&a.ID, &a.AppraisalGroupID, &a.AppraisalCycleID, &a.AppraisalType,
			&a.FrequencyCalendarID, &a.FrequencyCalendarDetailID, &a.Status, &a.DaysToClose, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// CreateInitiatedAppraisal writes the appraisal record and its evaluations
// in one transaction. The evaluation insert relies on the uniqueness of
// (tenant, employee, cycle, period) with DO NOTHING, so re-publishing the
// same group only adds employees not yet covered.
func (s *Store) CreateInitiatedAppraisal(ctx context.Context, tenantID string, appr InitiatedAppraisal, evals []NewEvaluation) (string, int, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback(ctx)

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO initiated_appraisals (tenant_id, appraisal_group_id, appraisal_cycle_id, appraisal_type,
                                      frequency_calendar_id, frequency_calendar_detail_id, status, days_to_close)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, tenantID, appr.AppraisalGroupID, appr.AppraisalCycleID, appr.AppraisalType,
		nullIfEmpty(appr.FrequencyCalendarID), nullIfEmpty(appr.FrequencyCalendarDetailID),
		StatusInitiated, appr.DaysToClose).Scan(&id); err != nil {
		return "", 0, err
	}

	created := 0
	for _, ev := range evals {
		tag, err := tx.Exec(ctx, `
      INSERT INTO evaluations (tenant_id, initiated_appraisal_id, appraisal_cycle_id, frequency_calendar_detail_id,
                               employee_id, manager_id, self_template_id, manager_template_id)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
      ON CONFLICT (tenant_id, employee_id, appraisal_cycle_id, frequency_calendar_detail_id) DO NOTHING
    `, tenantID, id, appr.AppraisalCycleID, nullIfEmpty(ev.FrequencyCalendarDetailID),
			ev.EmployeeID, nullIfEmpty(ev.ManagerID), nullIfEmpty(ev.SelfTemplateID), nullIfEmpty(ev.ManagerTemplateID))
		if err != nil {
			return "", 0, err
		}
		created += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return "", 0, err
	}
	return id, created, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

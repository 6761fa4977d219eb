package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Rows flattens evaluations with their employee, org and appraisal context.
// Filtering happens in the pure layer; this query only scopes to the tenant.
func (s *Store) Rows(ctx context.Context, tenantID string) ([]Row, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT ev.id, ev.initiated_appraisal_id,
           e.id, e.first_name || ' ' || e.last_name, COALESCE(e.employee_number,''),
           COALESCE(d.name,''), COALESCE(m.first_name || ' ' || m.last_name,''),
           g.id, g.name, ia.appraisal_type, COALESCE(fc.name,''),
           ev.status, ia.days_to_close, ia.created_at,
           COALESCE(e.location_id::text,''), COALESCE(e.department_id::text,''),
           COALESCE(e.level_id::text,''), COALESCE(e.grade_id::text,''),
           COALESCE(e.manager_id::text,'')
    FROM evaluations ev
    JOIN initiated_appraisals ia ON ev.initiated_appraisal_id = ia.id
    JOIN appraisal_groups g ON ia.appraisal_group_id = g.id
    JOIN employees e ON ev.employee_id = e.id
    LEFT JOIN employees m ON e.manager_id = m.id
    LEFT JOIN departments d ON e.department_id = d.id
    LEFT JOIN frequency_calendars fc ON ia.frequency_calendar_id = fc.id
    WHERE ev.tenant_id = $1
    ORDER BY ia.created_at DESC, e.last_name, e.first_name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.EvaluationID, &r.InitiatedAppraisalID,
			&r.EmployeeID, &r.EmployeeName, &r.EmployeeNumber,
			&r.Department, &r.ManagerName,
			&r.GroupID, &r.GroupName, &r.AppraisalType, &r.CalendarName,
			&r.Status, &r.DaysToClose, &r.CreatedAt,
			&r.LocationID, &r.DepartmentID, &r.LevelID, &r.GradeID, &r.ManagerID); err != nil {
			return nil, err
		}
		r.DueDate = DueDate(r.CreatedAt, r.DaysToClose)
		out = append(out, r)
	}
	return out, nil
}

// EmployeeDashboard counts the user's own evaluations by status.
func (s *Store) EmployeeDashboard(ctx context.Context, tenantID, employeeID string) (Dashboard, error) {
	return s.dashboard(ctx, `
    SELECT status, count(*) FROM evaluations
    WHERE tenant_id = $1 AND employee_id = $2
    GROUP BY status
  `, "not_started", tenantID, employeeID)
}

// ManagerDashboard counts the team's evaluations; pending actions are
// reviews waiting on the manager.
func (s *Store) ManagerDashboard(ctx context.Context, tenantID, managerID string) (Dashboard, error) {
	return s.dashboard(ctx, `
    SELECT status, count(*) FROM evaluations
    WHERE tenant_id = $1 AND manager_id = $2
    GROUP BY status
  `, "self_submitted", tenantID, managerID)
}

// HRDashboard counts every evaluation in the tenant; pending actions are
// unfinalized evaluations.
func (s *Store) HRDashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	d, err := s.dashboard(ctx, `
    SELECT status, count(*) FROM evaluations
    WHERE tenant_id = $1
    GROUP BY status
  `, "", tenantID)
	if err != nil {
		return d, err
	}
	d.PendingActions = d.TotalEvaluations - d.ByStatus[statusFinalized]
	return d, nil
}

func (s *Store) dashboard(ctx context.Context, query, pendingStatus string, args ...any) (Dashboard, error) {
	d := Dashboard{ByStatus: map[string]int{}}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return d, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return d, err
		}
		d.ByStatus[status] = count
		d.TotalEvaluations += count
	}
	d.PendingActions = d.ByStatus[pendingStatus]
	return d, nil
}

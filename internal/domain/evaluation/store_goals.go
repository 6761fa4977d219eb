package evaluation

import "context"

// GoalEligibility is what goal creation checks before inserting: the linked
// evaluation must have held its meeting and belong to an active cycle.
type GoalEligibility struct {
	EmployeeID       string
	ManagerID        string
	MeetingCompleted bool
	CycleStatus      string
}

func (s *Store) GoalEligibility(ctx context.Context, tenantID, evaluationID string) (GoalEligibility, error) {
	var out GoalEligibility
	err := s.DB.QueryRow(ctx, `
    SELECT e.employee_id, COALESCE(e.manager_id::text,''),
           e.meeting_completed_at IS NOT NULL,
           c.status
    FROM evaluations e
    JOIN appraisal_cycles c ON e.appraisal_cycle_id = c.id
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, evaluationID).Scan(&out.EmployeeID, &out.ManagerID, &out.MeetingCompleted, &out.CycleStatus)
	return out, err
}

func (s *Store) CreateGoal(ctx context.Context, tenantID string, goal DevelopmentGoal) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO development_goals (tenant_id, evaluation_id, employee_id, manager_id, title, description, target_date, progress, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, tenantID, goal.EvaluationID, goal.EmployeeID, nullIfEmpty(goal.ManagerID), goal.Title, goal.Description, goal.TargetDate, goal.Progress, goal.Status).Scan(&id)
	return id, err
}

func (s *Store) GetGoal(ctx context.Context, tenantID, goalID string) (*DevelopmentGoal, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, evaluation_id, employee_id, COALESCE(manager_id::text,''),
           title, COALESCE(description,''), target_date, progress, status, created_at, updated_at
    FROM development_goals
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, goalID)

	var goal DevelopmentGoal
	if err := row.Scan(&goal.ID, &goal.EvaluationID, &goal.EmployeeID, &goal.ManagerID,
		&goal.Title, &goal.Description, &goal.TargetDate, &goal.Progress, &goal.Status,
		&goal.CreatedAt, &goal.UpdatedAt); err != nil {
		return nil, err
	}
	return &goal, nil
}

func (s *Store) ListGoals(ctx context.Context, tenantID, employeeID, managerID string) ([]DevelopmentGoal, error) {
	query := `
    SELECT id, evaluation_id, employee_id, COALESCE(manager_id::text,''),
           title, COALESCE(description,''), target_date, progress, status, created_at, updated_at
    FROM development_goals
    WHERE tenant_id = $1`
	args := []any{tenantID}
	if employeeID != "" {
		query += " AND employee_id = $2"
		args = append(args, employeeID)
	} else if managerID != "" {
		query += " AND (manager_id = $2 OR employee_id = $2)"
		args = append(args, managerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DevelopmentGoal
	for rows.Next() {
		var goal DevelopmentGoal
		if err := rows.Scan(&goal.ID, &goal.EvaluationID, &goal.EmployeeID, &goal.ManagerID,
			&goal.Title, &goal.Description, &goal.TargetDate, &goal.Progress, &goal.Status,
			&goal.CreatedAt, &goal.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, nil
}

func (s *Store) UpdateGoalProgress(ctx context.Context, tenantID, goalID string, progress int, status string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE development_goals
    SET progress = $1, status = $2, updated_at = now()
    WHERE tenant_id = $3 AND id = $4
  `, progress, status, tenantID, goalID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

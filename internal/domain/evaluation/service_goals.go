package evaluation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const cycleStatusActive = "active"

// CreateGoal attaches a development goal to an evaluation whose meeting has
// been completed. Goals cannot be added once the cycle closes.
func (s *Service) CreateGoal(ctx context.Context, tenantID string, goal DevelopmentGoal) (string, error) {
	if goal.Title == "" {
		return "", NewValidationError(FieldProblem{Field: "title", Reason: "title is required"})
	}
	elig, err := s.Store.GoalEligibility(ctx, tenantID, goal.EvaluationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if !elig.MeetingCompleted || elig.CycleStatus != cycleStatusActive {
		return "", ErrGoalNotEligible
	}
	goal.EmployeeID = elig.EmployeeID
	goal.ManagerID = elig.ManagerID
	goal.Progress = ClampProgress(goal.Progress)
	goal.Status = GoalStatus(goal.Progress, goal.TargetDate, time.Now().UTC())
	return s.Store.CreateGoal(ctx, tenantID, goal)
}

func (s *Service) GetGoal(ctx context.Context, tenantID, goalID string) (*DevelopmentGoal, error) {
	goal, err := s.Store.GetGoal(ctx, tenantID, goalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return goal, nil
}

func (s *Service) ListGoals(ctx context.Context, tenantID, employeeID, managerID string) ([]DevelopmentGoal, error) {
	return s.Store.ListGoals(ctx, tenantID, employeeID, managerID)
}

// UpdateGoalProgress clamps the reported progress and re-derives the goal's
// status from it and the target date.
func (s *Service) UpdateGoalProgress(ctx context.Context, tenantID, goalID string, progress int) (*DevelopmentGoal, error) {
	goal, err := s.GetGoal(ctx, tenantID, goalID)
	if err != nil {
		return nil, err
	}
	progress = ClampProgress(progress)
	status := GoalStatus(progress, goal.TargetDate, time.Now().UTC())
	affected, err := s.Store.UpdateGoalProgress(ctx, tenantID, goalID, progress, status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrGoalNotFound
	}
	goal.Progress = progress
	goal.Status = status
	return goal, nil
}

package appraisal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"appraise/internal/domain/questionnaire"
)

// TemplateLister supplies the tenant's questionnaire templates for
// per-member resolution at publish time.
type TemplateLister interface {
	ListTemplates(ctx context.Context, tenantID string) ([]questionnaire.Template, error)
}

type Service struct {
	Store     *Store
	Templates TemplateLister
}

func NewService(store *Store, templates TemplateLister) *Service {
	return &Service{Store: store, Templates: templates}
}

func (s *Service) ListCycles(ctx context.Context, tenantID string) ([]Cycle, error) {
	return s.Store.ListCycles(ctx, tenantID)
}

func (s *Service) CreateCycle(ctx context.Context, tenantID string, c Cycle) (string, error) {
	if c.Status == "" {
		c.Status = CycleStatusDraft
	}
	if !ValidCycleStatus(c.Status) {
		return "", invalid("status must be draft, active or closed")
	}
	if !c.EndDate.After(c.StartDate) {
		return "", invalid("end date must be after start date")
	}
	return s.Store.CreateCycle(ctx, tenantID, c)
}

func (s *Service) UpdateCycleStatus(ctx context.Context, tenantID, cycleID, status string) error {
	if !ValidCycleStatus(status) {
		return invalid("status must be draft, active or closed")
	}
	affected, err := s.Store.UpdateCycleStatus(ctx, tenantID, cycleID, status)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ListCalendars(ctx context.Context, tenantID string) ([]Calendar, error) {
	return s.Store.ListCalendars(ctx, tenantID)
}

func (s *Service) CreateCalendar(ctx context.Context, tenantID string, cal Calendar) (string, error) {
	if cal.Name == "" {
		return "", invalid("name is required")
	}
	for i, d := range cal.Details {
		if d.Name == "" {
			return "", invalid(fmt.Sprintf("details[%d]: name is required", i))
		}
		if !d.PeriodEnd.After(d.PeriodStart) {
			return "", invalid(fmt.Sprintf("details[%d]: period end must be after period start", i))
		}
	}
	return s.Store.CreateCalendar(ctx, tenantID, cal)
}

func (s *Service) ListGroups(ctx context.Context, tenantID string) ([]Group, error) {
	return s.Store.ListGroups(ctx, tenantID)
}

func (s *Service) CreateGroup(ctx context.Context, tenantID string, g Group) (string, error) {
	if g.Name == "" {
		return "", invalid("name is required")
	}
	return s.Store.CreateGroup(ctx, tenantID, g)
}

func (s *Service) ListInitiatedAppraisals(ctx context.Context, tenantID string) ([]InitiatedAppraisal, error) {
	return s.Store.ListInitiatedAppraisals(ctx, tenantID)
}

func (s *Service) ListTasks(ctx context.Context, tenantID, status string) ([]ScheduledTask, error) {
	return s.Store.ListTasks(ctx, tenantID, status)
}

// Initiate publishes an appraisal for a group: immediately (membership and
// questionnaires resolved now, evaluations created now) or per calendar
// period (one independent scheduled task per selected period, resolved when
// it triggers).
func (s *Service) Initiate(ctx context.Context, tenantID string, input InitiateInput) (*InitiateResult, error) {
	if !ValidAppraisalType(input.AppraisalType) {
		return nil, invalid("appraisalType must be self, manager or both")
	}

	group, err := s.Store.GetGroup(ctx, tenantID, input.AppraisalGroupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invalid("appraisal group does not exist")
		}
		return nil, err
	}
	cycle, err := s.Store.GetCycle(ctx, tenantID, input.AppraisalCycleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invalid("appraisal cycle does not exist")
		}
		return nil, err
	}
	if cycle.Status != CycleStatusActive {
		return nil, invalid("appraisal cycle must be active")
	}

	switch input.Publish {
	case PublishNow:
		return s.publishNow(ctx, tenantID, *group, input)
	case PublishCalendar:
		return s.publishCalendar(ctx, tenantID, input)
	default:
		return nil, invalid("publish must be now or calendar")
	}
}

func (s *Service) publishNow(ctx context.Context, tenantID string, group Group, input InitiateInput) (*InitiateResult, error) {
	members, err := s.Store.GroupMembers(ctx, tenantID, group)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, invalid("appraisal group matches no active employees")
	}

	templates, err := s.Templates.ListTemplates(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	evals, problems := AssignTemplates(input.AppraisalType, members, templates, "")
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	appr := InitiatedAppraisal{
		AppraisalGroupID: input.AppraisalGroupID,
		AppraisalCycleID: input.AppraisalCycleID,
		AppraisalType:    input.AppraisalType,
		DaysToClose:      input.DaysToClose,
	}
	id, created, err := s.Store.CreateInitiatedAppraisal(ctx, tenantID, appr, evals)
	if err != nil {
		return nil, err
	}
	return &InitiateResult{
		InitiatedAppraisalID: id,
		EvaluationsCreated:   created,
		EvaluationsSkipped:   len(evals) - created,
	}, nil
}

func (s *Service) publishCalendar(ctx context.Context, tenantID string, input InitiateInput) (*InitiateResult, error) {
	if input.CalendarID == "" || len(input.CalendarDetailIDs) == 0 {
		return nil, invalid("calendarId and at least one calendarDetailId are required for calendar publish")
	}
	details, err := s.Store.CalendarDetails(ctx, tenantID, input.CalendarID, input.CalendarDetailIDs)
	if err != nil {
		return nil, err
	}
	if len(details) != len(input.CalendarDetailIDs) {
		return nil, invalid("one or more calendar details do not belong to the selected calendar")
	}

	// One task per period, each keeping its own trigger time. Selecting
	// several periods never merges their schedules.
	tasks := make([]ScheduledTask, 0, len(details))
	for _, d := range details {
		tasks = append(tasks, ScheduledTask{
			AppraisalGroupID:          input.AppraisalGroupID,
			AppraisalCycleID:          input.AppraisalCycleID,
			AppraisalType:             input.AppraisalType,
			FrequencyCalendarID:       input.CalendarID,
			FrequencyCalendarDetailID: d.ID,
			TriggerAt:                 d.TriggerAt,
			DaysToClose:               input.DaysToClose,
		})
	}
	ids, err := s.Store.CreateTasks(ctx, tenantID, tasks)
	if err != nil {
		return nil, err
	}
	return &InitiateResult{ScheduledTaskIDs: ids}, nil
}

// ExecuteTask performs a claimed task's publish. Membership and
// questionnaires are resolved now, not at scheduling time. An empty group
// is a successful no-op for a scheduled run.
func (s *Service) ExecuteTask(ctx context.Context, task ScheduledTask) (*InitiateResult, error) {
	group, err := s.Store.GetGroup(ctx, task.TenantID, task.AppraisalGroupID)
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	members, err := s.Store.GroupMembers(ctx, task.TenantID, *group)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return &InitiateResult{}, nil
	}

	templates, err := s.Templates.ListTemplates(ctx, task.TenantID)
	if err != nil {
		return nil, err
	}
	evals, problems := AssignTemplates(task.AppraisalType, members, templates, task.FrequencyCalendarDetailID)
	if len(problems) > 0 {
		return nil, fmt.Errorf("questionnaire resolution: %s", problems[0])
	}

	appr := InitiatedAppraisal{
		AppraisalGroupID:          task.AppraisalGroupID,
		AppraisalCycleID:          task.AppraisalCycleID,
		AppraisalType:             task.AppraisalType,
		FrequencyCalendarID:       task.FrequencyCalendarID,
		FrequencyCalendarDetailID: task.FrequencyCalendarDetailID,
		DaysToClose:               task.DaysToClose,
	}
	id, created, err := s.Store.CreateInitiatedAppraisal(ctx, task.TenantID, appr, evals)
	if err != nil {
		return nil, err
	}
	return &InitiateResult{
		InitiatedAppraisalID: id,
		EvaluationsCreated:   created,
		EvaluationsSkipped:   len(evals) - created,
	}, nil
}

// RetryTask re-arms a failed task for the next sweep.
func (s *Service) RetryTask(ctx context.Context, tenantID, taskID string) error {
	affected, err := s.Store.RearmTask(ctx, tenantID, taskID)
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.Store.GetTask(ctx, tenantID, taskID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrTaskNotRetryable
}

// DueTasks and task bookkeeping are thin passes for the sweep runner.
func (s *Service) DueTasks(ctx context.Context, now time.Time, limit int) ([]ScheduledTask, error) {
	return s.Store.DueTasks(ctx, now, limit)
}

func (s *Service) ClaimTask(ctx context.Context, taskID string, now time.Time) (bool, error) {
	return s.Store.ClaimTask(ctx, taskID, now)
}

func (s *Service) MarkTaskExecuted(ctx context.Context, taskID string, now time.Time) error {
	return s.Store.MarkTaskExecuted(ctx, taskID, now)
}

func (s *Service) MarkTaskFailed(ctx context.Context, taskID, errText string) error {
	return s.Store.MarkTaskFailed(ctx, taskID, errText)
}

func (s *Service) ReclaimStalledTasks(ctx context.Context, before time.Time) (int64, error) {
	return s.Store.ReclaimStalled(ctx, before)
}

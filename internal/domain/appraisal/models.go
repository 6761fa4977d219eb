package appraisal

import "time"

type Cycle struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Calendar struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Details   []CalendarDetail `json:"details,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// CalendarDetail is one review period of a frequency calendar. Each detail
// carries its own trigger time; periods never share schedule state.
type CalendarDetail struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendarId"`
	Name        string    `json:"name"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	TriggerAt   time.Time `json:"triggerAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Group is a saved employee filter. Unset fields match everyone; set fields
// intersect. Membership is resolved when an appraisal is published, never
// stored.
type Group struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LocationID   string    `json:"locationId,omitempty"`
	DepartmentID string    `json:"departmentId,omitempty"`
	LevelID      string    `json:"levelId,omitempty"`
	GradeID      string    `json:"gradeId,omitempty"`
	ManagerID    string    `json:"managerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type InitiatedAppraisal struct {
	ID                        string    `json:"id"`
	AppraisalGroupID          string    `json:"appraisalGroupId"`
	AppraisalCycleID          string    `json:"appraisalCycleId"`
	AppraisalType             string    `json:"appraisalType"`
	FrequencyCalendarID       string    `json:"frequencyCalendarId,omitempty"`
	FrequencyCalendarDetailID string    `json:"frequencyCalendarDetailId,omitempty"`
	Status                    string    `json:"status"`
	DaysToClose               *int      `json:"daysToClose,omitempty"`
	CreatedAt                 time.Time `json:"createdAt"`
}

// ScheduledTask is a deferred publish. TenantID is carried because the
// sweep scans due tasks across tenants.
type ScheduledTask struct {
	ID                        string     `json:"id"`
	TenantID                  string     `json:"-"`
	AppraisalGroupID          string     `json:"appraisalGroupId"`
	AppraisalCycleID          string     `json:"appraisalCycleId"`
	AppraisalType             string     `json:"appraisalType"`
	FrequencyCalendarID       string     `json:"frequencyCalendarId"`
	FrequencyCalendarDetailID string     `json:"frequencyCalendarDetailId"`
	TriggerAt                 time.Time  `json:"triggerAt"`
	DaysToClose               *int       `json:"daysToClose,omitempty"`
	Status                    string     `json:"status"`
	Error                     string     `json:"error,omitempty"`
	StartedAt                 *time.Time `json:"startedAt,omitempty"`
	ExecutedAt                *time.Time `json:"executedAt,omitempty"`
	CreatedAt                 time.Time  `json:"createdAt"`
}

// GroupMember is one employee matched by a group filter, with the org
// dimensions template resolution needs.
type GroupMember struct {
	EmployeeID string
	Name       string
	ManagerID  string
	LevelID    string
	GradeID    string
	LocationID string
}

// NewEvaluation is the row shape initiation inserts, one per member.
type NewEvaluation struct {
	EmployeeID                string
	ManagerID                 string
	SelfTemplateID            string
	ManagerTemplateID         string
	FrequencyCalendarDetailID string
}

type InitiateInput struct {
	AppraisalGroupID  string   `json:"appraisalGroupId"`
	AppraisalCycleID  string   `json:"appraisalCycleId"`
	AppraisalType     string   `json:"appraisalType"`
	Publish           string   `json:"publish"`
	CalendarID        string   `json:"calendarId,omitempty"`
	CalendarDetailIDs []string `json:"calendarDetailIds,omitempty"`
	DaysToClose       *int     `json:"daysToClose,omitempty"`
}

// InitiateResult reports what a publish produced: evaluations for an
// immediate publish, task ids for a calendar publish.
type InitiateResult struct {
	InitiatedAppraisalID string   `json:"initiatedAppraisalId,omitempty"`
	EvaluationsCreated   int      `json:"evaluationsCreated"`
	EvaluationsSkipped   int      `json:"evaluationsSkipped"`
	ScheduledTaskIDs     []string `json:"scheduledTaskIds,omitempty"`
}

package evaluation

import (
	"encoding/json"
	"time"
)

// Evaluation is one employee's review instance for one cycle/period.
// calibratedRating never replaces overallRating; both are kept for audit.
type Evaluation struct {
	ID                        string          `json:"id"`
	InitiatedAppraisalID      string          `json:"initiatedAppraisalId"`
	AppraisalCycleID          string          `json:"appraisalCycleId"`
	FrequencyCalendarDetailID string          `json:"frequencyCalendarDetailId,omitempty"`
	EmployeeID                string          `json:"employeeId"`
	ManagerID                 string          `json:"managerId,omitempty"`
	SelfTemplateID            string          `json:"selfTemplateId,omitempty"`
	ManagerTemplateID         string          `json:"managerTemplateId,omitempty"`
	Status                    string          `json:"status"`
	SelfDraft                 json.RawMessage `json:"selfDraft,omitempty"`
	SelfData                  json.RawMessage `json:"selfData,omitempty"`
	SelfSubmittedAt           *time.Time      `json:"selfSubmittedAt,omitempty"`
	ManagerData               json.RawMessage `json:"managerData,omitempty"`
	ManagerSubmittedAt        *time.Time      `json:"managerSubmittedAt,omitempty"`
	OverallRating             *int            `json:"overallRating,omitempty"`
	CalibratedRating          *int            `json:"calibratedRating,omitempty"`
	CalibrationRemarks        string          `json:"calibrationRemarks,omitempty"`
	CalibratedAt              *time.Time      `json:"calibratedAt,omitempty"`
	MeetingScheduledAt        *time.Time      `json:"meetingScheduledAt,omitempty"`
	MeetingTitle              string          `json:"meetingTitle,omitempty"`
	MeetingDescription        string          `json:"meetingDescription,omitempty"`
	MeetingNotes              string          `json:"meetingNotes,omitempty"`
	MeetingCompletedAt        *time.Time      `json:"meetingCompletedAt,omitempty"`
	FinalizedAt               *time.Time      `json:"finalizedAt,omitempty"`
	CreatedAt                 time.Time       `json:"createdAt"`
	UpdatedAt                 time.Time       `json:"updatedAt"`
}

type DevelopmentGoal struct {
	ID           string     `json:"id"`
	EvaluationID string     `json:"evaluationId"`
	EmployeeID   string     `json:"employeeId"`
	ManagerID    string     `json:"managerId,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	TargetDate   *time.Time `json:"targetDate,omitempty"`
	Progress     int        `json:"progress"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

package reports

import "time"

// Row is one evaluation flattened with the org context reports filter and
// export on. IDs ride along for predicate matching; names are denormalized
// for display.
type Row struct {
	EvaluationID         string     `json:"evaluationId"`
	InitiatedAppraisalID string     `json:"initiatedAppraisalId"`
	EmployeeID           string     `json:"employeeId"`
	EmployeeName         string     `json:"employeeName"`
	EmployeeNumber       string     `json:"employeeNumber,omitempty"`
	Department           string     `json:"department,omitempty"`
	ManagerName          string     `json:"managerName,omitempty"`
	GroupID              string     `json:"groupId"`
	GroupName            string     `json:"groupName"`
	AppraisalType        string     `json:"appraisalType"`
	CalendarName         string     `json:"calendarName,omitempty"`
	Status               string     `json:"status"`
	DaysToClose          *int       `json:"daysToClose,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	DueDate              *time.Time `json:"dueDate,omitempty"`

	LocationID   string `json:"-"`
	DepartmentID string `json:"-"`
	LevelID      string `json:"-"`
	GradeID      string `json:"-"`
	ManagerID    string `json:"-"`
}

type Progress struct {
	TotalEmployees       int `json:"totalEmployees"`
	CompletedEvaluations int `json:"completedEvaluations"`
	Percentage           int `json:"percentage"`
}

// Filter is an intersection of independent predicates. Zero-value fields
// are no-ops.
type Filter struct {
	GroupID      string
	Search       string
	LocationID   string
	DepartmentID string
	LevelID      string
	GradeID      string
	ManagerID    string
}

// Dashboard carries the role-scoped counters the landing pages show.
type Dashboard struct {
	TotalEvaluations int            `json:"totalEvaluations"`
	ByStatus         map[string]int `json:"byStatus"`
	PendingActions   int            `json:"pendingActions"`
}

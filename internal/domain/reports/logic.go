package reports

import (
	"encoding/csv"
	"io"
	"math"
	"strings"
	"time"
)

const statusFinalized = "finalized"

// ComputeProgress counts finalized evaluations over the row set. An empty
// set is 0 percent, never a division error.
func ComputeProgress(rows []Row) Progress {
	p := Progress{TotalEmployees: len(rows)}
	for _, r := range rows {
		if r.Status == statusFinalized {
			p.CompletedEvaluations++
		}
	}
	if p.TotalEmployees > 0 {
		p.Percentage = int(math.Round(100 * float64(p.CompletedEvaluations) / float64(p.TotalEmployees)))
	}
	return p
}

// GroupProgress computes progress per initiated appraisal in one pass.
func GroupProgress(rows []Row) map[string]Progress {
	buckets := map[string][]Row{}
	for _, r := range rows {
		buckets[r.InitiatedAppraisalID] = append(buckets[r.InitiatedAppraisalID], r)
	}
	out := make(map[string]Progress, len(buckets))
	for id, bucket := range buckets {
		out[id] = ComputeProgress(bucket)
	}
	return out
}

// Match applies the filter's predicates as an intersection. The search term
// matches the employee name or number, case-insensitively.
func (f Filter) Match(r Row) bool {
	if f.GroupID != "" && r.GroupID != f.GroupID {
		return false
	}
	if f.LocationID != "" && r.LocationID != f.LocationID {
		return false
	}
	if f.DepartmentID != "" && r.DepartmentID != f.DepartmentID {
		return false
	}
	if f.LevelID != "" && r.LevelID != f.LevelID {
		return false
	}
	if f.GradeID != "" && r.GradeID != f.GradeID {
		return false
	}
	if f.ManagerID != "" && r.ManagerID != f.ManagerID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.EmployeeName), needle) &&
			!strings.Contains(strings.ToLower(r.EmployeeNumber), needle) {
			return false
		}
	}
	return true
}

func (f Filter) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// DueDate is the initiation date plus the closing window. Nil when no
// window was set.
func DueDate(createdAt time.Time, daysToClose *int) *time.Time {
	if daysToClose == nil {
		return nil
	}
	due := createdAt.AddDate(0, 0, *daysToClose)
	return &due
}

// TitleCase renders a snake_case status for humans: "manager_reviewed"
// becomes "Manager Reviewed".
func TitleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var csvHeader = []string{
	"Employee Name", "Department", "Manager", "Appraisal Group",
	"Appraisal Type", "Frequency Calendar", "Status", "Due Date",
}

// WriteCSV streams the rows in the fixed export column order.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		due := ""
		if d := DueDate(r.CreatedAt, r.DaysToClose); d != nil {
			due = d.Format("2006-01-02")
		}
		record := []string{
			r.EmployeeName, r.Department, r.ManagerName, r.GroupName,
			TitleCase(r.AppraisalType), r.CalendarName, TitleCase(r.Status), due,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

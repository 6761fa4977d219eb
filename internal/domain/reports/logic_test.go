package reports

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func row(appraisalID, status string) Row {
	return Row{InitiatedAppraisalID: appraisalID, Status: status}
}

func TestComputeProgress(t *testing.T) {
	rows := []Row{
		row("a", "finalized"),
		row("a", "finalized"),
		row("a", "manager_reviewed"),
		row("a", "not_started"),
	}
	p := ComputeProgress(rows)
	if p.TotalEmployees != 4 || p.CompletedEvaluations != 2 || p.Percentage != 50 {
		t.Errorf("got %+v, want 4/2/50", p)
	}
}

func TestComputeProgressRounds(t *testing.T) {
	rows := []Row{row("a", "finalized"), row("a", "not_started"), row("a", "not_started")}
	if p := ComputeProgress(rows); p.Percentage != 33 {
		t.Errorf("1 of 3 should round to 33, got %d", p.Percentage)
	}
	twoOfThree := []Row{row("a", "finalized"), row("a", "finalized"), row("a", "not_started")}
	if p := ComputeProgress(twoOfThree); p.Percentage != 67 {
		t.Errorf("2 of 3 should round to 67, got %d", p.Percentage)
	}
}

func TestComputeProgressEmptySet(t *testing.T) {
	p := ComputeProgress(nil)
	if p.TotalEmployees != 0 || p.CompletedEvaluations != 0 || p.Percentage != 0 {
		t.Errorf("empty set must be all zeros, got %+v", p)
	}
}

func TestGroupProgressSplitsPerAppraisal(t *testing.T) {
	rows := []Row{
		row("a", "finalized"),
		row("a", "not_started"),
		row("b", "finalized"),
	}
	byAppraisal := GroupProgress(rows)
	if byAppraisal["a"].Percentage != 50 {
		t.Errorf("appraisal a: got %d, want 50", byAppraisal["a"].Percentage)
	}
	if byAppraisal["b"].Percentage != 100 {
		t.Errorf("appraisal b: got %d, want 100", byAppraisal["b"].Percentage)
	}
}

func TestFilterIntersection(t *testing.T) {
	rows := []Row{
		{EmployeeName: "Ada Lovelace", DepartmentID: "eng", LocationID: "lon", Status: "finalized"},
		{EmployeeName: "Alan Turing", DepartmentID: "eng", LocationID: "man", Status: "not_started"},
		{EmployeeName: "Grace Hopper", DepartmentID: "nav", LocationID: "lon", Status: "finalized"},
	}

	if got := (Filter{}).Apply(rows); len(got) != 3 {
		t.Errorf("empty filter should pass everything, got %d rows", len(got))
	}
	if got := (Filter{DepartmentID: "eng"}).Apply(rows); len(got) != 2 {
		t.Errorf("department filter: got %d rows, want 2", len(got))
	}
	got := (Filter{DepartmentID: "eng", LocationID: "lon"}).Apply(rows)
	if len(got) != 1 || got[0].EmployeeName != "Ada Lovelace" {
		t.Errorf("intersection should leave only Ada, got %v", got)
	}
}

func TestFilterSearchIsCaseInsensitive(t *testing.T) {
	rows := []Row{
		{EmployeeName: "Ada Lovelace", EmployeeNumber: "E-100"},
		{EmployeeName: "Alan Turing", EmployeeNumber: "E-200"},
	}
	if got := (Filter{Search: "lovelace"}).Apply(rows); len(got) != 1 {
		t.Errorf("name search: got %d rows, want 1", len(got))
	}
	if got := (Filter{Search: "e-2"}).Apply(rows); len(got) != 1 || got[0].EmployeeName != "Alan Turing" {
		t.Errorf("number search failed: %v", got)
	}
}

func TestDueDate(t *testing.T) {
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if DueDate(created, nil) != nil {
		t.Error("no closing window should mean no due date")
	}
	days := 14
	due := DueDate(created, &days)
	if due == nil || !due.Equal(created.AddDate(0, 0, 14)) {
		t.Errorf("wrong due date: %v", due)
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"manager_reviewed": "Manager Reviewed",
		"not_started":      "Not Started",
		"finalized":        "Finalized",
		"both":             "Both",
	}
	for in, want := range cases {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	days := 7
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{{
		EmployeeName:  "Ada Lovelace",
		Department:    "Engineering",
		ManagerName:   "Charles Babbage",
		GroupName:     "All Engineers",
		AppraisalType: "both",
		CalendarName:  "Quarterly",
		Status:        "manager_reviewed",
		DaysToClose:   &days,
		CreatedAt:     created,
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "Employee Name,Department,Manager,Appraisal Group,Appraisal Type,Frequency Calendar,Status,Due Date" {
		t.Errorf("wrong header: %s", lines[0])
	}
	if lines[1] != "Ada Lovelace,Engineering,Charles Babbage,All Engineers,Both,Quarterly,Manager Reviewed,2025-05-08" {
		t.Errorf("wrong row: %s", lines[1])
	}
}

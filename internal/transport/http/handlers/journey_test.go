package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"appraise/internal/app/server"
	"appraise/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		Environment:        "test",
		SeedCompanyName:    "Test Company",
		SeedHRAdminEmail:   "hr@test.local",
		SeedHRAdminPass:    "ChangeMe123!",
		SeedSysAdminEmail:  "sysadmin@test.local",
		SeedSysAdminPass:   "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MigrationsDir:      "../../../../migrations",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		SweepInterval:      time.Minute,
		MetricsEnabled:     true,
	}
}

func startApp(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	app, err := server.New(context.Background(), testConfig(dbURL))
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts
}

func TestAppraisalLifecycleJourney(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	hrToken := login(t, client, ts.URL, "hr@test.local", "ChangeMe123!")

	suffix := time.Now().UnixNano()
	departmentID := createNamed(t, client, ts.URL+"/api/v1/org/departments", hrToken, map[string]any{
		"name": fmt.Sprintf("Engineering %d", suffix),
	})

	managerID := createEmployee(t, client, ts.URL, hrToken, map[string]any{
		"firstName": "Mara",
		"lastName":  "Lead",
		"email":     fmt.Sprintf("mara-%d@example.com", suffix),
	})
	employeeID := createEmployee(t, client, ts.URL, hrToken, map[string]any{
		"firstName":    "Evan",
		"lastName":     "Doe",
		"email":        fmt.Sprintf("evan-%d@example.com", suffix),
		"managerId":    managerID,
		"departmentId": departmentID,
	})

	selfTemplateID := createNamed(t, client, ts.URL+"/api/v1/questionnaire-templates", hrToken, map[string]any{
		"name":       "Self Review",
		"targetRole": "employee",
		"questions": []map[string]any{
			{"id": "q1", "text": "What went well?", "type": "textarea", "required": true},
			{"id": "q2", "text": "Rate your period", "type": "rating", "required": true},
		},
	})
	managerTemplateID := createNamed(t, client, ts.URL+"/api/v1/questionnaire-templates", hrToken, map[string]any{
		"name":       "Manager Review",
		"targetRole": "manager",
		"questions": []map[string]any{
			{"id": "m1", "text": "Overall impression", "type": "textarea", "required": true},
		},
	})

	cycleID := createNamed(t, client, ts.URL+"/api/v1/appraisal-cycles", hrToken, map[string]any{
		"name":      fmt.Sprintf("FY Cycle %d", suffix),
		"startDate": "2026-01-01",
		"endDate":   "2026-12-31",
		"status":    "active",
	})
	groupID := createNamed(t, client, ts.URL+"/api/v1/appraisal-groups", hrToken, map[string]any{
		"name":         fmt.Sprintf("Engineering Group %d", suffix),
		"departmentId": departmentID,
	})

	// First initiation creates one evaluation for the single group member.
	initiate := postJSON(t, client, ts.URL+"/api/v1/appraisals/initiate", hrToken, map[string]any{
		"appraisalGroupId": groupID,
		"appraisalCycleId": cycleID,
		"appraisalType":    "both",
		"publish":          "now",
	})
	var initResult struct {
		InitiatedAppraisalID string `json:"initiatedAppraisalId"`
		EvaluationsCreated   int    `json:"evaluationsCreated"`
		EvaluationsSkipped   int    `json:"evaluationsSkipped"`
	}
	if err := json.Unmarshal(initiate.Data, &initResult); err != nil {
		t.Fatalf("failed to decode initiate response: %v", err)
	}
	if initResult.EvaluationsCreated != 1 {
		t.Fatalf("expected 1 evaluation created, got %d", initResult.EvaluationsCreated)
	}

	// Re-initiating the same group and cycle must not duplicate evaluations.
	again := postJSON(t, client, ts.URL+"/api/v1/appraisals/initiate", hrToken, map[string]any{
		"appraisalGroupId": groupID,
		"appraisalCycleId": cycleID,
		"appraisalType":    "both",
		"publish":          "now",
	})
	if err := json.Unmarshal(again.Data, &initResult); err != nil {
		t.Fatalf("failed to decode second initiate response: %v", err)
	}
	if initResult.EvaluationsCreated != 0 || initResult.EvaluationsSkipped != 1 {
		t.Fatalf("expected idempotent re-initiation, got created=%d skipped=%d", initResult.EvaluationsCreated, initResult.EvaluationsSkipped)
	}

	evaluationID := findEvaluation(t, client, ts.URL, hrToken, employeeID)

	postNoResult(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+evaluationID+"/draft", hrToken, map[string]any{
		"responses": map[string]any{
			selfTemplateID + "_q1": map[string]any{"type": "textarea", "text": "draft thoughts"},
		},
	})

	postNoResult(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+evaluationID+"/self", hrToken, map[string]any{
		"responses": map[string]any{
			selfTemplateID + "_q1": map[string]any{"type": "textarea", "text": "Shipped the big migration."},
			selfTemplateID + "_q2": map[string]any{"type": "rating", "rating": 4},
		},
	})

	postNoResult(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+evaluationID+"/manager-review", hrToken, map[string]any{
		"responses": map[string]any{
			managerTemplateID + "_m1": map[string]any{"type": "textarea", "text": "Strong delivery."},
		},
		"overallRating": 4,
	})

	postNoResult(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/"+evaluationID+"/schedule-meeting", hrToken, map[string]any{
		"scheduledAt": "2026-06-15",
		"title":       "Review one-on-one",
	})

	postNoResult(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+evaluationID+"/meeting-notes", hrToken, map[string]any{
		"meetingNotes": "Agreed on growth areas.",
		"finalRating":  5,
	})

	postNoResult(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/"+evaluationID+"/complete", hrToken, nil)

	// A second finalize must be rejected as an invalid transition.
	requestStatus(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/"+evaluationID+"/complete", hrToken, nil, http.StatusUnprocessableEntity)

	postNoResult(t, client, http.MethodPatch, ts.URL+"/api/v1/evaluations/"+evaluationID+"/calibrate", hrToken, map[string]any{
		"calibratedRating": 3,
		"remarks":          "Aligned with department distribution.",
	})

	ev := getObject(t, client, ts.URL+"/api/v1/evaluations/"+evaluationID, hrToken)
	if ev["status"] != "finalized" {
		t.Fatalf("expected finalized status, got %v", ev["status"])
	}
	if rating, _ := ev["overallRating"].(float64); rating != 5 {
		t.Fatalf("expected overall rating 5 after meeting update, got %v", ev["overallRating"])
	}
	if rating, _ := ev["calibratedRating"].(float64); rating != 3 {
		t.Fatalf("expected calibrated rating 3, got %v", ev["calibratedRating"])
	}

	// PDF export streams a document; docx has no built-in renderer and must
	// be reported as a dependency failure.
	export := requestRaw(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/export", hrToken, map[string]any{
		"evaluationId": evaluationID,
		"format":       "pdf",
	})
	if export.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from pdf export, got %d", export.StatusCode)
	}
	if ct := export.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", ct)
	}
	export.Body.Close()
	requestStatus(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/export", hrToken, map[string]any{
		"evaluationId": evaluationID,
		"format":       "docx",
	}, http.StatusBadGateway)

	// A reminder aimed at an employee with no login cannot be delivered and
	// must not report success.
	requestStatus(t, client, http.MethodPost, ts.URL+"/api/v1/send-reminder", hrToken, map[string]any{
		"evaluationId": evaluationID,
	}, http.StatusNotFound)
	if _, err := app.Pool.Exec(context.Background(), `
    UPDATE employees SET user_id = (SELECT id FROM users WHERE email = $1) WHERE id = $2
  `, "sysadmin@test.local", employeeID); err != nil {
		t.Fatalf("failed to link employee login: %v", err)
	}
	postNoResult(t, client, http.MethodPost, ts.URL+"/api/v1/send-reminder", hrToken, map[string]any{
		"evaluationId": evaluationID,
	})
	requestStatus(t, client, http.MethodPost, ts.URL+"/api/v1/send-reminder", hrToken, map[string]any{
		"evaluationId": "00000000-0000-0000-0000-000000000000",
	}, http.StatusNotFound)

	goalID := createNamed(t, client, ts.URL+"/api/v1/development-goals", hrToken, map[string]any{
		"evaluationId": evaluationID,
		"title":        "Learn distributed tracing",
		"targetDate":   "2026-12-01",
	})
	goal := doJSON(t, client, http.MethodPut, ts.URL+"/api/v1/development-goals/"+goalID+"/progress", hrToken, map[string]any{"progress": 100})
	var updated map[string]any
	if err := json.Unmarshal(goal.Data, &updated); err != nil {
		t.Fatalf("failed to decode goal response: %v", err)
	}
	if updated["status"] != "completed" {
		t.Fatalf("expected completed goal, got %v", updated["status"])
	}

	report := getObject(t, client, ts.URL+"/api/v1/reports/progress?groupId="+groupID, hrToken)
	progress, _ := report["progress"].(map[string]any)
	if progress == nil || progress["completedEvaluations"].(float64) < 1 {
		t.Fatalf("expected at least one completed evaluation in report, got %v", report)
	}

	auditPage := getObject(t, client, ts.URL+"/api/v1/audit?action=evaluation.finalized", hrToken)
	if total, _ := auditPage["total"].(float64); total < 1 {
		t.Fatalf("expected finalize audit event, got %v", auditPage["total"])
	}
}

func TestScheduledCalendarInitiationJourney(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	hrToken := login(t, client, ts.URL, "hr@test.local", "ChangeMe123!")
	adminToken := login(t, client, ts.URL, "sysadmin@test.local", "ChangeMe123!")

	suffix := time.Now().UnixNano()
	departmentID := createNamed(t, client, ts.URL+"/api/v1/org/departments", hrToken, map[string]any{
		"name": fmt.Sprintf("Sales %d", suffix),
	})
	createEmployee(t, client, ts.URL, hrToken, map[string]any{
		"firstName":    "Sara",
		"lastName":     "Seller",
		"email":        fmt.Sprintf("sara-%d@example.com", suffix),
		"departmentId": departmentID,
	})

	createNamed(t, client, ts.URL+"/api/v1/questionnaire-templates", hrToken, map[string]any{
		"name":       fmt.Sprintf("Quarterly Self %d", suffix),
		"targetRole": "employee",
		"questions": []map[string]any{
			{"id": "q1", "text": "Highlights", "type": "text", "required": true},
		},
	})

	cycleID := createNamed(t, client, ts.URL+"/api/v1/appraisal-cycles", hrToken, map[string]any{
		"name":      fmt.Sprintf("Quarterly Cycle %d", suffix),
		"startDate": "2026-01-01",
		"endDate":   "2026-12-31",
		"status":    "active",
	})
	groupID := createNamed(t, client, ts.URL+"/api/v1/appraisal-groups", hrToken, map[string]any{
		"name":         fmt.Sprintf("Sales Group %d", suffix),
		"departmentId": departmentID,
	})

	calendarID := createNamed(t, client, ts.URL+"/api/v1/frequency-calendars", hrToken, map[string]any{
		"name": fmt.Sprintf("Quarterly %d", suffix),
		"details": []map[string]any{
			{
				"name":        "Q1",
				"periodStart": "2026-01-01",
				"periodEnd":   "2026-03-31",
				"triggerAt":   time.Now().UTC().Add(-time.Minute).Format(time.RFC3339),
			},
		},
	})

	calendars := getJSON(t, client, ts.URL+"/api/v1/frequency-calendars", hrToken)
	var all []json.RawMessage
	if err := json.Unmarshal(calendars.Data, &all); err != nil {
		t.Fatalf("failed to decode calendars: %v", err)
	}
	detailID := ""
	for _, raw := range all {
		var c struct {
			ID      string `json:"id"`
			Details []struct {
				ID string `json:"id"`
			} `json:"details"`
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			t.Fatalf("failed to decode calendar: %v", err)
		}
		if c.ID == calendarID && len(c.Details) > 0 {
			detailID = c.Details[0].ID
		}
	}
	if detailID == "" {
		t.Fatal("expected calendar detail id")
	}

	initiate := postJSON(t, client, ts.URL+"/api/v1/appraisals/initiate", hrToken, map[string]any{
		"appraisalGroupId":  groupID,
		"appraisalCycleId":  cycleID,
		"appraisalType":     "self",
		"publish":           "calendar",
		"calendarId":        calendarID,
		"calendarDetailIds": []string{detailID},
	})
	var initResult struct {
		ScheduledTaskIDs []string `json:"scheduledTaskIds"`
	}
	if err := json.Unmarshal(initiate.Data, &initResult); err != nil {
		t.Fatalf("failed to decode initiate response: %v", err)
	}
	if len(initResult.ScheduledTaskIDs) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(initResult.ScheduledTaskIDs))
	}
	taskID := initResult.ScheduledTaskIDs[0]

	// Simulate a runner that died right after claiming the task. The next
	// sweep must take the stale claim back and still execute the task.
	if _, err := app.Pool.Exec(context.Background(), `
    UPDATE scheduled_appraisal_tasks SET status = 'processing', started_at = now() - interval '1 hour' WHERE id = $1
  `, taskID); err != nil {
		t.Fatalf("failed to stage stalled claim: %v", err)
	}

	// The manual sweep promotes the due task and creates the evaluations.
	sweep := postJSON(t, client, ts.URL+"/api/v1/appraisals/scheduled-tasks/run", adminToken, nil)
	var sweepResult struct {
		Promoted []struct {
			TaskID             string `json:"taskId"`
			Executed           bool   `json:"executed"`
			EvaluationsCreated int    `json:"evaluationsCreated"`
		} `json:"promoted"`
	}
	if err := json.Unmarshal(sweep.Data, &sweepResult); err != nil {
		t.Fatalf("failed to decode sweep response: %v", err)
	}
	found := false
	for _, p := range sweepResult.Promoted {
		if p.TaskID == taskID {
			found = true
			if !p.Executed || p.EvaluationsCreated != 1 {
				t.Fatalf("expected task to execute with 1 evaluation, got %+v", p)
			}
		}
	}
	if !found {
		t.Fatalf("expected task %s in sweep result", taskID)
	}

	tasks := getJSON(t, client, ts.URL+"/api/v1/appraisals/scheduled-tasks?status=executed", hrToken)
	var executed []map[string]any
	if err := json.Unmarshal(tasks.Data, &executed); err != nil {
		t.Fatalf("failed to decode tasks: %v", err)
	}
	seen := false
	for _, task := range executed {
		if task["id"] == taskID {
			seen = true
		}
	}
	if !seen {
		t.Fatalf("expected task %s to be listed as executed", taskID)
	}
}

func TestSingleSidedEvaluationLifecycles(t *testing.T) {
	_, ts := startApp(t)
	client := ts.Client()
	hrToken := login(t, client, ts.URL, "hr@test.local", "ChangeMe123!")

	suffix := time.Now().UnixNano()
	cycleID := createNamed(t, client, ts.URL+"/api/v1/appraisal-cycles", hrToken, map[string]any{
		"name":      fmt.Sprintf("Single Sided Cycle %d", suffix),
		"startDate": "2026-01-01",
		"endDate":   "2026-12-31",
		"status":    "active",
	})

	// Manager-only: there is no self step; the review enters the chain at
	// manager_reviewed and finalizes without a self submission.
	deptID := createNamed(t, client, ts.URL+"/api/v1/org/departments", hrToken, map[string]any{
		"name": fmt.Sprintf("Support %d", suffix),
	})
	leadID := createEmployee(t, client, ts.URL, hrToken, map[string]any{
		"firstName": "Lena",
		"lastName":  "Lead",
		"email":     fmt.Sprintf("lena-%d@example.com", suffix),
	})
	memberID := createEmployee(t, client, ts.URL, hrToken, map[string]any{
		"firstName":    "Mo",
		"lastName":     "Member",
		"email":        fmt.Sprintf("mo-%d@example.com", suffix),
		"managerId":    leadID,
		"departmentId": deptID,
	})
	reviewTemplateID := createNamed(t, client, ts.URL+"/api/v1/questionnaire-templates", hrToken, map[string]any{
		"name":       fmt.Sprintf("Manager Only Review %d", suffix),
		"targetRole": "manager",
		"questions": []map[string]any{
			{"id": "r1", "text": "Summary of the period", "type": "textarea", "required": true},
		},
	})
	groupID := createNamed(t, client, ts.URL+"/api/v1/appraisal-groups", hrToken, map[string]any{
		"name":         fmt.Sprintf("Support Group %d", suffix),
		"departmentId": deptID,
	})

	initiate := postJSON(t, client, ts.URL+"/api/v1/appraisals/initiate", hrToken, map[string]any{
		"appraisalGroupId": groupID,
		"appraisalCycleId": cycleID,
		"appraisalType":    "manager",
		"publish":          "now",
	})
	var initResult struct {
		EvaluationsCreated int `json:"evaluationsCreated"`
	}
	if err := json.Unmarshal(initiate.Data, &initResult); err != nil {
		t.Fatalf("failed to decode initiate response: %v", err)
	}
	if initResult.EvaluationsCreated != 1 {
		t.Fatalf("expected 1 evaluation created, got %d", initResult.EvaluationsCreated)
	}
	evaluationID := findEvaluation(t, client, ts.URL, hrToken, memberID)

	// The self step does not exist for this evaluation.
	requestStatus(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+evaluationID+"/self", hrToken, map[string]any{
		"responses": map[string]any{},
	}, http.StatusUnprocessableEntity)

	postNoResult(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+evaluationID+"/manager-review", hrToken, map[string]any{
		"responses": map[string]any{
			reviewTemplateID + "_r1": map[string]any{"type": "textarea", "text": "Consistent quarter."},
		},
		"overallRating": 3,
	})
	postNoResult(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/"+evaluationID+"/complete", hrToken, nil)

	ev := getObject(t, client, ts.URL+"/api/v1/evaluations/"+evaluationID, hrToken)
	if ev["status"] != "finalized" {
		t.Fatalf("expected finalized manager-only review, got %v", ev["status"])
	}
	if ev["selfSubmittedAt"] != nil {
		t.Fatalf("expected no self submission on a manager-only review, got %v", ev["selfSubmittedAt"])
	}
	if rating, _ := ev["overallRating"].(float64); rating != 3 {
		t.Fatalf("expected overall rating 3, got %v", ev["overallRating"])
	}

	// Self-only: self submission is the last input; the evaluation
	// finalizes without a manager review.
	soloDeptID := createNamed(t, client, ts.URL+"/api/v1/org/departments", hrToken, map[string]any{
		"name": fmt.Sprintf("Design %d", suffix),
	})
	soloID := createEmployee(t, client, ts.URL, hrToken, map[string]any{
		"firstName":    "Sia",
		"lastName":     "Solo",
		"email":        fmt.Sprintf("sia-%d@example.com", suffix),
		"departmentId": soloDeptID,
	})
	selfTemplateID := createNamed(t, client, ts.URL+"/api/v1/questionnaire-templates", hrToken, map[string]any{
		"name":       fmt.Sprintf("Self Only Review %d", suffix),
		"targetRole": "employee",
		"questions": []map[string]any{
			{"id": "s1", "text": "Rate your period", "type": "rating", "required": true},
		},
	})
	soloGroupID := createNamed(t, client, ts.URL+"/api/v1/appraisal-groups", hrToken, map[string]any{
		"name":         fmt.Sprintf("Design Group %d", suffix),
		"departmentId": soloDeptID,
	})
	postJSON(t, client, ts.URL+"/api/v1/appraisals/initiate", hrToken, map[string]any{
		"appraisalGroupId": soloGroupID,
		"appraisalCycleId": cycleID,
		"appraisalType":    "self",
		"publish":          "now",
	})
	soloEvalID := findEvaluation(t, client, ts.URL, hrToken, soloID)

	postNoResult(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+soloEvalID+"/self", hrToken, map[string]any{
		"responses": map[string]any{
			selfTemplateID + "_s1": map[string]any{"type": "rating", "rating": 4},
		},
	})

	// There is no manager side to review or meet with.
	requestStatus(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+soloEvalID+"/manager-review", hrToken, map[string]any{
		"responses":     map[string]any{},
		"overallRating": 3,
	}, http.StatusUnprocessableEntity)

	postNoResult(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/"+soloEvalID+"/complete", hrToken, nil)

	ev = getObject(t, client, ts.URL+"/api/v1/evaluations/"+soloEvalID, hrToken)
	if ev["status"] != "finalized" {
		t.Fatalf("expected finalized self-only review, got %v", ev["status"])
	}
	if ev["overallRating"] != nil {
		t.Fatalf("expected no overall rating on a self-only review, got %v", ev["overallRating"])
	}
}

func TestConcurrentManagerReviewConflict(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	hrToken := login(t, client, ts.URL, "hr@test.local", "ChangeMe123!")

	suffix := time.Now().UnixNano()
	deptID := createNamed(t, client, ts.URL+"/api/v1/org/departments", hrToken, map[string]any{
		"name": fmt.Sprintf("Ops %d", suffix),
	})
	managerID := createEmployee(t, client, ts.URL, hrToken, map[string]any{
		"firstName": "Uma",
		"lastName":  "Boss",
		"email":     fmt.Sprintf("uma-%d@example.com", suffix),
	})
	employeeID := createEmployee(t, client, ts.URL, hrToken, map[string]any{
		"firstName":    "Nina",
		"lastName":     "Ops",
		"email":        fmt.Sprintf("nina-%d@example.com", suffix),
		"managerId":    managerID,
		"departmentId": deptID,
	})
	selfTemplateID := createNamed(t, client, ts.URL+"/api/v1/questionnaire-templates", hrToken, map[string]any{
		"name":       fmt.Sprintf("Ops Self %d", suffix),
		"targetRole": "employee",
		"questions": []map[string]any{
			{"id": "q1", "text": "Highlights", "type": "textarea", "required": true},
		},
	})
	reviewTemplateID := createNamed(t, client, ts.URL+"/api/v1/questionnaire-templates", hrToken, map[string]any{
		"name":       fmt.Sprintf("Ops Review %d", suffix),
		"targetRole": "manager",
		"questions": []map[string]any{
			{"id": "m1", "text": "Assessment", "type": "textarea", "required": true},
		},
	})
	cycleID := createNamed(t, client, ts.URL+"/api/v1/appraisal-cycles", hrToken, map[string]any{
		"name":      fmt.Sprintf("Ops Cycle %d", suffix),
		"startDate": "2026-01-01",
		"endDate":   "2026-12-31",
		"status":    "active",
	})
	groupID := createNamed(t, client, ts.URL+"/api/v1/appraisal-groups", hrToken, map[string]any{
		"name":         fmt.Sprintf("Ops Group %d", suffix),
		"departmentId": deptID,
	})
	postJSON(t, client, ts.URL+"/api/v1/appraisals/initiate", hrToken, map[string]any{
		"appraisalGroupId": groupID,
		"appraisalCycleId": cycleID,
		"appraisalType":    "both",
		"publish":          "now",
	})
	evaluationID := findEvaluation(t, client, ts.URL, hrToken, employeeID)

	postNoResult(t, client, http.MethodPut, ts.URL+"/api/v1/evaluations/"+evaluationID+"/self", hrToken, map[string]any{
		"responses": map[string]any{
			selfTemplateID + "_q1": map[string]any{"type": "textarea", "text": "Kept the pager quiet."},
		},
	})

	// Hold the evaluation's row lock so a racing review blocks between its
	// precondition read and its conditional write, then move the status
	// underneath it. The racing write must lose with a conflict, not
	// overwrite the newer state.
	ctx := context.Background()
	tx, err := app.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, "SELECT id FROM evaluations WHERE id = $1 FOR UPDATE", evaluationID); err != nil {
		t.Fatalf("failed to lock evaluation row: %v", err)
	}

	body, err := json.Marshal(map[string]any{
		"responses": map[string]any{
			reviewTemplateID + "_m1": map[string]any{"type": "textarea", "text": "Late to the race."},
		},
		"overallRating": 2,
	})
	if err != nil {
		t.Fatalf("failed to marshal review body: %v", err)
	}
	statusCh := make(chan int, 1)
	errCh := make(chan error, 1)
	go func() {
		req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/evaluations/"+evaluationID+"/manager-review", bytes.NewReader(body))
		if err != nil {
			errCh <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+hrToken)
		resp, err := client.Do(req)
		if err != nil {
			errCh <- err
			return
		}
		resp.Body.Close()
		statusCh <- resp.StatusCode
	}()

	// Let the racing request pass its precondition read and block on the
	// locked row before the competing review lands.
	time.Sleep(500 * time.Millisecond)
	if _, err := tx.Exec(ctx, `
    UPDATE evaluations SET status = 'manager_reviewed', overall_rating = 4, manager_submitted_at = now() WHERE id = $1
  `, evaluationID); err != nil {
		t.Fatalf("failed to apply competing review: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("failed to commit competing review: %v", err)
	}

	select {
	case err := <-errCh:
		t.Fatalf("racing review did not complete: %v", err)
	case status := <-statusCh:
		if status != http.StatusConflict {
			t.Fatalf("expected 409 for the losing review, got %d", status)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("racing review never returned")
	}

	// The winning rating survives.
	ev := getObject(t, client, ts.URL+"/api/v1/evaluations/"+evaluationID, hrToken)
	if rating, _ := ev["overallRating"].(float64); rating != 4 {
		t.Fatalf("expected the winning rating 4, got %v", ev["overallRating"])
	}
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func createEmployee(t *testing.T, client *http.Client, baseURL, token string, body map[string]any) string {
	t.Helper()
	return createNamed(t, client, baseURL+"/api/v1/employees", token, body)
}

// createNamed posts the body and returns the created record's id.
func createNamed(t *testing.T, client *http.Client, url, token string, body map[string]any) string {
	t.Helper()
	resp := postJSON(t, client, url, token, body)
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode create response from %s: %v", url, err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatalf("expected id from %s", url)
	}
	return id
}

func findEvaluation(t *testing.T, client *http.Client, baseURL, token, employeeID string) string {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/evaluations?employeeId="+employeeID, token)
	var evals []map[string]any
	if err := json.Unmarshal(resp.Data, &evals); err != nil {
		t.Fatalf("failed to decode evaluations: %v", err)
	}
	if len(evals) != 1 {
		t.Fatalf("expected exactly one evaluation, got %d", len(evals))
	}
	id, _ := evals[0]["id"].(string)
	if id == "" {
		t.Fatal("expected evaluation id")
	}
	return id
}

func getObject(t *testing.T, client *http.Client, url, token string) map[string]any {
	t.Helper()
	resp := getJSON(t, client, url, token)
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode response from %s: %v", url, err)
	}
	return payload
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body)
}

func postNoResult(t *testing.T, client *http.Client, method, url, token string, body any) {
	t.Helper()
	doJSON(t, client, method, url, token, body)
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) envelope {
	t.Helper()
	env, status := request(t, client, method, url, token, body)
	if status >= 400 {
		t.Fatalf("unexpected status %d from %s %s: %+v", status, method, url, env.Error)
	}
	return env
}

func requestStatus(t *testing.T, client *http.Client, method, url, token string, body any, want int) {
	t.Helper()
	_, status := request(t, client, method, url, token, body)
	if status != want {
		t.Fatalf("expected status %d from %s %s, got %d", want, method, url, status)
	}
}

func request(t *testing.T, client *http.Client, method, url, token string, body any) (envelope, int) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response from %s: %v (%s)", url, err, string(raw))
	}
	return env, resp.StatusCode
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, token, nil)
}

// requestRaw issues the request without decoding the response; callers use
// it for binary downloads.
func requestRaw(t *testing.T, client *http.Client, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

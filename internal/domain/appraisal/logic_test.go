package appraisal

import (
	"strings"
	"testing"
	"time"

	"appraise/internal/domain/questionnaire"
)

func tmpl(id, role, levelID string, created time.Time) questionnaire.Template {
	return questionnaire.Template{
		ID:         id,
		Name:       id,
		TargetRole: role,
		LevelID:    levelID,
		Questions:  []questionnaire.Question{{ID: "q1", Text: "How did it go?", Type: questionnaire.QuestionTypeTextarea, Required: true}},
		CreatedAt:  created,
	}
}

func TestAssignTemplatesBothSides(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	templates := []questionnaire.Template{
		tmpl("self-generic", questionnaire.TargetRoleEmployee, "", base),
		tmpl("mgr-generic", questionnaire.TargetRoleManager, "", base),
	}
	members := []GroupMember{{EmployeeID: "emp-1", Name: "Ada Lovelace", ManagerID: "mgr-1"}}

	evals, problems := AssignTemplates(TypeBoth, members, templates, "detail-1")
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if len(evals) != 1 {
		t.Fatalf("expected 1 evaluation, got %d", len(evals))
	}
	ev := evals[0]
	if ev.SelfTemplateID != "self-generic" || ev.ManagerTemplateID != "mgr-generic" {
		t.Errorf("wrong templates assigned: self=%s manager=%s", ev.SelfTemplateID, ev.ManagerTemplateID)
	}
	if ev.FrequencyCalendarDetailID != "detail-1" {
		t.Errorf("calendar detail not carried: %s", ev.FrequencyCalendarDetailID)
	}
}

func TestAssignTemplatesSelfOnlySkipsManagerSide(t *testing.T) {
	templates := []questionnaire.Template{
		tmpl("self-generic", questionnaire.TargetRoleEmployee, "", time.Now()),
	}
	members := []GroupMember{{EmployeeID: "emp-1", Name: "Ada Lovelace"}}

	evals, problems := AssignTemplates(TypeSelf, members, templates, "")
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if evals[0].ManagerTemplateID != "" {
		t.Error("self-only appraisal should not assign a manager template")
	}
}

func TestAssignTemplatesPrefersMoreSpecific(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	templates := []questionnaire.Template{
		tmpl("self-generic", questionnaire.TargetRoleEmployee, "", base),
		tmpl("self-senior", questionnaire.TargetRoleEmployee, "lvl-senior", base),
	}
	members := []GroupMember{{EmployeeID: "emp-1", Name: "Ada Lovelace", LevelID: "lvl-senior"}}

	evals, problems := AssignTemplates(TypeSelf, members, templates, "")
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if evals[0].SelfTemplateID != "self-senior" {
		t.Errorf("expected the level-scoped template, got %s", evals[0].SelfTemplateID)
	}
}

func TestAssignTemplatesNamesUnresolvableMember(t *testing.T) {
	members := []GroupMember{{EmployeeID: "emp-1", Name: "Ada Lovelace"}}

	evals, problems := AssignTemplates(TypeSelf, members, nil, "")
	if evals != nil {
		t.Error("no evaluations should be produced when resolution fails")
	}
	if len(problems) != 1 || !strings.Contains(problems[0], "Ada Lovelace") {
		t.Errorf("problem should name the member: %v", problems)
	}
}

func TestAssignTemplatesRequiresManagerForManagerType(t *testing.T) {
	templates := []questionnaire.Template{
		tmpl("mgr-generic", questionnaire.TargetRoleManager, "", time.Now()),
	}
	members := []GroupMember{{EmployeeID: "emp-1", Name: "Ada Lovelace"}}

	_, problems := AssignTemplates(TypeManager, members, templates, "")
	if len(problems) != 1 || !strings.Contains(problems[0], "no manager assigned") {
		t.Errorf("expected a missing-manager problem, got %v", problems)
	}
}

func TestAppraisalTypeSides(t *testing.T) {
	cases := []struct {
		appraisalType string
		self, manager bool
	}{
		{TypeSelf, true, false},
		{TypeManager, false, true},
		{TypeBoth, true, true},
	}
	for _, tc := range cases {
		if NeedsSelf(tc.appraisalType) != tc.self || NeedsManager(tc.appraisalType) != tc.manager {
			t.Errorf("%s: wrong sides", tc.appraisalType)
		}
	}
	if ValidAppraisalType("peer") {
		t.Error("unknown appraisal type accepted")
	}
}

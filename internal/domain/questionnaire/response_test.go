package questionnaire

import (
	"encoding/json"
	"testing"
	"time"
)

func ratingTemplate() Template {
	return Template{
		ID:         "t1",
		Name:       "Self Review",
		TargetRole: TargetRoleEmployee,
		Questions: []Question{
			{ID: "q1", Text: "Summarize your achievements", Type: QuestionTypeTextarea, Required: true},
			{ID: "q2", Text: "Rate your delivery", Type: QuestionTypeRating, Required: true},
			{ID: "q3", Text: "Anything else?", Type: QuestionTypeText, Required: false},
		},
	}
}

func TestParseResponseKey(t *testing.T) {
	key, err := ParseResponseKey("t1_q2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if key.TemplateID != "t1" || key.QuestionID != "q2" {
		t.Fatalf("unexpected key %+v", key)
	}

	for _, raw := range []string{"", "t1", "t1_", "_q1"} {
		if _, err := ParseResponseKey(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseResponsesRejectsMalformedKeys(t *testing.T) {
	raw := json.RawMessage(`{"nounderscore":{"type":"text","text":"x"}}`)
	if _, err := ParseResponses(raw); err == nil {
		t.Fatal("expected malformed key error")
	}
}

func TestValidateSubmissionRequiredAnswers(t *testing.T) {
	tmpl := ratingTemplate()
	responses := ResponseSet{
		{TemplateID: "t1", QuestionID: "q1"}: {Type: QuestionTypeTextarea, Text: "Shipped the reporting revamp"},
	}

	problems := ValidateSubmission(tmpl, responses)
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %d: %v", len(problems), problems)
	}
	if problems[0].Key != "t1_q2" {
		t.Fatalf("expected missing q2, got %s", problems[0].Key)
	}
}

func TestValidateSubmissionTypeMismatch(t *testing.T) {
	tmpl := ratingTemplate()
	responses := ResponseSet{
		{TemplateID: "t1", QuestionID: "q1"}: {Type: QuestionTypeTextarea, Text: "notes"},
		{TemplateID: "t1", QuestionID: "q2"}: {Type: QuestionTypeText, Text: "four"},
	}

	problems := ValidateSubmission(tmpl, responses)
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %v", problems)
	}
	if problems[0].Key != "t1_q2" {
		t.Fatalf("expected q2 mismatch, got %s", problems[0].Key)
	}
}

func TestValidateSubmissionRatingRange(t *testing.T) {
	tmpl := ratingTemplate()
	responses := ResponseSet{
		{TemplateID: "t1", QuestionID: "q1"}: {Type: QuestionTypeTextarea, Text: "notes"},
		{TemplateID: "t1", QuestionID: "q2"}: {Type: QuestionTypeRating, Rating: 6},
	}

	problems := ValidateSubmission(tmpl, responses)
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %v", problems)
	}
}

func TestValidateSubmissionAcceptsComplete(t *testing.T) {
	tmpl := ratingTemplate()
	responses := ResponseSet{
		{TemplateID: "t1", QuestionID: "q1"}: {Type: QuestionTypeTextarea, Text: "notes"},
		{TemplateID: "t1", QuestionID: "q2"}: {Type: QuestionTypeRating, Rating: 4},
	}

	if problems := ValidateSubmission(tmpl, responses); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestValidateSubmissionRejectsStrayAnswers(t *testing.T) {
	tmpl := ratingTemplate()
	responses := ResponseSet{
		{TemplateID: "t1", QuestionID: "q1"}:    {Type: QuestionTypeTextarea, Text: "notes"},
		{TemplateID: "t1", QuestionID: "q2"}:    {Type: QuestionTypeRating, Rating: 3},
		{TemplateID: "t9", QuestionID: "q1"}:    {Type: QuestionTypeText, Text: "stray"},
		{TemplateID: "t1", QuestionID: "ghost"}: {Type: QuestionTypeText, Text: "stray"},
	}

	problems := ValidateSubmission(tmpl, responses)
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %v", problems)
	}
}

func TestResponseSetRoundTrip(t *testing.T) {
	responses := ResponseSet{
		{TemplateID: "t1", QuestionID: "q2"}: {Type: QuestionTypeRating, Rating: 5},
	}
	encoded, err := responses.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := ParseResponses(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	resp, ok := decoded[ResponseKey{TemplateID: "t1", QuestionID: "q2"}]
	if !ok || resp.Rating != 5 {
		t.Fatalf("round trip lost answer: %+v", decoded)
	}
}

func TestResolveTemplatePrefersMostSpecific(t *testing.T) {
	base := Template{ID: "base", TargetRole: TargetRoleEmployee, CreatedAt: time.Now().Add(-time.Hour)}
	leveled := Template{ID: "leveled", TargetRole: TargetRoleEmployee, LevelID: "l1", CreatedAt: time.Now().Add(-time.Hour)}
	pinned := Template{ID: "pinned", TargetRole: TargetRoleEmployee, LevelID: "l1", LocationID: "loc1", CreatedAt: time.Now().Add(-time.Hour)}

	member := Member{EmployeeID: "e1", LevelID: "l1", LocationID: "loc1"}
	got, ok := ResolveTemplate([]Template{base, leveled, pinned}, TargetRoleEmployee, member)
	if !ok {
		t.Fatal("expected a template")
	}
	if got.ID != "pinned" {
		t.Fatalf("expected pinned, got %s", got.ID)
	}
}

func TestResolveTemplateSkipsNonMatching(t *testing.T) {
	other := Template{ID: "other", TargetRole: TargetRoleEmployee, LevelID: "l9"}
	member := Member{EmployeeID: "e1", LevelID: "l1"}

	if _, ok := ResolveTemplate([]Template{other}, TargetRoleEmployee, member); ok {
		t.Fatal("expected no resolvable template")
	}
}

func TestResolveTemplateFiltersRole(t *testing.T) {
	mgr := Template{ID: "mgr", TargetRole: TargetRoleManager}
	member := Member{EmployeeID: "e1"}

	if _, ok := ResolveTemplate([]Template{mgr}, TargetRoleEmployee, member); ok {
		t.Fatal("manager template must not resolve for employee role")
	}
}

func TestValidateQuestions(t *testing.T) {
	problems := ValidateQuestions([]Question{
		{ID: "q1", Text: "ok", Type: QuestionTypeText},
		{ID: "q1", Text: "", Type: "poem"},
	})
	if len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", problems)
	}

	if problems := ValidateQuestions(nil); len(problems) != 1 {
		t.Fatalf("expected empty list problem, got %v", problems)
	}
}

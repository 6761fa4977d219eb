package questionnaire

import (
	"strconv"
	"time"
)

const (
	QuestionTypeText     = "text"
	QuestionTypeTextarea = "textarea"
	QuestionTypeRating   = "rating"

	TargetRoleEmployee = "employee"
	TargetRoleManager  = "manager"

	RatingMin = 1
	RatingMax = 5
)

type Question struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Template is an ordered question list answered by one participant role.
// Applicability fields constrain which employees receive it at initiation;
// an unset field matches everyone.
type Template struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	TargetRole string     `json:"targetRole"`
	LevelID    string     `json:"levelId,omitempty"`
	GradeID    string     `json:"gradeId,omitempty"`
	LocationID string     `json:"locationId,omitempty"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func ValidQuestionType(qtype string) bool {
	switch qtype {
	case QuestionTypeText, QuestionTypeTextarea, QuestionTypeRating:
		return true
	}
	return false
}

func ValidTargetRole(role string) bool {
	return role == TargetRoleEmployee || role == TargetRoleManager
}

// ValidateQuestions rejects malformed question lists at template creation.
func ValidateQuestions(questions []Question) []string {
	var problems []string
	if len(questions) == 0 {
		problems = append(problems, "at least one question is required")
		return problems
	}
	seen := make(map[string]bool, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			problems = append(problems, indexed(i, "question id is required"))
		} else if seen[q.ID] {
			problems = append(problems, indexed(i, "question id is duplicated"))
		}
		seen[q.ID] = true
		if q.Text == "" {
			problems = append(problems, indexed(i, "question text is required"))
		}
		if !ValidQuestionType(q.Type) {
			problems = append(problems, indexed(i, "question type must be text, textarea or rating"))
		}
	}
	return problems
}

func indexed(i int, msg string) string {
	return "questions[" + strconv.Itoa(i) + "]: " + msg
}

package appraisal

import (
	"fmt"

	"appraise/internal/domain/questionnaire"
)

// AssignTemplates resolves, per member, the questionnaire each side of the
// appraisal type answers. The manager's questionnaire is matched against
// the employee's own dimensions; the review is about the employee.
// Problems name the member so the caller can reject the whole publish.
func AssignTemplates(appraisalType string, members []GroupMember, templates []questionnaire.Template, calendarDetailID string) ([]NewEvaluation, []string) {
	var (
		evals    []NewEvaluation
		problems []string
	)
	for _, m := range members {
		target := questionnaire.Member{
			EmployeeID: m.EmployeeID,
			ManagerID:  m.ManagerID,
			LevelID:    m.LevelID,
			GradeID:    m.GradeID,
			LocationID: m.LocationID,
		}
		ev := NewEvaluation{
			EmployeeID:                m.EmployeeID,
			ManagerID:                 m.ManagerID,
			FrequencyCalendarDetailID: calendarDetailID,
		}
		if NeedsSelf(appraisalType) {
			tmpl, ok := questionnaire.ResolveTemplate(templates, questionnaire.TargetRoleEmployee, target)
			if !ok {
				problems = append(problems, fmt.Sprintf("no self questionnaire applies to %s", m.Name))
			} else {
				ev.SelfTemplateID = tmpl.ID
			}
		}
		if NeedsManager(appraisalType) {
			if m.ManagerID == "" {
				problems = append(problems, fmt.Sprintf("%s has no manager assigned", m.Name))
			} else if tmpl, ok := questionnaire.ResolveTemplate(templates, questionnaire.TargetRoleManager, target); !ok {
				problems = append(problems, fmt.Sprintf("no manager questionnaire applies to %s", m.Name))
			} else {
				ev.ManagerTemplateID = tmpl.ID
			}
		}
		evals = append(evals, ev)
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return evals, nil
}

package notifications

const (
	TypeAppraisalAssigned   = "appraisal_assigned"
	TypeSelfSubmitted       = "self_submitted"
	TypeReviewSubmitted     = "review_submitted"
	TypeMeetingScheduled    = "meeting_scheduled"
	TypeEvaluationFinalized = "evaluation_finalized"
	TypeGoalCreated         = "goal_created"
	TypeReminder            = "reminder"
)

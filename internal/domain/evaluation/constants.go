package evaluation

const (
	StatusNotStarted       = "not_started"
	StatusSelfSubmitted    = "self_submitted"
	StatusManagerReviewed  = "manager_reviewed"
	StatusMeetingScheduled = "meeting_scheduled"
	StatusMeetingCompleted = "meeting_completed"
	StatusFinalized        = "finalized"

	GoalStatusNotStarted = "not_started"
	GoalStatusOnTrack    = "on_track"
	GoalStatusDelayed    = "delayed"
	GoalStatusCompleted  = "completed"
)

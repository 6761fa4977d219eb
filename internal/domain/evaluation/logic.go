package evaluation

import "time"

// CanTransition reports whether the evaluation may move to the given
// status. The chain depends on which questionnaires the evaluation
// carries: a manager-only evaluation has no self step and enters at
// manager_reviewed, and a self-only evaluation has no reviewer and
// finalizes straight from self_submitted. Calibration is orthogonal and
// not part of the chain; rescheduling a meeting loops on
// meeting_scheduled, overwriting the previous schedule.
func CanTransition(ev *Evaluation, to string) bool {
	switch to {
	case StatusSelfSubmitted:
		return ev.SelfTemplateID != "" && ev.Status == StatusNotStarted
	case StatusManagerReviewed:
		if ev.ManagerTemplateID == "" {
			return false
		}
		if ev.SelfTemplateID == "" {
			return ev.Status == StatusNotStarted
		}
		return ev.Status == StatusSelfSubmitted
	case StatusMeetingScheduled:
		return ev.Status == StatusManagerReviewed || ev.Status == StatusMeetingScheduled
	case StatusMeetingCompleted:
		return ev.Status == StatusMeetingScheduled
	case StatusFinalized:
		if ev.Status == StatusManagerReviewed || ev.Status == StatusMeetingCompleted {
			return true
		}
		return ev.ManagerTemplateID == "" && ev.Status == StatusSelfSubmitted
	}
	return false
}

// CanSaveDraft reports whether the employee may still overwrite their draft.
// Drafts are allowed at any point before self submission locks the answers.
func CanSaveDraft(status string) bool {
	return status == StatusNotStarted
}

// CanCalibrate requires a manager rating to exist; the chain position is
// irrelevant, calibration may happen before or after finalization.
func CanCalibrate(overallRating *int) bool {
	return overallRating != nil
}

// GoalStatus derives a development goal's status from its progress and
// target date. Completion wins over lateness.
func GoalStatus(progress int, targetDate *time.Time, now time.Time) string {
	if progress >= 100 {
		return GoalStatusCompleted
	}
	if targetDate != nil && now.After(*targetDate) {
		return GoalStatusDelayed
	}
	if progress == 0 {
		return GoalStatusNotStarted
	}
	return GoalStatusOnTrack
}

// ClampProgress keeps goal progress within 0-100.
func ClampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

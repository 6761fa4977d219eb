package evaluation

import (
	"testing"
	"time"
)

func evalAt(status, selfTemplate, managerTemplate string) *Evaluation {
	return &Evaluation{Status: status, SelfTemplateID: selfTemplate, ManagerTemplateID: managerTemplate}
}

func TestCanTransitionBothSidesChain(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusNotStarted, StatusSelfSubmitted},
		{StatusSelfSubmitted, StatusManagerReviewed},
		{StatusManagerReviewed, StatusMeetingScheduled},
		{StatusManagerReviewed, StatusFinalized},
		{StatusMeetingScheduled, StatusMeetingScheduled},
		{StatusMeetingScheduled, StatusMeetingCompleted},
		{StatusMeetingCompleted, StatusFinalized},
	}
	for _, tc := range allowed {
		if !CanTransition(evalAt(tc.from, "self-t", "mgr-t"), tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransitionRejectsSkipsAndBackwards(t *testing.T) {
	denied := []struct{ from, to string }{
		{StatusNotStarted, StatusManagerReviewed},
		{StatusNotStarted, StatusFinalized},
		{StatusSelfSubmitted, StatusNotStarted},
		{StatusSelfSubmitted, StatusMeetingScheduled},
		{StatusSelfSubmitted, StatusFinalized},
		{StatusMeetingCompleted, StatusMeetingScheduled},
		{StatusFinalized, StatusMeetingCompleted},
		{StatusFinalized, StatusFinalized},
	}
	for _, tc := range denied {
		if CanTransition(evalAt(tc.from, "self-t", "mgr-t"), tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransitionManagerOnlyChain(t *testing.T) {
	// No self questionnaire: the review enters at manager_reviewed and the
	// self step is unreachable.
	if !CanTransition(evalAt(StatusNotStarted, "", "mgr-t"), StatusManagerReviewed) {
		t.Error("expected manager-only review to start at manager_reviewed")
	}
	if CanTransition(evalAt(StatusNotStarted, "", "mgr-t"), StatusSelfSubmitted) {
		t.Error("expected self submission to be rejected without a self questionnaire")
	}
	if !CanTransition(evalAt(StatusManagerReviewed, "", "mgr-t"), StatusFinalized) {
		t.Error("expected manager-only review to finalize from manager_reviewed")
	}
	if !CanTransition(evalAt(StatusManagerReviewed, "", "mgr-t"), StatusMeetingScheduled) {
		t.Error("expected manager-only review to allow a meeting")
	}
}

func TestCanTransitionSelfOnlyChain(t *testing.T) {
	// No manager questionnaire: self submission is terminal apart from
	// finalization; the review steps stay unreachable.
	if !CanTransition(evalAt(StatusNotStarted, "self-t", ""), StatusSelfSubmitted) {
		t.Error("expected self-only evaluation to accept self submission")
	}
	if CanTransition(evalAt(StatusSelfSubmitted, "self-t", ""), StatusManagerReviewed) {
		t.Error("expected manager review to be rejected without a manager questionnaire")
	}
	if !CanTransition(evalAt(StatusSelfSubmitted, "self-t", ""), StatusFinalized) {
		t.Error("expected self-only evaluation to finalize from self_submitted")
	}
	if CanTransition(evalAt(StatusSelfSubmitted, "self-t", ""), StatusMeetingScheduled) {
		t.Error("expected meeting scheduling to be rejected without a manager side")
	}
	if CanTransition(evalAt(StatusNotStarted, "self-t", ""), StatusFinalized) {
		t.Error("expected finalize to be rejected before self submission")
	}
}

func TestCanSaveDraftOnlyBeforeSubmission(t *testing.T) {
	if !CanSaveDraft(StatusNotStarted) {
		t.Error("draft should be allowed before submission")
	}
	for _, status := range []string{StatusSelfSubmitted, StatusManagerReviewed, StatusFinalized} {
		if CanSaveDraft(status) {
			t.Errorf("draft should be rejected at %s", status)
		}
	}
}

func TestCanCalibrateRequiresRating(t *testing.T) {
	if CanCalibrate(nil) {
		t.Error("calibration without a manager rating should be rejected")
	}
	rating := 4
	if !CanCalibrate(&rating) {
		t.Error("calibration with a manager rating should be allowed")
	}
}

func TestGoalStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)
	future := now.AddDate(0, 1, 0)

	cases := []struct {
		name     string
		progress int
		target   *time.Time
		want     string
	}{
		{"zero progress no target", 0, nil, GoalStatusNotStarted},
		{"partial progress future target", 40, &future, GoalStatusOnTrack},
		{"partial progress no target", 40, nil, GoalStatusOnTrack},
		{"past target incomplete", 40, &past, GoalStatusDelayed},
		{"past target zero progress", 0, &past, GoalStatusDelayed},
		{"complete past target", 100, &past, GoalStatusCompleted},
		{"complete no target", 100, nil, GoalStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GoalStatus(tc.progress, tc.target, now); got != tc.want {
				t.Errorf("GoalStatus(%d) = %s, want %s", tc.progress, got, tc.want)
			}
		})
	}
}

func TestClampProgress(t *testing.T) {
	cases := []struct{ in, want int }{
		{-10, 0}, {0, 0}, {55, 55}, {100, 100}, {140, 100},
	}
	for _, tc := range cases {
		if got := ClampProgress(tc.in); got != tc.want {
			t.Errorf("ClampProgress(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

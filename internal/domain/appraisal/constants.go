package appraisal

const (
	TypeSelf    = "self"
	TypeManager = "manager"
	TypeBoth    = "both"

	PublishNow      = "now"
	PublishCalendar = "calendar"

	CycleStatusDraft  = "draft"
	CycleStatusActive = "active"
	CycleStatusClosed = "closed"

	StatusInitiated = "initiated"
	StatusCancelled = "cancelled"

	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusExecuted   = "executed"
	TaskStatusFailed     = "failed"
)

func ValidAppraisalType(appraisalType string) bool {
	switch appraisalType {
	case TypeSelf, TypeManager, TypeBoth:
		return true
	}
	return false
}

func ValidCycleStatus(status string) bool {
	switch status {
	case CycleStatusDraft, CycleStatusActive, CycleStatusClosed:
		return true
	}
	return false
}

// NeedsSelf reports whether the appraisal type includes a self evaluation.
func NeedsSelf(appraisalType string) bool {
	return appraisalType == TypeSelf || appraisalType == TypeBoth
}

// NeedsManager reports whether the appraisal type includes a manager review.
func NeedsManager(appraisalType string) bool {
	return appraisalType == TypeManager || appraisalType == TypeBoth
}

package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const evaluationColumns = `
    id, initiated_appraisal_id, appraisal_cycle_id,
    COALESCE(frequency_calendar_detail_id::text,''),
    employee_id,
    COALESCE(manager_id::text,''),
    COALESCE(self_template_id::text,''),
    COALESCE(manager_template_id::text,''),
    status,
    self_draft_json, self_data_json, self_submitted_at,
    manager_data_json, manager_submitted_at,
    overall_rating, calibrated_rating, COALESCE(calibration_remarks,''), calibrated_at,
    meeting_scheduled_at, COALESCE(meeting_title,''), COALESCE(meeting_description,''),
    COALESCE(meeting_notes,''), meeting_completed_at,
    finalized_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner, ev *Evaluation) error {
	return row.Scan(
		&ev.ID, &ev.InitiatedAppraisalID, &ev.AppraisalCycleID,
		&ev.FrequencyCalendarDetailID,
		&ev.EmployeeID, &ev.ManagerID, &ev.SelfTemplateID, &ev.ManagerTemplateID,
		&ev.Status,
		&ev.SelfDraft, &ev.SelfData, &ev.SelfSubmittedAt,
		&ev.ManagerData, &ev.ManagerSubmittedAt,
		&ev.OverallRating, &ev.CalibratedRating, &ev.CalibrationRemarks, &ev.CalibratedAt,
		&ev.MeetingScheduledAt, &ev.MeetingTitle, &ev.MeetingDescription,
		&ev.MeetingNotes, &ev.MeetingCompletedAt,
		&ev.FinalizedAt, &ev.CreatedAt, &ev.UpdatedAt,
	)
}

func (s *Store) GetEvaluation(ctx context.Context, tenantID, evaluationID string) (*Evaluation, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+evaluationColumns+`
    FROM evaluations
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, evaluationID)

	var ev Evaluation
	if err := scanEvaluation(row, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *Store) ListEvaluations(ctx context.Context, tenantID, employeeID, managerID, initiatedAppraisalID string) ([]Evaluation, error) {
	query := `
    SELECT` + evaluationColumns + `
    FROM evaluations
    WHERE tenant_id = $1`
	args := []any{tenantID}
	if employeeID != "" {
		query += fmt.Sprintf(" AND employee_id = $%d", len(args)+1)
		args = append(args, employeeID)
	}
	if managerID != "" {
		query += fmt.Sprintf(" AND manager_id = $%d", len(args)+1)
		args = append(args, managerID)
	}
	if initiatedAppraisalID != "" {
		query += fmt.Sprintf(" AND initiated_appraisal_id = $%d", len(args)+1)
		args = append(args, initiatedAppraisalID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var ev Evaluation
		if err := scanEvaluation(rows, &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Every transition write below is a single conditional UPDATE keyed on the
// status the caller read. Zero affected rows means the row moved underneath
// the caller (or never existed); the service layer tells those apart.

func (s *Store) SaveSelfDraft(ctx context.Context, tenantID, evaluationID string, draft []byte) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET self_draft_json = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND status = $4
  `, draft, tenantID, evaluationID, StatusNotStarted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) SubmitSelf(ctx context.Context, tenantID, evaluationID string, data []byte, now time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET self_data_json = $1, self_submitted_at = $2, status = $3, updated_at = now()
    WHERE tenant_id = $4 AND id = $5 AND status = $6
  `, data, now, StatusSelfSubmitted, tenantID, evaluationID, StatusNotStarted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) SubmitManagerReview(ctx context.Context, tenantID, evaluationID, expectedStatus string, data []byte, rating int, now time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET manager_data_json = $1, manager_submitted_at = $2, overall_rating = $3, status = $4, updated_at = now()
    WHERE tenant_id = $5 AND id = $6 AND status = $7
  `, data, now, rating, StatusManagerReviewed, tenantID, evaluationID, expectedStatus)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ScheduleMeeting(ctx context.Context, tenantID, evaluationID, expectedStatus string, at time.Time, title, description string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET meeting_scheduled_at = $1, meeting_title = $2, meeting_description = $3, status = $4, updated_at = now()
    WHERE tenant_id = $5 AND id = $6 AND status = $7
  `, at, title, description, StatusMeetingScheduled, tenantID, evaluationID, expectedStatus)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CompleteMeeting(ctx context.Context, tenantID, evaluationID, notes string, updatedRating *int, now time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET meeting_notes = $1, meeting_completed_at = $2,
        overall_rating = COALESCE($3, overall_rating),
        status = $4, updated_at = now()
    WHERE tenant_id = $5 AND id = $6 AND status = $7
  `, notes, now, updatedRating, StatusMeetingCompleted, tenantID, evaluationID, StatusMeetingScheduled)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateMeetingNotes amends notes without moving the chain; allowed while
// a meeting is scheduled or after it completed.
func (s *Store) UpdateMeetingNotes(ctx context.Context, tenantID, evaluationID, notes string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET meeting_notes = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND status IN ($4, $5)
  `, notes, tenantID, evaluationID, StatusMeetingScheduled, StatusMeetingCompleted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Finalize(ctx context.Context, tenantID, evaluationID, expectedStatus string, now time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET finalized_at = $1, status = $2, updated_at = now()
    WHERE tenant_id = $3 AND id = $4 AND status = $5
  `, now, StatusFinalized, tenantID, evaluationID, expectedStatus)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Calibrate touches only the calibration columns; status and overall_rating
// are left alone so the original manager rating survives for audit.
func (s *Store) Calibrate(ctx context.Context, tenantID, evaluationID string, rating int, remarks string, now time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE evaluations
    SET calibrated_rating = $1, calibration_remarks = $2, calibrated_at = $3, updated_at = now()
    WHERE tenant_id = $4 AND id = $5 AND overall_rating IS NOT NULL
  `, rating, remarks, now, tenantID, evaluationID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"appraise/internal/domain/questionnaire"
)

// TemplateSource supplies the questionnaire a submission is validated
// against.
type TemplateSource interface {
	GetTemplate(ctx context.Context, tenantID, templateID string) (questionnaire.Template, error)
}

// Service orchestrates the evaluation chain. Every transition follows the
// same shape: read the row, check the precondition against the status that
// was read, then issue one conditional update keyed on that status. A zero
// row count after a passing precondition means another writer got there
// first.
type Service struct {
	Store     *Store
	Templates TemplateSource
}

func NewService(store *Store, templates TemplateSource) *Service {
	return &Service{Store: store, Templates: templates}
}

func (s *Service) Get(ctx context.Context, tenantID, evaluationID string) (*Evaluation, error) {
	ev, err := s.Store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}

func (s *Service) List(ctx context.Context, tenantID, employeeID, managerID, initiatedAppraisalID string) ([]Evaluation, error) {
	return s.Store.ListEvaluations(ctx, tenantID, employeeID, managerID, initiatedAppraisalID)
}

// SaveDraft overwrites the employee's working answers. Drafts are free-form;
// they are only validated when submitted.
func (s *Service) SaveDraft(ctx context.Context, tenantID, evaluationID string, draft json.RawMessage) error {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if !CanSaveDraft(ev.Status) {
		return ErrInvalidTransition
	}
	if !json.Valid(draft) {
		return NewValidationError(FieldProblem{Field: "responses", Reason: "draft is not valid JSON"})
	}
	return s.applied(s.Store.SaveSelfDraft(ctx, tenantID, evaluationID, draft))
}

// SubmitSelf validates the answers against the evaluation's self template
// and locks them in. Validation failures write nothing.
func (s *Service) SubmitSelf(ctx context.Context, tenantID, evaluationID string, raw json.RawMessage) error {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if !CanTransition(ev, StatusSelfSubmitted) {
		return ErrInvalidTransition
	}
	data, err := s.validateResponses(ctx, tenantID, ev.SelfTemplateID, raw)
	if err != nil {
		return err
	}
	return s.applied(s.Store.SubmitSelf(ctx, tenantID, evaluationID, data, time.Now().UTC()))
}

// SubmitManagerReview records the manager's answers and overall rating,
// moving the evaluation to manager_reviewed. Manager-only evaluations
// enter here straight from not_started.
func (s *Service) SubmitManagerReview(ctx context.Context, tenantID, evaluationID string, raw json.RawMessage, rating int) error {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if !CanTransition(ev, StatusManagerReviewed) {
		return ErrInvalidTransition
	}
	if rating < questionnaire.RatingMin || rating > questionnaire.RatingMax {
		return NewValidationError(FieldProblem{Field: "overallRating", Reason: "rating must be between 1 and 5"})
	}
	data, err := s.validateResponses(ctx, tenantID, ev.ManagerTemplateID, raw)
	if err != nil {
		return err
	}
	return s.applied(s.Store.SubmitManagerReview(ctx, tenantID, evaluationID, ev.Status, data, rating, time.Now().UTC()))
}

// ScheduleMeeting sets or reschedules the one-on-one. Rescheduling simply
// overwrites the previous slot.
func (s *Service) ScheduleMeeting(ctx context.Context, tenantID, evaluationID string, at time.Time, title, description string) error {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if !CanTransition(ev, StatusMeetingScheduled) {
		return ErrInvalidTransition
	}
	return s.applied(s.Store.ScheduleMeeting(ctx, tenantID, evaluationID, ev.Status, at, title, description))
}

// CompleteMeeting records the meeting outcome. The manager may revise the
// overall rating here; a nil rating keeps the one from the review.
func (s *Service) CompleteMeeting(ctx context.Context, tenantID, evaluationID, notes string, updatedRating *int) error {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if !CanTransition(ev, StatusMeetingCompleted) {
		return ErrInvalidTransition
	}
	if updatedRating != nil && (*updatedRating < questionnaire.RatingMin || *updatedRating > questionnaire.RatingMax) {
		return NewValidationError(FieldProblem{Field: "updatedRating", Reason: "rating must be between 1 and 5"})
	}
	return s.applied(s.Store.CompleteMeeting(ctx, tenantID, evaluationID, notes, updatedRating, time.Now().UTC()))
}

// UpdateMeetingNotes amends the meeting notes while a meeting is scheduled
// or after it completed.
func (s *Service) UpdateMeetingNotes(ctx context.Context, tenantID, evaluationID, notes string) error {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if ev.Status != StatusMeetingScheduled && ev.Status != StatusMeetingCompleted {
		return ErrInvalidTransition
	}
	return s.applied(s.Store.UpdateMeetingNotes(ctx, tenantID, evaluationID, notes))
}

// Finalize closes the evaluation. Allowed straight from manager_reviewed
// when no meeting is held, after the meeting completes, or from
// self_submitted for evaluations with no manager side.
func (s *Service) Finalize(ctx context.Context, tenantID, evaluationID string) error {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if !CanTransition(ev, StatusFinalized) {
		return ErrInvalidTransition
	}
	return s.applied(s.Store.Finalize(ctx, tenantID, evaluationID, ev.Status, time.Now().UTC()))
}

// Calibrate records an HR-adjusted rating alongside the manager's. It never
// moves the chain and never touches overallRating.
func (s *Service) Calibrate(ctx context.Context, tenantID, evaluationID string, rating int, remarks string) error {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if !CanCalibrate(ev.OverallRating) {
		return ErrInvalidTransition
	}
	if rating < questionnaire.RatingMin || rating > questionnaire.RatingMax {
		return NewValidationError(FieldProblem{Field: "calibratedRating", Reason: "rating must be between 1 and 5"})
	}
	return s.applied(s.Store.Calibrate(ctx, tenantID, evaluationID, rating, remarks, time.Now().UTC()))
}

func (s *Service) validateResponses(ctx context.Context, tenantID, templateID string, raw json.RawMessage) ([]byte, error) {
	responses, err := questionnaire.ParseResponses(raw)
	if err != nil {
		return nil, NewValidationError(FieldProblem{Field: "responses", Reason: err.Error()})
	}
	if templateID == "" {
		return nil, NewValidationError(FieldProblem{Field: "responses", Reason: "no questionnaire is assigned to this evaluation"})
	}
	tmpl, err := s.Templates.GetTemplate(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if problems := questionnaire.ValidateSubmission(tmpl, responses); len(problems) > 0 {
		verr := &ValidationError{}
		for _, p := range problems {
			verr.Fields = append(verr.Fields, FieldProblem{Field: p.Key, Reason: p.Reason})
		}
		return nil, verr
	}
	return responses.Encode()
}

func (s *Service) applied(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

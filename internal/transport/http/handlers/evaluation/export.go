package evaluationhandler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jung-kurt/gofpdf"

	"appraise/internal/domain/evaluation"
	"appraise/internal/transport/http/api"
	"appraise/internal/transport/http/middleware"
)

// handleExport renders the evaluation as a summary sheet and streams it
// back. Only PDF rendering is built in; a docx request fails as a
// dependency failure since that renderer is an external collaborator.
// Questionnaire answers stay out of the export; it covers the outcome of
// the review, not its raw content.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload struct {
		EvaluationID string `json:"evaluationId"`
		Format       string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	switch payload.Format {
	case "", "pdf":
	case "docx":
		api.Fail(w, http.StatusBadGateway, "dependency_failure", "docx rendering is not available", middleware.GetRequestID(r.Context()))
		return
	default:
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "request validation failed",
			[]evaluation.FieldProblem{{Field: "format", Reason: "format must be pdf or docx"}}, middleware.GetRequestID(r.Context()))
		return
	}
	ev, err := h.Service.Get(r.Context(), user.TenantID, payload.EvaluationID)
	if err != nil {
		h.fail(w, r, err, "export_failed", "failed to export evaluation")
		return
	}
	if !h.canSee(r, user, ev) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your evaluation", middleware.GetRequestID(r.Context()))
		return
	}

	employeeName, managerName := ev.EmployeeID, ev.ManagerID
	if emp, err := h.Org.GetEmployee(r.Context(), user.TenantID, ev.EmployeeID); err == nil {
		employeeName = emp.FirstName + " " + emp.LastName
	}
	if ev.ManagerID != "" {
		if mgr, err := h.Org.GetEmployee(r.Context(), user.TenantID, ev.ManagerID); err == nil {
			managerName = mgr.FirstName + " " + mgr.LastName
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Performance Evaluation")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", employeeName))
	pdf.Ln(7)
	if managerName != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Manager: %s", managerName))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", ev.Status))
	pdf.Ln(7)
	if ev.SelfSubmittedAt != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Self evaluation submitted: %s", ev.SelfSubmittedAt.Format("2006-01-02")))
		pdf.Ln(7)
	}
	if ev.ManagerSubmittedAt != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Manager review submitted: %s", ev.ManagerSubmittedAt.Format("2006-01-02")))
		pdf.Ln(7)
	}
	if ev.OverallRating != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Overall rating: %d / 5", *ev.OverallRating))
		pdf.Ln(7)
	}
	if ev.CalibratedRating != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Calibrated rating: %d / 5", *ev.CalibratedRating))
		pdf.Ln(7)
		if ev.CalibrationRemarks != "" {
			pdf.MultiCell(0, 8, fmt.Sprintf("Calibration remarks: %s", ev.CalibrationRemarks), "", "L", false)
		}
	}
	if ev.MeetingCompletedAt != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Review meeting held: %s", ev.MeetingCompletedAt.Format("2006-01-02")))
		pdf.Ln(7)
		if ev.MeetingNotes != "" {
			pdf.MultiCell(0, 8, fmt.Sprintf("Meeting notes: %s", ev.MeetingNotes), "", "L", false)
		}
	}
	if ev.Status == evaluation.StatusFinalized && ev.FinalizedAt != nil {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, fmt.Sprintf("Finalized on %s", ev.FinalizedAt.Format("2006-01-02")))
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=evaluation-%s.pdf", ev.ID))
	if err := pdf.Output(w); err != nil {
		slog.Warn("pdf stream failed", "evaluationId", ev.ID, "err", err)
	}
}

package reports

import (
	"context"
	"io"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

// ProgressReport loads the tenant's flattened rows, applies the filter and
// aggregates completion over what remains.
func (s *Service) ProgressReport(ctx context.Context, tenantID string, filter Filter) ([]Row, Progress, error) {
	rows, err := s.Store.Rows(ctx, tenantID)
	if err != nil {
		return nil, Progress{}, err
	}
	filtered := filter.Apply(rows)
	return filtered, ComputeProgress(filtered), nil
}

// AppraisalProgress computes per-appraisal completion for the appraisal
// listing.
func (s *Service) AppraisalProgress(ctx context.Context, tenantID string) (map[string]Progress, error) {
	rows, err := s.Store.Rows(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return GroupProgress(rows), nil
}

// ExportCSV writes the filtered report in the fixed export layout.
func (s *Service) ExportCSV(ctx context.Context, tenantID string, filter Filter, w io.Writer) error {
	rows, err := s.Store.Rows(ctx, tenantID)
	if err != nil {
		return err
	}
	return WriteCSV(w, filter.Apply(rows))
}

func (s *Service) EmployeeDashboard(ctx context.Context, tenantID, employeeID string) (Dashboard, error) {
	return s.Store.EmployeeDashboard(ctx, tenantID, employeeID)
}

func (s *Service) ManagerDashboard(ctx context.Context, tenantID, managerID string) (Dashboard, error) {
	return s.Store.ManagerDashboard(ctx, tenantID, managerID)
}

func (s *Service) HRDashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	return s.Store.HRDashboard(ctx, tenantID)
}

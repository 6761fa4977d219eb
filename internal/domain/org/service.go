package org

import "context"

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) ListLocations(ctx context.Context, tenantID string) ([]Location, error) {
	return s.Store.ListLocations(ctx, tenantID)
}

func (s *Service) CreateLocation(ctx context.Context, tenantID, name, city, country string) (string, error) {
	return s.Store.CreateLocation(ctx, tenantID, name, city, country)
}

func (s *Service) ListDepartments(ctx context.Context, tenantID string) ([]Department, error) {
	return s.Store.ListDepartments(ctx, tenantID)
}

func (s *Service) CreateDepartment(ctx context.Context, tenantID, name, parentID string) (string, error) {
	return s.Store.CreateDepartment(ctx, tenantID, name, parentID)
}

func (s *Service) ListLevels(ctx context.Context, tenantID string) ([]Level, error) {
	return s.Store.ListLevels(ctx, tenantID)
}

func (s *Service) CreateLevel(ctx context.Context, tenantID, name string, rank int) (string, error) {
	return s.Store.CreateLevel(ctx, tenantID, name, rank)
}

func (s *Service) ListGrades(ctx context.Context, tenantID string) ([]Grade, error) {
	return s.Store.ListGrades(ctx, tenantID)
}

func (s *Service) CreateGrade(ctx context.Context, tenantID, name, levelID string) (string, error) {
	return s.Store.CreateGrade(ctx, tenantID, name, levelID)
}

func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	return s.Store.GetEmployee(ctx, tenantID, employeeID)
}

func (s *Service) ListEmployees(ctx context.Context, tenantID, managerID, search string, limit, offset int) ([]Employee, error) {
	return s.Store.ListEmployees(ctx, tenantID, managerID, search, limit, offset)
}

func (s *Service) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	return s.Store.CreateEmployee(ctx, tenantID, emp)
}

func (s *Service) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error {
	return s.Store.UpdateEmployee(ctx, tenantID, employeeID, emp)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	return s.Store.EmployeeIDByUserID(ctx, tenantID, userID)
}

func (s *Service) EmployeeUserID(ctx context.Context, tenantID, employeeID string) (string, error) {
	return s.Store.EmployeeUserID(ctx, tenantID, employeeID)
}

func (s *Service) ManagerIDByEmployeeID(ctx context.Context, tenantID, employeeID string) (string, error) {
	return s.Store.ManagerIDByEmployeeID(ctx, tenantID, employeeID)
}

func (s *Service) IsManagerOfEmployee(ctx context.Context, tenantID, employeeID, managerID string) (bool, error) {
	return s.Store.IsManagerOfEmployee(ctx, tenantID, employeeID, managerID)
}

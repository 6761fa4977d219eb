package org

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListLocations(ctx context.Context, tenantID string) ([]Location, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(city,''), COALESCE(country,''), created_at
    FROM locations
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.City, &loc.Country, &loc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}

func (s *Store) CreateLocation(ctx context.Context, tenantID, name, city, country string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO locations (tenant_id, name, city, country)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, name, city, country).Scan(&id)
	return id, err
}

func (s *Store) ListDepartments(ctx context.Context, tenantID string) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(parent_id::text,''), created_at
    FROM departments
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var dep Department
		if err := rows.Scan(&dep.ID, &dep.Name, &dep.ParentID, &dep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

func (s *Store) CreateDepartment(ctx context.Context, tenantID, name, parentID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (tenant_id, name, parent_id)
    VALUES ($1,$2,$3)
    RETURNING id
  `, tenantID, name, nullIfEmpty(parentID)).Scan(&id)
	return id, err
}

func (s *Store) ListLevels(ctx context.Context, tenantID string) ([]Level, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, rank, created_at
    FROM levels
    WHERE tenant_id = $1
    ORDER BY rank, name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Level
	for rows.Next() {
		var lvl Level
		if err := rows.Scan(&lvl.ID, &lvl.Name, &lvl.Rank, &lvl.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, nil
}

func (s *Store) CreateLevel(ctx context.Context, tenantID, name string, rank int) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO levels (tenant_id, name, rank)
    VALUES ($1,$2,$3)
    RETURNING id
  `, tenantID, name, rank).Scan(&id)
	return id, err
}

func (s *Store) ListGrades(ctx context.Context, tenantID string) ([]Grade, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(level_id::text,''), created_at
    FROM grades
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Grade
	for rows.Next() {
		var grd Grade
		if err := rows.Scan(&grd.ID, &grd.Name, &grd.LevelID, &grd.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, grd)
	}
	return out, nil
}

func (s *Store) CreateGrade(ctx context.Context, tenantID, name, levelID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO grades (tenant_id, name, level_id)
    VALUES ($1,$2,$3)
    RETURNING id
  `, tenantID, name, nullIfEmpty(levelID)).Scan(&id)
	return id, err
}

const employeeColumns = `
    id,
    COALESCE(user_id::text, ''),
    COALESCE(employee_number, ''),
    first_name, last_name, email,
    COALESCE(manager_id::text, ''),
    COALESCE(location_id::text, ''),
    COALESCE(department_id::text, ''),
    COALESCE(level_id::text, ''),
    COALESCE(grade_id::text, ''),
    status, created_at, updated_at`

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID)

	var emp Employee
	if err := scanEmployee(row, &emp); err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID, managerID, search string, limit, offset int) ([]Employee, error) {
	query := `
    SELECT` + employeeColumns + `
    FROM employees
    WHERE tenant_id = $1`
	args := []any{tenantID}
	if managerID != "" {
		query += fmt.Sprintf(" AND manager_id = $%d", len(args)+1)
		args = append(args, managerID)
	}
	if search != "" {
		query += fmt.Sprintf(" AND (first_name || ' ' || last_name ILIKE $%d OR employee_number ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+search+"%")
	}
	query += fmt.Sprintf(" ORDER BY last_name, first_name LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var emp Employee
		if err := scanEmployee(rows, &emp); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner, emp *Employee) error {
	return row.Scan(
		&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.ManagerID, &emp.LocationID, &emp.DepartmentID, &emp.LevelID, &emp.GradeID,
		&emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	)
}

func (s *Store) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, employee_number, first_name, last_name, email,
                           manager_id, location_id, department_id, level_id, grade_id, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    RETURNING id
  `, tenantID, nullIfEmpty(emp.UserID), emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email,
		nullIfEmpty(emp.ManagerID), nullIfEmpty(emp.LocationID), nullIfEmpty(emp.DepartmentID),
		nullIfEmpty(emp.LevelID), nullIfEmpty(emp.GradeID), emp.Status).Scan(&id)
	return id, err
}

func (s *Store) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET employee_number = $1, first_name = $2, last_name = $3, email = $4,
        manager_id = $5, location_id = $6, department_id = $7, level_id = $8, grade_id = $9,
        status = $10, updated_at = now()
    WHERE tenant_id = $11 AND id = $12
  `, emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.Email,
		nullIfEmpty(emp.ManagerID), nullIfEmpty(emp.LocationID), nullIfEmpty(emp.DepartmentID),
		nullIfEmpty(emp.LevelID), nullIfEmpty(emp.GradeID), emp.Status, tenantID, employeeID)
	return err
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var employeeID string
	if err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2", tenantID, userID).Scan(&employeeID); err != nil {
		return "", err
	}
	return employeeID, nil
}

func (s *Store) EmployeeUserID(ctx context.Context, tenantID, employeeID string) (string, error) {
	var userID string
	if err := s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text,'') FROM employees WHERE tenant_id = $1 AND id = $2", tenantID, employeeID).Scan(&userID); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Store) ManagerIDByEmployeeID(ctx context.Context, tenantID, employeeID string) (string, error) {
	var managerID string
	if err := s.DB.QueryRow(ctx, "SELECT COALESCE(manager_id::text,'') FROM employees WHERE tenant_id = $1 AND id = $2", tenantID, employeeID).Scan(&managerID); err != nil {
		return "", err
	}
	return managerID, nil
}

func (s *Store) IsManagerOfEmployee(ctx context.Context, tenantID, employeeID, managerID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE tenant_id = $1 AND id = $2 AND manager_id = $3
  `, tenantID, employeeID, managerID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

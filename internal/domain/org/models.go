package org

import "time"

type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Level struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"createdAt"`
}

type Grade struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LevelID   string    `json:"levelId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Employee struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	EmployeeNumber string    `json:"employeeNumber"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	ManagerID      string    `json:"managerId"`
	LocationID     string    `json:"locationId"`
	DepartmentID   string    `json:"departmentId"`
	LevelID        string    `json:"levelId"`
	GradeID        string    `json:"gradeId"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

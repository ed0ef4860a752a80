package models

import "time"

// UserRole represents the roles issued by the backend.
type UserRole string

const (
	RoleBusiness UserRole = "business"
	RoleFaculty  UserRole = "faculty"
)

// FacultyProfile holds the optional teaching details of a faculty user.
type FacultyProfile struct {
	EmployeeID     string     `json:"employeeId,omitempty"`
	Department     string     `json:"department,omitempty"`
	Specialization []string   `json:"specialization,omitempty"`
	Experience     int        `json:"experience,omitempty"`
	Qualification  string     `json:"qualification,omitempty"`
	JoiningDate    *time.Time `json:"joiningDate,omitempty"`
	IsActive       bool       `json:"isActive"`
}

// User is a backend account.
type User struct {
	ID             string          `json:"_id"`
	Email          string          `json:"email"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Role           UserRole        `json:"role"`
	PhoneNumber    string          `json:"phoneNumber"`
	FacultyProfile *FacultyProfile `json:"facultyProfile,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

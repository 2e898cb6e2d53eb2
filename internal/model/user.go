package model

import "time"

type UserRole string

const (
	UserRoleTeacher UserRole = "teacher"
	UserRoleStudent UserRole = "student"
)

type User struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Role           UserRole  `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsTeacher reports whether the user can be assigned to lessons as a teacher.
func (u *User) IsTeacher() bool {
	return u.Role == UserRoleTeacher
}

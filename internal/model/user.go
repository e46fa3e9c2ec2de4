package model

import (
	"fmt"
	"time"
)

// Role is a user's immutable role.
type Role string

const (
	RoleLearner    Role = "learner"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a role string. Empty input defaults to RoleLearner.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleLearner, nil
	case RoleLearner, RoleInstructor, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role %q", s)
	}
}

// Profile holds the scalar profile fields of a user.
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Bio        string `json:"bio,omitempty"`
	Location   string `json:"location,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Education  string `json:"education,omitempty"`
	AvatarRef  string `json:"avatar_ref,omitempty"`
}

// User is the signed-in principal together with its enrollment state.
type User struct {
	ID               string    `json:"id"`
	Role             Role      `json:"role"`
	Profile          Profile   `json:"profile"`
	EnrolledCourses  CourseSet `json:"enrolled_courses"`
	CompletedCourses CourseSet `json:"completed_courses"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewUser assembles a user from a stored profile row and its enrollment rows.
func NewUser(row ProfileRow, enrollments []Enrollment) (User, error) {
	if row.ID == "" {
		return User{}, fmt.Errorf("profile row has empty id")
	}
	role, err := ParseRole(string(row.Role))
	if err != nil {
		return User{}, fmt.Errorf("profile row %s: %w", row.ID, err)
	}

	u := User{
		ID:               row.ID,
		Role:             role,
		Profile:          row.Profile,
		EnrolledCourses:  NewCourseSet(),
		CompletedCourses: NewCourseSet(),
		CreatedAt:        row.CreatedAt,
	}
	for _, e := range enrollments {
		switch e.Status {
		case EnrollmentStatusEnrolled:
			u.EnrolledCourses.Add(e.CourseID)
		case EnrollmentStatusCompleted:
			u.CompletedCourses.Add(e.CourseID)
		default:
			return User{}, fmt.Errorf("enrollment %s/%s has unknown status %q", e.UserID, e.CourseID, e.Status)
		}
	}
	return u, nil
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	c := u
	c.EnrolledCourses = u.EnrolledCourses.Clone()
	c.CompletedCourses = u.CompletedCourses.Clone()
	return c
}

// Normalize replaces nil course sets with empty ones.
func (u *User) Normalize() {
	if u.EnrolledCourses == nil {
		u.EnrolledCourses = NewCourseSet()
	}
	if u.CompletedCourses == nil {
		u.CompletedCourses = NewCourseSet()
	}
}

// LocalUser is a user record in the local fallback user table.
// Credential is a bcrypt hash of the user's password.
type LocalUser struct {
	User
	Credential string `json:"credential"`
}

// RegisterData is the input of a registration.
type RegisterData struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
	Name       string `json:"name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Role       Role   `json:"role" validate:"omitempty,oneof=learner instructor admin"`
	Bio        string `json:"bio" validate:"omitempty,max=2000"`
	Location   string `json:"location" validate:"omitempty,max=200"`
	Occupation string `json:"occupation" validate:"omitempty,max=200"`
	Education  string `json:"education" validate:"omitempty,max=200"`
}

// Profile returns the scalar profile fields carried by the registration.
func (d RegisterData) Profile() Profile {
	return Profile{
		Name:       d.Name,
		Email:      d.Email,
		Phone:      d.Phone,
		Bio:        d.Bio,
		Location:   d.Location,
		Occupation: d.Occupation,
		Education:  d.Education,
	}
}

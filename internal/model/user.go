package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a system user
type User struct {
	Base
	Email               string     `json:"email" db:"email"`
	Name                string     `json:"name" db:"name"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	Role                Role       `json:"role" db:"role"`
	HospitalName        *string    `json:"hospital_name,omitempty" db:"hospital_name"`
	InsurerName         *string    `json:"insurer_name,omitempty" db:"insurer_name"`
	IsActive            bool       `json:"is_active" db:"is_active"`
	FailedLoginAttempts int        `json:"-" db:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"-" db:"locked_until"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// Locked reports whether the account is still in its lockout window.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role Role
	Pagination
}

// UserCounts aggregates users per role for analytics.
type UserCounts struct {
	Role  Role  `db:"role"`
	Count int64 `db:"count"`
}

// ActorRef is the minimal identity attached to lifecycle operations.
type ActorRef struct {
	ID   uuid.UUID
	Role Role
}

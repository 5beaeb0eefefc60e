package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleVolunteer, RoleAdmin:
		return true
	}
	return false
}

var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

func ValidBloodGroup(g string) bool {
	for _, v := range BloodGroups {
		if g == v {
			return true
		}
	}
	return false
}

type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserBlocked UserStatus = "blocked"
)

func (s UserStatus) Valid() bool { return s == UserActive || s == UserBlocked }

type User struct {
	Email      string     `gorm:"primaryKey;size:191" json:"email"`
	Name       string     `gorm:"size:64" json:"name"`
	PhotoURL   string     `gorm:"size:512" json:"photoURL"`
	BloodGroup string     `gorm:"size:8;index" json:"bloodGroup"`
	District   string     `gorm:"size:64;index" json:"district"`
	Upazila    string     `gorm:"size:64" json:"upazila"`
	Role       Role       `gorm:"size:16;not null;default:donor" json:"role"`
	Status     UserStatus `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// UserFilter fields are exact matches; empty fields are not applied.
type UserFilter struct {
	BloodGroup string
	District   string
	Upazila    string
	Role       Role
	Status     UserStatus
}

type UserRepository interface {
	// CreateIfAbsent reports false when a user with the same email already exists.
	CreateIfAbsent(ctx context.Context, u *User) (bool, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, f UserFilter) ([]User, error)
	Count(ctx context.Context, f UserFilter) (int64, error)
	UpdateFields(ctx context.Context, email string, fields map[string]any) (int64, error)
}

package model

import (
	"time"

	"github.com/google/uuid"

	"audio-commerce/internal/domain"
)

type Role string

const (
	RoleListener Role = "listener"
	RoleCreator  Role = "creator"
	RoleAdmin    Role = "admin"
)

// User is the platform account. Role and IsActive are mutated only by admin
// actions; this core reads them when resolving entitlement.
type User struct {
	ID           string
	Role         Role
	IsActive     bool
	RegisteredAt time.Time
}

func NewUser(id string, role Role) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	switch role {
	case RoleListener, RoleCreator, RoleAdmin:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Role:         role,
		IsActive:     true,
		RegisteredAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

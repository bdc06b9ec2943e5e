package users

import (
	"time"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits credentials and pending codes.
type UserDTO struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              enums.Role `json:"role"`
	IsAccountVerified bool       `json:"is_account_verified"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Role         enums.Role
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		IsAccountVerified: u.IsAccountVerified,
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.RoleCashier
	}
	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         role,
	}
}

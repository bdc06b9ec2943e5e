package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/pos-backend/internal/users"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/security"
	"gorm.io/gorm"
)

// Register creates a cashier account and signs it in. The configured bootstrap
// admin email is registered with the admin role instead.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	role := enums.RoleCashier
	if s.adminEmail != "" && email == s.adminEmail {
		role = enums.RoleAdmin
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		return nil, db.MapError(err, "db: create user")
	}
	return s.issue(ctx, user, s.now().UTC())
}

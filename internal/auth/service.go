package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pos-backend/internal/users"
	pkgAuth "github.com/angelmondragon/pos-backend/pkg/auth"
	"github.com/angelmondragon/pos-backend/pkg/auth/session"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/mailer"
	"github.com/angelmondragon/pos-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	otpDigits                 = 6
	otpTTL                    = 10 * time.Minute
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, accessID string) error
	SendVerifyOTP(ctx context.Context, userID uuid.UUID) error
	VerifyEmail(ctx context.Context, userID uuid.UUID, otp string) error
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	EnsureAdmin(ctx context.Context, email string) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetVerifyOTP(ctx context.Context, id uuid.UUID, otp string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	PromoteToAdmin(ctx context.Context, email string) (int64, error)
}

type sessionManager interface {
	Create(ctx context.Context, accessID string, userID uuid.UUID) error
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Mailer         mailer.Sender
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	AdminEmail     string
}

type service struct {
	users       userRepository
	session     sessionManager
	mail        mailer.Sender
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	adminEmail  string
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		mail:        params.Mailer,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		adminEmail:  normalizeEmail(params.AdminEmail),
		now:         time.Now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, now)
}

// Logout revokes the session behind the presented access token.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, db.MapError(err, "db: get user")
	}
	return users.FromModel(user), nil
}

// EnsureAdmin promotes the configured bootstrap account if it already exists.
func (s *service) EnsureAdmin(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	if _, err := s.users.PromoteToAdmin(ctx, email); err != nil {
		return db.MapError(err, "db: promote admin")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := normalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}

// issue mints an access token and records its session so logout can revoke it.
func (s *service) issue(ctx context.Context, user *models.User, now time.Time) (*AuthResponse, error) {
	accessID := session.NewAccessID()
	token, claims, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if err := s.session.Create(ctx, accessID, user.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}
	return &AuthResponse{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        users.FromModel(user),
	}, nil
}

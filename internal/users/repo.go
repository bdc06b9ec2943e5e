package users

import (
	"context"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// SetVerifyOTP stores a pending verification code.
func (r *Repository) SetVerifyOTP(ctx context.Context, id uuid.UUID, otp string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verify_otp":            otp,
			"verify_otp_expires_at": expiresAt,
		}).Error
}

// MarkVerified flags the account verified and clears the pending code.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_account_verified":   true,
			"verify_otp":            nil,
			"verify_otp_expires_at": nil,
		}).Error
}

// ClearExpiredOTPs drops verification codes that expired before now and
// returns how many were cleared.
func (r *Repository) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("verify_otp IS NOT NULL AND verify_otp_expires_at < ?", now).
		Updates(map[string]any{
			"verify_otp":            nil,
			"verify_otp_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}

// PromoteToAdmin sets the admin role on the account with the given email.
func (r *Repository) PromoteToAdmin(ctx context.Context, email string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? AND role <> ?", email, enums.RoleAdmin).
		UpdateColumn("role", enums.RoleAdmin)
	return res.RowsAffected, res.Error
}

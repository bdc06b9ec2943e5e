package models

import (
	"time"

	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a staff account.
type User struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name               string     `gorm:"column:name;not null"`
	Email              string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash       string     `gorm:"column:password_hash;not null"`
	Role               enums.Role `gorm:"column:role;not null;default:'cashier'"`
	IsAccountVerified  bool       `gorm:"column:is_account_verified;not null;default:false"`
	VerifyOTP          *string    `gorm:"column:verify_otp"`
	VerifyOTPExpiresAt *time.Time `gorm:"column:verify_otp_expires_at"`
	LastLoginAt        *time.Time `gorm:"column:last_login_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

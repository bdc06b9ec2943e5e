package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/pos-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/mailer"
	"github.com/angelmondragon/pos-backend/pkg/security"
	"github.com/google/uuid"
)

// SendVerifyOTP emails a fresh six digit code valid for ten minutes. A new
// code replaces any pending one.
func (s *service) SendVerifyOTP(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return db.MapError(err, "db: get user")
	}
	if user.IsAccountVerified {
		return pkgerrors.New(pkgerrors.CodeValidation, "account already verified")
	}

	otp, err := security.GenerateOTP(otpDigits)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	expiresAt := s.now().UTC().Add(otpTTL)
	if err := s.users.SetVerifyOTP(ctx, user.ID, otp, expiresAt); err != nil {
		return db.MapError(err, "db: store otp")
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: "Your Verification OTP",
		Text:    fmt.Sprintf("Your OTP for account verification is: %s. It is valid for %d minutes.", otp, int(otpTTL.Minutes())),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send otp mail")
	}
	return nil
}

// VerifyEmail marks the account verified when otp matches the pending code
// and has not expired.
func (s *service) VerifyEmail(ctx context.Context, userID uuid.UUID, otp string) error {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "otp is required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return db.MapError(err, "db: get user")
	}
	if user.IsAccountVerified {
		return nil
	}
	if user.VerifyOTP == nil || !security.EqualOTP(*user.VerifyOTP, otp) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid otp")
	}
	if user.VerifyOTPExpiresAt == nil || user.VerifyOTPExpiresAt.Before(s.now().UTC()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "otp expired")
	}
	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return db.MapError(err, "db: mark verified")
	}
	return nil
}

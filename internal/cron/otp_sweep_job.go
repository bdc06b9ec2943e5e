package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/logger"
)

type otpRepository interface {
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

type OTPSweepJobParams struct {
	Logger     *logger.Logger
	Repository otpRepository
}

// NewOTPSweepJob clears verification codes whose expiry has passed.
func NewOTPSweepJob(params OTPSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &otpSweepJob{logg: params.Logger, repo: params.Repository, now: time.Now}, nil
}

type otpSweepJob struct {
	logg *logger.Logger
	repo otpRepository
	now  func() time.Time
}

func (j *otpSweepJob) Name() string { return "otp-sweep" }

func (j *otpSweepJob) Run(ctx context.Context) error {
	cleared, err := j.repo.ClearExpiredOTPs(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("clear expired otps: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_cleared", cleared), "cron.otp_sweep")
	return nil
}

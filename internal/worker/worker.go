package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type OTPService interface {
	ClearExpiredOTP(ctx context.Context) (int64, error)
}

// OTPSweeper is worker clears expired verification codes
type OTPSweeper struct {
	svc      OTPService
	interval time.Duration
	logger   *zap.Logger
}

// NewOTPSweeper create new otp sweeper
func NewOTPSweeper(svc OTPService, interval time.Duration, logger *zap.Logger) *OTPSweeper {
	return &OTPSweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps codes every interval until ctx is done
func (s *OTPSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("otp sweeper is done")
			return
		case <-ticker.C:
			n, err := s.svc.ClearExpiredOTP(ctx)
			if err != nil {
				s.logger.Error("error clear expired otp", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Debug("expired otp cleared", zap.Int64("count", n))
			}
		}
	}
}

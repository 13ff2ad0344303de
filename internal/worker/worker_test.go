package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingService struct {
	calls atomic.Int64
	err   error
}

func (c *countingService) ClearExpiredOTP(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestOTPSweeper_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := &countingService{}
	sweeper := NewOTPSweeper(svc, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.calls.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestOTPSweeper_RunKeepsGoingOnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zap.ErrorLevel)
	svc := &countingService{err: errors.New("db down")}
	sweeper := NewOTPSweeper(svc, 5*time.Millisecond, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, logs.FilterMessage("error clear expired otp").Len(), 2)
}

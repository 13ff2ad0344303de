package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/blob"
	"github.com/rookgm/bundlehub/internal/models"
	"go.uber.org/zap"
)

const (
	otpLength        = 6
	otpTTL           = 10 * time.Minute
	maxPaymentProof  = 10 << 20
	otpExpiryMinutes = int(otpTTL / time.Minute)
)

var paymentProofTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// CreateOrderInput contains checkout form data
type CreateOrderInput struct {
	BundleID uuid.UUID
	Name     string
	Email    string
}

// CheckoutService drives order from creation to uploaded payment proof
type CheckoutService struct {
	orders   OrderRepository
	bundles  BundleRepository
	notifier Notifier
	blobs    BlobStore
	qr       PaymentQR
	logger   *zap.Logger

	now     func() time.Time
	genCode func() (string, error)
}

// NewCheckoutService creates new CheckoutService instance
func NewCheckoutService(orders OrderRepository, bundles BundleRepository, notifier Notifier, blobs BlobStore, qr PaymentQR, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		bundles:  bundles,
		notifier: notifier,
		blobs:    blobs,
		qr:       qr,
		logger:   logger,
		now:      time.Now,
		genCode:  generateOTP,
	}
}

// CreateOrder creates pending order of active bundle and sends verification code
func (cs *CheckoutService) CreateOrder(ctx context.Context, in CreateOrderInput) (uuid.UUID, error) {
	name, err := requireText("name", in.Name, maxNameLen)
	if err != nil {
		return uuid.Nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return uuid.Nil, err
	}

	bundle, err := cs.bundles.GetBundleByID(ctx, in.BundleID)
	if err != nil {
		return uuid.Nil, err
	}
	if !bundle.IsActive {
		return uuid.Nil, models.ErrNotFound
	}

	code, expiresAt, err := cs.newOTP()
	if err != nil {
		return uuid.Nil, err
	}

	order := &models.Order{
		ID:           uuid.New(),
		CustomerName: name,
		Email:        email,
		TotalAmount:  bundle.Price,
		Status:       models.OrderStatusPending,
		OTPCode:      &code,
		OTPExpiresAt: &expiresAt,
		Items: []models.OrderItem{{
			BundleID:  bundle.ID,
			Quantity:  1,
			UnitPrice: bundle.Price,
			Bundle:    bundle.Summary(),
		}},
	}

	if err := cs.orders.CreateOrder(ctx, order); err != nil {
		return uuid.Nil, err
	}

	cs.logger.Info("order created",
		zap.Stringer("order", order.ID),
		zap.Stringer("bundle", bundle.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	if err := cs.notifier.SendOtpEmail(ctx, email, code, name, otpExpiryMinutes); err != nil {
		cs.logger.Error("send otp email", zap.Stringer("order", order.ID), zap.Error(err))
		return order.ID, err
	}

	return order.ID, nil
}

// ResendOtp replaces verification code of unverified order and sends it again
func (cs *CheckoutService) ResendOtp(ctx context.Context, orderID uuid.UUID) error {
	order, err := cs.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.EmailVerified {
		return fmt.Errorf("%w: email already verified", models.ErrConflict)
	}

	code, expiresAt, err := cs.newOTP()
	if err != nil {
		return err
	}

	if err := cs.orders.UpdateOTP(ctx, orderID, code, expiresAt); err != nil {
		return err
	}

	if err := cs.notifier.SendOtpEmail(ctx, order.Email, code, order.CustomerName, otpExpiryMinutes); err != nil {
		cs.logger.Error("resend otp email", zap.Stringer("order", orderID), zap.Error(err))
		return err
	}

	cs.logger.Debug("otp reissued", zap.Stringer("order", orderID))

	return nil
}

// VerifyEmail checks verification code and returns payment QR reference.
// Wrong, missing and expired codes yield the same error.
func (cs *CheckoutService) VerifyEmail(ctx context.Context, orderID uuid.UUID, code string) (string, error) {
	order, err := cs.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	now := cs.now()
	if !otpValid(order, code, now) {
		return "", models.ErrInvalidOrExpiredOTP
	}

	if err := cs.orders.MarkEmailVerified(ctx, orderID, code, now); err != nil {
		return "", err
	}

	cs.logger.Info("order email verified", zap.Stringer("order", orderID))

	return cs.qr.Reference(), nil
}

// UploadPaymentProof stores payment screenshot of verified order
func (cs *CheckoutService) UploadPaymentProof(ctx context.Context, orderID uuid.UUID, data []byte, filename string) error {
	order, err := cs.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.EmailVerified {
		return models.ErrEmailNotVerified
	}
	if !order.Status.CanTransitionTo(models.OrderStatusPaymentUploaded) {
		return models.ErrInvalidState
	}

	if err := validatePaymentProof(data); err != nil {
		return err
	}

	url, err := cs.blobs.Store(ctx, data, blob.CategoryPayments, orderID.String())
	if err != nil {
		return fmt.Errorf("store payment proof: %w", err)
	}

	if err := cs.orders.SetPaymentProof(ctx, orderID, url); err != nil {
		cs.discardBlob(ctx, url)
		return err
	}

	cs.logger.Info("payment proof uploaded",
		zap.Stringer("order", orderID),
		zap.String("url", url),
		zap.String("filename", filename))

	return nil
}

// discardBlob removes object that was stored but never referenced by an order
func (cs *CheckoutService) discardBlob(ctx context.Context, url string) {
	if err := cs.blobs.Delete(context.WithoutCancel(ctx), url); err != nil {
		cs.logger.Warn("orphaned payment proof", zap.String("url", url), zap.Error(err))
	}
}

// GetOrder returns order for customer status page
func (cs *CheckoutService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return cs.orders.GetOrderByID(ctx, orderID)
}

// ClearExpiredOTP removes expired verification codes
func (cs *CheckoutService) ClearExpiredOTP(ctx context.Context) (int64, error) {
	return cs.orders.ClearExpiredOTP(ctx, cs.now())
}

func (cs *CheckoutService) newOTP() (string, time.Time, error) {
	code, err := cs.genCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	return code, cs.now().Add(otpTTL), nil
}

// otpValid reports whether stored code exists, equals submitted one and is not expired
func otpValid(order *models.Order, code string, now time.Time) bool {
	if order.OTPCode == nil || order.OTPExpiresAt == nil {
		return false
	}
	match := subtle.ConstantTimeCompare([]byte(*order.OTPCode), []byte(code)) == 1
	return match && order.OTPExpiresAt.After(now)
}

func validatePaymentProof(data []byte) error {
	if len(data) == 0 {
		return models.NewValidationError("screenshot", "is required")
	}
	if len(data) > maxPaymentProof {
		return models.NewValidationError("screenshot", "must not exceed 10 MiB")
	}

	mtype := mimetype.Detect(data)
	for _, t := range paymentProofTypes {
		if mtype.Is(t) {
			return nil
		}
	}

	return models.NewValidationError("screenshot", fmt.Sprintf("unsupported file type %s", mtype.String()))
}

// generateOTP returns random numeric code
func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", otpLength, n), nil
}

// isNotification reports whether err came from email delivery
func isNotification(err error) bool {
	return errors.Is(err, models.ErrNotification)
}

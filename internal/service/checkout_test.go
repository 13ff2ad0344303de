package service

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/service/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testQR = "data:image/png;base64,QR"

var (
	jpegProof = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0}, 64)...)
	pdfProof  = []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n")
)

type checkoutFixture struct {
	svc      *CheckoutService
	orders   *memOrders
	notifier *recordNotifier
	bundles  *mocks.MockBundleRepository
	clock    time.Time
	bundle   *models.Bundle
}

func newCheckoutFixture(t *testing.T, codes ...string) *checkoutFixture {
	ctrl := gomock.NewController(t)

	f := &checkoutFixture{
		orders:   newMemOrders(),
		notifier: &recordNotifier{},
		bundles:  mocks.NewMockBundleRepository(ctrl),
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		bundle: &models.Bundle{
			ID:       uuid.New(),
			Name:     "B1",
			Slug:     "b1",
			Price:    decimal.NewFromInt(500),
			IsActive: true,
		},
	}
	f.bundles.EXPECT().GetBundleByID(gomock.Any(), f.bundle.ID).Return(f.bundle, nil).AnyTimes()

	f.svc = NewCheckoutService(f.orders, f.bundles, f.notifier, memBlobs{}, staticQR(testQR), zap.NewNop())
	f.svc.now = func() time.Time { return f.clock }
	if len(codes) == 0 {
		codes = []string{"123456"}
	}
	f.svc.genCode = codeSeq(codes...)

	return f
}

func (f *checkoutFixture) create(t *testing.T) uuid.UUID {
	id, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		BundleID: f.bundle.ID,
		Name:     "Alice",
		Email:    "a@x.com",
	})
	require.NoError(t, err)
	return id
}

func (f *checkoutFixture) order(t *testing.T, id uuid.UUID) *models.Order {
	o, err := f.orders.GetOrderByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func TestCheckoutService_CreateOrder(t *testing.T) {
	f := newCheckoutFixture(t)

	id := f.create(t)

	o := f.order(t, id)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.True(t, decimal.NewFromInt(500).Equal(o.TotalAmount))
	assert.False(t, o.EmailVerified)
	require.Len(t, o.Items, 1)
	assert.Equal(t, f.bundle.ID, o.Items[0].BundleID)
	assert.Equal(t, 1, o.Items[0].Quantity)
	require.NotNil(t, o.OTPExpiresAt)
	assert.Equal(t, f.clock.Add(10*time.Minute), *o.OTPExpiresAt)

	otps := f.notifier.byKind("otp")
	require.Len(t, otps, 1)
	assert.Equal(t, "a@x.com", otps[0].to)
	assert.Equal(t, "123456", otps[0].code)
}

func TestCheckoutService_CreateOrderAllowsDuplicates(t *testing.T) {
	f := newCheckoutFixture(t)

	first := f.create(t)
	second := f.create(t)

	assert.NotEqual(t, first, second)
	assert.Len(t, f.notifier.byKind("otp"), 2)
}

func TestCheckoutService_CreateOrderErrors(t *testing.T) {
	inactive := &models.Bundle{ID: uuid.New(), Price: decimal.NewFromInt(10), IsActive: false}
	missing := uuid.New()

	tests := []struct {
		name    string
		input   CreateOrderInput
		wantErr error
	}{
		{
			name:    "inactive_bundle",
			input:   CreateOrderInput{BundleID: inactive.ID, Name: "Alice", Email: "a@x.com"},
			wantErr: models.ErrNotFound,
		},
		{
			name:    "missing_bundle",
			input:   CreateOrderInput{BundleID: missing, Name: "Alice", Email: "a@x.com"},
			wantErr: models.ErrNotFound,
		},
		{
			name:    "empty_name",
			input:   CreateOrderInput{BundleID: missing, Name: "  ", Email: "a@x.com"},
			wantErr: models.ErrValidation,
		},
		{
			name:    "bad_email",
			input:   CreateOrderInput{BundleID: missing, Name: "Alice", Email: "not-an-email"},
			wantErr: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			bundles := mocks.NewMockBundleRepository(ctrl)
			bundles.EXPECT().GetBundleByID(gomock.Any(), inactive.ID).Return(inactive, nil).AnyTimes()
			bundles.EXPECT().GetBundleByID(gomock.Any(), missing).Return(nil, models.ErrNotFound).AnyTimes()

			orders := mocks.NewMockOrderRepository(ctrl)
			orders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Times(0)
			notifier := mocks.NewMockNotifier(ctrl)
			notifier.EXPECT().SendOtpEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			svc := NewCheckoutService(orders, bundles, notifier, memBlobs{}, staticQR(testQR), zap.NewNop())
			_, err := svc.CreateOrder(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckoutService_CreateOrderNotificationFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	f.notifier.err = models.ErrNotification

	id, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{BundleID: f.bundle.ID, Name: "Alice", Email: "a@x.com"})

	assert.ErrorIs(t, err, models.ErrNotification)
	// order stays committed so the customer can ask for another code
	assert.Equal(t, models.OrderStatusPending, f.order(t, id).Status)
}

func TestCheckoutService_VerifyEmail(t *testing.T) {
	f := newCheckoutFixture(t)
	id := f.create(t)

	qr, err := f.svc.VerifyEmail(context.Background(), id, "123456")
	require.NoError(t, err)
	assert.Equal(t, testQR, qr)

	o := f.order(t, id)
	assert.Equal(t, models.OrderStatusEmailVerified, o.Status)
	assert.True(t, o.EmailVerified)
	assert.Nil(t, o.OTPCode)
	assert.Nil(t, o.OTPExpiresAt)
}

func TestCheckoutService_VerifyEmailWrongCode(t *testing.T) {
	f := newCheckoutFixture(t)
	id := f.create(t)

	_, err := f.svc.VerifyEmail(context.Background(), id, "000000")

	assert.ErrorIs(t, err, models.ErrInvalidOrExpiredOTP)
	o := f.order(t, id)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.False(t, o.EmailVerified)
}

func TestCheckoutService_VerifyEmailExpiredAndWrongFailIdentically(t *testing.T) {
	f := newCheckoutFixture(t)
	id := f.create(t)

	_, errWrong := f.svc.VerifyEmail(context.Background(), id, "000000")

	// expiry instant itself is already expired
	f.clock = f.clock.Add(10 * time.Minute)
	_, errExpired := f.svc.VerifyEmail(context.Background(), id, "123456")

	require.Error(t, errWrong)
	assert.Equal(t, errWrong, errExpired)
	assert.Equal(t, errWrong.Error(), errExpired.Error())
	assert.Equal(t, models.OrderStatusPending, f.order(t, id).Status)
}

func TestCheckoutService_VerifyEmailCodeCannotBeReplayed(t *testing.T) {
	f := newCheckoutFixture(t)
	id := f.create(t)

	_, err := f.svc.VerifyEmail(context.Background(), id, "123456")
	require.NoError(t, err)

	_, err = f.svc.VerifyEmail(context.Background(), id, "123456")
	assert.ErrorIs(t, err, models.ErrInvalidOrExpiredOTP)
	assert.Equal(t, models.OrderStatusEmailVerified, f.order(t, id).Status)
}

func TestCheckoutService_VerifyEmailNotFound(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.VerifyEmail(context.Background(), uuid.New(), "123456")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCheckoutService_VerifyEmailLostRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := uuid.New()
	code := "123456"
	expires := time.Now().Add(time.Minute)

	orders := mocks.NewMockOrderRepository(ctrl)
	orders.EXPECT().GetOrderByID(gomock.Any(), id).Return(&models.Order{
		ID: id, Status: models.OrderStatusPending, OTPCode: &code, OTPExpiresAt: &expires,
	}, nil)
	// concurrent verification or resend changed the row in between
	orders.EXPECT().MarkEmailVerified(gomock.Any(), id, code, gomock.Any()).Return(models.ErrInvalidOrExpiredOTP)

	svc := NewCheckoutService(orders, mocks.NewMockBundleRepository(ctrl), mocks.NewMockNotifier(ctrl), memBlobs{}, staticQR(testQR), zap.NewNop())

	_, err := svc.VerifyEmail(context.Background(), id, code)
	assert.ErrorIs(t, err, models.ErrInvalidOrExpiredOTP)
}

func TestCheckoutService_ResendOtpInvalidatesPreviousCode(t *testing.T) {
	f := newCheckoutFixture(t, "111111", "222222", "333333")
	id := f.create(t)

	require.NoError(t, f.svc.ResendOtp(context.Background(), id))
	require.NoError(t, f.svc.ResendOtp(context.Background(), id))

	otps := f.notifier.byKind("otp")
	require.Len(t, otps, 3)
	assert.Equal(t, "333333", otps[2].code)

	for _, stale := range []string{"111111", "222222"} {
		_, err := f.svc.VerifyEmail(context.Background(), id, stale)
		assert.ErrorIs(t, err, models.ErrInvalidOrExpiredOTP)
	}

	_, err := f.svc.VerifyEmail(context.Background(), id, "333333")
	assert.NoError(t, err)
}

func TestCheckoutService_ResendOtpExtendsExpiry(t *testing.T) {
	f := newCheckoutFixture(t, "111111", "222222")
	id := f.create(t)

	f.clock = f.clock.Add(9 * time.Minute)
	require.NoError(t, f.svc.ResendOtp(context.Background(), id))

	f.clock = f.clock.Add(5 * time.Minute)
	_, err := f.svc.VerifyEmail(context.Background(), id, "222222")
	assert.NoError(t, err)
}

func TestCheckoutService_ResendOtpErrors(t *testing.T) {
	f := newCheckoutFixture(t)
	id := f.create(t)

	err := f.svc.ResendOtp(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.VerifyEmail(context.Background(), id, "123456")
	require.NoError(t, err)

	err = f.svc.ResendOtp(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Len(t, f.notifier.byKind("otp"), 1)
}

func TestCheckoutService_UploadPaymentProof(t *testing.T) {
	f := newCheckoutFixture(t)
	id := f.create(t)
	_, err := f.svc.VerifyEmail(context.Background(), id, "123456")
	require.NoError(t, err)

	err = f.svc.UploadPaymentProof(context.Background(), id, jpegProof, "proof.jpg")
	require.NoError(t, err)

	o := f.order(t, id)
	assert.Equal(t, models.OrderStatusPaymentUploaded, o.Status)
	require.NotNil(t, o.PaymentProofURL)
	assert.Equal(t, "/files/payments/"+id.String()+"/proof.jpg", *o.PaymentProofURL)
	// customer waits for admin, no email
	assert.Empty(t, f.notifier.byKind("rejection"))
	assert.Empty(t, f.notifier.byKind("delivery"))
}

func TestCheckoutService_UploadPaymentProofErrors(t *testing.T) {
	tests := []struct {
		name    string
		verify  bool
		data    []byte
		orderID func(created uuid.UUID) uuid.UUID
		wantErr error
	}{
		{
			name:    "not_found",
			verify:  true,
			data:    jpegProof,
			orderID: func(uuid.UUID) uuid.UUID { return uuid.New() },
			wantErr: models.ErrNotFound,
		},
		{
			name:    "email_not_verified",
			data:    jpegProof,
			wantErr: models.ErrEmailNotVerified,
		},
		{
			name:    "not_an_image",
			verify:  true,
			data:    pdfProof,
			wantErr: models.ErrValidation,
		},
		{
			name:    "empty",
			verify:  true,
			data:    nil,
			wantErr: models.ErrValidation,
		},
		{
			name:    "too_large",
			verify:  true,
			data:    append(append([]byte{}, jpegProof...), make([]byte, 10<<20)...),
			wantErr: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			id := f.create(t)
			if tt.verify {
				_, err := f.svc.VerifyEmail(context.Background(), id, "123456")
				require.NoError(t, err)
			}
			target := id
			if tt.orderID != nil {
				target = tt.orderID(id)
			}

			err := f.svc.UploadPaymentProof(context.Background(), target, tt.data, "proof.jpg")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, f.order(t, id).PaymentProofURL)
		})
	}
}

func TestCheckoutService_UploadPaymentProofBlobFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := uuid.New()

	orders := mocks.NewMockOrderRepository(ctrl)
	orders.EXPECT().GetOrderByID(gomock.Any(), id).Return(&models.Order{ID: id, Status: models.OrderStatusEmailVerified, EmailVerified: true}, nil)
	orders.EXPECT().SetPaymentProof(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	blobs := mocks.NewMockBlobStore(ctrl)
	blobs.EXPECT().Store(gomock.Any(), jpegProof, "payments", id.String()).Return("", errors.New("disk full"))

	svc := NewCheckoutService(orders, mocks.NewMockBundleRepository(ctrl), mocks.NewMockNotifier(ctrl), blobs, staticQR(testQR), zap.NewNop())

	err := svc.UploadPaymentProof(context.Background(), id, jpegProof, "proof.jpg")
	assert.ErrorContains(t, err, "disk full")
}

func TestCheckoutService_UploadPaymentProofDecidedMeanwhile(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := uuid.New()
	url := "/files/payments/" + id.String() + "/proof.jpg"

	orders := mocks.NewMockOrderRepository(ctrl)
	orders.EXPECT().GetOrderByID(gomock.Any(), id).Return(&models.Order{ID: id, Status: models.OrderStatusEmailVerified, EmailVerified: true}, nil)
	orders.EXPECT().SetPaymentProof(gomock.Any(), id, url).Return(models.ErrInvalidState)

	blobs := mocks.NewMockBlobStore(ctrl)
	gomock.InOrder(
		blobs.EXPECT().Store(gomock.Any(), jpegProof, "payments", id.String()).Return(url, nil),
		blobs.EXPECT().Delete(gomock.Any(), url).Return(nil),
	)

	svc := NewCheckoutService(orders, mocks.NewMockBundleRepository(ctrl), mocks.NewMockNotifier(ctrl), blobs, staticQR(testQR), zap.NewNop())

	err := svc.UploadPaymentProof(context.Background(), id, jpegProof, "proof.jpg")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCheckoutService_StatusNeverMovesBackward(t *testing.T) {
	f := newCheckoutFixture(t, "123456", "654321")
	id := f.create(t)

	_, err := f.svc.VerifyEmail(context.Background(), id, "123456")
	require.NoError(t, err)
	require.NoError(t, f.svc.UploadPaymentProof(context.Background(), id, jpegProof, "proof.jpg"))

	assert.ErrorIs(t, f.svc.ResendOtp(context.Background(), id), models.ErrConflict)
	_, err = f.svc.VerifyEmail(context.Background(), id, "654321")
	assert.ErrorIs(t, err, models.ErrInvalidOrExpiredOTP)

	assert.Equal(t, models.OrderStatusPaymentUploaded, f.order(t, id).Status)
}

func TestCheckoutService_UploadAfterDecisionIsInvalidState(t *testing.T) {
	f := newCheckoutFixture(t)
	id := f.create(t)
	_, err := f.svc.VerifyEmail(context.Background(), id, "123456")
	require.NoError(t, err)
	require.NoError(t, f.svc.UploadPaymentProof(context.Background(), id, jpegProof, "proof.jpg"))

	reason := "payment mismatch"
	require.NoError(t, f.orders.UpdateDecision(context.Background(), id, models.OrderStatusRejected, &reason))

	err = f.svc.UploadPaymentProof(context.Background(), id, jpegProof, "proof.jpg")
	assert.ErrorIs(t, err, models.ErrInvalidState)
	assert.Equal(t, models.OrderStatusRejected, f.order(t, id).Status)
}

func TestCheckoutService_ClearExpiredOTP(t *testing.T) {
	f := newCheckoutFixture(t)
	id := f.create(t)

	n, err := f.svc.ClearExpiredOTP(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock = f.clock.Add(time.Hour)
	n, err = f.svc.ClearExpiredOTP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	o := f.order(t, id)
	assert.Nil(t, o.OTPCode)
	assert.Equal(t, models.OrderStatusPending, o.Status)
}

func TestGenerateOTP(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 100; i++ {
		code, err := generateOTP()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestOTPValid(t *testing.T) {
	now := time.Now()
	code := "123456"
	future := now.Add(time.Second)

	assert.True(t, otpValid(&models.Order{OTPCode: &code, OTPExpiresAt: &future}, "123456", now))
	assert.False(t, otpValid(&models.Order{OTPCode: &code, OTPExpiresAt: &future}, " 123456", now))
	assert.False(t, otpValid(&models.Order{OTPCode: &code, OTPExpiresAt: &now}, "123456", now))
	assert.False(t, otpValid(&models.Order{}, "", now))
}

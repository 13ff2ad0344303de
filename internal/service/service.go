// Package service implements storefront business rules on top of repositories.
package service

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/rookgm/bundlehub/internal/service OrderRepository,BundleRepository,AdminRepository,StorefrontRepository,Notifier,BlobStore,PaymentQR,TokenService,Pinger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
)

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts order with its items
	CreateOrder(ctx context.Context, order *models.Order) error
	// GetOrderByID returns order with items
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// ListOrders returns page of orders and total number of matching orders
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error)
	// UpdateOTP replaces verification code of unverified order
	UpdateOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	// MarkEmailVerified verifies email and clears code
	MarkEmailVerified(ctx context.Context, id uuid.UUID, code string, now time.Time) error
	// SetPaymentProof records payment screenshot URL
	SetPaymentProof(ctx context.Context, id uuid.UUID, url string) error
	// UpdateDecision moves order with uploaded payment to terminal status
	UpdateDecision(ctx context.Context, id uuid.UUID, status models.OrderStatus, note *string) error
	// ClearExpiredOTP removes expired codes of unverified orders
	ClearExpiredOTP(ctx context.Context, now time.Time) (int64, error)
}

// BundleRepository is interface for interacting with bundle-related data
type BundleRepository interface {
	CreateBundle(ctx context.Context, bundle *models.Bundle) (*models.Bundle, error)
	GetBundleByID(ctx context.Context, id uuid.UUID) (*models.Bundle, error)
	GetBundleBySlug(ctx context.Context, slug string) (*models.Bundle, error)
	ListBundles(ctx context.Context, activeOnly bool) ([]models.Bundle, error)
	SetBundleActive(ctx context.Context, id uuid.UUID, active bool) error
	SetBundleDownloadURL(ctx context.Context, id uuid.UUID, url string) error
}

// AdminRepository is interface for interacting with admin accounts
type AdminRepository interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	UpsertAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error)
}

// StorefrontRepository is interface for newsletter, contact and review data
type StorefrontRepository interface {
	GetSubscriberByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	CreateSubscriber(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	SetSubscriberActive(ctx context.Context, email string, active bool) error
	CreateContactMessage(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error)
	CreateReview(ctx context.Context, review *models.Review) (*models.Review, error)
	ListReviewsByBundle(ctx context.Context, bundleID uuid.UUID) ([]models.Review, error)
}

// Notifier sends transactional emails
type Notifier interface {
	SendOtpEmail(ctx context.Context, to, code, name string, expiryMinutes int) error
	SendRejectionEmail(ctx context.Context, to, name, reason string, orderID uuid.UUID) error
	SendDeliveryEmail(ctx context.Context, order *models.Order) error
	SendContactMessage(ctx context.Context, msg *models.ContactMessage) error
}

// BlobStore stores binary objects and returns retrievable URL
type BlobStore interface {
	Store(ctx context.Context, data []byte, category, ownerID string) (string, error)
	Delete(ctx context.Context, url string) error
}

// PaymentQR is merchant payment QR
type PaymentQR interface {
	Reference() string
}

// TokenService creates and verifies admin tokens
type TokenService interface {
	CreateToken(admin *models.Admin) (string, error)
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}

// Pinger checks storage availability
type Pinger interface {
	Ping(ctx context.Context) error
}

// requireAdmin checks administrative privilege of caller
func requireAdmin(p *models.TokenPayload) error {
	if !p.IsAdmin() {
		return models.ErrForbidden
	}
	return nil
}

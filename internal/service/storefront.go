package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rookgm/bundlehub/internal/models"
	"go.uber.org/zap"
)

// ContactInput contains contact form data
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ReviewInput contains review form data
type ReviewInput struct {
	Name    string
	Rating  int
	Comment string
}

// StorefrontService implements newsletter, contact form and reviews
type StorefrontService struct {
	repo     StorefrontRepository
	catalog  *CatalogueService
	notifier Notifier
	logger   *zap.Logger
}

// NewStorefrontService creates new StorefrontService instance
func NewStorefrontService(repo StorefrontRepository, catalog *CatalogueService, notifier Notifier, logger *zap.Logger) *StorefrontService {
	return &StorefrontService{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		logger:   logger,
	}
}

// Subscribe adds email to newsletter or reactivates cancelled subscription
func (ss *StorefrontService) Subscribe(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	sub, err := ss.repo.GetSubscriberByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		_, err = ss.repo.CreateSubscriber(ctx, email)
		return err
	case err != nil:
		return err
	case sub.IsActive:
		return fmt.Errorf("%w: already subscribed", models.ErrConflict)
	}

	return ss.repo.SetSubscriberActive(ctx, email, true)
}

// Unsubscribe cancels active subscription
func (ss *StorefrontService) Unsubscribe(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	sub, err := ss.repo.GetSubscriberByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !sub.IsActive {
		return models.ErrNotFound
	}

	return ss.repo.SetSubscriberActive(ctx, email, false)
}

// SubmitContact stores contact message and forwards it to shop inbox
func (ss *StorefrontService) SubmitContact(ctx context.Context, in ContactInput) error {
	msg := &models.ContactMessage{}

	var err error
	if msg.Name, err = requireText("name", in.Name, maxNameLen); err != nil {
		return err
	}
	if msg.Email, err = normalizeEmail(in.Email); err != nil {
		return err
	}
	if msg.Subject, err = requireText("subject", in.Subject, maxSubjectLen); err != nil {
		return err
	}
	if msg.Message, err = requireText("message", in.Message, maxTextLen); err != nil {
		return err
	}

	msg, err = ss.repo.CreateContactMessage(ctx, msg)
	if err != nil {
		return err
	}

	if err := ss.notifier.SendContactMessage(ctx, msg); err != nil {
		// message is stored, inbox copy is best effort
		ss.logger.Error("forward contact message", zap.Uint64("message", msg.ID), zap.Error(err))
	}

	return nil
}

// CreateReview adds review to active bundle
func (ss *StorefrontService) CreateReview(ctx context.Context, slug string, in ReviewInput) (*models.Review, error) {
	name, err := requireText("name", in.Name, maxNameLen)
	if err != nil {
		return nil, err
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, models.NewValidationError("rating", "must be between 1 and 5")
	}
	if len(in.Comment) > maxTextLen {
		return nil, models.NewValidationError("comment", "is too long")
	}

	bundle, err := ss.catalog.GetActiveBundle(ctx, slug)
	if err != nil {
		return nil, err
	}

	return ss.repo.CreateReview(ctx, &models.Review{
		BundleID: bundle.ID,
		Name:     name,
		Rating:   in.Rating,
		Comment:  in.Comment,
	})
}

// ListReviews returns reviews of active bundle
func (ss *StorefrontService) ListReviews(ctx context.Context, slug string) ([]models.Review, error) {
	bundle, err := ss.catalog.GetActiveBundle(ctx, slug)
	if err != nil {
		return nil, err
	}
	return ss.repo.ListReviewsByBundle(ctx, bundle.ID)
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/repository/postgres"
)

const (
	selectSubscriberByEmailQuery = `
						SELECT id, email, is_active, subscribed_at, unsubscribed_at FROM newsletter_subscribers
						WHERE email = $1
`
	insertSubscriberQuery = `
						INSERT INTO newsletter_subscribers (email)
						VALUES ($1)
						RETURNING id, email, is_active, subscribed_at, unsubscribed_at
`
	updateSubscriberActiveQuery = `
						UPDATE newsletter_subscribers
						SET is_active = $2,
						    subscribed_at = CASE WHEN $2 THEN now() ELSE subscribed_at END,
						    unsubscribed_at = CASE WHEN $2 THEN NULL ELSE now() END
						WHERE email = $1
`
	insertContactMessageQuery = `
						INSERT INTO contact_messages (name, email, subject, message)
						VALUES ($1, $2, $3, $4)
						RETURNING id, created_at
`
	insertReviewQuery = `
						INSERT INTO reviews (bundle_id, name, rating, comment)
						VALUES ($1, $2, $3, $4)
						RETURNING id, created_at
`
	selectReviewsByBundleQuery = `
						SELECT id, bundle_id, name, rating, comment, created_at FROM reviews
						WHERE bundle_id = $1
						ORDER BY created_at DESC
`
)

// StorefrontRepository stores newsletter subscriptions, contact messages and reviews
type StorefrontRepository struct {
	db *postgres.DB
}

// NewStorefrontRepository creates new StorefrontRepository instance
func NewStorefrontRepository(db *postgres.DB) *StorefrontRepository {
	return &StorefrontRepository{db: db}
}

// GetSubscriberByEmail returns newsletter subscriber
func (sr *StorefrontRepository) GetSubscriberByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	sub := models.NewsletterSubscriber{}

	err := sr.db.Read(ctx, func(ctx context.Context) error {
		return sr.db.QueryRow(ctx, selectSubscriberByEmailQuery, email).Scan(&sub.ID, &sub.Email, &sub.IsActive, &sub.SubscribedAt, &sub.UnsubscribedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return &sub, nil
}

// CreateSubscriber inserts active subscription
func (sr *StorefrontRepository) CreateSubscriber(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	sub := models.NewsletterSubscriber{}

	err := sr.db.QueryRow(ctx, insertSubscriberQuery, email).Scan(&sub.ID, &sub.Email, &sub.IsActive, &sub.SubscribedAt, &sub.UnsubscribedAt)
	if err != nil {
		if sr.db.ErrorCode(err) == pgErrUniqueViolationCode {
			return nil, models.ErrConflict
		}
		return nil, postgres.Classify(err)
	}

	return &sub, nil
}

// SetSubscriberActive activates or deactivates subscription
func (sr *StorefrontRepository) SetSubscriberActive(ctx context.Context, email string, active bool) error {
	cmd, err := sr.db.Exec(ctx, updateSubscriberActiveQuery, email, active)
	if err != nil {
		return postgres.Classify(err)
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CreateContactMessage stores contact form message
func (sr *StorefrontRepository) CreateContactMessage(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error) {
	err := sr.db.QueryRow(ctx, insertContactMessageQuery, msg.Name, msg.Email, msg.Subject, msg.Message).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, postgres.Classify(err)
	}

	return msg, nil
}

// CreateReview stores bundle review
func (sr *StorefrontRepository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	err := sr.db.QueryRow(ctx, insertReviewQuery, review.BundleID, review.Name, review.Rating, review.Comment).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		if sr.db.ErrorCode(err) == pgErrForeignKeyViolationCode {
			return nil, models.ErrNotFound
		}
		return nil, postgres.Classify(err)
	}

	return review, nil
}

// ListReviewsByBundle returns bundle reviews newest first
func (sr *StorefrontRepository) ListReviewsByBundle(ctx context.Context, bundleID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review

	err := sr.db.Read(ctx, func(ctx context.Context) error {
		rows, err := sr.db.Query(ctx, selectReviewsByBundleQuery, bundleID)
		if err != nil {
			return err
		}
		defer rows.Close()

		reviews = []models.Review{}
		for rows.Next() {
			r := models.Review{}
			if err := rows.Scan(&r.ID, &r.BundleID, &r.Name, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
				return err
			}
			reviews = append(reviews, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return reviews, nil
}

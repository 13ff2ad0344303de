package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/repository/postgres"
)

const (
	insertOrderQuery = `
						INSERT INTO orders (id, customer_name, email, total_amount, status, email_verified, otp_code, otp_expires_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
						RETURNING created_at, updated_at
`
	insertOrderItemQuery = `
						INSERT INTO order_items (order_id, bundle_id, quantity, unit_price)
						VALUES ($1, $2, $3, $4)
						RETURNING id
`
	orderColumns = `id, customer_name, email, total_amount, status, email_verified, otp_code, otp_expires_at,
						payment_proof_url, admin_notes, created_at, updated_at`

	selectOrderByIDQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE id = $1
`
	selectOrdersPageQuery = `
						SELECT ` + orderColumns + ` FROM orders
						WHERE ($1::text IS NULL OR status = $1)
						ORDER BY created_at DESC, id
						LIMIT $2 OFFSET $3
`
	countOrdersQuery = `
						SELECT count(*) FROM orders
						WHERE ($1::text IS NULL OR status = $1)
`
	selectOrderItemsQuery = `
						SELECT oi.id, oi.order_id, oi.bundle_id, oi.quantity, oi.unit_price, b.name, b.slug, b.download_url
						FROM order_items oi
						JOIN bundles b ON b.id = oi.bundle_id
						WHERE oi.order_id = ANY($1::uuid[])
						ORDER BY oi.id
`
	updateOTPQuery = `
						UPDATE orders
						SET otp_code = $2, otp_expires_at = $3, updated_at = now()
						WHERE id = $1 AND email_verified = FALSE AND status = 'PENDING'
`
	verifyEmailQuery = `
						UPDATE orders
						SET email_verified = TRUE, status = 'EMAIL_VERIFIED', otp_code = NULL, otp_expires_at = NULL, updated_at = now()
						WHERE id = $1 AND status = 'PENDING' AND otp_code = $2 AND otp_expires_at > $3
`
	updatePaymentProofQuery = `
						UPDATE orders
						SET payment_proof_url = $2, status = 'PAYMENT_UPLOADED', updated_at = now()
						WHERE id = $1 AND email_verified = TRUE AND status IN ('EMAIL_VERIFIED', 'PAYMENT_UPLOADED')
`
	updateDecisionQuery = `
						UPDATE orders
						SET status = $2, admin_notes = COALESCE($3, admin_notes), updated_at = now()
						WHERE id = $1 AND status = 'PAYMENT_UPLOADED'
`
	clearExpiredOTPQuery = `
						UPDATE orders
						SET otp_code = NULL, otp_expires_at = NULL, updated_at = now()
						WHERE email_verified = FALSE AND otp_code IS NOT NULL AND otp_expires_at <= $1
`
)

// OrderRepository implements OrderRepository interface
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrder inserts order with its items in one transaction
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	err := or.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrderQuery,
			order.ID, order.CustomerName, order.Email, order.TotalAmount, string(order.Status),
			order.EmailVerified, order.OTPCode, order.OTPExpiresAt,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return err
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := tx.QueryRow(ctx, insertOrderItemQuery, item.OrderID, item.BundleID, item.Quantity, item.UnitPrice).Scan(&item.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if or.db.ErrorCode(err) == pgErrForeignKeyViolationCode {
			return models.ErrNotFound
		}
		return postgres.Classify(err)
	}

	return nil
}

// GetOrderByID returns order with items
func (or *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order *models.Order

	err := or.db.Read(ctx, func(ctx context.Context) error {
		o, err := scanOrder(or.db.QueryRow(ctx, selectOrderByIDQuery, id))
		if err != nil {
			return err
		}
		if err := or.loadItems(ctx, []*models.Order{o}); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return order, nil
}

// ListOrders returns page of orders newest first and total number of matching orders
func (or *OrderRepository) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	var (
		orders []models.Order
		total  int
	)
	err := or.db.Read(ctx, func(ctx context.Context) error {
		if err := or.db.QueryRow(ctx, countOrdersQuery, status).Scan(&total); err != nil {
			return err
		}

		rows, err := or.db.Query(ctx, selectOrdersPageQuery, status, filter.Limit, filter.Offset())
		if err != nil {
			return err
		}
		defer rows.Close()

		var page []*models.Order
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return err
			}
			page = append(page, o)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if err := or.loadItems(ctx, page); err != nil {
			return err
		}

		orders = make([]models.Order, 0, len(page))
		for _, o := range page {
			orders = append(orders, *o)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// UpdateOTP replaces verification code of unverified order
func (or *OrderRepository) UpdateOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	cmd, err := or.db.Exec(ctx, updateOTPQuery, id, code, expiresAt)
	if err != nil {
		return postgres.Classify(err)
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}

	return nil
}

// MarkEmailVerified verifies email and clears code when code matches and has not expired at now
func (or *OrderRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID, code string, now time.Time) error {
	cmd, err := or.db.Exec(ctx, verifyEmailQuery, id, code, now)
	if err != nil {
		return postgres.Classify(err)
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrInvalidOrExpiredOTP
	}

	return nil
}

// SetPaymentProof records payment screenshot URL of verified order
func (or *OrderRepository) SetPaymentProof(ctx context.Context, id uuid.UUID, url string) error {
	cmd, err := or.db.Exec(ctx, updatePaymentProofQuery, id, url)
	if err != nil {
		return postgres.Classify(err)
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrInvalidState
	}

	return nil
}

// UpdateDecision moves order with uploaded payment to terminal status.
// Nil note keeps existing admin notes.
func (or *OrderRepository) UpdateDecision(ctx context.Context, id uuid.UUID, status models.OrderStatus, note *string) error {
	cmd, err := or.db.Exec(ctx, updateDecisionQuery, id, string(status), note)
	if err != nil {
		return postgres.Classify(err)
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrInvalidState
	}

	return nil
}

// ClearExpiredOTP removes expired codes of unverified orders
func (or *OrderRepository) ClearExpiredOTP(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := or.db.Exec(ctx, clearExpiredOTPQuery, now)
	if err != nil {
		return 0, postgres.Classify(err)
	}

	return cmd.RowsAffected(), nil
}

func (or *OrderRepository) loadItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	byID := make(map[uuid.UUID]*models.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID.String())
		byID[o.ID] = o
	}

	rows, err := or.db.Query(ctx, selectOrderItemsQuery, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item := models.OrderItem{}
		err := rows.Scan(&item.ID, &item.OrderID, &item.BundleID, &item.Quantity, &item.UnitPrice,
			&item.Bundle.Name, &item.Bundle.Slug, &item.Bundle.DownloadURL)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		item.Bundle.ID = item.BundleID

		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := models.Order{}
	var status string

	err := row.Scan(&order.ID, &order.CustomerName, &order.Email, &order.TotalAmount, &status,
		&order.EmailVerified, &order.OTPCode, &order.OTPExpiresAt, &order.PaymentProofURL,
		&order.AdminNotes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)

	return &order, nil
}

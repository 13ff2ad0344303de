package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxNoteLen      = 1000
)

// AdminService implements admin review of uploaded payments
type AdminService struct {
	orders   OrderRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewAdminService creates new AdminService instance
func NewAdminService(orders OrderRepository, notifier Notifier, logger *zap.Logger) *AdminService {
	return &AdminService{
		orders:   orders,
		notifier: notifier,
		logger:   logger,
	}
}

// ApproveOrder completes order with uploaded payment and sends download links
func (as *AdminService) ApproveOrder(ctx context.Context, principal *models.TokenPayload, orderID uuid.UUID, note string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}

	var notePtr *string
	if note != "" {
		n, err := requireText("note", note, maxNoteLen)
		if err != nil {
			return err
		}
		notePtr = &n
	}

	order, err := as.decide(ctx, orderID, models.OrderStatusCompleted, notePtr)
	if err != nil {
		return err
	}

	as.logger.Info("order approved", zap.Stringer("order", orderID), zap.String("admin", principal.Email))

	// status is committed, failed delivery is reported but not rolled back
	if err := as.notifier.SendDeliveryEmail(ctx, order); err != nil {
		as.logNotificationFailure("delivery", orderID, err)
		return err
	}

	return nil
}

// RejectOrder rejects order with uploaded payment and notifies customer
func (as *AdminService) RejectOrder(ctx context.Context, principal *models.TokenPayload, orderID uuid.UUID, reason string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}

	reason, err := requireText("reason", reason, maxNoteLen)
	if err != nil {
		return err
	}

	order, err := as.decide(ctx, orderID, models.OrderStatusRejected, &reason)
	if err != nil {
		return err
	}

	as.logger.Info("order rejected",
		zap.Stringer("order", orderID),
		zap.String("admin", principal.Email),
		zap.String("reason", reason))

	if err := as.notifier.SendRejectionEmail(ctx, order.Email, order.CustomerName, reason, order.ID); err != nil {
		as.logNotificationFailure("rejection", orderID, err)
		return err
	}

	return nil
}

// ListOrders returns page of orders newest first
func (as *AdminService) ListOrders(ctx context.Context, principal *models.TokenPayload, filter models.OrderFilter) (*models.OrderPage, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	orders, total, err := as.orders.ListOrders(ctx, filter)
	if err != nil {
		as.logger.Error("list orders", zap.Error(err))
		return nil, err
	}

	return &models.OrderPage{
		Orders: orders,
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
		Pages:  (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

// GetOrder returns order details
func (as *AdminService) GetOrder(ctx context.Context, principal *models.TokenPayload, orderID uuid.UUID) (*models.Order, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return as.orders.GetOrderByID(ctx, orderID)
}

// decide moves order from PAYMENT_UPLOADED to terminal status and returns the updated order
func (as *AdminService) decide(ctx context.Context, orderID uuid.UUID, status models.OrderStatus, note *string) (*models.Order, error) {
	order, err := as.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPaymentUploaded {
		return nil, models.ErrInvalidState
	}

	if err := as.orders.UpdateDecision(ctx, orderID, status, note); err != nil {
		return nil, err
	}

	order.Status = status
	if note != nil {
		order.AdminNotes = note
	}

	return order, nil
}

func (as *AdminService) logNotificationFailure(kind string, orderID uuid.UUID, err error) {
	if isNotification(err) {
		as.logger.Error("customer not notified, order status kept",
			zap.String("email", kind),
			zap.Stringer("order", orderID),
			zap.Error(err))
		return
	}
	as.logger.Error("send email", zap.String("email", kind), zap.Stringer("order", orderID), zap.Error(err))
}

func normalizeFilter(f models.OrderFilter) (models.OrderFilter, error) {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = defaultPageSize
	}
	if f.Page < 1 {
		return f, models.NewValidationError("page", "must be positive")
	}
	if f.Limit < 1 || f.Limit > maxPageSize {
		return f, models.NewValidationError("limit", "must be between 1 and 100")
	}
	if f.Status != nil {
		if _, ok := models.ParseOrderStatus(string(*f.Status)); !ok {
			return f, models.NewValidationError("status", "is unknown")
		}
	}
	return f, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//PENDING — заказ создан, email покупателя не подтверждён;
//EMAIL_VERIFIED — email подтверждён кодом, ожидается скриншот оплаты;
//PAYMENT_UPLOADED — скриншот оплаты загружен, ожидается решение администратора;
//COMPLETED — оплата подтверждена, бандл отправлен покупателю;
//REJECTED — администратор отклонил оплату.

// OrderStatus is order lifecycle state
type OrderStatus string

// order status
const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusEmailVerified   OrderStatus = "EMAIL_VERIFIED"
	OrderStatusPaymentUploaded OrderStatus = "PAYMENT_UPLOADED"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// ParseOrderStatus converts string to known order status
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusEmailVerified, OrderStatusPaymentUploaded,
		OrderStatusCompleted, OrderStatusRejected:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusRejected
}

// CanTransitionTo reports whether next directly follows s in the lifecycle.
// PAYMENT_UPLOADED -> PAYMENT_UPLOADED is allowed: the proof may be replaced
// until an admin decides.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusEmailVerified
	case OrderStatusEmailVerified:
		return next == OrderStatusPaymentUploaded
	case OrderStatusPaymentUploaded:
		return next == OrderStatusPaymentUploaded || next == OrderStatusCompleted || next == OrderStatusRejected
	}
	return false
}

// Order is order entity
type Order struct {
	ID              uuid.UUID
	CustomerName    string
	Email           string
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	EmailVerified   bool
	OTPCode         *string
	OTPExpiresAt    *time.Time
	PaymentProofURL *string
	AdminNotes      *string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is a line of order
type OrderItem struct {
	ID        uint64
	OrderID   uuid.UUID
	BundleID  uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Bundle    BundleSummary
}

// BundleSummary is bundle data embedded in order listings
type BundleSummary struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	DownloadURL *string
}

// OrderFilter contains admin order listing parameters
type OrderFilter struct {
	Status *OrderStatus
	Page   int
	Limit  int
}

// Offset returns number of rows to skip
func (f OrderFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// OrderPage is page of orders with pagination info
type OrderPage struct {
	Orders []Order
	Total  int
	Page   int
	Limit  int
	Pages  int
}

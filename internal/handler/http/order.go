package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/shopspring/decimal"
)

type AdminOrderService interface {
	// ListOrders returns page of orders
	ListOrders(ctx context.Context, principal *models.TokenPayload, filter models.OrderFilter) (*models.OrderPage, error)
	// GetOrder returns order details
	GetOrder(ctx context.Context, principal *models.TokenPayload, orderID uuid.UUID) (*models.Order, error)
	// ApproveOrder completes order
	ApproveOrder(ctx context.Context, principal *models.TokenPayload, orderID uuid.UUID, note string) error
	// RejectOrder rejects order with reason
	RejectOrder(ctx context.Context, principal *models.TokenPayload, orderID uuid.UUID, reason string) error
}

// OrderHandler represents HTTP handler for admin order review requests
type OrderHandler struct {
	svc  AdminOrderService
	resp *Responder
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc AdminOrderService, resp *Responder) *OrderHandler {
	return &OrderHandler{svc: svc, resp: resp}
}

type bundleSummaryResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	DownloadURL *string `json:"downloadUrl,omitempty"`
}

type orderItemResponse struct {
	BundleID  string                `json:"bundleId"`
	Quantity  int                   `json:"quantity"`
	UnitPrice decimal.Decimal       `json:"unitPrice"`
	Bundle    bundleSummaryResponse `json:"bundle"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	CustomerName    string              `json:"customerName"`
	Email           string              `json:"email"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	Status          string              `json:"status"`
	EmailVerified   bool                `json:"emailVerified"`
	PaymentProofURL *string             `json:"paymentProofUrl,omitempty"`
	AdminNotes      *string             `json:"adminNotes,omitempty"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       string              `json:"createdAt"`
	UpdatedAt       string              `json:"updatedAt"`
}

type paginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type listOrdersResponse struct {
	Orders     []orderResponse    `json:"orders"`
	Pagination paginationResponse `json:"pagination"`
}

// ListOrders returns orders newest first
// 200 — успешная обработка запроса;
// 400 — неверные параметры фильтра;
// 401 — пользователь не аутентифицирован;
// 403 — недостаточно прав;
// 503 — база данных недоступна;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := getAuthPayload(r.Context(), authPayloadKey)

		filter, err := parseOrderFilter(r)
		if err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		page, err := oh.svc.ListOrders(r.Context(), payload, filter)
		if err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		res := listOrdersResponse{
			Orders: make([]orderResponse, 0, len(page.Orders)),
			Pagination: paginationResponse{
				Page:  page.Page,
				Limit: page.Limit,
				Total: page.Total,
				Pages: page.Pages,
			},
		}
		for i := range page.Orders {
			res.Orders = append(res.Orders, newOrderResponse(&page.Orders[i]))
		}

		oh.resp.JSON(w, http.StatusOK, res)
	}
}

// GetOrder returns order details
// 200 — успешная обработка запроса;
// 401 — пользователь не аутентифицирован;
// 403 — недостаточно прав;
// 404 — заказ не найден;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := getAuthPayload(r.Context(), authPayloadKey)

		orderID, err := parseID("orderId", chi.URLParam(r, "orderId"))
		if err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		order, err := oh.svc.GetOrder(r.Context(), payload, orderID)
		if err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		oh.resp.JSON(w, http.StatusOK, newOrderResponse(order))
	}
}

type approveRequest struct {
	Note string `json:"note"`
}

// ApproveOrder completes order and sends download links
// 200 — заказ выполнен;
// 400 — заказ не в статусе PAYMENT_UPLOADED;
// 401 — пользователь не аутентифицирован;
// 403 — недостаточно прав;
// 404 — заказ не найден;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) ApproveOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := getAuthPayload(r.Context(), authPayloadKey)

		orderID, err := parseID("orderId", chi.URLParam(r, "orderId"))
		if err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		var req approveRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				oh.resp.Error(w, r, err)
				return
			}
		}

		if err := oh.svc.ApproveOrder(r.Context(), payload, orderID, req.Note); err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		oh.resp.JSON(w, http.StatusOK, struct{}{})
	}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectOrder rejects order with reason
// 200 — заказ отклонён, покупатель уведомлён;
// 400 — нет причины или заказ не в статусе PAYMENT_UPLOADED;
// 401 — пользователь не аутентифицирован;
// 403 — недостаточно прав;
// 404 — заказ не найден;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) RejectOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := getAuthPayload(r.Context(), authPayloadKey)

		orderID, err := parseID("orderId", chi.URLParam(r, "orderId"))
		if err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		var req rejectRequest
		if err := decodeJSON(r, &req); err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		if err := oh.svc.RejectOrder(r.Context(), payload, orderID, req.Reason); err != nil {
			oh.resp.Error(w, r, err)
			return
		}

		oh.resp.JSON(w, http.StatusOK, struct{}{})
	}
}

// parseOrderFilter reads status, page and limit query parameters
func parseOrderFilter(r *http.Request) (models.OrderFilter, error) {
	var filter models.OrderFilter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status, ok := models.ParseOrderStatus(s)
		if !ok {
			return filter, models.NewValidationError("status", "is unknown")
		}
		filter.Status = &status
	}

	var err error
	if filter.Page, err = queryInt(q.Get("page"), "page"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}

	return filter, nil
}

func queryInt(s, field string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.NewValidationError(field, "must be an integer")
	}
	return n, nil
}

func newOrderResponse(o *models.Order) orderResponse {
	res := orderResponse{
		ID:              o.ID.String(),
		CustomerName:    o.CustomerName,
		Email:           o.Email,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		EmailVerified:   o.EmailVerified,
		PaymentProofURL: o.PaymentProofURL,
		AdminNotes:      o.AdminNotes,
		Items:           make([]orderItemResponse, 0, len(o.Items)),
		CreatedAt:       formatTime(o.CreatedAt),
		UpdatedAt:       formatTime(o.UpdatedAt),
	}
	for _, it := range o.Items {
		res.Items = append(res.Items, orderItemResponse{
			BundleID:  it.BundleID.String(),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Bundle: bundleSummaryResponse{
				ID:          it.Bundle.ID.String(),
				Name:        it.Bundle.Name,
				Slug:        it.Bundle.Slug,
				DownloadURL: it.Bundle.DownloadURL,
			},
		})
	}
	return res
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

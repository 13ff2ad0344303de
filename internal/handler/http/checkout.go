package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxScreenshotSize = 10 << 20
	multipartMemory   = 1 << 20
)

type CheckoutService interface {
	// CreateOrder creates pending order and sends verification code
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (uuid.UUID, error)
	// ResendOtp reissues verification code
	ResendOtp(ctx context.Context, orderID uuid.UUID) error
	// VerifyEmail checks verification code and returns payment QR
	VerifyEmail(ctx context.Context, orderID uuid.UUID, code string) (string, error)
	// UploadPaymentProof stores payment screenshot
	UploadPaymentProof(ctx context.Context, orderID uuid.UUID, data []byte, filename string) error
	// GetOrder returns order
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// CheckoutHandler represents HTTP handler for customer checkout requests
type CheckoutHandler struct {
	svc  CheckoutService
	resp *Responder
}

// NewCheckoutHandler creates new CheckoutHandler instance
func NewCheckoutHandler(svc CheckoutService, resp *Responder) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, resp: resp}
}

type createOrderRequest struct {
	BundleID string `json:"bundleId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type createOrderResponse struct {
	OrderID string `json:"orderId"`
}

// CreateOrder creates order for bundle
// 201 — заказ создан, код отправлен на почту;
// 400 — неверный формат запроса;
// 404 — набор не найден или недоступен;
// 500 — внутренняя ошибка сервера, если заказ сохранён, в ответе есть orderId.
func (ch *CheckoutHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := decodeJSON(r, &req); err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		bundleID, err := parseID("bundleId", req.BundleID)
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		orderID, err := ch.svc.CreateOrder(r.Context(), service.CreateOrderInput{
			BundleID: bundleID,
			Name:     req.Name,
			Email:    req.Email,
		})
		if err != nil && orderID != uuid.Nil && errors.Is(err, models.ErrNotification) {
			// order is stored, client needs its id to request code again
			ch.resp.logger.Error("order created without verification email",
				zap.Stringer("order", orderID), zap.Error(err))
			ch.resp.JSON(w, http.StatusInternalServerError, errorResponse{
				Message:    "order created but verification email could not be sent",
				StatusCode: http.StatusInternalServerError,
				Code:       codeInternal,
				OrderID:    orderID.String(),
			})
			return
		}
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		ch.resp.JSON(w, http.StatusCreated, createOrderResponse{OrderID: orderID.String()})
	}
}

type orderIDRequest struct {
	OrderID string `json:"orderId"`
}

// ResendOtp sends new verification code
// 200 — код отправлен повторно;
// 400 — неверный формат запроса;
// 404 — заказ не найден;
// 409 — почта уже подтверждена;
// 500 — внутренняя ошибка сервера.
func (ch *CheckoutHandler) ResendOtp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orderIDRequest
		if err := decodeJSON(r, &req); err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		orderID, err := parseID("orderId", req.OrderID)
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		if err := ch.svc.ResendOtp(r.Context(), orderID); err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		ch.resp.JSON(w, http.StatusOK, struct{}{})
	}
}

type verifyEmailRequest struct {
	OrderID string `json:"orderId"`
	OTP     string `json:"otp"`
}

type verifyEmailResponse struct {
	PaymentQR string `json:"paymentQr"`
}

// VerifyEmail verifies customer email with code
// 200 — почта подтверждена, в ответе QR для оплаты;
// 400 — неверный или просроченный код;
// 404 — заказ не найден;
// 500 — внутренняя ошибка сервера.
func (ch *CheckoutHandler) VerifyEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyEmailRequest
		if err := decodeJSON(r, &req); err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		orderID, err := parseID("orderId", req.OrderID)
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}
		if req.OTP == "" {
			ch.resp.Error(w, r, models.NewValidationError("otp", "is required"))
			return
		}

		qr, err := ch.svc.VerifyEmail(r.Context(), orderID, req.OTP)
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		ch.resp.JSON(w, http.StatusOK, verifyEmailResponse{PaymentQR: qr})
	}
}

// UploadPayment uploads payment screenshot
// 200 — скриншот оплаты принят;
// 400 — неверный формат файла или почта не подтверждена;
// 404 — заказ не найден;
// 500 — внутренняя ошибка сервера.
func (ch *CheckoutHandler) UploadPayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxScreenshotSize+multipartMemory)

		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			ch.resp.Error(w, r, uploadError("screenshot", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		orderID, err := parseID("orderId", r.FormValue("orderId"))
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		data, filename, err := readFormFile(r, "screenshot", maxScreenshotSize)
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		if err := ch.svc.UploadPaymentProof(r.Context(), orderID, data, filename); err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		ch.resp.JSON(w, http.StatusOK, struct{}{})
	}
}

type orderStatusResponse struct {
	OrderID       string          `json:"orderId"`
	Status        string          `json:"status"`
	EmailVerified bool            `json:"emailVerified"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	BundleName    string          `json:"bundleName,omitempty"`
	CreatedAt     string          `json:"createdAt"`
}

// GetOrderStatus returns public order status
// 200 — успешная обработка запроса;
// 400 — неверный идентификатор заказа;
// 404 — заказ не найден;
// 500 — внутренняя ошибка сервера.
func (ch *CheckoutHandler) GetOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseID("orderId", chi.URLParam(r, "orderId"))
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		order, err := ch.svc.GetOrder(r.Context(), orderID)
		if err != nil {
			ch.resp.Error(w, r, err)
			return
		}

		res := orderStatusResponse{
			OrderID:       order.ID.String(),
			Status:        string(order.Status),
			EmailVerified: order.EmailVerified,
			TotalAmount:   order.TotalAmount,
			CreatedAt:     formatTime(order.CreatedAt),
		}
		if len(order.Items) > 0 {
			res.BundleName = order.Items[0].Bundle.Name
		}

		ch.resp.JSON(w, http.StatusOK, res)
	}
}

// parseID parses uuid of request field
func parseID(field, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, models.NewValidationError(field, "is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, models.NewValidationError(field, "must be a valid UUID")
	}
	return id, nil
}

// readFormFile reads multipart file of at most max bytes, larger file is passed truncated to max+1 bytes
func readFormFile(r *http.Request, field string, max int64) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", models.NewValidationError(field, "is required")
		}
		return nil, "", uploadError(field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, max+1))
	if err != nil {
		return nil, "", uploadError(field, err)
	}

	return data, header.Filename, nil
}

func uploadError(field string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return models.NewValidationError(field, "file is too large")
	}
	return models.NewValidationError(field, "malformed multipart form")
}

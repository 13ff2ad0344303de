package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/handler/http/mocks"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminToken = &models.TokenPayload{AdminID: 1, Email: "admin@shop.test", Role: models.RoleAdmin}

func withPayload(r *http.Request, payload *models.TokenPayload) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authPayloadKey, payload))
}

func TestOrderHandler_ListOrders(t *testing.T) {
	orderID := uuid.New()
	bundleID := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	proof := "/files/payments/" + orderID.String() + "/a.jpg"
	uploaded := models.OrderStatusPaymentUploaded

	tests := []struct {
		name           string
		query          string
		setup          func(t *testing.T) *mocks.MockAdminOrderService
		wantStatusCode int
		wantBody       *listOrdersResponse
		wantCode       string
	}{
		{
			// 200 — успешная обработка запроса
			name:  "valid_request_return_200",
			query: "?status=PAYMENT_UPLOADED&page=1&limit=10",
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
				svcMock.EXPECT().ListOrders(gomock.Any(), adminToken, models.OrderFilter{Status: &uploaded, Page: 1, Limit: 10}).
					Return(&models.OrderPage{
						Orders: []models.Order{{
							ID:              orderID,
							CustomerName:    "Alice",
							Email:           "a@x.com",
							TotalAmount:     decimal.NewFromInt(500),
							Status:          models.OrderStatusPaymentUploaded,
							EmailVerified:   true,
							PaymentProofURL: &proof,
							Items: []models.OrderItem{{
								BundleID:  bundleID,
								Quantity:  1,
								UnitPrice: decimal.NewFromInt(500),
								Bundle:    models.BundleSummary{ID: bundleID, Name: "B1", Slug: "b1"},
							}},
							CreatedAt: created,
							UpdatedAt: created,
						}},
						Total: 1, Page: 1, Limit: 10, Pages: 1,
					}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody: &listOrdersResponse{
				Orders: []orderResponse{{
					ID:              orderID.String(),
					CustomerName:    "Alice",
					Email:           "a@x.com",
					TotalAmount:     decimal.NewFromInt(500),
					Status:          "PAYMENT_UPLOADED",
					EmailVerified:   true,
					PaymentProofURL: &proof,
					Items: []orderItemResponse{{
						BundleID:  bundleID.String(),
						Quantity:  1,
						UnitPrice: decimal.NewFromInt(500),
						Bundle:    bundleSummaryResponse{ID: bundleID.String(), Name: "B1", Slug: "b1"},
					}},
					CreatedAt: "2024-05-01T12:00:00Z",
					UpdatedAt: "2024-05-01T12:00:00Z",
				}},
				Pagination: paginationResponse{Page: 1, Limit: 10, Total: 1, Pages: 1},
			},
		},
		{
			// 400 — неизвестный статус
			name:  "unknown_status_return_400",
			query: "?status=SHIPPED",
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				return mocks.NewMockAdminOrderService(gomock.NewController(t))
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "VALIDATION_ERROR",
		},
		{
			// 400 — страница не число
			name:  "bad_page_return_400",
			query: "?page=first",
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				return mocks.NewMockAdminOrderService(gomock.NewController(t))
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "VALIDATION_ERROR",
		},
		{
			// 403 — недостаточно прав
			name: "forbidden_return_403",
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
				svcMock.EXPECT().ListOrders(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, models.ErrForbidden)
				return svcMock
			},
			wantStatusCode: http.StatusForbidden,
			wantCode:       "FORBIDDEN",
		},
		{
			// 503 — база данных недоступна
			name: "database_unavailable_return_503",
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
				svcMock.EXPECT().ListOrders(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("%w: connection refused", models.ErrStorageUnavailable))
				return svcMock
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantCode:       "DATABASE_UNAVAILABLE",
		},
		{
			// 500 — внутренняя ошибка сервера
			name: "internal_error_return_500",
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
				svcMock.EXPECT().ListOrders(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("scan order: syntax error"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
			wantCode:       "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withPayload(httptest.NewRequest(http.MethodGet, "/admin/orders"+tt.query, nil), adminToken)
			w := httptest.NewRecorder()

			NewOrderHandler(tt.setup(t), newTestResponder()).ListOrders()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, res).Code)
				return
			}

			var got listOrdersResponse
			require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
			if diff := cmp.Diff(*tt.wantBody, got, cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOrderHandler_RejectOrder(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		name           string
		orderID        string
		body           string
		setup          func(t *testing.T) *mocks.MockAdminOrderService
		wantStatusCode int
		wantCode       string
	}{
		{
			// 200 — заказ отклонён
			name:    "valid_request_return_200",
			orderID: orderID.String(),
			body:    `{"reason":"payment mismatch"}`,
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
				svcMock.EXPECT().RejectOrder(gomock.Any(), adminToken, orderID, "payment mismatch").Return(nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// 400 — заказ не в статусе PAYMENT_UPLOADED
			name:    "invalid_state_return_400",
			orderID: orderID.String(),
			body:    `{"reason":"payment mismatch"}`,
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
				svcMock.EXPECT().RejectOrder(gomock.Any(), adminToken, orderID, "payment mismatch").Return(models.ErrInvalidState)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "INVALID_STATE",
		},
		{
			// 404 — заказ не найден
			name:    "not_found_return_404",
			orderID: orderID.String(),
			body:    `{"reason":"payment mismatch"}`,
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
				svcMock.EXPECT().RejectOrder(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(models.ErrNotFound)
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
			wantCode:       "NOT_FOUND",
		},
		{
			// 400 — неверный идентификатор заказа
			name:    "bad_order_id_return_400",
			orderID: "O1",
			body:    `{"reason":"payment mismatch"}`,
			setup: func(t *testing.T) *mocks.MockAdminOrderService {
				return mocks.NewMockAdminOrderService(gomock.NewController(t))
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/orders/"+tt.orderID+"/reject", strings.NewReader(tt.body))
			req = withURLParams(withPayload(req, adminToken), "orderId", tt.orderID)
			w := httptest.NewRecorder()

			NewOrderHandler(tt.setup(t), newTestResponder()).RejectOrder()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, res).Code)
			}
		})
	}
}

func TestOrderHandler_ApproveOrder(t *testing.T) {
	orderID := uuid.New()

	t.Run("without_body", func(t *testing.T) {
		svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
		svcMock.EXPECT().ApproveOrder(gomock.Any(), adminToken, orderID, "").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/admin/orders/"+orderID.String()+"/approve", nil)
		req = withURLParams(withPayload(req, adminToken), "orderId", orderID.String())
		w := httptest.NewRecorder()

		NewOrderHandler(svcMock, newTestResponder()).ApproveOrder()(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("with_note", func(t *testing.T) {
		svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
		svcMock.EXPECT().ApproveOrder(gomock.Any(), adminToken, orderID, "paid").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/admin/orders/"+orderID.String()+"/approve", strings.NewReader(`{"note":"paid"}`))
		req = withURLParams(withPayload(req, adminToken), "orderId", orderID.String())
		w := httptest.NewRecorder()

		NewOrderHandler(svcMock, newTestResponder()).ApproveOrder()(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOrderHandler_GetOrder(t *testing.T) {
	orderID := uuid.New()
	note := "payment mismatch"

	svcMock := mocks.NewMockAdminOrderService(gomock.NewController(t))
	svcMock.EXPECT().GetOrder(gomock.Any(), adminToken, orderID).Return(&models.Order{
		ID:         orderID,
		Status:     models.OrderStatusRejected,
		AdminNotes: &note,
	}, nil)

	req := withURLParams(withPayload(httptest.NewRequest(http.MethodGet, "/admin/orders/"+orderID.String(), nil), adminToken), "orderId", orderID.String())
	w := httptest.NewRecorder()

	NewOrderHandler(svcMock, newTestResponder()).GetOrder()(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "REJECTED", got.Status)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, note, *got.AdminNotes)
	assert.Empty(t, got.Items)
}

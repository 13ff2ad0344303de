package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/rookgm/bundlehub/internal/handler/http/mocks"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorefrontHandler_Subscribe(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatusCode int
	}{
		{name: "valid_request_return_201", wantStatusCode: http.StatusCreated},
		{name: "already_subscribed_return_409", err: models.ErrConflict, wantStatusCode: http.StatusConflict},
		{name: "bad_email_return_400", err: models.NewValidationError("email", "is not a valid email address"), wantStatusCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock := mocks.NewMockStorefrontService(gomock.NewController(t))
			svcMock.EXPECT().Subscribe(gomock.Any(), "bob@x.com").Return(tt.err)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/newsletter/subscribe", strings.NewReader(`{"email":"bob@x.com"}`))
			NewStorefrontHandler(svcMock, newTestResponder()).Subscribe()(w, req)

			assert.Equal(t, tt.wantStatusCode, w.Code)
		})
	}
}

func TestStorefrontHandler_Unsubscribe(t *testing.T) {
	svcMock := mocks.NewMockStorefrontService(gomock.NewController(t))
	svcMock.EXPECT().Unsubscribe(gomock.Any(), "bob@x.com").Return(models.ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/newsletter/unsubscribe", strings.NewReader(`{"email":"bob@x.com"}`))
	NewStorefrontHandler(svcMock, newTestResponder()).Unsubscribe()(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStorefrontHandler_Contact(t *testing.T) {
	svcMock := mocks.NewMockStorefrontService(gomock.NewController(t))
	svcMock.EXPECT().SubmitContact(gomock.Any(), service.ContactInput{
		Name: "Bob", Email: "bob@x.com", Subject: "Refund", Message: "Hello",
	}).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contact",
		strings.NewReader(`{"name":"Bob","email":"bob@x.com","subject":"Refund","message":"Hello"}`))
	NewStorefrontHandler(svcMock, newTestResponder()).Contact()(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestStorefrontHandler_Reviews(t *testing.T) {
	svcMock := mocks.NewMockStorefrontService(gomock.NewController(t))
	svcMock.EXPECT().CreateReview(gomock.Any(), "icons", service.ReviewInput{Name: "Bob", Rating: 5, Comment: "great"}).
		Return(&models.Review{ID: 3, Name: "Bob", Rating: 5, Comment: "great"}, nil)
	svcMock.EXPECT().ListReviews(gomock.Any(), "icons").Return([]models.Review{{ID: 3, Name: "Bob", Rating: 5}}, nil)
	h := NewStorefrontHandler(svcMock, newTestResponder())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bundles/icons/reviews", strings.NewReader(`{"name":"Bob","rating":5,"comment":"great"}`))
	h.CreateReview()(w, withURLParams(req, "slug", "icons"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.ListReviews()(w, withURLParams(httptest.NewRequest(http.MethodGet, "/bundles/icons/reviews", nil), "slug", "icons"))
	require.Equal(t, http.StatusOK, w.Code)

	var got []reviewResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].ID)
}

package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/rookgm/bundlehub/internal/handler/http/mocks"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatusCode int
	}{
		{name: "database_up_return_200", wantStatusCode: http.StatusOK},
		{name: "database_down_return_503", err: models.ErrStorageUnavailable, wantStatusCode: http.StatusServiceUnavailable},
		{name: "unclassified_failure_return_503", err: errors.New("ping: timeout"), wantStatusCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock := mocks.NewMockHealthService(gomock.NewController(t))
			svcMock.EXPECT().Check(gomock.Any()).Return(tt.err)

			w := httptest.NewRecorder()
			NewHealthHandler(svcMock, newTestResponder()).Health()(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
			if tt.err != nil {
				assert.Equal(t, "DATABASE_UNAVAILABLE", decodeError(t, res).Code)
			}
		})
	}
}

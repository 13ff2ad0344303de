package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rookgm/bundlehub/internal/models"
)

type HealthService interface {
	Check(ctx context.Context) error
}

// HealthHandler represents HTTP handler for liveness probe
type HealthHandler struct {
	svc  HealthService
	resp *Responder
}

// NewHealthHandler creates new HealthHandler instance
func NewHealthHandler(svc HealthService, resp *Responder) *HealthHandler {
	return &HealthHandler{svc: svc, resp: resp}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports service and database state
// 200 — сервис и база данных доступны;
// 503 — база данных недоступна.
func (hh *HealthHandler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := hh.svc.Check(r.Context()); err != nil {
			if !errors.Is(err, models.ErrStorageUnavailable) {
				err = fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
			}
			hh.resp.Error(w, r, err)
			return
		}

		hh.resp.JSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "up"})
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/service"
	"github.com/shopspring/decimal"
)

const maxArchiveSize = 500 << 20

type CatalogueService interface {
	ListActiveBundles(ctx context.Context) ([]models.Bundle, error)
	GetActiveBundle(ctx context.Context, slug string) (*models.Bundle, error)
	ListBundles(ctx context.Context, principal *models.TokenPayload) ([]models.Bundle, error)
	CreateBundle(ctx context.Context, principal *models.TokenPayload, in service.CreateBundleInput) (*models.Bundle, error)
	SetBundleActive(ctx context.Context, principal *models.TokenPayload, id uuid.UUID, active bool) error
	UploadBundleArchive(ctx context.Context, principal *models.TokenPayload, id uuid.UUID, data []byte, filename string) (string, error)
}

// BundleHandler represents HTTP handler for catalogue requests
type BundleHandler struct {
	svc  CatalogueService
	resp *Responder
}

// NewBundleHandler creates new BundleHandler instance
func NewBundleHandler(svc CatalogueService, resp *Responder) *BundleHandler {
	return &BundleHandler{svc: svc, resp: resp}
}

type bundleResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   string          `json:"createdAt"`
}

// adminBundleResponse adds download link visible to admins only
type adminBundleResponse struct {
	bundleResponse
	DownloadURL *string `json:"downloadUrl,omitempty"`
}

// ListBundles returns active bundles
// 200 — успешная обработка запроса;
// 500 — внутренняя ошибка сервера.
func (bh *BundleHandler) ListBundles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bundles, err := bh.svc.ListActiveBundles(r.Context())
		if err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		res := make([]bundleResponse, 0, len(bundles))
		for i := range bundles {
			res = append(res, newBundleResponse(&bundles[i]))
		}

		bh.resp.JSON(w, http.StatusOK, res)
	}
}

// GetBundle returns active bundle by slug
// 200 — успешная обработка запроса;
// 404 — набор не найден;
// 500 — внутренняя ошибка сервера.
func (bh *BundleHandler) GetBundle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bundle, err := bh.svc.GetActiveBundle(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		bh.resp.JSON(w, http.StatusOK, newBundleResponse(bundle))
	}
}

// AdminListBundles returns all bundles including inactive
// 200 — успешная обработка запроса;
// 401 — пользователь не аутентифицирован;
// 403 — недостаточно прав;
// 500 — внутренняя ошибка сервера.
func (bh *BundleHandler) AdminListBundles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := getAuthPayload(r.Context(), authPayloadKey)

		bundles, err := bh.svc.ListBundles(r.Context(), payload)
		if err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		res := make([]adminBundleResponse, 0, len(bundles))
		for i := range bundles {
			res = append(res, newAdminBundleResponse(&bundles[i]))
		}

		bh.resp.JSON(w, http.StatusOK, res)
	}
}

type createBundleRequest struct {
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"isActive"`
}

// CreateBundle adds bundle to catalogue
// 201 — набор создан;
// 400 — неверный формат запроса;
// 401 — пользователь не аутентифицирован;
// 403 — недостаточно прав;
// 409 — slug уже занят;
// 500 — внутренняя ошибка сервера.
func (bh *BundleHandler) CreateBundle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := getAuthPayload(r.Context(), authPayloadKey)

		var req createBundleRequest
		if err := decodeJSON(r, &req); err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		bundle, err := bh.svc.CreateBundle(r.Context(), payload, service.CreateBundleInput{
			Name:        req.Name,
			Slug:        req.Slug,
			Description: req.Description,
			Price:       req.Price,
			IsActive:    req.IsActive,
		})
		if err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		bh.resp.JSON(w, http.StatusCreated, newAdminBundleResponse(bundle))
	}
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

// SetBundleActive shows or hides bundle
// 200 — успешная обработка запроса;
// 400 — неверный формат запроса;
// 401 — пользователь не аутентифицирован;
// 403 — недостаточно прав;
// 404 — набор не найден;
// 500 — внутренняя ошибка сервера.
func (bh *BundleHandler) SetBundleActive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := getAuthPayload(r.Context(), authPayloadKey)

		id, err := parseID("bundleId", chi.URLParam(r, "bundleId"))
		if err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		var req setActiveRequest
		if err := decodeJSON(r, &req); err != nil {
			bh.resp.Error(w, r, err)
			return
		}
		if req.IsActive == nil {
			bh.resp.Error(w, r, models.NewValidationError("isActive", "is required"))
			return
		}

		if err := bh.svc.SetBundleActive(r.Context(), payload, id, *req.IsActive); err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		bh.resp.JSON(w, http.StatusOK, struct{}{})
	}
}

type uploadArchiveResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// UploadArchive uploads zip archive with bundle content
// 200 — архив загружен;
// 400 — неверный формат файла;
// 401 — пользователь не аутентифицирован;
// 403 — недостаточно прав;
// 404 — набор не найден;
// 500 — внутренняя ошибка сервера.
func (bh *BundleHandler) UploadArchive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, _ := getAuthPayload(r.Context(), authPayloadKey)

		id, err := parseID("bundleId", chi.URLParam(r, "bundleId"))
		if err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxArchiveSize+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			bh.resp.Error(w, r, uploadError("archive", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		data, filename, err := readFormFile(r, "archive", maxArchiveSize)
		if err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		url, err := bh.svc.UploadBundleArchive(r.Context(), payload, id, data, filename)
		if err != nil {
			bh.resp.Error(w, r, err)
			return
		}

		bh.resp.JSON(w, http.StatusOK, uploadArchiveResponse{DownloadURL: url})
	}
}

func newBundleResponse(b *models.Bundle) bundleResponse {
	return bundleResponse{
		ID:          b.ID.String(),
		Name:        b.Name,
		Slug:        b.Slug,
		Description: b.Description,
		Price:       b.Price,
		IsActive:    b.IsActive,
		CreatedAt:   formatTime(b.CreatedAt),
	}
}

func newAdminBundleResponse(b *models.Bundle) adminBundleResponse {
	return adminBundleResponse{
		bundleResponse: newBundleResponse(b),
		DownloadURL:    b.DownloadURL,
	}
}

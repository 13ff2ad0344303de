package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/service"
)

type StorefrontService interface {
	Subscribe(ctx context.Context, email string) error
	Unsubscribe(ctx context.Context, email string) error
	SubmitContact(ctx context.Context, in service.ContactInput) error
	CreateReview(ctx context.Context, slug string, in service.ReviewInput) (*models.Review, error)
	ListReviews(ctx context.Context, slug string) ([]models.Review, error)
}

// StorefrontHandler represents HTTP handler for newsletter, contact and review requests
type StorefrontHandler struct {
	svc  StorefrontService
	resp *Responder
}

// NewStorefrontHandler creates new StorefrontHandler instance
func NewStorefrontHandler(svc StorefrontService, resp *Responder) *StorefrontHandler {
	return &StorefrontHandler{svc: svc, resp: resp}
}

type emailRequest struct {
	Email string `json:"email"`
}

// Subscribe subscribes email to newsletter
// 201 — подписка оформлена;
// 400 — неверный адрес;
// 409 — адрес уже подписан;
// 500 — внутренняя ошибка сервера.
func (sh *StorefrontHandler) Subscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if err := decodeJSON(r, &req); err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		if err := sh.svc.Subscribe(r.Context(), req.Email); err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		sh.resp.JSON(w, http.StatusCreated, struct{}{})
	}
}

// Unsubscribe cancels newsletter subscription
// 200 — подписка отменена;
// 400 — неверный адрес;
// 404 — активной подписки нет;
// 500 — внутренняя ошибка сервера.
func (sh *StorefrontHandler) Unsubscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if err := decodeJSON(r, &req); err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		if err := sh.svc.Unsubscribe(r.Context(), req.Email); err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		sh.resp.JSON(w, http.StatusOK, struct{}{})
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Contact stores contact form message
// 201 — сообщение принято;
// 400 — неверный формат запроса;
// 500 — внутренняя ошибка сервера.
func (sh *StorefrontHandler) Contact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contactRequest
		if err := decodeJSON(r, &req); err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		err := sh.svc.SubmitContact(r.Context(), service.ContactInput{
			Name:    req.Name,
			Email:   req.Email,
			Subject: req.Subject,
			Message: req.Message,
		})
		if err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		sh.resp.JSON(w, http.StatusCreated, struct{}{})
	}
}

type reviewRequest struct {
	Name    string `json:"name"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"createdAt"`
}

// ListReviews returns reviews of bundle newest first
// 200 — успешная обработка запроса;
// 404 — набор не найден;
// 500 — внутренняя ошибка сервера.
func (sh *StorefrontHandler) ListReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviews, err := sh.svc.ListReviews(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		res := make([]reviewResponse, 0, len(reviews))
		for i := range reviews {
			res = append(res, newReviewResponse(&reviews[i]))
		}

		sh.resp.JSON(w, http.StatusOK, res)
	}
}

// CreateReview adds review to bundle
// 201 — отзыв добавлен;
// 400 — неверный формат запроса;
// 404 — набор не найден;
// 500 — внутренняя ошибка сервера.
func (sh *StorefrontHandler) CreateReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewRequest
		if err := decodeJSON(r, &req); err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		review, err := sh.svc.CreateReview(r.Context(), chi.URLParam(r, "slug"), service.ReviewInput{
			Name:    req.Name,
			Rating:  req.Rating,
			Comment: req.Comment,
		})
		if err != nil {
			sh.resp.Error(w, r, err)
			return
		}

		sh.resp.JSON(w, http.StatusCreated, newReviewResponse(review))
	}
}

func newReviewResponse(rv *models.Review) reviewResponse {
	return reviewResponse{
		ID:        rv.ID,
		Name:      rv.Name,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: formatTime(rv.CreatedAt),
	}
}

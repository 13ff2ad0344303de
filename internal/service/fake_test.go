package service

import (
	"context"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/models"
)

// memOrders is in-memory OrderRepository with the same conditional updates as the SQL one
type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]*models.Order)}
}

func (m *memOrders) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := *order
	m.orders[o.ID] = &o
	return nil
}

func (m *memOrders) GetOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) ListOrders(_ context.Context, _ models.OrderFilter) ([]models.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []models.Order
	for _, o := range m.orders {
		res = append(res, *o)
	}
	return res, len(res), nil
}

func (m *memOrders) UpdateOTP(_ context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.EmailVerified || o.Status != models.OrderStatusPending {
		return models.ErrConflict
	}
	o.OTPCode, o.OTPExpiresAt = &code, &expiresAt
	return nil
}

func (m *memOrders) MarkEmailVerified(_ context.Context, id uuid.UUID, code string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != models.OrderStatusPending || o.OTPCode == nil || *o.OTPCode != code || !o.OTPExpiresAt.After(now) {
		return models.ErrInvalidOrExpiredOTP
	}
	o.EmailVerified = true
	o.Status = models.OrderStatusEmailVerified
	o.OTPCode, o.OTPExpiresAt = nil, nil
	return nil
}

func (m *memOrders) SetPaymentProof(_ context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !o.EmailVerified || !o.Status.CanTransitionTo(models.OrderStatusPaymentUploaded) {
		return models.ErrInvalidState
	}
	o.PaymentProofURL = &url
	o.Status = models.OrderStatusPaymentUploaded
	return nil
}

func (m *memOrders) UpdateDecision(_ context.Context, id uuid.UUID, status models.OrderStatus, note *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != models.OrderStatusPaymentUploaded {
		return models.ErrInvalidState
	}
	o.Status = status
	if note != nil {
		o.AdminNotes = note
	}
	return nil
}

func (m *memOrders) ClearExpiredOTP(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		if !o.EmailVerified && o.OTPExpiresAt != nil && !o.OTPExpiresAt.After(now) {
			o.OTPCode, o.OTPExpiresAt = nil, nil
			n++
		}
	}
	return n, nil
}

// sentMail records emails passed to notifier
type sentMail struct {
	kind string
	to   string
	code string
	body string
}

type recordNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordNotifier) record(m sentMail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordNotifier) SendOtpEmail(_ context.Context, to, code, _ string, _ int) error {
	return r.record(sentMail{kind: "otp", to: to, code: code})
}

func (r *recordNotifier) SendRejectionEmail(_ context.Context, to, _, reason string, _ uuid.UUID) error {
	return r.record(sentMail{kind: "rejection", to: to, body: reason})
}

func (r *recordNotifier) SendDeliveryEmail(_ context.Context, order *models.Order) error {
	return r.record(sentMail{kind: "delivery", to: order.Email})
}

func (r *recordNotifier) SendContactMessage(_ context.Context, msg *models.ContactMessage) error {
	return r.record(sentMail{kind: "contact", to: msg.Email, body: msg.Message})
}

func (r *recordNotifier) byKind(kind string) []sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []sentMail
	for _, m := range r.sent {
		if m.kind == kind {
			res = append(res, m)
		}
	}
	return res
}

type staticQR string

func (q staticQR) Reference() string { return string(q) }

type memBlobs struct{}

func (memBlobs) Store(_ context.Context, data []byte, category, ownerID string) (string, error) {
	return "/files/" + category + "/" + ownerID + "/proof" + mimetype.Detect(data).Extension(), nil
}

func (memBlobs) Delete(context.Context, string) error {
	return nil
}

// codeSeq returns codes one by one
func codeSeq(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

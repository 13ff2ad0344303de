package service

import "context"

// HealthService reports storage availability
type HealthService struct {
	db Pinger
}

// NewHealthService creates new HealthService instance
func NewHealthService(db Pinger) *HealthService {
	return &HealthService{db: db}
}

// Check pings storage
func (hs *HealthService) Check(ctx context.Context) error {
	return hs.db.Ping(ctx)
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/repository/postgres"
)

const (
	selectAdminByEmailQuery = `
						SELECT id, email, password_hash, created_at FROM admins
						WHERE email = $1
`
	upsertAdminQuery = `
						INSERT INTO admins (email, password_hash)
						VALUES ($1, $2)
						ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
						RETURNING id, email, password_hash, created_at
`
)

// AdminRepository implements AdminRepository interface
type AdminRepository struct {
	db *postgres.DB
}

// NewAdminRepository creates new AdminRepository instance
func NewAdminRepository(db *postgres.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// GetAdminByEmail returns admin by email
func (ar *AdminRepository) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	admin := models.Admin{}

	err := ar.db.Read(ctx, func(ctx context.Context) error {
		return ar.db.QueryRow(ctx, selectAdminByEmailQuery, email).Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return &admin, nil
}

// UpsertAdmin creates admin or replaces its password hash
func (ar *AdminRepository) UpsertAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	err := ar.db.QueryRow(ctx, upsertAdminQuery, admin.Email, admin.PasswordHash).Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		return nil, postgres.Classify(err)
	}

	return admin, nil
}

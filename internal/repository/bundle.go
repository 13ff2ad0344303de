package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/rookgm/bundlehub/internal/repository/postgres"
)

const (
	bundleColumns = `id, name, slug, description, price, is_active, download_url, created_at`

	insertBundleQuery = `
						INSERT INTO bundles (id, name, slug, description, price, is_active)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING ` + bundleColumns
	selectBundleByIDQuery = `
						SELECT ` + bundleColumns + ` FROM bundles
						WHERE id = $1
`
	selectBundleBySlugQuery = `
						SELECT ` + bundleColumns + ` FROM bundles
						WHERE slug = $1
`
	selectBundlesQuery = `
						SELECT ` + bundleColumns + ` FROM bundles
						WHERE ($1 = FALSE OR is_active)
						ORDER BY created_at DESC
`
	updateBundleActiveQuery = `
						UPDATE bundles SET is_active = $2
						WHERE id = $1
`
	updateBundleDownloadURLQuery = `
						UPDATE bundles SET download_url = $2
						WHERE id = $1
`
)

// BundleRepository implements BundleRepository interface
type BundleRepository struct {
	db *postgres.DB
}

// NewBundleRepository creates new BundleRepository instance
func NewBundleRepository(db *postgres.DB) *BundleRepository {
	return &BundleRepository{db: db}
}

// CreateBundle inserts new bundle
func (br *BundleRepository) CreateBundle(ctx context.Context, bundle *models.Bundle) (*models.Bundle, error) {
	created, err := scanBundle(br.db.QueryRow(ctx, insertBundleQuery,
		bundle.ID, bundle.Name, bundle.Slug, bundle.Description, bundle.Price, bundle.IsActive))
	if err != nil {
		if br.db.ErrorCode(err) == pgErrUniqueViolationCode {
			return nil, models.ErrConflict
		}
		return nil, postgres.Classify(err)
	}

	return created, nil
}

// GetBundleByID returns bundle by id
func (br *BundleRepository) GetBundleByID(ctx context.Context, id uuid.UUID) (*models.Bundle, error) {
	return br.getOne(ctx, selectBundleByIDQuery, id)
}

// GetBundleBySlug returns bundle by slug
func (br *BundleRepository) GetBundleBySlug(ctx context.Context, slug string) (*models.Bundle, error) {
	return br.getOne(ctx, selectBundleBySlugQuery, slug)
}

// ListBundles returns bundles newest first
func (br *BundleRepository) ListBundles(ctx context.Context, activeOnly bool) ([]models.Bundle, error) {
	var bundles []models.Bundle

	err := br.db.Read(ctx, func(ctx context.Context) error {
		rows, err := br.db.Query(ctx, selectBundlesQuery, activeOnly)
		if err != nil {
			return err
		}
		defer rows.Close()

		bundles = []models.Bundle{}
		for rows.Next() {
			b, err := scanBundle(rows)
			if err != nil {
				return err
			}
			bundles = append(bundles, *b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return bundles, nil
}

// SetBundleActive toggles bundle availability
func (br *BundleRepository) SetBundleActive(ctx context.Context, id uuid.UUID, active bool) error {
	return br.exec(ctx, updateBundleActiveQuery, id, active)
}

// SetBundleDownloadURL sets bundle content reference
func (br *BundleRepository) SetBundleDownloadURL(ctx context.Context, id uuid.UUID, url string) error {
	return br.exec(ctx, updateBundleDownloadURLQuery, id, url)
}

func (br *BundleRepository) getOne(ctx context.Context, query string, arg any) (*models.Bundle, error) {
	var bundle *models.Bundle

	err := br.db.Read(ctx, func(ctx context.Context) error {
		b, err := scanBundle(br.db.QueryRow(ctx, query, arg))
		if err != nil {
			return err
		}
		bundle = b
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return bundle, nil
}

func (br *BundleRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := br.db.Exec(ctx, query, args...)
	if err != nil {
		return postgres.Classify(err)
	}

	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func scanBundle(row pgx.Row) (*models.Bundle, error) {
	b := models.Bundle{}
	err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.Description, &b.Price, &b.IsActive, &b.DownloadURL, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

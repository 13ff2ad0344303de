package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rookgm/bundlehub/internal/blob"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBundleArchive = 500 << 20

var (
	slugRe      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugChar = regexp.MustCompile(`[^a-z0-9]+`)
)

// CreateBundleInput contains new bundle data
type CreateBundleInput struct {
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	IsActive    bool
}

// CatalogueService manages bundles
type CatalogueService struct {
	bundles BundleRepository
	blobs   BlobStore
	logger  *zap.Logger
}

// NewCatalogueService creates new CatalogueService instance
func NewCatalogueService(bundles BundleRepository, blobs BlobStore, logger *zap.Logger) *CatalogueService {
	return &CatalogueService{
		bundles: bundles,
		blobs:   blobs,
		logger:  logger,
	}
}

// ListActiveBundles returns bundles available for purchase
func (cs *CatalogueService) ListActiveBundles(ctx context.Context) ([]models.Bundle, error) {
	return cs.bundles.ListBundles(ctx, true)
}

// GetActiveBundle returns bundle by slug, inactive bundles are not found
func (cs *CatalogueService) GetActiveBundle(ctx context.Context, slug string) (*models.Bundle, error) {
	b, err := cs.bundles.GetBundleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, models.ErrNotFound
	}
	return b, nil
}

// ListBundles returns all bundles
func (cs *CatalogueService) ListBundles(ctx context.Context, principal *models.TokenPayload) ([]models.Bundle, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return cs.bundles.ListBundles(ctx, false)
}

// CreateBundle adds bundle, slug is derived from name when empty
func (cs *CatalogueService) CreateBundle(ctx context.Context, principal *models.TokenPayload, in CreateBundleInput) (*models.Bundle, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	name, err := requireText("name", in.Name, 200)
	if err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if !slugRe.MatchString(slug) {
		return nil, models.NewValidationError("slug", "must contain lowercase letters, digits and dashes")
	}

	if in.Price.IsNegative() {
		return nil, models.NewValidationError("price", "must not be negative")
	}

	bundle, err := cs.bundles.CreateBundle(ctx, &models.Bundle{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		IsActive:    in.IsActive,
	})
	if err != nil {
		return nil, err
	}

	cs.logger.Info("bundle created", zap.Stringer("bundle", bundle.ID), zap.String("slug", bundle.Slug))

	return bundle, nil
}

// SetBundleActive toggles bundle availability
func (cs *CatalogueService) SetBundleActive(ctx context.Context, principal *models.TokenPayload, id uuid.UUID, active bool) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	return cs.bundles.SetBundleActive(ctx, id, active)
}

// UploadBundleArchive stores bundle content and returns its download URL
func (cs *CatalogueService) UploadBundleArchive(ctx context.Context, principal *models.TokenPayload, id uuid.UUID, data []byte, filename string) (string, error) {
	if err := requireAdmin(principal); err != nil {
		return "", err
	}

	if len(data) == 0 {
		return "", models.NewValidationError("archive", "is required")
	}
	if len(data) > maxBundleArchive {
		return "", models.NewValidationError("archive", "is too large")
	}
	if mtype := mimetype.Detect(data); !mtype.Is("application/zip") {
		return "", models.NewValidationError("archive", fmt.Sprintf("must be zip archive, got %s", mtype.String()))
	}

	if _, err := cs.bundles.GetBundleByID(ctx, id); err != nil {
		return "", err
	}

	url, err := cs.blobs.Store(ctx, data, blob.CategoryBundles, id.String())
	if err != nil {
		return "", fmt.Errorf("store bundle archive: %w", err)
	}

	if err := cs.bundles.SetBundleDownloadURL(ctx, id, url); err != nil {
		if derr := cs.blobs.Delete(context.WithoutCancel(ctx), url); derr != nil {
			cs.logger.Warn("orphaned bundle archive", zap.String("url", url), zap.Error(derr))
		}
		return "", err
	}

	cs.logger.Info("bundle archive uploaded",
		zap.Stringer("bundle", id),
		zap.String("url", url),
		zap.String("filename", filename))

	return url, nil
}

func slugify(s string) string {
	return strings.Trim(nonSlugChar.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

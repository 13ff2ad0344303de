package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bundle is purchasable digital product
type Bundle struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	IsActive    bool
	DownloadURL *string
	CreatedAt   time.Time
}

// Summary returns short form of bundle
func (b *Bundle) Summary() BundleSummary {
	return BundleSummary{
		ID:          b.ID,
		Name:        b.Name,
		Slug:        b.Slug,
		DownloadURL: b.DownloadURL,
	}
}

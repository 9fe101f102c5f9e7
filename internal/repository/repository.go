// Package repository declares the storage contract for donations.
//
// Donations are write-once: there is no Update or Delete. Implementations
// assign ID, CreatedAt and UpdatedAt in Create.
package repository

import (
	"context"

	"github.com/sakif/donation-backend/internal/model"
)

type DonationRepository interface {
	Create(ctx context.Context, donation *model.Donation) error
	GetByID(ctx context.Context, id string) (*model.Donation, error)
	// List returns every donation, newest first.
	List(ctx context.Context) ([]model.Donation, error)
	// CountByPackage aggregates in the database rather than loading rows.
	CountByPackage(ctx context.Context) (map[string]int64, error)
	// TotalAmount is the sum of all amounts in minor units.
	TotalAmount(ctx context.Context) (int64, error)
}

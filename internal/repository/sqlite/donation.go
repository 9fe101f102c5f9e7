package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/donation-backend/internal/apperror"
	"github.com/sakif/donation-backend/internal/model"
	"github.com/sakif/donation-backend/internal/repository"
)

var _ repository.DonationRepository = (*DB)(nil)

const donationColumns = `id, stripe_card_token, stripe_customer_id, stripe_charge_id,
	package, amount, vat_id, add_vat,
	name, email, address, zip, city, state, country,
	twitter_handle, github_handle, homepage, comment, display, gravatar_url,
	created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDonation(s scanner, d *model.Donation) error {
	var gravatar string
	return s.Scan(
		&d.ID, &d.CardToken, &d.CustomerID, &d.ChargeID,
		&d.Package, &d.Amount, &d.VATID, &d.AddVAT,
		&d.Name, &d.Email, &d.Address, &d.Zip, &d.City, &d.State, &d.Country,
		&d.TwitterHandle, &d.GithubHandle, &d.Homepage, &d.Comment, &d.Display, &gravatar,
		&d.CreatedAt, &d.UpdatedAt,
	)
}

// Create inserts a donation, assigning its ID and timestamps in place.
//
// The gravatar_url column is filled from the email for schema compatibility;
// reads always recompute it from the email.
func (db *DB) Create(ctx context.Context, d *model.Donation) error {
	d.ID = xid.New().String()

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO donations (`+donationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CardToken, d.CustomerID, d.ChargeID,
		d.Package, d.Amount, d.VATID, d.AddVAT,
		d.Name, d.Email, d.Address, d.Zip, d.City, d.State, d.Country,
		d.TwitterHandle, d.GithubHandle, d.Homepage, d.Comment, d.Display, d.GravatarURL(),
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		d.ID = ""
		return fmt.Errorf("sqlite: creating donation: %w", err)
	}

	return nil
}

// GetByID returns apperror.ErrNotFound when no donation has the id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Donation, error) {
	var d model.Donation

	err := scanDonation(db.conn.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = ?`,
		id,
	), &d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("donation", id)
		}
		return nil, fmt.Errorf("sqlite: getting donation %s: %w", id, err)
	}

	return &d, nil
}

// List returns every donation newest first. Rows sharing a timestamp come
// back in reverse insertion order.
func (db *DB) List(ctx context.Context) ([]model.Donation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+donationColumns+`
		 FROM donations
		 ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing donations: %w", err)
	}
	defer rows.Close()

	donations := []model.Donation{}
	for rows.Next() {
		var d model.Donation
		if err := scanDonation(rows, &d); err != nil {
			return nil, fmt.Errorf("sqlite: scanning donation row: %w", err)
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating donations: %w", err)
	}

	return donations, nil
}

// CountByPackage runs a GROUP BY in SQLite; no donation rows are loaded.
func (db *DB) CountByPackage(ctx context.Context) (map[string]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT package, COUNT(id) FROM donations GROUP BY package`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting donations by package: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var (
			pkg   string
			count int64
		)
		if err := rows.Scan(&pkg, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning package count: %w", err)
		}
		stats[pkg] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating package counts: %w", err)
	}

	return stats, nil
}

func (db *DB) TotalAmount(ctx context.Context) (int64, error) {
	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM donations`,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlite: summing donation amounts: %w", err)
	}
	return total, nil
}

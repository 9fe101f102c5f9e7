package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/donation-backend/internal/apperror"
	"github.com/sakif/donation-backend/internal/model"
)

// newTestDB returns a fresh in-memory database, closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestDonation(t *testing.T, db *DB, pkg string, amount int64) *model.Donation {
	t.Helper()
	d := &model.Donation{
		Package:    pkg,
		Amount:     amount,
		CardToken:  "tok_visa",
		CustomerID: "cust_test",
		Display:    true,
	}
	if err := db.Create(context.Background(), d); err != nil {
		t.Fatalf("failed to create test donation: %v", err)
	}
	return d
}

// insertAt seeds a donation with a fixed creation time.
func insertAt(t *testing.T, db *DB, d *model.Donation, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.Create(ctx, d))
	d.CreatedAt = at.UTC()
	d.UpdatedAt = at.UTC()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE donations SET created_at = ?, updated_at = ? WHERE id = ?`,
		d.CreatedAt, d.UpdatedAt, d.ID,
	)
	require.NoError(t, err)
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.migrate())
	require.NoError(t, db.migrate())
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	d := &model.Donation{Package: "tiny", Amount: 1000, Display: true}
	require.NoError(t, db.Create(context.Background(), d))

	assert.NotEmpty(t, d.ID)
	assert.False(t, d.CreatedAt.IsZero())
	assert.False(t, d.UpdatedAt.IsZero())
	assert.True(t, d.IsPersisted())
}

func TestCreate_VerifyPersistence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	original := &model.Donation{
		CardToken:     "tok_visa",
		CustomerID:    "cust_123",
		ChargeID:      "chrg_456",
		Package:       "big",
		Amount:        2500,
		AddVAT:        true,
		VATID:         "DE123",
		Name:          "Ada",
		Email:         "ada@example.com",
		Address:       "1 Analytical Way",
		Zip:           "12345",
		City:          "London",
		State:         "LDN",
		Country:       "UK",
		TwitterHandle: "ada",
		GithubHandle:  "ada-gh",
		Homepage:      "http://ada.dev",
		Comment:       "for the engine",
		Display:       false,
	}
	require.NoError(t, db.Create(ctx, original))

	found, err := db.GetByID(ctx, original.ID)
	require.NoError(t, err)

	assert.Equal(t, original.ID, found.ID)
	assert.Equal(t, original.CardToken, found.CardToken)
	assert.Equal(t, original.CustomerID, found.CustomerID)
	assert.Equal(t, original.ChargeID, found.ChargeID)
	assert.Equal(t, original.Package, found.Package)
	assert.Equal(t, original.Amount, found.Amount)
	assert.True(t, found.AddVAT)
	assert.Equal(t, original.VATID, found.VATID)
	assert.Equal(t, original.Name, found.Name)
	assert.Equal(t, original.Email, found.Email)
	assert.Equal(t, original.Address, found.Address)
	assert.Equal(t, original.Zip, found.Zip)
	assert.Equal(t, original.City, found.City)
	assert.Equal(t, original.State, found.State)
	assert.Equal(t, original.Country, found.Country)
	assert.Equal(t, original.TwitterHandle, found.TwitterHandle)
	assert.Equal(t, original.GithubHandle, found.GithubHandle)
	assert.Equal(t, original.Homepage, found.Homepage)
	assert.Equal(t, original.Comment, found.Comment)
	assert.False(t, found.Display)
	assert.WithinDuration(t, original.CreatedAt, found.CreatedAt, time.Second)
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent-id")
	if err == nil {
		t.Fatal("GetByID() should have returned an error for nonexistent ID")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	donations, err := db.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, donations, "empty listing encodes as [] not null")
	assert.Len(t, donations, 0)
}

func TestList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	d1 := &model.Donation{Package: "t1", Amount: 100}
	d2 := &model.Donation{Package: "t2", Amount: 100}
	d3 := &model.Donation{Package: "t3", Amount: 100}
	// insert out of order so the result cannot come from insertion order
	insertAt(t, db, d2, base.Add(time.Hour))
	insertAt(t, db, d3, base.Add(2*time.Hour))
	insertAt(t, db, d1, base)

	donations, err := db.List(context.Background())
	require.NoError(t, err)
	require.Len(t, donations, 3)

	assert.Equal(t, []string{d3.ID, d2.ID, d1.ID},
		[]string{donations[0].ID, donations[1].ID, donations[2].ID})
}

func TestList_Unbounded(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 150; i++ {
		createTestDonation(t, db, "tiny", 100)
	}

	donations, err := db.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, donations, 150)
}

func TestCountByPackage(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 3; i++ {
		createTestDonation(t, db, "tiny", 1000)
	}
	for i := 0; i < 2; i++ {
		createTestDonation(t, db, "big", 10000)
	}

	stats, err := db.CountByPackage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"tiny": 3, "big": 2}, stats)
}

func TestCountByPackage_Empty(t *testing.T) {
	db := newTestDB(t)

	stats, err := db.CountByPackage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestTotalAmount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	total, err := db.TotalAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	createTestDonation(t, db, "tiny", 1000)
	createTestDonation(t, db, "big", 2550)

	total, err = db.TotalAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3550), total)
}

func TestCreate_ClosedDatabase(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	d := &model.Donation{Package: "tiny", Amount: 1000}
	err = db.Create(context.Background(), d)
	assert.Error(t, err)
	assert.Empty(t, d.ID, "failed insert leaves the donation unsaved")
}

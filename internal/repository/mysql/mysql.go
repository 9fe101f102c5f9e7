// Package mysql implements repository.DonationRepository on MySQL through
// gorm, for deployments that already run a MySQL server.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sakif/donation-backend/internal/apperror"
	"github.com/sakif/donation-backend/internal/model"
	"github.com/sakif/donation-backend/internal/repository"
)

var _ repository.DonationRepository = (*DB)(nil)

// Config holds the connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// DSN renders the go-sql-driver DSN. parseTime is required for DATETIME
// columns to scan into time.Time.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

type DB struct {
	gorm *gorm.DB
}

// donationRecord is the gorm mapping of the donations table. It keeps gorm
// tags out of the model package.
//
// No field carries a gorm default: gorm skips zero values of such fields on
// insert, which would turn display=false into the column default.
type donationRecord struct {
	ID               string `gorm:"primaryKey;size:20"`
	StripeCardToken  string `gorm:"size:255"`
	StripeCustomerID string `gorm:"size:255"`
	StripeChargeID   string `gorm:"size:255"`
	Package          string `gorm:"size:50;index"`
	Amount           int64
	VATID            string `gorm:"column:vat_id;size:50"`
	AddVAT           bool   `gorm:"column:add_vat"`
	Name             string `gorm:"size:255"`
	Email            string `gorm:"size:255"`
	Address          string `gorm:"size:255"`
	Zip              string `gorm:"size:20"`
	City             string `gorm:"size:100"`
	State            string `gorm:"size:100"`
	Country          string `gorm:"size:100"`
	TwitterHandle    string `gorm:"size:50"`
	GithubHandle     string `gorm:"size:50"`
	Homepage         string `gorm:"size:255"`
	Display          bool   `gorm:"not null"`
	Comment          string `gorm:"type:text"`
	GravatarURL      string `gorm:"size:255"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (donationRecord) TableName() string { return "donations" }

func toRecord(d *model.Donation) donationRecord {
	return donationRecord{
		ID:               d.ID,
		StripeCardToken:  d.CardToken,
		StripeCustomerID: d.CustomerID,
		StripeChargeID:   d.ChargeID,
		Package:          d.Package,
		Amount:           d.Amount,
		VATID:            d.VATID,
		AddVAT:           d.AddVAT,
		Name:             d.Name,
		Email:            d.Email,
		Address:          d.Address,
		Zip:              d.Zip,
		City:             d.City,
		State:            d.State,
		Country:          d.Country,
		TwitterHandle:    d.TwitterHandle,
		GithubHandle:     d.GithubHandle,
		Homepage:         d.Homepage,
		Display:          d.Display,
		Comment:          d.Comment,
		GravatarURL:      d.GravatarURL(),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (r donationRecord) toModel() model.Donation {
	return model.Donation{
		ID:            r.ID,
		CardToken:     r.StripeCardToken,
		CustomerID:    r.StripeCustomerID,
		ChargeID:      r.StripeChargeID,
		Package:       r.Package,
		Amount:        r.Amount,
		VATID:         r.VATID,
		AddVAT:        r.AddVAT,
		Name:          r.Name,
		Email:         r.Email,
		Address:       r.Address,
		Zip:           r.Zip,
		City:          r.City,
		State:         r.State,
		Country:       r.Country,
		TwitterHandle: r.TwitterHandle,
		GithubHandle:  r.GithubHandle,
		Homepage:      r.Homepage,
		Display:       r.Display,
		Comment:       r.Comment,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// New connects, tunes the pool and migrates the donations table.
// gorm's own logging goes through log as well.
func New(cfg Config, log *slog.Logger) (*DB, error) {
	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	log.Info("connecting to mysql",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.DBName),
	)

	conn, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("mysql: opening database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql: getting connection pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(15)
	sqlDB.SetMaxOpenConns(120)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := conn.AutoMigrate(&donationRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("mysql: running migrations: %w", err)
	}

	return &DB{gorm: conn}, nil
}

func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) Create(ctx context.Context, d *model.Donation) error {
	d.ID = xid.New().String()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	rec := toRecord(d)
	if err := db.gorm.WithContext(ctx).Create(&rec).Error; err != nil {
		d.ID = ""
		return fmt.Errorf("mysql: creating donation: %w", err)
	}
	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.Donation, error) {
	var rec donationRecord
	err := db.gorm.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("donation", id)
		}
		return nil, fmt.Errorf("mysql: getting donation %s: %w", id, err)
	}
	d := rec.toModel()
	return &d, nil
}

// List orders by created_at, then by id; xids sort by creation time, so
// ties keep reverse insertion order.
func (db *DB) List(ctx context.Context) ([]model.Donation, error) {
	var recs []donationRecord
	err := db.gorm.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("mysql: listing donations: %w", err)
	}

	donations := make([]model.Donation, 0, len(recs))
	for _, r := range recs {
		donations = append(donations, r.toModel())
	}
	return donations, nil
}

type packageCount struct {
	Package string
	Count   int64
}

func (db *DB) CountByPackage(ctx context.Context) (map[string]int64, error) {
	var rows []packageCount
	err := db.gorm.WithContext(ctx).
		Model(&donationRecord{}).
		Select("package, COUNT(id) AS count").
		Group("package").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("mysql: counting donations by package: %w", err)
	}

	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Package] = r.Count
	}
	return stats, nil
}

func (db *DB) TotalAmount(ctx context.Context) (int64, error) {
	var total int64
	err := db.gorm.WithContext(ctx).
		Model(&donationRecord{}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("mysql: summing donation amounts: %w", err)
	}
	return total, nil
}

// Package service contains the donation business logic.
//
//	Handler (HTTP) → DonationService → DonationRepository (storage)
//	                                 ↘ payment.Processor (remote card processor)
//	                                 ↘ Publisher (live feed)
//
// The service knows nothing about HTTP. It returns apperror values and the
// handler maps those to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/donation-backend/internal/apperror"
	"github.com/sakif/donation-backend/internal/model"
	"github.com/sakif/donation-backend/internal/payment"
	"github.com/sakif/donation-backend/internal/repository"
)

// ChargeFailedMessage is shown to the donor for any processor rejection.
// The processor's own message only goes to the logs.
const ChargeFailedMessage = "An error occurred while trying to charge your credit card. Please check your card details and try again."

// Publisher receives the public view of every newly persisted donation.
type Publisher interface {
	Publish(view model.PublicView)
}

// DonationService handles creating (validate, charge, persist) and reading
// donations.
type DonationService struct {
	repo      repository.DonationRepository
	processor payment.Processor
	publisher Publisher
	validator *Validator
	currency  string
	logger    *slog.Logger
}

// NewDonationService wires the service. publisher may be nil.
func NewDonationService(
	repo repository.DonationRepository,
	processor payment.Processor,
	publisher Publisher,
	currency string,
	logger *slog.Logger,
) *DonationService {
	return &DonationService{
		repo:      repo,
		processor: processor,
		publisher: publisher,
		validator: NewValidator(),
		currency:  strings.ToLower(currency),
		logger:    logger,
	}
}

// Lookup says how a request's donation is obtained: ByID loads a persisted
// donation, BuildNew constructs an unsaved one from submitted fields.
type Lookup interface {
	isLookup()
}

type ByID struct {
	ID string
}

type BuildNew struct {
	Fields model.Fields
}

func (ByID) isLookup()     {}
func (BuildNew) isLookup() {}

// Resolve turns a Lookup into the donation for one request. The handler
// calls it once and passes the result along explicitly.
func (s *DonationService) Resolve(ctx context.Context, lookup Lookup) (*model.Donation, error) {
	switch l := lookup.(type) {
	case ByID:
		return s.Get(ctx, l.ID)
	case BuildNew:
		return model.NewDonation(l.Fields), nil
	default:
		return nil, fmt.Errorf("service: unsupported lookup %T", lookup)
	}
}

// Validate reports field problems as apperror.Errors (matches ErrValidation).
func (s *DonationService) Validate(d *model.Donation) error {
	return s.validator.Validate(d)
}

// Create validates d and, if valid, charges and saves it.
func (s *DonationService) Create(ctx context.Context, d *model.Donation) (*model.Donation, error) {
	if err := s.Validate(d); err != nil {
		return nil, err
	}
	return s.ChargeAndSave(ctx, d)
}

// ChargeAndSave creates the remote customer, charges it and persists the
// donation, strictly in that order.
//
// Outcomes:
//   - success: d is persisted with CustomerID and ChargeID set.
//   - apperror.ErrPayment: the processor rejected a call; nothing persisted.
//     A customer created before a failed charge is left on the processor.
//   - apperror.ErrComputation: VAT was requested on an amount that is not a
//     whole number of currency units; no remote call is made.
//   - apperror.ErrStorage: the card WAS charged but persisting failed. This is
//     logged for manual reconciliation and never retried, since charges are
//     not idempotent.
func (s *DonationService) ChargeAndSave(ctx context.Context, d *model.Donation) (*model.Donation, error) {
	if d.IsPersisted() {
		return nil, fmt.Errorf("service: donation %s is already persisted", d.ID)
	}

	amount, err := d.ChargeAmount()
	if err != nil {
		s.logger.Error("cannot compute charge amount",
			slog.Int64("amount", d.Amount),
			slog.Bool("addVAT", d.AddVAT),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	// === 1. CUSTOMER ===
	customerID, err := s.processor.CreateCustomer(ctx, payment.CustomerRequest{
		Description: d.Name,
		Email:       d.Email,
		CardToken:   d.CardToken,
	})
	if err != nil {
		s.logger.Error("processor error while creating customer",
			slog.String("error", err.Error()),
			slog.String("name", d.Name),
			slog.String("email", d.Email),
		)
		return nil, apperror.PaymentFailed(ChargeFailedMessage, err)
	}
	d.CustomerID = customerID

	// === 2. CHARGE ===
	description := chargeDescription(d)
	chargeID, err := s.processor.CreateCharge(ctx, payment.ChargeRequest{
		Description: description,
		Amount:      amount,
		Currency:    s.currency,
		CustomerID:  customerID,
	})
	if err != nil {
		s.logger.Error("processor error while creating charge",
			slog.String("error", err.Error()),
			slog.String("description", description),
		)
		s.logger.Warn("processor customer left without a charge",
			slog.String("customerID", customerID),
			slog.String("email", d.Email),
		)
		return nil, apperror.PaymentFailed(ChargeFailedMessage, err)
	}
	d.ChargeID = chargeID
	d.ChargedAmount = amount

	// === 3. PERSIST ===
	if err := s.repo.Create(ctx, d); err != nil {
		s.logger.Error("donation charged but not saved, manual reconciliation required",
			slog.String("customerID", customerID),
			slog.String("chargeID", chargeID),
			slog.String("email", d.Email),
			slog.String("package", d.Package),
			slog.Int64("chargedAmount", amount),
			slog.String("currency", s.currency),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StorageFailed(
			fmt.Sprintf("Your card was charged but we could not record your donation. Please contact us and quote reference %s.", chargeID),
			err,
		)
	}

	s.logger.Info("donation created",
		slog.String("id", d.ID),
		slog.String("package", d.Package),
		slog.Int64("amount", d.Amount),
		slog.Int64("chargedAmount", amount),
	)

	if s.publisher != nil {
		s.publisher.Publish(d.PublicView())
	}

	return d, nil
}

// chargeDescription reads "ada@example.com (tiny, 1000)".
func chargeDescription(d *model.Donation) string {
	return fmt.Sprintf("%s (%s, %d)", d.Email, d.Package, d.Amount)
}

// Get returns apperror.ErrNotFound for unknown ids.
func (s *DonationService) Get(ctx context.Context, id string) (*model.Donation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "donation ID is required")
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to load donation",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}
	return d, nil
}

// List returns every donation, newest first. Not paginated.
func (s *DonationService) List(ctx context.Context) ([]model.Donation, error) {
	donations, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list donations", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing donations: %w", err)
	}
	return donations, nil
}

// Stats maps package name to the number of donations in it.
func (s *DonationService) Stats(ctx context.Context) (map[string]int64, error) {
	stats, err := s.repo.CountByPackage(ctx)
	if err != nil {
		s.logger.Error("failed to compute donation stats", slog.String("error", err.Error()))
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	return stats, nil
}

// Total is the sum of all donations in major units.
func (s *DonationService) Total(ctx context.Context) (float64, error) {
	total, err := s.repo.TotalAmount(ctx)
	if err != nil {
		s.logger.Error("failed to compute donation total", slog.String("error", err.Error()))
		return 0, fmt.Errorf("computing total: %w", err)
	}
	return float64(total) / 100, nil
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// DefaultTimeout bounds each processor call when none is configured.
const DefaultTimeout = 15 * time.Second

// Omise implements Processor on the Omise API.
type Omise struct {
	client  *omise.Client
	timeout time.Duration
}

var _ Processor = (*Omise)(nil)

// NewOmise builds a client from the account's public and secret keys.
// A non-positive timeout falls back to DefaultTimeout.
func NewOmise(publicKey, secretKey string, timeout time.Duration) (*Omise, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("payment: creating omise client: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Omise{client: client, timeout: timeout}, nil
}

func (o *Omise) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	customer, create := &omise.Customer{}, &operations.CreateCustomer{
		Description: req.Description,
		Email:       req.Email,
		Card:        req.CardToken,
	}

	err := callWithTimeout(ctx, o.timeout, func() error {
		return o.client.Do(customer, create)
	})
	if err != nil {
		return "", fmt.Errorf("payment: creating customer: %w", describe(err))
	}
	return customer.ID, nil
}

func (o *Omise) CreateCharge(ctx context.Context, req ChargeRequest) (string, error) {
	charge, create := &omise.Charge{}, &operations.CreateCharge{
		Customer:    req.CustomerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	}

	err := callWithTimeout(ctx, o.timeout, func() error {
		return o.client.Do(charge, create)
	})
	if err != nil {
		return "", fmt.Errorf("payment: creating charge: %w", describe(err))
	}
	return charge.ID, nil
}

// describe surfaces the Omise error code next to the message so logs show
// e.g. "invalid_card: ..." instead of a bare string.
func describe(err error) error {
	var oe *omise.Error
	if errors.As(err, &oe) && oe.Code != "" {
		return fmt.Errorf("%s: %w", oe.Code, err)
	}
	return err
}

// callWithTimeout runs fn in its own goroutine and stops waiting once the
// timeout or ctx ends. The omise client takes no context, so a call that
// outlives the deadline keeps running in the background and its result is
// discarded.
func callWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

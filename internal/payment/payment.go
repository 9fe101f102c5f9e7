// Package payment is the boundary to the external card processor.
//
// The service layer only sees the Processor interface: create a customer from
// a card token, then charge that customer. Omise is the production
// implementation; tests substitute fakes.
package payment

import (
	"context"
	"errors"
)

// ErrTimeout is returned when the processor does not answer within the
// configured per-call timeout.
var ErrTimeout = errors.New("payment: processor call timed out")

type CustomerRequest struct {
	Description string
	Email       string
	CardToken   string
}

type ChargeRequest struct {
	Description string
	Amount      int64 // minor units
	Currency    string
	CustomerID  string
}

// Processor creates remote customers and charges. Both calls block until the
// processor answers, the context ends, or the implementation's timeout fires.
type Processor interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (customerID string, err error)
	CreateCharge(ctx context.Context, req ChargeRequest) (chargeID string, err error)
}

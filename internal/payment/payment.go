// Package payment defines the boundary to the external payment provider.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidCharge indicates a charge the provider cannot process at all.
var ErrInvalidCharge = errors.New("invalid charge")

// Charge is a single payment request.
type Charge struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

// Outcome is the provider's verdict. TransactionID is set only on success and
// Reason only on failure.
type Outcome struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Approved builds a successful outcome.
func Approved(transactionID string) Outcome {
	return Outcome{Success: true, TransactionID: transactionID}
}

// Declined builds a failed outcome.
func Declined(reason string) Outcome {
	return Outcome{Success: false, Reason: reason}
}

// Provider authorizes charges. Implementations must not retry internally.
type Provider interface {
	Authorize(ctx context.Context, charge Charge) (Outcome, error)
}

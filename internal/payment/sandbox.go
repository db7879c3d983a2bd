package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sandbox is a local provider that approves any positive charge up to a
// ceiling. A zero ceiling means no limit.
type Sandbox struct {
	currency string
	ceiling  decimal.Decimal
	logger   *slog.Logger
}

// NewSandbox creates a sandbox provider.
func NewSandbox(currency string, ceiling decimal.Decimal, logger *slog.Logger) *Sandbox {
	return &Sandbox{currency: strings.ToUpper(currency), ceiling: ceiling, logger: logger}
}

// Authorize approves or declines the charge.
func (s *Sandbox) Authorize(ctx context.Context, charge Charge) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(charge.Description) == "" {
		return Outcome{}, fmt.Errorf("%w: description required", ErrInvalidCharge)
	}

	currency := strings.ToUpper(charge.Currency)
	if currency == "" {
		currency = s.currency
	}

	var outcome Outcome
	switch {
	case s.currency != "" && currency != s.currency:
		outcome = Declined(fmt.Sprintf("unsupported currency %s", currency))
	case !charge.Amount.IsPositive():
		outcome = Declined("amount must be positive")
	case !s.ceiling.IsZero() && charge.Amount.GreaterThan(s.ceiling):
		outcome = Declined(fmt.Sprintf("amount exceeds limit %s", s.ceiling.StringFixed(2)))
	default:
		outcome = Approved("sbx_" + uuid.NewString())
	}

	if s.logger != nil {
		s.logger.Debug("sandbox payment", "amount", charge.Amount.String(), "currency", currency, "success", outcome.Success)
	}
	return outcome, nil
}

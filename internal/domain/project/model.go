package project

import (
	"fmt"
	"time"

	"github.com/rpggio/ngoboard/internal/domain/indicator"
)

// State is the lifecycle position of a project.
type State string

const (
	StatePendingApproval State = "PENDING_APPROVAL"
	StatePendingPayment  State = "PENDING_PAYMENT"
	StateHistorical      State = "HISTORICAL"
)

// Cadence is how often a project reports.
type Cadence string

const (
	CadenceMonthly    Cadence = "monthly"
	CadenceBimonthly  Cadence = "bimonthly"
	CadenceQuarterly  Cadence = "quarterly"
	CadenceSemiannual Cadence = "semiannual"
	CadenceAnnual     Cadence = "annual"
)

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Valid reports whether c is a known cadence.
func (c Cadence) Valid() bool {
	return c.PeriodsPerYear() > 0
}

// PeriodsPerYear returns the number of reporting periods in a year, or 0 for
// an unknown cadence.
func (c Cadence) PeriodsPerYear() int {
	switch c {
	case CadenceMonthly:
		return 12
	case CadenceBimonthly:
		return 6
	case CadenceQuarterly:
		return 4
	case CadenceSemiannual:
		return 2
	case CadenceAnnual:
		return 1
	}
	return 0
}

// Label returns a display label for the n-th period (1-based) of a year.
func (c Cadence) Label(n int) string {
	if n < 1 || n > c.PeriodsPerYear() {
		return fmt.Sprintf("period %d", n)
	}
	switch c {
	case CadenceMonthly:
		return monthNames[n-1]
	case CadenceBimonthly:
		return monthNames[2*n-2] + "-" + monthNames[2*n-1]
	case CadenceQuarterly:
		return fmt.Sprintf("Q%d", n)
	case CadenceSemiannual:
		return fmt.Sprintf("H%d", n)
	default:
		return "Year"
	}
}

// Axis is a named strategic category owning a set of indicators.
type Axis struct {
	Name       string                `json:"name"`
	Indicators []indicator.Indicator `json:"indicators"`
}

// Project is an NGO project with its indicator schema and lifecycle state.
type Project struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Duration       int        `json:"duration"`
	Cadence        Cadence    `json:"cadence"`
	OrganizationID string     `json:"organization_id"`
	Axes           []Axis     `json:"axes"`
	State          State      `json:"state"`
	Revision       int64      `json:"revision"`
	CreatedAt      time.Time  `json:"created_at"`
	ModifiedAt     time.Time  `json:"modified_at"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

// Axis returns the axis with the given name.
func (p *Project) Axis(name string) (*Axis, bool) {
	for i := range p.Axes {
		if p.Axes[i].Name == name {
			return &p.Axes[i], true
		}
	}
	return nil, false
}

// EmptyAxes returns the names of axes without indicators, in schema order.
func (p *Project) EmptyAxes() []string {
	var empty []string
	for _, axis := range p.Axes {
		if len(axis.Indicators) == 0 {
			empty = append(empty, axis.Name)
		}
	}
	return empty
}

// PaymentAttempt is the audit record of one payment authorization outcome.
type PaymentAttempt struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Success       bool      `json:"success"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	StateAtCall   State     `json:"state_at_call"`
	Actor         string    `json:"actor,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/shopspring/decimal"
)

// Period identifies a reporting period: the cadence ordinal within a year
// (1-12 for monthly, 1-4 for quarterly, ...) and the year.
type Period struct {
	Index int `json:"index"`
	Year  int `json:"year"`
}

func (p Period) String() string {
	return fmt.Sprintf("%d-%02d", p.Year, p.Index)
}

// DerivedField is a value computed from submitted indicators.
type DerivedField struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// MarshalJSON renders Value with two decimals, the precision it is stored at.
func (d DerivedField) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}{d.Name, d.Value.StringFixed(2)})
}

// Report is one locked submission of indicator values for a project axis
// and period.
type Report struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"project_id"`
	Axis        string            `json:"axis"`
	Period      Period            `json:"period"`
	Values      []indicator.Value `json:"values"`
	Derived     []DerivedField    `json:"derived,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	SubmittedBy string            `json:"submitted_by"`
	Locked      bool              `json:"locked"`
}

// Value returns the submitted value for the named indicator.
func (r *Report) Value(name string) (indicator.Value, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v, true
		}
	}
	return indicator.Value{}, false
}

// PeriodKey names one reported (axis, period) slot of a project.
type PeriodKey struct {
	Axis   string `json:"axis"`
	Period Period `json:"period"`
}

// ReportingPolicy decides whether reporting depends on project approval.
type ReportingPolicy string

const (
	// PolicyIndependent accepts reports in every project state.
	PolicyIndependent ReportingPolicy = "independent"
	// PolicyAfterApproval rejects reports while a project awaits approval.
	PolicyAfterApproval ReportingPolicy = "after_approval"
)

// Valid reports whether p is a known policy.
func (p ReportingPolicy) Valid() bool {
	return p == PolicyIndependent || p == PolicyAfterApproval
}

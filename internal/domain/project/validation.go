package project

import (
	"fmt"
	"strings"

	"github.com/rpggio/ngoboard/internal/domain/indicator"
)

// ValidateProject checks the descriptive fields and indicator schema of a
// project. Axes without indicators are accepted here; they only block
// approval.
func ValidateProject(p *Project) error {
	if p.Name == "" {
		return &InputError{Field: "name", Reason: "is required"}
	}
	if p.OrganizationID == "" {
		return &InputError{Field: "organization_id", Reason: "is required"}
	}
	if p.Duration < 1 {
		return &InputError{Field: "duration", Reason: "must be at least one period"}
	}
	if !p.Cadence.Valid() {
		return &InputError{Field: "cadence", Reason: fmt.Sprintf("unknown cadence %q", p.Cadence)}
	}
	if len(p.Axes) == 0 {
		return &InputError{Field: "axes", Reason: "at least one axis is required"}
	}

	seen := make(map[string]struct{}, len(p.Axes))
	for i, axis := range p.Axes {
		if axis.Name == "" {
			return &InputError{Field: fmt.Sprintf("axes[%d].name", i), Reason: "is required"}
		}
		if _, dup := seen[axis.Name]; dup {
			return &InputError{Field: "axes", Reason: fmt.Sprintf("duplicate axis %q", axis.Name)}
		}
		seen[axis.Name] = struct{}{}
		if err := indicator.ValidateSchema(axis.Indicators); err != nil {
			return fmt.Errorf("axis %q: %w", axis.Name, err)
		}
	}
	return nil
}

func normalizeAxes(axes []Axis) []Axis {
	out := make([]Axis, 0, len(axes))
	for _, axis := range axes {
		inds := make([]indicator.Indicator, 0, len(axis.Indicators))
		for _, ind := range axis.Indicators {
			ind.Name = strings.TrimSpace(ind.Name)
			inds = append(inds, ind)
		}
		out = append(out, Axis{Name: strings.TrimSpace(axis.Name), Indicators: inds})
	}
	return out
}

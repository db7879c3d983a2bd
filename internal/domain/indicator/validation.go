package indicator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// RawValues maps indicator names to submitted values. JSON members may be
// strings or numbers.
type RawValues map[string]string

func (r *RawValues) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	out := make(RawValues, len(members))
	for name, raw := range members {
		raw = bytes.TrimSpace(raw)
		switch {
		case len(raw) > 0 && raw[0] == '"':
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("value for %q: %w", name, err)
			}
			out[name] = s
		case bytes.Equal(raw, []byte("null")):
			out[name] = ""
		default:
			var n json.Number
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("value for %q must be a string or number", name)
			}
			out[name] = n.String()
		}
	}
	*r = out
	return nil
}

// Validate checks a submission against the declared indicators of an axis.
// It returns the values in declared order, or a *ValidationError naming
// every offending indicator.
func Validate(declared []Indicator, submitted RawValues) ([]Value, error) {
	var issues []Issue
	values := make([]Value, 0, len(declared))
	known := make(map[string]struct{}, len(declared))

	for _, ind := range declared {
		known[ind.Name] = struct{}{}
		raw, ok := submitted[ind.Name]
		if !ok {
			issues = append(issues, Issue{Indicator: ind.Name, Reason: ReasonMissing})
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			issues = append(issues, Issue{Indicator: ind.Name, Reason: ReasonEmpty})
			continue
		}

		v := Value{Name: ind.Name, Type: ind.Type, Custom: ind.Custom}
		switch {
		case ind.Type == TypeText:
			v.Text = raw
		case ind.Type.Numeric():
			n, err := decimal.NewFromString(raw)
			if err != nil {
				issues = append(issues, Issue{
					Indicator: ind.Name,
					Reason:    ReasonNotANumber,
					Detail:    fmt.Sprintf("%q is not a %s value", raw, ind.Type),
				})
				continue
			}
			v.Number = n
		default:
			issues = append(issues, Issue{Indicator: ind.Name, Reason: ReasonUnknownType, Detail: string(ind.Type)})
			continue
		}
		values = append(values, v)
	}

	for name := range submitted {
		if _, ok := known[name]; !ok {
			issues = append(issues, Issue{Indicator: name, Reason: ReasonUndeclared})
		}
	}

	if len(issues) > 0 {
		sortIssues(issues)
		return nil, &ValidationError{Issues: issues}
	}
	return values, nil
}

// ValidateSchema checks an indicator declaration list.
func ValidateSchema(declared []Indicator) error {
	var issues []Issue
	seen := make(map[string]struct{}, len(declared))
	for i, ind := range declared {
		name := strings.TrimSpace(ind.Name)
		if name == "" {
			issues = append(issues, Issue{Indicator: fmt.Sprintf("#%d", i+1), Reason: ReasonBlankName})
			continue
		}
		if _, dup := seen[name]; dup {
			issues = append(issues, Issue{Indicator: name, Reason: ReasonDuplicate})
			continue
		}
		seen[name] = struct{}{}
		if !ind.Type.Valid() {
			issues = append(issues, Issue{Indicator: name, Reason: ReasonUnknownType, Detail: string(ind.Type)})
		}
	}
	if len(issues) > 0 {
		sortIssues(issues)
		return &ValidationError{Issues: issues}
	}
	return nil
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Indicator != issues[j].Indicator {
			return issues[i].Indicator < issues[j].Indicator
		}
		return issues[i].Reason < issues[j].Reason
	})
}

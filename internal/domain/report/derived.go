package report

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/rpggio/ngoboard/internal/domain/indicator"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Formula declares one derived field of an axis. Expressions reference
// indicators by name (use [brackets] for names with spaces) or by position
// as ind_1, ind_2, ... in declared order.
type Formula struct {
	Name       string `yaml:"name" json:"name"`
	Expression string `yaml:"expression" json:"expression"`
}

type compiledFormula struct {
	name string
	expr *govaluate.EvaluableExpression
}

// DerivedCatalog holds the derived-field formulas of each axis name.
type DerivedCatalog struct {
	axes map[string][]compiledFormula
}

// DefaultFormulas is the catalog used when no file is configured.
var DefaultFormulas = map[string][]Formula{
	"Nutrition": {
		{Name: "recovery_rate", Expression: "(ind_1 + ind_2 + ind_3) / ind_4 * 100"},
	},
}

// NewDerivedCatalog compiles formulas keyed by axis name.
func NewDerivedCatalog(defs map[string][]Formula) (*DerivedCatalog, error) {
	catalog := &DerivedCatalog{axes: make(map[string][]compiledFormula, len(defs))}
	for axis, formulas := range defs {
		for _, f := range formulas {
			if strings.TrimSpace(f.Name) == "" {
				return nil, fmt.Errorf("axis %q: formula name is required", axis)
			}
			expr, err := govaluate.NewEvaluableExpression(f.Expression)
			if err != nil {
				return nil, fmt.Errorf("axis %q formula %q: %w", axis, f.Name, err)
			}
			catalog.axes[axis] = append(catalog.axes[axis], compiledFormula{name: f.Name, expr: expr})
		}
	}
	return catalog, nil
}

// DefaultDerivedCatalog returns the built-in catalog.
func DefaultDerivedCatalog() *DerivedCatalog {
	catalog, err := NewDerivedCatalog(DefaultFormulas)
	if err != nil {
		panic(fmt.Sprintf("invalid default derived formulas: %v", err))
	}
	return catalog
}

type catalogFile struct {
	Axes map[string][]Formula `yaml:"axes"`
}

// LoadDerivedCatalog reads a YAML catalog of the form
//
//	axes:
//	  Nutrition:
//	    - name: recovery_rate
//	      expression: "(ind_1 + ind_2 + ind_3) / ind_4 * 100"
func LoadDerivedCatalog(path string) (*DerivedCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read derived catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse derived catalog: %w", err)
	}
	return NewDerivedCatalog(file.Axes)
}

// Compute evaluates the formulas declared for axis. Formulas that cannot be
// evaluated are skipped and reported in the second return value.
func (c *DerivedCatalog) Compute(axis string, values []indicator.Value) ([]DerivedField, []error) {
	if c == nil {
		return nil, nil
	}
	formulas := c.axes[axis]
	if len(formulas) == 0 {
		return nil, nil
	}

	params := make(map[string]interface{}, 2*len(values))
	for i, v := range values {
		params[fmt.Sprintf("ind_%d", i+1)] = paramValue(v)
	}
	for _, v := range values {
		params[v.Name] = paramValue(v)
	}

	var fields []DerivedField
	var skipped []error
	for _, f := range formulas {
		result, err := f.expr.Evaluate(params)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		number, ok := result.(float64)
		if !ok {
			skipped = append(skipped, fmt.Errorf("%s: result %v is not a number", f.name, result))
			continue
		}
		if math.IsInf(number, 0) || math.IsNaN(number) {
			skipped = append(skipped, fmt.Errorf("%s: result is not finite", f.name))
			continue
		}
		fields = append(fields, DerivedField{Name: f.name, Value: decimal.NewFromFloat(number).Round(2)})
	}

	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields, skipped
}

func paramValue(v indicator.Value) interface{} {
	if v.Type.Numeric() {
		return v.Number.InexactFloat64()
	}
	return v.Text
}

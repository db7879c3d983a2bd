package indicator

import (
	"github.com/shopspring/decimal"
)

// DataType is the declared type of an indicator.
type DataType string

const (
	TypeCount      DataType = "count"
	TypePercentage DataType = "percentage"
	TypeMass       DataType = "mass"
	TypeCurrency   DataType = "currency"
	TypeText       DataType = "text"
)

// DataTypes lists every supported data type.
var DataTypes = []DataType{TypeCount, TypePercentage, TypeMass, TypeCurrency, TypeText}

// Valid reports whether t is a known data type.
func (t DataType) Valid() bool {
	switch t {
	case TypeCount, TypePercentage, TypeMass, TypeCurrency, TypeText:
		return true
	}
	return false
}

// Numeric reports whether values of this type must parse as numbers.
func (t DataType) Numeric() bool {
	return t.Valid() && t != TypeText
}

// Indicator is a named, typed metric declared on an axis.
type Indicator struct {
	Name   string   `json:"name" yaml:"name"`
	Type   DataType `json:"type" yaml:"type"`
	Custom bool     `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Value is a submitted indicator value tagged with its declared type.
// Number is meaningful for numeric types, Text for TypeText.
type Value struct {
	Name   string          `json:"name"`
	Type   DataType        `json:"type"`
	Custom bool            `json:"custom,omitempty"`
	Number decimal.Decimal `json:"number,omitempty"`
	Text   string          `json:"text,omitempty"`
}

// String returns the canonical stored form of the value.
func (v Value) String() string {
	if v.Type.Numeric() {
		return v.Number.String()
	}
	return v.Text
}

// ParseValue rebuilds a Value from its stored form.
func ParseValue(name string, typ DataType, custom bool, raw string) (Value, error) {
	v := Value{Name: name, Type: typ, Custom: custom}
	if !typ.Numeric() {
		v.Text = raw
		return v, nil
	}
	n, err := decimal.NewFromString(raw)
	if err != nil {
		return Value{}, err
	}
	v.Number = n
	return v, nil
}

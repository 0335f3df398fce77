package engine

import (
	"regexp"
	"strconv"
	"strings"

	"formgate/internal/model"
)

// numericString matches integer, decimal and exponent forms with optional
// surrounding whitespace. Hex, "inf" and "nan" are not numeric.
var numericString = regexp.MustCompile(`^[ \t\n\r\v\f]*[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?[ \t\n\r\v\f]*$`)

const numericSpace = " \t\n\r\v\f"

// parseNumericString returns the value of s if it is a numeric string
func parseNumericString(s string) (float64, bool) {
	if !numericString.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Trim(s, numericSpace), 64)
	if err != nil {
		// out of range still yields +/-Inf, which compares fine
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// numeric returns the numeric reading of v: numbers and numeric strings.
func numeric(v model.Scalar) (float64, bool) {
	if n, ok := v.AsNumber(); ok {
		return n, true
	}
	if s, ok := v.AsString(); ok {
		return parseNumericString(s)
	}
	return 0, false
}

// truthy is the boolean reading of v
func truthy(v model.Scalar) bool {
	switch v.Kind() {
	case model.ScalarBool:
		b, _ := v.AsBool()
		return b
	case model.ScalarNumber:
		n, _ := v.AsNumber()
		return n != 0
	case model.ScalarString:
		s, _ := v.AsString()
		return s != "" && s != "0"
	default:
		return false
	}
}

// LooseEquals compares two scalars with coercion:
//   - null vs string compares "" with the string
//   - any other pairing involving bool or null compares truthiness
//   - number vs number, and number vs numeric string, compare numerically
//   - number vs non-numeric string is never equal
//   - two numeric strings compare numerically, other strings byte-wise
func LooseEquals(a, b model.Scalar) bool {
	ak, bk := a.Kind(), b.Kind()

	switch {
	case ak == model.ScalarNull && bk == model.ScalarString:
		s, _ := b.AsString()
		return s == ""
	case ak == model.ScalarString && bk == model.ScalarNull:
		s, _ := a.AsString()
		return s == ""
	case ak == model.ScalarNull || bk == model.ScalarNull,
		ak == model.ScalarBool || bk == model.ScalarBool:
		return truthy(a) == truthy(b)
	case ak == model.ScalarNumber && bk == model.ScalarNumber:
		x, _ := a.AsNumber()
		y, _ := b.AsNumber()
		return x == y
	case ak == model.ScalarNumber || bk == model.ScalarNumber:
		// one number, one string
		x, xok := numeric(a)
		y, yok := numeric(b)
		return xok && yok && x == y
	default:
		as, _ := a.AsString()
		bs, _ := b.AsString()
		x, xok := parseNumericString(as)
		y, yok := parseNumericString(bs)
		if xok && yok {
			return x == y
		}
		return as == bs
	}
}

// compareNumeric orders a against b when both have a numeric reading
func compareNumeric(a, b model.Scalar) (int, bool) {
	x, ok := numeric(a)
	if !ok {
		return 0, false
	}
	y, ok := numeric(b)
	if !ok {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	default:
		return 0, true
	}
}

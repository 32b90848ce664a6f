// pkg/model/value.go
package model

import (
	"math"
	"strconv"
)

// Value is a numeric cell that is either present or NA
type Value struct {
	v  float64
	ok bool
}

// Some returns a present value. NaN is treated as NA.
func Some(v float64) Value {
	if math.IsNaN(v) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// NA returns the missing value
func NA() Value {
	return Value{}
}

// Get returns the float and whether it is present
func (v Value) Get() (float64, bool) {
	return v.v, v.ok
}

// IsNA reports whether the value is missing
func (v Value) IsNA() bool {
	return !v.ok
}

// Or returns the value, or def when NA
func (v Value) Or(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.v
}

// Equal compares two values; NA equals only NA
func (v Value) Equal(other Value) bool {
	if v.ok != other.ok {
		return false
	}
	return !v.ok || v.v == other.v
}

func (v Value) String() string {
	if !v.ok {
		return "NA"
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}

// NAValues returns n missing values
func NAValues(n int) []Value {
	return make([]Value, n)
}

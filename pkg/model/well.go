// pkg/model/well.go
package model

import (
	"fmt"
	"strings"
)

// WellKey identifies a well by name and optional coordinates
type WellKey struct {
	Name string
	X    Value
	Y    Value
}

// Valid reports whether the key carries a usable name
func (k WellKey) Valid() bool {
	return strings.TrimSpace(k.Name) != ""
}

// Equal is exact: names must match and coordinates must both be absent or identical
func (k WellKey) Equal(other WellKey) bool {
	return k.Name == other.Name && k.X.Equal(other.X) && k.Y.Equal(other.Y)
}

func (k WellKey) String() string {
	if k.X.IsNA() && k.Y.IsNA() {
		return k.Name
	}
	return fmt.Sprintf("%s (%s, %s)", k.Name, k.X, k.Y)
}

// Well is a registered borehole
type Well struct {
	ID        int
	Key       WellKey
	Elevation Value // land surface elevation
}

// Interval is one depth range of a well
type Interval struct {
	WellID      int
	N           int
	Top         Value // NA when the source has no top depths
	Bottom      float64
	Classes     []Value // one per configured texture class
	HSU         []Value // one per hydrostratigraphic layer, empty when unused
	Placeholder bool    // inserted by gap filling
	ExplicitN   bool    // N came from the input
	Seq         int     // input order, used as the final tie-break
	BatchID     string
}

// Clone returns a deep copy
func (iv Interval) Clone() Interval {
	out := iv
	out.Classes = append([]Value(nil), iv.Classes...)
	out.HSU = append([]Value(nil), iv.HSU...)
	return out
}

// WellCoord is the location of a registered well
type WellCoord struct {
	ID   int
	Name string
	X    Value
	Y    Value
}

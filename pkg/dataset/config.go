// pkg/dataset/config.go
package dataset

import (
	"fmt"
	"strings"
)

const (
	// WellIDBase is the first well ID handed out by a registry
	WellIDBase = 1
	// IndexBase is the first auto-assigned interval index within a well
	IndexBase = 1
)

// ElevationPolicy decides what happens when a well is seen again with a different elevation
type ElevationPolicy int

const (
	// ElevationKeepFirst keeps the first recorded elevation and flags the conflict
	ElevationKeepFirst ElevationPolicy = iota
	// ElevationKeepLatest overwrites with the newer elevation and flags the conflict
	ElevationKeepLatest
	// ElevationStrict rejects the batch
	ElevationStrict
)

func (p ElevationPolicy) String() string {
	switch p {
	case ElevationKeepFirst:
		return "keep_first"
	case ElevationKeepLatest:
		return "keep_latest"
	case ElevationStrict:
		return "strict"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// ParseElevationPolicy parses the names produced by String; "" means keep_first
func ParseElevationPolicy(s string) (ElevationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep_first", "first":
		return ElevationKeepFirst, nil
	case "keep_latest", "latest":
		return ElevationKeepLatest, nil
	case "strict":
		return ElevationStrict, nil
	default:
		return ElevationKeepFirst, fmt.Errorf("unknown elevation policy %q", s)
	}
}

// Config holds the Dataset settings that are fixed for its lifetime
type Config struct {
	// Number of hydrostratigraphic unit columns (hsu_1..hsu_N); 0 disables them
	HSULayers int
	// How elevation conflicts are resolved
	ElevationPolicy ElevationPolicy
	// Fail on batch columns that no mapping consumes
	Strict bool
	// Reject negative depths
	RejectNegativeDepth bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		HSULayers:           0,
		ElevationPolicy:     ElevationKeepFirst,
		Strict:              false,
		RejectNegativeDepth: true,
	}
}

// AddOptions controls one ingestion call
type AddOptions struct {
	// Insert placeholder intervals over depth gaps (needs a top depth column)
	FillMissing bool
	// Also fill from the land surface (depth 0) down to the first top
	FillFromSurface bool
}

// DefaultAddOptions returns the defaults for AddWells
func DefaultAddOptions() AddOptions {
	return AddOptions{FillMissing: true}
}

// ColumnMap names the batch columns holding each field. Empty names mean "not supplied".
type ColumnMap struct {
	Name     string
	X        string
	Y        string
	Zland    string
	Depth    string // bottom depth, required
	DepthTop string
	N        string
	// Class name -> column name. Nil maps every class to a column of the same name.
	Classes map[string]string
}

// DefaultColumnMap returns the conventional column names
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		Name:  "Name",
		X:     "X",
		Y:     "Y",
		Zland: "Zland",
		Depth: "Depth",
	}
}

// HSUColumn returns the input column name for hydrostratigraphic layer i (1-based)
func HSUColumn(layer int) string {
	return fmt.Sprintf("hsu_%d", layer)
}

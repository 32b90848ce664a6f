// pkg/model/anomaly.go
package model

import "time"

// AnomalyKind names a non-fatal data quality condition
type AnomalyKind string

const (
	AnomalyConflictingElevation AnomalyKind = "conflicting_elevation"
	AnomalyOverlappingIntervals AnomalyKind = "overlapping_intervals"
	AnomalyUnrecognizedColumn   AnomalyKind = "unrecognized_column"
	AnomalyDuplicateIndex       AnomalyKind = "duplicate_index"
	AnomalyMixedIndex           AnomalyKind = "mixed_index"
)

// Anomaly records a condition found during ingestion that did not stop it
type Anomaly struct {
	Kind       AnomalyKind
	BatchID    string    // AddWells call that produced it
	Source     string    // Batch source name
	WellID     int       // 0 when not tied to a well
	WellKey    WellKey   // Well the anomaly refers to, if any
	Row        int       // Input row index, -1 when not tied to a row
	Column     string    // Column involved, if any
	Detail     string    // Human readable description
	KeptValue  Value     // Value retained (elevation conflicts)
	Discarded  Value     // Value dropped (elevation conflicts)
	DetectedAt time.Time // When the condition was found
}

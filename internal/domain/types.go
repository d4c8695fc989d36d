// Package domain contains the core business entities for symptom-based
// diagnosis support: the symptom/disease catalog, patients, diagnosis
// candidates and the immutable diagnosis records kept in patient history.
package domain

import (
	"errors"
)

// ConfidenceBand is the discretized confidence label attached to a
// diagnosis candidate. Bands are derived from the numeric score via the
// thresholds in EngineConfig, never from literals inside the engine.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "HIGH"
	BandMedium ConfidenceBand = "MEDIUM"
	BandLow    ConfidenceBand = "LOW"
)

// Severity indicates the clinical severity recorded for a disease in the
// catalog. It is descriptive metadata and does not influence scoring.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
)

// DiseaseCategory groups catalog diseases.
type DiseaseCategory string

const (
	CategoryPhysical DiseaseCategory = "PHYSICAL"
	CategoryMental   DiseaseCategory = "MENTAL"
)

// Sex is the patient-reported sex recorded during registration.
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
	SexOther  Sex = "OTHER"
)

// Sentinel errors shared across stores and services.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidBand     = errors.New("invalid confidence band")
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrInvalidCategory = errors.New("invalid disease category")
	ErrInvalidSex      = errors.New("invalid sex")
)

// IsValid reports whether the band is one of the known labels.
func (b ConfidenceBand) IsValid() bool {
	switch b {
	case BandHigh, BandMedium, BandLow:
		return true
	default:
		return false
	}
}

// String returns the string representation of the band.
func (b ConfidenceBand) String() string {
	return string(b)
}

// IsValid reports whether the severity is one of the known levels.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid reports whether the category is known.
func (c DiseaseCategory) IsValid() bool {
	switch c {
	case CategoryPhysical, CategoryMental:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c DiseaseCategory) String() string {
	return string(c)
}

// IsValid reports whether the sex value is known.
func (s Sex) IsValid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sex value.
func (s Sex) String() string {
	return string(s)
}

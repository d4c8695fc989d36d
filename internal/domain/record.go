package domain

import (
	"time"

	"github.com/google/uuid"
)

// DiagnosisRecord is an immutable snapshot of one completed diagnosis run.
// It is a historical fact: records are appended to a patient's history and
// never edited. Removal happens only through explicit whole-patient history
// deletion.
type DiagnosisRecord struct {
	ID          string `json:"id"`
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"` // snapshot at recording time

	// ReportedSymptoms is the sorted input symptom set the engine scored.
	ReportedSymptoms []string `json:"reported_symptoms"`

	// Candidates is the ranked engine output as it was computed, including
	// disease labels snapshotted from the catalog of that session.
	Candidates []Candidate `json:"candidates"`

	// TopDisease and TopScore duplicate the first candidate for cheap
	// listing queries; both are empty/zero when no disease matched.
	TopDisease string  `json:"top_disease,omitempty"`
	TopScore   float64 `json:"top_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewDiagnosisRecord snapshots an engine run into an immutable record with
// a fresh identity and UTC timestamp.
func NewDiagnosisRecord(patient *Patient, reportedSymptoms []string, candidates []Candidate) *DiagnosisRecord {
	symptoms := make([]string, len(reportedSymptoms))
	copy(symptoms, reportedSymptoms)

	held := make([]Candidate, len(candidates))
	copy(held, candidates)

	rec := &DiagnosisRecord{
		ID:               uuid.New().String(),
		PatientID:        patient.ID,
		PatientName:      patient.Name,
		ReportedSymptoms: symptoms,
		Candidates:       held,
		CreatedAt:        time.Now().UTC(),
	}
	if len(held) > 0 {
		rec.TopDisease = held[0].DiseaseLabel
		rec.TopScore = held[0].Score
	}
	return rec
}

// Validate ensures the record is structurally complete before persistence.
func (r *DiagnosisRecord) Validate() error {
	if r.ID == "" {
		return NewValidationError("record.id", "record ID is required", nil)
	}
	if r.PatientID == "" {
		return NewValidationError("record.patient_id", "patient ID is required", nil)
	}
	if len(r.ReportedSymptoms) == 0 {
		return NewValidationError("record.reported_symptoms", "reported symptom set must not be empty", nil)
	}
	if r.CreatedAt.IsZero() {
		return NewValidationError("record.created_at", "creation timestamp is required", nil)
	}
	return nil
}

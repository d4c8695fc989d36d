package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Patient is a registered patient. Demographics are mutable through
// explicit updates; diagnosis history is owned by the patient and is
// append-only.
type Patient struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BirthDate   string `json:"birth_date"` // YYYY-MM-DD
	Sex         Sex    `json:"sex"`
	DocumentNum string `json:"document_number,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`

	// Clinical background recorded at registration or via updates.
	Allergies       []string          `json:"allergies,omitempty"`
	Medications     []string          `json:"medications,omitempty"`
	ChronicDiseases []string          `json:"chronic_diseases,omitempty"`
	PriorSurgeries  []string          `json:"prior_surgeries,omitempty"`
	FamilyHistory   map[string]string `json:"family_history,omitempty"`
	Notes           string            `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Active    bool      `json:"active"`
}

// NewPatient creates a registered patient with a fresh identity and
// UTC registration timestamps.
func NewPatient(name, birthDate string, sex Sex) *Patient {
	now := time.Now().UTC()
	return &Patient{
		ID:        uuid.New().String(),
		Name:      name,
		BirthDate: birthDate,
		Sex:       sex,
		CreatedAt: now,
		UpdatedAt: now,
		Active:    true,
	}
}

// Validate ensures required registration fields are present and valid.
func (p *Patient) Validate() error {
	if p.ID == "" {
		return NewValidationError("patient.id", "patient ID is required", nil)
	}
	if p.Name == "" {
		return NewValidationError("patient.name", "patient name is required", nil)
	}
	if p.BirthDate == "" {
		return NewValidationError("patient.birth_date", "birth date is required", nil)
	}
	if _, err := time.Parse("2006-01-02", p.BirthDate); err != nil {
		return NewValidationError("patient.birth_date",
			fmt.Sprintf("birth date must be YYYY-MM-DD: %v", err), p.BirthDate)
	}
	if !p.Sex.IsValid() {
		return NewValidationError("patient.sex", "invalid sex value", string(p.Sex))
	}
	return nil
}

// Age returns the patient's age in whole years at the given reference time,
// or 0 if the birth date cannot be parsed.
func (p *Patient) Age(at time.Time) int {
	birth, err := time.Parse("2006-01-02", p.BirthDate)
	if err != nil {
		return 0
	}
	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

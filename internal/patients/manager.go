package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/domain"
	"github.com/sympdx-server/pkg/natid"
)

// Manager implements patient registration, lookup, search, demographic
// updates and deactivation over a Store.
type Manager struct {
	store Store
	log   *logrus.Logger
}

// NewManager creates a patient manager.
func NewManager(store Store, logger *logrus.Logger) *Manager {
	return &Manager{
		store: store,
		log:   logger,
	}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Name            string            `json:"name"`
	BirthDate       string            `json:"birth_date"`
	Sex             domain.Sex        `json:"sex"`
	DocumentNum     string            `json:"document_number,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	Email           string            `json:"email,omitempty"`
	Address         string            `json:"address,omitempty"`
	City            string            `json:"city,omitempty"`
	State           string            `json:"state,omitempty"`
	PostalCode      string            `json:"postal_code,omitempty"`
	Allergies       []string          `json:"allergies,omitempty"`
	Medications     []string          `json:"medications,omitempty"`
	ChronicDiseases []string          `json:"chronic_diseases,omitempty"`
	PriorSurgeries  []string          `json:"prior_surgeries,omitempty"`
	FamilyHistory   map[string]string `json:"family_history,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

// Register validates the input and creates a new active patient. A
// document number, when given, must pass check-digit validation and must
// not belong to another active patient.
func (m *Manager) Register(ctx context.Context, input RegisterInput) (*domain.Patient, error) {
	patient := domain.NewPatient(input.Name, input.BirthDate, input.Sex)
	patient.Phone = input.Phone
	patient.Email = input.Email
	patient.Address = input.Address
	patient.City = input.City
	patient.State = input.State
	patient.PostalCode = input.PostalCode
	patient.Allergies = input.Allergies
	patient.Medications = input.Medications
	patient.ChronicDiseases = input.ChronicDiseases
	patient.PriorSurgeries = input.PriorSurgeries
	patient.FamilyHistory = input.FamilyHistory
	patient.Notes = input.Notes

	if err := patient.Validate(); err != nil {
		return nil, err
	}

	if input.DocumentNum != "" {
		if !natid.Valid(input.DocumentNum) {
			return nil, domain.NewValidationError("patient.document_number",
				"invalid document number", input.DocumentNum)
		}
		patient.DocumentNum = natid.Normalize(input.DocumentNum)

		_, err := m.store.GetByDocument(ctx, patient.DocumentNum)
		if err == nil {
			return nil, domain.NewValidationError("patient.document_number",
				"document number already registered", patient.DocumentNum)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("checking document uniqueness: %w", err)
		}
	}

	if err := m.store.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"patient_id": patient.ID,
		"name":       patient.Name,
	}).Info("Patient registered")

	return patient, nil
}

// Get returns a patient by ID.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Patient, error) {
	if id == "" {
		return nil, domain.NewValidationError("patient.id", "patient ID is required", nil)
	}
	return m.store.Get(ctx, id)
}

// Search returns active patients matching the query substring against
// name, document number or email.
func (m *Manager) Search(ctx context.Context, query string, limit, offset int) ([]*domain.Patient, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return m.store.Search(ctx, query, limit, offset)
}

// Update applies a partial demographics update and returns the updated
// patient.
func (m *Manager) Update(ctx context.Context, id string, update Update) (*domain.Patient, error) {
	patient, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !patient.Active {
		return nil, domain.NewValidationError("patient.id",
			"cannot update a deactivated patient", id)
	}

	if update.Name != nil {
		patient.Name = *update.Name
	}
	if update.BirthDate != nil {
		patient.BirthDate = *update.BirthDate
	}
	if update.Sex != nil {
		patient.Sex = *update.Sex
	}
	if update.Phone != nil {
		patient.Phone = *update.Phone
	}
	if update.Email != nil {
		patient.Email = *update.Email
	}
	if update.Address != nil {
		patient.Address = *update.Address
	}
	if update.City != nil {
		patient.City = *update.City
	}
	if update.State != nil {
		patient.State = *update.State
	}
	if update.PostalCode != nil {
		patient.PostalCode = *update.PostalCode
	}
	if update.Allergies != nil {
		patient.Allergies = *update.Allergies
	}
	if update.Medications != nil {
		patient.Medications = *update.Medications
	}
	if update.ChronicDiseases != nil {
		patient.ChronicDiseases = *update.ChronicDiseases
	}
	if update.PriorSurgeries != nil {
		patient.PriorSurgeries = *update.PriorSurgeries
	}
	if update.FamilyHistory != nil {
		patient.FamilyHistory = *update.FamilyHistory
	}
	if update.Notes != nil {
		patient.Notes = *update.Notes
	}

	patient.UpdatedAt = time.Now().UTC()

	if err := patient.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("updating patient: %w", err)
	}

	m.log.WithField("patient_id", patient.ID).Info("Patient updated")
	return patient, nil
}

// Deactivate soft-deletes a patient. The record and its diagnosis
// history remain; the patient stops appearing in searches and its
// document number is freed for reuse.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	patient, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !patient.Active {
		return nil
	}

	patient.Active = false
	patient.UpdatedAt = time.Now().UTC()

	if err := m.store.Update(ctx, patient); err != nil {
		return fmt.Errorf("deactivating patient: %w", err)
	}

	m.log.WithField("patient_id", id).Info("Patient deactivated")
	return nil
}

// Counts returns the total and active patient counts.
func (m *Manager) Counts(ctx context.Context) (total, active int64, err error) {
	total, err = m.store.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	active, err = m.store.CountActive(ctx)
	if err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

// Package patients manages patient registration and demographics on top of
// a pluggable store. SQLite backs the standalone mode, the pgx repository
// backs the server mode.
package patients

import (
	"context"

	"github.com/sympdx-server/internal/domain"
)

// Store is the persistence interface for patient entities.
type Store interface {
	// Create inserts a new patient.
	Create(ctx context.Context, patient *domain.Patient) error

	// Get returns a patient by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Patient, error)

	// GetByDocument returns the active patient holding the document
	// number, or domain.ErrNotFound.
	GetByDocument(ctx context.Context, documentNum string) (*domain.Patient, error)

	// Search returns active patients whose name, document number or email
	// contains the query substring (case-insensitive), with pagination.
	Search(ctx context.Context, query string, limit, offset int) ([]*domain.Patient, error)

	// Update persists changed demographic fields.
	Update(ctx context.Context, patient *domain.Patient) error

	// Count returns the total number of patients.
	Count(ctx context.Context) (int64, error)

	// CountActive returns the number of active patients.
	CountActive(ctx context.Context) (int64, error)

	// Close releases store resources.
	Close() error
}

// Update describes a partial demographics update. Nil fields are left
// unchanged.
type Update struct {
	Name            *string            `json:"name,omitempty"`
	BirthDate       *string            `json:"birth_date,omitempty"`
	Sex             *domain.Sex        `json:"sex,omitempty"`
	Phone           *string            `json:"phone,omitempty"`
	Email           *string            `json:"email,omitempty"`
	Address         *string            `json:"address,omitempty"`
	City            *string            `json:"city,omitempty"`
	State           *string            `json:"state,omitempty"`
	PostalCode      *string            `json:"postal_code,omitempty"`
	Allergies       *[]string          `json:"allergies,omitempty"`
	Medications     *[]string          `json:"medications,omitempty"`
	ChronicDiseases *[]string          `json:"chronic_diseases,omitempty"`
	PriorSurgeries  *[]string          `json:"prior_surgeries,omitempty"`
	FamilyHistory   *map[string]string `json:"family_history,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
}

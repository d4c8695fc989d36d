// Package history persists diagnosis records. Records are append-only:
// the store offers no update operation, and deletion is scoped to a whole
// patient, never to individual records.
package history

import (
	"context"
	"io"
	"time"

	"github.com/sympdx-server/internal/domain"
)

// Store is the interface for diagnosis history persistence. SQLite backs
// the standalone mode, Postgres the server mode.
type Store interface {
	// Append stores a new immutable diagnosis record.
	Append(ctx context.Context, record *domain.DiagnosisRecord) error

	// Get returns one record by ID, ErrNotFound when absent.
	Get(ctx context.Context, recordID string) (*domain.DiagnosisRecord, error)

	// ListByPatient returns a patient's records in chronological order,
	// oldest first, with pagination.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.DiagnosisRecord, error)

	// CountByPatient returns the number of records for a patient.
	CountByPatient(ctx context.Context, patientID string) (int64, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// CountSince returns the number of records created at or after the
	// given instant.
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// DeleteByPatient removes every record for a patient and returns the
	// number deleted. This is the only deletion the store offers.
	DeleteByPatient(ctx context.Context, patientID string) (int64, error)

	// ExportJSON writes a patient's full history as JSON. An empty
	// patientID exports all records.
	ExportJSON(ctx context.Context, patientID string, writer io.Writer) error

	// ImportJSON loads records from a JSON export, skipping records whose
	// IDs already exist. Returns the number imported and skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close releases store resources.
	Close() error
}

// Export is the JSON export format for diagnosis history.
type Export struct {
	Version    string                    `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Count      int                       `json:"count"`
	Records    []*domain.DiagnosisRecord `json:"records"`
}

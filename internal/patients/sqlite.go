package patients

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/sympdx-server/internal/domain"
)

// SQLiteStore implements Store using SQLite for standalone operation.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if necessary) the patient database at
// dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createPatientSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createPatientSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		birth_date TEXT NOT NULL,
		sex TEXT NOT NULL,
		document_number TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		allergies TEXT NOT NULL DEFAULT '[]',
		medications TEXT NOT NULL DEFAULT '[]',
		chronic_diseases TEXT NOT NULL DEFAULT '[]',
		prior_surgeries TEXT NOT NULL DEFAULT '[]',
		family_history TEXT NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_document
		ON patients(document_number) WHERE active = 1 AND document_number != '';
	CREATE INDEX IF NOT EXISTS idx_patients_name ON patients(name);
	`

	_, err := db.Exec(schema)
	return err
}

const patientColumns = `id, name, birth_date, sex, document_number, phone, email,
		address, city, state, postal_code, allergies, medications,
		chronic_diseases, prior_surgeries, family_history, notes,
		created_at, updated_at, active`

type patientScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(s patientScanner) (*domain.Patient, error) {
	p := &domain.Patient{}
	var allergies, medications, chronic, surgeries, family string

	err := s.Scan(
		&p.ID, &p.Name, &p.BirthDate, &p.Sex, &p.DocumentNum,
		&p.Phone, &p.Email, &p.Address, &p.City, &p.State, &p.PostalCode,
		&allergies, &medications, &chronic, &surgeries, &family,
		&p.Notes, &p.CreatedAt, &p.UpdatedAt, &p.Active,
	)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		raw  string
		dest interface{}
	}{
		{allergies, &p.Allergies},
		{medications, &p.Medications},
		{chronic, &p.ChronicDiseases},
		{surgeries, &p.PriorSurgeries},
		{family, &p.FamilyHistory},
	} {
		if err := json.Unmarshal([]byte(pair.raw), pair.dest); err != nil {
			return nil, fmt.Errorf("decoding patient field: %w", err)
		}
	}
	return p, nil
}

func encodePatientFields(p *domain.Patient) (allergies, medications, chronic, surgeries, family string, err error) {
	enc := func(v interface{}, empty string) (string, error) {
		if v == nil {
			return empty, nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	if allergies, err = enc(p.Allergies, "[]"); err != nil {
		return
	}
	if medications, err = enc(p.Medications, "[]"); err != nil {
		return
	}
	if chronic, err = enc(p.ChronicDiseases, "[]"); err != nil {
		return
	}
	if surgeries, err = enc(p.PriorSurgeries, "[]"); err != nil {
		return
	}
	family, err = enc(p.FamilyHistory, "{}")
	return
}

// Create inserts a new patient.
func (s *SQLiteStore) Create(ctx context.Context, patient *domain.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}

	allergies, medications, chronic, surgeries, family, err := encodePatientFields(patient)
	if err != nil {
		return fmt.Errorf("encoding patient fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		patient.ID, patient.Name, patient.BirthDate, string(patient.Sex), patient.DocumentNum,
		patient.Phone, patient.Email, patient.Address, patient.City, patient.State, patient.PostalCode,
		allergies, medications, chronic, surgeries, family,
		patient.Notes, patient.CreatedAt, patient.UpdatedAt, patient.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to insert patient: %w", err)
	}
	return nil
}

// Get returns a patient by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients WHERE id = ?
	`, id)

	patient, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}
	return patient, nil
}

// GetByDocument returns the active patient holding the document number.
func (s *SQLiteStore) GetByDocument(ctx context.Context, documentNum string) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients WHERE document_number = ? AND active = 1
	`, documentNum)

	patient, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}
	return patient, nil
}

// Search returns active patients matching the query substring.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit, offset int) ([]*domain.Patient, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE active = 1
		  AND (name LIKE ? COLLATE NOCASE
		       OR document_number LIKE ?
		       OR email LIKE ? COLLATE NOCASE)
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`, pattern, pattern, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	var result []*domain.Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		result = append(result, patient)
	}
	return result, rows.Err()
}

// Update persists changed demographic fields.
func (s *SQLiteStore) Update(ctx context.Context, patient *domain.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}

	allergies, medications, chronic, surgeries, family, err := encodePatientFields(patient)
	if err != nil {
		return fmt.Errorf("encoding patient fields: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patients SET
			name = ?, birth_date = ?, sex = ?, document_number = ?,
			phone = ?, email = ?, address = ?, city = ?, state = ?, postal_code = ?,
			allergies = ?, medications = ?, chronic_diseases = ?,
			prior_surgeries = ?, family_history = ?, notes = ?,
			updated_at = ?, active = ?
		WHERE id = ?
	`,
		patient.Name, patient.BirthDate, string(patient.Sex), patient.DocumentNum,
		patient.Phone, patient.Email, patient.Address, patient.City, patient.State, patient.PostalCode,
		allergies, medications, chronic, surgeries, family, patient.Notes,
		patient.UpdatedAt, patient.Active, patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of patients.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patients").Scan(&count)
	return count, err
}

// CountActive returns the number of active patients.
func (s *SQLiteStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patients WHERE active = 1").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

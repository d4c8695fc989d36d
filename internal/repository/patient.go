// Package repository provides Postgres-backed persistence for server
// mode, built on pgx connection pools.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/domain"
)

// PatientRepository handles patient data persistence.
type PatientRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPatientRepository creates a new patient repository.
func NewPatientRepository(db *pgxpool.Pool, logger *logrus.Logger) *PatientRepository {
	return &PatientRepository{
		db:  db,
		log: logger,
	}
}

const patientColumns = `id, name, birth_date, sex, document_number, phone, email,
			   address, city, state, postal_code, allergies, medications,
			   chronic_diseases, prior_surgeries, family_history, notes,
			   created_at, updated_at, active`

type patientRow interface {
	Scan(dest ...any) error
}

func scanPatient(row patientRow) (*domain.Patient, error) {
	var patient domain.Patient
	var allergies, medications, chronic, surgeries, family []byte

	err := row.Scan(
		&patient.ID, &patient.Name, &patient.BirthDate, &patient.Sex, &patient.DocumentNum,
		&patient.Phone, &patient.Email, &patient.Address, &patient.City, &patient.State,
		&patient.PostalCode,
		&allergies, &medications, &chronic, &surgeries, &family,
		&patient.Notes, &patient.CreatedAt, &patient.UpdatedAt, &patient.Active,
	)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		raw  []byte
		dest any
	}{
		{allergies, &patient.Allergies},
		{medications, &patient.Medications},
		{chronic, &patient.ChronicDiseases},
		{surgeries, &patient.PriorSurgeries},
		{family, &patient.FamilyHistory},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dest); err != nil {
			return nil, fmt.Errorf("decoding patient field: %w", err)
		}
	}
	return &patient, nil
}

func encodeJSONField(v any, empty string) ([]byte, error) {
	if v == nil {
		return []byte(empty), nil
	}
	return json.Marshal(v)
}

func encodePatient(patient *domain.Patient) (allergies, medications, chronic, surgeries, family []byte, err error) {
	if allergies, err = encodeJSONField(patient.Allergies, "[]"); err != nil {
		return
	}
	if medications, err = encodeJSONField(patient.Medications, "[]"); err != nil {
		return
	}
	if chronic, err = encodeJSONField(patient.ChronicDiseases, "[]"); err != nil {
		return
	}
	if surgeries, err = encodeJSONField(patient.PriorSurgeries, "[]"); err != nil {
		return
	}
	family, err = encodeJSONField(patient.FamilyHistory, "{}")
	return
}

// Create inserts a new patient into the database.
func (r *PatientRepository) Create(ctx context.Context, patient *domain.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}

	allergies, medications, chronic, surgeries, family, err := encodePatient(patient)
	if err != nil {
		return fmt.Errorf("encoding patient fields: %w", err)
	}

	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`

	_, err = r.db.Exec(ctx, query,
		patient.ID, patient.Name, patient.BirthDate, string(patient.Sex), patient.DocumentNum,
		patient.Phone, patient.Email, patient.Address, patient.City, patient.State,
		patient.PostalCode,
		allergies, medications, chronic, surgeries, family,
		patient.Notes, patient.CreatedAt, patient.UpdatedAt, patient.Active,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patient.ID,
			"error":      err,
		}).Error("Failed to create patient")
		return fmt.Errorf("creating patient: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id": patient.ID,
		"name":       patient.Name,
	}).Info("Patient created successfully")

	return nil
}

// Get retrieves a patient by ID.
func (r *PatientRepository) Get(ctx context.Context, id string) (*domain.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE id = $1`

	patient, err := scanPatient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("patient not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": id,
			"error":      err,
		}).Error("Failed to get patient by ID")
		return nil, fmt.Errorf("getting patient by ID: %w", err)
	}

	return patient, nil
}

// GetByDocument retrieves the active patient holding a document number.
func (r *PatientRepository) GetByDocument(ctx context.Context, documentNum string) (*domain.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE document_number = $1 AND active`

	patient, err := scanPatient(r.db.QueryRow(ctx, query, documentNum))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("patient not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting patient by document: %w", err)
	}

	return patient, nil
}

// Search retrieves active patients matching the query substring with
// pagination.
func (r *PatientRepository) Search(ctx context.Context, query string, limit, offset int) ([]*domain.Patient, error) {
	sql := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE active
		  AND (name ILIKE $1 OR document_number LIKE $1 OR email ILIKE $1)
		ORDER BY name ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, sql, "%"+query+"%", limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"query": query,
			"error": err,
		}).Error("Failed to search patients")
		return nil, fmt.Errorf("searching patients: %w", err)
	}
	defer rows.Close()

	var patients []*domain.Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patient row: %w", err)
		}
		patients = append(patients, patient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patient rows: %w", err)
	}

	return patients, nil
}

// Update updates an existing patient.
func (r *PatientRepository) Update(ctx context.Context, patient *domain.Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}

	allergies, medications, chronic, surgeries, family, err := encodePatient(patient)
	if err != nil {
		return fmt.Errorf("encoding patient fields: %w", err)
	}

	query := `
		UPDATE patients
		SET name = $2, birth_date = $3, sex = $4, document_number = $5,
			phone = $6, email = $7, address = $8, city = $9, state = $10,
			postal_code = $11, allergies = $12, medications = $13,
			chronic_diseases = $14, prior_surgeries = $15, family_history = $16,
			notes = $17, updated_at = $18, active = $19
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		patient.ID, patient.Name, patient.BirthDate, string(patient.Sex), patient.DocumentNum,
		patient.Phone, patient.Email, patient.Address, patient.City, patient.State,
		patient.PostalCode, allergies, medications, chronic, surgeries, family,
		patient.Notes, patient.UpdatedAt, patient.Active,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patient.ID,
			"error":      err,
		}).Error("Failed to update patient")
		return fmt.Errorf("updating patient: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("patient not found: %w", domain.ErrNotFound)
	}

	r.log.WithField("patient_id", patient.ID).Info("Patient updated successfully")
	return nil
}

// Count returns the total number of patients.
func (r *PatientRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM patients").Scan(&count)
	return count, err
}

// CountActive returns the number of active patients.
func (r *PatientRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM patients WHERE active").Scan(&count)
	return count, err
}

// Close is a no-op; the pool's lifecycle is owned by the caller.
func (r *PatientRepository) Close() error {
	return nil
}

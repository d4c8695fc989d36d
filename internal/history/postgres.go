package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/sympdx-server/internal/domain"
)

// PostgresStore implements Store using PostgreSQL. It expects the schema
// to already exist (created via migrations).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a connection pool from a database URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Append stores a new diagnosis record.
func (s *PostgresStore) Append(ctx context.Context, record *domain.DiagnosisRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	symptoms, err := json.Marshal(record.ReportedSymptoms)
	if err != nil {
		return fmt.Errorf("encoding reported symptoms: %w", err)
	}
	candidates, err := json.Marshal(record.Candidates)
	if err != nil {
		return fmt.Errorf("encoding candidates: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diagnosis_records (
			id, patient_id, patient_name, reported_symptoms, candidates,
			top_disease, top_score, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		record.ID,
		record.PatientID,
		record.PatientName,
		string(symptoms),
		string(candidates),
		record.TopDisease,
		record.TopScore,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Get returns one record by ID.
func (s *PostgresStore) Get(ctx context.Context, recordID string) (*domain.DiagnosisRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM diagnosis_records WHERE id = $1
	`, recordID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	return rec, nil
}

// ListByPatient returns records oldest first.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.DiagnosisRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM diagnosis_records
		WHERE patient_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var result []*domain.DiagnosisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// CountByPatient returns the number of records for one patient.
func (s *PostgresStore) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diagnosis_records WHERE patient_id = $1", patientID,
	).Scan(&count)
	return count, err
}

// Count returns the total number of records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM diagnosis_records").Scan(&count)
	return count, err
}

// CountSince returns the number of records created at or after since.
func (s *PostgresStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diagnosis_records WHERE created_at >= $1", since,
	).Scan(&count)
	return count, err
}

// DeleteByPatient removes all records for one patient.
func (s *PostgresStore) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM diagnosis_records WHERE patient_id = $1", patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return result.RowsAffected()
}

// ExportJSON writes history as a JSON export document.
func (s *PostgresStore) ExportJSON(ctx context.Context, patientID string, writer io.Writer) error {
	var (
		rows *sql.Rows
		err  error
	)
	if patientID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+recordColumns+`
			FROM diagnosis_records
			ORDER BY created_at ASC, id ASC
			LIMIT $1
		`, maxExportLimit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+recordColumns+`
			FROM diagnosis_records
			WHERE patient_id = $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2
		`, patientID, maxExportLimit)
	}
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*domain.DiagnosisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
		Records:    records,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON loads records from an export, skipping existing IDs.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, domain.NewValidationError("export", "invalid history export document", err.Error())
	}

	for _, rec := range export.Records {
		var existing string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM diagnosis_records WHERE id = $1", rec.ID,
		).Scan(&existing)
		if err == nil {
			skipped++
			continue
		}
		if err != sql.ErrNoRows {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if err := s.Append(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to import record: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

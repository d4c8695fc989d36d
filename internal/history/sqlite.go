package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sympdx-server/internal/domain"
)

// SQLiteStore implements Store using SQLite for standalone operation.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if necessary) the history database at
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

	if err := createHistorySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createHistorySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS diagnosis_records (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		patient_name TEXT NOT NULL DEFAULT '',
		reported_symptoms TEXT NOT NULL,
		candidates TEXT NOT NULL,
		top_disease TEXT NOT NULL DEFAULT '',
		top_score REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_patient ON diagnosis_records(patient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON diagnosis_records(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Append stores a new diagnosis record.
func (s *SQLiteStore) Append(ctx context.Context, record *domain.DiagnosisRecord) error {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
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

type recordScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s recordScanner) (*domain.DiagnosisRecord, error) {
	rec := &domain.DiagnosisRecord{}
	var symptoms, candidates string

	err := s.Scan(
		&rec.ID, &rec.PatientID, &rec.PatientName,
		&symptoms, &candidates,
		&rec.TopDisease, &rec.TopScore, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(symptoms), &rec.ReportedSymptoms); err != nil {
		return nil, fmt.Errorf("decoding reported symptoms: %w", err)
	}
	if err := json.Unmarshal([]byte(candidates), &rec.Candidates); err != nil {
		return nil, fmt.Errorf("decoding candidates: %w", err)
	}
	return rec, nil
}

const recordColumns = `id, patient_id, patient_name, reported_symptoms, candidates,
		top_disease, top_score, created_at`

// Get returns one record by ID.
func (s *SQLiteStore) Get(ctx context.Context, recordID string) (*domain.DiagnosisRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM diagnosis_records WHERE id = ?
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
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.DiagnosisRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM diagnosis_records
		WHERE patient_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
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
func (s *SQLiteStore) CountByPatient(ctx context.Context, patientID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diagnosis_records WHERE patient_id = ?", patientID,
	).Scan(&count)
	return count, err
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM diagnosis_records").Scan(&count)
	return count, err
}

// CountSince returns the number of records created at or after since.
func (s *SQLiteStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diagnosis_records WHERE created_at >= ?", since,
	).Scan(&count)
	return count, err
}

// DeleteByPatient removes all records for one patient.
func (s *SQLiteStore) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM diagnosis_records WHERE patient_id = ?", patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return result.RowsAffected()
}

// maxExportLimit bounds a single export.
const maxExportLimit = 1000000

// ExportJSON writes history as a JSON export document.
func (s *SQLiteStore) ExportJSON(ctx context.Context, patientID string, writer io.Writer) error {
	var (
		rows *sql.Rows
		err  error
	)
	if patientID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+recordColumns+`
			FROM diagnosis_records
			ORDER BY created_at ASC, id ASC
			LIMIT ?
		`, maxExportLimit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+recordColumns+`
			FROM diagnosis_records
			WHERE patient_id = ?
			ORDER BY created_at ASC, id ASC
			LIMIT ?
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
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, domain.NewValidationError("export", "invalid history export document", err.Error())
	}

	for _, rec := range export.Records {
		var existing string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM diagnosis_records WHERE id = ?", rec.ID,
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sympdx-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestPostgresStore_Append(t *testing.T) {
	store, mock := newMockStore(t)

	rec := testRecord(t, "p1", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	mock.ExpectExec("INSERT INTO diagnosis_records").
		WithArgs(
			rec.ID, rec.PatientID, rec.PatientName,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			rec.TopDisease, rec.TopScore, rec.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Append(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByPatient(t *testing.T) {
	store, mock := newMockStore(t)

	rec := testRecord(t, "p1", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	symptoms, err := json.Marshal(rec.ReportedSymptoms)
	require.NoError(t, err)
	candidates, err := json.Marshal(rec.Candidates)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "patient_name", "reported_symptoms", "candidates",
		"top_disease", "top_score", "created_at",
	}).AddRow(
		rec.ID, rec.PatientID, rec.PatientName, string(symptoms), string(candidates),
		rec.TopDisease, rec.TopScore, rec.CreatedAt,
	)

	mock.ExpectQuery("SELECT (.+) FROM diagnosis_records").
		WithArgs("p1", 10, 0).
		WillReturnRows(rows)

	records, err := store.ListByPatient(context.Background(), "p1", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, rec.ReportedSymptoms, records[0].ReportedSymptoms)
	require.Len(t, records[0].Candidates, 1)
	assert.Equal(t, "flu", records[0].Candidates[0].DiseaseID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	rec := testRecord(t, "p1", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	symptoms, err := json.Marshal(rec.ReportedSymptoms)
	require.NoError(t, err)
	candidates, err := json.Marshal(rec.Candidates)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "patient_name", "reported_symptoms", "candidates",
		"top_disease", "top_score", "created_at",
	}).AddRow(
		rec.ID, rec.PatientID, rec.PatientName, string(symptoms), string(candidates),
		rec.TopDisease, rec.TopScore, rec.CreatedAt,
	)

	mock.ExpectQuery("SELECT (.+) FROM diagnosis_records WHERE id").
		WithArgs(rec.ID).
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.TopDisease, got.TopDisease)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM diagnosis_records WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteByPatient(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM diagnosis_records").
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := store.DeleteByPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountSince(t *testing.T) {
	store, mock := newMockStore(t)
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM diagnosis_records WHERE created_at").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := store.CountSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

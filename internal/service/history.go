package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/domain"
	"github.com/sympdx-server/internal/history"
)

// PatientLookup resolves patient identities for history operations.
type PatientLookup interface {
	Get(ctx context.Context, id string) (*domain.Patient, error)
}

// HistoryManager appends completed diagnosis runs to patient history and
// answers history queries. Appends are serialized per patient so record
// timestamps stay monotonic within one patient's history; different
// patients need no coordination.
type HistoryManager struct {
	store    history.Store
	patients PatientLookup
	log      *logrus.Logger

	// snapshotTopN caps how many ranked candidates each record keeps.
	snapshotTopN int

	// defaultQueryLimit bounds history listings without an explicit limit.
	defaultQueryLimit int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHistoryManager creates a history manager.
func NewHistoryManager(store history.Store, patients PatientLookup, cfg domain.HistoryConfig, logger *logrus.Logger) *HistoryManager {
	snapshotTopN := cfg.SnapshotTopN
	if snapshotTopN <= 0 {
		snapshotTopN = 10
	}
	queryLimit := cfg.DefaultQueryLimit
	if queryLimit <= 0 {
		queryLimit = 500
	}
	return &HistoryManager{
		store:             store,
		patients:          patients,
		log:               logger,
		snapshotTopN:      snapshotTopN,
		defaultQueryLimit: queryLimit,
		locks:             make(map[string]*sync.Mutex),
	}
}

// patientLock returns the append lock for one patient.
func (m *HistoryManager) patientLock(patientID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[patientID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[patientID] = lock
	}
	return lock
}

// RecordDiagnosis snapshots an engine run into an immutable record and
// appends it to the patient's history. The candidates are stored as they
// were computed, so later catalog edits cannot alter the record.
func (m *HistoryManager) RecordDiagnosis(ctx context.Context, patient *domain.Patient, reportedSymptoms []string, candidates []domain.Candidate) (*domain.DiagnosisRecord, error) {
	if patient == nil {
		return nil, domain.NewValidationError("patient", "patient is required", nil)
	}
	if len(reportedSymptoms) == 0 {
		return nil, domain.NewValidationError("reported_symptoms", "reported symptom set must not be empty", nil)
	}

	sorted := make([]string, len(reportedSymptoms))
	copy(sorted, reportedSymptoms)
	sort.Strings(sorted)

	kept := candidates
	if len(kept) > m.snapshotTopN {
		kept = kept[:m.snapshotTopN]
	}

	lock := m.patientLock(patient.ID)
	lock.Lock()
	defer lock.Unlock()

	// Constructed under the lock so CreatedAt ordering matches append
	// order within one patient's history.
	record := domain.NewDiagnosisRecord(patient, sorted, kept)

	if err := m.store.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("appending diagnosis record: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"record_id":  record.ID,
		"patient_id": record.PatientID,
		"candidates": len(record.Candidates),
		"top":        record.TopDisease,
	}).Info("Diagnosis recorded")

	return record, nil
}

// History returns a patient's diagnosis records oldest first. limit <= 0
// applies the configured default; an unknown patient yields ErrNotFound.
func (m *HistoryManager) History(ctx context.Context, patientID string, limit, offset int) ([]*domain.DiagnosisRecord, error) {
	if _, err := m.patients.Get(ctx, patientID); err != nil {
		return nil, fmt.Errorf("resolving patient %q: %w", patientID, err)
	}

	if limit <= 0 {
		limit = m.defaultQueryLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := m.store.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return records, nil
}

// Record returns one of a patient's diagnosis records by ID. Records
// belonging to other patients are reported as not found.
func (m *HistoryManager) Record(ctx context.Context, patientID, recordID string) (*domain.DiagnosisRecord, error) {
	if _, err := m.patients.Get(ctx, patientID); err != nil {
		return nil, fmt.Errorf("resolving patient %q: %w", patientID, err)
	}

	record, err := m.store.Get(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("loading record %q: %w", recordID, err)
	}
	if record.PatientID != patientID {
		return nil, fmt.Errorf("record %q: %w", recordID, domain.ErrNotFound)
	}
	return record, nil
}

// ClearHistory deletes a patient's entire history. Per-record deletion is
// deliberately not offered so the history stays append-only for audit.
func (m *HistoryManager) ClearHistory(ctx context.Context, patientID string) (int64, error) {
	if _, err := m.patients.Get(ctx, patientID); err != nil {
		return 0, fmt.Errorf("resolving patient %q: %w", patientID, err)
	}

	lock := m.patientLock(patientID)
	lock.Lock()
	defer lock.Unlock()

	deleted, err := m.store.DeleteByPatient(ctx, patientID)
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"patient_id": patientID,
		"deleted":    deleted,
	}).Info("Patient history cleared")

	return deleted, nil
}

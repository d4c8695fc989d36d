package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/catalog"
	"github.com/sympdx-server/internal/history"
)

// Statistics summarizes the system at a point in time.
type Statistics struct {
	TotalPatients       int64     `json:"total_patients"`
	ActivePatients      int64     `json:"active_patients"`
	TotalDiagnoses      int64     `json:"total_diagnoses"`
	DiagnosesLast30Days int64     `json:"diagnoses_last_30_days"`
	DiseaseCount        int       `json:"disease_count"`
	SymptomCount        int       `json:"symptom_count"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// PatientCounter reports patient totals.
type PatientCounter interface {
	Counts(ctx context.Context) (total, active int64, err error)
}

// StatsService aggregates counts across patients, history and the
// catalog.
type StatsService struct {
	patients PatientCounter
	history  history.Store
	catalog  *catalog.Store
	log      *logrus.Logger
}

// NewStatsService creates a statistics service.
func NewStatsService(patients PatientCounter, historyStore history.Store, catalogStore *catalog.Store, logger *logrus.Logger) *StatsService {
	return &StatsService{
		patients: patients,
		history:  historyStore,
		catalog:  catalogStore,
		log:      logger,
	}
}

// Collect gathers current system statistics.
func (s *StatsService) Collect(ctx context.Context) (*Statistics, error) {
	now := time.Now().UTC()

	total, active, err := s.patients.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting patients: %w", err)
	}

	diagnoses, err := s.history.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting diagnoses: %w", err)
	}

	recent, err := s.history.CountSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("counting recent diagnoses: %w", err)
	}

	snapshot := s.catalog.Snapshot()

	return &Statistics{
		TotalPatients:       total,
		ActivePatients:      active,
		TotalDiagnoses:      diagnoses,
		DiagnosesLast30Days: recent,
		DiseaseCount:        snapshot.DiseaseCount(),
		SymptomCount:        snapshot.SymptomCount(),
		GeneratedAt:         now,
	}, nil
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatient(t *testing.T) {
	patient := NewPatient("Ana Souza", "1990-04-12", SexFemale)

	assert.NotEmpty(t, patient.ID)
	assert.True(t, patient.Active)
	assert.Equal(t, patient.CreatedAt, patient.UpdatedAt)
	assert.Equal(t, time.UTC, patient.CreatedAt.Location())
	require.NoError(t, patient.Validate())
}

func TestPatient_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Patient)
	}{
		{"empty id", func(p *Patient) { p.ID = "" }},
		{"empty name", func(p *Patient) { p.Name = "" }},
		{"empty birth date", func(p *Patient) { p.BirthDate = "" }},
		{"malformed birth date", func(p *Patient) { p.BirthDate = "12/04/1990" }},
		{"invalid sex", func(p *Patient) { p.Sex = "X" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patient := NewPatient("Ana Souza", "1990-04-12", SexFemale)
			tt.mutate(patient)
			err := patient.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestPatient_Age(t *testing.T) {
	patient := NewPatient("Ana Souza", "1990-04-12", SexFemale)

	assert.Equal(t, 36, patient.Age(time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)))
	// Day before the birthday.
	assert.Equal(t, 35, patient.Age(time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC)))
	// On the birthday.
	assert.Equal(t, 36, patient.Age(time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)))

	patient.BirthDate = "garbage"
	assert.Equal(t, 0, patient.Age(time.Now()))
}

func TestBandFor(t *testing.T) {
	cfg := EngineConfig{HighBandThreshold: 0.75, MediumBandThreshold: 0.40}

	assert.Equal(t, BandHigh, cfg.BandFor(0.9))
	assert.Equal(t, BandHigh, cfg.BandFor(0.75))
	assert.Equal(t, BandMedium, cfg.BandFor(0.5))
	assert.Equal(t, BandMedium, cfg.BandFor(0.40))
	assert.Equal(t, BandLow, cfg.BandFor(0.39))
	assert.Equal(t, BandLow, cfg.BandFor(0))
}

func TestNewDiagnosisRecord_CopiesInputs(t *testing.T) {
	patient := NewPatient("Ana Souza", "1990-04-12", SexFemale)
	symptoms := []string{"cough", "fever"}
	candidates := []Candidate{{DiseaseID: "flu", DiseaseLabel: "Influenza", Score: 0.5}}

	record := NewDiagnosisRecord(patient, symptoms, candidates)

	symptoms[0] = "tampered"
	candidates[0].Score = -1

	assert.Equal(t, []string{"cough", "fever"}, record.ReportedSymptoms)
	assert.InDelta(t, 0.5, record.Candidates[0].Score, 1e-9)
	assert.Equal(t, "Influenza", record.TopDisease)
	assert.InDelta(t, 0.5, record.TopScore, 1e-9)
}

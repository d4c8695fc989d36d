package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sympdx-server/internal/domain"
)

func reportPatient() *domain.Patient {
	p := domain.NewPatient("Ana Souza", "1990-04-12", domain.SexFemale)
	p.DocumentNum = "52998224725"
	p.Allergies = []string{"penicillin"}
	p.FamilyHistory = map[string]string{"mother": "hypertension", "father": "diabetes"}
	return p
}

func reportRecord(p *domain.Patient) *domain.DiagnosisRecord {
	rec := domain.NewDiagnosisRecord(p, []string{"cough", "fever"}, []domain.Candidate{
		{
			DiseaseID:       "flu",
			DiseaseLabel:    "Influenza",
			Category:        domain.CategoryPhysical,
			Severity:        domain.SeverityModerate,
			Treatment:       "Rest and hydration",
			Score:           2.0 / 3.0,
			MatchedSymptoms: []string{"cough", "fever"},
			MissingSymptoms: []string{"fatigue"},
			Band:            domain.BandMedium,
		},
	})
	rec.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return rec
}

func TestWriteDiagnosisReport(t *testing.T) {
	patient := reportPatient()
	record := reportRecord(patient)

	var buf bytes.Buffer
	require.NoError(t, WriteDiagnosisReport(&buf, patient, record))

	out := buf.String()
	assert.Contains(t, out, "DIAGNOSIS REPORT")
	assert.Contains(t, out, "Ana Souza")
	assert.Contains(t, out, "Influenza")
	assert.Contains(t, out, "MEDIUM")
	assert.Contains(t, out, "66.7%")
	assert.Contains(t, out, "Matched:  cough, fever")
	assert.Contains(t, out, "Missing:  fatigue")
	assert.Contains(t, out, "Rest and hydration")
	assert.Contains(t, out, "not a medical diagnosis")
}

func TestWriteDiagnosisReport_NoCandidates(t *testing.T) {
	patient := reportPatient()
	record := domain.NewDiagnosisRecord(patient, []string{"fever"}, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteDiagnosisReport(&buf, patient, record))

	assert.Contains(t, buf.String(), "No candidate diseases matched")
}

func TestWriteDiagnosisReport_NilInputs(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteDiagnosisReport(&buf, nil, nil))
}

func TestWritePatientChart(t *testing.T) {
	patient := reportPatient()

	var buf bytes.Buffer
	require.NoError(t, WritePatientChart(&buf, patient))

	out := buf.String()
	assert.Contains(t, out, "PATIENT CHART")
	assert.Contains(t, out, "ALLERGIES")
	assert.Contains(t, out, "penicillin")
	assert.Contains(t, out, "FAMILY HISTORY")
	// Family history entries come out in sorted relative order.
	father := bytes.Index(buf.Bytes(), []byte("father"))
	mother := bytes.Index(buf.Bytes(), []byte("mother"))
	assert.Less(t, father, mother)
}

func TestWriteHistoryReport(t *testing.T) {
	patient := reportPatient()
	records := []*domain.DiagnosisRecord{reportRecord(patient)}

	var buf bytes.Buffer
	require.NoError(t, WriteHistoryReport(&buf, patient, records))

	out := buf.String()
	assert.Contains(t, out, "DIAGNOSIS HISTORY")
	assert.Contains(t, out, "RECORDS (1)")
	assert.Contains(t, out, "Symptoms: cough, fever")
	assert.Contains(t, out, "Top candidate: Influenza (66.7%)")
}

func TestWriteHistoryReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryReport(&buf, reportPatient(), nil))

	assert.Contains(t, buf.String(), "No diagnosis records.")
}

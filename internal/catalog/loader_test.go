package catalog

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sympdx-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const validCatalog = `{
	"symptoms": [
		{"id": "fever", "label": "Fever"},
		{"id": "cough", "label": "Cough"},
		{"id": "sadness", "label": "Persistent sadness"}
	],
	"diseases": {
		"physical": [
			{
				"id": "flu",
				"label": "Influenza",
				"severity": "MODERATE",
				"icd_code": "J11",
				"symptoms": ["fever", {"s": "cough", "weight": 2.5}, "fatigue"],
				"conditions": {"min_symptoms": 2, "required_symptoms": ["fever"]}
			}
		],
		"mental": [
			{
				"id": "depression",
				"symptoms": ["sadness"]
			}
		]
	}
}`

func TestParse_ValidCatalog(t *testing.T) {
	cat, err := Parse([]byte(validCatalog))
	require.NoError(t, err)

	assert.Equal(t, 2, cat.DiseaseCount())
	// fatigue only appears inside the flu profile and is merged in.
	assert.Equal(t, 4, cat.SymptomCount())
	assert.True(t, cat.HasSymptom("fatigue"))

	var flu, depression domain.Disease
	for _, d := range cat.Diseases() {
		switch d.ID {
		case "flu":
			flu = d
		case "depression":
			depression = d
		}
	}

	assert.Equal(t, domain.CategoryPhysical, flu.Category)
	assert.Equal(t, "J11", flu.ICDCode)
	assert.Equal(t, 2, flu.MinSymptoms)
	assert.Equal(t, []string{"fever"}, flu.RequiredSymptoms)
	// Bare string entries default to weight 1.0; objects carry their own.
	assert.InDelta(t, 1.0, flu.Profile["fever"], 1e-9)
	assert.InDelta(t, 2.5, flu.Profile["cough"], 1e-9)
	assert.InDelta(t, 1.0, flu.Profile["fatigue"], 1e-9)

	// Omitted label and severity get normalized defaults.
	assert.Equal(t, "depression", depression.Label)
	assert.Equal(t, domain.SeverityModerate, depression.Severity)
	assert.Equal(t, domain.CategoryMental, depression.Category)
}

func TestParse_IntegrityErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			"negative weight",
			`{"diseases": {"physical": [{"id": "x", "symptoms": [{"s": "fever", "weight": -1}]}]}}`,
		},
		{
			"empty profile",
			`{"diseases": {"physical": [{"id": "x", "symptoms": []}]}}`,
		},
		{
			"duplicate disease id",
			`{"diseases": {"physical": [
				{"id": "x", "symptoms": ["fever"]},
				{"id": "x", "symptoms": ["cough"]}
			]}}`,
		},
		{
			"required symptom outside profile",
			`{"diseases": {"physical": [{
				"id": "x",
				"symptoms": ["fever"],
				"conditions": {"required_symptoms": ["cough"]}
			}]}}`,
		},
		{
			"invalid severity",
			`{"diseases": {"physical": [{"id": "x", "severity": "CATASTROPHIC", "symptoms": ["fever"]}]}}`,
		},
		{
			"malformed json",
			`{"diseases": `,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0644))

	store, err := NewStore(path, testLogger())
	require.NoError(t, err)

	before := store.Snapshot()
	assert.Equal(t, 2, before.DiseaseCount())

	updated := `{"diseases": {"physical": [{"id": "flu", "symptoms": ["fever"]}]}}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))
	require.NoError(t, store.Reload())

	after := store.Snapshot()
	assert.Equal(t, 1, after.DiseaseCount())

	// The old snapshot stays intact for in-flight callers.
	assert.Equal(t, 2, before.DiseaseCount())
}

func TestStore_ReloadKeepsOldSnapshotOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0644))

	store, err := NewStore(path, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))
	require.Error(t, store.Reload())

	assert.Equal(t, 2, store.Snapshot().DiseaseCount())
}

func TestNewStore_MissingFile(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "absent.json"), testLogger())
	require.Error(t, err)
}

// Package catalog loads the disease/symptom catalog from its JSON source
// and hands out immutable snapshots. The file is read once per session;
// callers get a consistent *domain.Catalog value and an explicit Reload
// operation instead of implicit re-reads.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/domain"
)

// catalogFile is the on-disk JSON layout. Diseases are grouped by category
// to match the catalog maintained by the clinical staff; symptom entries
// inside a profile may be bare strings (weight 1.0) or weighted objects.
type catalogFile struct {
	Symptoms []symptomEntry `json:"symptoms"`
	Diseases diseaseGroups  `json:"diseases"`
}

type diseaseGroups struct {
	Physical []diseaseEntry `json:"physical"`
	Mental   []diseaseEntry `json:"mental"`
}

type symptomEntry struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
}

type diseaseEntry struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Description string            `json:"description,omitempty"`
	Treatment   string            `json:"treatment,omitempty"`
	Severity    string            `json:"severity,omitempty"`
	ICDCode     string            `json:"icd_code,omitempty"`
	Symptoms    []profileEntry    `json:"symptoms"`
	Conditions  *conditionsEntry  `json:"conditions,omitempty"`
}

type conditionsEntry struct {
	MinSymptoms      int      `json:"min_symptoms,omitempty"`
	RequiredSymptoms []string `json:"required_symptoms,omitempty"`
}

// profileEntry accepts either "fever" or {"s": "fever", "weight": 1.5}.
type profileEntry struct {
	Symptom string
	Weight  float64
}

func (p *profileEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		p.Symptom = name
		p.Weight = 1.0
		return nil
	}

	var obj struct {
		Symptom string   `json:"s"`
		Weight  *float64 `json:"weight"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("profile entry must be a string or object: %w", err)
	}
	p.Symptom = obj.Symptom
	p.Weight = 1.0
	if obj.Weight != nil {
		p.Weight = *obj.Weight
	}
	return nil
}

// Store holds the current catalog snapshot for a session.
type Store struct {
	path string
	log  *logrus.Logger

	mu      sync.RWMutex
	current *domain.Catalog
}

// NewStore loads the catalog from path and returns a store holding the
// validated snapshot.
func NewStore(path string, logger *logrus.Logger) (*Store, error) {
	s := &Store{
		path: path,
		log:  logger,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the current immutable catalog.
func (s *Store) Snapshot() *domain.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads and re-validates the catalog file, swapping the snapshot
// atomically. In-flight diagnose calls keep using the snapshot they were
// handed.
func (s *Store) Reload() error {
	cat, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = cat
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"path":     s.path,
		"diseases": cat.DiseaseCount(),
		"symptoms": cat.SymptomCount(),
	}).Info("Catalog loaded")

	return nil
}

// Load reads, normalizes and validates a catalog JSON file. Integrity
// violations (unknown symptom references, negative weights) are detected
// here, not inside scoring.
func Load(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated catalog from raw JSON.
func Parse(data []byte) (*domain.Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding catalog JSON: %w", err)
	}

	diseases := make([]domain.Disease, 0, len(file.Diseases.Physical)+len(file.Diseases.Mental))
	for _, entry := range file.Diseases.Physical {
		diseases = append(diseases, toDisease(entry, domain.CategoryPhysical))
	}
	for _, entry := range file.Diseases.Mental {
		diseases = append(diseases, toDisease(entry, domain.CategoryMental))
	}

	symptoms := collectSymptoms(file.Symptoms, diseases)

	cat, err := domain.NewCatalog(symptoms, diseases)
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return cat, nil
}

func toDisease(entry diseaseEntry, category domain.DiseaseCategory) domain.Disease {
	profile := make(map[string]float64, len(entry.Symptoms))
	for _, pe := range entry.Symptoms {
		profile[pe.Symptom] = pe.Weight
	}

	d := domain.Disease{
		ID:          entry.ID,
		Label:       entry.Label,
		Category:    category,
		Description: entry.Description,
		Treatment:   entry.Treatment,
		Severity:    domain.Severity(entry.Severity),
		ICDCode:     entry.ICDCode,
		Profile:     profile,
	}
	if d.Label == "" {
		d.Label = d.ID
	}
	if d.Severity == "" {
		d.Severity = domain.SeverityModerate
	}
	if entry.Conditions != nil {
		d.MinSymptoms = entry.Conditions.MinSymptoms
		d.RequiredSymptoms = entry.Conditions.RequiredSymptoms
	}
	return d
}

// collectSymptoms merges the declared symptom list with symptoms that only
// appear inside disease profiles, so older catalog files without a
// top-level symptom section keep working.
func collectSymptoms(declared []symptomEntry, diseases []domain.Disease) []domain.Symptom {
	index := make(map[string]domain.Symptom)
	for _, se := range declared {
		index[se.ID] = domain.Symptom{
			ID:       se.ID,
			Label:    se.Label,
			Category: domain.DiseaseCategory(se.Category),
		}
	}
	for _, d := range diseases {
		for symptomID := range d.Profile {
			if _, known := index[symptomID]; !known {
				index[symptomID] = domain.Symptom{ID: symptomID, Label: symptomID, Category: d.Category}
			}
		}
	}

	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	symptoms := make([]domain.Symptom, 0, len(index))
	for _, id := range ids {
		symptoms = append(symptoms, index[id])
	}
	return symptoms
}

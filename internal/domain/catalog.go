package domain

import (
	"fmt"
	"sort"
)

// Symptom is a catalog entry identified by a unique code. Symptoms are
// immutable once loaded for a session.
type Symptom struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Category DiseaseCategory `json:"category,omitempty"`
}

// Disease is a catalog entry with a weighted symptom profile and optional
// eligibility conditions.
type Disease struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Category    DiseaseCategory `json:"category"`
	Description string          `json:"description,omitempty"`
	Treatment   string          `json:"treatment,omitempty"`
	Severity    Severity        `json:"severity,omitempty"`
	ICDCode     string          `json:"icd_code,omitempty"`

	// Profile maps symptom ID to a non-negative weight. A disease with an
	// empty profile can never become a candidate.
	Profile map[string]float64 `json:"profile"`

	// MinSymptoms is the minimum number of matched symptoms required for
	// the disease to be considered at all. Zero means no minimum.
	MinSymptoms int `json:"min_symptoms,omitempty"`

	// RequiredSymptoms must all be present in the reported set for the
	// disease to be considered.
	RequiredSymptoms []string `json:"required_symptoms,omitempty"`
}

// TotalWeight returns the sum of all profile weights.
func (d *Disease) TotalWeight() float64 {
	var total float64
	for _, w := range d.Profile {
		total += w
	}
	return total
}

// Catalog is the trusted, read-only reference set of symptoms and diseases
// for one session. It is validated eagerly at construction so the engine
// can assume a well-formed catalog.
type Catalog struct {
	symptoms map[string]Symptom
	diseases []Disease
}

// NewCatalog builds a validated catalog. It rejects duplicate identities,
// negative weights and profile or condition references to symptoms that are
// not part of the symptom set.
func NewCatalog(symptoms []Symptom, diseases []Disease) (*Catalog, error) {
	symptomIndex := make(map[string]Symptom, len(symptoms))
	for _, s := range symptoms {
		if s.ID == "" {
			return nil, NewValidationError("symptom.id", "symptom ID must not be empty", nil)
		}
		if _, exists := symptomIndex[s.ID]; exists {
			return nil, NewValidationError("symptom.id", "duplicate symptom ID", s.ID)
		}
		symptomIndex[s.ID] = s
	}

	diseaseIDs := make(map[string]struct{}, len(diseases))
	for _, d := range diseases {
		if d.ID == "" {
			return nil, NewValidationError("disease.id", "disease ID must not be empty", nil)
		}
		if _, exists := diseaseIDs[d.ID]; exists {
			return nil, NewValidationError("disease.id", "duplicate disease ID", d.ID)
		}
		diseaseIDs[d.ID] = struct{}{}

		if len(d.Profile) == 0 {
			return nil, NewValidationError("disease.profile",
				fmt.Sprintf("disease %q has an empty symptom profile", d.ID), d.ID)
		}
		for symptomID, weight := range d.Profile {
			if _, known := symptomIndex[symptomID]; !known {
				return nil, NewValidationError("disease.profile",
					fmt.Sprintf("disease %q references unknown symptom %q", d.ID, symptomID), symptomID)
			}
			if weight < 0 {
				return nil, NewValidationError("disease.profile",
					fmt.Sprintf("disease %q has negative weight for symptom %q", d.ID, symptomID), weight)
			}
		}
		if d.MinSymptoms < 0 {
			return nil, NewValidationError("disease.min_symptoms",
				fmt.Sprintf("disease %q has negative minimum symptom count", d.ID), d.MinSymptoms)
		}
		for _, symptomID := range d.RequiredSymptoms {
			if _, inProfile := d.Profile[symptomID]; !inProfile {
				return nil, NewValidationError("disease.required_symptoms",
					fmt.Sprintf("disease %q requires symptom %q outside its profile", d.ID, symptomID), symptomID)
			}
		}
		if d.Severity != "" && !d.Severity.IsValid() {
			return nil, NewValidationError("disease.severity",
				fmt.Sprintf("disease %q has invalid severity", d.ID), string(d.Severity))
		}
		if d.Category != "" && !d.Category.IsValid() {
			return nil, NewValidationError("disease.category",
				fmt.Sprintf("disease %q has invalid category", d.ID), string(d.Category))
		}
	}

	held := make([]Disease, len(diseases))
	copy(held, diseases)

	return &Catalog{
		symptoms: symptomIndex,
		diseases: held,
	}, nil
}

// Symptom returns the symptom for the given ID.
func (c *Catalog) Symptom(id string) (Symptom, bool) {
	s, ok := c.symptoms[id]
	return s, ok
}

// HasSymptom reports whether the symptom ID is known to the catalog.
func (c *Catalog) HasSymptom(id string) bool {
	_, ok := c.symptoms[id]
	return ok
}

// Diseases returns the catalog diseases. Callers must treat the returned
// slice as read-only.
func (c *Catalog) Diseases() []Disease {
	return c.diseases
}

// DiseaseCount returns the number of diseases in the catalog.
func (c *Catalog) DiseaseCount() int {
	return len(c.diseases)
}

// SymptomCount returns the number of symptoms in the catalog.
func (c *Catalog) SymptomCount() int {
	return len(c.symptoms)
}

// SymptomIDs returns all symptom identities in lexicographic order.
func (c *Catalog) SymptomIDs() []string {
	ids := make([]string, 0, len(c.symptoms))
	for id := range c.symptoms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

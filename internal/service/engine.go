// Package service implements the diagnosis engine and the history manager
// on top of the domain entities and the store interfaces.
package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/domain"
)

// DiagnosisEngine ranks catalog diseases against a reported symptom set
// using weighted overlap scoring. Diagnose is a pure function of its
// inputs: it never mutates the catalog or any patient state, so it is safe
// to call concurrently for different patients.
type DiagnosisEngine struct {
	cfg domain.EngineConfig
	log *logrus.Logger
}

// NewDiagnosisEngine creates a diagnosis engine with the given scoring
// policy.
func NewDiagnosisEngine(cfg domain.EngineConfig, logger *logrus.Logger) *DiagnosisEngine {
	return &DiagnosisEngine{
		cfg: cfg,
		log: logger,
	}
}

// Diagnose scores every catalog disease against the reported symptoms and
// returns up to topN candidates ordered by descending score, then by
// descending matched-symptom count, then by ascending disease ID.
//
// An empty result is a valid clinical signal ("symptoms match no known
// disease"), returned as an empty slice with a nil error. Validation
// failures return a *domain.ValidationError.
func (e *DiagnosisEngine) Diagnose(reportedSymptoms []string, catalog *domain.Catalog, topN int) ([]domain.Candidate, error) {
	if err := e.validateInput(reportedSymptoms, catalog, topN); err != nil {
		return nil, err
	}

	reported := make(map[string]struct{}, len(reportedSymptoms))
	for _, id := range reportedSymptoms {
		reported[id] = struct{}{}
	}

	candidates := make([]domain.Candidate, 0, catalog.DiseaseCount())
	for _, disease := range catalog.Diseases() {
		candidate, eligible := e.evaluate(&disease, reported)
		if eligible {
			candidates = append(candidates, candidate)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.MatchedSymptoms) != len(b.MatchedSymptoms) {
			return len(a.MatchedSymptoms) > len(b.MatchedSymptoms)
		}
		return a.DiseaseID < b.DiseaseID
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	e.log.WithFields(logrus.Fields{
		"reported_symptoms": len(reportedSymptoms),
		"candidates":        len(candidates),
		"top_n":             topN,
	}).Debug("Diagnosis completed")

	return candidates, nil
}

// validateInput enforces the engine's preconditions.
func (e *DiagnosisEngine) validateInput(reportedSymptoms []string, catalog *domain.Catalog, topN int) error {
	if len(reportedSymptoms) == 0 {
		return domain.NewValidationError("reported_symptoms", "reported symptom set must not be empty", nil)
	}
	if catalog == nil || catalog.DiseaseCount() == 0 {
		return domain.NewValidationError("catalog", "catalog contains no diseases", nil)
	}
	if topN < 1 {
		return domain.NewValidationError("top_n", "top N must be at least 1", topN)
	}
	if e.cfg.MaxResults > 0 && topN > e.cfg.MaxResults {
		return domain.NewValidationError("top_n", "top N exceeds configured maximum", topN)
	}
	for _, id := range reportedSymptoms {
		if !catalog.HasSymptom(id) {
			return domain.NewValidationError("reported_symptoms", "unknown symptom identity", id)
		}
	}
	return nil
}

// evaluate scores one disease. The second return value is false when the
// disease is not a candidate: zero overlap, an unmet eligibility
// condition, or a score below the configured minimum.
func (e *DiagnosisEngine) evaluate(disease *domain.Disease, reported map[string]struct{}) (domain.Candidate, bool) {
	var matchedWeight, totalWeight float64
	matched := make([]string, 0, len(disease.Profile))
	missing := make([]string, 0, len(disease.Profile))

	for symptomID, weight := range disease.Profile {
		totalWeight += weight
		if _, ok := reported[symptomID]; ok {
			matchedWeight += weight
			matched = append(matched, symptomID)
		} else {
			missing = append(missing, symptomID)
		}
	}

	if len(matched) == 0 {
		return domain.Candidate{}, false
	}
	if disease.MinSymptoms > 0 && len(matched) < disease.MinSymptoms {
		return domain.Candidate{}, false
	}
	for _, required := range disease.RequiredSymptoms {
		if _, ok := reported[required]; !ok {
			return domain.Candidate{}, false
		}
	}

	// A profile whose weights sum to zero carries no scoring signal.
	if totalWeight <= 0 {
		return domain.Candidate{}, false
	}

	score := matchedWeight / totalWeight
	if score < e.cfg.MinScore {
		return domain.Candidate{}, false
	}

	sort.Strings(matched)
	sort.Strings(missing)

	return domain.Candidate{
		DiseaseID:       disease.ID,
		DiseaseLabel:    disease.Label,
		Category:        disease.Category,
		Severity:        disease.Severity,
		Treatment:       disease.Treatment,
		Score:           score,
		RawWeight:       matchedWeight,
		MaxWeight:       totalWeight,
		MatchedSymptoms: matched,
		MissingSymptoms: missing,
		Band:            e.cfg.BandFor(score),
	}, true
}

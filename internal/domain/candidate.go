package domain

// Candidate is one ranked scoring result for a disease in a single engine
// invocation. It is transient engine output; persisting it happens only as
// part of a DiagnosisRecord snapshot.
//
// DiseaseLabel, Severity and Treatment are copied out of the catalog at
// evaluation time so that later catalog edits cannot retroactively change
// a stored result.
type Candidate struct {
	DiseaseID    string          `json:"disease_id"`
	DiseaseLabel string          `json:"disease_label"`
	Category     DiseaseCategory `json:"category,omitempty"`
	Severity     Severity        `json:"severity,omitempty"`
	Treatment    string          `json:"treatment,omitempty"`

	// Score is the fraction of the disease's total symptom weight explained
	// by the reported symptoms, always in [0,1].
	Score float64 `json:"score"`

	// RawWeight and MaxWeight are the matched and total profile weight sums
	// behind Score, kept for explainability.
	RawWeight float64 `json:"raw_weight"`
	MaxWeight float64 `json:"max_weight"`

	// MatchedSymptoms and MissingSymptoms are sorted symptom identities.
	MatchedSymptoms []string `json:"matched_symptoms"`
	MissingSymptoms []string `json:"missing_symptoms,omitempty"`

	Band ConfidenceBand `json:"band"`
}

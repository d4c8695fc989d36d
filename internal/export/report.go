// Package export renders diagnosis results, patient charts and history
// listings as plain-text reports suitable for printing or archiving.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sympdx-server/internal/domain"
)

const reportWidth = 72

func rule(w io.Writer, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, reportWidth))
}

func header(w io.Writer, title string, at time.Time) {
	rule(w, "=")
	fmt.Fprintf(w, "%s\n", centered(title))
	fmt.Fprintf(w, "%s\n", centered("Generated at "+at.Format("2006-01-02 15:04 MST")))
	rule(w, "=")
	fmt.Fprintln(w)
}

func centered(s string) string {
	if len(s) >= reportWidth {
		return s
	}
	pad := (reportWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %-18s %s\n", label+":", value)
}

func listSection(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
	fmt.Fprintln(w)
}

func patientSection(w io.Writer, patient *domain.Patient, at time.Time) {
	fmt.Fprintln(w, "PATIENT")
	rule(w, "-")
	field(w, "Name", patient.Name)
	field(w, "Patient ID", patient.ID)
	field(w, "Birth date", patient.BirthDate)
	if patient.BirthDate != "" {
		field(w, "Age", fmt.Sprintf("%d", patient.Age(at)))
	}
	field(w, "Sex", string(patient.Sex))
	field(w, "Document", patient.DocumentNum)
	field(w, "Phone", patient.Phone)
	field(w, "Email", patient.Email)
	fmt.Fprintln(w)
}

func candidateSection(w io.Writer, candidates []domain.Candidate) {
	fmt.Fprintln(w, "RANKED CANDIDATES")
	rule(w, "-")
	if len(candidates) == 0 {
		fmt.Fprintln(w, "  No candidate diseases matched the reported symptoms.")
		fmt.Fprintln(w)
		return
	}

	for i, c := range candidates {
		fmt.Fprintf(w, "%2d. %s  [%s]  %.1f%%\n", i+1, c.DiseaseLabel, c.Band, c.Score*100)
		if c.Severity != "" {
			fmt.Fprintf(w, "    Severity: %s   Category: %s\n", c.Severity, c.Category)
		}
		if len(c.MatchedSymptoms) > 0 {
			fmt.Fprintf(w, "    Matched:  %s\n", strings.Join(c.MatchedSymptoms, ", "))
		}
		if len(c.MissingSymptoms) > 0 {
			fmt.Fprintf(w, "    Missing:  %s\n", strings.Join(c.MissingSymptoms, ", "))
		}
		if c.Treatment != "" {
			fmt.Fprintf(w, "    Treatment: %s\n", c.Treatment)
		}
		fmt.Fprintln(w)
	}
}

// WriteDiagnosisReport renders one diagnosis record as a text report.
func WriteDiagnosisReport(w io.Writer, patient *domain.Patient, record *domain.DiagnosisRecord) error {
	if patient == nil || record == nil {
		return fmt.Errorf("patient and record are required")
	}

	header(w, "DIAGNOSIS REPORT", record.CreatedAt)
	patientSection(w, patient, record.CreatedAt)

	fmt.Fprintln(w, "REPORTED SYMPTOMS")
	rule(w, "-")
	for _, s := range record.ReportedSymptoms {
		fmt.Fprintf(w, "  - %s\n", s)
	}
	fmt.Fprintln(w)

	candidateSection(w, record.Candidates)

	rule(w, "=")
	fmt.Fprintln(w, "This report is a decision-support aid, not a medical diagnosis.")
	fmt.Fprintln(w, "Results must be reviewed by a qualified clinician.")
	rule(w, "=")
	return nil
}

// WritePatientChart renders a patient's demographics and clinical
// background as a text chart.
func WritePatientChart(w io.Writer, patient *domain.Patient) error {
	if patient == nil {
		return fmt.Errorf("patient is required")
	}

	now := time.Now().UTC()
	header(w, "PATIENT CHART", now)
	patientSection(w, patient, now)

	fmt.Fprintln(w, "CONTACT")
	rule(w, "-")
	field(w, "Address", patient.Address)
	field(w, "City", patient.City)
	field(w, "State", patient.State)
	field(w, "Postal code", patient.PostalCode)
	fmt.Fprintln(w)

	listSection(w, "ALLERGIES", patient.Allergies)
	listSection(w, "MEDICATIONS", patient.Medications)
	listSection(w, "CHRONIC DISEASES", patient.ChronicDiseases)
	listSection(w, "PRIOR SURGERIES", patient.PriorSurgeries)

	if len(patient.FamilyHistory) > 0 {
		fmt.Fprintln(w, "FAMILY HISTORY")
		relatives := make([]string, 0, len(patient.FamilyHistory))
		for relative := range patient.FamilyHistory {
			relatives = append(relatives, relative)
		}
		sort.Strings(relatives)
		for _, relative := range relatives {
			fmt.Fprintf(w, "  - %s: %s\n", relative, patient.FamilyHistory[relative])
		}
		fmt.Fprintln(w)
	}

	if patient.Notes != "" {
		fmt.Fprintln(w, "NOTES")
		rule(w, "-")
		fmt.Fprintf(w, "  %s\n\n", patient.Notes)
	}

	rule(w, "=")
	return nil
}

// WriteHistoryReport renders a patient's diagnosis history, oldest
// first, as a text report.
func WriteHistoryReport(w io.Writer, patient *domain.Patient, records []*domain.DiagnosisRecord) error {
	if patient == nil {
		return fmt.Errorf("patient is required")
	}

	now := time.Now().UTC()
	header(w, "DIAGNOSIS HISTORY", now)
	patientSection(w, patient, now)

	fmt.Fprintf(w, "RECORDS (%d)\n", len(records))
	rule(w, "-")
	if len(records) == 0 {
		fmt.Fprintln(w, "  No diagnosis records.")
	}
	for i, rec := range records {
		fmt.Fprintf(w, "%2d. %s\n", i+1, rec.CreatedAt.Format("2006-01-02 15:04 MST"))
		fmt.Fprintf(w, "    Symptoms: %s\n", strings.Join(rec.ReportedSymptoms, ", "))
		if rec.TopDisease != "" {
			fmt.Fprintf(w, "    Top candidate: %s (%.1f%%)\n", rec.TopDisease, rec.TopScore*100)
		} else {
			fmt.Fprintln(w, "    Top candidate: none")
		}
		fmt.Fprintln(w)
	}

	rule(w, "=")
	return nil
}

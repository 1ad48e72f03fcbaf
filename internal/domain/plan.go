package domain

import (
	"fmt"
	"strings"
	"time"
)

// TreatmentPlan is the ordered set of recommendations. The first statement of
// each list is the primary recommendation; later ones are conditional additions.
type TreatmentPlan struct {
	Surgery      []string `json:"surgery"`
	Adjuvant     []string `json:"adjuvant"`
	Surveillance []string `json:"surveillance"`
}

// AllSteps flattens the plan in surgery, adjuvant, surveillance order.
func (p TreatmentPlan) AllSteps() []string {
	steps := make([]string, 0, len(p.Surgery)+len(p.Adjuvant)+len(p.Surveillance))
	steps = append(steps, p.Surgery...)
	steps = append(steps, p.Adjuvant...)
	return append(steps, p.Surveillance...)
}

// Assessment is the full pipeline output for one case.
type Assessment struct {
	ID               string           `json:"id"`
	Patient          PatientProfile   `json:"patient"`
	Tumor            TumorProfile     `json:"tumor"`
	MolecularSubtype MolecularSubtype `json:"molecular_subtype"`
	Stage            Stage            `json:"stage"`
	RiskGroup        RiskGroup        `json:"risk_group"`
	Plan             TreatmentPlan    `json:"plan"`
	EngineVersion    string           `json:"engine_version"`
	Fingerprint      string           `json:"fingerprint,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Clone returns a deep copy so that cached assessments cannot be altered
// through a returned pointer.
func (a *Assessment) Clone() *Assessment {
	if a == nil {
		return nil
	}
	c := *a
	c.Plan = TreatmentPlan{
		Surgery:      append([]string(nil), a.Plan.Surgery...),
		Adjuvant:     append([]string(nil), a.Plan.Adjuvant...),
		Surveillance: append([]string(nil), a.Plan.Surveillance...),
	}
	return &c
}

// ContextSummary renders the plain-text patient context handed to the
// explanation service.
func (a *Assessment) ContextSummary() string {
	return fmt.Sprintf("Patient Age: %d, Histology: %s, Stage: %s, Risk: %s, Molecular: %s",
		a.Patient.Age,
		a.Tumor.Histology.Label(),
		a.Stage,
		a.RiskGroup.Label(),
		a.MolecularSubtype.Label(),
	)
}

// Text renders the assessment as a human-readable report.
func (a *Assessment) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stage: FIGO %s\n", a.Stage)
	fmt.Fprintf(&b, "Risk Group: %s\n", a.RiskGroup.Label())
	fmt.Fprintf(&b, "Molecular: %s\n", a.MolecularSubtype.Label())
	section := func(title string, items []string) {
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "  - %s\n", item)
		}
	}
	section("Surgical Management", a.Plan.Surgery)
	section("Adjuvant Therapy", a.Plan.Adjuvant)
	section("Surveillance", a.Plan.Surveillance)
	return b.String()
}

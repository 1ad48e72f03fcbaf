// Package feedback stores clinician review of suggested risk groups. Each
// entry records whether the reviewer agreed with the engine or overrode it,
// keyed by case fingerprint and reviewer.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// Feedback represents a clinician's review of one assessment.
type Feedback struct {
	ID               int64                   `json:"id,omitempty"`
	CaseFingerprint  string                  `json:"case_fingerprint"`        // Input fingerprint of the case
	AssessmentID     string                  `json:"assessment_id,omitempty"` // Assessment reviewed
	Stage            domain.Stage            `json:"stage"`
	MolecularSubtype domain.MolecularSubtype `json:"molecular_subtype"`
	SuggestedRisk    domain.RiskGroup        `json:"suggested_risk"` // Engine's suggestion
	ClinicianRisk    domain.RiskGroup        `json:"clinician_risk"` // Clinician's decision
	Agreed           bool                    `json:"agreed"`
	Reviewer         string                  `json:"reviewer,omitempty"`
	Notes            string                  `json:"notes,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// Validate checks required fields and derives Agreed.
func (f *Feedback) Validate() error {
	f.CaseFingerprint = strings.TrimSpace(f.CaseFingerprint)
	if f.CaseFingerprint == "" {
		return domain.NewValidationError("case_fingerprint", "case fingerprint is required", f.CaseFingerprint)
	}
	if !f.SuggestedRisk.IsValid() {
		return domain.NewFieldError("suggested_risk", domain.ErrInvalidRiskGroup, f.SuggestedRisk)
	}
	if !f.ClinicianRisk.IsValid() {
		return domain.NewFieldError("clinician_risk", domain.ErrInvalidRiskGroup, f.ClinicianRisk)
	}
	if f.Stage != "" && !f.Stage.IsValid() {
		return domain.NewFieldError("stage", domain.ErrInvalidStage, f.Stage)
	}
	if f.MolecularSubtype != "" && !f.MolecularSubtype.IsValid() {
		return domain.NewFieldError("molecular_subtype", domain.ErrInvalidMolecularSubtype, f.MolecularSubtype)
	}
	f.Agreed = f.SuggestedRisk == f.ClinicianRisk
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. An existing entry for the same
	// fingerprint and reviewer is updated in place.
	Save(ctx context.Context, feedback *Feedback) error

	// Get returns the entry for a fingerprint and reviewer, or nil if absent.
	Get(ctx context.Context, caseFingerprint string, reviewer string) (*Feedback, error)

	// List returns entries newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	Count(ctx context.Context) (int64, error)

	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader. Entries already present
	// are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

const exportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// Summary aggregates agreement statistics.
type Summary struct {
	Total         int64                                           `json:"total"`
	Agreed        int64                                           `json:"agreed"`
	AgreementRate float64                                         `json:"agreement_rate"`
	Overrides     map[domain.RiskGroup]map[domain.RiskGroup]int64 `json:"overrides,omitempty"`
}

// Summarize computes agreement statistics over every stored entry.
func Summarize(ctx context.Context, s Store) (*Summary, error) {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	summary := &Summary{Overrides: map[domain.RiskGroup]map[domain.RiskGroup]int64{}}
	for _, fb := range all {
		summary.Total++
		if fb.Agreed {
			summary.Agreed++
			continue
		}
		if summary.Overrides[fb.SuggestedRisk] == nil {
			summary.Overrides[fb.SuggestedRisk] = map[domain.RiskGroup]int64{}
		}
		summary.Overrides[fb.SuggestedRisk][fb.ClinicianRisk]++
	}
	if summary.Total > 0 {
		summary.AgreementRate = float64(summary.Agreed) / float64(summary.Total)
	}
	return summary, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = `id, case_fingerprint, assessment_id, stage, molecular_subtype,
			suggested_risk, clinician_risk, agreed, reviewer, notes, created_at, updated_at`

// scanFeedback scans a row into a Feedback struct.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var stage, mol, suggested, clinician string

	err := s.Scan(
		&fb.ID, &fb.CaseFingerprint, &fb.AssessmentID, &stage, &mol,
		&suggested, &clinician, &fb.Agreed, &fb.Reviewer, &fb.Notes,
		&fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.Stage = domain.Stage(stage)
	fb.MolecularSubtype = domain.MolecularSubtype(mol)
	fb.SuggestedRisk = domain.RiskGroup(suggested)
	fb.ClinicianRisk = domain.RiskGroup(clinician)
	return fb, nil
}

func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if all == nil {
		all = []*Feedback{}
	}

	export := &FeedbackExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		existing, err := s.Get(ctx, fb.CaseFingerprint, fb.Reviewer)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

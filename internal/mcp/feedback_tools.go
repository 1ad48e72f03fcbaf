package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/feedback"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

type submitFeedbackArgs struct {
	AssessmentID  string `json:"assessment_id" jsonschema:"id returned by assess_case"`
	ClinicianRisk string `json:"clinician_risk" jsonschema:"risk group the clinician assigned, tag or label"`
	Reviewer      string `json:"reviewer,omitempty" jsonschema:"reviewer identifier; one entry is kept per reviewer and case"`
	Notes         string `json:"notes,omitempty"`
}

type listFeedbackArgs struct {
	Limit  int `json:"limit,omitempty" jsonschema:"page size, default 20, max 200"`
	Offset int `json:"offset,omitempty"`
}

type exportFeedbackArgs struct {
	FileName string `json:"file_name,omitempty" jsonschema:"file name inside the export directory; defaults to a timestamped name"`
}

func (t Tools) registerFeedbackTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_feedback",
		Description: "Record the clinician's risk group for an assessment, overriding or confirming the engine",
	}, t.handleSubmitFeedback)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_feedback",
		Description: "List recorded clinician feedback, newest first, with agreement statistics",
	}, t.handleListFeedback)

	if t.ExportDir != "" {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "export_feedback",
			Description: "Export all feedback to a JSON file in the export directory",
		}, t.handleExportFeedback)
	}
}

func (t Tools) handleSubmitFeedback(ctx context.Context, _ *mcp.CallToolRequest, args submitFeedbackArgs) (*mcp.CallToolResult, any, error) {
	clinicianRisk, err := domain.ParseRiskGroup(args.ClinicianRisk)
	if err != nil {
		return errorResult("invalid feedback", domain.NewFieldError("clinician_risk", err, args.ClinicianRisk)), nil, nil
	}
	assessment, err := t.Assessor.Get(ctx, args.AssessmentID)
	if err != nil {
		return errorResult("assessment lookup failed", err), nil, nil
	}

	fb := &feedback.Feedback{
		CaseFingerprint:  assessment.Fingerprint,
		AssessmentID:     assessment.ID,
		Stage:            assessment.Stage,
		MolecularSubtype: assessment.MolecularSubtype,
		SuggestedRisk:    assessment.RiskGroup,
		ClinicianRisk:    clinicianRisk,
		Reviewer:         args.Reviewer,
		Notes:            args.Notes,
	}
	if err := t.Feedback.Save(ctx, fb); err != nil {
		return errorResult("failed to save feedback", err), nil, nil
	}

	t.Logger.WithFields(logrus.Fields{
		"tool":           "submit_feedback",
		"assessment_id":  fb.AssessmentID,
		"suggested_risk": fb.SuggestedRisk,
		"clinician_risk": fb.ClinicianRisk,
		"agreed":         fb.Agreed,
	}).Info("Clinician feedback recorded")

	return resultOrError(fb)
}

func (t Tools) handleListFeedback(ctx context.Context, _ *mcp.CallToolRequest, args listFeedbackArgs) (*mcp.CallToolResult, any, error) {
	limit := args.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := max(args.Offset, 0)

	entries, err := t.Feedback.List(ctx, limit, offset)
	if err != nil {
		return errorResult("failed to list feedback", err), nil, nil
	}
	summary, err := feedback.Summarize(ctx, t.Feedback)
	if err != nil {
		return errorResult("failed to summarize feedback", err), nil, nil
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	return resultOrError(map[string]any{
		"feedback": entries,
		"summary":  summary,
		"limit":    limit,
		"offset":   offset,
	})
}

func (t Tools) handleExportFeedback(ctx context.Context, _ *mcp.CallToolRequest, args exportFeedbackArgs) (*mcp.CallToolResult, any, error) {
	name := filepath.Base(args.FileName)
	if args.FileName == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("feedback-%s.json", time.Now().UTC().Format("20060102-150405"))
	}

	if err := os.MkdirAll(t.ExportDir, 0o755); err != nil {
		return errorResult("failed to create export directory", err), nil, nil
	}
	path := filepath.Join(t.ExportDir, name)
	f, err := os.Create(path)
	if err != nil {
		return errorResult("failed to create export file", err), nil, nil
	}
	defer f.Close()

	if err := t.Feedback.ExportJSON(ctx, f); err != nil {
		return errorResult("export failed", err), nil, nil
	}
	count, err := t.Feedback.Count(ctx)
	if err != nil {
		return errorResult("export failed", err), nil, nil
	}

	t.Logger.WithFields(logrus.Fields{"path": path, "count": count}).Info("Feedback exported")
	return resultOrError(map[string]any{"path": path, "count": count})
}

package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (t Tools) registerPrompts(server *mcp.Server) {
	server.AddPrompt(&mcp.Prompt{
		Name:        "staging_workflow",
		Title:       "Stage a case",
		Description: "Step-by-step guidance for staging an endometrial cancer case with the available tools",
	}, t.stagingWorkflowPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "tumor_board_summary",
		Title:       "Tumor board summary",
		Description: "Draft a multidisciplinary tumor board summary for a previous assessment",
		Arguments: []*mcp.PromptArgument{
			{Name: "assessment_id", Description: "ID returned by assess_case", Required: true},
			{Name: "audience", Description: "clinician (default) or patient"},
		},
	}, t.tumorBoardPrompt)
}

func userMessage(text string) *mcp.PromptMessage {
	return &mcp.PromptMessage{Role: "user", Content: &mcp.TextContent{Text: text}}
}

func (t Tools) stagingWorkflowPrompt(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var b strings.Builder
	b.WriteString("Stage an endometrial cancer case using FIGO 2023 with molecular classification.\n\n")
	b.WriteString("1. If you only have free-text pathology findings, call normalize_report to map them onto a tumor profile.\n")
	b.WriteString("2. Read " + vocabularyURI + " for the accepted tags of every field.\n")
	b.WriteString("3. Call assess_case with the patient and tumor profiles. Omitted fields keep the intake defaults.\n")
	b.WriteString("4. Report the stage, risk group and molecular subtype exactly as returned, then the plan steps in order.\n")
	b.WriteString("5. Never alter the engine output. If the clinician disagrees with the risk group, record it with submit_feedback.\n")
	return &mcp.GetPromptResult{
		Description: "FIGO 2023 staging workflow",
		Messages:    []*mcp.PromptMessage{userMessage(b.String())},
	}, nil
}

func (t Tools) tumorBoardPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := strings.TrimSpace(req.Params.Arguments["assessment_id"])
	if id == "" {
		return nil, fmt.Errorf("assessment_id is required")
	}
	assessment, err := t.Assessor.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	audience := req.Params.Arguments["audience"]
	style := "Write for a multidisciplinary tumor board: concise, clinical terminology, one paragraph per section."
	if audience == "patient" {
		style = "Write for the patient: plain language, no jargon, reassuring but accurate."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summarise the following endometrial cancer assessment. %s\n\n", style)
	fmt.Fprintf(&b, "Context: %s\n\n", assessment.ContextSummary())
	b.WriteString(assessment.Text())
	b.WriteString("\nDo not change the stage, risk group or any plan step.")

	return &mcp.GetPromptResult{
		Description: "Tumor board summary for assessment " + assessment.ID,
		Messages:    []*mcp.PromptMessage{userMessage(b.String())},
	}, nil
}

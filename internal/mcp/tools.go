package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/feedback"
	"github.com/figo-endometrial-mcp-server/internal/service"
	"github.com/figo-endometrial-mcp-server/pkg/external"
)

// Tools holds the collaborators behind the MCP tool set. Feedback, Scan and
// Explain are optional; their tools are only registered when present.
type Tools struct {
	Assessor  *service.Assessor
	Feedback  feedback.Store
	Scan      *external.ScanClient
	Explain   *external.ExplainClient
	ExportDir string
	Logger    *logrus.Logger
}

// NewToolServer builds an MCP server exposing the staging engine.
func NewToolServer(name, version string, t Tools) *mcp.Server {
	if t.Logger == nil {
		t.Logger = logrus.StandardLogger()
	}
	if t.Assessor == nil {
		t.Assessor = service.NewAssessor(t.Logger)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	t.registerEngineTools(server)
	t.registerResources(server)
	t.registerPrompts(server)
	if t.Feedback != nil {
		t.registerFeedbackTools(server)
	}
	if t.Scan.Enabled() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "scan_report",
			Description: "Extract pathology findings from a report image and apply them to a tumor profile",
		}, t.handleScan)
	}
	if t.Explain.Enabled() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "explain_assessment",
			Description: "Explain a previous assessment in plain language, or answer a follow-up question about it",
		}, t.handleExplain)
	}
	return server
}

// Nested profiles are free-form objects so that partial documents keep the
// intake defaults for omitted fields.
type caseArgs struct {
	Patient map[string]any `json:"patient,omitempty" jsonschema:"patient attributes: age, bmi, menopausal_status (pre|post), fitness (fit|unfit)"`
	Tumor   map[string]any `json:"tumor,omitempty" jsonschema:"pathology findings: histology, myoinvasion, cervical_invasion, lvsi, tumor_size_cm, er_positive, extent flags and molecular markers"`
}

type riskArgs struct {
	Tumor            map[string]any `json:"tumor,omitempty" jsonschema:"pathology findings; omitted fields keep intake defaults"`
	Stage            string         `json:"stage" jsonschema:"FIGO 2023 stage code such as IA2 or IIIC1"`
	MolecularSubtype string         `json:"molecular_subtype" jsonschema:"pole_mutated, mmr_deficient, p53_abnormal or nsmp"`
}

type planArgs struct {
	Patient          map[string]any `json:"patient,omitempty" jsonschema:"patient attributes; omitted fields keep intake defaults"`
	Tumor            map[string]any `json:"tumor,omitempty" jsonschema:"pathology findings; omitted fields keep intake defaults"`
	Stage            string         `json:"stage" jsonschema:"FIGO 2023 stage code"`
	RiskGroup        string         `json:"risk_group" jsonschema:"risk group tag or label"`
	MolecularSubtype string         `json:"molecular_subtype" jsonschema:"molecular subtype tag or label"`
}

type normalizeArgs struct {
	Tumor        map[string]any `json:"tumor,omitempty" jsonschema:"profile the report fields are applied to"`
	Histology    *string        `json:"histology,omitempty" jsonschema:"histology text as written in the report"`
	Myoinvasion  *string        `json:"myoinvasion,omitempty" jsonschema:"depth of myometrial invasion as written in the report"`
	LVSI         *string        `json:"lvsi,omitempty" jsonschema:"LVSI text as written in the report"`
	POLEMutation *bool          `json:"pole_mutation,omitempty"`
	MMRDeficient *bool          `json:"mmr_deficient,omitempty"`
	P53Abnormal  *bool          `json:"p53_abnormal,omitempty"`
}

type scanArgs struct {
	ImageBase64 string         `json:"image_base64" jsonschema:"base64-encoded report image"`
	MimeType    string         `json:"mime_type,omitempty" jsonschema:"image MIME type, default image/png"`
	Tumor       map[string]any `json:"tumor,omitempty" jsonschema:"profile the extracted fields are applied to"`
}

type explainArgs struct {
	AssessmentID string `json:"assessment_id" jsonschema:"id returned by assess_case"`
	Question     string `json:"question,omitempty" jsonschema:"follow-up question; omit for a general explanation"`
}

func (t Tools) registerEngineTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_case",
		Description: "Run the full FIGO 2023 pipeline: molecular subtype, stage, risk group and treatment plan",
	}, t.handleAssess)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_molecular",
		Description: "Classify the molecular subtype (POLEmut > MMRd > p53abn > NSMP)",
	}, t.handleClassify)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "determine_stage",
		Description: "Determine the FIGO 2023 stage including molecular modifiers",
	}, t.handleStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_risk",
		Description: "Assign the prognostic risk group for a stage and molecular subtype",
	}, t.handleRisk)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "plan_treatment",
		Description: "Build the surgical, adjuvant and surveillance recommendations",
	}, t.handlePlan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "normalize_report",
		Description: "Map free-text pathology report fields onto a tumor profile",
	}, t.handleNormalize)
}

func (t Tools) handleAssess(ctx context.Context, _ *mcp.CallToolRequest, args caseArgs) (*mcp.CallToolResult, any, error) {
	t.Logger.WithField("tool", "assess_case").Info("Tool invoked")

	in, err := args.decode()
	if err != nil {
		return errorResult("invalid case", err), nil, nil
	}
	assessment, err := t.Assessor.Assess(ctx, in.Patient, in.Tumor)
	if err != nil {
		return errorResult("assessment failed", err), nil, nil
	}

	result, err := jsonResult(assessment)
	if err != nil {
		return nil, nil, err
	}
	result.Content = append(result.Content, &mcp.TextContent{Text: assessment.Text()})
	return result, nil, nil
}

func (t Tools) handleClassify(_ context.Context, _ *mcp.CallToolRequest, args caseArgs) (*mcp.CallToolResult, any, error) {
	in, err := args.decode()
	if err != nil {
		return errorResult("invalid case", err), nil, nil
	}
	mol, err := t.Assessor.Classify(in.Tumor)
	if err != nil {
		return errorResult("classification failed", err), nil, nil
	}
	return resultOrError(map[string]any{"molecular_subtype": mol, "label": mol.Label()})
}

func (t Tools) handleStage(_ context.Context, _ *mcp.CallToolRequest, args caseArgs) (*mcp.CallToolResult, any, error) {
	in, err := args.decode()
	if err != nil {
		return errorResult("invalid case", err), nil, nil
	}
	mol, stage, err := t.Assessor.Stage(in.Tumor)
	if err != nil {
		return errorResult("staging failed", err), nil, nil
	}
	return resultOrError(map[string]any{
		"molecular_subtype": mol,
		"stage":             stage,
		"advanced":          stage.IsAdvanced(),
	})
}

func (t Tools) handleRisk(_ context.Context, _ *mcp.CallToolRequest, args riskArgs) (*mcp.CallToolResult, any, error) {
	in, err := caseArgs{Tumor: args.Tumor}.decode()
	if err != nil {
		return errorResult("invalid tumor profile", err), nil, nil
	}
	mol, err := parseMolecular(args.MolecularSubtype)
	if err != nil {
		return errorResult("invalid molecular subtype", err), nil, nil
	}
	risk, err := t.Assessor.Risk(in.Tumor, domain.Stage(args.Stage), mol)
	if err != nil {
		return errorResult("risk assessment failed", err), nil, nil
	}
	return resultOrError(map[string]any{"risk_group": risk, "label": risk.Label()})
}

func (t Tools) handlePlan(_ context.Context, _ *mcp.CallToolRequest, args planArgs) (*mcp.CallToolResult, any, error) {
	in, err := caseArgs{Patient: args.Patient, Tumor: args.Tumor}.decode()
	if err != nil {
		return errorResult("invalid case", err), nil, nil
	}
	mol, err := parseMolecular(args.MolecularSubtype)
	if err != nil {
		return errorResult("invalid molecular subtype", err), nil, nil
	}
	risk, err := domain.ParseRiskGroup(args.RiskGroup)
	if err != nil {
		return errorResult("invalid risk group", domain.NewFieldError("risk_group", err, args.RiskGroup)), nil, nil
	}
	plan, err := t.Assessor.Plan(in.Patient, in.Tumor, domain.Stage(args.Stage), risk, mol)
	if err != nil {
		return errorResult("planning failed", err), nil, nil
	}
	return resultOrError(plan)
}

func (t Tools) handleNormalize(_ context.Context, _ *mcp.CallToolRequest, args normalizeArgs) (*mcp.CallToolResult, any, error) {
	in, err := caseArgs{Tumor: args.Tumor}.decode()
	if err != nil {
		return errorResult("invalid tumor profile", err), nil, nil
	}
	tumor := service.ApplyScanResult(in.Tumor, domain.ScanResult{
		Histology:    args.Histology,
		Myoinvasion:  args.Myoinvasion,
		LVSI:         args.LVSI,
		POLEMutation: args.POLEMutation,
		MMRDeficient: args.MMRDeficient,
		P53Abnormal:  args.P53Abnormal,
	})
	return resultOrError(map[string]any{"tumor": tumor})
}

func (t Tools) handleScan(ctx context.Context, _ *mcp.CallToolRequest, args scanArgs) (*mcp.CallToolResult, any, error) {
	in, err := caseArgs{Tumor: args.Tumor}.decode()
	if err != nil {
		return errorResult("invalid tumor profile", err), nil, nil
	}
	image, err := base64.StdEncoding.DecodeString(args.ImageBase64)
	if err != nil {
		return errorResult("invalid image", domain.NewValidationError("image_base64", "image must be base64 encoded", nil)), nil, nil
	}

	scan, err := t.Scan.Scan(ctx, image, args.MimeType)
	if err != nil {
		return errorResult("report scan failed", err), nil, nil
	}
	return resultOrError(map[string]any{
		"scan":  scan,
		"tumor": service.ApplyScanResult(in.Tumor, *scan),
	})
}

func (t Tools) handleExplain(ctx context.Context, _ *mcp.CallToolRequest, args explainArgs) (*mcp.CallToolResult, any, error) {
	assessment, err := t.Assessor.Get(ctx, args.AssessmentID)
	if err != nil {
		return errorResult("assessment lookup failed", err), nil, nil
	}

	var text string
	if args.Question != "" {
		text, err = t.Explain.Chat(ctx, []domain.ChatMessage{{Role: "user", Text: args.Question}}, assessment)
	} else {
		text, err = t.Explain.Explain(ctx, assessment)
	}
	if err != nil {
		t.Logger.WithError(err).WithField("assessment_id", assessment.ID).Warn("Explanation fell back to canned reply")
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
}

// decode overlays the supplied objects onto the intake defaults.
func (a caseArgs) decode() (domain.CaseInput, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return domain.CaseInput{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return domain.DecodeCaseInput(bytes.NewReader(raw))
}

func parseMolecular(s string) (domain.MolecularSubtype, error) {
	mol, err := domain.ParseMolecularSubtype(s)
	if err != nil {
		return "", domain.NewFieldError("molecular_subtype", err, s)
	}
	return mol, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil
}

func resultOrError(v any) (*mcp.CallToolResult, any, error) {
	result, err := jsonResult(v)
	return result, nil, err
}

// errorResult reports a tool failure to the model rather than as a protocol
// error, naming the offending field for validation failures.
func errorResult(message string, err error) *mcp.CallToolResult {
	text := fmt.Sprintf("%s: %v", message, err)
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		text = fmt.Sprintf("%s: field %q: %s", message, vErr.Field, vErr.Message)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

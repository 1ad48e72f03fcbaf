package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/service"
)

const (
	vocabularyURI       = "figo://vocabulary"
	stageRulesURI       = "figo://stage-rules"
	assessmentURIPrefix = "figo://assessments/"
)

func (t Tools) registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		Name:        "vocabulary",
		Title:       "Accepted vocabulary",
		URI:         vocabularyURI,
		MIMEType:    "application/json",
		Description: "Every accepted input tag with its display label, plus the stage codes the engine emits",
	}, t.readVocabulary)

	server.AddResource(&mcp.Resource{
		Name:        "stage_rules",
		Title:       "Staging decision table",
		URI:         stageRulesURI,
		MIMEType:    "application/json",
		Description: "Staging rows in evaluation order; the first matching row fixes the stage",
	}, t.readStageRules)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "assessment",
		Title:       "Assessment",
		URITemplate: assessmentURIPrefix + "{id}",
		MIMEType:    "application/json",
		Description: "A previously produced assessment by ID",
	}, t.readAssessment)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: string(data)}},
	}, nil
}

func (t Tools) readVocabulary(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, service.BuildVocabulary())
}

type stageRuleEntry struct {
	Order int    `json:"order"`
	Name  string `json:"name"`
}

func (t Tools) readStageRules(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	rules := service.StageRules()
	entries := make([]stageRuleEntry, len(rules))
	for i, r := range rules {
		entries[i] = stageRuleEntry{Order: i + 1, Name: r.Name}
	}
	return jsonResource(req.Params.URI, map[string]any{
		"engine_version": service.EngineVersion,
		"rules":          entries,
	})
}

func (t Tools) readAssessment(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := strings.TrimPrefix(req.Params.URI, assessmentURIPrefix)
	if id == "" || id == req.Params.URI {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	assessment, err := t.Assessor.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, assessment)
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/feedback"
	"github.com/figo-endometrial-mcp-server/internal/middleware"
	"github.com/figo-endometrial-mcp-server/internal/service"
	"github.com/figo-endometrial-mcp-server/pkg/external"
)

const (
	defaultFeedbackPage = 50
	maxFeedbackPage     = 500
)

type riskRequest struct {
	Tumor            domain.TumorProfile     `json:"tumor"`
	Stage            domain.Stage            `json:"stage"`
	MolecularSubtype domain.MolecularSubtype `json:"molecular_subtype"`
}

type planRequest struct {
	Patient          domain.PatientProfile   `json:"patient"`
	Tumor            domain.TumorProfile     `json:"tumor"`
	Stage            domain.Stage            `json:"stage"`
	RiskGroup        domain.RiskGroup        `json:"risk_group"`
	MolecularSubtype domain.MolecularSubtype `json:"molecular_subtype"`
}

type normalizeRequest struct {
	Tumor domain.TumorProfile `json:"tumor"`
	Scan  domain.ScanResult   `json:"scan"`
}

type scanRequest struct {
	Image    []byte              `json:"image"` // base64 in JSON
	MimeType string              `json:"mime_type"`
	Tumor    domain.TumorProfile `json:"tumor"`
}

type explainRequest struct {
	AssessmentID string               `json:"assessment_id"`
	Case         json.RawMessage      `json:"case,omitempty"` // decoded onto intake defaults
	History      []domain.ChatMessage `json:"history,omitempty"`
}

type feedbackRequest struct {
	AssessmentID  string `json:"assessment_id"`
	ClinicianRisk string `json:"clinician_risk"`
	Reviewer      string `json:"reviewer"`
	Notes         string `json:"notes"`
}

func (s *Server) handleVocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, service.BuildVocabulary())
}

func (s *Server) handleAssess(c *gin.Context) {
	in, ok := s.bindCase(c)
	if !ok {
		return
	}

	assessment, err := s.deps.Assessor.Assess(c.Request.Context(), in.Patient, in.Tumor)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleClassify(c *gin.Context) {
	in, ok := s.bindCase(c)
	if !ok {
		return
	}

	mol, err := s.deps.Assessor.Classify(in.Tumor)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"molecular_subtype": mol,
		"label":             mol.Label(),
	})
}

func (s *Server) handleStage(c *gin.Context) {
	in, ok := s.bindCase(c)
	if !ok {
		return
	}

	mol, stage, err := s.deps.Assessor.Stage(in.Tumor)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"molecular_subtype": mol,
		"stage":             stage,
		"advanced":          stage.IsAdvanced(),
	})
}

func (s *Server) handleRisk(c *gin.Context) {
	req := riskRequest{Tumor: domain.DefaultTumorProfile()}
	if !s.bindJSON(c, &req) {
		return
	}

	risk, err := s.deps.Assessor.Risk(req.Tumor, req.Stage, req.MolecularSubtype)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"risk_group": risk,
		"label":      risk.Label(),
	})
}

func (s *Server) handlePlan(c *gin.Context) {
	req := planRequest{Patient: domain.DefaultPatientProfile(), Tumor: domain.DefaultTumorProfile()}
	if !s.bindJSON(c, &req) {
		return
	}

	plan, err := s.deps.Assessor.Plan(req.Patient, req.Tumor, req.Stage, req.RiskGroup, req.MolecularSubtype)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) handleNormalize(c *gin.Context) {
	req := normalizeRequest{Tumor: domain.DefaultTumorProfile()}
	if !s.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tumor": service.ApplyScanResult(req.Tumor, req.Scan)})
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	assessment, err := s.deps.Assessor.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleScan(c *gin.Context) {
	req := scanRequest{Tumor: domain.DefaultTumorProfile()}
	if !s.bindJSON(c, &req) {
		return
	}

	result, err := s.deps.Scan.Scan(c.Request.Context(), req.Image, req.MimeType)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, external.ErrServiceDisabled) {
			s.respondError(c, err)
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, domain.NewAPIError(
			domain.CodeExternalAPI, "report scan failed", err.Error(), c.GetString(middleware.CorrelationIDKey)))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scan":  result,
		"tumor": service.ApplyScanResult(req.Tumor, *result),
	})
}

func (s *Server) handleExplain(c *gin.Context) {
	var req explainRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if !s.deps.Explain.Enabled() {
		s.respondError(c, external.ErrServiceDisabled)
		return
	}

	ctx := c.Request.Context()
	var assessment *domain.Assessment
	var err error
	switch {
	case req.AssessmentID != "":
		assessment, err = s.deps.Assessor.Get(ctx, req.AssessmentID)
	case len(req.Case) > 0:
		var in domain.CaseInput
		if in, err = domain.DecodeCaseInput(bytes.NewReader(req.Case)); err == nil {
			assessment, err = s.deps.Assessor.Assess(ctx, in.Patient, in.Tumor)
		}
	default:
		err = domain.NewValidationError("assessment_id", "assessment_id or case is required", nil)
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	var text string
	if len(req.History) > 0 {
		text, err = s.deps.Explain.Chat(ctx, req.History, assessment)
	} else {
		text, err = s.deps.Explain.Explain(ctx, assessment)
	}

	c.JSON(http.StatusOK, gin.H{
		"assessment_id": assessment.ID,
		"text":          text,
		"fallback":      err != nil,
	})
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, external.ErrServiceDisabled)
		return
	}

	var req feedbackRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.AssessmentID == "" {
		s.respondError(c, domain.NewValidationError("assessment_id", "assessment_id is required", nil))
		return
	}
	clinicianRisk, err := domain.ParseRiskGroup(req.ClinicianRisk)
	if err != nil {
		s.respondError(c, domain.NewFieldError("clinician_risk", err, req.ClinicianRisk))
		return
	}

	ctx := c.Request.Context()
	assessment, err := s.deps.Assessor.Get(ctx, req.AssessmentID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	fb := &feedback.Feedback{
		CaseFingerprint:  assessment.Fingerprint,
		AssessmentID:     assessment.ID,
		Stage:            assessment.Stage,
		MolecularSubtype: assessment.MolecularSubtype,
		SuggestedRisk:    assessment.RiskGroup,
		ClinicianRisk:    clinicianRisk,
		Reviewer:         req.Reviewer,
		Notes:            req.Notes,
	}
	if err := s.deps.Feedback.Save(ctx, fb); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"assessment_id":  fb.AssessmentID,
		"suggested_risk": fb.SuggestedRisk,
		"clinician_risk": fb.ClinicianRisk,
		"agreed":         fb.Agreed,
	}).Info("Clinician feedback recorded")

	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, external.ErrServiceDisabled)
		return
	}

	limit := queryInt(c, "limit", defaultFeedbackPage)
	if limit <= 0 || limit > maxFeedbackPage {
		limit = defaultFeedbackPage
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	entries, err := s.deps.Feedback.List(ctx, limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	total, err := s.deps.Feedback.Count(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleFeedbackSummary(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.respondError(c, external.ErrServiceDisabled)
		return
	}

	summary, err := feedback.Summarize(c.Request.Context(), s.deps.Feedback)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// bindCase decodes a case document, keeping intake defaults for omitted fields.
func (s *Server) bindCase(c *gin.Context) (domain.CaseInput, bool) {
	body, err := c.GetRawData()
	if err != nil {
		s.respondError(c, err)
		return domain.CaseInput{}, false
	}
	in, err := domain.DecodeCaseInput(bytes.NewReader(body))
	if err != nil {
		s.respondError(c, err)
		return domain.CaseInput{}, false
	}
	return in, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

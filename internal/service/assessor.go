package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// EngineVersion identifies the decision table revision. It is part of the
// cache fingerprint so a rule change never serves stale results.
const EngineVersion = "figo-2023.1"

const idKeyPrefix = "id:"

// Assessor runs the staging pipeline behind boundary validation, caching and
// persistence.
type Assessor struct {
	logger     *logrus.Logger
	memory     domain.AssessmentCache
	remote     domain.AssessmentCache
	repository domain.AssessmentRepository
	now        func() time.Time
}

// AssessorOption configures an Assessor.
type AssessorOption func(*Assessor)

// WithMemoryCache sets the in-process cache tier.
func WithMemoryCache(c domain.AssessmentCache) AssessorOption {
	return func(a *Assessor) { a.memory = c }
}

// WithRemoteCache sets the shared cache tier.
func WithRemoteCache(c domain.AssessmentCache) AssessorOption {
	return func(a *Assessor) { a.remote = c }
}

// WithRepository enables persistence of every new assessment.
func WithRepository(r domain.AssessmentRepository) AssessorOption {
	return func(a *Assessor) { a.repository = r }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) AssessorOption {
	return func(a *Assessor) { a.now = now }
}

// NewAssessor creates a new assessment service
func NewAssessor(logger *logrus.Logger, opts ...AssessorOption) *Assessor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &Assessor{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess validates both profiles and runs the full pipeline. Cache and
// persistence failures are logged and never change the result.
func (a *Assessor) Assess(ctx context.Context, patient domain.PatientProfile, tumor domain.TumorProfile) (*domain.Assessment, error) {
	if err := patient.Validate(); err != nil {
		return nil, err
	}
	if err := tumor.Validate(); err != nil {
		return nil, err
	}

	fingerprint, err := Fingerprint(patient, tumor)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint case: %w", err)
	}

	if cached, tier := a.lookup(ctx, fingerprint); cached != nil {
		a.logger.WithFields(logrus.Fields{
			"assessment_id": cached.ID,
			"fingerprint":   fingerprint[:12],
			"cache_tier":    tier,
		}).Debug("Assessment served from cache")
		return cached, nil
	}

	startTime := time.Now()
	mol := ClassifyMolecular(tumor)
	stage, rule := determineStageWithRule(tumor, mol)
	risk := AssessRisk(tumor, stage, mol)
	plan := PlanTreatment(patient, tumor, stage, risk, mol)

	assessment := &domain.Assessment{
		ID:               uuid.New().String(),
		Patient:          patient,
		Tumor:            tumor,
		MolecularSubtype: mol,
		Stage:            stage,
		RiskGroup:        risk,
		Plan:             plan,
		EngineVersion:    EngineVersion,
		Fingerprint:      fingerprint,
		CreatedAt:        a.now(),
	}

	a.logger.WithFields(logrus.Fields{
		"assessment_id":     assessment.ID,
		"molecular_subtype": mol,
		"stage":             stage,
		"stage_rule":        rule,
		"risk_group":        risk,
		"adjuvant_steps":    len(plan.Adjuvant),
		"processing_time":   time.Since(startTime),
	}).Info("Case assessment completed")

	a.store(ctx, fingerprint, assessment)

	if a.repository != nil {
		if err := a.repository.SaveAssessment(ctx, assessment); err != nil {
			a.logger.WithError(err).WithField("assessment_id", assessment.ID).Warn("Failed to persist assessment")
		}
	}

	return assessment, nil
}

// Get returns a previously produced assessment from the memory tier or the
// repository.
func (a *Assessor) Get(ctx context.Context, id string) (*domain.Assessment, error) {
	if a.memory != nil {
		if cached, ok := a.memory.Get(ctx, idKeyPrefix+id); ok {
			return cached, nil
		}
	}
	if a.repository == nil {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}

	assessment, err := a.repository.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	return assessment, nil
}

// Classify validates the tumor profile and returns its molecular subtype.
func (a *Assessor) Classify(tumor domain.TumorProfile) (domain.MolecularSubtype, error) {
	if err := tumor.Validate(); err != nil {
		return "", err
	}
	return ClassifyMolecular(tumor), nil
}

// Stage validates the tumor profile and returns the subtype and stage.
func (a *Assessor) Stage(tumor domain.TumorProfile) (domain.MolecularSubtype, domain.Stage, error) {
	mol, err := a.Classify(tumor)
	if err != nil {
		return "", "", err
	}
	return mol, DetermineStage(tumor, mol), nil
}

// Risk validates its inputs and returns the risk group.
func (a *Assessor) Risk(tumor domain.TumorProfile, stage domain.Stage, mol domain.MolecularSubtype) (domain.RiskGroup, error) {
	if err := tumor.Validate(); err != nil {
		return "", err
	}
	if err := validateDerived(stage, mol); err != nil {
		return "", err
	}
	return AssessRisk(tumor, stage, mol), nil
}

// Plan validates its inputs and returns the treatment plan.
func (a *Assessor) Plan(
	patient domain.PatientProfile,
	tumor domain.TumorProfile,
	stage domain.Stage,
	risk domain.RiskGroup,
	mol domain.MolecularSubtype,
) (domain.TreatmentPlan, error) {
	if err := patient.Validate(); err != nil {
		return domain.TreatmentPlan{}, err
	}
	if err := tumor.Validate(); err != nil {
		return domain.TreatmentPlan{}, err
	}
	if err := validateDerived(stage, mol); err != nil {
		return domain.TreatmentPlan{}, err
	}
	if !risk.IsValid() {
		return domain.TreatmentPlan{}, domain.NewFieldError("risk_group", domain.ErrInvalidRiskGroup, risk)
	}
	return PlanTreatment(patient, tumor, stage, risk, mol), nil
}

// Fingerprint is the hex SHA-256 of the canonical JSON encoding of the
// inputs and the engine version.
func Fingerprint(patient domain.PatientProfile, tumor domain.TumorProfile) (string, error) {
	payload, err := json.Marshal(struct {
		EngineVersion string                `json:"engine_version"`
		Patient       domain.PatientProfile `json:"patient"`
		Tumor         domain.TumorProfile   `json:"tumor"`
	}{EngineVersion, patient, tumor})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func validateDerived(stage domain.Stage, mol domain.MolecularSubtype) error {
	if !stage.IsValid() {
		return domain.NewFieldError("stage", domain.ErrInvalidStage, stage)
	}
	if !mol.IsValid() {
		return domain.NewFieldError("molecular_subtype", domain.ErrInvalidMolecularSubtype, mol)
	}
	return nil
}

func (a *Assessor) lookup(ctx context.Context, fingerprint string) (*domain.Assessment, string) {
	if a.memory != nil {
		if cached, ok := a.memory.Get(ctx, fingerprint); ok {
			return cached, "memory"
		}
	}
	if a.remote != nil {
		if cached, ok := a.remote.Get(ctx, fingerprint); ok {
			a.storeMemory(ctx, fingerprint, cached)
			return cached, "redis"
		}
	}
	return nil, ""
}

func (a *Assessor) store(ctx context.Context, fingerprint string, assessment *domain.Assessment) {
	a.storeMemory(ctx, fingerprint, assessment)
	if a.remote != nil {
		if err := a.remote.Set(ctx, fingerprint, assessment); err != nil {
			a.logger.WithError(err).Warn("Failed to write assessment to shared cache")
		}
	}
}

func (a *Assessor) storeMemory(ctx context.Context, fingerprint string, assessment *domain.Assessment) {
	if a.memory == nil {
		return
	}
	err := errors.Join(
		a.memory.Set(ctx, fingerprint, assessment),
		a.memory.Set(ctx, idKeyPrefix+assessment.ID, assessment),
	)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to write assessment to memory cache")
	}
}

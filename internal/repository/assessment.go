package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

const defaultListLimit = 50

// AssessmentRepository persists completed assessments as an audit trail
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// SaveAssessment inserts an assessment. Saving the same ID twice is a no-op.
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, a *domain.Assessment) error {
	patientJSON, tumorJSON, planJSON, err := marshalAssessment(a)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessments (
			id, fingerprint, engine_version, molecular_subtype, stage,
			risk_group, patient, tumor, plan, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(ctx, query,
		a.ID,
		a.Fingerprint,
		a.EngineVersion,
		string(a.MolecularSubtype),
		string(a.Stage),
		string(a.RiskGroup),
		patientJSON,
		tumorJSON,
		planJSON,
		a.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": a.ID,
			"stage":         a.Stage,
			"risk_group":    a.RiskGroup,
			"error":         err,
		}).Error("Failed to save assessment")
		return fmt.Errorf("saving assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": a.ID,
		"stage":         a.Stage,
		"risk_group":    a.RiskGroup,
	}).Debug("Assessment saved")

	return nil
}

// GetAssessment retrieves an assessment by its ID
func (r *AssessmentRepository) GetAssessment(ctx context.Context, id string) (*domain.Assessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE id::text = $1`

	a, err := scanAssessment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment")
		return nil, fmt.Errorf("getting assessment: %w", err)
	}
	return a, nil
}

// ListAssessments returns the most recent assessments, newest first
func (r *AssessmentRepository) ListAssessments(ctx context.Context, limit int) ([]*domain.Assessment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*domain.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment rows: %w", err)
	}

	return assessments, nil
}

// CountByRiskGroup returns how many stored assessments fall in each risk group
func (r *AssessmentRepository) CountByRiskGroup(ctx context.Context) (map[domain.RiskGroup]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT risk_group, COUNT(*) FROM assessments GROUP BY risk_group`)
	if err != nil {
		return nil, fmt.Errorf("counting assessments: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RiskGroup]int64)
	for rows.Next() {
		var group string
		var n int64
		if err := rows.Scan(&group, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[domain.RiskGroup(group)] = n
	}
	return counts, rows.Err()
}

const assessmentColumns = `id::text, fingerprint, engine_version, molecular_subtype, stage,
			   risk_group, patient, tumor, plan, created_at`

func scanAssessment(row pgx.Row) (*domain.Assessment, error) {
	var a domain.Assessment
	var mol, stage, risk string
	var patientJSON, tumorJSON, planJSON []byte

	err := row.Scan(
		&a.ID,
		&a.Fingerprint,
		&a.EngineVersion,
		&mol,
		&stage,
		&risk,
		&patientJSON,
		&tumorJSON,
		&planJSON,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.MolecularSubtype = domain.MolecularSubtype(mol)
	a.Stage = domain.Stage(stage)
	a.RiskGroup = domain.RiskGroup(risk)

	if err := json.Unmarshal(patientJSON, &a.Patient); err != nil {
		return nil, fmt.Errorf("unmarshaling patient: %w", err)
	}
	if err := json.Unmarshal(tumorJSON, &a.Tumor); err != nil {
		return nil, fmt.Errorf("unmarshaling tumor: %w", err)
	}
	if err := json.Unmarshal(planJSON, &a.Plan); err != nil {
		return nil, fmt.Errorf("unmarshaling plan: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()

	return &a, nil
}

func marshalAssessment(a *domain.Assessment) (patient, tumor, plan []byte, err error) {
	if patient, err = json.Marshal(a.Patient); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling patient: %w", err)
	}
	if tumor, err = json.Marshal(a.Tumor); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling tumor: %w", err)
	}
	if plan, err = json.Marshal(a.Plan); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling plan: %w", err)
	}
	return patient, tumor, plan, nil
}

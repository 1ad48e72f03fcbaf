package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/figo-endometrial-mcp-server/internal/database"
	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func sampleAssessment(risk domain.RiskGroup, createdAt time.Time) *domain.Assessment {
	tumor := domain.DefaultTumorProfile()
	tumor.PelvicNodesPositive = true
	return &domain.Assessment{
		ID:               uuid.New().String(),
		Patient:          domain.DefaultPatientProfile(),
		Tumor:            tumor,
		MolecularSubtype: domain.MolecularNSMP,
		Stage:            domain.StageIIIC1,
		RiskGroup:        risk,
		Plan: domain.TreatmentPlan{
			Surgery:      []string{"Total hysterectomy"},
			Adjuvant:     []string{"Chemotherapy"},
			Surveillance: []string{"Clinical exam every 3-6 months"},
		},
		EngineVersion: "figo-2023.1",
		Fingerprint:   hex.EncodeToString(make([]byte, 32)),
		CreatedAt:     createdAt,
	}
}

func TestMarshalAssessment(t *testing.T) {
	a := sampleAssessment(domain.RiskHigh, time.Now())

	patient, tumor, plan, err := marshalAssessment(a)
	require.NoError(t, err)

	var decoded domain.TumorProfile
	require.NoError(t, json.Unmarshal(tumor, &decoded))
	assert.Equal(t, a.Tumor, decoded)
	assert.Contains(t, string(patient), `"age"`)
	assert.Contains(t, string(plan), "Total hysterectomy")
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if os.Getenv("FIGO_INTEGRATION") != "1" {
		t.Skip("FIGO_INTEGRATION not set, skipping container tests")
	}
	ctx := context.Background()
	password := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := domain.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "testdb",
		Username: "testuser",
		Password: password,
		SSLMode:  "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	runner, err := database.NewMigrationRunner(database.URL(cfg), "../../migrations", logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up(ctx))
	require.NoError(t, runner.Close())

	db, err := database.NewConnection(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func TestAssessmentRepository_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAssessmentRepository(db.Pool, logger)

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	older := sampleAssessment(domain.RiskHigh, base)
	newer := sampleAssessment(domain.RiskLow, base.Add(time.Hour))

	require.NoError(t, repo.SaveAssessment(ctx, older))
	require.NoError(t, repo.SaveAssessment(ctx, newer))
	require.NoError(t, repo.SaveAssessment(ctx, older), "saving twice is a no-op")

	got, err := repo.GetAssessment(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)
	assert.Equal(t, older.Tumor, got.Tumor)
	assert.Equal(t, older.Plan, got.Plan)
	assert.Equal(t, domain.StageIIIC1, got.Stage)
	assert.True(t, older.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetAssessment(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := repo.ListAssessments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	counts, err := repo.CountByRiskGroup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.RiskHigh])
	assert.Equal(t, int64(1), counts[domain.RiskLow])
}

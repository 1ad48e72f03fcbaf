package feedback

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

const (
	fpHighRisk = "a3f1c9e2b7d45e60a3f1c9e2b7d45e60a3f1c9e2b7d45e60a3f1c9e2b7d45e60"
	fpLowRisk  = "0b9d2f7e11c84a3b0b9d2f7e11c84a3b0b9d2f7e11c84a3b0b9d2f7e11c84a3b"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "feedback.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	feedback := &Feedback{
		CaseFingerprint:  fpHighRisk,
		AssessmentID:     "5c0e6a0e-4b1f-4a57-9d1e-1b2f0c9a7e11",
		Stage:            domain.StageIIIC1,
		MolecularSubtype: domain.MolecularNSMP,
		SuggestedRisk:    domain.RiskHigh,
		ClinicianRisk:    domain.RiskHighIntermediate,
		Reviewer:         "tumor-board",
		Notes:            "Single micrometastasis on ultrastaging",
	}

	err := store.Save(ctx, feedback)

	require.NoError(t, err)
	assert.NotZero(t, feedback.ID, "ID should be assigned")
	assert.False(t, feedback.Agreed, "override should not count as agreement")
	assert.False(t, feedback.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, feedback.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestSQLiteStore_Save_Validation(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	tests := []struct {
		name     string
		feedback *Feedback
		field    string
	}{
		{"missing fingerprint", &Feedback{SuggestedRisk: domain.RiskLow, ClinicianRisk: domain.RiskLow}, "case_fingerprint"},
		{"unknown suggestion", &Feedback{CaseFingerprint: fpLowRisk, SuggestedRisk: "minimal", ClinicianRisk: domain.RiskLow}, "suggested_risk"},
		{"unknown decision", &Feedback{CaseFingerprint: fpLowRisk, SuggestedRisk: domain.RiskLow}, "clinician_risk"},
		{"unknown stage", &Feedback{CaseFingerprint: fpLowRisk, SuggestedRisk: domain.RiskLow, ClinicianRisk: domain.RiskLow, Stage: "V"}, "stage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Save(context.Background(), tt.feedback)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	feedback := &Feedback{
		CaseFingerprint: fpHighRisk,
		SuggestedRisk:   domain.RiskHigh,
		ClinicianRisk:   domain.RiskHigh,
		Reviewer:        "dr-lee",
	}
	require.NoError(t, store.Save(ctx, feedback))
	assert.True(t, feedback.Agreed)
	originalID := feedback.ID

	feedback.ClinicianRisk = domain.RiskHighIntermediate
	feedback.Notes = "Updated after pathology review"
	require.NoError(t, store.Save(ctx, feedback))

	assert.Equal(t, originalID, feedback.ID, "Should update existing record")

	retrieved, err := store.Get(ctx, fpHighRisk, "dr-lee")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, domain.RiskHighIntermediate, retrieved.ClinicianRisk)
	assert.False(t, retrieved.Agreed)
	assert.Equal(t, "Updated after pathology review", retrieved.Notes)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_Get_PerReviewer(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Feedback{
		CaseFingerprint: fpHighRisk,
		SuggestedRisk:   domain.RiskHigh,
		ClinicianRisk:   domain.RiskHigh,
		Reviewer:        "dr-lee",
	}))
	require.NoError(t, store.Save(ctx, &Feedback{
		CaseFingerprint: fpHighRisk,
		SuggestedRisk:   domain.RiskHigh,
		ClinicianRisk:   domain.RiskUncertain,
		Reviewer:        "dr-novak",
	}))

	lee, err := store.Get(ctx, fpHighRisk, "dr-lee")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, lee.ClinicianRisk)
	assert.True(t, lee.Agreed)

	novak, err := store.Get(ctx, fpHighRisk, "dr-novak")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskUncertain, novak.ClinicianRisk)
	assert.False(t, novak.Agreed)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	retrieved, err := store.Get(context.Background(), fpLowRisk, "")

	assert.NoError(t, err)
	assert.Nil(t, retrieved, "Should return nil for not found")
}

func TestSQLiteStore_List_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		feedback := &Feedback{
			CaseFingerprint: strings.Repeat(string(rune('a'+i)), 64),
			SuggestedRisk:   domain.RiskIntermediate,
			ClinicianRisk:   domain.RiskIntermediate,
		}
		require.NoError(t, store.Save(ctx, feedback))
	}

	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	page3, err := store.List(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	seen := map[int64]bool{}
	for _, fb := range append(append(page1, page2...), page3...) {
		assert.False(t, seen[fb.ID], "entry %d listed twice", fb.ID)
		seen[fb.ID] = true
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	feedback := &Feedback{
		CaseFingerprint: fpLowRisk,
		SuggestedRisk:   domain.RiskLow,
		ClinicianRisk:   domain.RiskLow,
	}
	require.NoError(t, store.Save(ctx, feedback))

	require.NoError(t, store.Delete(ctx, feedback.ID))

	retrieved, err := store.Get(ctx, fpLowRisk, "")
	assert.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSQLiteStore_ExportImportRoundTrip(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()

	ctx := context.Background()

	require.NoError(t, source.Save(ctx, &Feedback{
		CaseFingerprint:  fpHighRisk,
		Stage:            domain.StageIIIC1,
		MolecularSubtype: domain.MolecularP53Abnormal,
		SuggestedRisk:    domain.RiskHigh,
		ClinicianRisk:    domain.RiskHigh,
		Notes:            "Concordant",
	}))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), fpHighRisk)
	assert.Contains(t, buf.String(), `"version": "1.0"`)
	assert.Contains(t, buf.String(), `"count": 1`)

	target := createTestStore(t)
	defer target.Close()

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 0, skipped)

	got, err := target.Get(ctx, fpHighRisk, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StageIIIC1, got.Stage)
	assert.Equal(t, domain.MolecularP53Abnormal, got.MolecularSubtype)
	assert.Equal(t, "Concordant", got.Notes)
}

func TestSQLiteStore_ExportJSON_Empty(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), &buf))
	assert.Contains(t, buf.String(), `"feedback": []`)
}

func TestSQLiteStore_ImportJSON_SkipDuplicates(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	existing := &Feedback{
		CaseFingerprint: fpHighRisk,
		SuggestedRisk:   domain.RiskHigh,
		ClinicianRisk:   domain.RiskHigh,
		Reviewer:        "dr-lee",
	}
	require.NoError(t, store.Save(ctx, existing))

	jsonData := `{
		"version": "1.0",
		"count": 2,
		"feedback": [
			{
				"case_fingerprint": "` + fpHighRisk + `",
				"reviewer": "dr-lee",
				"suggested_risk": "high",
				"clinician_risk": "intermediate"
			},
			{
				"case_fingerprint": "` + fpLowRisk + `",
				"suggested_risk": "low",
				"clinician_risk": "low"
			}
		]
	}`

	imported, skipped, err := store.ImportJSON(ctx, strings.NewReader(jsonData))

	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	kept, err := store.Get(ctx, fpHighRisk, "dr-lee")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, kept.ClinicianRisk, "Existing should not be overwritten")

	low, err := store.Get(ctx, fpLowRisk, "")
	require.NoError(t, err)
	require.NotNil(t, low)
	assert.True(t, low.Agreed)
}

func TestSQLiteStore_ImportJSON_Malformed(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	entries := []*Feedback{
		{CaseFingerprint: fpHighRisk, SuggestedRisk: domain.RiskHigh, ClinicianRisk: domain.RiskHigh, Reviewer: "a"},
		{CaseFingerprint: fpHighRisk, SuggestedRisk: domain.RiskHigh, ClinicianRisk: domain.RiskHighIntermediate, Reviewer: "b"},
		{CaseFingerprint: fpLowRisk, SuggestedRisk: domain.RiskLow, ClinicianRisk: domain.RiskLow, Reviewer: "a"},
		{CaseFingerprint: fpLowRisk, SuggestedRisk: domain.RiskLow, ClinicianRisk: domain.RiskLow, Reviewer: "b"},
	}
	for _, fb := range entries {
		require.NoError(t, store.Save(ctx, fb))
	}

	summary, err := Summarize(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Total)
	assert.Equal(t, int64(3), summary.Agreed)
	assert.InDelta(t, 0.75, summary.AgreementRate, 1e-9)
	assert.Equal(t, int64(1), summary.Overrides[domain.RiskHigh][domain.RiskHighIntermediate])
}

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	return store
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/feedback"
	"github.com/figo-endometrial-mcp-server/internal/service"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCase(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "case.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestAssessCommand(t *testing.T) {
	path := writeCase(t, `{"tumor": {"pelvic_nodes_positive": true}}`)

	out, err := execute(t, "", "assess", "--case", path)
	require.NoError(t, err)

	var assessment domain.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &assessment))
	assert.Equal(t, domain.Stage("IIIC1"), assessment.Stage)
	assert.Equal(t, domain.RiskHigh, assessment.RiskGroup)
	assert.Equal(t, domain.MolecularNSMP, assessment.MolecularSubtype)
	assert.Equal(t, 60, assessment.Patient.Age, "omitted patient keeps intake defaults")
}

func TestAssessCommand_TextFromStdin(t *testing.T) {
	out, err := execute(t, `{"tumor": {"distant_metastasis": true}}`, "assess", "--format", "text")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Stage: FIGO IVC\n"))
	assert.Contains(t, out, "Risk Group: High Risk\n")
	assert.Contains(t, out, "\nSurveillance:\n")
}

func TestAssessCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		in   string
	}{
		{"unknown format", []string{"assess", "--format", "yaml"}, `{}`},
		{"malformed document", []string{"assess"}, `not json`},
		{"invalid age", []string{"assess"}, `{"patient": {"age": 0}}`},
		{"missing file", []string{"assess", "--case", filepath.Join(t.TempDir(), "absent.json")}, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.in, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestVocabularyCommand(t *testing.T) {
	out, err := execute(t, "", "vocabulary")
	require.NoError(t, err)

	var vocab service.Vocabulary
	require.NoError(t, json.Unmarshal([]byte(out), &vocab))
	assert.Equal(t, service.EngineVersion, vocab.EngineVersion)
	assert.Contains(t, vocab.Stages, "IIIC2")
	assert.NotEmpty(t, vocab.Histology)
}

func TestFeedbackCommands(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sourceDB := filepath.Join(dir, "source.db")
	targetDB := filepath.Join(dir, "target.db")
	exportPath := filepath.Join(dir, "export.json")

	source, err := feedback.NewSQLiteStore(sourceDB)
	require.NoError(t, err)
	require.NoError(t, source.Save(ctx, &feedback.Feedback{
		CaseFingerprint:  "fp-1",
		Stage:            domain.Stage("IB"),
		MolecularSubtype: domain.MolecularNSMP,
		SuggestedRisk:    domain.RiskIntermediate,
		ClinicianRisk:    domain.RiskHighIntermediate,
		Reviewer:         "dr-lee",
	}))
	require.NoError(t, source.Close())

	_, err = execute(t, "", "feedback", "export", "--db", sourceDB, "--out", exportPath)
	require.NoError(t, err)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fp-1")

	out, err := execute(t, "", "feedback", "import", exportPath, "--db", targetDB)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1, skipped 0\n", out)

	out, err = execute(t, "", "feedback", "import", exportPath, "--db", targetDB)
	require.NoError(t, err)
	assert.Equal(t, "Imported 0, skipped 1\n", out)

	out, err = execute(t, "", "feedback", "summary", "--db", targetDB)
	require.NoError(t, err)
	var summary feedback.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, int64(1), summary.Total)
	assert.Equal(t, int64(0), summary.Agreed)

	_, err = execute(t, "", "feedback", "import", "--db", targetDB)
	assert.Error(t, err, "import requires a file argument")
}

func TestDatabaseCommands_RequireConfiguration(t *testing.T) {
	t.Setenv("FIGO_DATABASE_HOST", "")

	for _, args := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"assessments", "list"},
		{"assessments", "stats"},
	} {
		_, err := execute(t, "", args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "database is not configured")
	}
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	printRiskCounts(&buf, map[domain.RiskGroup]int64{
		domain.RiskLow:  3,
		domain.RiskHigh: 1,
	})
	assert.Equal(t, fmt.Sprintf("%-24s 1\n%-24s 3\n", "High Risk", "Low Risk"), buf.String())

	buf.Reset()
	printAssessments(&buf, []*domain.Assessment{{
		ID:               "a1",
		Stage:            domain.Stage("IA2"),
		RiskGroup:        domain.RiskLow,
		MolecularSubtype: domain.MolecularNSMP,
	}})
	assert.Contains(t, buf.String(), "a1")
	assert.Contains(t, buf.String(), "Low Risk")
}

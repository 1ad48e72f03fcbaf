package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/figo-endometrial-mcp-server/internal/cache"
	"github.com/figo-endometrial-mcp-server/internal/config"
	"github.com/figo-endometrial-mcp-server/internal/database"
	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/feedback"
	"github.com/figo-endometrial-mcp-server/internal/repository"
	"github.com/figo-endometrial-mcp-server/internal/service"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "figoctl",
		Short:         "FIGO 2023 endometrial cancer staging tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "warn", "log level")

	root.AddCommand(assessCmd())
	root.AddCommand(vocabularyCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(feedbackCmd())
	root.AddCommand(assessmentsCmd())
	return root
}

func newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return config.NewLogger(domain.LoggingConfig{Level: level, Format: "text"})
}

func loadConfig(cmd *cobra.Command) (*domain.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	manager, err := config.NewManager(file)
	if err != nil {
		return nil, err
	}
	return manager.GetConfig(), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func assessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Stage one case and print the assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("case")
			format, _ := cmd.Flags().GetString("format")
			if format != "json" && format != "text" {
				return fmt.Errorf("unknown format %q", format)
			}

			var in io.Reader = cmd.InOrStdin()
			if path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening case file: %w", err)
				}
				defer f.Close()
				in = f
			}

			input, err := domain.DecodeCaseInput(in)
			if err != nil {
				return err
			}

			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			assessor := service.NewAssessor(logger, service.WithMemoryCache(cache.NewMemoryCache(1, 0)))
			assessment, err := assessor.Assess(cmd.Context(), input.Patient, input.Tumor)
			if err != nil {
				return err
			}

			if format == "text" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), assessment.Text())
				return err
			}
			return writeJSON(cmd.OutOrStdout(), assessment)
		},
	}
	cmd.Flags().String("case", "-", "case JSON file, - for stdin")
	cmd.Flags().String("format", "json", "output format: json or text")
	return cmd
}

func vocabularyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocabulary",
		Short: "Print every accepted tag and its display label",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), service.BuildVocabulary())
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	run := func(down bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !database.Enabled(cfg.Database) {
				return fmt.Errorf("database is not configured")
			}
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			runner, err := database.NewMigrationRunner(database.URL(cfg.Database), dir, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			if down {
				err = runner.Down(cmd.Context())
			} else {
				err = runner.Up(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		}
	}

	up := &cobra.Command{Use: "up", Short: "Apply pending migrations", RunE: run(false)}
	down := &cobra.Command{Use: "down", Short: "Roll back all migrations", RunE: run(true)}
	for _, c := range []*cobra.Command{up, down} {
		c.Flags().String("dir", database.DefaultMigrationsDir, "path to migrations directory")
		cmd.AddCommand(c)
	}
	return cmd
}

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Export or import clinician feedback",
	}
	cmd.PersistentFlags().String("db", "feedback.db", "path to the SQLite feedback database")

	openStore := func(cmd *cobra.Command) (*feedback.SQLiteStore, error) {
		path, _ := cmd.Flags().GetString("db")
		return feedback.NewSQLiteStore(path)
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write all feedback as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("out"); path != "" && path != "-" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return store.ExportJSON(cmd.Context(), out)
		},
	}
	export.Flags().String("out", "-", "output file, - for stdout")

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Load feedback from a JSON export, skipping existing entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer f.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, skipped %d\n", imported, skipped)
			return nil
		},
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print the agreement summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := feedback.Summarize(cmd.Context(), store)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}

	cmd.AddCommand(export, imp, summary)
	return cmd
}

func assessmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assessments",
		Short: "Inspect stored assessments",
	}

	withRepo := func(cmd *cobra.Command, fn func(*repository.AssessmentRepository) error) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !database.Enabled(cfg.Database) {
			return fmt.Errorf("database is not configured")
		}
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		db, err := database.NewConnection(cmd.Context(), cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(repository.NewAssessmentRepository(db.Pool, logger))
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent assessments",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withRepo(cmd, func(repo *repository.AssessmentRepository) error {
				assessments, err := repo.ListAssessments(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printAssessments(cmd.OutOrStdout(), assessments)
				return nil
			})
		},
	}
	list.Flags().Int("limit", 20, "maximum number of assessments")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count stored assessments per risk group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd, func(repo *repository.AssessmentRepository) error {
				counts, err := repo.CountByRiskGroup(cmd.Context())
				if err != nil {
					return err
				}
				printRiskCounts(cmd.OutOrStdout(), counts)
				return nil
			})
		},
	}

	cmd.AddCommand(list, stats)
	return cmd
}

func printAssessments(w io.Writer, assessments []*domain.Assessment) {
	for _, a := range assessments {
		fmt.Fprintf(w, "%s  %s  %-14s %-24s %s\n",
			a.ID, a.CreatedAt.Format("2006-01-02 15:04"), a.Stage, a.RiskGroup.Label(), a.MolecularSubtype.Label())
	}
}

func printRiskCounts(w io.Writer, counts map[domain.RiskGroup]int64) {
	groups := make([]domain.RiskGroup, 0, len(counts))
	for g := range counts {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	for _, g := range groups {
		fmt.Fprintf(w, "%-24s %d\n", g.Label(), counts[g])
	}
}

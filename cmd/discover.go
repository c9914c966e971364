// File: cmd/discover.go
package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/config"
	"domainlens/internal/effects"
	"domainlens/internal/enrichment"
	"domainlens/internal/observability"
	"domainlens/internal/orchestrator"
	"domainlens/internal/snapstore"
)

// newDiscoverCmd creates and configures the `discover` command.
func newDiscoverCmd() *cobra.Command {
	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Runs domain discovery over a detector report",
		Long: `Discover ingests a structural pattern report produced by the external
pattern detector, builds the dependency graph, extracts and clusters domain
candidates, and writes one schema proposal per discovered domain.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("analyzer.concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			if err := viper.BindPFlag("clustering.min_cluster_size", cmd.Flags().Lookup("min-cluster-size")); err != nil {
				return err
			}
			if err := viper.BindPFlag("enrichment.enabled", cmd.Flags().Lookup("enrich")); err != nil {
				return err
			}
			if err := viper.BindPFlag("output.dir", cmd.Flags().Lookup("out")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			reportPath, _ := cmd.Flags().GetString("report")
			sourceRoot, _ := cmd.Flags().GetString("source")
			sessionID, _ := cmd.Flags().GetString("session")
			interactive, _ := cmd.Flags().GetBool("interactive")
			resume, _ := cmd.Flags().GetBool("resume")
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			store, cleanup, err := buildSnapshotStore(ctx, cfg, sessionID, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			port, err := effects.NewFileSystemPort(sourceRoot, reportPath, cfg.Output.Dir, store, logger)
			if err != nil {
				return err
			}

			client, err := enrichment.NewClient(cfg.Enrichment, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize enrichment provider: %w", err)
			}
			if client != nil {
				defer func() { _ = client.Close() }()
			}
			enricher := enrichment.NewEnricher(client, cfg.Enrichment, logger)

			var responder schemas.HITLResponder
			if interactive {
				responder = newPromptResponder(cmd.InOrStdin(), cmd.OutOrStdout())
			}

			orch := orchestrator.New(sessionID, store, responder, cfg.Enrichment.Model, logger)
			if resume {
				if _, err := orch.Restore(ctx, orchestrator.StageAnalysis); err != nil {
					return fmt.Errorf("cannot resume session %s: %w", sessionID, err)
				}
				logger.Info("Session restored", zap.String("session_id", sessionID))
			}

			pipe := orchestrator.NewPipeline(orch, cfg, port, enricher, logger)
			outcome, err := pipe.Run(ctx)
			drainEvents(orch, logger)
			if err != nil {
				return err
			}

			printSummary(cmd, outcome)
			return nil
		},
	}

	discoverCmd.Flags().String("report", "patterns.json", "path to the detector report")
	discoverCmd.Flags().String("source", "", "source root to scan (defaults to the report's file list)")
	discoverCmd.Flags().String("out", "domainlens-out", "output directory for domain files")
	discoverCmd.Flags().String("session", "", "session identifier (random if omitted)")
	discoverCmd.Flags().Bool("resume", false, "resume from the latest analysis snapshot")
	discoverCmd.Flags().Bool("interactive", false, "answer ambiguity escalations on the terminal")
	discoverCmd.Flags().Bool("enrich", false, "enable LLM enrichment (requires DOMAINLENS_ENRICHMENT_API_KEY)")
	discoverCmd.Flags().Int("concurrency", 1, "analysis concurrency bound")
	discoverCmd.Flags().Int("min-cluster-size", 2, "minimum candidates per cluster")

	return discoverCmd
}

// buildSnapshotStore selects the configured backend. The returned cleanup is
// always safe to call.
func buildSnapshotStore(ctx context.Context, cfg *config.Config, sessionID string, logger *zap.Logger) (schemas.SnapshotStore, func(), error) {
	switch cfg.Snapshots.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Snapshots.PostgresURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store, err := snapstore.NewPostgresStore(ctx, pool, sessionID, logger)
		if err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		return store, pool.Close, nil
	default:
		return snapstore.NewMemoryStore(), func() {}, nil
	}
}

// drainEvents flushes the orchestrator's outbound queue into the log.
func drainEvents(orch *orchestrator.Orchestrator, logger *zap.Logger) {
	for _, ev := range orch.DrainEvents() {
		logger.Info("Pipeline event",
			zap.String("type", string(ev.Type)),
			zap.String("phase", string(ev.Phase)),
			zap.String("message", ev.Message),
		)
	}
}

func printSummary(cmd *cobra.Command, outcome *orchestrator.Outcome) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Analyzed %d file(s), discovered %d domain(s)\n", len(outcome.Report.Files), len(outcome.Domains))
	for i := range outcome.Domains {
		d := &outcome.Domains[i]
		marker := ""
		if d.NeedsReview {
			marker = " (needs review)"
		}
		fmt.Fprintf(out, "  - %s: %d file(s), confidence %.2f%s\n", d.Name, len(d.SourceFiles), d.Confidence, marker)
	}
	if len(outcome.Conflicts) > 0 {
		fmt.Fprintf(out, "%d conflict(s) require attention\n", len(outcome.Conflicts))
	}
	if len(outcome.Cycles) > 0 {
		fmt.Fprintf(out, "%d cyclic domain dependency chain(s) detected\n", len(outcome.Cycles))
	}
	fmt.Fprintf(out, "%d proposal(s) written\n", len(outcome.Proposals))
}

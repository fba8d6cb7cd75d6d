package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shareguard/shareguard/internal/config"
	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/controlplane"
	cpstore "github.com/shareguard/shareguard/pkg/controlplane/store"
	"github.com/shareguard/shareguard/pkg/group"
	"github.com/shareguard/shareguard/pkg/health"
	"github.com/shareguard/shareguard/pkg/principal"
	memstore "github.com/shareguard/shareguard/pkg/store"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health <path>...",
	Short: "Run the Health Analyzer over one or more paths and print the result",
	Long: `Health scans each given path, runs the six hygiene detectors against it,
dedupes findings into the control plane database's issue table, appends an
aggregate score history sample, and prints a summary.

Examples:
  shareguard health C:\Shares\Finance C:\Shares\HR`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	dbConfig := toStoreConfig(cfg.Database)
	cpStore, err := cpstore.New(&dbConfig)
	if err != nil {
		return fmt.Errorf("failed to open control plane store: %w", err)
	}
	defer func() { _ = cpStore.Close() }()

	resolver := principal.NewResolver(principal.NewWindowsLookup())
	tracer := group.NewTracer(group.NewWindowsGroups(resolver))
	scanner := acl.NewScanner(acl.NewWindowsDACLReader(), resolver, tracer)

	scanOpts := acl.Options{
		IncludeSubfolders: true,
		MaxDepth:          cfg.Scanner.MaxDepth,
		ExcludedPaths:     cfg.Scanner.ExcludedPaths,
	}
	snapshots := memstore.NewMemoryStore()
	snapProvider := controlplane.NewScanningSnapshotProvider(scanner, snapshots, scanOpts)

	analyzer := health.NewAnalyzer(snapProvider, cpStore.IssueTracker(), cpStore.ScoreRecorder(), cfg.Health.ToDetectorConfig())

	scanID := uuid.New().String()
	result, err := analyzer.Run(scanID, args)
	if err != nil {
		return fmt.Errorf("health run failed: %w", err)
	}

	logger.Info("health run complete", "scan_id", scanID, "paths", len(args), "issues", len(result.Issues))

	fmt.Printf("Scan ID:        %s\n", result.ScanID)
	fmt.Printf("Aggregate score: %.1f/100\n", result.Score)
	fmt.Printf("Issues found:    %d\n", len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Printf("  [%s] %-24s %s (risk %.1f)\n", issue.Severity, issue.IssueType, issue.Path, issue.RiskScore)
	}

	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/rakunlabs/transferctl/internal/config"
	"github.com/rakunlabs/transferctl/internal/logger"
	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/plugins/builtin"
	"github.com/rakunlabs/transferctl/internal/transfer"
	"github.com/rakunlabs/transferctl/internal/types"
)

var (
	name    = "transferctl"
	version = "v0.0.0"
)

func main() {
	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

func run(ctx context.Context) error {
	var (
		envFile         = flag.String("env", "transfer.env", "path to the SOURCE/TARGET env file")
		dryRun          = flag.Bool("dry-run", false, "simulate the transfer without writing to TARGET")
		validateOnly    = flag.Bool("validate-only", false, "run validators against SOURCE and exit without transferring")
		parallelism     = flag.Int("parallelism", 3, "number of workflows transferred concurrently (1-10)")
		skipCredentials = flag.Bool("skip-credentials", false, "skip workflows that carry node credentials instead of transferring them")
		tags            = flag.String("tags", "", "comma-separated tag names to include")
		excludeTags     = flag.String("exclude-tags", "", "comma-separated tag names to exclude")
		workflowNames   = flag.String("workflow-names", "", "comma-separated workflow names to include")
		pluginsDir      = flag.String("plugins-dir", "", "directory of third-party .so plugins to discover")
		reportDir       = flag.String("report-dir", "reports", "directory the built-in reporter writes to")
		logLevel        = flag.String("log-level", "info", "log level: debug, info, warn, error")
		logFile         = flag.String("log-file", "", "path to a log file (appended to, not rotated)")
	)
	flag.Parse()

	log, err := logger.New(logger.Config{
		Level:          logger.ParseLevel(*logLevel),
		ConsoleEnabled: true,
		FileEnabled:    *logFile != "",
		FilePath:       *logFile,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(*envFile)
	if err != nil {
		return exitErr(log, 2, fmt.Errorf("failed to load config: %w", err))
	}
	for _, w := range config.Warnings(cfg) {
		log.Logger.Warn("config: " + w)
	}

	for _, probe := range []struct {
		side types.Side
		srv  types.ServerConfig
	}{
		{types.SideSource, cfg.Source},
		{types.SideTarget, cfg.Target},
	} {
		res := loader.TestConnectivity(ctx, probe.side, probe.srv, 10*time.Second)
		if !res.Success {
			return exitErr(log, 2, fmt.Errorf("connectivity check for %s failed: %s", probe.side, res.Error))
		}
		log.Logger.Info(fmt.Sprintf("%s reachable", probe.side), "responseTimeMs", res.ResponseTimeMs)
	}

	registry := plugin.NewRegistry()
	if err := builtin.RegisterAll(registry, *reportDir); err != nil {
		return exitErr(log, 2, fmt.Errorf("failed to register built-in plugins: %w", err))
	}
	if *pluginsDir != "" {
		discovered, err := registry.Discover(*pluginsDir)
		if err != nil {
			return exitErr(log, 2, fmt.Errorf("failed to discover plugins: %w", err))
		}
		log.Logger.Info("discovered plugins", "loaded", discovered.Loaded, "failed", discovered.Failed)
	}

	mgr, err := transfer.New(*cfg, transfer.ManagerOptions{
		Logger:         log.Logger,
		PluginRegistry: registry,
		ReportDir:      *reportDir,
		HTTPTimeout:    30 * time.Second,
	})
	if err != nil {
		return exitErr(log, 2, fmt.Errorf("failed to construct transfer manager: %w", err))
	}

	opts := types.TransferOptions{
		DryRun:          *dryRun,
		Parallelism:     parallelism,
		SkipCredentials: *skipCredentials,
		Filters:         buildFilters(*tags, *excludeTags, *workflowNames),
	}

	if *validateOnly {
		result, err := mgr.Validate(ctx, opts)
		if err != nil {
			return exitErr(log, 2, err)
		}
		fmt.Printf("validated %d workflows: %d valid, %d invalid (%d errors, %d warnings)\n",
			result.Total, result.Valid, result.Invalid, result.Errors, result.Warnings)
		if result.Invalid > 0 {
			return exitErr(log, 1, fmt.Errorf("%d workflow(s) failed validation", result.Invalid))
		}
		log.Close()
		return nil
	}

	summary, err := mgr.Transfer(ctx, opts)
	if err != nil {
		return exitErr(log, 2, err)
	}

	fmt.Printf("transfer %s complete: %d/%d transferred, %d skipped, %d failed (cancelled=%v)\n",
		summary.RunID, summary.Transferred, summary.Total, summary.Skipped, summary.Failed, summary.Cancelled)
	for _, r := range summary.Reports {
		fmt.Printf("report written by %s: %s\n", r.Reporter, r.Path)
	}

	if summary.Cancelled || summary.Failed > 0 {
		return exitErr(log, 1, fmt.Errorf("transfer %s finished with failures", summary.RunID))
	}

	log.Close()
	return nil
}

func buildFilters(tags, excludeTags, names string) *types.Filters {
	f := &types.Filters{
		Tags:          splitCSV(tags),
		ExcludeTags:   splitCSV(excludeTags),
		WorkflowNames: splitCSV(names),
	}
	if len(f.Tags) == 0 && len(f.ExcludeTags) == 0 && len(f.WorkflowNames) == 0 {
		return nil
	}
	return f
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// exitErr closes log, prints err to stderr, and exits with the given
// code. into's run wrapper only ever exits 1 on a returned error, so
// the distinct exit codes (1 for partial failure/cancellation, 2 for
// an abort before processing began) are enforced here directly.
func exitErr(log *logger.Logger, code int, err error) error {
	fmt.Fprintln(os.Stderr, err.Error())
	log.Close()
	os.Exit(code)
	return err
}

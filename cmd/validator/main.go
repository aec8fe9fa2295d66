package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"config-conflict-detector/internal/config"
	"config-conflict-detector/internal/engine"
	"config-conflict-detector/internal/metrics"
	"config-conflict-detector/internal/model"
	"config-conflict-detector/internal/parser"
	"config-conflict-detector/internal/render"
	"config-conflict-detector/internal/report"
	"config-conflict-detector/internal/telemetry"
)

const (
	exitConflict = 1
	exitStartup  = 2
)

// errConflicts is returned from run when the report carries a conflict.
var errConflicts = errors.New("conflicts found")

var (
	hostVarsPath string
	intendedPath string
	accessToken  string
	ruleProvider string
	rulesDB      string
	fabName      string
	telemetryURL string
	telemetryDir string
	workers      int
	fetchRate    float64
	fetchTimeout time.Duration
	outFormat    string
	outFile      string
	noColor      bool
	metricsFile  string
	metadataPath string
	noPrompt     bool
	logLevel     string
	logFile      string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "config-validator [access_token] [host_vars_path] [intended_config_path]",
		Short: "Detects intended network configuration that would break live flows",
		Long: `config-validator compares live connection statistics from the telemetry
service against intended ACL, interface and VLAN configuration and reports
every flow the configuration would block or disrupt.

Values given as positional arguments replace the ones saved in the metadata
file. A token.txt file in the working directory supplies the access token
when none is saved.`,
		Args:          cobra.MaximumNArgs(3),
		RunE:          run,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.Flags().StringVar(&hostVarsPath, "host-vars", "", "host_vars directory holding ip_access_lists (this run only)")
	rootCmd.Flags().StringVar(&intendedPath, "intended-config", "", "Intended structured_config directory (this run only)")
	rootCmd.Flags().StringVar(&accessToken, "token", "", "Telemetry access token (this run only)")
	rootCmd.Flags().StringVar(&ruleProvider, "provider", "yaml", "Configuration provider type: 'yaml' or 'mariadb'")
	rootCmd.Flags().StringVar(&rulesDB, "db", "", "Database connection string (for 'mariadb' provider)")
	rootCmd.Flags().StringVar(&fabName, "fab", "", "Fabric name to filter DB queries")
	rootCmd.Flags().StringVar(&telemetryURL, "telemetry-url", "", "Telemetry service base URL (default "+telemetry.DefaultBaseURL+")")
	rootCmd.Flags().StringVar(&telemetryDir, "telemetry-dir", "", "Read <host>.json connection stats snapshots from this directory instead of the service")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of concurrent telemetry fetches")
	rootCmd.Flags().Float64Var(&fetchRate, "fetch-rate", 0, "Maximum telemetry requests per second (0 = unlimited)")
	rootCmd.Flags().DurationVar(&fetchTimeout, "timeout", 30*time.Second, "Per-host telemetry request timeout")
	rootCmd.Flags().StringVar(&outFormat, "format", render.FormatText, "Report format: 'text' or 'json'")
	rootCmd.Flags().StringVar(&outFile, "out", "", "Write the report to this file (default: stdout)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format to this path")
	rootCmd.Flags().StringVar(&metadataPath, "metadata", "", "Settings file (default ~/.config/config_validator/metadata.json)")
	rootCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Never prompt for missing settings")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errConflicts) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errConflicts):
		return exitConflict
	default:
		return exitStartup
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logLevel, logFile)
	slog.SetDefault(logger)

	slog.Info("Starting config validator", "provider", ruleProvider)
	startTime := time.Now()

	settings, err := resolveSettings(args, logger)
	if err != nil {
		slog.Error("Failed to resolve settings", "error", err)
		return err
	}

	sets, err := loadConfigSets(ruleProvider, settings, rulesDB, fabName, logger)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}
	slog.Info("Configuration loaded", "acl_hosts", len(sets.Acls), "interface_hosts", len(sets.Interfaces), "vlan_hosts", len(sets.Vlans))

	builder := report.NewBuilder(newFetcher(settings), logger)
	builder.Concurrency = workers

	if metricsFile != "" {
		collector, err := metrics.NewCollector(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		builder.Metrics = collector
	}

	result, err := builder.Build(cmd.Context(), engine.Evaluators(sets)...)
	if err != nil {
		slog.Error("Validation aborted, no verdict produced", "error", err)
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), result); err != nil {
		slog.Error("Failed to write report", "error", err)
		return err
	}
	if builder.Metrics != nil {
		if err := builder.Metrics.WriteTextfile(metricsFile); err != nil {
			slog.Error("Failed to write metrics file", "path", metricsFile, "error", err)
			return err
		}
	}

	slog.Info("Validation complete", "run_id", result.RunID, "verdict", result.Verdict, "degraded_hosts", len(result.DegradedHosts), "duration", time.Since(startTime))
	if result.Verdict == model.VerdictConflict {
		return errConflicts
	}
	return nil
}

func resolveSettings(args []string, logger *slog.Logger) (config.Settings, error) {
	path := metadataPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Settings{}, err
		}
		path = p
	}

	var prompter config.Prompter
	if !noPrompt && config.Interactive() {
		prompter = config.HuhPrompter{}
	}

	resolver := config.NewResolver(config.NewFileStore(path), prompter, logger)
	return resolver.Resolve(config.Overrides{
		Positional:         args,
		AccessToken:        accessToken,
		HostVarsPath:       hostVarsPath,
		IntendedConfigPath: intendedPath,
		TelemetryURL:       telemetryURL,
	}, ruleProvider == "yaml")
}

func loadConfigSets(provider string, settings config.Settings, dbConnStr, fabName string, logger *slog.Logger) (model.ConfigSets, error) {
	switch provider {
	case "yaml":
		src := parser.NewDirectorySource(settings.HostVarsPath, settings.IntendedConfigPath)
		return parser.LoadConfigSets(src, logger)
	case "mariadb":
		if dbConnStr == "" {
			return model.ConfigSets{}, fmt.Errorf("database connection string must be provided for mariadb provider")
		}
		src, err := parser.NewMariaDBSource(dbConnStr, fabName)
		if err != nil {
			return model.ConfigSets{}, err
		}
		defer src.Close()
		return parser.LoadConfigSets(src, logger)
	default:
		return model.ConfigSets{}, fmt.Errorf("unknown config provider: %s", provider)
	}
}

func newFetcher(settings config.Settings) telemetry.Fetcher {
	if telemetryDir != "" {
		return telemetry.FileSource{Dir: telemetryDir}
	}
	base := settings.TelemetryURL
	if base == "" {
		base = telemetry.DefaultBaseURL
	}
	return telemetry.NewHTTPClient(base, settings.AccessToken,
		telemetry.WithTimeout(fetchTimeout),
		telemetry.WithRateLimit(fetchRate),
	)
}

func writeReport(stdout io.Writer, result *model.ConflictReport) error {
	w := stdout
	color := !noColor && isTerminal(stdout)
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
		color = false
	}

	r, err := render.New(outFormat, w, color)
	if err != nil {
		return err
	}
	return r.Render(result)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// The logger is not set up yet; fall back to stderr silently.
	}

	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}

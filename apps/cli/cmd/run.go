package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/fixrun/fixrun/packages/cache"
	"github.com/fixrun/fixrun/packages/core/config"
	"github.com/fixrun/fixrun/packages/core/env"
	"github.com/fixrun/fixrun/packages/core/model"
	"github.com/fixrun/fixrun/packages/core/registry"
	"github.com/fixrun/fixrun/packages/core/resolver"
	"github.com/fixrun/fixrun/packages/core/runner"
	"github.com/fixrun/fixrun/packages/ctxlog"
	"github.com/fixrun/fixrun/packages/discovery"
	"github.com/fixrun/fixrun/packages/filter"
	"github.com/fixrun/fixrun/packages/output"
	"github.com/fixrun/fixrun/packages/planner"
	"github.com/fixrun/fixrun/packages/shellexec"
)

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Run the tests in a suite manifest",
	Long: `Run the tests described by a suite manifest file.

Examples:
  fixrun run suite.json
  fixrun run suite.json -n 8 --fail-fast
  fixrun run suite.json -t "db and not slow"
  fixrun run suite.json -m "users::test_create"
  fixrun run suite.json --retry 2 --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

// WatchDebounceDelay is the debounce delay for file watch events.
const WatchDebounceDelay = 300 * time.Millisecond

var (
	workersFlag    int
	noParallelFlag bool
	noCacheFlag    bool
	failFastFlag   bool
	retryFlag      int
	matchFlag      []string
	tagFlag        []string
	dryRunFlag     bool
	watchFlag      bool
	seedFlag       int64
	outputFlag     string
	outputFileFlag string
	noColorFlag    bool
	verboseFlag    bool
	quietFlag      bool
	configFlag     string
	cacheDirFlag   string
	shellFlag      string
	envFileFlag    string
)

func init() {
	// Scheduling flags
	runCmd.Flags().IntVarP(&workersFlag, "workers", "n", getEnvInt("FIXRUN_WORKERS", 0), "Number of workers (0 = auto-detect) (env: FIXRUN_WORKERS)")
	runCmd.Flags().BoolVar(&noParallelFlag, "no-parallel", getEnvBool("FIXRUN_NO_PARALLEL", false), "Run everything on a single worker (env: FIXRUN_NO_PARALLEL)")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "Seed for shuffling tests with no cached duration (0 = derive from time)")

	// Selection flags
	runCmd.Flags().StringSliceVarP(&matchFlag, "match", "m", nil, "Run only tests whose id matches the regular expression (repeatable)")
	runCmd.Flags().StringSliceVarP(&tagFlag, "tag", "t", nil, "Run only tests satisfying the tag expression, e.g. \"db and not slow\" (repeatable)")

	// Execution flags
	runCmd.Flags().BoolVar(&failFastFlag, "fail-fast", getEnvBool("FIXRUN_FAIL_FAST", false), "Stop dispatching new tests after the first failure (env: FIXRUN_FAIL_FAST)")
	runCmd.Flags().IntVar(&retryFlag, "retry", getEnvInt("FIXRUN_RETRY", 0), "Re-run a failing test body up to this many times (env: FIXRUN_RETRY)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Resolve and plan without executing anything")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the manifest for changes and re-run")
	runCmd.Flags().StringVar(&shellFlag, "shell", getEnvString("FIXRUN_SHELL", ""), "Shell used to run test and fixture commands (env: FIXRUN_SHELL)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("FIXRUN_ENV_FILE", ""), "Path to .env file loaded into every command's environment (env: FIXRUN_ENV_FILE)")

	// Cache flags
	runCmd.Flags().BoolVar(&noCacheFlag, "no-cache", getEnvBool("FIXRUN_NO_CACHE", false), "Do not read or write the duration cache (env: FIXRUN_NO_CACHE)")
	runCmd.Flags().StringVar(&cacheDirFlag, "cache-dir", getEnvString("FIXRUN_CACHE_DIR", ""), "Duration cache directory (env: FIXRUN_CACHE_DIR)")

	// Output flags
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("FIXRUN_OUTPUT", "console"), "Output format: console, json (env: FIXRUN_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("FIXRUN_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: FIXRUN_OUTPUT_FILE)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("FIXRUN_NO_COLOR", false), "Disable colored output (env: FIXRUN_NO_COLOR)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output with per-result detail and duration stats")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("FIXRUN_QUIET", false), "Suppress everything except failures and the summary (env: FIXRUN_QUIET)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("FIXRUN_CONFIG", ""), "Path to config file (env: FIXRUN_CONFIG)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// Formatter is the interface all output formatters implement.
type Formatter interface {
	FormatHeader(version string)
	FormatResult(result *model.RunResult)
	FormatError(err error)
	FormatSummary(report *runner.Report)
}

// flagConfig builds a config overlay from the CLI flags that were
// explicitly set, so file values survive unless overridden.
func flagConfig(cmd *cobra.Command) *config.Config {
	cfg := &config.Config{
		Workers:        workersFlag,
		Retry:          retryFlag,
		NamePatterns:   matchFlag,
		TagExpressions: tagFlag,
		CacheDir:       cacheDirFlag,
		Shell:          shellFlag,
		EnvFile:        envFileFlag,
	}
	if cmd.Flags().Changed("fail-fast") || failFastFlag {
		cfg.FailFast = config.BoolPtr(failFastFlag)
	}
	if cmd.Flags().Changed("no-cache") || noCacheFlag {
		cfg.NoCache = config.BoolPtr(noCacheFlag)
	}
	if cmd.Flags().Changed("no-parallel") || noParallelFlag {
		cfg.NoParallel = config.BoolPtr(noParallelFlag)
	}
	if cmd.Flags().Changed("no-color") || noColorFlag {
		cfg.NoColor = config.BoolPtr(noColorFlag)
	}
	if cmd.Flags().Changed("verbose") || verboseFlag {
		cfg.Verbose = config.BoolPtr(verboseFlag)
	}
	return cfg
}

func newFormatter(cfg *config.Config, outWriter *os.File) Formatter {
	switch strings.ToLower(outputFlag) {
	case "json":
		opts := []output.JSONOption{}
		if outWriter != nil {
			opts = append(opts, output.JSONWithWriter(outWriter))
		}
		return output.NewJSONFormatter(opts...)
	default: // "console"
		consoleOpts := []output.ConsoleOption{
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor() || quietFlag),
			output.WithQuiet(quietFlag),
		}
		if outWriter != nil {
			consoleOpts = append(consoleOpts, output.WithWriter(outWriter))
		}
		return output.NewConsoleFormatter(consoleOpts...)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.GetVerbose() {
		level = slog.LevelDebug
	}
	if quietFlag {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runCommand(cmd *cobra.Command, args []string) error {
	manifest := args[0]

	if watchFlag && dryRunFlag {
		return fmt.Errorf("--watch and --dry-run cannot be combined")
	}

	fileCfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	cfg := fileCfg.Merge(flagConfig(cmd))
	if cfg.CacheDir == "" {
		cfg.CacheDir = config.DefaultCacheDir
	}

	var outWriter *os.File
	if outputFileFlag != "" {
		outWriter, err = os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer outWriter.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = ctxlog.WithLogger(ctx, newLogger(cfg))

	formatter := newFormatter(cfg, outWriter)
	formatter.FormatHeader(version)

	report, err := executeOnce(ctx, manifest, cfg, formatter)
	if err != nil {
		formatter.FormatError(err)
		if !watchFlag {
			return err
		}
	}

	if !watchFlag {
		switch {
		case report == nil:
			return nil // dry run
		case report.Aborted:
			os.Exit(ExitAborted)
		case !report.Success():
			os.Exit(ExitTestFailure)
		}
		return nil
	}

	return watchLoop(ctx, cmd, manifest, cfg, outWriter)
}

// executeOnce runs the full pipeline for one pass over the manifest:
// discover, register, resolve, filter, plan, execute, report. A nil
// report with a nil error means a dry run that printed its plan.
func executeOnce(ctx context.Context, manifest string, cfg *config.Config, formatter Formatter) (*runner.Report, error) {
	logger := ctxlog.FromContext(ctx)

	suite, err := discovery.Load(manifest)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	for _, def := range suite.Fixtures {
		reg.Register(ctx, def)
	}

	units, failures := resolver.New(reg).Units(suite.Items)

	f, err := filter.New(cfg.NamePatterns, cfg.TagExpressions)
	if err != nil {
		return nil, err
	}
	units = f.Apply(units)

	var resolutionResults []*model.RunResult
	for _, failure := range failures {
		if !f.Matches(failure.Item) {
			continue
		}
		resolutionResults = append(resolutionResults, &model.RunResult{
			UnitID:  failure.Item.ID(),
			Index:   failure.Index,
			Outcome: model.OutcomeError,
			Detail: &model.FailureDetail{
				Message: failure.Err.Error(),
				Infra:   true,
			},
		})
	}

	// Duration history feeds the planner; the cache stays open so the
	// observed durations of this run can be written back.
	var durationCache *cache.Cache
	history := map[string]time.Duration{}
	if !cfg.GetNoCache() {
		durationCache, err = cache.Open(cfg.CacheDir)
		if err != nil {
			logger.Warn("duration cache unavailable", "error", err)
		} else {
			defer durationCache.Close()
			if history, err = durationCache.Load(ctx); err != nil {
				logger.Warn("failed to load duration history", "error", err)
				history = map[string]time.Duration{}
			}
		}
	}

	seed := seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Debug("planning run", "units", len(units), "workers", cfg.EffectiveWorkers(), "seed", seed)

	queues := planner.PlanRun(units, cfg.EffectiveWorkers(), history, seed)

	if dryRunFlag {
		printPlan(os.Stdout, queues, resolutionResults)
		return nil, nil
	}

	execOpts := []shellexec.Option{}
	if shell := firstNonEmpty(cfg.Shell, suite.Shell); shell != "" {
		execOpts = append(execOpts, shellexec.WithShell(shell))
	}
	if cfg.EnvFile != "" {
		pairs, err := env.Pairs(cfg.EnvFile)
		if err != nil {
			return nil, err
		}
		execOpts = append(execOpts, shellexec.WithEnv(pairs))
	}
	invoker := shellexec.New(execOpts...)

	coordinator := runner.NewCoordinator(invoker, runner.Config{
		FailFast: cfg.GetFailFast(),
		Retry:    cfg.Retry,
	})
	report := coordinator.Run(ctx, queues)
	report.Merge(resolutionResults...)

	for _, res := range report.Results {
		formatter.FormatResult(res)
	}
	formatter.FormatSummary(report)

	if durationCache != nil && len(report.Durations) > 0 {
		if err := durationCache.Save(context.WithoutCancel(ctx), report.Durations); err != nil {
			logger.Warn("failed to save duration history", "error", err)
		}
	}

	return report, nil
}

// printPlan shows what a run would do: the per-worker assignment plus
// any tests that already failed resolution.
func printPlan(w *os.File, queues []planner.WorkerQueue, resolutionResults []*model.RunResult) {
	for _, q := range queues {
		if len(q.Units) == 0 {
			continue
		}
		fmt.Fprintf(w, "worker %d (estimated %s):\n", q.Worker, q.Estimated.Round(time.Millisecond))
		for _, unit := range q.Units {
			fmt.Fprintf(w, "  %s\n", unit.ID())
		}
	}
	for _, res := range resolutionResults {
		fmt.Fprintf(w, "unresolvable: %s: %s\n", res.UnitID, res.Detail.Message)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// watchLoop re-runs the suite whenever the manifest changes. Failures
// do not exit; the loop keeps watching until interrupted.
func watchLoop(ctx context.Context, cmd *cobra.Command, manifest string, cfg *config.Config, outWriter *os.File) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(manifest)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(manifest), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) || filepath.Clean(event.Name) != filepath.Clean(manifest) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "\nManifest changed, re-running...\n\n")

				// Accumulating formatters need fresh state per pass.
				formatter := newFormatter(cfg, outWriter)
				if _, err := executeOnce(ctx, manifest, cfg, formatter); err != nil {
					formatter.FormatError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ctxlog.FromContext(ctx).Error("watcher error", "error", err)
		}
	}
}

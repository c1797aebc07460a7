package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/restflow/restflow/packages/engine"
	"github.com/restflow/restflow/packages/history"
	"github.com/restflow/restflow/packages/httpx"
	"github.com/restflow/restflow/packages/notify"
	"github.com/restflow/restflow/packages/report"
	"github.com/restflow/restflow/packages/spec"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>",
	Short: "Run test suites from YAML files",
	Long: `Run declarative test suites from .yaml/.yml files.

Examples:
  restflow run api.yaml
  restflow run ./suites/ --parallel --workers 10
  restflow run api.yaml --var base=https://staging.example.com
  restflow run api.yaml --report junit --output-file report.xml
  restflow run ./suites/ --watch
  restflow run api.yaml --rate 50 --history
  restflow run ./suites/ --notify slack --slack-webhook $SLACK_WEBHOOK`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	varFlags       []string
	verboseFlag    int
	quietFlag      bool
	bailFlag       bool
	timeoutFlag    string
	noColorFlag    bool
	reportFlag     string
	outputFileFlag string
	parallelFlag   bool
	workersFlag    int
	rateFlag       float64
	watchFlag      bool
	proxyFlag      string
	insecureFlag   bool

	historyFlag   bool
	historyDBFlag string

	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	webhookURLFlag   string
)

func init() {
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Set a global variable (key=value, repeatable)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("RESTFLOW_QUIET", false), "Suppress all output except errors (env: RESTFLOW_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("RESTFLOW_NO_COLOR", false), "Disable colored output (env: RESTFLOW_NO_COLOR)")
	runCmd.Flags().StringVarP(&reportFlag, "report", "o", getEnvString("RESTFLOW_REPORT", "console"), "Report format: console, json, junit (env: RESTFLOW_REPORT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("RESTFLOW_OUTPUT_FILE", ""), "Write report to file (default: stdout) (env: RESTFLOW_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("RESTFLOW_BAIL", false), "Abort a suite on the first failing case (env: RESTFLOW_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("RESTFLOW_TIMEOUT", "30s"), "Default request timeout (env: RESTFLOW_TIMEOUT)")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", getEnvBool("RESTFLOW_PARALLEL", false), "Run cases across a worker pool (env: RESTFLOW_PARALLEL)")
	runCmd.Flags().IntVar(&workersFlag, "workers", getEnvInt("RESTFLOW_WORKERS", engine.DefaultWorkers), "Worker pool size in parallel mode (env: RESTFLOW_WORKERS)")
	runCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 0, "Cap requests per second across workers (0 = unlimited)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("RESTFLOW_PROXY", ""), "Proxy URL for HTTP requests (env: RESTFLOW_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("RESTFLOW_INSECURE", false), "Disable TLS certificate validation (env: RESTFLOW_INSECURE)")

	// History flags
	runCmd.Flags().BoolVar(&historyFlag, "history", getEnvBool("RESTFLOW_HISTORY", false), "Record the run in the local history database (env: RESTFLOW_HISTORY)")
	runCmd.Flags().StringVar(&historyDBFlag, "history-db", getEnvString("RESTFLOW_HISTORY_DB", defaultHistoryPath()), "History database path (env: RESTFLOW_HISTORY_DB)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("RESTFLOW_NOTIFY", ""), "Notification channels: slack, webhook (comma-separated) (env: RESTFLOW_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("RESTFLOW_NOTIFY_ON", "failure"), "When to notify: always, failure, success, recovery (env: RESTFLOW_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&webhookURLFlag, "webhook-url", getEnvString("RESTFLOW_WEBHOOK", ""), "Generic webhook URL (env: RESTFLOW_WEBHOOK)")
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

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".restflow-history.db"
	}
	return filepath.Join(home, ".restflow", "history.db")
}

func parseVarFlags(flags []string) (map[string]any, error) {
	vars := make(map[string]any, len(flags))
	for _, kv := range flags {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", kv)
		}
		vars[key] = value
	}
	return vars, nil
}

func newLogger() *zap.Logger {
	if verboseFlag >= 2 {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}

func buildNotifyManager() (*notify.Manager, error) {
	if notifyFlag == "" {
		return nil, nil
	}
	policy, err := notify.ParsePolicy(notifyOnFlag)
	if err != nil {
		return nil, err
	}

	var notifiers []notify.Notifier
	for _, channel := range strings.Split(notifyFlag, ",") {
		switch strings.ToLower(strings.TrimSpace(channel)) {
		case "slack":
			if slackWebhookFlag == "" {
				return nil, fmt.Errorf("--slack-webhook is required when using --notify slack")
			}
			var opts []notify.SlackOption
			if slackChannelFlag != "" {
				opts = append(opts, notify.WithSlackChannel(slackChannelFlag))
			}
			notifiers = append(notifiers, notify.NewSlack(slackWebhookFlag, opts...))
		case "webhook":
			if webhookURLFlag == "" {
				return nil, fmt.Errorf("--webhook-url is required when using --notify webhook")
			}
			notifiers = append(notifiers, notify.NewWebhook(webhookURLFlag))
		default:
			return nil, fmt.Errorf("unknown notification channel: %q", channel)
		}
	}
	return notify.NewManager(policy, notifiers...), nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	outWriter := cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		outWriter = f
	}

	var formatter report.Formatter
	var err error
	if strings.ToLower(reportFlag) == "console" || reportFlag == "" {
		formatter = report.NewConsole(
			report.WithWriter(outWriter),
			report.WithVerbose(verboseFlag > 0),
			report.WithNoColor(noColorFlag || quietFlag),
		)
	} else {
		formatter, err = report.New(strings.ToLower(reportFlag), outWriter)
		if err != nil {
			return err
		}
	}

	globals, err := parseVarFlags(varFlags)
	if err != nil {
		return err
	}

	timeout, err := time.ParseDuration(timeoutFlag)
	if err != nil {
		return fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
	}

	notifyManager, err := buildNotifyManager()
	if err != nil {
		return err
	}

	var store *history.Store
	if historyFlag {
		if err := os.MkdirAll(filepath.Dir(historyDBFlag), 0o755); err != nil {
			return fmt.Errorf("creating history directory: %w", err)
		}
		store, err = history.Open(historyDBFlag)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	clientOpts := []httpx.ClientOption{
		httpx.WithTimeout(timeout),
		httpx.WithValidateSSL(!insecureFlag),
	}
	if proxyFlag != "" {
		clientOpts = append(clientOpts, httpx.WithProxy(proxyFlag))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopping...")
		cancel()
	}()

	execute := func() (*engine.RunResult, error) {
		suites, err := loadSuites(args)
		if err != nil {
			return nil, err
		}

		e := engine.New(&engine.Config{
			Parallel:       parallelFlag,
			Workers:        workersFlag,
			RateLimit:      rateFlag,
			DefaultTimeout: timeout,
			Bail:           bailFlag,
		},
			engine.WithTransport(httpx.NewClient(clientOpts...)),
			engine.WithGlobals(globals),
			engine.WithLogger(newLogger()),
		)

		run := e.Run(ctx, suites)

		if err := formatter.Format(run); err != nil {
			return run, fmt.Errorf("writing report: %w", err)
		}
		if store != nil {
			if _, err := store.Record(ctx, run); err != nil {
				fmt.Fprintf(os.Stderr, "warning: recording run history: %v\n", err)
			}
		}
		if notifyManager != nil {
			if err := notifyManager.Notify(notify.Summarize(run)); err != nil {
				fmt.Fprintf(os.Stderr, "warning: sending notification: %v\n", err)
			}
		}
		return run, nil
	}

	run, err := execute()
	if err != nil {
		return err
	}

	if !watchFlag {
		if !run.Ok() {
			os.Exit(ExitCaseFailure)
		}
		return nil
	}
	return watchAndRerun(cmd, ctx, args, execute)
}

// loadSuites loads every suite reachable from the arguments, after
// checking their definitions.
func loadSuites(args []string) ([]*spec.Suite, error) {
	var suites []*spec.Suite
	for _, arg := range args {
		loaded, err := spec.LoadAll(arg)
		if err != nil {
			return nil, err
		}
		suites = append(suites, loaded...)
	}

	for _, suite := range suites {
		if errs := suite.Check(); len(errs) > 0 {
			return nil, errs[0]
		}
	}
	return suites, nil
}

// watchAndRerun blocks on filesystem events, re-running the suites when
// a YAML file changes. Events are debounced since editors fire several
// writes per save.
func watchAndRerun(cmd *cobra.Command, ctx context.Context, args []string, execute func() (*engine.RunResult, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		dir := arg
		if !info.IsDir() {
			dir = filepath.Dir(arg)
		}
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			watched[dir] = true
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) || !isSuiteFile(event.Name) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\nRe-running...\n", event.Name)
				if _, err := execute(); err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}

func isSuiteFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/config"
	"github.com/rohmanhakim/listing-enricher/internal/gateway"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	gateways    []string
	timeout     time.Duration
	concurrency int
	userAgent   string
	maxBody     int64
	cacheTTL    time.Duration
	eventsFile  string
	databaseURL string
	outputDir   string
	dryRun      bool
	listenAddr  string
	logFile     string
	logLevel    string
	logFormat   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "listing-enricher",
	Short: "Resolve listing metadata from content-addressed storage.",
	Long: `listing-enricher joins the on-chain listing event log with metadata
documents fetched through an ordered chain of IPFS gateways.

Every identifier resolves to exactly one record: the first gateway that
serves a JSON object wins, and a deterministic placeholder is produced
when none does. Listings are merged latest-wins by block number.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}

// Run executes the command line args against rootCmd with the given
// output streams.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "config file path, JSON or YAML (e.g., /etc/listing-enricher/config.yaml)")
	flags.StringArrayVar(&gateways, "gateway", []string{}, "gateway base URL, primary first (can be repeated; replaces configured gateways)")
	flags.DurationVar(&timeout, "timeout", 0, "deadline of a single gateway fetch (default 10s)")
	flags.IntVar(&concurrency, "concurrency", -1, "identifiers resolved at once, 0 for unbounded (default 16)")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for gateway requests")
	flags.Int64Var(&maxBody, "max-body-bytes", 0, "largest accepted gateway response body (default 4MiB)")
	flags.DurationVar(&cacheTTL, "cache-ttl", 0, "how long network results stay cached (default 10m)")
	flags.StringVar(&eventsFile, "events-file", "", "JSON document holding the listing event collections")
	flags.StringVar(&databaseURL, "database-url", "", "Postgres connection string of the event store")
	flags.StringVar(&outputDir, "output-dir", "", "directory for snapshots (default output)")
	flags.BoolVar(&dryRun, "dry-run", false, "print results instead of writing snapshots")
	flags.StringVar(&listenAddr, "listen-addr", "", "HTTP listen address for serve (default :8080)")
	flags.StringVar(&logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default info)")
	flags.StringVar(&logFormat, "log-format", "", "auto, json or text (default auto)")

	rootCmd.AddCommand(
		newResolveCmd(),
		newMergeCmd(),
		newServeCmd(),
		newValidateCmd(),
		newImportEventsCmd(),
		newVersionCmd(),
	)
}

// InitConfigWithError reads the config file if set, then applies the
// environment and CLI flag overrides.
func InitConfigWithError() (config.Config, error) {
	configBuilder := config.WithDefault()
	if cfgFile != "" {
		fromFile, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = &fromFile
	}

	if len(gateways) > 0 {
		endpoints := make([]gateway.Endpoint, 0, len(gateways))
		for _, g := range gateways {
			endpoints = append(endpoints, gateway.Endpoint{BaseURL: g})
		}
		configBuilder = configBuilder.WithGateways(endpoints)
	}

	configBuilder = configBuilder.WithEnvironment(os.Getenv)

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if concurrency >= 0 {
		configBuilder = configBuilder.WithConcurrency(concurrency)
	}
	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if maxBody > 0 {
		configBuilder = configBuilder.WithMaxBodyBytes(maxBody)
	}
	if cacheTTL > 0 {
		configBuilder = configBuilder.WithCacheTTL(cacheTTL)
	}
	if eventsFile != "" {
		configBuilder = configBuilder.WithEventsFile(eventsFile)
	}
	if databaseURL != "" {
		configBuilder = configBuilder.WithDatabaseURL(databaseURL)
	}
	if outputDir != "" {
		configBuilder = configBuilder.WithOutputDir(outputDir)
	}
	if dryRun {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}
	if listenAddr != "" {
		configBuilder = configBuilder.WithListenAddr(listenAddr)
	}
	if logFile != "" {
		configBuilder = configBuilder.WithLogFile(logFile)
	}
	if logLevel != "" {
		if err := configBuilder.WithLogLevel(logLevel); err != nil {
			return config.Config{}, err
		}
	}
	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(metadata.LogFormat(logFormat))
	}

	return configBuilder.Build()
}

func ResetFlags() {
	cfgFile = ""
	gateways = []string{}
	timeout = 0
	concurrency = -1
	userAgent = ""
	maxBody = 0
	cacheTTL = 0
	eventsFile = ""
	databaseURL = ""
	outputDir = ""
	dryRun = false
	listenAddr = ""
	logFile = ""
	logLevel = ""
	logFormat = ""
	saveResolutions = false
	refreshInterval = time.Minute
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetGatewaysForTest(urls []string) {
	gateways = urls
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetConcurrencyForTest(conc int) {
	concurrency = conc
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetEventsFileForTest(path string) {
	eventsFile = path
}

func SetOutputDirForTest(dir string) {
	outputDir = dir
}

func SetDryRunForTest(dry bool) {
	dryRun = dry
}

func SetLogLevelForTest(level string) {
	logLevel = level
}

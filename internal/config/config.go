package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/build"
	"github.com/rohmanhakim/listing-enricher/internal/gateway"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/fileutil"
	"github.com/rohmanhakim/listing-enricher/pkg/hashutil"
	"github.com/rohmanhakim/listing-enricher/pkg/retry"
	"github.com/rohmanhakim/listing-enricher/pkg/timeutil"
	"gopkg.in/yaml.v3"
)

// EnvGatewayAuth supplies the auth header value of the primary gateway.
const EnvGatewayAuth = "LISTING_ENRICHER_GATEWAY_AUTH"

const (
	DefaultPrimaryGateway  = "https://gateway.pinata.cloud/ipfs"
	DefaultFallbackGateway = "https://ipfs.io/ipfs"
)

type Config struct {
	//===============
	// Gateways
	//===============
	// Ordered gateway endpoints, primary first
	gateways []gateway.Endpoint

	//===============
	// Fetch
	//===============
	// Deadline of a single fetch attempt
	timeout time.Duration
	// Largest response body accepted from a gateway
	maxBodyBytes int64
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Maximum number of identifiers resolved at once; 0 means unbounded
	concurrency int

	//===============
	// Cache
	//===============
	// How long a network result stays cached. 0 disables the cache
	cacheTTL time.Duration
	// Maximum number of cached identifiers
	cacheSize int

	//===============
	// Event source
	//===============
	// JSON document with the three event collections
	eventsFile string
	// Postgres connection string; takes precedence over eventsFile
	databaseURL string
	// maximum connect attempts against the database
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
	// Randomized variation added on top of each backoff delay
	jitter time.Duration

	//===============
	// Output
	//===============
	// Root directory in which to store snapshots
	outputDir string
	// Whether snapshots are computed but not written
	dryRun bool
	// Algorithm used for snapshot file names
	hashAlgo hashutil.HashAlgo

	//===============
	// Serve
	//===============
	listenAddr string

	//===============
	// Logging
	//===============
	logFile   string
	logLevel  slog.Level
	logFormat metadata.LogFormat
}

type gatewayDTO struct {
	Gateway        string `json:"gateway" yaml:"gateway"`
	AuthHeader     string `json:"authHeader,omitempty" yaml:"authHeader,omitempty"`
	AuthHeaderName string `json:"authHeaderName,omitempty" yaml:"authHeaderName,omitempty"`
}

// Durations are Go duration strings such as "10s" or "1m30s".
type configDTO struct {
	Gateways               []gatewayDTO `json:"gateways,omitempty" yaml:"gateways,omitempty"`
	Timeout                string       `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxBodyBytes           int64        `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
	UserAgent              string       `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	Concurrency            *int         `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	CacheTTL               string       `json:"cacheTTL,omitempty" yaml:"cacheTTL,omitempty"`
	CacheSize              int          `json:"cacheSize,omitempty" yaml:"cacheSize,omitempty"`
	EventsFile             string       `json:"eventsFile,omitempty" yaml:"eventsFile,omitempty"`
	DatabaseURL            string       `json:"databaseURL,omitempty" yaml:"databaseURL,omitempty"`
	MaxAttempt             int          `json:"maxAttempt,omitempty" yaml:"maxAttempt,omitempty"`
	BackoffInitialDuration string       `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64      `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     string       `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration,omitempty"`
	Jitter                 string       `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	OutputDir              string       `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	DryRun                 bool         `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	HashAlgo               string       `json:"hashAlgo,omitempty" yaml:"hashAlgo,omitempty"`
	ListenAddr             string       `json:"listenAddr,omitempty" yaml:"listenAddr,omitempty"`
	LogFile                string       `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	LogLevel               string       `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFormat              string       `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()

	if len(dto.Gateways) > 0 {
		endpoints := make([]gateway.Endpoint, 0, len(dto.Gateways))
		for _, g := range dto.Gateways {
			endpoints = append(endpoints, gateway.Endpoint{
				BaseURL:        g.Gateway,
				AuthHeader:     g.AuthHeader,
				AuthHeaderName: g.AuthHeaderName,
			})
		}
		cfg.WithGateways(endpoints)
	}

	// For other fields, only override if non-zero value is provided
	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"timeout", dto.Timeout, &cfg.timeout},
		{"cacheTTL", dto.CacheTTL, &cfg.cacheTTL},
		{"backoffInitialDuration", dto.BackoffInitialDuration, &cfg.backoffInitialDuration},
		{"backoffMaxDuration", dto.BackoffMaxDuration, &cfg.backoffMaxDuration},
		{"jitter", dto.Jitter, &cfg.jitter},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, d.name, err.Error())
		}
		*d.target = parsed
	}

	if dto.MaxBodyBytes != 0 {
		cfg.maxBodyBytes = dto.MaxBodyBytes
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	// 0 is meaningful (unbounded), so only an absent key keeps the default
	if dto.Concurrency != nil {
		cfg.concurrency = *dto.Concurrency
	}
	if dto.CacheSize != 0 {
		cfg.cacheSize = dto.CacheSize
	}
	if dto.EventsFile != "" {
		cfg.eventsFile = dto.EventsFile
	}
	if dto.DatabaseURL != "" {
		cfg.databaseURL = dto.DatabaseURL
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	cfg.dryRun = dto.DryRun
	if dto.HashAlgo != "" {
		cfg.hashAlgo = hashutil.HashAlgo(dto.HashAlgo)
	}
	if dto.ListenAddr != "" {
		cfg.listenAddr = dto.ListenAddr
	}
	if dto.LogFile != "" {
		cfg.logFile = dto.LogFile
	}
	if dto.LogLevel != "" {
		if err := cfg.WithLogLevel(dto.LogLevel); err != nil {
			return Config{}, err
		}
	}
	if dto.LogFormat != "" {
		cfg.logFormat = metadata.LogFormat(strings.ToLower(dto.LogFormat))
	}

	return cfg.Build()
}

// WithConfigFile loads a JSON or YAML file, chosen by extension, on top
// of the defaults.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	switch fileutil.Extension(path) {
	case "json":
		err = json.Unmarshal(configContent, &cfgDTO)
	case "yaml", "yml":
		err = yaml.Unmarshal(configContent, &cfgDTO)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		gateways: []gateway.Endpoint{
			{BaseURL: DefaultPrimaryGateway},
			{BaseURL: DefaultFallbackGateway},
		},
		timeout:                10 * time.Second,
		maxBodyBytes:           4 << 20,
		userAgent:              build.UserAgent(),
		concurrency:            16,
		cacheTTL:               10 * time.Minute,
		cacheSize:              1024,
		maxAttempt:             5,
		backoffInitialDuration: time.Second,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		jitter:                 250 * time.Millisecond,
		outputDir:              "output",
		dryRun:                 false,
		hashAlgo:               hashutil.HashAlgoBLAKE3,
		listenAddr:             ":8080",
		logLevel:               slog.LevelInfo,
		logFormat:              metadata.LogFormatAuto,
	}
	return &defaultConfig
}

func (c *Config) WithGateways(endpoints []gateway.Endpoint) *Config {
	c.gateways = append([]gateway.Endpoint(nil), endpoints...)
	return c
}

// WithEnvironment applies environment overrides read through getenv.
func (c *Config) WithEnvironment(getenv func(string) string) *Config {
	if auth := getenv(EnvGatewayAuth); auth != "" && len(c.gateways) > 0 {
		c.gateways = append([]gateway.Endpoint(nil), c.gateways...)
		c.gateways[0].AuthHeader = auth
	}
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithMaxBodyBytes(n int64) *Config {
	c.maxBodyBytes = n
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithCacheTTL(ttl time.Duration) *Config {
	c.cacheTTL = ttl
	return c
}

func (c *Config) WithCacheSize(size int) *Config {
	c.cacheSize = size
	return c
}

func (c *Config) WithEventsFile(path string) *Config {
	c.eventsFile = path
	return c
}

func (c *Config) WithDatabaseURL(dbURL string) *Config {
	c.databaseURL = dbURL
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithHashAlgo(algo hashutil.HashAlgo) *Config {
	c.hashAlgo = algo
	return c
}

func (c *Config) WithListenAddr(addr string) *Config {
	c.listenAddr = addr
	return c
}

func (c *Config) WithLogFile(path string) *Config {
	c.logFile = path
	return c
}

// WithLogLevel accepts the slog level names (debug, info, warn, error).
func (c *Config) WithLogLevel(level string) error {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("%w: logLevel: %s", ErrInvalidConfig, err.Error())
	}
	c.logLevel = parsed
	return nil
}

func (c *Config) WithLogFormat(format metadata.LogFormat) *Config {
	c.logFormat = format
	return c
}

func (c *Config) Build() (Config, error) {
	if len(c.gateways) == 0 {
		return Config{}, fmt.Errorf("%w: gateways cannot be empty", ErrInvalidConfig)
	}
	if _, err := gateway.NewResolver(c.gateways); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.maxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("%w: maxBodyBytes must be positive", ErrInvalidConfig)
	}
	if c.concurrency < 0 {
		return Config{}, fmt.Errorf("%w: concurrency cannot be negative", ErrInvalidConfig)
	}
	if c.cacheTTL < 0 {
		return Config{}, fmt.Errorf("%w: cacheTTL cannot be negative", ErrInvalidConfig)
	}
	if c.cacheSize <= 0 {
		return Config{}, fmt.Errorf("%w: cacheSize must be positive", ErrInvalidConfig)
	}
	if c.maxAttempt <= 0 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be positive", ErrInvalidConfig)
	}
	if _, err := hashutil.HashBytes(nil, c.hashAlgo); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	switch c.logFormat {
	case metadata.LogFormatAuto, metadata.LogFormatJSON, metadata.LogFormatText:
	default:
		return Config{}, fmt.Errorf("%w: unknown logFormat %q", ErrInvalidConfig, c.logFormat)
	}

	built := *c
	built.gateways = append([]gateway.Endpoint(nil), c.gateways...)
	return built, nil
}

func (c Config) Gateways() []gateway.Endpoint {
	endpoints := make([]gateway.Endpoint, len(c.gateways))
	copy(endpoints, c.gateways)
	return endpoints
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) MaxBodyBytes() int64 {
	return c.maxBodyBytes
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) CacheTTL() time.Duration {
	return c.cacheTTL
}

func (c Config) CacheSize() int {
	return c.cacheSize
}

func (c Config) EventsFile() string {
	return c.eventsFile
}

func (c Config) DatabaseURL() string {
	return c.databaseURL
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

// ConnectRetry is the backoff used while connecting to the database.
func (c Config) ConnectRetry() retry.RetryParam {
	return retry.NewRetryParam(
		c.jitter,
		time.Now().UnixNano(),
		c.maxAttempt,
		timeutil.NewBackoffParam(c.backoffInitialDuration, c.backoffMultiplier, c.backoffMaxDuration),
	)
}

func (c Config) OutputDir() string {
	return c.outputDir
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) HashAlgo() hashutil.HashAlgo {
	return c.hashAlgo
}

func (c Config) ListenAddr() string {
	return c.listenAddr
}

func (c Config) LogFile() string {
	return c.logFile
}

func (c Config) LogLevel() slog.Level {
	return c.logLevel
}

func (c Config) LogFormat() metadata.LogFormat {
	return c.logFormat
}

func (c Config) LogOptions() metadata.LogOptions {
	return metadata.LogOptions{
		Level:      c.logLevel,
		Format:     c.logFormat,
		File:       c.logFile,
		MaxSizeMB:  100,
		MaxBackups: 3,
	}
}

// Package main is the entry point for the ODRL policy administration point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Deuthe/test-odrl-integration/internal/backend"
	"github.com/Deuthe/test-odrl-integration/internal/config"
	"github.com/Deuthe/test-odrl-integration/internal/credential"
	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
	"github.com/Deuthe/test-odrl-integration/internal/gateway"
	"github.com/Deuthe/test-odrl-integration/internal/health"
	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/pdp"
	"github.com/Deuthe/test-odrl-integration/internal/policy"
	"github.com/Deuthe/test-odrl-integration/internal/resource"
	"github.com/Deuthe/test-odrl-integration/internal/secrets"
	"github.com/Deuthe/test-odrl-integration/internal/server"
	"github.com/Deuthe/test-odrl-integration/internal/server/middleware"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds parsed command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
	watch       bool
}

// application holds the wired components.
type application struct {
	config      *config.Config
	server      *server.Server
	resolver    *resource.Resolver
	events      *eventlog.Log
	tracer      *observability.Tracer
	metrics     *observability.Metrics
	rateLimiter *middleware.RateLimiter
	logger      observability.Logger
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags, logger)

	app, err := initApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize application", observability.Error(err))
	}

	runPAP(app, flags, logger)
}

// parseFlags parses command line flags, falling back to the environment.
func parseFlags() cliFlags {
	configPath := flag.String("config",
		getEnvOrDefault("PAP_CONFIG_PATH", ""),
		"Path to configuration file (defaults apply when empty)")
	logLevel := flag.String("log-level",
		getEnvOrDefault("PAP_LOG_LEVEL", ""),
		"Log level override (debug, info, warn, error)")
	logFormat := flag.String("log-format",
		getEnvOrDefault("PAP_LOG_FORMAT", ""),
		"Log format override (json, console)")
	watch := flag.Bool("watch",
		getEnvBool("PAP_CONFIG_WATCH", true),
		"Reload resources and log level when the config file changes")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
		watch:       *watch,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("pap version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// initLogger creates the bootstrap logger from flags. The configured level
// and format take over once the config file is loaded.
func initLogger(flags cliFlags) observability.Logger {
	cfg := observability.DefaultLogConfig()
	if flags.logLevel != "" {
		cfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Format = flags.logFormat
	}

	logger, err := observability.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	observability.SetGlobalLogger(logger)
	return logger
}

// fatalWithSync flushes the logger before exiting.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	_ = logger.Sync()
	logger.Fatal(msg, fields...)
}

// loadAndValidateConfig loads the configuration and applies log overrides.
func loadAndValidateConfig(flags cliFlags, logger observability.Logger) *config.Config {
	cfg, err := config.LoadOrDefault(flags.configPath)
	if err != nil {
		fatalWithSync(logger, "failed to load configuration",
			observability.String("path", flags.configPath),
			observability.Error(err),
		)
	}

	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	if setter, ok := logger.(observability.LevelSetter); ok {
		if err := setter.SetLevel(cfg.Log.Level); err != nil {
			logger.Warn("invalid log level in configuration", observability.Error(err))
		}
	}

	logger.Info("configuration loaded",
		observability.String("path", flags.configPath),
		observability.Int("resources", len(cfg.Resources)),
		observability.String("pdp", cfg.PDP.URL),
		observability.String("backend", cfg.Backend.BaseURL),
	)
	return cfg
}

// initApplication wires every component.
func initApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	tracer, err := initTracer(cfg, logger)
	if err != nil {
		return nil, err
	}

	ns := cfg.Metrics.Namespace
	var (
		metrics    *observability.Metrics
		registerer prometheus.Registerer
	)
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(ns)
		metrics.SetBuildInfo(version, gitCommit, buildTime)
		registerer = metrics.Registry()
	}

	events := eventlog.New(
		eventlog.WithCapacity(cfg.EventLog.Capacity),
		eventlog.WithSubscriberBuffer(cfg.EventLog.SubscriberBuffer),
		eventlog.WithLogger(logger),
		eventlog.WithMetrics(eventlog.NewMetrics(ns, registerer)),
	)

	table, err := resource.NewTable(cfg.Backend.BaseURL, cfg.Resources)
	if err != nil {
		return nil, fmt.Errorf("building resource table: %w", err)
	}
	resolver := resource.NewResolver(table)

	pdpClient, err := pdp.NewClient(pdp.Config{
		URL:          cfg.PDP.URL,
		DecisionPath: cfg.PDP.DecisionPath,
		Headers:      cfg.PDP.Headers,
		Timeout:      cfg.PDP.Timeout.Duration(),
	},
		pdp.WithLogger(logger),
		pdp.WithMetrics(pdp.NewMetrics(ns, registerer)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pdp client: %w", err)
	}

	compiler := policy.NewCompiler(policy.CompilerConfig{
		Package:     cfg.Policy.Package,
		MethodGuard: cfg.Policy.MethodGuard,
		PathPrefix:  cfg.Policy.PathPrefix,
		RegoV1:      cfg.Policy.RegoV1,
	})
	policies := policy.NewService(compiler, pdpClient,
		policy.WithPolicyID(cfg.PDP.PolicyID),
		policy.WithLogger(logger),
		policy.WithRecorder(events),
	)

	secret, err := loadSecret(cfg, logger)
	if err != nil {
		return nil, err
	}

	credMetrics := credential.NewMetrics(ns, registerer)
	issuer, err := credential.NewIssuer(secret,
		credential.WithSubjectKey(cfg.Credential.SubjectKey),
		credential.WithIssuerName(cfg.Credential.Issuer),
		credential.WithIssuerLogger(logger),
		credential.WithIssuerMetrics(credMetrics),
		credential.WithIssuerRecorder(events),
	)
	if err != nil {
		return nil, fmt.Errorf("creating token issuer: %w", err)
	}
	verifier, err := credential.NewVerifier(secret,
		credential.WithExpectedIssuer(cfg.Credential.Issuer),
		credential.WithVerifierLogger(logger),
		credential.WithVerifierMetrics(credMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	fetcher := backend.NewFetcher(buildFetcherOptions(cfg, logger, registerer)...)

	gw := gateway.New(resolver, verifier, pdpClient, fetcher,
		gateway.WithUpstreamTimeout(cfg.Upstream.Timeout.Duration()),
		gateway.WithLogger(logger),
		gateway.WithMetrics(gateway.NewMetrics(ns, registerer)),
		gateway.WithRecorder(events),
	)

	checker := health.NewChecker(version, health.WithMetrics(health.NewMetrics(ns, registerer)))
	checker.RegisterCheck("pdp", pdpClient.Ping)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst,
			middleware.WithRateLimiterLogger(logger),
		)
		rateLimiter.StartAutoCleanup()
	}

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		DataPrefix:   cfg.Policy.PathPrefix,
		CORS: middleware.CORSConfig{
			AllowOrigins: cfg.CORS.AllowOrigins,
			AllowMethods: cfg.CORS.AllowMethods,
			AllowHeaders: cfg.CORS.AllowHeaders,
		},
		TokenRateLimit: rateLimiter,
	}, server.Dependencies{
		Policies: policies,
		Tokens:   issuer,
		Gateway:  gw,
		Events:   events,
		Health:   checker,
		Metrics:  metrics,
		Logger:   logger,
	})

	return &application{
		config:      cfg,
		server:      srv,
		resolver:    resolver,
		events:      events,
		tracer:      tracer,
		metrics:     metrics,
		rateLimiter: rateLimiter,
		logger:      logger,
	}, nil
}

// buildFetcherOptions translates backend configuration into fetcher options.
func buildFetcherOptions(
	cfg *config.Config,
	logger observability.Logger,
	registerer prometheus.Registerer,
) []backend.Option {
	opts := []backend.Option{
		backend.WithTimeout(cfg.Backend.Timeout.Duration()),
		backend.WithLogger(logger),
		backend.WithMetrics(backend.NewMetrics(cfg.Metrics.Namespace, registerer)),
	}

	cb := cfg.Backend.CircuitBreaker
	if cb.Enabled {
		opts = append(opts, backend.WithCircuitBreaker(backend.BreakerConfig{
			MaxRequests:  cb.MaxRequests,
			Interval:     cb.Interval.Duration(),
			Timeout:      cb.Timeout.Duration(),
			MinRequests:  cb.MinRequests,
			FailureRatio: cb.FailureRatio,
		}))
	}
	return opts
}

// loadSecret resolves the signing secret from the configured source.
func loadSecret(cfg *config.Config, logger observability.Logger) ([]byte, error) {
	sourceCfg := secrets.SourceConfig{
		File:    cfg.Credential.SecretFile,
		FileKey: cfg.Credential.SecretFileKey,
		Env:     cfg.Credential.SecretEnv,
		Literal: cfg.Credential.Secret,
	}
	if cfg.Vault.Enabled {
		sourceCfg.Vault = &secrets.VaultConfig{
			Address:   cfg.Vault.Address,
			Token:     cfg.Vault.Token,
			Namespace: cfg.Vault.Namespace,
			Mount:     cfg.Vault.Mount,
			Path:      cfg.Vault.Path,
			Key:       cfg.Vault.Key,
			Timeout:   cfg.Vault.Timeout.Duration(),
		}
	}

	source, kind, err := secrets.NewSource(sourceCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating secret source: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	secret, err := source.Secret(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading signing secret from %s: %w", kind, err)
	}

	logger.Info("signing secret loaded", observability.String("source", string(kind)))
	return secret, nil
}

// initTracer creates the tracer from configuration.
func initTracer(cfg *config.Config, logger observability.Logger) (*observability.Tracer, error) {
	tracer, err := observability.NewTracer(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}
	if tracer.Enabled() {
		logger.Info("tracing enabled",
			observability.String("endpoint", cfg.Tracing.OTLPEndpoint),
			observability.Any("sampling_rate", cfg.Tracing.SamplingRate),
		)
	}
	return tracer, nil
}

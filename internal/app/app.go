// Package app wires the outreach runner from configuration. Both entry
// points build the same graph; only the transport in front of it differs.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach/internal/config"
	"outreach/internal/db"
	"outreach/internal/external"
	"outreach/internal/notifications/email"
	"outreach/internal/queue"
	"outreach/internal/sequencer"
	"outreach/internal/telemetry"
	"outreach/internal/types"
)

// App is the wired runner plus the resources main must close.
type App struct {
	Runner    *sequencer.Runner
	Sequences *db.SequenceRepository
	Pool      *pgxpool.Pool
}

// NewLogger returns the JSON slog logger used by every entry point.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// LoadConfig resolves *_SSM_PARAM pointers through SSM, or through the
// environment under APP_ENV=local, and loads the Config.
func LoadConfig() (*config.Config, error) {
	return config.Load(secretProvider(os.Getenv("APP_ENV"), os.Getenv("AWS_REGION")))
}

func secretProvider(appEnv, region string) config.SecretProvider {
	if appEnv == "local" {
		return config.NewEnvVarProvider()
	}
	return config.NewSSMProvider(region)
}

// New connects to Postgres and AWS and builds the runner.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.Database.URL.Unmask(), db.PoolOptions{
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return nil, err
	}

	provider, err := external.NewEmailProvider(cfg, awsCfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	renderer, err := email.NewRenderer(email.RendererConfig{ClaimBaseURL: cfg.Outreach.ClaimBaseURL})
	if err != nil {
		pool.Close()
		return nil, err
	}
	dispatcher := email.NewDispatcher(email.DispatcherConfig{
		Renderer: renderer,
		Provider: provider,
		From:     types.SenderIdentity{Name: cfg.Email.FromName, Address: cfg.Email.FromAddress},
		Logger:   logger.With("component", "dispatcher"),
	})

	sequences := db.NewSequenceRepository(pool)
	engine := sequencer.NewEngine(sequencer.Deps{
		Contacts:   db.NewContactRepository(pool),
		Events:     db.NewEventRepository(pool),
		Sequences:  sequences,
		Stats:      db.NewDailyStatsRepository(pool),
		Dispatcher: dispatcher,
		Logger:     logger.With("component", "engine"),
	}, cfg.Outreach)

	runner := sequencer.NewRunner(sequencer.RunnerConfig{
		Engine:    engine,
		Locks:     db.NewJobLockRepository(pool),
		History:   db.NewJobHistoryRepository(pool),
		Observers: observers(cfg, awsCfg, logger),
		LockTTL:   cfg.Outreach.LockTTL,
		Logger:    logger.With("component", "runner"),
	})

	return &App{Runner: runner, Sequences: sequences, Pool: pool}, nil
}

// Close releases the pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func observers(cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) []sequencer.RunObserver {
	var obs []sequencer.RunObserver
	if cfg.Observability.EnableMetrics && cfg.Environment != "local" {
		obs = append(obs, telemetry.NewCloudWatchRunMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			logger.With("component", "metrics"),
		))
	}
	if reporter := queue.NewRunReporter(sqs.NewFromConfig(awsCfg), cfg.AWS, logger.With("component", "run-reports")); reporter != nil {
		obs = append(obs, reporter)
	}
	return obs
}

func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(c.EndpointURL))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

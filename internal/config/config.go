// Package config defines the process configuration for the outreach sequencer
// and its operator API. Configuration is loaded once at cold start and is
// immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format fails the load.
package config

import (
	"time"

	"outreach/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"outreach-sequencer"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Email         EmailConfig
	Outreach      OutreachConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds the operator API listener settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// AdminAPIKey guards the /v1/outreach routes. Empty disables the check,
	// which is only accepted when APP_ENV=local.
	AdminAPIKey SecretString `envconfig:"ADMIN_API_KEY"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"5"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// RunReportQueue receives one message per completed run. Empty disables
	// publishing.
	RunReportQueue string `envconfig:"SQS_RUN_REPORTS" validate:"omitempty,url"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// EmailConfig selects and configures the transactional email provider.
type EmailConfig struct {
	Provider       string       `envconfig:"EMAIL_PROVIDER" default:"ses" validate:"oneof=ses sendgrid"`
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY" validate:"required_if=Provider sendgrid"`
	SESConfigSet   string       `envconfig:"SES_CONFIGURATION_SET"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" validate:"required,email"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Listings Team"`
}

// OutreachConfig carries the sequencing constants. The defaults reproduce the
// production cadence; operators override them per environment.
type OutreachConfig struct {
	DailyLimit int `envconfig:"OUTREACH_DAILY_LIMIT" default:"200" validate:"gte=0"`

	// Day3Delay is measured from the Day 1 send.
	Day3Delay time.Duration `envconfig:"OUTREACH_DAY3_DELAY" default:"72h" validate:"gt=0"`
	// Day7Delay is measured from the Day 3 send.
	Day7Delay time.Duration `envconfig:"OUTREACH_DAY7_DELAY" default:"96h" validate:"gt=0"`
	// Day7FallbackDelay is measured from the Day 1 send when Day 3 never went out.
	Day7FallbackDelay time.Duration `envconfig:"OUTREACH_DAY7_FALLBACK_DELAY" default:"168h" validate:"gt=0"`

	EventLookback   time.Duration `envconfig:"OUTREACH_EVENT_LOOKBACK" default:"48h" validate:"gt=0"`
	ContextLookback time.Duration `envconfig:"OUTREACH_CONTEXT_LOOKBACK" default:"168h" validate:"gt=0"`

	EventBatchSize    int `envconfig:"OUTREACH_EVENT_BATCH_SIZE" default:"500" validate:"gt=0"`
	Day3BatchSize     int `envconfig:"OUTREACH_DAY3_BATCH_SIZE" default:"100" validate:"gt=0"`
	Day7BatchSize     int `envconfig:"OUTREACH_DAY7_BATCH_SIZE" default:"100" validate:"gt=0"`
	ContextEventLimit int `envconfig:"OUTREACH_CONTEXT_EVENT_LIMIT" default:"5" validate:"gt=0"`

	ExcludedEventTypes []string `envconfig:"OUTREACH_EXCLUDED_EVENT_TYPES" default:"land"`

	// LockTTL bounds how long a crashed run can hold the job lock.
	LockTTL time.Duration `envconfig:"OUTREACH_LOCK_TTL" default:"15m" validate:"gt=0"`

	// ClaimBaseURL is the prefix of the listing claim link; the contact's
	// token is appended path-escaped.
	ClaimBaseURL string `envconfig:"OUTREACH_CLAIM_BASE_URL" validate:"required,url"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Outreach"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)

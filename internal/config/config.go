package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvProduction = "production"

	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config is the API process configuration.
type Config struct {
	App     AppConfig
	Mpesa   MpesaConfig
	Storage StorageConfig
	AWS     AWSConfig
}

// WorkerConfig is the subset the SQS worker needs; it carries no provider
// credentials.
type WorkerConfig struct {
	App     AppConfig
	Storage StorageConfig
	AWS     AWSConfig
}

type AppConfig struct {
	Env              string   `envconfig:"APP_ENV" default:"development"`
	Port             string   `envconfig:"APP_PORT" default:"8080"`
	LogLevel         string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat        string   `envconfig:"LOG_FORMAT" default:"json"`
	RunLocal         bool     `envconfig:"RUN_LOCAL" default:"false"`
	CORSAllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS"`
	AdminUser        string   `envconfig:"ADMIN_USER"`
	AdminPass        string   `envconfig:"ADMIN_PASS"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProduction)
}

type MpesaConfig struct {
	ShortCode        string        `envconfig:"MPESA_SHORTCODE" required:"true"`
	Passkey          string        `envconfig:"MPESA_PASSKEY" required:"true"`
	Env              string        `envconfig:"MPESA_ENV" required:"true"`
	CallbackBaseURL  string        `envconfig:"MPESA_CALLBACK_BASE_URL" required:"true"`
	CallbackSecret   string        `envconfig:"MPESA_CALLBACK_SECRET" required:"true"`
	ConsumerKey      string        `envconfig:"MPESA_CONSUMER_KEY" required:"true"`
	ConsumerSecret   string        `envconfig:"MPESA_CONSUMER_SECRET" required:"true"`
	HTTPTimeout      time.Duration `envconfig:"MPESA_HTTP_TIMEOUT" default:"15s"`
	PendingTTL       time.Duration `envconfig:"MPESA_PENDING_TTL" default:"0s"`
	AccountReference string        `envconfig:"MPESA_ACCOUNT_REFERENCE" default:"ABC Church"`
	TransactionDesc  string        `envconfig:"MPESA_TRANSACTION_DESC" default:"Church contribution"`
}

type StorageConfig struct {
	Backend            string `envconfig:"STORE_BACKEND" default:"dynamodb"`
	TransactionsTable  string `envconfig:"TRANSACTIONS_TABLE"`
	ContributionsTable string `envconfig:"CONTRIBUTIONS_TABLE"`
	PaymentsQueueURL   string `envconfig:"PAYMENTS_QUEUE_URL"`
}

type AWSConfig struct {
	Region              string `envconfig:"AWS_REGION" default:"us-east-1"`
	EndpointOverride    string `envconfig:"AWS_ENDPOINT_OVERRIDE"`
	CloudWatchNamespace string `envconfig:"CLOUDWATCH_NAMESPACE"`
}

// Load reads the API configuration. Any missing or malformed provider
// setting is an error; callers treat it as fatal.
func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := process(&cfg.App, &cfg.Mpesa, &cfg.Storage, &cfg.AWS); err != nil {
		return nil, err
	}
	if err := cfg.Mpesa.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWorker reads the worker configuration. The worker only writes to the
// contributions table, so that table is required.
func LoadWorker() (*WorkerConfig, error) {
	loadDotEnv()

	var cfg WorkerConfig
	if err := process(&cfg.App, &cfg.Storage, &cfg.AWS); err != nil {
		return nil, err
	}
	if cfg.Storage.ContributionsTable == "" {
		return nil, errors.New("CONTRIBUTIONS_TABLE is required for the worker")
	}
	return &cfg, nil
}

// loadDotEnv reads .env outside production. Variables already set win.
func loadDotEnv() {
	if strings.EqualFold(os.Getenv("APP_ENV"), AppEnvProduction) {
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config: ignoring unreadable .env: %v\n", err)
	}
}

func process(sections ...interface{}) error {
	for _, s := range sections {
		if err := envconfig.Process("", s); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	return nil
}

func (m MpesaConfig) validate() error {
	switch m.Env {
	case "sandbox", "production":
	default:
		return fmt.Errorf("MPESA_ENV must be sandbox or production, got %q", m.Env)
	}
	u, err := url.Parse(m.CallbackBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("MPESA_CALLBACK_BASE_URL must be an absolute http(s) URL, got %q", m.CallbackBaseURL)
	}
	if m.HTTPTimeout <= 0 {
		return fmt.Errorf("MPESA_HTTP_TIMEOUT must be positive, got %s", m.HTTPTimeout)
	}
	return nil
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case BackendDynamoDB:
		if s.TransactionsTable == "" {
			return errors.New("TRANSACTIONS_TABLE is required when STORE_BACKEND=dynamodb")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be dynamodb or memory, got %q", s.Backend)
	}
	return nil
}

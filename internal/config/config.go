package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/settlehq/settle/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment     DeploymentConfig     `validate:"required"`
	Server         ServerConfig         `validate:"required"`
	Logging        LoggingConfig        `validate:"required"`
	Postgres       PostgresConfig       `validate:"required"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Chain          ChainConfig          `mapstructure:"chain"`
	Relay          RelayConfig          `mapstructure:"relay"`
	Webhook        Webhook              `mapstructure:"webhook"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Worker         WorkerConfig         `mapstructure:"worker"`
	Notification   NotificationConfig   `mapstructure:"notification"`
	Sentry         SentryConfig         `mapstructure:"sentry"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	PaymentLink    PaymentLinkConfig    `mapstructure:"payment_link"`
	Stats          StatsConfig          `mapstructure:"stats"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
	MigrationsPath         string `mapstructure:"migrations_path"`
}

type CacheConfig struct {
	Enabled     bool               `mapstructure:"enabled"`
	Backend     types.CacheBackend `mapstructure:"backend"`
	OpStatusTTL time.Duration      `mapstructure:"op_status_ttl"`
}

type RedisConfig struct {
	Addrs      []string `mapstructure:"addrs"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	UseCluster bool     `mapstructure:"use_cluster"`
}

type ChainConfig struct {
	Enabled                bool          `mapstructure:"enabled"`
	RPCURL                 string        `mapstructure:"rpc_url" validate:"required_if=Enabled true"`
	ChainID                int64         `mapstructure:"chain_id"`
	InvoiceContractAddress string        `mapstructure:"invoice_contract_address" validate:"required_if=Enabled true"`
	TokenContractAddress   string        `mapstructure:"token_contract_address" validate:"required_if=Enabled true"`
	TokenSymbol            string        `mapstructure:"token_symbol"`
	TokenDecimals          int32         `mapstructure:"token_decimals"`
	Timeout                time.Duration `mapstructure:"timeout"`
	ExplorerURL            string        `mapstructure:"explorer_url"`
}

type RelayConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	PaymasterURL      string        `mapstructure:"paymaster_url" validate:"required_if=Enabled true"`
	BundlerURL        string        `mapstructure:"bundler_url" validate:"required_if=Enabled true"`
	PaymasterAddress  string        `mapstructure:"paymaster_address"`
	EntryPointAddress string        `mapstructure:"entry_point_address"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryMax          int           `mapstructure:"retry_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

type ReconciliationConfig struct {
	OverdueSweepInterval time.Duration `mapstructure:"overdue_sweep_interval"`
	ReplayInterval       time.Duration `mapstructure:"replay_interval"`
	ReplayBatchSize      int           `mapstructure:"replay_batch_size"`
}

type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxElapsed      time.Duration `mapstructure:"max_elapsed"`
}

type NotificationConfig struct {
	Topic string `mapstructure:"topic"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type PaymentLinkConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type StatsConfig struct {
	// GasPriceUSD is the rough USD value of one unit of gas used for the savings estimate
	GasPriceUSD string `mapstructure:"gas_price_usd"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional, real environment variables always win
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/settle")

	v.SetEnvPrefix("SETTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
		fmt.Printf("No config file found, using defaults and environment: %v\n", err)
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("postgres.migrations_path", d.Postgres.MigrationsPath)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.op_status_ttl", d.Cache.OpStatusTTL)
	v.SetDefault("chain.chain_id", d.Chain.ChainID)
	v.SetDefault("chain.token_symbol", d.Chain.TokenSymbol)
	v.SetDefault("chain.token_decimals", d.Chain.TokenDecimals)
	v.SetDefault("chain.timeout", d.Chain.Timeout)
	v.SetDefault("chain.explorer_url", d.Chain.ExplorerURL)
	v.SetDefault("relay.entry_point_address", d.Relay.EntryPointAddress)
	v.SetDefault("relay.timeout", d.Relay.Timeout)
	v.SetDefault("relay.retry_max", d.Relay.RetryMax)
	v.SetDefault("relay.requests_per_second", d.Relay.RequestsPerSecond)
	v.SetDefault("webhook.signature_header", d.Webhook.SignatureHeader)
	v.SetDefault("webhook.event_header", d.Webhook.EventHeader)
	v.SetDefault("reconciliation.overdue_sweep_interval", d.Reconciliation.OverdueSweepInterval)
	v.SetDefault("reconciliation.replay_interval", d.Reconciliation.ReplayInterval)
	v.SetDefault("reconciliation.replay_batch_size", d.Reconciliation.ReplayBatchSize)
	v.SetDefault("worker.concurrency", d.Worker.Concurrency)
	v.SetDefault("worker.max_retries", d.Worker.MaxRetries)
	v.SetDefault("worker.initial_interval", d.Worker.InitialInterval)
	v.SetDefault("worker.max_elapsed", d.Worker.MaxElapsed)
	v.SetDefault("notification.topic", d.Notification.Topic)
	v.SetDefault("payment_link.base_url", d.PaymentLink.BaseURL)
	v.SetDefault("stats.gas_price_usd", d.Stats.GasPriceUSD)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts, tests or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			SSLMode:                "disable",
			MaxOpenConns:           20,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
			MigrationsPath:         "file://migrations/postgres",
		},
		Cache: CacheConfig{
			Enabled:     true,
			Backend:     types.CacheBackendMemory,
			OpStatusTTL: 30 * time.Second,
		},
		Chain: ChainConfig{
			ChainID:       534351,
			TokenSymbol:   "USDC",
			TokenDecimals: types.DefaultTokenDecimals,
			Timeout:       10 * time.Second,
			ExplorerURL:   "https://sepolia.scrollscan.dev",
		},
		Relay: RelayConfig{
			EntryPointAddress: "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789",
			Timeout:           10 * time.Second,
			RetryMax:          2,
			RequestsPerSecond: 20,
		},
		Webhook: Webhook{
			SignatureHeader: types.HeaderSignature,
			EventHeader:     types.HeaderEventType,
		},
		Reconciliation: ReconciliationConfig{
			OverdueSweepInterval: time.Hour,
			ReplayInterval:       5 * time.Minute,
			ReplayBatchSize:      100,
		},
		Worker: WorkerConfig{
			Concurrency:     4,
			MaxRetries:      5,
			InitialInterval: 2 * time.Second,
			MaxElapsed:      5 * time.Minute,
		},
		Notification: NotificationConfig{Topic: "invoice_notifications"},
		PaymentLink:  PaymentLinkConfig{BaseURL: "https://settle.me/pay/"},
		Stats:        StatsConfig{GasPriceUSD: "0.000000001"},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

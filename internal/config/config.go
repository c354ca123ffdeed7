package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	AuthSecret      string
	ShutdownTimeout time.Duration

	TaxRate       decimal.Decimal
	Currency      string
	InventorySeed map[string]int

	Stripe   StripeConfig
	Coinbase CoinbaseConfig

	PollMaxAttempts int
	PollInterval    time.Duration

	ReservationTTL time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
	WorkerPoolSize int

	KafkaBrokers  []string
	NotifyTopic   string
	NotifyTimeout time.Duration
}

// StripeConfig configures both Stripe backed variants.
type StripeConfig struct {
	APIURL                string
	SecretKey             string
	CheckoutWebhookSecret string
	CardWebhookSecret     string
	SuccessURL            string
	CancelURL             string
}

// CoinbaseConfig configures the crypto charge variant.
type CoinbaseConfig struct {
	APIURL        string
	APIKey        string
	WebhookSecret string
	RedirectURL   string
	CancelURL     string
}

const (
	defaultRunAddress      = ":8080"
	defaultAuthSecret      = "change-me-in-production"
	defaultShutdownTimeout = 10 * time.Second
	defaultTaxRate         = "0"
	defaultCurrency        = "usd"
	defaultStripeAPIURL    = "https://api.stripe.com"
	defaultCoinbaseAPIURL  = "https://api.commerce.coinbase.com"
	defaultPollMaxAttempts = 10
	defaultPollInterval    = 3 * time.Second
	defaultSweepInterval   = time.Minute
	defaultSweepBatchSize  = 32
	defaultWorkerPoolSize  = 4
	defaultNotifyTopic     = "order.confirmed"
	defaultNotifyTimeout   = 5 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:      getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:     getString(lookup, "DATABASE_URI", ""),
		AuthSecret:      getString(lookup, "AUTH_SECRET", defaultAuthSecret),
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		Currency:        strings.ToLower(getString(lookup, "CURRENCY", defaultCurrency)),
		Stripe: StripeConfig{
			APIURL:                getString(lookup, "STRIPE_API_URL", defaultStripeAPIURL),
			SecretKey:             getString(lookup, "STRIPE_SECRET_KEY", ""),
			CheckoutWebhookSecret: getString(lookup, "STRIPE_CHECKOUT_WEBHOOK_SECRET", ""),
			CardWebhookSecret:     getString(lookup, "STRIPE_CARD_WEBHOOK_SECRET", ""),
			SuccessURL:            getString(lookup, "CHECKOUT_SUCCESS_URL", ""),
			CancelURL:             getString(lookup, "CHECKOUT_CANCEL_URL", ""),
		},
		Coinbase: CoinbaseConfig{
			APIURL:        getString(lookup, "COINBASE_API_URL", defaultCoinbaseAPIURL),
			APIKey:        getString(lookup, "COINBASE_API_KEY", ""),
			WebhookSecret: getString(lookup, "COINBASE_WEBHOOK_SECRET", ""),
			RedirectURL:   getString(lookup, "CHECKOUT_SUCCESS_URL", ""),
			CancelURL:     getString(lookup, "CHECKOUT_CANCEL_URL", ""),
		},
		PollMaxAttempts: getInt(lookup, "POLL_MAX_ATTEMPTS", defaultPollMaxAttempts),
		PollInterval:    getDuration(lookup, "POLL_INTERVAL", defaultPollInterval),
		ReservationTTL:  getDuration(lookup, "RESERVATION_TTL", 0),
		SweepInterval:   getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatchSize:  getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatchSize),
		WorkerPoolSize:  getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		NotifyTopic:     getString(lookup, "NOTIFY_TOPIC", defaultNotifyTopic),
		NotifyTimeout:   getDuration(lookup, "NOTIFY_TIMEOUT", defaultNotifyTimeout),
	}

	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		taxRateStr         = getString(lookup, "TAX_RATE", defaultTaxRate)
		brokersStr         = getString(lookup, "KAFKA_BROKERS", "")
		seedStr            = getString(lookup, "INVENTORY_SEED", "")
		pollIntervalStr    = cfg.PollInterval.String()
		reservationTTLStr  = cfg.ReservationTTL.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN, in-memory storage when empty")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "Secret used to verify customer tokens")
	fs.StringVar(&taxRateStr, "tax-rate", taxRateStr, "Flat tax rate applied to order subtotal")
	fs.IntVar(&cfg.PollMaxAttempts, "poll-attempts", cfg.PollMaxAttempts, "Maximum provider polls per capture request")
	fs.StringVar(&pollIntervalStr, "poll-interval", pollIntervalStr, "Delay between provider polls")
	fs.StringVar(&reservationTTLStr, "reservation-ttl", reservationTTLStr, "Age after which pending orders release stock, 0 disables")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent sweeper workers")
	fs.StringVar(&brokersStr, "kafka-brokers", brokersStr, "Comma separated Kafka brokers for notifications")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.TaxRate, err = decimal.NewFromString(taxRateStr); err != nil {
		return nil, fmt.Errorf("invalid tax rate: %w", err)
	}

	if cfg.PollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}

	if cfg.ReservationTTL, err = time.ParseDuration(reservationTTLStr); err != nil {
		return nil, fmt.Errorf("invalid reservation ttl: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.InventorySeed, err = parseInventorySeed(seedStr); err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = splitList(brokersStr)

	if secretFile, ok := lookup("AUTH_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read auth secret file: %w", err)
		}
		cfg.AuthSecret = strings.TrimSpace(string(content))
	}

	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = defaultPollMaxAttempts
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if cfg.ReservationTTL < 0 {
		cfg.ReservationTTL = 0
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}

	if cfg.TaxRate.IsNegative() || cfg.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate must be within [0, 1), got %s", cfg.TaxRate)
	}

	if len(cfg.Currency) != 3 {
		return nil, fmt.Errorf("currency must be a three letter ISO code, got %q", cfg.Currency)
	}

	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("auth secret must be provided")
	}

	return cfg, nil
}

// SweeperEnabled reports whether abandoned reservations are expired.
func (c *Config) SweeperEnabled() bool {
	return c.ReservationTTL > 0
}

func parseInventorySeed(raw string) (map[string]int, error) {
	seed := make(map[string]int)
	for _, entry := range splitList(raw) {
		id, qty, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid inventory seed entry %q", entry)
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid inventory seed quantity in %q", entry)
		}
		seed[strings.TrimSpace(id)] = n
	}
	return seed, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

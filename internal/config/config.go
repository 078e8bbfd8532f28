package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devSessionSecret = "payroll-dev-session-secret"

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `envconfig:"APP_NAME" default:"PayrollChain"`
	Env            string        `envconfig:"APP_ENV" default:"development"`
	Port           string        `envconfig:"PORT" default:"8080"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	RedisURL       string        `envconfig:"REDIS_URL"`
	ShutdownPeriod time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	LoginPerMinute int           `envconfig:"LOGIN_RATE_PER_MINUTE" default:"5"`

	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	ChallengeTTL  time.Duration `envconfig:"CHALLENGE_TTL" default:"5m"`

	EthRPCURL       string        `envconfig:"ETH_RPC_URL"`
	ContractAddress string        `envconfig:"PAYROLL_CONTRACT_ADDRESS"`
	OwnerAddress    string        `envconfig:"PAYROLL_OWNER_ADDRESS"`
	GasLimit        uint64        `envconfig:"ETH_GAS_LIMIT" default:"500000"`
	ReceiptPoll     time.Duration `envconfig:"ETH_RECEIPT_POLL" default:"1s"`

	PinataJWT     string        `envconfig:"PINATA_JWT"`
	PinataAPIURL  string        `envconfig:"PINATA_API_URL" default:"https://api.pinata.cloud"`
	PinataGateway string        `envconfig:"PINATA_GATEWAY" default:"gateway.pinata.cloud"`
	PinataTimeout time.Duration `envconfig:"PINATA_TIMEOUT" default:"15s"`

	AMQPURL   string `envconfig:"AMQP_URL"`
	AMQPQueue string `envconfig:"AMQP_QUEUE" default:"payroll.events"`
}

// Load reads an optional .env file, then populates a Config from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsDev() {
		if c.SessionSecret == "" {
			c.SessionSecret = devSessionSecret
		}
		return nil
	}

	var missing []string
	for key, value := range map[string]string{
		"DATABASE_URL":             c.DatabaseURL,
		"REDIS_URL":                c.RedisURL,
		"SESSION_SECRET":           c.SessionSecret,
		"PINATA_JWT":               c.PinataJWT,
		"ETH_RPC_URL":              c.EthRPCURL,
		"PAYROLL_CONTRACT_ADDRESS": c.ContractAddress,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New(strings.Join(missing, ", ") + " must be set when APP_ENV=" + c.Env)
	}
	return nil
}

// IsDev reports whether in-memory fallbacks are allowed.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string   `env:"PORT" envDefault:"3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"https://bloodconnect-3e8aa.web.app,http://localhost:5173"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`

	// Mongo
	MongoURI     string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	DBName       string        `env:"DB_NAME" envDefault:"BloodConnectDB"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	Auth AuthConfig `envPrefix:"AUTH_"`

	// Roles is the accepted user_role set; DefaultRole is assigned on
	// self-registration.
	Roles       []string `env:"ROLES" envSeparator:"," envDefault:"donor,volunteer,admin"`
	DefaultRole string   `env:"DEFAULT_ROLE" envDefault:"donor"`

	// Stripe
	PaymentKey      string `env:"PAYMENT_GATEWAY_KEY"`
	PaymentCurrency string `env:"PAYMENT_CURRENCY" envDefault:"usd"`

	Cloudinary CloudinaryConfig `envPrefix:"CLOUDINARY_"`
	Mail       MailConfig

	RabbitURL      string `env:"RABBIT_URL"`
	RabbitExchange string `env:"RABBIT_EXCHANGE" envDefault:"bloodconnect.events"`

	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// AuthConfig selects how bearer tokens are verified. Exactly one of
// Secret, PublicKey or CertsURL should be set. CertsURL also needs Issuer
// and Audience.
type AuthConfig struct {
	Secret        string        `env:"JWT_SECRET"`
	PublicKey     string        `env:"PUBLIC_KEY"`
	CertsURL      string        `env:"CERTS_URL"`
	Issuer        string        `env:"ISSUER"`
	Audience      string        `env:"AUDIENCE"`
	VerifyTimeout time.Duration `env:"VERIFY_TIMEOUT" envDefault:"5s"`
}

type CloudinaryConfig struct {
	CloudName string `env:"CLOUD_NAME"`
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	Folder    string `env:"FOLDER" envDefault:"blogs"`
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type MailConfig struct {
	APIURL string `env:"ZEPTO_API_URL"`
	APIKey string `env:"ZEPTO_API_KEY"`
	From   string `env:"EMAIL_FROM"`
}

func (m MailConfig) Enabled() bool {
	return m.APIURL != "" && m.APIKey != "" && m.From != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" && c.Auth.PublicKey == "" && c.Auth.CertsURL == "" {
		return fmt.Errorf("one of AUTH_JWT_SECRET, AUTH_PUBLIC_KEY or AUTH_CERTS_URL is required")
	}
	// A shared certificate set signs tokens for every tenant of the
	// provider, so the token must name this project.
	if c.Auth.CertsURL != "" && (c.Auth.Issuer == "" || c.Auth.Audience == "") {
		return fmt.Errorf("AUTH_ISSUER and AUTH_AUDIENCE are required with AUTH_CERTS_URL")
	}
	if len(c.Roles) == 0 {
		return fmt.Errorf("ROLES must not be empty")
	}
	for _, r := range c.Roles {
		if r == c.DefaultRole {
			return nil
		}
	}
	return fmt.Errorf("DEFAULT_ROLE %q is not one of ROLES", c.DefaultRole)
}

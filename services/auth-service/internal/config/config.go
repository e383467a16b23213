package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const EnvironmentProduction = "production"

// AuthServiceConfig holds every setting the auth service needs. It is built
// once at startup and passed to constructors.
type AuthServiceConfig struct {
	Environment         string `env:"APP_ENV"                envDefault:"development"`
	AdminEmail          string `env:"ADMIN_EMAIL"`
	AppBaseURL          string `env:"APP_BASE_URL"           envDefault:"http://localhost:8080"`
	AppPasswordResetURL string `env:"APP_PASSWORD_RESET_URL"`

	HTTP      HTTPConfig
	Mongo     MongoConfig
	Token     TokenConfig
	OTP       OTPConfig
	SMTP      SMTPConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Consul    ConsulConfig
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR"             envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" envDefault:"storefront"`
}

type TokenConfig struct {
	Issuer                 string        `env:"TOKEN_ISSUER"                    envDefault:"storefront-auth"`
	AccessTokenSecret      string        `env:"ACCESS_TOKEN_SECRET"`
	AccessTokenExpiresIn   time.Duration `env:"ACCESS_TOKEN_EXPIRES_IN"         envDefault:"24h"`
	RefreshTokenSecret     string        `env:"REFRESH_TOKEN_SECRET"`
	RefreshTokenExpiresIn  time.Duration `env:"REFRESH_TOKEN_EXPIRES_IN"        envDefault:"720h"`
	PasswordResetExpiresIn time.Duration `env:"PASSWORD_RESET_TOKEN_EXPIRES_IN" envDefault:"1h"`
	MaxRefreshTokens       int           `env:"MAX_REFRESH_TOKENS"              envDefault:"5"`
}

type OTPConfig struct {
	LoginExpiresIn  time.Duration `env:"OTP_LOGIN_EXPIRES_IN"  envDefault:"2m"`
	ResendExpiresIn time.Duration `env:"OTP_RESEND_EXPIRES_IN" envDefault:"5m"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"     envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	Workers  int    `env:"SMTP_WORKERS"  envDefault:"2"`
	Buffer   int    `env:"SMTP_BUFFER"   envDefault:"64"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type RateLimitConfig struct {
	Prefix string        `env:"RATE_LIMIT_PREFIX" envDefault:"storefront:auth:rl"`
	Limit  int           `env:"RATE_LIMIT_LIMIT"  envDefault:"10"`
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

type ConsulConfig struct {
	Addr        string `env:"CONSUL_ADDR"`
	ServiceName string `env:"CONSUL_SERVICE_NAME" envDefault:"auth-service"`
	ServiceHost string `env:"CONSUL_SERVICE_HOST" envDefault:"localhost"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*AuthServiceConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(envFiles...)

	cfg, err := env.ParseAs[AuthServiceConfig]()
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *AuthServiceConfig) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

func (c *AuthServiceConfig) validate() error {
	if c.Token.AccessTokenSecret == "" {
		return errors.New("missing ACCESS_TOKEN_SECRET environment variable")
	}
	if c.Token.RefreshTokenSecret == "" {
		return errors.New("missing REFRESH_TOKEN_SECRET environment variable")
	}
	if c.Token.AccessTokenSecret == c.Token.RefreshTokenSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.Token.MaxRefreshTokens <= 0 {
		return errors.New("MAX_REFRESH_TOKENS must be positive")
	}
	if c.Mongo.URI == "" {
		return errors.New("missing MONGO_URI environment variable")
	}

	return nil
}

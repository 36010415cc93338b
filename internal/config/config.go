package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSigningKey      string   `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer          string   `mapstructure:"JWT_ISSUER"`
	TokenTTLHours      int      `mapstructure:"TOKEN_TTL_HOURS"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeoutSecs int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_ISSUER", "radcase")
	v.SetDefault("TOKEN_TTL_HOURS", 12)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("TOKEN_TTL_HOURS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSigningKey == "" {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: No JWT_SIGNING_KEY configured (ENV=development).")
		log.Println("WARNING: An ephemeral key will be generated at startup; every")
		log.Println("WARNING: restart invalidates all outstanding sessions.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a signing key of at least 32 bytes is mandatory: sessions are stateless,
// so the key is the only thing standing between a forged token and a role
// claim the server will trust.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSigningKey == "" {
			return fmt.Errorf(
				"JWT_SIGNING_KEY must be set when ENV is %q; refusing to start without a session signing key", c.Env)
		}
		if len(c.JWTSigningKey) < 32 {
			return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.JWTSigningKey))
		}
	}

	if c.TokenTTLHours <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %d", c.TokenTTLHours)
	}
	if c.RequestTimeoutSecs <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeoutSecs)
	}

	return nil
}

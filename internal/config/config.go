package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Reference table sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	DataDir           string `mapstructure:"DATA_DIR"`
	TriageModelPath   string `mapstructure:"TRIAGE_MODEL_PATH"`
	VolumeModelPath   string `mapstructure:"VOLUME_MODEL_PATH"`
	WaitTimeModelPath string `mapstructure:"WAIT_TIME_MODEL_PATH"`
	VisitsPath        string `mapstructure:"VISITS_PATH"`
	StaffingPath      string `mapstructure:"STAFFING_PATH"`
	ReferenceSource   string `mapstructure:"REFERENCE_SOURCE"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
	AMQPURL  string        `mapstructure:"AMQP_URL"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	// JWTSigningKey verifies the HS256 bearer tokens on staff routes. It is
	// required outside development, where staff clients must send
	// "Authorization: Bearer <jwt>" with the staff role to change a ticket
	// status.
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`

	SimulationMaxSteps int `mapstructure:"SIMULATION_MAX_STEPS"`
}

var keys = []string{
	"PORT", "ENV",
	"DATA_DIR", "TRIAGE_MODEL_PATH", "VOLUME_MODEL_PATH", "WAIT_TIME_MODEL_PATH",
	"VISITS_PATH", "STAFFING_PATH", "REFERENCE_SOURCE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "CACHE_TTL", "AMQP_URL",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"JWT_SIGNING_KEY", "JWT_ISSUER",
	"SIMULATION_MAX_STEPS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("REFERENCE_SOURCE", SourceCSV)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("SIMULATION_MAX_STEPS", 500)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}
	cfg.ReferenceSource = strings.ToLower(strings.TrimSpace(cfg.ReferenceSource))
	cfg.applyDataDir()

	return cfg, nil
}

// applyDataDir fills unset file paths with the default file names under
// DATA_DIR.
func (c *Config) applyDataDir() {
	set := func(p *string, name string) {
		if *p == "" {
			*p = filepath.Join(c.DataDir, name)
		}
	}
	set(&c.TriageModelPath, "triage_prediction_model.json")
	set(&c.VolumeModelPath, "volume_forecaster_model.json")
	set(&c.WaitTimeModelPath, "wait_time_model.json")
	set(&c.VisitsPath, "FinalData.csv")
	set(&c.StaffingPath, "Hospital_Staffing_Cleaned.csv")
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UsePostgres reports whether the reference tables come from Postgres.
func (c *Config) UsePostgres() bool {
	return c.ReferenceSource == SourcePostgres
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT signing key is required so staff routes are protected.
func (c *Config) Validate() error {
	switch c.ReferenceSource {
	case SourceCSV:
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when REFERENCE_SOURCE is %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("REFERENCE_SOURCE must be %q or %q, got %q", SourceCSV, SourcePostgres, c.ReferenceSource)
	}
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.SimulationMaxSteps <= 0 {
		return fmt.Errorf("SIMULATION_MAX_STEPS must be positive, got %d", c.SimulationMaxSteps)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

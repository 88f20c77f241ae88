package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"trip-planner-service/internal/domain"
)

// Config is the process configuration assembled from the environment
// and the optional planner policy file.
type Config struct {
	Env         string
	LogLevel    string
	Port        string
	DatabaseURL string
	RedisURL    string
	ORSAPIKey   string
	PolicyPath  string
	Policy      domain.PlanningPolicy
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present), environment variables and the policy file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("no .env file found (using environment variables)")
	}

	cfg := Config{
		Env:         Get("APP_ENV", "development"),
		LogLevel:    Get("LOG_LEVEL", ""),
		Port:        Get("PORT", "8080"),
		DatabaseURL: Get("DATABASE_URL", ""),
		RedisURL:    Get("REDIS_URL", ""),
		ORSAPIKey:   Get("ORS_API_KEY", ""),
		PolicyPath:  Get("POLICY_PATH", ""),
	}

	policy, err := LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := overrideDuration(&policy.SessionTTL, "SESSION_TTL"); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := overrideDuration(&policy.OpTimeout, "OP_TIMEOUT"); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := ValidatePolicy(policy); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.Policy = policy

	return cfg, nil
}

// LoadPolicy reads a YAML planner policy layered over domain.DefaultPolicy.
// An empty path yields the defaults.
func LoadPolicy(path string) (domain.PlanningPolicy, error) {
	policy := domain.DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("load policy: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &policy); err != nil {
		return policy, fmt.Errorf("load policy: parse %q: %w", path, err)
	}

	if err := ValidatePolicy(policy); err != nil {
		return policy, fmt.Errorf("load policy %q: %w", path, err)
	}

	return policy, nil
}

var validate = validator.New()

func ValidatePolicy(p domain.PlanningPolicy) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid planner policy: %w", err)
	}
	for pace, n := range p.VisitsPerDay {
		if n < 0 {
			return fmt.Errorf("invalid planner policy: visits_per_day[%s] = %d", pace, n)
		}
	}
	return nil
}

func overrideDuration(dst *time.Duration, key string) error {
	raw := Get(key, "")
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the digest run needs. It is built once at process
// start and handed to each component constructor; nothing reads the
// environment after Load returns.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Finnhub   FinnhubConfig   `yaml:"finnhub"`
	Email     EmailConfig     `yaml:"email"`

	Symbols          []string `yaml:"symbols"`
	DigestHourUTC    int      `yaml:"digest_hour_utc"`
	Language         string   `yaml:"language"`
	LookbackDays     int      `yaml:"lookback_days"`
	EnablePrediction bool     `yaml:"enable_prediction"`
}

type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type FinnhubConfig struct {
	APIKey string `yaml:"api_key"`
}

type EmailConfig struct {
	SMTPHost   string   `yaml:"smtp_host"`
	SMTPPort   int      `yaml:"smtp_port"`
	Sender     string   `yaml:"sender"`
	Password   string   `yaml:"password"`
	Recipients []string `yaml:"recipients"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// splitList turns a comma-separated env value into trimmed, non-empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fromEnv overlays environment variables onto cfg. Credentials always come
// from the environment when set, so a checked-in config file never needs to
// carry secrets.
func fromEnv(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		cfg.Anthropic.BaseURL = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Finnhub.APIKey = v
	}
	if v := os.Getenv("GMAIL_USER"); v != "" {
		cfg.Email.Sender = v
	}
	if v := os.Getenv("GMAIL_APP_PASSWORD"); v != "" {
		cfg.Email.Password = v
	}
	if v := os.Getenv("RECIPIENT_EMAILS"); v != "" {
		cfg.Email.Recipients = splitList(v)
	}
	if v := os.Getenv("STOCK_SYMBOLS"); v != "" {
		cfg.Symbols = splitList(v)
	}
	if v := os.Getenv("DIGEST_HOUR_UTC"); v != "" {
		if hour, err := strconv.Atoi(v); err == nil {
			cfg.DigestHourUTC = hour
		}
	}
	if v := os.Getenv("REPORT_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("NEWS_LOOKBACK_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.LookbackDays = days
		}
	}
	if v := os.Getenv("ENABLE_PREDICTION"); v != "" {
		cfg.EnablePrediction = strings.EqualFold(v, "true")
	}
}

func setDefaults(cfg *Config) {
	if cfg.Anthropic.BaseURL == "" {
		cfg.Anthropic.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Email.SMTPHost == "" {
		cfg.Email.SMTPHost = "smtp.gmail.com"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 465
	}
	if cfg.DigestHourUTC == 0 {
		cfg.DigestHourUTC = 23
	}
	if cfg.Language == "" {
		cfg.Language = "zh"
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = 1
	}
}

func validate(cfg *Config) error {
	var missing []string
	if cfg.Anthropic.APIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if cfg.Finnhub.APIKey == "" {
		missing = append(missing, "FINNHUB_API_KEY")
	}
	if cfg.Email.Sender == "" {
		missing = append(missing, "GMAIL_USER")
	}
	if cfg.Email.Password == "" {
		missing = append(missing, "GMAIL_APP_PASSWORD")
	}
	if len(cfg.Email.Recipients) == 0 {
		missing = append(missing, "RECIPIENT_EMAILS")
	}
	if len(cfg.Symbols) == 0 {
		missing = append(missing, "STOCK_SYMBOLS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	if cfg.Language != "zh" && cfg.Language != "en" {
		return fmt.Errorf("config: unsupported language %q (supported: zh, en)", cfg.Language)
	}
	if cfg.DigestHourUTC < 0 || cfg.DigestHourUTC > 23 {
		return fmt.Errorf("config: digest_hour_utc must be 0-23, got %d", cfg.DigestHourUTC)
	}
	return nil
}

// Load builds the configuration: .env file (if present), optional YAML file
// with ${VAR} expansion, environment overlay, defaults, validation. Symbols
// are normalized to upper case.
func Load(path string) (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{EnablePrediction: true}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	fromEnv(&cfg)
	setDefaults(&cfg)

	for i, s := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

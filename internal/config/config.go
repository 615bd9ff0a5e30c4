package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"codebot/internal/domain"

	"github.com/joho/godotenv"
)

// Config is the root configuration for CodeBot. It is built once at startup
// and only read afterwards.
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Completion CompletionConfig `json:"completion"`
	Retry      RetryConfig      `json:"retry"`
	Relay      RelayConfig      `json:"relay"`
	Health     HealthConfig     `json:"health"`
	Log        LogConfig        `json:"log"`
	Prompt     PromptConfig     `json:"prompt"`
}

type TelegramConfig struct {
	Token           string   `json:"token"`
	TriggerKeywords []string `json:"triggerKeywords"`
	ParseMode       string   `json:"parseMode"`   // Markdown | MarkdownV2 | HTML
	PollTimeout     int      `json:"pollTimeout"` // long-poll seconds
}

type CompletionConfig struct {
	APIKey         string  `json:"apiKey"`
	APIBase        string  `json:"apiBase"`
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"maxTokens"`
	TimeoutSeconds int     `json:"timeoutSeconds"`
}

type RetryConfig struct {
	MaxAttempts      int `json:"maxAttempts"`
	BaseDelaySeconds int `json:"baseDelaySeconds"`
}

type RelayConfig struct {
	FreshnessWindowSeconds int `json:"freshnessWindowSeconds"` // 0 disables the staleness check
	Concurrency            int `json:"concurrency"`
	BusBuffer              int `json:"busBuffer"`
	PublishTimeoutSeconds  int `json:"publishTimeoutSeconds"` // how long a full queue may stall polling
}

type HealthConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type LogConfig struct {
	Level string `json:"level"`
}

type PromptConfig struct {
	ProfileFile string `json:"profileFile,omitempty"` // optional YAML mode profile
}

// BaseDelay returns the retry backoff unit.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelaySeconds) * time.Second
}

// FreshnessWindow returns the maximum accepted message age.
func (r RelayConfig) FreshnessWindow() time.Duration {
	return time.Duration(r.FreshnessWindowSeconds) * time.Second
}

// PublishTimeout bounds how long the poller waits on a full inbound queue.
func (r RelayConfig) PublishTimeout() time.Duration {
	return time.Duration(r.PublishTimeoutSeconds) * time.Second
}

// Timeout returns the per-request HTTP timeout for the completion service.
func (c CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

const DefaultConfigFile = "codebot.json"

// Load builds the configuration: defaults, then the JSON file at path (skipped
// when path is empty), then a .env file if present, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		path = ExpandPath(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
		data = []byte(ExpandEnvVars(string(data)))
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	// .env is optional; hosted deployments inject real environment variables.
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets the process environment override file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Completion.APIKey = v
	}
	if v := os.Getenv("CODEBOT_MODEL"); v != "" {
		cfg.Completion.Model = v
	}
	if v := os.Getenv("CODEBOT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CODEBOT_HEALTH_ADDR"); v != "" {
		cfg.Health.Addr = v
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Health.Addr = ":" + port
	}

	// A placeholder that survived expansion means the variable was never set.
	cfg.Telegram.Token = dropPlaceholder(cfg.Telegram.Token)
	cfg.Completion.APIKey = dropPlaceholder(cfg.Completion.APIKey)
}

func dropPlaceholder(s string) string {
	if envVarPattern.MatchString(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// Save writes cfg as indented JSON, creating the parent directory.
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks credentials first, then value ranges. Missing credentials
// wrap domain.ErrConfigurationMissing.
func Validate(cfg *Config) error {
	var missing []string
	if cfg.Telegram.Token == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}
	if cfg.Completion.APIKey == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", domain.ErrConfigurationMissing, strings.Join(missing, " and "))
	}

	var errs []string
	if cfg.Completion.Model == "" {
		errs = append(errs, "completion.model is required")
	}
	if cfg.Completion.APIBase == "" {
		errs = append(errs, "completion.apiBase is required")
	}
	if cfg.Completion.Temperature < 0 || cfg.Completion.Temperature > 2 {
		errs = append(errs, "completion.temperature must be between 0 and 2")
	}
	if cfg.Completion.MaxTokens < 1 {
		errs = append(errs, "completion.maxTokens must be >= 1")
	}
	if cfg.Completion.TimeoutSeconds < 1 {
		errs = append(errs, "completion.timeoutSeconds must be >= 1")
	}
	if cfg.Retry.MaxAttempts < 1 || cfg.Retry.MaxAttempts > 10 {
		errs = append(errs, "retry.maxAttempts must be between 1 and 10")
	}
	if cfg.Retry.BaseDelaySeconds < 1 {
		errs = append(errs, "retry.baseDelaySeconds must be >= 1")
	}
	if cfg.Relay.FreshnessWindowSeconds < 0 {
		errs = append(errs, "relay.freshnessWindowSeconds must be >= 0")
	}
	if cfg.Relay.BusBuffer < 1 {
		errs = append(errs, "relay.busBuffer must be >= 1")
	}
	if cfg.Relay.PublishTimeoutSeconds < 1 {
		errs = append(errs, "relay.publishTimeoutSeconds must be >= 1")
	}
	if cfg.Relay.Concurrency < 1 || cfg.Relay.Concurrency > 100 {
		errs = append(errs, "relay.concurrency must be between 1 and 100")
	}
	if cfg.Telegram.PollTimeout < 0 {
		errs = append(errs, "telegram.pollTimeout must be >= 0")
	}
	switch cfg.Telegram.ParseMode {
	case "Markdown", "MarkdownV2", "HTML":
	default:
		errs = append(errs, "telegram.parseMode must be one of: Markdown, MarkdownV2, HTML")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log.level must be one of: debug, info, warn, error")
	}
	if cfg.Health.Enabled {
		if _, port, err := net.SplitHostPort(cfg.Health.Addr); err != nil {
			errs = append(errs, "health.addr must be host:port")
		} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
			errs = append(errs, "health.addr port must be between 0 and 65535")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

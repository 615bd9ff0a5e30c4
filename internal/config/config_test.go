package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codebot/internal/domain"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.Telegram.Token = "123456:telegram-test-token"
	cfg.Completion.APIKey = "gsk_test_key_0123456789"
	return cfg
}

// clearEnv blanks every variable Load consults so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_TOKEN", "GROQ_API_KEY", "CODEBOT_MODEL", "CODEBOT_LOG_LEVEL", "CODEBOT_HEALTH_ADDR", "PORT"} {
		t.Setenv(k, "")
	}
}

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := Defaults()
	err := Validate(cfg)
	if !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "TELEGRAM_TOKEN") || !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Fatalf("error should name both variables: %v", err)
	}
}

func TestValidate_MissingOnlyAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Completion.APIKey = ""
	err := Validate(cfg)
	if !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
	if strings.Contains(err.Error(), "TELEGRAM_TOKEN") {
		t.Fatalf("token is present and should not be reported: %v", err)
	}
}

func TestValidate_MaxAttempts_Boundary(t *testing.T) {
	cfg := validConfig()

	cfg.Retry.MaxAttempts = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxAttempts=0")
	}

	cfg.Retry.MaxAttempts = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("maxAttempts=1 should be valid: %v", err)
	}

	cfg.Retry.MaxAttempts = 11
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxAttempts=11")
	}
}

func TestValidate_BaseDelayMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.Retry.BaseDelaySeconds = 0
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "baseDelaySeconds") {
		t.Fatalf("expected baseDelaySeconds error, got %v", err)
	}
}

func TestValidate_InvalidParseMode(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.ParseMode = "BBCode"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown parse mode")
	}
}

func TestValidate_InvalidHealthAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Health.Addr = "8080"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for addr without colon")
	}

	cfg.Health.Addr = ":70000"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}

	cfg.Health.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled health server should skip addr check: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Completion.MaxTokens = 0
	cfg.Relay.Concurrency = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "maxTokens") || !strings.Contains(err.Error(), "concurrency") {
		t.Fatalf("expected both problems listed, got: %v", err)
	}
}

// --- Load / Save ---

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "tg-from-env")
	t.Setenv("GROQ_API_KEY", "groq-from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "tg-from-env" || cfg.Completion.APIKey != "groq-from-env" {
		t.Fatalf("env credentials not applied: %+v", Sanitize(cfg))
	}
	if cfg.Completion.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", cfg.Completion.Model)
	}
}

func TestLoad_MissingCredentialsIsConfigurationMissing(t *testing.T) {
	clearEnv(t)
	_, err := Load("")
	if !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestLoad_TemplateRoundTrip(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "tg-template")
	t.Setenv("GROQ_API_KEY", "groq-template")

	path := filepath.Join(t.TempDir(), "codebot.json")
	tmpl := Template()
	tmpl.Retry.MaxAttempts = 5
	if err := Save(path, tmpl); err != nil {
		t.Fatalf("save: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "tg-template" {
		t.Fatalf("expected placeholder expanded, got %q", cfg.Telegram.Token)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Fatalf("expected maxAttempts=5, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoad_UnexpandedPlaceholderCountsAsMissing(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "codebot.json")
	if err := Save(path, Template()); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := Load(path)
	if !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "codebot.json")
	cfg := validConfig()
	cfg.Completion.Model = "file-model"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("CODEBOT_MODEL", "env-model")
	t.Setenv("PORT", "9999")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Completion.Model != "env-model" {
		t.Fatalf("expected env-model, got %q", loaded.Completion.Model)
	}
	if loaded.Health.Addr != ":9999" {
		t.Fatalf("expected PORT to set health addr, got %q", loaded.Health.Addr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/codebot.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// --- Env expansion ---

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CODEBOT_TEST_VAR", "value")
	got := ExpandEnvVars(`{"a":"${CODEBOT_TEST_VAR}","b":"${CODEBOT_UNSET_VAR:-fallback}","c":"${CODEBOT_UNSET_VAR}"}`)
	want := `{"a":"value","b":"fallback","c":"${CODEBOT_UNSET_VAR}"}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

// --- Accessors ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	s := Sanitize(cfg)
	if s.Telegram.Token == cfg.Telegram.Token || s.Completion.APIKey == cfg.Completion.APIKey {
		t.Fatal("secrets should be masked")
	}
	if !strings.Contains(s.Completion.APIKey, "****") {
		t.Fatalf("expected masked key, got %q", s.Completion.APIKey)
	}
	if cfg.Telegram.Token != "123456:telegram-test-token" {
		t.Fatal("Sanitize must not mutate the original")
	}
}

func TestGetByPath(t *testing.T) {
	cfg := validConfig()
	v, err := GetByPath(cfg, "retry.maxAttempts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.(float64) != 3 {
		t.Fatalf("expected 3, got %v", v)
	}
	kw, err := GetByPath(cfg, "telegram.triggerKeywords.0")
	if err != nil || kw != "codebot" {
		t.Fatalf("expected codebot, got %v (%v)", kw, err)
	}
	if _, err := GetByPath(cfg, "retry.nope"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestListPaths(t *testing.T) {
	paths := ListPaths(validConfig())
	if _, ok := paths["relay.freshnessWindowSeconds"]; !ok {
		t.Fatal("expected relay.freshnessWindowSeconds in listing")
	}
}

func TestDurations(t *testing.T) {
	cfg := Defaults()
	if cfg.Retry.BaseDelay() != 5*time.Second {
		t.Fatalf("expected 5s base delay, got %v", cfg.Retry.BaseDelay())
	}
	if cfg.Relay.FreshnessWindow() != 120*time.Second {
		t.Fatalf("expected 120s window, got %v", cfg.Relay.FreshnessWindow())
	}
	if cfg.Relay.PublishTimeout() != 10*time.Second {
		t.Fatalf("expected 10s publish timeout, got %v", cfg.Relay.PublishTimeout())
	}
}

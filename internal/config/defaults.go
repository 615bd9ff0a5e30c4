package config

const (
	DefaultAPIBase = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// Defaults returns a config with every tunable set. Credentials stay empty and
// must come from the file or the environment.
func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			TriggerKeywords: []string{"codebot"},
			ParseMode:       "Markdown",
			PollTimeout:     30,
		},
		Completion: CompletionConfig{
			APIBase:        DefaultAPIBase,
			Model:          DefaultModel,
			Temperature:    0.6,
			MaxTokens:      2048,
			TimeoutSeconds: 120,
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			BaseDelaySeconds: 5,
		},
		Relay: RelayConfig{
			FreshnessWindowSeconds: 120,
			Concurrency:            8,
			BusBuffer:              100,
			PublishTimeoutSeconds:  10,
		},
		Health: HealthConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Template is what `codebot config init` writes: defaults with credentials
// pointing at environment variables.
func Template() *Config {
	cfg := Defaults()
	cfg.Telegram.Token = "${TELEGRAM_TOKEN}"
	cfg.Completion.APIKey = "${GROQ_API_KEY}"
	return cfg
}

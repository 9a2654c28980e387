package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	oneOf := func(path, value string, valid []string) {
		if value != "" && !slices.Contains(valid, value) {
			add(path, "must be one of %v, got %q", valid, value)
		}
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		add("server.port", "port must be 0-65535, got %d", cfg.Server.Port)
	}
	oneOf("server.bind", cfg.Server.Bind, []string{"loopback", "lan", "custom"})
	if cfg.Server.Bind == "custom" && cfg.Server.CustomBindHost == "" {
		add("server.customBindHost", "required when bind is custom")
	}

	e := cfg.Engagement
	if e.MaxTurns < 1 {
		add("engagement.maxTurns", "must be at least 1, got %d", e.MaxTurns)
	}
	if e.MinTurns < 0 || e.MinTurns > e.MaxTurns {
		add("engagement.minTurns", "must be between 0 and maxTurns (%d), got %d", e.MaxTurns, e.MinTurns)
	}
	if e.HighValueCategories < 1 || e.HighValueCategories > 4 {
		add("engagement.highValueCategories", "must be 1-4, got %d", e.HighValueCategories)
	}
	if e.SaturationThreshold < 1 {
		add("engagement.saturationThreshold", "must be at least 1, got %d", e.SaturationThreshold)
	}
	if e.HistoryMode != HistoryLoadOnce {
		add("engagement.historyMode", "only %q is supported, got %q", HistoryLoadOnce, e.HistoryMode)
	}

	if cfg.Governor.RequestsPerMinute < 0 {
		add("governor.requestsPerMinute", "must not be negative, got %d", cfg.Governor.RequestsPerMinute)
	}
	if cfg.Governor.MinIntervalMs < 0 {
		add("governor.minIntervalMs", "must not be negative, got %d", cfg.Governor.MinIntervalMs)
	}

	g := cfg.Generator
	validProviders := []string{"openai", "claude", "ollama", "mock"}
	oneOf("generator.provider", g.Provider, validProviders)
	for i, fb := range g.Fallbacks {
		oneOf(fmt.Sprintf("generator.fallbacks[%d]", i), fb, validProviders)
	}
	if (g.Provider == "openai" || g.Provider == "claude") && g.APIKey == "" {
		add("generator.apiKey", "required for provider %q", g.Provider)
	}
	if g.Provider != "mock" && g.Model == "" {
		add("generator.model", "required for provider %q", g.Provider)
	}
	if g.Temperature != nil && (*g.Temperature < 0 || *g.Temperature > 2) {
		add("generator.temperature", "must be 0-2, got %v", *g.Temperature)
	}

	if cfg.Callback.Retries < 0 {
		add("callback.retries", "must not be negative, got %d", cfg.Callback.Retries)
	}
	if cfg.Events.NATSURL != "" && cfg.Events.Subject == "" {
		add("events.subject", "required when natsUrl is set")
	}

	oneOf("archive.driver", cfg.Archive.Driver, []string{"sqlite", "postgres", "none"})
	if cfg.Archive.Driver == "postgres" && cfg.Archive.DSN == "" {
		add("archive.dsn", "required for postgres")
	}

	oneOf("logging.level", cfg.Logging.Level, []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"})
	oneOf("logging.consoleStyle", cfg.Logging.ConsoleStyle, []string{"pretty", "json"})

	return issues
}

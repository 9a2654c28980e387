package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields resolves ${ENV_VAR} references in credential and
// connection fields.
func expandSensitiveFields(cfg *Config) {
	cfg.Server.APIKey = expandEnvVars(cfg.Server.APIKey)
	cfg.Generator.APIKey = expandEnvVars(cfg.Generator.APIKey)
	cfg.Callback.URL = expandEnvVars(cfg.Callback.URL)
	cfg.Callback.APIKey = expandEnvVars(cfg.Callback.APIKey)
	cfg.Events.NATSURL = expandEnvVars(cfg.Events.NATSURL)
	cfg.Events.NATSToken = expandEnvVars(cfg.Events.NATSToken)
	cfg.Archive.DSN = expandEnvVars(cfg.Archive.DSN)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	expandSensitiveFields(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file, creating its
// directory if needed.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields left empty by a partial file.
func applyDefaults(cfg *Config) {
	d := Defaults()

	setInt := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	setStr := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}

	setInt(&cfg.Server.Port, d.Server.Port)
	setStr(&cfg.Server.Bind, d.Server.Bind)

	setInt(&cfg.Engagement.MaxTurns, d.Engagement.MaxTurns)
	setInt(&cfg.Engagement.MinTurns, d.Engagement.MinTurns)
	setInt(&cfg.Engagement.HighValueCategories, d.Engagement.HighValueCategories)
	setInt(&cfg.Engagement.SaturationThreshold, d.Engagement.SaturationThreshold)
	setInt(&cfg.Engagement.ReplyTimeoutSeconds, d.Engagement.ReplyTimeoutSeconds)
	setStr(&cfg.Engagement.HistoryMode, d.Engagement.HistoryMode)

	setInt(&cfg.Governor.RequestsPerMinute, d.Governor.RequestsPerMinute)
	setInt(&cfg.Governor.MinIntervalMs, d.Governor.MinIntervalMs)
	setInt(&cfg.Governor.SafetyMarginMs, d.Governor.SafetyMarginMs)

	setStr(&cfg.Generator.Provider, d.Generator.Provider)
	setInt(&cfg.Generator.MaxTokens, d.Generator.MaxTokens)
	if cfg.Generator.Temperature == nil {
		cfg.Generator.Temperature = d.Generator.Temperature
	}

	setStr(&cfg.Persona.Name, d.Persona.Name)
	setInt(&cfg.Persona.Age, d.Persona.Age)
	setStr(&cfg.Persona.Occupation, d.Persona.Occupation)
	if len(cfg.Persona.Traits) == 0 {
		cfg.Persona.Traits = d.Persona.Traits
	}

	setInt(&cfg.Callback.TimeoutSeconds, d.Callback.TimeoutSeconds)
	setStr(&cfg.Events.Subject, d.Events.Subject)
	setStr(&cfg.Archive.Driver, d.Archive.Driver)

	setStr(&cfg.Logging.Level, d.Logging.Level)
	setStr(&cfg.Logging.ConsoleStyle, d.Logging.ConsoleStyle)
}

// applyEnvOverrides reads HONEYPOT_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envStr := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	envInt("HONEYPOT_PORT", &cfg.Server.Port)
	envStr("HONEYPOT_BIND", &cfg.Server.Bind)
	envStr("HONEYPOT_API_KEY", &cfg.Server.APIKey)
	envInt("HONEYPOT_MAX_TURNS", &cfg.Engagement.MaxTurns)
	envInt("HONEYPOT_RPM", &cfg.Governor.RequestsPerMinute)
	envStr("HONEYPOT_GENERATOR_PROVIDER", &cfg.Generator.Provider)
	envStr("HONEYPOT_GENERATOR_API_KEY", &cfg.Generator.APIKey)
	envStr("HONEYPOT_GENERATOR_MODEL", &cfg.Generator.Model)
	envStr("HONEYPOT_CALLBACK_URL", &cfg.Callback.URL)
	envStr("HONEYPOT_NATS_URL", &cfg.Events.NATSURL)
	envStr("HONEYPOT_ARCHIVE_DSN", &cfg.Archive.DSN)
	if v := os.Getenv("HONEYPOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

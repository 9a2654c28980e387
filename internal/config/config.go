package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// HistoryLoadOnce seeds a session from an upstream transcript only on
// first contact.
const HistoryLoadOnce = "load-once"

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	temp := 0.78
	return Config{
		Server: ServerConfig{
			Port: 8080,
			Bind: "loopback",
		},
		Engagement: EngagementConfig{
			MaxTurns:            8,
			MinTurns:            6,
			HighValueCategories: 3,
			SaturationThreshold: 4,
			ReplyTimeoutSeconds: 20,
			HistoryMode:         HistoryLoadOnce,
		},
		Governor: GovernorConfig{
			RequestsPerMinute: 30,
			MinIntervalMs:     2000,
			SafetyMarginMs:    100,
		},
		Generator: GeneratorConfig{
			Provider:    "openai",
			Endpoint:    "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			MaxTokens:   65,
			Temperature: &temp,
		},
		Persona: PersonaConfig{
			Name:       "Rajesh Kumar",
			Age:        47,
			Occupation: "retired school teacher",
			Traits:     []string{"polite", "slightly confused by technology", "cautious with money"},
		},
		Callback: CallbackConfig{
			TimeoutSeconds: 10,
			Retries:        3,
		},
		Events: EventsConfig{
			Subject: "honeypot.engagement.ended",
		},
		Archive: ArchiveConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

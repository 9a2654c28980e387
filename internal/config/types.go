package config

// Config is the root configuration for the honeypot service.
type Config struct {
	Server     ServerConfig     `yaml:"server,omitempty"`
	Engagement EngagementConfig `yaml:"engagement,omitempty"`
	Governor   GovernorConfig   `yaml:"governor,omitempty"`
	Generator  GeneratorConfig  `yaml:"generator,omitempty"`
	Persona    PersonaConfig    `yaml:"persona,omitempty"`
	Callback   CallbackConfig   `yaml:"callback,omitempty"`
	Events     EventsConfig     `yaml:"events,omitempty"`
	Archive    ArchiveConfig    `yaml:"archive,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	APIKey         string   `yaml:"apiKey,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// EngagementConfig holds the exit thresholds and per-turn limits.
type EngagementConfig struct {
	MaxTurns            int    `yaml:"maxTurns,omitempty"`
	MinTurns            int    `yaml:"minTurns,omitempty"`
	HighValueCategories int    `yaml:"highValueCategories,omitempty"`
	SaturationThreshold int    `yaml:"saturationThreshold,omitempty"`
	ReplyTimeoutSeconds int    `yaml:"replyTimeoutSeconds,omitempty"`
	HistoryMode         string `yaml:"historyMode,omitempty"` // "load-once"
}

// GovernorConfig paces calls to the generation provider.
type GovernorConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute,omitempty"`
	MinIntervalMs     int `yaml:"minIntervalMs,omitempty"`
	SafetyMarginMs    int `yaml:"safetyMarginMs,omitempty"`
}

// GeneratorConfig selects the reply generation provider.
type GeneratorConfig struct {
	Provider    string   `yaml:"provider,omitempty"` // "openai" | "claude" | "ollama" | "mock"
	APIKey      string   `yaml:"apiKey,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	Endpoint    string   `yaml:"endpoint,omitempty"`
	Fallbacks   []string `yaml:"fallbacks,omitempty"`
	MaxTokens   int      `yaml:"maxTokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// PersonaConfig describes the decoy persona.
type PersonaConfig struct {
	Name       string   `yaml:"name,omitempty"`
	Age        int      `yaml:"age,omitempty"`
	Occupation string   `yaml:"occupation,omitempty"`
	Traits     []string `yaml:"traits,omitempty"`
}

// CallbackConfig configures the partner callback sink.
type CallbackConfig struct {
	URL            string `yaml:"url,omitempty"`
	APIKey         string `yaml:"apiKey,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
	Retries        int    `yaml:"retries,omitempty"`
}

// EventsConfig configures the NATS report sink.
type EventsConfig struct {
	NATSURL   string `yaml:"natsUrl,omitempty"`
	NATSToken string `yaml:"natsToken,omitempty"`
	Subject   string `yaml:"subject,omitempty"`
}

// ArchiveConfig selects the engagement archive backend.
type ArchiveConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" | "postgres" | "none"
	DSN    string `yaml:"dsn,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
	File         string `yaml:"file,omitempty"`
}

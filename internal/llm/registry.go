package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/logging"
)

// ProviderError is returned when a provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code when known
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry maps provider names to clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	log     *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered generation provider")
}

// Resolve returns the client registered under name.
func (r *Registry) Resolve(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no generation provider %q", name)
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig registers the primary provider and every fallback.
// Fallback providers share the primary's credentials and endpoint only when
// they are the same kind; otherwise they use their built-in defaults.
func NewRegistryFromConfig(cfg config.GeneratorConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)
	for _, name := range append([]string{cfg.Provider}, cfg.Fallbacks...) {
		if _, err := reg.Resolve(name); err == nil {
			continue
		}
		client, err := newProvider(name, cfg)
		if err != nil {
			return nil, err
		}
		reg.Register(name, client)
	}
	return reg, nil
}

func newProvider(name string, cfg config.GeneratorConfig) (Client, error) {
	primary := name == cfg.Provider
	endpoint, key, model := "", "", cfg.Model
	if primary {
		endpoint, key = cfg.Endpoint, cfg.APIKey
	}

	switch name {
	case "openai":
		return NewOpenAIClient(endpoint, key, model), nil
	case "claude":
		return NewClaudeAPIClient(endpoint, key, model), nil
	case "ollama":
		return NewOllamaAPIClient(endpoint, model), nil
	case "mock":
		return NewCannedClient(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", name)
	}
}

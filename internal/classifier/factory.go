package classifier

import (
	"fmt"

	"sheetlens/internal/config"
	"sheetlens/internal/port"
)

// ProviderFactory is a function that creates a ModelClient from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.ModelClient, error)

// registry of provider factories, populated by init() in each provider
// package or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewClient creates a ModelClient from a provider config using the
// registered factory.
func NewClient(cfg *config.ProviderConfig) (port.ModelClient, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown model provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// BuildChain assembles the fallback client from the configured primary,
// secondary and tertiary providers. Secondary and tertiary are optional.
func BuildChain(cfg *config.ClassifierConfig) (port.ModelClient, error) {
	return buildChain(cfg, "")
}

// BuildChainWithKey is BuildChain with every provider's API key replaced by
// the given key, for callers that supply a key per request.
func BuildChainWithKey(cfg *config.ClassifierConfig, apiKey string) (port.ModelClient, error) {
	return buildChain(cfg, apiKey)
}

func buildChain(cfg *config.ClassifierConfig, keyOverride string) (port.ModelClient, error) {
	var clients []port.ModelClient
	var names []string

	for _, pc := range []*config.ProviderConfig{cfg.PrimaryConfig(), cfg.SecondaryConfig(), cfg.TertiaryConfig()} {
		if pc == nil || pc.Provider == "" {
			continue
		}
		if keyOverride != "" {
			pcCopy := *pc
			pcCopy.APIKey = keyOverride
			pc = &pcCopy
		}
		client, err := NewClient(pc)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
		names = append(names, pc.Provider)
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("no model provider configured")
	}
	if len(clients) == 1 {
		return clients[0], nil
	}
	return NewFallbackClient(clients, names), nil
}

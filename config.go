package chatd

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configuration defaults. The model credential is deliberately absent:
// it must come from the environment and startup fails fast without it.
const (
	DefaultListenAddress = ":3000"
	DefaultDataFile      = "data/conversations.json"
	DefaultProvider      = "openai"
	DefaultTemperature   = 0.2
	DefaultTopP          = 1.0
	DefaultMaxToken      = 1000
)

// Config carries everything the binary needs to assemble the service.
type Config struct {
	ListenAddress   string
	DataFile        string
	Provider        string
	APIKey          string
	Model           string
	Temperature     float64
	TopP            float64
	MaxToken        int64
	WindowSize      int
	UpstreamTimeout time.Duration
	UpstreamRPS     float64
}

// LoadConfig reads configuration from the environment, applying
// defaults for everything except the provider credential.
//
// Recognized variables: CHATD_LISTEN_ADDRESS, CHATD_DATA_FILE,
// CHATD_PROVIDER (openai|anthropic), CHATD_MODEL, CHATD_TEMPERATURE,
// CHATD_TOP_P, CHATD_MAX_TOKEN, CHATD_WINDOW_SIZE, CHATD_UPSTREAM_TIMEOUT,
// CHATD_UPSTREAM_RPS, plus OPENAI_API_KEY or ANTHROPIC_API_KEY
// depending on the provider.
func LoadConfig() (Config, error) {
	config := Config{
		ListenAddress:   DefaultListenAddress,
		DataFile:        DefaultDataFile,
		Provider:        DefaultProvider,
		Temperature:     DefaultTemperature,
		TopP:            DefaultTopP,
		MaxToken:        DefaultMaxToken,
		WindowSize:      DefaultWindowSize,
		UpstreamTimeout: DefaultUpstreamTimeout,
	}

	if v := os.Getenv("CHATD_LISTEN_ADDRESS"); v != "" {
		config.ListenAddress = v
	}
	if v := os.Getenv("CHATD_DATA_FILE"); v != "" {
		config.DataFile = v
	}
	if v := os.Getenv("CHATD_PROVIDER"); v != "" {
		config.Provider = v
	}
	if v := os.Getenv("CHATD_MODEL"); v != "" {
		config.Model = v
	}

	if v := os.Getenv("CHATD_TEMPERATURE"); v != "" {
		temperature, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHATD_TEMPERATURE %q: %w", v, err)
		}
		config.Temperature = temperature
	}
	if v := os.Getenv("CHATD_TOP_P"); v != "" {
		topP, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHATD_TOP_P %q: %w", v, err)
		}
		config.TopP = topP
	}
	if v := os.Getenv("CHATD_MAX_TOKEN"); v != "" {
		maxToken, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHATD_MAX_TOKEN %q: %w", v, err)
		}
		config.MaxToken = maxToken
	}
	if v := os.Getenv("CHATD_WINDOW_SIZE"); v != "" {
		windowSize, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHATD_WINDOW_SIZE %q: %w", v, err)
		}
		config.WindowSize = windowSize
	}
	if v := os.Getenv("CHATD_UPSTREAM_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHATD_UPSTREAM_TIMEOUT %q: %w", v, err)
		}
		config.UpstreamTimeout = timeout
	}
	if v := os.Getenv("CHATD_UPSTREAM_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHATD_UPSTREAM_RPS %q: %w", v, err)
		}
		config.UpstreamRPS = rps
	}

	switch config.Provider {
	case "openai":
		config.APIKey = os.Getenv("OPENAI_API_KEY")
		if config.APIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY not set")
		}
	case "anthropic":
		config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if config.APIKey == "" {
			return Config{}, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	default:
		return Config{}, fmt.Errorf("unknown provider %q", config.Provider)
	}

	return config, nil
}

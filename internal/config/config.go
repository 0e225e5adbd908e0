// Package config loads intake configuration from a JSON file backend with
// INTAKE_* environment overrides. Provider API keys are secrets and are read
// from the environment only, never from the config file.
package config

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Generator GeneratorConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StorageConfig struct {
	DataDir string
	// RedisURL enables the Redis cache tier when set (host:port). Empty means
	// the in-process cache is used instead.
	RedisURL string
	CacheTTL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type GeneratorConfig struct {
	Timeout     string
	Temperature float64
	MaxTokens   int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Storage: StorageConfig{
			DataDir:  defaultDataDir(),
			CacheTTL: "1h",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Generator: GeneratorConfig{
			Timeout:     "30s",
			Temperature: 0.7,
			MaxTokens:   150,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/intake/config.json, then applies INTAKE_* environment
// overrides.
//
// A missing provider API key is not an error: the question generator chain
// degrades to its deterministic fallback.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

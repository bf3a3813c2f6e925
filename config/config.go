package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config structure
type Config struct {
	LLMProvider    string  `json:"llmProvider"` // "OpenAI", "OpenAI-Compatible" or "Anthropic"
	APIKey         string  `json:"apiKey"`
	BaseURL        string  `json:"baseUrl"`
	ModelName      string  `json:"modelName"`
	Temperature    float64 `json:"temperature"`
	MaxIterations  int     `json:"maxIterations"`  // planner/operation cycles allowed per turn
	TimeoutSeconds int     `json:"timeoutSeconds"` // per planner request
	MaxUploadMB    int     `json:"maxUploadMb"`
	ArtifactDir    string  `json:"artifactDir"` // where chart PNGs are written
	ListenAddr     string  `json:"listenAddr"`
	LogDir         string  `json:"logDir,omitempty"`

	Proxy *ProxyConfig `json:"proxy,omitempty"` // outbound proxy for model requests
}

// ProxyConfig describes an optional HTTP/SOCKS proxy for reaching the model
// endpoint from restricted networks.
type ProxyConfig struct {
	Enabled  bool   `json:"enabled"`
	Protocol string `json:"protocol"` // "http", "https" or "socks5"; defaults to "http"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		LLMProvider:    "OpenAI-Compatible",
		BaseURL:        "https://openrouter.ai/api/v1",
		ModelName:      "openai/gpt-4o-mini",
		Temperature:    0.0,
		MaxIterations:  10,
		TimeoutSeconds: 60,
		MaxUploadMB:    50,
		ArtifactDir:    os.TempDir(),
		ListenAddr:     ":8080",
	}
}

// Load reads a JSON config file and fills unset fields with defaults.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %v", err)
			}
		} else {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %v", err)
			}
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// applyDefaults restores defaults for fields the config file left empty.
func (c *Config) applyDefaults() {
	def := Default()
	if c.LLMProvider == "" {
		c.LLMProvider = def.LLMProvider
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.ModelName == "" {
		c.ModelName = def.ModelName
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = def.MaxUploadMB
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = def.ArtifactDir
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
}

// applyEnv lets the environment supply the credential, so the key never has
// to live in a file. DATACHAT_API_KEY wins over OPENAI_API_KEY.
func (c *Config) applyEnv() {
	if v := os.Getenv("DATACHAT_API_KEY"); v != "" {
		c.APIKey = v
	} else if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "OpenAI", "OpenAI-Compatible", "Anthropic":
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLMProvider)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("maxIterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature out of range: %v", c.Temperature)
	}
	return nil
}

// Save writes the config to a JSON file with restrictive permissions,
// since it may contain the API key.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	return nil
}

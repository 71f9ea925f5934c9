package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/markis/smooth/internal/chunk"
)

const (
	configDirName = "smooth"
	defaultConfig = ".config"
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
}

// Provider names accepted in the configuration.
const (
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderGeminiSDK = "gemini-sdk"
	ProviderOpenAI    = "openai"
	ProviderCopilot   = "copilot"
)

var knownProviders = []string{ProviderOllama, ProviderGemini, ProviderGeminiSDK, ProviderOpenAI, ProviderCopilot}

// DefaultInstructions is the system prompt sent with every chunk.
const DefaultInstructions = "You are a professional novel editor. The following text is a machine translation " +
	"of a Chinese web novel. Fix all grammar errors, awkward phrasing, and unnatural English. Make it read " +
	"smoothly and naturally. Preserve all character names, plot events, and content exactly as they are. " +
	"Do not summarize, skip, or add anything. Return only the corrected text."

// Config represents the structure of the configuration file used by the application.
type Config struct {
	Provider     string            `yaml:"provider" default:"ollama"`
	Model        string            `yaml:"model"`
	MaxChunkSize int               `yaml:"max_chunk_size" default:"8000"`
	Concurrency  int               `yaml:"concurrency" default:"3"`
	Instructions string            `yaml:"instructions"`
	Timeout      time.Duration     `yaml:"timeout" default:"10m"`
	Render       Render            `yaml:"render"`
	Source       Source            `yaml:"source"`
	Providers    Providers         `yaml:"providers"`
	Prompts      map[string]Prompt `yaml:"prompts"`
}

// Prompt is a named instruction preset, exposed as a sub-command.
type Prompt struct {
	Prompt   string `yaml:"prompt"`
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`
}

type Render struct {
	Format string `yaml:"format" default:"markdown"`
	Wrap   int    `yaml:"wrap" default:"120"`
	Theme  string `yaml:"theme"`
}

type Source struct {
	CorsProxy string `yaml:"cors_proxy"`
}

type Providers struct {
	Ollama Endpoint `yaml:"ollama"`
	Gemini Endpoint `yaml:"gemini"`
	OpenAI Endpoint `yaml:"openai"`
}

// Endpoint locates one remote rewrite service.
type Endpoint struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// SetDefaults fills values that do not fit in a struct tag.
func (c *Config) SetDefaults() {
	if c.Instructions == "" {
		c.Instructions = DefaultInstructions
	}
	if c.Prompts == nil {
		c.Prompts = map[string]Prompt{}
	}
	if c.Providers.Ollama.URL == "" {
		c.Providers.Ollama.URL = "http://localhost:11434"
	}
	if c.Providers.Gemini.URL == "" {
		c.Providers.Gemini.URL = "https://generativelanguage.googleapis.com"
	}
	if c.Providers.OpenAI.URL == "" {
		c.Providers.OpenAI.URL = "https://api.openai.com"
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max_chunk_size must be positive, got %d", chunk.ErrInvalidArgument, c.MaxChunkSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive, got %d", chunk.ErrInvalidArgument, c.Concurrency)
	}
	if !slices.Contains(knownProviders, c.Provider) {
		return fmt.Errorf("%w: unknown provider %q", chunk.ErrInvalidArgument, c.Provider)
	}
	return nil
}

// configResult is a struct used to return the configuration and any error that occurs during loading.
type configResult struct {
	config *Config
	err    error
}

// NewDefaultConfig returns the configuration used when no file exists.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// getConfigPath retrieves the path to the configuration directory based on the XDG_CONFIG_HOME environment variable.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}

	return filepath.Join(configHome, configDirName), nil
}

// tryLoadConfig attempts to load a configuration file from the specified path.
func tryLoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads the configuration from the user's config directory, with a timeout,
// then applies environment overrides.
func LoadConfig(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := make(chan configResult, 1)

	go func() {
		cfg, err := loadConfigFiles(ctx)
		result <- configResult{config: cfg, err: err}
	}()

	var cfg *Config
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-result:
		if r.err != nil {
			return nil, r.err
		}
		cfg = r.config
	}

	applyEnv(cfg)
	return cfg, nil
}

// loadConfigFiles loads configuration files from the user's home directory.
func loadConfigFiles(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error before loading config: %w", err)
	}

	configDir, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Return default config early if directory doesn't exist
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return NewDefaultConfig(), nil
	}

	for _, filename := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := tryLoadConfig(filepath.Join(configDir, filename))
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	return NewDefaultConfig(), nil
}

// applyEnv reads secrets from the environment, loading a local .env file first.
// Variables already set in the environment win over the file.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Providers.Ollama.URL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Providers.Gemini.APIKey == "" {
		cfg.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Providers.OpenAI.APIKey == "" {
		cfg.Providers.OpenAI.APIKey = v
	}
}

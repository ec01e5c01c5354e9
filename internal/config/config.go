package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Wiki struct {
		BaseURL   string `yaml:"base_url"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"wiki"`
	AI struct {
		APIKey        string `yaml:"api_key"`
		ModelName     string `yaml:"model_name"`
		MaxCandidates int    `yaml:"max_candidates"`
		MaxRetries    int    `yaml:"max_retries"`
	} `yaml:"ai"`
	Cloudinary struct {
		CloudName string `yaml:"cloud_name"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"cloudinary"`
	Delivery struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		Secret  string `yaml:"secret"`
	} `yaml:"delivery"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Dashboard struct {
		Port string `yaml:"port"`
	} `yaml:"dashboard"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Wiki.BaseURL == "" {
		config.Wiki.BaseURL = "https://en.wikipedia.org/api/rest_v1"
	}

	if config.Wiki.UserAgent == "" {
		config.Wiki.UserAgent = "HistoryApp/2.0 (admin@historyapp.com)"
	}

	if config.AI.ModelName == "" {
		config.AI.ModelName = "llama-3.3-70b-versatile"
	}

	if config.AI.MaxCandidates == 0 {
		config.AI.MaxCandidates = 50
	}

	if config.AI.MaxRetries == 0 {
		config.AI.MaxRetries = 3
	}

	if config.Dashboard.Port == "" {
		config.Dashboard.Port = "8003"
	}

	// Expand environment variables in secrets
	config.AI.APIKey = os.ExpandEnv(config.AI.APIKey)
	config.Cloudinary.APIKey = os.ExpandEnv(config.Cloudinary.APIKey)
	config.Cloudinary.APISecret = os.ExpandEnv(config.Cloudinary.APISecret)
	config.Delivery.Secret = os.ExpandEnv(config.Delivery.Secret)
	config.Database.URL = os.ExpandEnv(config.Database.URL)

	return config, nil
}

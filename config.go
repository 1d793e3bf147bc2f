package skillquiz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the webserver's deployment settings. Secrets can be left
// out of the file and supplied through the environment instead.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Generator struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"generator"`
	Session struct {
		Secret string `yaml:"secret"`
	} `yaml:"session"`
}

// LoadConfig reads the yaml config at filename, falling back to defaults when
// filename is empty, then applies environment overrides (PORT,
// GENERATOR_API_KEY, SESSION_SECRET).
func LoadConfig(filename string) (*Config, error) {
	config := &Config{}

	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
	if key := os.Getenv("GENERATOR_API_KEY"); key != "" {
		config.Generator.APIKey = key
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		config.Session.Secret = secret
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8180"
	}
	if config.Database.Path == "" {
		config.Database.Path = "./skillquiz.db"
	}
	if config.Generator.BaseURL == "" {
		config.Generator.BaseURL = "http://localhost:8181"
	}

	return config, nil
}

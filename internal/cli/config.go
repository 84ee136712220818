package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"staybook/internal/adapters/marketplace"
)

const defaultBaseURL = "http://localhost:8000/api"

// CLIConfig holds CLI configuration persisted to disk. BaseURL serves every
// upstream whose own URL is unset.
type CLIConfig struct {
	BaseURL           string `yaml:"base_url,omitempty"`
	UsersAPI          string `yaml:"users_api,omitempty"`
	PropertiesAPI     string `yaml:"properties_api,omitempty"`
	BookingsAPI       string `yaml:"bookings_api,omitempty"`
	VendorsAPI        string `yaml:"vendors_api,omitempty"`
	VendorServicesAPI string `yaml:"vendor_services_api,omitempty"`
	RPS               int    `yaml:"rps,omitempty"`
	Email             string `yaml:"email,omitempty"`
}

// configPath returns the --config flag or ~/.config/staybook/config.yaml.
func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "staybook", "config.yaml"), nil
}

// credentialsPath keeps the token file next to the config file.
func credentialsPath() (string, error) {
	p, err := configPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(p), "credentials.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// endpoints resolves upstream URLs: STAYBOOK_API_URL, then per-service
// config, then base_url, then the local default.
func (c CLIConfig) endpoints() marketplace.Endpoints {
	base := c.BaseURL
	if v := os.Getenv("STAYBOOK_API_URL"); v != "" {
		base = v
		c.UsersAPI, c.PropertiesAPI, c.BookingsAPI, c.VendorsAPI, c.VendorServicesAPI = "", "", "", "", ""
	}
	if base == "" {
		base = defaultBaseURL
	}
	pick := func(v string) string {
		if v != "" {
			return strings.TrimRight(v, "/")
		}
		return strings.TrimRight(base, "/")
	}
	rps := c.RPS
	if rps <= 0 {
		rps = 5
	}
	return marketplace.Endpoints{
		Users:          pick(c.UsersAPI),
		Properties:     pick(c.PropertiesAPI),
		Bookings:       pick(c.BookingsAPI),
		Vendors:        pick(c.VendorsAPI),
		VendorServices: pick(c.VendorServicesAPI),
		RPS:            rps,
	}
}

package ingest

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/portal.yaml
var portalYAML embed.FS

// PortalConfig describes the grants portal endpoints and fetch behavior.
type PortalConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIPath        string `yaml:"api_path"`
	ListingPath    string `yaml:"listing_path"`
	DetailPath     string `yaml:"detail_path"` // printf pattern, e.g. "/grants/%s/instruction"
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
}

type portalFile struct {
	Portal PortalConfig `yaml:"portal"`
}

// DefaultPortalConfig mirrors the embedded portal.yaml so callers that
// cannot load it still get working endpoints and a bounded timeout.
func DefaultPortalConfig() PortalConfig {
	return PortalConfig{
		BaseURL:        "https://oursggrants.gov.sg",
		APIPath:        "/api/grants",
		ListingPath:    "/grants",
		DetailPath:     "/grants/%s/instruction",
		TimeoutSeconds: 15,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	}
}

// LoadPortalConfig reads the embedded portal.yaml. PORTAL_BASE_URL
// overrides the base URL for local development against a stub portal.
func LoadPortalConfig() (PortalConfig, error) {
	data, err := portalYAML.ReadFile("config/portal.yaml")
	if err != nil {
		return PortalConfig{}, fmt.Errorf("failed to read embedded portal config: %w", err)
	}

	var file portalFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return PortalConfig{}, fmt.Errorf("failed to parse portal config: %w", err)
	}

	cfg := file.Portal
	if override := os.Getenv("PORTAL_BASE_URL"); override != "" {
		cfg.BaseURL = override
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 15
	}

	return cfg, nil
}

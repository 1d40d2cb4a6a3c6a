package ingest

import (
	"strings"
	"testing"
)

func TestLoadPortalConfig_Embedded(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", "")

	cfg, err := LoadPortalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL == "" || cfg.APIPath == "" {
		t.Fatalf("incomplete config: %+v", cfg)
	}
	if cfg.TimeoutSeconds <= 0 {
		t.Errorf("timeout must be positive, got %d", cfg.TimeoutSeconds)
	}
	if !strings.Contains(cfg.DetailPath, "%s") {
		t.Errorf("detail path needs an ID placeholder: %q", cfg.DetailPath)
	}
}

func TestLoadPortalConfig_BaseURLOverride(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", "http://localhost:9999")

	cfg, err := LoadPortalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9999" {
		t.Errorf("override not applied, got %q", cfg.BaseURL)
	}
}

func TestDefaultPortalConfig_MatchesEmbedded(t *testing.T) {
	t.Setenv("PORTAL_BASE_URL", "")

	loaded, err := LoadPortalConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def := DefaultPortalConfig(); def != loaded {
		t.Errorf("defaults drifted from portal.yaml:\n got %+v\nwant %+v", def, loaded)
	}
}

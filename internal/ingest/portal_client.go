package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// PortalClient fetches grant metadata from the grants portal. The primary
// path is a JSON API; any failure there (transport, non-2xx, malformed
// body) falls back to scraping the HTML listing page.
type PortalClient struct {
	Config  PortalConfig
	Client  *http.Client
	Scraper *ListingScraper
}

func NewPortalClient(cfg PortalConfig) *PortalClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &PortalClient{
		Config:  cfg,
		Client:  &http.Client{Timeout: timeout},
		Scraper: NewListingScraper(cfg),
	}
}

// apiGrantRecord matches the portal's JSON schema for a single grant.
type apiGrantRecord struct {
	ID          string `json:"id"`
	Name        string `json:"grantName"`
	Description string `json:"description"`
	Agency      struct {
		Name    string `json:"name"`
		Code    string `json:"code"`
		Website string `json:"website"`
	} `json:"agency"`
	ClosingDate    string `json:"closingDate"`
	FundingAmount  string `json:"fundingAmount"`
	Duration       string `json:"duration"`
	ApplicationURL string `json:"applicationUrl"`
	DetailURL      string `json:"detailUrl"`
	StatusColour   string `json:"statusColour"` // traffic light: green / amber / red
	Active         bool   `json:"active"`
	Enabled        bool   `json:"enabled"`
}

type apiGrantsResponse struct {
	Grants []json.RawMessage `json:"grants"`
}

// FetchGrants returns the portal's current grant records. Both paths are
// best-effort: a malformed item is skipped and logged, never fatal.
func (c *PortalClient) FetchGrants(ctx context.Context) ([]PortalRecord, error) {
	records, err := c.fetchViaAPI(ctx)
	if err == nil {
		return records, nil
	}
	log.Printf("[portal] API fetch failed, falling back to scraping: %v", err)

	return c.Scraper.ScrapeListing(ctx)
}

func (c *PortalClient) fetchViaAPI(ctx context.Context) ([]PortalRecord, error) {
	url := c.Config.BaseURL + c.Config.APIPath
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.Config.UserAgent)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp apiGrantsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var records []PortalRecord
	for i, raw := range apiResp.Grants {
		var item apiGrantRecord
		if err := json.Unmarshal(raw, &item); err != nil {
			log.Printf("[portal] Skipping malformed API item %d: %v", i, err)
			continue
		}
		if !item.Active || !item.Enabled {
			continue
		}
		if strings.TrimSpace(item.Name) == "" {
			log.Printf("[portal] Skipping API item %d: missing grant name", i)
			continue
		}

		rec := PortalRecord{
			Source:         SourceAPI,
			ExternalID:     item.ID,
			Title:          cleanText(item.Name),
			Description:    item.Description,
			AgencyName:     cleanText(item.Agency.Name),
			AgencyCode:     strings.ToUpper(strings.TrimSpace(item.Agency.Code)),
			AgencyWebsite:  item.Agency.Website,
			DurationYears:  cleanText(item.Duration),
			Status:         mapTrafficLight(item.StatusColour),
			ApplicationURL: absoluteURL(c.Config.BaseURL, item.ApplicationURL),
			SourceURL:      absoluteURL(c.Config.BaseURL, item.DetailURL),
		}

		if t, ok := ParseClosingDate(item.ClosingDate); ok {
			rec.ClosingDate = &t
		}
		rec.FundingMin, rec.FundingMax = ParseFundingRange(item.FundingAmount)

		records = append(records, rec)
	}

	return records, nil
}

// mapTrafficLight converts the portal's traffic-light status code into a
// grant status. Unknown colours default to open.
func mapTrafficLight(colour string) string {
	switch strings.ToLower(strings.TrimSpace(colour)) {
	case "green":
		return "open"
	case "red":
		return "closed"
	default:
		return "open"
	}
}

package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testPortalConfig(baseURL string) PortalConfig {
	return PortalConfig{
		BaseURL:        baseURL,
		APIPath:        "/api/grants",
		ListingPath:    "/grants",
		DetailPath:     "/grants/%s/instruction",
		TimeoutSeconds: 5,
		UserAgent:      "grant-match-test",
	}
}

func TestFetchGrants_APIHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/grants" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"grants": [
			{
				"id": "CCF-001",
				"grantName": "Community Care Fund",
				"description": "Care programs for seniors",
				"agency": {"name": "Agency for Integrated Care", "code": "aic"},
				"closingDate": "15 Mar 2025",
				"fundingAmount": "$80,000 - $150,000",
				"duration": "2-3 years",
				"applicationUrl": "/apply/ccf-001",
				"statusColour": "green",
				"active": true,
				"enabled": true
			},
			{
				"id": "OLD-001",
				"grantName": "Retired Scheme",
				"agency": {"name": "Old Agency"},
				"statusColour": "red",
				"active": false,
				"enabled": true
			},
			{
				"id": "HID-001",
				"grantName": "Hidden Scheme",
				"agency": {"name": "Old Agency"},
				"active": true,
				"enabled": false
			}
		]}`))
	}))
	defer srv.Close()

	client := NewPortalClient(testPortalConfig(srv.URL))
	records, err := client.FetchGrants(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record after active/enabled filter, got %d", len(records))
	}

	rec := records[0]
	if rec.Source != SourceAPI {
		t.Errorf("expected API source, got %s", rec.Source)
	}
	if rec.ExternalID != "CCF-001" {
		t.Errorf("unexpected external ID: %s", rec.ExternalID)
	}
	if rec.AgencyCode != "AIC" {
		t.Errorf("agency code should be uppercased, got %q", rec.AgencyCode)
	}
	if rec.Status != "open" {
		t.Errorf("green should map to open, got %s", rec.Status)
	}
	if rec.ClosingDate == nil {
		t.Error("closing date should be parsed")
	}
	if rec.FundingMin == nil || *rec.FundingMin != 80 {
		t.Errorf("funding min should be 80 thousand, got %v", rec.FundingMin)
	}
	if rec.FundingMax == nil || *rec.FundingMax != 150 {
		t.Errorf("funding max should be 150 thousand, got %v", rec.FundingMax)
	}
	if rec.ApplicationURL != srv.URL+"/apply/ccf-001" {
		t.Errorf("application URL not absolutized: %s", rec.ApplicationURL)
	}
}

func TestFetchGrants_SkipsMalformedItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"grants": [
			{"grantName": 42, "active": true, "enabled": true},
			{"id": "G-1", "grantName": "", "active": true, "enabled": true},
			{"id": "G-2", "grantName": "Valid Grant", "agency": {"name": "HPB"}, "active": true, "enabled": true}
		]}`))
	}))
	defer srv.Close()

	client := NewPortalClient(testPortalConfig(srv.URL))
	records, err := client.FetchGrants(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected only the valid record, got %d", len(records))
	}
	if records[0].Title != "Valid Grant" {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestFetchGrants_FallsBackToScraping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/grants" {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path == "/grants" {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>
				<div class="grant-card">
					<h3 class="grant-title">Silver Generation Fund</h3>
					<span class="agency-name">Ministry of Social and Family Development</span>
					<p class="description">Active aging initiatives.</p>
					<span class="closing-date">30 April 2025</span>
					<span class="funding-amount">$50,000 - $100,000</span>
					<a href="/grants/sgf">Details</a>
				</div>
				<div class="grant-card">
					<p class="description">A container without a title is discarded.</p>
				</div>
			</body></html>`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewPortalClient(testPortalConfig(srv.URL))
	records, err := client.FetchGrants(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 scraped record, got %d", len(records))
	}

	rec := records[0]
	if rec.Source != SourceScrape {
		t.Errorf("expected scrape source, got %s", rec.Source)
	}
	if rec.Title != "Silver Generation Fund" {
		t.Errorf("unexpected title: %q", rec.Title)
	}
	if rec.AgencyName != "Ministry of Social and Family Development" {
		t.Errorf("unexpected agency: %q", rec.AgencyName)
	}
	if rec.ClosingDate == nil {
		t.Error("closing date should be parsed from listing")
	}
	if rec.FundingMin == nil || *rec.FundingMin != 50 {
		t.Errorf("funding min should be 50 thousand, got %v", rec.FundingMin)
	}
	if rec.SourceURL != srv.URL+"/grants/sgf" {
		t.Errorf("detail link not absolutized: %s", rec.SourceURL)
	}
}

func TestMapTrafficLight(t *testing.T) {
	tests := []struct {
		colour string
		want   string
	}{
		{"green", "open"},
		{"GREEN", "open"},
		{"red", "closed"},
		{"amber", "open"},
		{"", "open"},
	}
	for _, tt := range tests {
		if got := mapTrafficLight(tt.colour); got != tt.want {
			t.Errorf("mapTrafficLight(%q) = %q, want %q", tt.colour, got, tt.want)
		}
	}
}

package ingest

import (
	"context"
	"io"
	"time"
)

// RecordSource tags which ingestion path produced a record.
type RecordSource string

const (
	SourceAPI    RecordSource = "api"
	SourceScrape RecordSource = "scrape"
	SourceSample RecordSource = "sample"
)

// PortalRecord is a normalized grant record from the portal, validated
// before it reaches the sync orchestrator.
type PortalRecord struct {
	Source         RecordSource
	ExternalID     string
	Title          string
	Description    string
	AgencyName     string
	AgencyCode     string
	AgencyWebsite  string
	ClosingDate    *time.Time
	FundingMin     *float64 // thousands of currency units
	FundingMax     *float64
	DurationYears  string
	Status         string // open, closed, upcoming; empty means derive from closing date
	ApplicationURL string
	SourceURL      string
}

// GrantDetail holds the named sections extracted from a grant's
// instruction page. Any section may be empty.
type GrantDetail struct {
	About             string     `json:"about"`
	Eligibility       string     `json:"eligibility"`
	Timeline          string     `json:"timeline"`
	FundingDetail     string     `json:"funding_detail"`
	HowToApply        string     `json:"how_to_apply"`
	RequiredDocuments []string   `json:"required_documents"`
	ClosingDate       *time.Time `json:"closing_date,omitempty"`
	SourceURL         string     `json:"source_url"`
}

// FetchedDocument is the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// GrantFetcher produces portal records, however sourced.
type GrantFetcher interface {
	FetchGrants(ctx context.Context) ([]PortalRecord, error)
}

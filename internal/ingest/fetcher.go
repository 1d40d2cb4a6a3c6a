package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPFetcher is the default Fetcher. It carries the portal's timeout and
// User-Agent from config so every fetch through it behaves the same.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

func NewHTTPFetcher(cfg PortalConfig) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		UserAgent: cfg.UserAgent,
	}
}

// Fetch retrieves url and returns the open response. The caller owns
// Body and must close it. Any non-200 status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*FetchedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return &FetchedDocument{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
		FetchedAt:   time.Now(),
	}, nil
}

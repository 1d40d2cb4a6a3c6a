package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Class-attribute heuristics for locating grant fields in undocumented
// portal markup. The listing page has no stable schema.
var (
	containerClassRegex = regexp.MustCompile(`(?i)grant|card|item`)
	titleClassRegex     = regexp.MustCompile(`(?i)title|name`)
	descClassRegex      = regexp.MustCompile(`(?i)description|summary`)
	agencyClassRegex    = regexp.MustCompile(`(?i)agency|organi[sz]ation`)
	dateClassRegex      = regexp.MustCompile(`(?i)date|deadline|closing`)
	fundingClassRegex   = regexp.MustCompile(`(?i)funding|amount|budget`)
)

// ListingScraper is the fallback ingestion path: it crawls the portal's
// HTML listing page and extracts grant-like container elements
// positionally.
type ListingScraper struct {
	Config PortalConfig
}

func NewListingScraper(cfg PortalConfig) *ListingScraper {
	return &ListingScraper{Config: cfg}
}

// ScrapeListing fetches the listing page and parses every grant-like
// container it can find. Items without a title are discarded; individual
// parse failures never abort the batch.
func (s *ListingScraper) ScrapeListing(ctx context.Context) ([]PortalRecord, error) {
	listingURL := strings.TrimSuffix(s.Config.BaseURL, "/") + s.Config.ListingPath
	parsed, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL: %w", err)
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(s.Config.UserAgent),
		colly.DetectCharset(),
	)
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       500 * time.Millisecond,
	})
	timeout := time.Duration(s.Config.TimeoutSeconds) * time.Second
	collector.SetRequestTimeout(timeout)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []PortalRecord
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		items, err := s.parseListingHTML(r.Body)
		if err != nil {
			fetchErr = err
			return
		}
		records = append(records, items...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("listing fetch failed: %w", err)
	})

	if err := collector.Visit(listingURL); err != nil {
		return nil, fmt.Errorf("listing visit failed: %w", err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}

	return records, nil
}

// parseListingHTML extracts grant records from raw listing markup.
func (s *ListingScraper) parseListingHTML(body []byte) ([]PortalRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("listing parse failed: %w", err)
	}

	var records []PortalRecord
	seen := make(map[string]bool)

	doc.Find("div, article").Each(func(i int, item *goquery.Selection) {
		class, _ := item.Attr("class")
		if !containerClassRegex.MatchString(class) {
			return
		}

		rec, ok := s.parseGrantItem(item)
		if !ok {
			return
		}

		key := strings.ToLower(rec.Title) + "|" + rec.SourceURL
		if seen[key] {
			// Nested containers both match the class heuristics; keep the first.
			return
		}
		seen[key] = true
		records = append(records, rec)
	})

	log.Printf("[portal] Scraped %d grant items from listing page", len(records))
	return records, nil
}

// parseGrantItem extracts one record from a grant-like container. Returns
// ok=false when no title can be located.
func (s *ListingScraper) parseGrantItem(item *goquery.Selection) (PortalRecord, bool) {
	title := firstTextByClass(item, "h2, h3, a", titleClassRegex)
	if title == "" {
		return PortalRecord{}, false
	}

	rec := PortalRecord{
		Source:      SourceScrape,
		Title:       title,
		Description: firstTextByClass(item, "p, div", descClassRegex),
		AgencyName:  firstTextByClass(item, "span, div", agencyClassRegex),
	}
	if rec.AgencyName == "" {
		rec.AgencyName = "Unknown"
	}

	if dateText := firstTextByClass(item, "span, div", dateClassRegex); dateText != "" {
		if t, ok := ParseClosingDate(dateText); ok {
			rec.ClosingDate = &t
		}
	}

	fundingText := firstTextByClass(item, "span, div", fundingClassRegex)
	rec.FundingMin, rec.FundingMax = ParseFundingRange(fundingText)

	if href, ok := item.Find("a[href]").First().Attr("href"); ok {
		link := absoluteURL(s.Config.BaseURL, href)
		rec.ApplicationURL = link
		rec.SourceURL = link
	}

	return rec, true
}

// firstTextByClass returns the trimmed text of the first element within sel
// matching the tag list whose class attribute matches the heuristic regex.
func firstTextByClass(sel *goquery.Selection, tags string, classRegex *regexp.Regexp) string {
	var out string
	sel.Find(tags).EachWithBreak(func(i int, el *goquery.Selection) bool {
		class, _ := el.Attr("class")
		if classRegex.MatchString(class) {
			out = cleanText(el.Text())
			return false
		}
		return true
	})
	return out
}

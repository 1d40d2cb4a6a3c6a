package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	rpdf "rsc.io/pdf"
)

// maxPDFBytes caps guideline PDF downloads. Some portals link 100MB+
// annual report PDFs next to the grant instructions.
const maxPDFBytes = 20 << 20

var detailSectionHints = map[string][]string{
	"about":       {"about", "overview", "objective", "purpose"},
	"eligibility": {"eligibility", "who can apply", "eligible"},
	"timeline":    {"timeline", "key dates", "schedule", "application period"},
	"funding":     {"funding", "grant amount", "quantum", "support level"},
	"apply":       {"how to apply", "application process", "apply"},
	"documents":   {"required documents", "supporting documents", "checklist"},
}

var pdfDateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+20\d{2}\b`),
	regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/20\d{2}\b`),
}

var pdfDeadlineHints = []string{"closing date", "deadline", "applications close", "submit by", "closes on"}

// DetailFetcher pulls a grant's instruction page from the portal and
// extracts its named sections. Fetching goes through the Fetcher
// interface so tests can substitute canned documents.
type DetailFetcher struct {
	Config  PortalConfig
	Fetcher Fetcher
}

func NewDetailFetcher(cfg PortalConfig) *DetailFetcher {
	return &DetailFetcher{
		Config:  cfg,
		Fetcher: NewHTTPFetcher(cfg),
	}
}

// FetchGrantDetail retrieves and parses the instruction page for the grant
// identified by externalID. Missing sections are left empty; only a failed
// fetch or unparseable page is an error.
func (f *DetailFetcher) FetchGrantDetail(ctx context.Context, externalID string) (*GrantDetail, error) {
	detailURL := strings.TrimSuffix(f.Config.BaseURL, "/") + fmt.Sprintf(f.Config.DetailPath, externalID)

	fetched, err := f.Fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return nil, fmt.Errorf("detail fetch failed: %w", err)
	}
	defer fetched.Body.Close()

	doc, err := goquery.NewDocumentFromReader(fetched.Body)
	if err != nil {
		return nil, fmt.Errorf("detail parse failed: %w", err)
	}

	detail := f.parseDetailDocument(doc)
	detail.SourceURL = detailURL

	if detail.ClosingDate == nil {
		if date := f.closingDateFromGuidelinePDF(ctx, doc); date != nil {
			detail.ClosingDate = date
		}
	}

	return detail, nil
}

func (f *DetailFetcher) parseDetailDocument(doc *goquery.Document) *GrantDetail {
	detail := &GrantDetail{}

	detail.About = extractSection(doc, detailSectionHints["about"])
	detail.Eligibility = extractSection(doc, detailSectionHints["eligibility"])
	detail.Timeline = extractSection(doc, detailSectionHints["timeline"])
	detail.FundingDetail = extractSection(doc, detailSectionHints["funding"])
	detail.HowToApply = extractSection(doc, detailSectionHints["apply"])
	detail.RequiredDocuments = extractListSection(doc, detailSectionHints["documents"])

	for _, text := range []string{detail.Timeline, detail.About} {
		if t, ok := findDateInText(text); ok {
			detail.ClosingDate = &t
			break
		}
	}

	return detail
}

// extractSection locates a heading whose text matches one of the hints and
// collects the text of following siblings until the next heading.
func extractSection(doc *goquery.Document, hints []string) string {
	heading := findHeading(doc, hints)
	if heading == nil {
		return ""
	}

	var parts []string
	heading.NextUntil("h1, h2, h3, h4").Each(func(i int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

// extractListSection behaves like extractSection but pulls individual list
// items, for checklist-style sections.
func extractListSection(doc *goquery.Document, hints []string) []string {
	heading := findHeading(doc, hints)
	if heading == nil {
		return nil
	}

	var items []string
	heading.NextUntil("h1, h2, h3, h4").Find("li").Each(func(i int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			items = append(items, text)
		}
	})
	if len(items) == 0 {
		// Some pages render the checklist as plain paragraphs.
		heading.NextUntil("h1, h2, h3, h4").Each(func(i int, s *goquery.Selection) {
			if text := cleanText(s.Text()); text != "" {
				items = append(items, text)
			}
		})
	}
	return items
}

func findHeading(doc *goquery.Document, hints []string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("h2, h3, h4, strong").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.ToLower(cleanText(s.Text()))
		for _, hint := range hints {
			if strings.Contains(text, hint) {
				found = s
				return false
			}
		}
		return true
	})
	return found
}

// findDateInText scans free text for something that parses as a closing
// date near a deadline hint.
func findDateInText(text string) (time.Time, bool) {
	lower := strings.ToLower(text)
	hasHint := false
	for _, hint := range pdfDeadlineHints {
		if strings.Contains(lower, hint) {
			hasHint = true
			break
		}
	}
	if !hasHint {
		return time.Time{}, false
	}

	for _, expr := range pdfDateRegexes {
		if token := expr.FindString(text); token != "" {
			if t, ok := ParseClosingDate(token); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// closingDateFromGuidelinePDF downloads the first linked guideline PDF and
// scans it for a closing date. Entirely best-effort; failures only log.
func (f *DetailFetcher) closingDateFromGuidelinePDF(ctx context.Context, doc *goquery.Document) *time.Time {
	var pdfURL string
	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.HasSuffix(strings.ToLower(href), ".pdf") {
			pdfURL = absoluteURL(f.Config.BaseURL, href)
			return false
		}
		return true
	})
	if pdfURL == "" {
		return nil
	}

	fetched, err := f.Fetcher.Fetch(ctx, pdfURL)
	if err != nil {
		log.Printf("[portal] guideline PDF fetch failed: %v", err)
		return nil
	}
	defer fetched.Body.Close()

	content, err := io.ReadAll(io.LimitReader(fetched.Body, maxPDFBytes))
	if err != nil {
		return nil
	}

	text, err := extractPDFText(content)
	if err != nil {
		log.Printf("[portal] guideline PDF parse failed: %v", err)
		return nil
	}

	if t, ok := findDateInText(text); ok {
		return &t
	}
	return nil
}

// extractPDFText pulls the text fragments out of a PDF. The parser panics
// on malformed files, so the panic is converted into an error here.
func extractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

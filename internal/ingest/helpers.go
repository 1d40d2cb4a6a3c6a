package ingest

import (
	"net/url"
	"strings"
	"unicode"
)

// cleanText collapses all runs of whitespace to single spaces and trims the
// result. Scraped text is full of newlines and tabs from markup indentation.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DeriveAcronym builds an agency acronym from its full name when the portal
// gives no code: first letter of up to the first three words, uppercased.
// Single short words fall back to the first three characters.
func DeriveAcronym(name string) string {
	name = cleanText(name)
	if name == "" {
		return ""
	}

	words := strings.Fields(name)
	if len(words) > 1 {
		var b strings.Builder
		for i, w := range words {
			if i >= 3 {
				break
			}
			r := []rune(w)
			b.WriteRune(unicode.ToUpper(r[0]))
		}
		return b.String()
	}

	r := []rune(words[0])
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

// TruncateText shortens long descriptions for list views, cutting at a word
// boundary where possible.
func TruncateText(s string, max int) string {
	s = cleanText(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// absoluteURL resolves href against the portal base URL. Already-absolute
// links pass through untouched.
func absoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

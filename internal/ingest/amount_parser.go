package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

var numberTokenRegex = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// ParseFundingRange extracts (min, max) funding bounds from free text,
// normalized to thousands of currency units. Values of 1000 or more are
// assumed to be written out in full and are divided by 1000; smaller values
// are taken as already being in thousands ("$50K - $100K" style).
// Returns (nil, nil) when no numeric token is present.
func ParseFundingRange(text string) (*float64, *float64) {
	textLower := strings.ToLower(text)

	tokens := extractAmounts(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	// "Up to $150,000" style: single upper bound.
	if strings.Contains(textLower, "up to") {
		max := scaleToThousands(tokens[0])
		return nil, &max
	}

	// Range: "$50,000 - $100,000" or "$50K to $100K".
	if strings.Contains(text, "-") || containsWordTo(textLower) {
		if len(tokens) >= 2 {
			min := scaleToThousands(tokens[0])
			max := scaleToThousands(tokens[1])
			// Mixed-magnitude ranges like "$500 - $1,500" scale only one
			// token and invert the pair. Rescale both from the raw values
			// so the bounds stay ordered.
			if min > max {
				min = tokens[0] / 1000
				max = tokens[1] / 1000
			}
			if min > max {
				return nil, nil
			}
			return &min, &max
		}
		// Range indicator but only one number: treat as exact.
		val := scaleToThousands(tokens[0])
		return &val, &val
	}

	// Single number with no qualifier: upper bound.
	max := scaleToThousands(tokens[0])
	return nil, &max
}

func extractAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range numberTokenRegex.FindAllString(text, -1) {
		clean := strings.ReplaceAll(m, ",", "")
		if val, err := strconv.ParseFloat(clean, 64); err == nil && val > 0 {
			amounts = append(amounts, val)
		}
	}
	return amounts
}

func scaleToThousands(v float64) float64 {
	if v >= 1000 {
		return v / 1000
	}
	return v
}

// containsWordTo matches "to" as a standalone word so that "up to" (handled
// earlier) and words like "sector" never register as range indicators.
func containsWordTo(textLower string) bool {
	fields := strings.Fields(textLower)
	for i, f := range fields {
		if strings.Trim(f, "$.,") == "to" && i > 0 && fields[i-1] != "up" {
			return true
		}
	}
	return false
}

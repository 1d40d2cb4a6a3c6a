package ingest

import "testing"

func TestParseFundingRange(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  *float64
		max  *float64
	}{
		{
			name: "Up to with full amount",
			text: "Up to $150,000",
			min:  nil,
			max:  floatPtr(150),
		},
		{
			name: "Up to already in thousands",
			text: "up to 80",
			min:  nil,
			max:  floatPtr(80),
		},
		{
			name: "Dash range with full amounts",
			text: "$50,000 - $100,000",
			min:  floatPtr(50),
			max:  floatPtr(100),
		},
		{
			name: "Dash range in thousands",
			text: "$50 - $100",
			min:  floatPtr(50),
			max:  floatPtr(100),
		},
		{
			name: "Word to range",
			text: "$80,000 to $150,000 per project",
			min:  floatPtr(80),
			max:  floatPtr(150),
		},
		{
			name: "Dash range with mixed magnitudes",
			text: "$500 - $1,500",
			min:  floatPtr(0.5),
			max:  floatPtr(1.5),
		},
		{
			name: "Reversed range yields no bounds",
			text: "$100,000 - $50,000",
			min:  nil,
			max:  nil,
		},
		{
			name: "Range indicator with single number",
			text: "- $60,000",
			min:  floatPtr(60),
			max:  floatPtr(60),
		},
		{
			name: "Bare single amount",
			text: "$120,000",
			min:  nil,
			max:  floatPtr(120),
		},
		{
			name: "Decimal amount",
			text: "Up to $2,500.50",
			min:  nil,
			max:  floatPtr(2.5005),
		},
		{
			name: "No numbers",
			text: "Funding varies by project",
			min:  nil,
			max:  nil,
		},
		{
			name: "Empty string",
			text: "",
			min:  nil,
			max:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := ParseFundingRange(tt.text)
			assertAmount(t, "min", min, tt.min)
			assertAmount(t, "max", max, tt.max)
		})
	}
}

func assertAmount(t *testing.T, label string, got, want *float64) {
	t.Helper()
	if (got == nil) != (want == nil) {
		t.Fatalf("%s: got %v, want %v", label, deref(got), deref(want))
	}
	if got != nil && *got != *want {
		t.Fatalf("%s: got %v, want %v", label, *got, *want)
	}
}

func deref(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

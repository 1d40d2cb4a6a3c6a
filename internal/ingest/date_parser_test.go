package ingest

import (
	"testing"
	"time"
)

func TestParseClosingDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{
			name: "Day month year",
			text: "15 Mar 2025",
			want: time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "Full month name",
			text: "30 April 2025",
			want: time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "ISO format",
			text: "2025-05-20",
			want: time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "Slash format day first",
			text: "20/5/2025",
			want: time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "Dash format day first",
			text: "20-5-2025",
			want: time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "Status phrase rejected",
			text: "Open for applications",
			ok:   false,
		},
		{
			name: "Status phrase with embedded date rejected",
			text: "Closed since 15 Mar 2025",
			ok:   false,
		},
		{
			name: "TBA rejected",
			text: "TBA",
			ok:   false,
		},
		{
			name: "Empty string",
			text: "",
			ok:   false,
		},
		{
			name: "Unparseable text",
			text: "sometime next year",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseClosingDate(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Fatalf("date: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetermineStatus(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		closing *time.Time
		want    string
	}{
		{
			name:    "No closing date stays open",
			closing: nil,
			want:    "open",
		},
		{
			name:    "Past date is closed",
			closing: datePtr(2025, time.February, 28),
			want:    "closed",
		},
		{
			name:    "Closing today is open",
			closing: datePtr(2025, time.March, 1),
			want:    "open",
		},
		{
			name:    "Within thirty days is open",
			closing: datePtr(2025, time.March, 20),
			want:    "open",
		},
		{
			name:    "Exactly thirty days out is open",
			closing: datePtr(2025, time.March, 31),
			want:    "open",
		},
		{
			name:    "Beyond thirty days is upcoming",
			closing: datePtr(2025, time.May, 1),
			want:    "upcoming",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineStatus(tt.closing, now); got != tt.want {
				t.Fatalf("expected status %s, got %s", tt.want, got)
			}
		})
	}
}

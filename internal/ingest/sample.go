package ingest

import (
	"context"
	"time"
)

// SampleFetcher serves a fixed set of grants for demos and local
// development, when the portal is unreachable.
type SampleFetcher struct{}

func (SampleFetcher) FetchGrants(ctx context.Context) ([]PortalRecord, error) {
	return SampleGrants(), nil
}

// SampleGrants returns the built-in demo dataset. Funding values are in
// thousands, matching what the normalizer produces for live records.
func SampleGrants() []PortalRecord {
	return []PortalRecord{
		{
			Source:        SourceSample,
			Title:         "Community Care Innovation Fund",
			AgencyName:    "Agency for Integrated Care",
			AgencyCode:    "AIC",
			Description:   "Supports innovative community care programs for seniors, including dementia care initiatives.",
			FundingMin:    floatPtr(80),
			FundingMax:    floatPtr(150),
			ClosingDate:   datePtr(2025, time.March, 15),
			DurationYears: "2-3 years",
			Status:        "open",
		},
		{
			Source:        SourceSample,
			Title:         "Silver Generation Fund",
			AgencyName:    "Ministry of Social and Family Development",
			AgencyCode:    "MSF",
			Description:   "Funding for active aging initiatives and programs that support senior well-being.",
			FundingMin:    floatPtr(50),
			FundingMax:    floatPtr(100),
			ClosingDate:   datePtr(2025, time.April, 30),
			DurationYears: "1-2 years",
			Status:        "open",
		},
		{
			Source:        SourceSample,
			Title:         "Mental Wellness Support Grant",
			AgencyName:    "Health Promotion Board",
			AgencyCode:    "HPB",
			Description:   "Grants for mental health services and preventive care programs.",
			FundingMin:    floatPtr(60),
			FundingMax:    floatPtr(120),
			ClosingDate:   datePtr(2025, time.May, 20),
			DurationYears: "2 years",
			Status:        "open",
		},
		{
			Source:        SourceSample,
			Title:         "Technology for Seniors Grant",
			AgencyName:    "Infocomm Media Development Authority",
			AgencyCode:    "IMDA",
			Description:   "Funding for technology solutions that improve the lives of seniors.",
			FundingMin:    floatPtr(40),
			FundingMax:    floatPtr(80),
			ClosingDate:   datePtr(2025, time.March, 31),
			DurationYears: "1-2 years",
			Status:        "open",
		},
	}
}

func floatPtr(v float64) *float64 { return &v }

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

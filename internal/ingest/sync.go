package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/david/grant-match/internal/db"
	"github.com/david/grant-match/internal/models"
)

// SyncStore is the slice of the persistence layer the syncer needs.
// *db.Store satisfies it; tests substitute an in-memory fake.
type SyncStore interface {
	GetAgencyByAcronym(ctx context.Context, acronym string) (*models.Agency, error)
	CreateAgency(ctx context.Context, name, acronym, website string) (*models.Agency, error)
	UpdateAgencyName(ctx context.Context, id uuid.UUID, name string) error
	GetGrantByExternalID(ctx context.Context, externalID string) (*models.Grant, error)
	GetGrantByTitleAgency(ctx context.Context, title string, agencyID uuid.UUID) (*models.Grant, error)
	CreateGrant(ctx context.Context, grant *models.Grant) error
	UpdateGrant(ctx context.Context, grant *models.Grant) error
}

// SyncStats summarizes one sync run.
type SyncStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// Syncer pulls records from a portal fetcher and reconciles them into the
// database. Running it twice against the same portal data is a no-op on
// the second run apart from refreshed field values.
type Syncer struct {
	Store   SyncStore
	Fetcher GrantFetcher

	// Force overwrites description and funding fields even when the
	// stored grant already has values. Normally those are fill-if-empty
	// so manual curation survives a sync.
	Force bool

	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewSyncer(store SyncStore, fetcher GrantFetcher) *Syncer {
	return &Syncer{
		Store:     store,
		Fetcher:   fetcher,
		sanitizer: bluemonday.UGCPolicy(),
		now:       time.Now,
	}
}

// Sync fetches from the portal and upserts every record.
func (s *Syncer) Sync(ctx context.Context) (SyncStats, error) {
	records, err := s.Fetcher.FetchGrants(ctx)
	if err != nil {
		return SyncStats{}, fmt.Errorf("portal fetch failed: %w", err)
	}
	return s.syncRecords(ctx, records)
}

// SyncSample loads the built-in demo dataset instead of hitting the portal.
func (s *Syncer) SyncSample(ctx context.Context) (SyncStats, error) {
	return s.syncRecords(ctx, SampleGrants())
}

func (s *Syncer) syncRecords(ctx context.Context, records []PortalRecord) (SyncStats, error) {
	stats := SyncStats{Total: len(records)}

	for _, rec := range records {
		if rec.Title == "" {
			stats.Total--
			continue
		}

		agency, err := s.resolveAgency(ctx, rec)
		if err != nil {
			return stats, fmt.Errorf("failed to resolve agency for %q: %w", rec.Title, err)
		}

		created, err := s.upsertGrant(ctx, rec, agency)
		if err != nil {
			return stats, fmt.Errorf("failed to upsert grant %q: %w", rec.Title, err)
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	log.Printf("[sync] done: %d created, %d updated, %d total", stats.Created, stats.Updated, stats.Total)
	return stats, nil
}

// resolveAgency finds or creates the agency for a record. The acronym is
// the stable key: the portal's code when present, otherwise derived from
// the name. An existing agency's name is refreshed in place so renames on
// the portal side never spawn duplicates.
func (s *Syncer) resolveAgency(ctx context.Context, rec PortalRecord) (*models.Agency, error) {
	name := cleanText(rec.AgencyName)
	if name == "" {
		name = "Unknown"
	}

	acronym := cleanText(rec.AgencyCode)
	if acronym == "" {
		acronym = DeriveAcronym(name)
	}

	agency, err := s.Store.GetAgencyByAcronym(ctx, acronym)
	if err == nil {
		if agency.Name != name && name != "Unknown" {
			if err := s.Store.UpdateAgencyName(ctx, agency.ID, name); err != nil {
				return nil, err
			}
			agency.Name = name
		}
		return agency, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	return s.Store.CreateAgency(ctx, name, acronym, rec.AgencyWebsite)
}

// upsertGrant creates or updates the grant for a record. External ID is
// the primary identity; records without one fall back to (title, agency).
func (s *Syncer) upsertGrant(ctx context.Context, rec PortalRecord, agency *models.Agency) (created bool, err error) {
	var grant *models.Grant
	if rec.ExternalID != "" {
		grant, err = s.Store.GetGrantByExternalID(ctx, rec.ExternalID)
	} else {
		grant, err = s.Store.GetGrantByTitleAgency(ctx, cleanText(rec.Title), agency.ID)
	}

	if errors.Is(err, db.ErrNotFound) {
		grant = &models.Grant{}
		s.applyRecord(grant, rec, agency, true)
		if err := s.Store.CreateGrant(ctx, grant); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	s.applyRecord(grant, rec, agency, s.Force)
	if err := s.Store.UpdateGrant(ctx, grant); err != nil {
		return false, err
	}
	return false, nil
}

// applyRecord copies record fields onto the grant. When overwrite is false,
// description and funding only fill in missing values.
func (s *Syncer) applyRecord(grant *models.Grant, rec PortalRecord, agency *models.Agency, overwrite bool) {
	grant.Title = cleanText(rec.Title)
	grant.AgencyID = agency.ID
	grant.AgencyName = agency.Name
	grant.AgencyAcronym = agency.Acronym

	desc := s.sanitizer.Sanitize(cleanText(rec.Description))
	if overwrite || grant.Description == "" {
		if desc != "" {
			grant.Description = desc
		}
	}
	if overwrite || grant.FundingMin == nil {
		if rec.FundingMin != nil {
			grant.FundingMin = rec.FundingMin
		}
	}
	if overwrite || grant.FundingMax == nil {
		if rec.FundingMax != nil {
			grant.FundingMax = rec.FundingMax
		}
	}
	if overwrite || grant.DurationYears == "" {
		if rec.DurationYears != "" {
			grant.DurationYears = rec.DurationYears
		}
	}

	if rec.ClosingDate != nil {
		grant.ClosingDate = rec.ClosingDate
	}
	if rec.ExternalID != "" {
		grant.ExternalID = rec.ExternalID
	}
	if rec.ApplicationURL != "" {
		grant.ApplicationURL = rec.ApplicationURL
	}
	if rec.SourceURL != "" {
		grant.SourceURL = rec.SourceURL
	}

	if rec.Status != "" {
		grant.Status = rec.Status
	} else {
		grant.Status = DetermineStatus(grant.ClosingDate, s.now())
	}
}

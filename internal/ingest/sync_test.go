package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/david/grant-match/internal/db"
	"github.com/david/grant-match/internal/models"
)

// fakeStore is an in-memory SyncStore for exercising the syncer without
// Postgres.
type fakeStore struct {
	agencies []*models.Agency
	grants   []*models.Grant
}

func (f *fakeStore) GetAgencyByAcronym(ctx context.Context, acronym string) (*models.Agency, error) {
	for _, a := range f.agencies {
		if a.Acronym == acronym {
			return a, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) CreateAgency(ctx context.Context, name, acronym, website string) (*models.Agency, error) {
	a := &models.Agency{ID: uuid.New(), Name: name, Acronym: acronym, Website: website}
	f.agencies = append(f.agencies, a)
	return a, nil
}

func (f *fakeStore) UpdateAgencyName(ctx context.Context, id uuid.UUID, name string) error {
	for _, a := range f.agencies {
		if a.ID == id {
			a.Name = name
			return nil
		}
	}
	return db.ErrNotFound
}

func (f *fakeStore) GetGrantByExternalID(ctx context.Context, externalID string) (*models.Grant, error) {
	for _, g := range f.grants {
		if g.ExternalID == externalID {
			return g, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) GetGrantByTitleAgency(ctx context.Context, title string, agencyID uuid.UUID) (*models.Grant, error) {
	for _, g := range f.grants {
		if g.Title == title && g.AgencyID == agencyID {
			return g, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) CreateGrant(ctx context.Context, grant *models.Grant) error {
	grant.ID = uuid.New()
	f.grants = append(f.grants, grant)
	return nil
}

func (f *fakeStore) UpdateGrant(ctx context.Context, grant *models.Grant) error {
	for i, g := range f.grants {
		if g.ID == grant.ID {
			f.grants[i] = grant
			return nil
		}
	}
	return db.ErrNotFound
}

func TestSyncSample_CreatesEverythingOnce(t *testing.T) {
	store := &fakeStore{}
	syncer := NewSyncer(store, SampleFetcher{})

	stats, err := syncer.SyncSample(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Created != 4 || stats.Updated != 0 || stats.Total != 4 {
		t.Fatalf("first run stats wrong: %+v", stats)
	}
	if len(store.agencies) != 4 {
		t.Fatalf("expected 4 agencies, got %d", len(store.agencies))
	}
	if len(store.grants) != 4 {
		t.Fatalf("expected 4 grants, got %d", len(store.grants))
	}

	// Second run must not create duplicates.
	stats, err = syncer.SyncSample(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Created != 0 || stats.Updated != 4 || stats.Total != 4 {
		t.Fatalf("second run stats wrong: %+v", stats)
	}
	if len(store.grants) != 4 {
		t.Fatalf("grant count changed on second run: %d", len(store.grants))
	}
	if len(store.agencies) != 4 {
		t.Fatalf("agency count changed on second run: %d", len(store.agencies))
	}
}

func TestSync_RefreshesAgencyNameWithoutDuplicate(t *testing.T) {
	store := &fakeStore{}
	store.CreateAgency(context.Background(), "Old Name", "AIC", "")

	syncer := NewSyncer(store, fetcherFunc(func(ctx context.Context) ([]PortalRecord, error) {
		return []PortalRecord{{
			Source:     SourceAPI,
			ExternalID: "CCF-001",
			Title:      "Community Care Innovation Fund",
			AgencyName: "Agency for Integrated Care",
			AgencyCode: "AIC",
		}}, nil
	}))

	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.agencies) != 1 {
		t.Fatalf("agency rename must not create a duplicate, got %d agencies", len(store.agencies))
	}
	if store.agencies[0].Name != "Agency for Integrated Care" {
		t.Errorf("agency name not refreshed: %q", store.agencies[0].Name)
	}
}

func TestSync_DerivesAcronymWhenNoCode(t *testing.T) {
	store := &fakeStore{}
	syncer := NewSyncer(store, fetcherFunc(func(ctx context.Context) ([]PortalRecord, error) {
		return []PortalRecord{{
			Title:      "Wellness Grant",
			AgencyName: "Health Promotion Board",
		}}, nil
	}))

	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.agencies) != 1 || store.agencies[0].Acronym != "HPB" {
		t.Fatalf("expected derived acronym HPB, got %+v", store.agencies)
	}
}

func TestSync_FillsOnlyEmptyFieldsUnlessForced(t *testing.T) {
	store := &fakeStore{}
	rec := PortalRecord{
		ExternalID:  "G-1",
		Title:       "Some Grant",
		AgencyName:  "Health Promotion Board",
		Description: "Portal description",
	}
	syncer := NewSyncer(store, fetcherFunc(func(ctx context.Context) ([]PortalRecord, error) {
		return []PortalRecord{rec}, nil
	}))

	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Manual curation after the first sync.
	store.grants[0].Description = "Hand-written description"

	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.grants[0].Description != "Hand-written description" {
		t.Errorf("unforced sync overwrote curated description: %q", store.grants[0].Description)
	}

	syncer.Force = true
	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.grants[0].Description != "Portal description" {
		t.Errorf("forced sync should overwrite description, got %q", store.grants[0].Description)
	}
}

func TestSync_SkipsRecordsWithoutTitle(t *testing.T) {
	store := &fakeStore{}
	syncer := NewSyncer(store, fetcherFunc(func(ctx context.Context) ([]PortalRecord, error) {
		return []PortalRecord{
			{Title: "", AgencyName: "HPB"},
			{Title: "Real Grant", AgencyName: "Health Promotion Board"},
		}, nil
	}))

	stats, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Created != 1 || stats.Total != 1 {
		t.Fatalf("untitled record should be dropped from stats: %+v", stats)
	}
}

type fetcherFunc func(ctx context.Context) ([]PortalRecord, error)

func (f fetcherFunc) FetchGrants(ctx context.Context) ([]PortalRecord, error) {
	return f(ctx)
}

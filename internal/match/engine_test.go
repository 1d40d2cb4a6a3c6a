package match

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/david/grant-match/internal/models"
)

type fakeMatchStore struct {
	grants  []models.Grant
	matches map[uuid.UUID]*storedMatch
}

type storedMatch struct {
	score   int
	reasons []string
	saved   bool
}

func newFakeMatchStore(grants ...models.Grant) *fakeMatchStore {
	return &fakeMatchStore{grants: grants, matches: map[uuid.UUID]*storedMatch{}}
}

func (f *fakeMatchStore) ListOpenGrants(ctx context.Context) ([]models.Grant, error) {
	var open []models.Grant
	for _, g := range f.grants {
		if g.Status == models.GrantStatusOpen {
			open = append(open, g)
		}
	}
	return open, nil
}

func (f *fakeMatchStore) UpsertMatch(ctx context.Context, projectID, grantID uuid.UUID, score int, reasons []string) error {
	if m, ok := f.matches[grantID]; ok {
		m.score = score
		m.reasons = reasons
		return nil
	}
	f.matches[grantID] = &storedMatch{score: score, reasons: reasons}
	return nil
}

func (f *fakeMatchStore) PruneMatchesBelow(ctx context.Context, projectID uuid.UUID, threshold int) (int, error) {
	pruned := 0
	for id, m := range f.matches {
		if m.score < threshold && !m.saved {
			delete(f.matches, id)
			pruned++
		}
	}
	return pruned, nil
}

func TestRecomputeForProject_OnlyQualifyingMatchesPersist(t *testing.T) {
	good := *fullGrant()
	good.ID = uuid.New()
	bad := models.Grant{
		ID:          uuid.New(),
		Description: "Shipping industry research.",
		Status:      models.GrantStatusOpen,
	}
	closed := *fullGrant()
	closed.ID = uuid.New()
	closed.Status = models.GrantStatusClosed

	store := newFakeMatchStore(good, bad, closed)
	engine := NewEngine(store)

	project := fullProject()
	project.ID = uuid.New()

	if err := engine.RecomputeForProject(context.Background(), project); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.matches) != 1 {
		t.Fatalf("expected one persisted match, got %d", len(store.matches))
	}
	m, ok := store.matches[good.ID]
	if !ok {
		t.Fatal("the qualifying grant was not matched")
	}
	if m.score < SaveThreshold {
		t.Errorf("persisted match below threshold: %d", m.score)
	}
	if len(m.reasons) == 0 || len(m.reasons) > 3 {
		t.Errorf("unexpected reason count: %v", m.reasons)
	}
}

func TestRecomputeForProject_RecomputationIsIdempotent(t *testing.T) {
	grant := *fullGrant()
	grant.ID = uuid.New()
	store := newFakeMatchStore(grant)
	engine := NewEngine(store)

	project := fullProject()
	project.ID = uuid.New()

	for i := 0; i < 3; i++ {
		if err := engine.RecomputeForProject(context.Background(), project); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if len(store.matches) != 1 {
		t.Fatalf("repeated recomputation must not duplicate matches, got %d", len(store.matches))
	}
}

func TestRecomputeForProject_StaleUnsavedMatchIsPruned(t *testing.T) {
	grant := *fullGrant()
	grant.ID = uuid.New()
	store := newFakeMatchStore(grant)
	engine := NewEngine(store)

	project := fullProject()
	project.ID = uuid.New()

	if err := engine.RecomputeForProject(context.Background(), project); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.matches) != 1 {
		t.Fatalf("expected initial match, got %d", len(store.matches))
	}

	// Project pivots away from the grant's focus.
	project.FocusArea = "maritime logistics"
	project.BudgetRequiredMin = nil
	project.BudgetRequiredMax = nil

	if err := engine.RecomputeForProject(context.Background(), project); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.matches) != 0 {
		t.Fatalf("stale unsaved match should be pruned, got %d", len(store.matches))
	}
}

func TestRecomputeForProject_SavedMatchSurvivesPrune(t *testing.T) {
	grant := *fullGrant()
	grant.ID = uuid.New()
	store := newFakeMatchStore(grant)
	engine := NewEngine(store)

	project := fullProject()
	project.ID = uuid.New()

	if err := engine.RecomputeForProject(context.Background(), project); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.matches[grant.ID].saved = true

	project.FocusArea = "maritime logistics"
	project.BudgetRequiredMin = nil
	project.BudgetRequiredMax = nil

	if err := engine.RecomputeForProject(context.Background(), project); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.matches[grant.ID]; !ok {
		t.Fatal("saved match must survive recomputation")
	}
}

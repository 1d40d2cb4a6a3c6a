package match

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/david/grant-match/internal/models"
)

// MatchStore is the slice of the persistence layer the engine needs.
type MatchStore interface {
	ListOpenGrants(ctx context.Context) ([]models.Grant, error)
	UpsertMatch(ctx context.Context, projectID, grantID uuid.UUID, score int, reasons []string) error
	PruneMatchesBelow(ctx context.Context, projectID uuid.UUID, threshold int) (int, error)
}

// Engine recomputes grant matches for projects. Recomputation is
// idempotent: scores and reasons are refreshed in place, and matches that
// fall below the threshold are removed unless the user saved them.
type Engine struct {
	Store MatchStore
}

func NewEngine(store MatchStore) *Engine {
	return &Engine{Store: store}
}

// RecomputeForProject scores the project against every open grant, upserts
// qualifying matches, and prunes stale unsaved ones.
func (e *Engine) RecomputeForProject(ctx context.Context, project *models.Project) error {
	grants, err := e.Store.ListOpenGrants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open grants: %w", err)
	}

	// Every score is written, including sub-threshold ones, so that the
	// prune below sees current scores rather than stale ones. Saved
	// matches keep their row either way but get fresh scores.
	kept := 0
	for i := range grants {
		score, reasons := Score(project, &grants[i])
		if err := e.Store.UpsertMatch(ctx, project.ID, grants[i].ID, score, reasons); err != nil {
			return fmt.Errorf("failed to upsert match: %w", err)
		}
		if score >= SaveThreshold {
			kept++
		}
	}

	pruned, err := e.Store.PruneMatchesBelow(ctx, project.ID, SaveThreshold)
	if err != nil {
		return fmt.Errorf("failed to prune stale matches: %w", err)
	}

	log.Printf("[match] project %s: %d matches kept, %d pruned", project.ID, kept, pruned)
	return nil
}

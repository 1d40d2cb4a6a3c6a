package match

import (
	"fmt"
	"strings"

	"github.com/david/grant-match/internal/models"
)

// SaveThreshold is the minimum score at which a match is worth persisting.
const SaveThreshold = 70

// maxReasons caps how many explanations a single match carries.
const maxReasons = 3

// Score rates how well a grant fits a project on a 0-100 scale, with a
// short list of human-readable reasons. Scoring is deterministic: the same
// project and grant always produce the same score and reasons.
func Score(project *models.Project, grant *models.Grant) (int, []string) {
	score := 0
	var reasons []string

	focus := strings.ToLower(strings.TrimSpace(project.FocusArea))
	if focus != "" && strings.Contains(strings.ToLower(grant.Description), focus) {
		score += 30
		reasons = append(reasons, fmt.Sprintf("Perfect alignment with %s programs", project.FocusArea))
	}

	if budgetsOverlap(project, grant) {
		score += 25
		reasons = append(reasons, "Budget range matches your requirements")
	}

	if project.KPIs != "" && grant.Description != "" {
		score += 20
		reasons = append(reasons, "KPIs align with your service outcomes")
	}

	if project.DurationYears != "" && grant.DurationYears != "" {
		score += 15
		reasons = append(reasons, "Timeline aligns with project scope")
	}

	if grant.Status == models.GrantStatusOpen {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return score, reasons
}

// budgetsOverlap reports whether the grant's funding band intersects the
// project's required budget. All four bounds must be known.
func budgetsOverlap(project *models.Project, grant *models.Grant) bool {
	if project.BudgetRequiredMin == nil || project.BudgetRequiredMax == nil {
		return false
	}
	if grant.FundingMin == nil || grant.FundingMax == nil {
		return false
	}
	return *grant.FundingMin <= *project.BudgetRequiredMax &&
		*grant.FundingMax >= *project.BudgetRequiredMin
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/grant-match/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Agencies ---

const agencyCols = "id, name, acronym, website, created_at"

func scanAgency(scan func(dest ...interface{}) error) (models.Agency, error) {
	var a models.Agency
	err := scan(&a.ID, &a.Name, &a.Acronym, &a.Website, &a.CreatedAt)
	return a, err
}

func (s *Store) GetAgencyByAcronym(ctx context.Context, acronym string) (*models.Agency, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM agencies WHERE acronym = $1", agencyCols), acronym)
	a, err := scanAgency(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agency failed: %w", err)
	}
	return &a, nil
}

func (s *Store) CreateAgency(ctx context.Context, name, acronym, website string) (*models.Agency, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO agencies (name, acronym, website)
		VALUES ($1, $2, $3)
		RETURNING `+agencyCols,
		name, acronym, website)
	a, err := scanAgency(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("create agency failed: %w", err)
	}
	return &a, nil
}

func (s *Store) UpdateAgencyName(ctx context.Context, id uuid.UUID, name string) error {
	_, err := s.pool.Exec(ctx, "UPDATE agencies SET name = $1 WHERE id = $2", name, id)
	return err
}

func (s *Store) ListAgencies(ctx context.Context) ([]models.Agency, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM agencies ORDER BY acronym", agencyCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agencies []models.Agency
	for rows.Next() {
		a, err := scanAgency(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan agency failed: %w", err)
		}
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}

// --- Grants ---

// grantCols is the comprehensive column list for all grant queries.
const grantCols = `g.id, g.title, g.agency_id, a.name, a.acronym, g.description,
	g.funding_min, g.funding_max, g.closing_date, g.opening_date, g.duration_years,
	g.status, g.eligibility, g.application_url, g.source_url, g.external_id,
	g.match_score, g.created_at, g.updated_at`

func scanGrant(scan func(dest ...interface{}) error) (models.Grant, error) {
	var g models.Grant
	err := scan(
		&g.ID, &g.Title, &g.AgencyID, &g.AgencyName, &g.AgencyAcronym, &g.Description,
		&g.FundingMin, &g.FundingMax, &g.ClosingDate, &g.OpeningDate, &g.DurationYears,
		&g.Status, &g.Eligibility, &g.ApplicationURL, &g.SourceURL, &g.ExternalID,
		&g.MatchScore, &g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

type GrantListParams struct {
	Query   string
	Acronym string
	Status  string
	Limit   int
	Offset  int
}

type GrantListResult struct {
	Grants []models.Grant `json:"grants"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// buildGrantWhere constructs the shared WHERE clause for grant listing and counting.
func buildGrantWhere(params GrantListParams) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Query != "" {
		where += fmt.Sprintf(" AND (g.title ILIKE '%%' || $%d || '%%' OR g.description ILIKE '%%' || $%d || '%%' OR a.name ILIKE '%%' || $%d || '%%')", argIdx, argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}
	if params.Acronym != "" {
		where += fmt.Sprintf(" AND a.acronym = $%d", argIdx)
		args = append(args, params.Acronym)
		argIdx++
	}
	if params.Status != "" && params.Status != "all" {
		where += fmt.Sprintf(" AND g.status = $%d", argIdx)
		args = append(args, params.Status)
		argIdx++
	}

	return where, args
}

func (s *Store) ListGrants(ctx context.Context, params GrantListParams) (*GrantListResult, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	where, args := buildGrantWhere(params)

	var total int
	countSQL := "SELECT COUNT(*) FROM grants g JOIN agencies a ON a.id = g.agency_id " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectSQL := fmt.Sprintf(
		"SELECT %s FROM grants g JOIN agencies a ON a.id = g.agency_id %s ORDER BY g.match_score DESC, g.closing_date DESC NULLS LAST LIMIT $%d OFFSET $%d",
		grantCols, where, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	if grants == nil {
		grants = []models.Grant{}
	}

	return &GrantListResult{Grants: grants, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *Store) getGrantWhere(ctx context.Context, clause string, args ...interface{}) (*models.Grant, error) {
	sql := fmt.Sprintf("SELECT %s FROM grants g JOIN agencies a ON a.id = g.agency_id WHERE %s", grantCols, clause)
	row := s.pool.QueryRow(ctx, sql, args...)
	g, err := scanGrant(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get grant failed: %w", err)
	}
	return &g, nil
}

func (s *Store) GetGrant(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	return s.getGrantWhere(ctx, "g.id = $1", id)
}

func (s *Store) GetGrantByExternalID(ctx context.Context, externalID string) (*models.Grant, error) {
	return s.getGrantWhere(ctx, "g.external_id = $1 AND g.external_id <> ''", externalID)
}

func (s *Store) GetGrantByTitleAgency(ctx context.Context, title string, agencyID uuid.UUID) (*models.Grant, error) {
	return s.getGrantWhere(ctx, "g.title = $1 AND g.agency_id = $2", title, agencyID)
}

func (s *Store) CreateGrant(ctx context.Context, g *models.Grant) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO grants (
			title, agency_id, description, funding_min, funding_max,
			closing_date, opening_date, duration_years, status, eligibility,
			application_url, source_url, external_id, match_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		g.Title, g.AgencyID, g.Description, g.FundingMin, g.FundingMax,
		g.ClosingDate, g.OpeningDate, g.DurationYears, g.Status, g.Eligibility,
		g.ApplicationURL, g.SourceURL, g.ExternalID, g.MatchScore,
	)
	if err := row.Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return fmt.Errorf("create grant failed: %w", err)
	}
	return nil
}

func (s *Store) UpdateGrant(ctx context.Context, g *models.Grant) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE grants SET
			title = $1, agency_id = $2, description = $3, funding_min = $4,
			funding_max = $5, closing_date = $6, opening_date = $7,
			duration_years = $8, status = $9, eligibility = $10,
			application_url = $11, source_url = $12, external_id = $13,
			match_score = $14, updated_at = NOW()
		WHERE id = $15`,
		g.Title, g.AgencyID, g.Description, g.FundingMin, g.FundingMax,
		g.ClosingDate, g.OpeningDate, g.DurationYears, g.Status, g.Eligibility,
		g.ApplicationURL, g.SourceURL, g.ExternalID, g.MatchScore, g.ID,
	)
	if err != nil {
		return fmt.Errorf("update grant failed: %w", err)
	}
	return nil
}

func (s *Store) ListOpenGrants(ctx context.Context) ([]models.Grant, error) {
	sql := fmt.Sprintf("SELECT %s FROM grants g JOIN agencies a ON a.id = g.agency_id WHERE g.status = 'open'", grantCols)
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// SimilarGrants returns other grants from the same agency.
func (s *Store) SimilarGrants(ctx context.Context, grantID, agencyID uuid.UUID, limit int) ([]models.Grant, error) {
	if limit <= 0 {
		limit = 3
	}
	sql := fmt.Sprintf("SELECT %s FROM grants g JOIN agencies a ON a.id = g.agency_id WHERE g.agency_id = $1 AND g.id <> $2 LIMIT $3", grantCols)
	rows, err := s.pool.Query(ctx, sql, agencyID, grantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// UpcomingDeadlines returns open grants whose closing date falls within the
// next `days` days.
func (s *Store) UpcomingDeadlines(ctx context.Context, days, limit int) ([]models.Grant, error) {
	if limit <= 0 {
		limit = 3
	}
	sql := fmt.Sprintf(`
		SELECT %s FROM grants g JOIN agencies a ON a.id = g.agency_id
		WHERE g.status = 'open'
		  AND g.closing_date >= CURRENT_DATE
		  AND g.closing_date <= CURRENT_DATE + ($1 * INTERVAL '1 day')
		ORDER BY g.closing_date ASC
		LIMIT $2`, grantCols)
	rows, err := s.pool.Query(ctx, sql, days, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *Store) CountGrants(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM grants").Scan(&n)
	return n, err
}

// --- Projects ---

const projectCols = `id, user_id, title, description, focus_area,
	budget_required_min, budget_required_max, duration_years, kpis,
	service_outcomes, beneficiary_types, interested_in, need_support_for,
	project_start_date, project_end_date, created_at, updated_at`

func scanProject(scan func(dest ...interface{}) error) (models.Project, error) {
	var p models.Project
	err := scan(
		&p.ID, &p.UserID, &p.Title, &p.Description, &p.FocusArea,
		&p.BudgetRequiredMin, &p.BudgetRequiredMax, &p.DurationYears, &p.KPIs,
		&p.ServiceOutcomes, &p.BeneficiaryTypes, &p.InterestedIn, &p.NeedSupportFor,
		&p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO projects (
			user_id, title, description, focus_area, budget_required_min,
			budget_required_max, duration_years, kpis, service_outcomes,
			beneficiary_types, interested_in, need_support_for,
			project_start_date, project_end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		p.UserID, p.Title, p.Description, p.FocusArea, p.BudgetRequiredMin,
		p.BudgetRequiredMax, p.DurationYears, p.KPIs, p.ServiceOutcomes,
		emptyIfNil(p.BeneficiaryTypes), emptyIfNil(p.InterestedIn), emptyIfNil(p.NeedSupportFor),
		p.StartDate, p.EndDate,
	)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create project failed: %w", err)
	}
	return nil
}

func (s *Store) UpdateProject(ctx context.Context, p *models.Project) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects SET
			title = $1, description = $2, focus_area = $3,
			budget_required_min = $4, budget_required_max = $5,
			duration_years = $6, kpis = $7, service_outcomes = $8,
			beneficiary_types = $9, interested_in = $10, need_support_for = $11,
			project_start_date = $12, project_end_date = $13, updated_at = NOW()
		WHERE id = $14 AND user_id = $15`,
		p.Title, p.Description, p.FocusArea,
		p.BudgetRequiredMin, p.BudgetRequiredMax,
		p.DurationYears, p.KPIs, p.ServiceOutcomes,
		emptyIfNil(p.BeneficiaryTypes), emptyIfNil(p.InterestedIn), emptyIfNil(p.NeedSupportFor),
		p.StartDate, p.EndDate, p.ID, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("update project failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id, userID uuid.UUID) (*models.Project, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM projects WHERE id = $1 AND user_id = $2", projectCols), id, userID)
	p, err := scanProject(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project failed: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM projects WHERE user_id = $1 ORDER BY created_at DESC", projectCols), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan project failed: %w", err)
		}
		projects = append(projects, p)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, rows.Err()
}

func (s *Store) DeleteProject(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM projects WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) FirstProjectForUser(ctx context.Context, userID uuid.UUID) (*models.Project, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM projects WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1", projectCols), userID)
	p, err := scanProject(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project failed: %w", err)
	}
	return &p, nil
}

// --- Matches ---

const matchCols = "id, project_id, grant_id, match_score, match_reasons, is_saved, created_at"

func scanMatch(scan func(dest ...interface{}) error) (models.GrantMatch, error) {
	var m models.GrantMatch
	err := scan(&m.ID, &m.ProjectID, &m.GrantID, &m.MatchScore, &m.MatchReasons, &m.IsSaved, &m.CreatedAt)
	return m, err
}

// UpsertMatch creates or refreshes the unique (project, grant) match.
// is_saved is user state and is preserved on conflict.
func (s *Store) UpsertMatch(ctx context.Context, projectID, grantID uuid.UUID, score int, reasons []string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO grant_matches (project_id, grant_id, match_score, match_reasons)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, grant_id) DO UPDATE SET
			match_score = EXCLUDED.match_score,
			match_reasons = EXCLUDED.match_reasons`,
		projectID, grantID, score, emptyIfNil(reasons))
	if err != nil {
		return fmt.Errorf("upsert match failed: %w", err)
	}
	return nil
}

// PruneMatchesBelow deletes a project's unsaved matches scoring under the
// threshold. Saved matches are user state and are never pruned.
func (s *Store) PruneMatchesBelow(ctx context.Context, projectID uuid.UUID, threshold int) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM grant_matches
		WHERE project_id = $1 AND match_score < $2 AND is_saved = FALSE`,
		projectID, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune matches failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) GetMatch(ctx context.Context, projectID, grantID uuid.UUID) (*models.GrantMatch, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM grant_matches WHERE project_id = $1 AND grant_id = $2", matchCols),
		projectID, grantID)
	m, err := scanMatch(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match failed: %w", err)
	}
	return &m, nil
}

func (s *Store) ListMatchesForProject(ctx context.Context, projectID uuid.UUID) ([]models.GrantMatch, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM grant_matches WHERE project_id = $1 ORDER BY match_score DESC", matchCols),
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.GrantMatch
	for rows.Next() {
		m, err := scanMatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan match failed: %w", err)
		}
		matches = append(matches, m)
	}
	if matches == nil {
		matches = []models.GrantMatch{}
	}
	return matches, rows.Err()
}

func (s *Store) ListRecentMatchesForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.GrantMatch, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.project_id, m.grant_id, m.match_score, m.match_reasons, m.is_saved, m.created_at
		FROM grant_matches m
		JOIN projects p ON p.id = m.project_id
		WHERE p.user_id = $1
		ORDER BY m.match_score DESC, m.created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.GrantMatch
	for rows.Next() {
		m, err := scanMatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan match failed: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) ListSavedMatchesForUser(ctx context.Context, userID uuid.UUID) ([]models.GrantMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.project_id, m.grant_id, m.match_score, m.match_reasons, m.is_saved, m.created_at
		FROM grant_matches m
		JOIN projects p ON p.id = m.project_id
		WHERE p.user_id = $1 AND m.is_saved = TRUE
		ORDER BY m.match_score DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.GrantMatch
	for rows.Next() {
		m, err := scanMatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan match failed: %w", err)
		}
		matches = append(matches, m)
	}
	if matches == nil {
		matches = []models.GrantMatch{}
	}
	return matches, rows.Err()
}

// ToggleMatchSaved flips is_saved on the (project, grant) match, creating the
// row with the grant's baseline score when absent. Returns the new state.
func (s *Store) ToggleMatchSaved(ctx context.Context, projectID, grantID uuid.UUID, baselineScore int) (bool, error) {
	var saved bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO grant_matches (project_id, grant_id, match_score, is_saved)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (project_id, grant_id) DO UPDATE SET
			is_saved = NOT grant_matches.is_saved
		RETURNING is_saved`,
		projectID, grantID, baselineScore).Scan(&saved)
	if err != nil {
		return false, fmt.Errorf("toggle save failed: %w", err)
	}
	return saved, nil
}

// --- Applications ---

const applicationCols = "id, user_id, project_id, grant_id, status, submitted_at, notes, created_at, updated_at"

func scanApplication(scan func(dest ...interface{}) error) (models.Application, error) {
	var a models.Application
	err := scan(&a.ID, &a.UserID, &a.ProjectID, &a.GrantID, &a.Status, &a.SubmittedAt, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *Store) CreateApplication(ctx context.Context, a *models.Application) error {
	if a.Status == "" {
		a.Status = models.ApplicationInProgress
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO applications (user_id, project_id, grant_id, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.UserID, a.ProjectID, a.GrantID, a.Status, a.Notes)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("create application failed: %w", err)
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id, userID uuid.UUID) (*models.Application, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM applications WHERE id = $1 AND user_id = $2", applicationCols), id, userID)
	a, err := scanApplication(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application failed: %w", err)
	}
	return &a, nil
}

func (s *Store) ListApplications(ctx context.Context, userID uuid.UUID) ([]models.Application, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM applications WHERE user_id = $1 ORDER BY created_at DESC", applicationCols), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan application failed: %w", err)
		}
		apps = append(apps, a)
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, rows.Err()
}

// SubmitApplication moves an in_progress application to submitted and stamps
// submitted_at. Any other current status is rejected.
func (s *Store) SubmitApplication(ctx context.Context, id, userID uuid.UUID, now time.Time) (*models.Application, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE applications
		SET status = 'submitted', submitted_at = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = 'in_progress'
		RETURNING `+applicationCols,
		now, id, userID)
	a, err := scanApplication(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("submit application failed: %w", err)
	}
	return &a, nil
}

// UpdateApplication changes status and/or notes. Terminal states
// (approved, rejected) are never overwritten.
func (s *Store) UpdateApplication(ctx context.Context, id, userID uuid.UUID, status, notes string) (*models.Application, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE applications
		SET status = COALESCE(NULLIF($1, ''), status),
		    notes = $2,
		    updated_at = NOW()
		WHERE id = $3 AND user_id = $4 AND status NOT IN ('approved', 'rejected')
		RETURNING `+applicationCols,
		status, notes, id, userID)
	a, err := scanApplication(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update application failed: %w", err)
	}
	return &a, nil
}

// --- Notifications ---

const notificationCols = "id, user_id, title, message, link, is_read, created_at"

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, message, link)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		n.UserID, n.Title, n.Message, n.Link)
	if err := row.Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("create notification failed: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM notifications WHERE user_id = $1 ORDER BY created_at DESC", notificationCols), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification failed: %w", err)
		}
		items = append(items, n)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, rows.Err()
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE", userID).Scan(&n)
	return n, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// emptyIfNil keeps array columns non-null.
func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

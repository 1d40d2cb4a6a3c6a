package models

import (
	"time"

	"github.com/google/uuid"
)

// Grant statuses.
const (
	GrantStatusOpen     = "open"
	GrantStatusClosed   = "closed"
	GrantStatusUpcoming = "upcoming"
)

// Application statuses.
const (
	ApplicationInProgress = "in_progress"
	ApplicationSubmitted  = "submitted"
	ApplicationApproved   = "approved"
	ApplicationRejected   = "rejected"
)

type Agency struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Acronym   string    `json:"acronym"`
	Website   string    `json:"website"`
	CreatedAt time.Time `json:"created_at"`
}

type Grant struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	AgencyID       uuid.UUID  `json:"agency_id"`
	AgencyName     string     `json:"agency_name"`
	AgencyAcronym  string     `json:"agency_acronym"`
	Description    string     `json:"description"`
	FundingMin     *float64   `json:"funding_min"` // thousands of currency units
	FundingMax     *float64   `json:"funding_max"`
	ClosingDate    *time.Time `json:"closing_date"`
	OpeningDate    *time.Time `json:"opening_date"`
	DurationYears  string     `json:"duration_years"`
	Status         string     `json:"status"`
	Eligibility    string     `json:"eligibility"`
	ApplicationURL string     `json:"application_url"`
	SourceURL      string     `json:"source_url"`
	ExternalID     string     `json:"external_id"`
	MatchScore     int        `json:"match_score"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Project struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	FocusArea         string     `json:"focus_area"`
	BudgetRequiredMin *float64   `json:"budget_required_min"`
	BudgetRequiredMax *float64   `json:"budget_required_max"`
	DurationYears     string     `json:"duration_years"`
	KPIs              string     `json:"kpis"`
	ServiceOutcomes   string     `json:"service_outcomes"`
	BeneficiaryTypes  []string   `json:"beneficiary_types"`
	InterestedIn      []string   `json:"interested_in"`
	NeedSupportFor    []string   `json:"need_support_for"`
	StartDate         *time.Time `json:"project_start_date"`
	EndDate           *time.Time `json:"project_end_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// GrantMatch is the scored pairing between one project and one grant.
// At most one row exists per (project, grant); recomputation upserts.
type GrantMatch struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	GrantID      uuid.UUID `json:"grant_id"`
	MatchScore   int       `json:"match_score"`
	MatchReasons []string  `json:"match_reasons"`
	IsSaved      bool      `json:"is_saved"`
	CreatedAt    time.Time `json:"created_at"`
}

type Application struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	GrantID     uuid.UUID  `json:"grant_id"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

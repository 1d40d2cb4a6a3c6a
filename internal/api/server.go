package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/grant-match/internal/auth"
	"github.com/david/grant-match/internal/db"
	"github.com/david/grant-match/internal/ingest"
	"github.com/david/grant-match/internal/match"
	"github.com/david/grant-match/internal/models"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	Matcher     *match.Engine
	Portal      ingest.PortalConfig
	Detail      *ingest.DetailFetcher

	// Background job tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(pool *pgxpool.Pool) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	store := db.NewStore(pool)
	authService := auth.NewService(pool)

	portalCfg, err := ingest.LoadPortalConfig()
	if err != nil {
		log.Printf("[api] portal config unavailable, using built-in defaults: %v", err)
		portalCfg = ingest.DefaultPortalConfig()
	}

	s := &Server{
		DB:          pool,
		Store:       store,
		AuthService: authService,
		Echo:        e,
		Matcher:     match.NewEngine(store),
		Portal:      portalCfg,
		Detail:      ingest.NewDetailFetcher(portalCfg),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	// Public browsing
	api.GET("/grants", s.handleListGrants)
	api.GET("/grants/:id", s.handleGetGrant)
	api.GET("/agencies", s.handleListAgencies)
	api.GET("/deadlines", s.handleUpcomingDeadlines)

	// Admin Routes (Sync)
	admin := api.Group("")
	admin.Use(s.adminMiddleware)
	admin.POST("/admin/sync", s.handleTriggerSync)
	admin.GET("/admin/job/:id", s.handleJobStatus)

	// Auth Routes
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Protected Routes
	member := api.Group("")
	member.Use(s.AuthService.Middleware)
	member.GET("/projects", s.handleListProjects)
	member.POST("/projects", s.handleCreateProject)
	member.GET("/projects/:id", s.handleGetProject)
	member.PATCH("/projects/:id", s.handleUpdateProject)
	member.DELETE("/projects/:id", s.handleDeleteProject)
	member.GET("/projects/:id/matches", s.handleProjectMatches)
	member.POST("/grants/:id/save", s.handleToggleSaveGrant)
	member.GET("/saved", s.handleListSavedGrants)
	member.GET("/applications", s.handleListApplications)
	member.POST("/applications", s.handleCreateApplication)
	member.GET("/applications/:id", s.handleGetApplication)
	member.POST("/applications/:id/submit", s.handleSubmitApplication)
	member.PATCH("/applications/:id", s.handleUpdateApplication)
	member.GET("/notifications", s.handleListNotifications)
	member.POST("/notifications/:id/read", s.handleMarkNotificationRead)
	member.GET("/dashboard", s.handleDashboard)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// --- Auth ---

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email and a password of at least 8 characters are required"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// --- Grants ---

func (s *Server) handleListGrants(c echo.Context) error {
	limit := 20
	offset := 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}

	result, err := s.Store.ListGrants(c.Request().Context(), db.GrantListParams{
		Query:   c.QueryParam("search"),
		Acronym: c.QueryParam("agency"),
		Status:  c.QueryParam("status"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		c.Logger().Errorf("Failed to list grants: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	// Listing rows carry a preview; the full description stays on the
	// detail endpoint.
	for i := range result.Grants {
		result.Grants[i].Description = ingest.TruncateText(result.Grants[i].Description, 280)
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetGrant(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant ID"})
	}

	grant, err := s.Store.GetGrant(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	similar, err := s.Store.SimilarGrants(c.Request().Context(), grant.ID, grant.AgencyID, 3)
	if err != nil {
		c.Logger().Errorf("Failed to load similar grants: %v", err)
		similar = nil
	}

	resp := map[string]interface{}{
		"grant":          grant,
		"similar_grants": similar,
	}

	// Live detail from the portal is best effort; the page renders without it.
	if grant.ExternalID != "" {
		detailCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if detail, err := s.Detail.FetchGrantDetail(detailCtx, grant.ExternalID); err == nil {
			resp["detail"] = detail
		} else {
			c.Logger().Warnf("Grant detail fetch failed: %v", err)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListAgencies(c echo.Context) error {
	agencies, err := s.Store.ListAgencies(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, agencies)
}

func (s *Server) handleUpcomingDeadlines(c echo.Context) error {
	days := 30
	if d, err := strconv.Atoi(c.QueryParam("days")); err == nil && d > 0 && d <= 365 {
		days = d
	}
	grants, err := s.Store.UpcomingDeadlines(c.Request().Context(), days, 10)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, grants)
}

// --- Projects ---

type projectRequest struct {
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
}

func (r projectRequest) apply(p *models.Project) {
	p.Title = strings.TrimSpace(r.Title)
	p.Description = r.Description
	p.FocusArea = r.FocusArea
	p.BudgetRequiredMin = r.BudgetRequiredMin
	p.BudgetRequiredMax = r.BudgetRequiredMax
	p.DurationYears = r.DurationYears
	p.KPIs = r.KPIs
	p.ServiceOutcomes = r.ServiceOutcomes
	p.BeneficiaryTypes = r.BeneficiaryTypes
	p.InterestedIn = r.InterestedIn
	p.NeedSupportFor = r.NeedSupportFor
	p.StartDate = r.StartDate
	p.EndDate = r.EndDate
}

func (s *Server) handleListProjects(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	projects, err := s.Store.ListProjects(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) handleCreateProject(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Title is required"})
	}

	project := &models.Project{UserID: userID}
	req.apply(project)

	if err := s.Store.CreateProject(c.Request().Context(), project); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	s.recomputeMatches(c.Request().Context(), project, userID)

	return c.JSON(http.StatusCreated, project)
}

func (s *Server) handleGetProject(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid project ID"})
	}
	project, err := s.Store.GetProject(c.Request().Context(), id, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) handleUpdateProject(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid project ID"})
	}

	project, err := s.Store.GetProject(c.Request().Context(), id, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Title is required"})
	}
	req.apply(project)

	if err := s.Store.UpdateProject(c.Request().Context(), project); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	s.recomputeMatches(c.Request().Context(), project, userID)

	return c.JSON(http.StatusOK, project)
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid project ID"})
	}
	if err := s.Store.DeleteProject(c.Request().Context(), id, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// recomputeMatches refreshes matches after a project change and notifies
// the owner when new high-scoring matches exist. Failures only log; the
// project write has already succeeded.
func (s *Server) recomputeMatches(ctx context.Context, project *models.Project, userID uuid.UUID) {
	if err := s.Matcher.RecomputeForProject(ctx, project); err != nil {
		log.Printf("[api] match recompute failed for project %s: %v", project.ID, err)
		return
	}

	matches, err := s.Store.ListMatchesForProject(ctx, project.ID)
	if err != nil || len(matches) == 0 {
		return
	}
	n := &models.Notification{
		UserID:  userID,
		Title:   "Grant matches updated",
		Message: fmt.Sprintf("%d grants now match %q", len(matches), project.Title),
		Link:    "/projects/" + project.ID.String() + "/matches",
	}
	if err := s.Store.CreateNotification(ctx, n); err != nil {
		log.Printf("[api] failed to create match notification: %v", err)
	}
}

// --- Matches ---

func (s *Server) handleProjectMatches(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid project ID"})
	}

	// Ownership check before exposing matches
	if _, err := s.Store.GetProject(c.Request().Context(), id, userID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	matches, err := s.Store.ListMatchesForProject(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, matches)
}

type saveGrantRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
}

func (s *Server) handleToggleSaveGrant(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	grantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid grant ID"})
	}

	var req saveGrantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	// Default to the user's first project when none is given.
	var project *models.Project
	if req.ProjectID != uuid.Nil {
		project, err = s.Store.GetProject(c.Request().Context(), req.ProjectID, userID)
	} else {
		project, err = s.Store.FirstProjectForUser(c.Request().Context(), userID)
	}
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No project to save against"})
	}

	grant, err := s.Store.GetGrant(c.Request().Context(), grantID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Grant not found"})
	}

	score, _ := match.Score(project, grant)
	saved, err := s.Store.ToggleMatchSaved(c.Request().Context(), project.ID, grantID, score)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"saved": saved})
}

func (s *Server) handleListSavedGrants(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	matches, err := s.Store.ListSavedMatchesForUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, matches)
}

// --- Applications ---

type applicationRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	GrantID   uuid.UUID `json:"grant_id"`
	Notes     string    `json:"notes"`
}

func (s *Server) handleListApplications(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	apps, err := s.Store.ListApplications(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, apps)
}

func (s *Server) handleCreateApplication(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req applicationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.ProjectID == uuid.Nil || req.GrantID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "project_id and grant_id are required"})
	}

	// Both sides must exist and the project must belong to the caller.
	if _, err := s.Store.GetProject(c.Request().Context(), req.ProjectID, userID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Project not found"})
	}
	if _, err := s.Store.GetGrant(c.Request().Context(), req.GrantID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Grant not found"})
	}

	app := &models.Application{
		UserID:    userID,
		ProjectID: req.ProjectID,
		GrantID:   req.GrantID,
		Status:    models.ApplicationInProgress,
		Notes:     req.Notes,
	}
	if err := s.Store.CreateApplication(c.Request().Context(), app); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, app)
}

func (s *Server) handleGetApplication(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid application ID"})
	}
	app, err := s.Store.GetApplication(c.Request().Context(), id, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, app)
}

func (s *Server) handleSubmitApplication(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid application ID"})
	}

	app, err := s.Store.SubmitApplication(c.Request().Context(), id, userID, time.Now())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Application is not in progress"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	n := &models.Notification{
		UserID:  userID,
		Title:   "Application submitted",
		Message: "Your application was submitted successfully",
		Link:    "/applications/" + app.ID.String(),
	}
	if err := s.Store.CreateNotification(c.Request().Context(), n); err != nil {
		log.Printf("[api] failed to create submission notification: %v", err)
	}

	return c.JSON(http.StatusOK, app)
}

type applicationUpdateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) handleUpdateApplication(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid application ID"})
	}

	var req applicationUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	switch req.Status {
	case "", models.ApplicationInProgress, models.ApplicationSubmitted, models.ApplicationApproved, models.ApplicationRejected:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status"})
	}

	app, err := s.Store.UpdateApplication(c.Request().Context(), id, userID, req.Status, req.Notes)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Application not found or already finalized"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, app)
}

// --- Notifications ---

func (s *Server) handleListNotifications(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	notifications, err := s.Store.ListNotifications(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	unread, err := s.Store.CountUnreadNotifications(c.Request().Context(), userID)
	if err != nil {
		unread = 0
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

func (s *Server) handleMarkNotificationRead(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid notification ID"})
	}
	if err := s.Store.MarkNotificationRead(c.Request().Context(), id, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Dashboard ---

func (s *Server) handleDashboard(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	ctx := c.Request().Context()

	totalGrants, err := s.Store.CountGrants(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	deadlines, err := s.Store.UpcomingDeadlines(ctx, 30, 5)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	recent, err := s.Store.ListRecentMatchesForUser(ctx, userID, 5)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	projects, err := s.Store.ListProjects(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	apps, err := s.Store.ListApplications(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	unread, err := s.Store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		unread = 0
	}

	appCounts := map[string]int{}
	for _, a := range apps {
		appCounts[a.Status]++
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_grants":       totalGrants,
		"projects":           projects,
		"upcoming_deadlines": deadlines,
		"recent_matches":     recent,
		"application_counts": appCounts,
		"unread_count":       unread,
	})
}

// --- Admin sync ---

func (s *Server) handleTriggerSync(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "A sync job is already running",
			"job_id": job.ID,
		})
	}

	useSample := c.QueryParam("sample") == "true"
	force := c.QueryParam("force") == "true"

	// context.WithoutCancel detaches from HTTP lifecycle but preserves
	// trace values. We add our own timeout for safety.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 15*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		defer jobCancel()

		syncer := ingest.NewSyncer(s.Store, ingest.NewPortalClient(s.Portal))
		syncer.Force = force

		var stats ingest.SyncStats
		var err error
		if useSample {
			stats, err = syncer.SyncSample(jobCtx)
		} else {
			stats, err = syncer.Sync(jobCtx)
		}

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			log.Printf("[sync-job %s] failed: %v", jobID, err)
			return
		}
		job.Status = "completed"
		job.Result = stats
		log.Printf("[sync-job %s] completed: %+v", jobID, stats)
	}()

	return c.JSON(http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": "running",
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	id := c.Param("id")
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.runningJob == nil || s.runningJob.ID != id {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Job not found"})
	}
	return c.JSON(http.StatusOK, s.runningJob)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecret()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		// Check X-Admin-Secret header or Bearer token
		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == secret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == secret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func adminSecret() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = fmt.Errorf("failed to generate ADMIN_SECRET fallback: %w", err)
			return
		}

		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Print("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	if adminSecretRuntime == "" {
		return "", fmt.Errorf("admin secret unavailable")
	}

	return adminSecretRuntime, nil
}

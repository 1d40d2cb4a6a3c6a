package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func invokeMiddleware(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	}

	svc := &Service{}
	if err := svc.Middleware(handler)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, c, reached
}

func TestMiddleware_AcceptsMintedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	userID := uuid.New()
	token, err := generateToken(userID)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	rec, c, reached := invokeMiddleware(t, "Bearer "+token)
	if !reached {
		t.Fatalf("handler not reached, status %d body %s", rec.Code, rec.Body.String())
	}

	got, err := GetUserIDFromContext(c)
	if err != nil {
		t.Fatalf("user ID missing from context: %v", err)
	}
	if got != userID {
		t.Errorf("context user ID = %s, want %s", got, userID)
	}
}

func TestMiddleware_RejectsMissingHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	rec, _, reached := invokeMiddleware(t, "")
	if reached {
		t.Fatal("handler reached without credentials")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected JSON error body, got %s", rec.Body.String())
	}
}

func TestMiddleware_RejectsGarbageToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")

	rec, _, reached := invokeMiddleware(t, "Bearer not-a-jwt")
	if reached {
		t.Fatal("handler reached with a garbage token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGetUserIDFromContext_Unset(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, err := GetUserIDFromContext(c); err == nil {
		t.Fatal("expected error for unset context")
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"admindeck-backend/internal/auth"
	"admindeck-backend/internal/database"
	"admindeck-backend/internal/models"
)

const testAuditRetention = 30 * 24 * time.Hour

func newTestServer(t *testing.T) (*echo.Echo, *database.UserRepo, *database.AuditRepo) {
	return newTestServerWithLimiter(t, nil)
}

func newTestServerWithLimiter(t *testing.T, limiter *auth.LoginLimiter) (*echo.Echo, *database.UserRepo, *database.AuditRepo) {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userRepo := database.NewUserRepo(db)
	auditRepo := database.NewAuditRepo(db)
	store := database.NewSessionRepo(db)
	directory := auth.NewLocalDirectory(userRepo)
	authSvc := auth.NewService(store, directory, nil, auth.DefaultSessionTTL)
	handlers := NewHandlers(authSvc, userRepo, auditRepo, limiter, testAuditRetention, nil)

	e := echo.New()
	RegisterRoutes(e.Group("/api"), handlers, authSvc)
	return e, userRepo, auditRepo
}

func seedUser(t *testing.T, users *database.UserRepo, username, password string, role models.Role, disabled bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         role,
		Disabled:     disabled,
	}
	if err := users.Create(user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func doLogin(t *testing.T, e *echo.Echo, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()
	rec := doLogin(t, e, username, password)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestLoginEndpoint(t *testing.T) {
	e, users, _ := newTestServer(t)
	seedUser(t, users, "alice", "correct horse", models.RoleAdmin, false)
	seedUser(t, users, "mabel", "hunter2", models.RoleViewer, true)

	rec := doLogin(t, e, "alice", "correct horse")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" || resp.User.Username != "alice" {
		t.Errorf("unexpected login response: %+v", resp)
	}

	// The session cookie carries the token with the session's expiry.
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if cookie.Value != resp.Token {
		t.Error("cookie token differs from response token")
	}
	if cookie.Expires.Unix() != resp.ExpiresAt.Unix() {
		t.Errorf("cookie expiry %v does not match session expiry %v", cookie.Expires, resp.ExpiresAt)
	}

	// Wrong credentials: generic rejection.
	if rec := doLogin(t, e, "alice", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", rec.Code)
	}
	if rec := doLogin(t, e, "ghost", "whatever"); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: expected 401, got %d", rec.Code)
	}

	// Disabled account: a distinct, informative rejection.
	rec = doLogin(t, e, "mabel", "hunter2")
	if rec.Code != http.StatusForbidden {
		t.Errorf("disabled account: expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("disabled account response should say so: %s", rec.Body.String())
	}

	// Missing fields.
	if rec := doLogin(t, e, "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("empty credentials: expected 400, got %d", rec.Code)
	}
}

func TestMeAndLogoutEndpoints(t *testing.T) {
	e, users, _ := newTestServer(t)
	seedUser(t, users, "alice", "correct horse", models.RoleAdmin, false)
	token := loginToken(t, e, "alice", "correct horse")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var user models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected alice, got %+v", user)
	}

	// Logout revokes the session.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", rec.Code)
	}

	// Logout without a token is a bad request.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("logout without token: expected 400, got %d", rec.Code)
	}
}

func TestCleanupEndpointRequiresAdmin(t *testing.T) {
	e, users, _ := newTestServer(t)
	seedUser(t, users, "alice", "correct horse", models.RoleAdmin, false)
	seedUser(t, users, "victor", "viewer pass", models.RoleViewer, false)

	adminToken := loginToken(t, e, "alice", "correct horse")
	viewerToken := loginToken(t, e, "victor", "viewer pass")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sessions/cleanup", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+viewerToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer cleanup: expected 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/sessions/cleanup", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin cleanup: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode cleanup response: %v", err)
	}
	if result["deleted"] != 0 {
		t.Errorf("expected 0 swept sessions, got %d", result["deleted"])
	}
}

func TestAuditEndpoint(t *testing.T) {
	e, users, _ := newTestServer(t)
	seedUser(t, users, "alice", "correct horse", models.RoleAdmin, false)

	doLogin(t, e, "alice", "wrong")
	token := loginToken(t, e, "alice", "correct horse")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/audit?action="+models.ActionLoginFailed, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit list: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var events []models.AuditEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].Username != "alice" {
		t.Errorf("unexpected audit events: %+v", events)
	}
}

func TestLoginRateLimitReportsBlockDeadline(t *testing.T) {
	limiter := auth.NewLoginLimiter(1, time.Minute, time.Minute)
	e, users, _ := newTestServerWithLimiter(t, limiter)
	seedUser(t, users, "alice", "correct horse", models.RoleAdmin, false)

	if rec := doLogin(t, e, "alice", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("first attempt: expected 401, got %d", rec.Code)
	}

	rec := doLogin(t, e, "alice", "wrong")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt: expected 429, got %d", rec.Code)
	}

	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retry < 1 || retry > 60 {
		t.Errorf("Retry-After should hold the remaining block in seconds, got %q", rec.Header().Get("Retry-After"))
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	until, err := time.Parse(time.RFC3339, body["blocked_until"])
	if err != nil {
		t.Fatalf("blocked_until should be RFC3339, got %q", body["blocked_until"])
	}
	if !until.After(time.Now()) {
		t.Errorf("blocked_until %v should be in the future", until)
	}
}

func TestCleanupEndpointPrunesOldAuditEvents(t *testing.T) {
	e, users, audit := newTestServer(t)
	seedUser(t, users, "alice", "correct horse", models.RoleAdmin, false)
	token := loginToken(t, e, "alice", "correct horse")

	old := &models.AuditEvent{
		ID:        "evt-old",
		Timestamp: time.Now().Add(-testAuditRetention - 24*time.Hour),
		Username:  "bygone",
		Action:    models.ActionLogin,
	}
	recent := &models.AuditEvent{
		ID:        "evt-recent",
		Timestamp: time.Now().Add(-time.Hour),
		Username:  "alice",
		Action:    models.ActionLogout,
	}
	for _, event := range []*models.AuditEvent{old, recent} {
		if err := audit.Create(event); err != nil {
			t.Fatalf("create audit event: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sessions/cleanup", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cleanup: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode cleanup response: %v", err)
	}
	if result["audit_pruned"] != 1 {
		t.Errorf("expected 1 pruned audit event, got %d", result["audit_pruned"])
	}

	events, err := audit.List(models.AuditFilter{Action: models.ActionLogin})
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	for _, event := range events {
		if event.ID == "evt-old" {
			t.Error("event past retention survived the sweep")
		}
	}
}

func TestSetUserDisabledEndpoint(t *testing.T) {
	e, users, _ := newTestServer(t)
	admin := seedUser(t, users, "alice", "correct horse", models.RoleAdmin, false)
	viewer := seedUser(t, users, "victor", "viewer pass", models.RoleViewer, false)

	adminToken := loginToken(t, e, "alice", "correct horse")

	putDisabled := func(token string, id int64, disabled bool) *httptest.ResponseRecorder {
		body := `{"disabled":` + strconv.FormatBool(disabled) + `}`
		req := httptest.NewRequest(http.MethodPut, "/api/auth/users/"+strconv.FormatInt(id, 10)+"/disabled", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := putDisabled(adminToken, viewer.ID, true); rec.Code != http.StatusOK {
		t.Fatalf("disable viewer: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := doLogin(t, e, "victor", "viewer pass"); rec.Code != http.StatusForbidden {
		t.Errorf("disabled user login: expected 403, got %d", rec.Code)
	}

	if rec := putDisabled(adminToken, viewer.ID, false); rec.Code != http.StatusOK {
		t.Fatalf("re-enable viewer: expected 200, got %d", rec.Code)
	}
	if rec := doLogin(t, e, "victor", "viewer pass"); rec.Code != http.StatusOK {
		t.Errorf("re-enabled user login: expected 200, got %d", rec.Code)
	}

	if rec := putDisabled(adminToken, admin.ID, true); rec.Code != http.StatusBadRequest {
		t.Errorf("self-disable: expected 400, got %d", rec.Code)
	}
	if rec := putDisabled(adminToken, 9999, true); rec.Code != http.StatusNotFound {
		t.Errorf("unknown user: expected 404, got %d", rec.Code)
	}

	viewerToken := loginToken(t, e, "victor", "viewer pass")
	if rec := putDisabled(viewerToken, admin.ID, true); rec.Code != http.StatusForbidden {
		t.Errorf("viewer disabling a user: expected 403, got %d", rec.Code)
	}
}

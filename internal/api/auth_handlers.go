package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"admindeck-backend/internal/auth"
	"admindeck-backend/internal/database"
	"admindeck-backend/internal/logging"
	"admindeck-backend/internal/models"
)

// Handlers carries the dependencies shared by the auth endpoints.
type Handlers struct {
	authSvc        *auth.Service
	users          *database.UserRepo
	audit          *database.AuditRepo
	limiter        *auth.LoginLimiter
	auditRetention time.Duration
	log            logging.Logger
}

// NewHandlers wires the auth endpoints. auditRetention bounds how long audit
// events survive the cleanup sweep; zero keeps them forever.
func NewHandlers(authSvc *auth.Service, users *database.UserRepo, audit *database.AuditRepo, limiter *auth.LoginLimiter, auditRetention time.Duration, log logging.Logger) *Handlers {
	if log == nil {
		log = logging.Discard{}
	}
	return &Handlers{
		authSvc:        authSvc,
		users:          users,
		audit:          audit,
		limiter:        limiter,
		auditRetention: auditRetention,
		log:            log,
	}
}

// login handles POST /api/auth/login
func (h *Handlers) login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "username and password are required",
		})
	}

	ipAddress := c.RealIP()
	userAgent := c.Request().UserAgent()

	if h.limiter != nil && !h.limiter.Allow(ipAddress) {
		body := map[string]string{
			"error": "too many login attempts, try again later",
		}
		if until := h.limiter.BlockedUntil(ipAddress); !until.IsZero() {
			retry := time.Until(until).Round(time.Second)
			if retry < time.Second {
				retry = time.Second
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
			body["blocked_until"] = until.UTC().Format(time.RFC3339)
		}
		return c.JSON(http.StatusTooManyRequests, body)
	}

	resp, err := h.authSvc.Login(req, ipAddress, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.recordAudit(0, req.Username, models.ActionLoginFailed, "invalid credentials", ipAddress)
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid username or password",
			})
		case errors.Is(err, auth.ErrAccountDisabled):
			h.recordAudit(0, req.Username, models.ActionLoginFailed, "account disabled", ipAddress)
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "account is disabled, contact an administrator",
			})
		default:
			h.log.Error("login: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "authentication failed",
			})
		}
	}

	if h.limiter != nil {
		h.limiter.RecordSuccess(ipAddress)
	}
	h.recordAudit(resp.User.ID, resp.User.Username, models.ActionLogin, "", ipAddress)
	if err := h.users.UpdateLastLogin(resp.User.ID); err != nil {
		h.log.Error("update last login: %v", err)
	}

	// The cookie lifetime mirrors the session's absolute expiry.
	c.SetCookie(&http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	return c.JSON(http.StatusOK, resp)
}

// logout handles POST /api/auth/logout
func (h *Handlers) logout(c echo.Context) error {
	token := auth.TokenFromRequest(c)

	ok, err := h.authSvc.DestroySession(token)
	if err != nil {
		h.log.Error("logout: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "logout failed",
		})
	}
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "no session token",
		})
	}

	h.recordAudit(0, "", models.ActionLogout, "", c.RealIP())

	// Clear cookie
	c.SetCookie(&http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// me handles GET /api/auth/me
func (h *Handlers) me(c echo.Context) error {
	user, err := h.authSvc.GetUserFromSession(auth.TokenFromRequest(c))
	if err != nil {
		h.log.Error("current user lookup: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "session lookup failed",
		})
	}
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid or expired session",
		})
	}

	return c.JSON(http.StatusOK, user)
}

// cleanupSessions handles POST /api/auth/sessions/cleanup (admin only).
// A deployment normally triggers this from a periodic job. The same sweep
// prunes audit events past the configured retention.
func (h *Handlers) cleanupSessions(c echo.Context) error {
	count, err := h.authSvc.CleanupExpiredSessions()
	if err != nil {
		h.log.Error("session sweep: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "session cleanup failed",
		})
	}

	var auditPruned int64
	if h.auditRetention > 0 {
		auditPruned, err = h.audit.DeleteOlderThan(time.Now().Add(-h.auditRetention))
		if err != nil {
			h.log.Error("audit retention sweep: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "audit cleanup failed",
			})
		}
	}

	actor, _ := c.Get(auth.ContextKeyUser).(*models.User)
	if actor != nil {
		h.recordAudit(actor.ID, actor.Username, models.ActionSessionSweep, "", c.RealIP())
	}

	return c.JSON(http.StatusOK, map[string]int64{
		"deleted":      count,
		"audit_pruned": auditPruned,
	})
}

// listAuditEvents handles GET /api/auth/audit (admin only)
func (h *Handlers) listAuditEvents(c echo.Context) error {
	filter := models.AuditFilter{
		Action: c.QueryParam("action"),
		Limit:  100,
	}

	events, err := h.audit.List(filter)
	if err != nil {
		h.log.Error("audit list: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list audit events",
		})
	}

	return c.JSON(http.StatusOK, events)
}

// setUserDisabled handles PUT /api/auth/users/:id/disabled (admin only).
func (h *Handlers) setUserDisabled(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid user id",
		})
	}

	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	actor, _ := c.Get(auth.ContextKeyUser).(*models.User)
	if actor != nil && actor.ID == id && req.Disabled {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "cannot disable your own account",
		})
	}

	if err := h.users.SetDisabled(id, req.Disabled); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "user not found",
			})
		}
		h.log.Error("set user disabled: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to update user",
		})
	}

	detail := "enabled"
	if req.Disabled {
		detail = "disabled"
	}
	if actor != nil {
		h.recordAudit(actor.ID, actor.Username, models.ActionUserDisabled, detail, c.RealIP())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":       id,
		"disabled": req.Disabled,
	})
}

func (h *Handlers) recordAudit(userID int64, username, action, detail, ip string) {
	if err := h.audit.Record(userID, username, action, detail, ip); err != nil {
		h.log.Error("audit record: %v", err)
	}
}

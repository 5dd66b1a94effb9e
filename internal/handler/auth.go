package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harborhq/harbor/internal/auth"
	"github.com/harborhq/harbor/internal/config"
	"github.com/harborhq/harbor/internal/middleware"
	"github.com/harborhq/harbor/internal/model"
	"github.com/harborhq/harbor/internal/queue"
	"github.com/harborhq/harbor/internal/repository"
	"github.com/harborhq/harbor/internal/utils"
)

// UserStore is the slice of the user repository the auth handlers need.
type UserStore interface {
	Create(ctx context.Context, name, email, password string, roles []string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	BumpTokenVersion(ctx context.Context, id uint64) error
}

// AuditSink receives auth activity events. May be nil; auditing is
// best-effort and never blocks or fails a request.
type AuditSink interface {
	PublishAuthEvent(ctx context.Context, ev queue.AuthEvent) error
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Issuer   *auth.Issuer
	Verifier *auth.Verifier
	Rotator  *auth.Rotator
	Audit    AuditSink
}

func NewAuthHandler(cfg config.Config, users UserStore, issuer *auth.Issuer, verifier *auth.Verifier, rotator *auth.Rotator, audit AuditSink) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Issuer: issuer, Verifier: verifier, Rotator: rotator, Audit: audit}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
type authResp struct {
	User        userPart `json:"user"`
	AccessToken string   `json:"accessToken"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     u.Roles,
		Status:    u.Status(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func validCredentials(email, password string) string {
	if _, err := mail.ParseAddress(email); err != nil {
		return "valid email is required"
	}
	if len(password) < 8 {
		return "password must be at least 8 characters long"
	}
	return ""
}

// Register creates an account, issues a token pair, and opens the session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if msg := validCredentials(req.Email, req.Password); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Users.Create(ctx, req.Name, req.Email, req.Password,
		[]string{model.RoleEditor}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to register user"})
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to register user"})
	}

	pair, err := h.Issuer.IssuePair(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue tokens"})
	}
	h.setRefreshCookie(c, pair)
	h.audit(c, queue.KindRegister, u.ID, u.Email)

	return c.JSON(http.StatusCreated, authResp{User: toUserPart(u), AccessToken: pair.AccessToken})
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if msg := validCredentials(req.Email, req.Password); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to login"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is disabled"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := h.Issuer.IssuePair(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue tokens"})
	}
	h.setRefreshCookie(c, pair)
	h.audit(c, queue.KindLogin, u.ID, u.Email)

	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), AccessToken: pair.AccessToken})
}

// Refresh exchanges the refresh-token cookie for a new pair and rotates the
// cookie. Every expected rotation failure collapses into one 401 message;
// the precise cause is a server-log concern, not a client one. Infra faults
// stay 500 so an outage never logs users out.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, pair, err := h.Rotator.Rotate(ctx, refreshCookieValue(c))
	if err != nil {
		if isAuthFailure(err) {
			c.Logger().Infof("refresh denied: %v", err)
			h.audit(c, queue.KindRefreshDenied, 0, "")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unable to refresh session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to refresh session"})
	}

	h.setRefreshCookie(c, pair)
	return c.JSON(http.StatusOK, authResp{User: toUserPart(u), AccessToken: pair.AccessToken})
}

// Logout bumps the user's token version when the refresh cookie still
// resolves, which strands every refresh token minted for this account. The
// cookie is cleared no matter what; logout never fails from the caller's
// point of view.
func (h *AuthHandler) Logout(c echo.Context) error {
	defer h.clearRefreshCookie(c)

	if raw := refreshCookieValue(c); raw != "" {
		if claims, err := h.Verifier.VerifyRefresh(raw); err == nil {
			if id, err := strconv.ParseUint(claims.Subject, 10, 64); err == nil {
				ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
				defer cancel()
				if err := h.Users.BumpTokenVersion(ctx, id); err != nil {
					c.Logger().Errorf("logout: token version bump failed: %v", err)
				} else {
					h.audit(c, queue.KindRevoke, id, "")
				}
			}
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

func isAuthFailure(err error) bool {
	for _, target := range []error{
		auth.ErrRefreshMissing, auth.ErrRefreshInvalid, auth.ErrRefreshExpired,
		auth.ErrTokenRevoked, auth.ErrUserInactive, auth.ErrUserDisabled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *AuthHandler) audit(c echo.Context, kind string, userID uint64, email string) {
	if h.Audit == nil {
		return
	}
	ev := queue.AuthEvent{
		Kind:   kind,
		UserID: userID,
		Email:  email,
		IP:     c.RealIP(),
		At:     time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Audit.PublishAuthEvent(ctx, ev)
	}()
}

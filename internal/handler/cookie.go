package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harborhq/harbor/internal/auth"
)

// RefreshCookieName is where the refresh token travels. HttpOnly keeps it
// away from page scripts; the access token never touches a cookie.
const RefreshCookieName = "refreshToken"

func (h *AuthHandler) setRefreshCookie(c echo.Context, pair auth.TokenPair) {
	c.SetCookie(h.refreshCookie(pair.RefreshToken, time.Until(pair.RefreshExpiresAt)))
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(h.refreshCookie("", -time.Hour))
}

func (h *AuthHandler) refreshCookie(value string, maxAge time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.Cfg.IsProd() {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   h.Cfg.IsProd(),
		SameSite: sameSite,
	}
}

func refreshCookieValue(c echo.Context) string {
	ck, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

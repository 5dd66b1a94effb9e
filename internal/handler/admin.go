package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harborhq/harbor/internal/model"
)

// UserAdminStore is the slice of the user repository the admin handlers need.
type UserAdminStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	BumpTokenVersion(ctx context.Context, id uint64) error
}

// AdminHandler exposes account administration. Routes are mounted behind
// the admin role.
type AdminHandler struct {
	Users UserAdminStore
}

func NewAdminHandler(users UserAdminStore) *AdminHandler { return &AdminHandler{Users: users} }

type statusReq struct {
	Status string `json:"status"` // "active" or "disabled"
}

// SetUserStatus enables or disables an account. Disabling also bumps the
// token version so the user's refresh tokens die immediately instead of at
// the next rotation.
func (h *AdminHandler) SetUserStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var active bool
	switch req.Status {
	case "active":
		active = true
	case "disabled":
		active = false
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be active or disabled"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}
	if err := h.Users.SetActive(ctx, id, active); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}
	if !active {
		if err := h.Users.BumpTokenVersion(ctx, id); err != nil {
			c.Logger().Errorf("disable user %d: token version bump failed: %v", id, err)
		}
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

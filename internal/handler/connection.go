package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harborhq/harbor/internal/middleware"
	"github.com/harborhq/harbor/internal/model"
	"github.com/harborhq/harbor/internal/repository"
	"github.com/harborhq/harbor/internal/utils"
)

// ConnectionStore is the slice of the connection repository the handlers need.
type ConnectionStore interface {
	Create(ctx context.Context, c model.Connection) (model.Connection, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Connection, error)
	Get(ctx context.Context, ownerID, id uint64) (model.Connection, error)
	Update(ctx context.Context, c model.Connection) (model.Connection, error)
	Delete(ctx context.Context, ownerID, id uint64) error
}

// ConnectionHandler manages stored database connections. Passwords are
// sealed with the server key before they reach the repository and are never
// included in responses.
type ConnectionHandler struct {
	Conns ConnectionStore
	Key   []byte // AES key for sealing connection passwords
}

func NewConnectionHandler(conns ConnectionStore, key []byte) *ConnectionHandler {
	return &ConnectionHandler{Conns: conns, Key: key}
}

type connectionReq struct {
	Name         *string `json:"name"`
	DBType       *string `json:"dbType"`
	Host         *string `json:"host"`
	Port         *int    `json:"port"`
	Username     *string `json:"username"`
	Password     *string `json:"password"`
	DatabaseName *string `json:"databaseName"`
}

// connectionPart is the "safe config" shape: everything but the credential.
type connectionPart struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	DBType       string    `json:"dbType"`
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	Username     string    `json:"username"`
	DatabaseName string    `json:"databaseName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toConnectionPart(c model.Connection) connectionPart {
	return connectionPart{
		ID:           c.ID,
		Name:         c.Name,
		DBType:       c.DBType,
		Host:         c.Host,
		Port:         c.Port,
		Username:     c.Username,
		DatabaseName: c.DatabaseName,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func validDBType(t string) bool {
	switch t {
	case model.DBTypePostgres, model.DBTypeSQLServer, model.DBTypeMySQL:
		return true
	}
	return false
}

func (h *ConnectionHandler) Create(c echo.Context) error {
	var req connectionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	conn := model.Connection{OwnerID: middleware.UserID(c)}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "connection name is required"})
	}
	conn.Name = strings.TrimSpace(*req.Name)
	if req.DBType == nil || !validDBType(*req.DBType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid database type"})
	}
	conn.DBType = *req.DBType
	if req.Host == nil || strings.TrimSpace(*req.Host) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "host is required"})
	}
	conn.Host = strings.TrimSpace(*req.Host)
	if req.Port == nil || *req.Port < 1 || *req.Port > 65535 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid port number is required"})
	}
	conn.Port = *req.Port
	if req.Username == nil || strings.TrimSpace(*req.Username) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username is required"})
	}
	conn.Username = strings.TrimSpace(*req.Username)
	if req.Password == nil || *req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is required"})
	}
	if req.DatabaseName == nil || strings.TrimSpace(*req.DatabaseName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "database name is required"})
	}
	conn.DatabaseName = strings.TrimSpace(*req.DatabaseName)

	sealed, err := utils.SealSecret(h.Key, *req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store credentials"})
	}
	conn.PasswordSealed = sealed

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	created, err := h.Conns.Create(ctx, conn)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create connection"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "database connection created",
		"connection": toConnectionPart(created),
	})
}

func (h *ConnectionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conns, err := h.Conns.ListByOwner(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list connections"})
	}
	out := make([]connectionPart, 0, len(conns))
	for _, cn := range conns {
		out = append(out, toConnectionPart(cn))
	}
	return c.JSON(http.StatusOK, echo.Map{"connections": out})
}

func (h *ConnectionHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conn, err := h.Conns.Get(ctx, middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "connection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch connection"})
	}
	return c.JSON(http.StatusOK, echo.Map{"connection": toConnectionPart(conn)})
}

func (h *ConnectionHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req connectionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conn, err := h.Conns.Get(ctx, middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "connection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch connection"})
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "connection name cannot be empty"})
		}
		conn.Name = strings.TrimSpace(*req.Name)
	}
	if req.DBType != nil {
		if !validDBType(*req.DBType) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid database type"})
		}
		conn.DBType = *req.DBType
	}
	if req.Host != nil && strings.TrimSpace(*req.Host) != "" {
		conn.Host = strings.TrimSpace(*req.Host)
	}
	if req.Port != nil {
		if *req.Port < 1 || *req.Port > 65535 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid port number is required"})
		}
		conn.Port = *req.Port
	}
	if req.Username != nil && strings.TrimSpace(*req.Username) != "" {
		conn.Username = strings.TrimSpace(*req.Username)
	}
	if req.Password != nil && *req.Password != "" {
		sealed, err := utils.SealSecret(h.Key, *req.Password)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store credentials"})
		}
		conn.PasswordSealed = sealed
	}
	if req.DatabaseName != nil && strings.TrimSpace(*req.DatabaseName) != "" {
		conn.DatabaseName = strings.TrimSpace(*req.DatabaseName)
	}

	updated, err := h.Conns.Update(ctx, conn)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "connection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update connection"})
	}
	return c.JSON(http.StatusOK, echo.Map{"connection": toConnectionPart(updated)})
}

func (h *ConnectionHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Conns.Delete(ctx, middleware.UserID(c), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "connection not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete connection"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "connection deleted"})
}

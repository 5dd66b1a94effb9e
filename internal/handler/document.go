package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harborhq/harbor/internal/middleware"
	"github.com/harborhq/harbor/internal/model"
	"github.com/harborhq/harbor/internal/repository"
)

// DocumentStore is the slice of the document repository the handlers need.
type DocumentStore interface {
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Document, error)
	Create(ctx context.Context, ownerID uint64, name, xmlContent string) (model.Document, error)
	Get(ctx context.Context, ownerID, id uint64) (model.Document, error)
	Update(ctx context.Context, ownerID, id uint64, name, xmlContent *string) (model.Document, error)
	Delete(ctx context.Context, ownerID, id uint64) error
	ListVersions(ctx context.Context, ownerID, id uint64) ([]model.DocumentVersion, error)
}

type DocumentHandler struct {
	Docs DocumentStore
}

func NewDocumentHandler(docs DocumentStore) *DocumentHandler { return &DocumentHandler{Docs: docs} }

type documentReq struct {
	Name       *string `json:"name"`
	XMLContent *string `json:"xmlContent"`
}

type documentPart struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	XMLContent string    `json:"xmlContent"`
	Version    uint32    `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type documentVersionPart struct {
	Version    uint32    `json:"version"`
	XMLContent string    `json:"xmlContent"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toDocumentPart(d model.Document) documentPart {
	return documentPart{
		ID:         d.ID,
		Name:       d.Name,
		XMLContent: d.XMLContent,
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (h *DocumentHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	docs, err := h.Docs.ListByOwner(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list documents"})
	}
	out := make([]documentPart, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentPart(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"documents": out})
}

func (h *DocumentHandler) Create(c echo.Context) error {
	var req documentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.XMLContent == nil || strings.TrimSpace(*req.XMLContent) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "xml content is required"})
	}
	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		name = fmt.Sprintf("Model %s", time.Now().UTC().Format("2006-01-02 15:04:05"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Docs.Create(ctx, middleware.UserID(c), name, strings.TrimSpace(*req.XMLContent))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create document"})
	}
	return c.JSON(http.StatusCreated, toDocumentPart(d))
}

func (h *DocumentHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Docs.Get(ctx, middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch document"})
	}
	return c.JSON(http.StatusOK, toDocumentPart(d))
}

func (h *DocumentHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req documentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		req.Name = &trimmed
	}
	if req.XMLContent != nil {
		trimmed := strings.TrimSpace(*req.XMLContent)
		req.XMLContent = &trimmed
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Docs.Update(ctx, middleware.UserID(c), id, req.Name, req.XMLContent)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update document"})
	}
	return c.JSON(http.StatusOK, toDocumentPart(d))
}

func (h *DocumentHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Docs.Delete(ctx, middleware.UserID(c), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete document"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "document deleted"})
}

func (h *DocumentHandler) Versions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	versions, err := h.Docs.ListVersions(ctx, middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list versions"})
	}
	out := make([]documentVersionPart, 0, len(versions))
	for _, v := range versions {
		out = append(out, documentVersionPart{Version: v.Version, XMLContent: v.XMLContent, CreatedAt: v.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"versions": out})
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

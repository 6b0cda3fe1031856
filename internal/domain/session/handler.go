package session

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/consults/:id/drafts/:key", h.GetDraft)
	api.PUT("/consults/:id/drafts/:key", h.SetDraft)
	api.DELETE("/consults/:id/drafts", h.ClearDrafts)
	api.POST("/consults/:id/drafts/purge", h.PurgeOthers)
}

func (h *Handler) GetDraft(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	value, ok := h.store.Get(id, c.Param("key"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "draft not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"key": c.Param("key"), "value": value})
}

type setDraftRequest struct {
	Value string `json:"value"`
}

func (h *Handler) SetDraft(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setDraftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.store.Set(id, c.Param("key"), req.Value)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearDrafts(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	h.store.Clear(id)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PurgeOthers(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	h.store.PurgeOthers(id)
	return c.NoContent(http.StatusNoContent)
}

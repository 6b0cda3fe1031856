package consult

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vetscribe/vetscribe/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/consults", h.CreateConsult)
	api.GET("/consults/:id", h.GetConsult)
	api.GET("/patients/:id/consults", h.ListByPatient)
	api.GET("/consults/:id/segments", h.ListSegments)
	api.POST("/consults/:id/autosave", h.Autosave)
	api.POST("/consults/:id/finalize", h.Finalize)
	api.GET("/consults/:id/lineage", h.ListLineage)
}

type createConsultRequest struct {
	PatientID  uuid.UUID `json:"patientId"`
	ReportType string    `json:"reportType"`
}

func (h *Handler) CreateConsult(c echo.Context) error {
	var req createConsultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	consult, err := h.svc.CreateConsult(c.Request().Context(), req.PatientID, req.ReportType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, consult)
}

func (h *Handler) GetConsult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	consult, err := h.svc.GetConsult(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "consult not found")
	}
	return c.JSON(http.StatusOK, consult)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	consults, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(consults, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListSegments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	segments, err := h.svc.ListSegments(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if segments == nil {
		segments = []*TranscriptionSegment{}
	}
	return c.JSON(http.StatusOK, segments)
}

type sectionsRequest struct {
	Sections map[string]string `json:"sections"`
}

func (h *Handler) Autosave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req sectionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Autosave(c.Request().Context(), id, req.Sections); err != nil {
		if errors.Is(err, ErrFinalized) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Finalize(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req sectionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	consult, err := h.svc.Finalize(c.Request().Context(), id, req.Sections)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, consult)
}

func (h *Handler) ListLineage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entries, err := h.svc.ListLineage(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []*RegenerationLineage{}
	}
	return c.JSON(http.StatusOK, entries)
}

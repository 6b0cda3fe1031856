package report

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vetscribe/vetscribe/internal/domain/patient"
	"github.com/vetscribe/vetscribe/internal/platform/ai"
)

type Handler struct {
	manager  *Manager
	consults ConsultStore
	patients *patient.Service
}

func NewHandler(manager *Manager, consults ConsultStore, patients *patient.Service) *Handler {
	return &Handler{manager: manager, consults: consults, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/consults/:id/report/generate", h.Generate)
	api.GET("/consults/:id/report", h.GetReport)
	api.PUT("/consults/:id/report/sections/:key", h.SetSection)
	api.POST("/consults/:id/report/sections/:key/regenerate", h.RegenerateSection)
	api.POST("/consults/:id/report/regenerate", h.RegenerateDocument)
}

type instructionRequest struct {
	Instruction string `json:"instruction"`
}

func (h *Handler) Generate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req instructionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	consultRec, err := h.consults.GetConsult(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "consult not found")
	}

	// Generation goes through the manager so an open editor is refreshed
	// with the persisted result instead of flushing stale working state
	// over it.
	result, err := h.manager.Generate(ctx, Request{
		ConsultID:   id,
		RawInput:    deref(consultRec.OriginalInput),
		ReportType:  consultRec.ReportType,
		Patient:     h.patientContext(c, consultRec.PatientID),
		Instruction: req.Instruction,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	editor, err := h.manager.Editor(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "consult not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sections": editor.Sections()})
}

type setSectionRequest struct {
	Text string `json:"text"`
}

func (h *Handler) SetSection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setSectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	editor, err := h.manager.Editor(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "consult not found")
	}
	if err := editor.SetSection(c.Param("key"), req.Text); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sections": editor.Sections()})
}

func (h *Handler) RegenerateSection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req instructionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	editor, err := h.manager.Editor(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "consult not found")
	}
	text, err := editor.RegenerateSection(c.Request().Context(), c.Param("key"), req.Instruction)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"key": canonicalKey(c.Param("key")), "text": text})
}

func (h *Handler) RegenerateDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req instructionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	editor, err := h.manager.Editor(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "consult not found")
	}
	result, err := editor.RegenerateDocument(c.Request().Context(), req.Instruction)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) patientContext(c echo.Context, patientID uuid.UUID) ai.PatientContext {
	p, err := h.patients.GetPatient(c.Request().Context(), patientID)
	if err != nil {
		return ai.PatientContext{}
	}
	pc := ai.PatientContext{PatientID: p.ID.String(), Name: p.Name}
	if p.Species != nil {
		pc.Species = *p.Species
	}
	if p.Breed != nil {
		pc.Breed = *p.Breed
	}
	if p.Sex != nil {
		pc.Sex = *p.Sex
	}
	if p.WeightKG != nil {
		pc.WeightKG = strconv.FormatFloat(*p.WeightKG, 'f', -1, 64)
	}
	return pc
}

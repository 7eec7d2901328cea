package assessment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
	"github.com/fhirspective/fhirspective/internal/platform/fhirclient"
)

type Handler struct {
	engine   *Engine
	repo     Repository
	progress *ProgressStore
}

func NewHandler(engine *Engine, repo Repository, progress *ProgressStore) *Handler {
	return &Handler{engine: engine, repo: repo, progress: progress}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/assessments", h.CreateAssessment)
	api.GET("/assessments/:id", h.GetAssessment)
	api.GET("/assessments/:id/progress", h.GetProgress)
	api.GET("/assessments/:id/results", h.GetResults)
	api.GET("/assessments/:id/logs", h.GetLogs)
}

// createAssessmentRequest is the POST body for starting an assessment.
type createAssessmentRequest struct {
	Server        fhirclient.ServerConfig `json:"server"`
	ResourceTypes []string                `json:"resourceTypes"`
	SampleSize    int                     `json:"sampleSize"`
	Dimensions    []fhir.Dimension        `json:"dimensions"`
	Validator     string                  `json:"validator"`
	Framework     string                  `json:"framework"`
	Guide         string                  `json:"implementationGuide"`
}

func (h *Handler) CreateAssessment(c echo.Context) error {
	var req createAssessmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a := &Assessment{
		Server:        req.Server,
		ResourceTypes: req.ResourceTypes,
		SampleSize:    req.SampleSize,
		Dimensions:    req.Dimensions,
		Validator:     req.Validator,
		Framework:     req.Framework,
		Guide:         req.Guide,
	}
	a, err := h.engine.StartAssessment(c.Request().Context(), a)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, a)
}

func (h *Handler) GetAssessment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assessment id")
	}
	a, err := h.repo.GetAssessment(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

// GetProgress serves the live progress snapshot. Once a terminal run's
// snapshot has been evicted, the persisted assessment still answers with its
// final status.
func (h *Handler) GetProgress(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assessment id")
	}
	if state, ok := h.progress.Snapshot(id); ok {
		return c.JSON(http.StatusOK, state)
	}

	a, err := h.repo.GetAssessment(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	state := ProgressState{AssessmentID: a.ID, Status: a.Status}
	if a.Status == StatusCompleted {
		state.OverallProgress = 100
	}
	if a.CompletedAt != nil {
		state.UpdatedAt = *a.CompletedAt
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) GetResults(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assessment id")
	}
	a, err := h.repo.GetAssessment(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	results, err := h.repo.ListResults(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	sortResultsByType(results, a.ResourceTypes)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"assessmentId": a.ID,
		"status":       a.Status,
		"results":      results,
	})
}

func (h *Handler) GetLogs(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assessment id")
	}
	if _, err := h.repo.GetAssessment(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	logs, err := h.repo.ListLogs(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, logs)
}

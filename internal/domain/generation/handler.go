package generation

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/exermed/exermed/internal/platform/auth"
	"github.com/exermed/exermed/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "planner", "operator"))
	readGroup.GET("/generations", h.ListJobs)
	readGroup.GET("/generations/:id", h.GetJob)
	readGroup.GET("/generations/:id/result", h.DownloadResult)

	writeGroup := api.Group("", auth.RequireRole("admin", "planner"))
	writeGroup.POST("/generations", h.StartJob)
	writeGroup.POST("/generations/:id/cancel", h.CancelJob)
	writeGroup.DELETE("/generations/:id", h.DeleteJob)
}

func (h *Handler) StartJob(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	job, err := h.svc.Start(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, job)
}

func (h *Handler) GetJob(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	job, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "generation job not found")
	}
	return c.JSON(http.StatusOK, job)
}

func (h *Handler) ListJobs(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DownloadResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	data, job, err := h.svc.Result(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+job.FileName+`"`)
	return c.Blob(http.StatusOK, contentTypeFor(job.FileName), data)
}

func (h *Handler) CancelJob(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	job, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "generation job not found")
	}
	return c.JSON(http.StatusAccepted, job)
}

func (h *Handler) DeleteJob(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func contentTypeFor(fileName string) string {
	switch {
	case strings.HasSuffix(fileName, ".enc"):
		return "application/octet-stream"
	case strings.HasSuffix(fileName, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(fileName, ".xml"):
		return "application/fhir+xml"
	default:
		return "application/fhir+json"
	}
}

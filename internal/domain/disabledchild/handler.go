package disabledchild

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
	"github.com/clinic/registry/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/disabled-children", h.ListDisabledChildren)
	api.GET("/disabled-children/:id", h.GetDisabledChild)
	api.POST("/disabled-children", h.CreateDisabledChild)
	api.PUT("/disabled-children/:id", h.UpdateDisabledChild)
	api.DELETE("/disabled-children/:id", h.DeleteDisabledChild)
}

var searchParams = []string{"q", "insurance_number", "status", "palliative"}

func (h *Handler) CreateDisabledChild(c echo.Context) error {
	var dc DisabledChild
	if err := c.Bind(&dc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDisabledChild(c.Request().Context(), &dc); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, dc)
}

func (h *Handler) GetDisabledChild(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	dc, err := h.svc.GetDisabledChild(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dc)
}

func (h *Handler) ListDisabledChildren(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := pagination.Filters(c, searchParams...)
	children, total, err := h.svc.SearchDisabledChildren(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(children, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) UpdateDisabledChild(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var dc DisabledChild
	if err := c.Bind(&dc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dc.ID = id
	if err := h.svc.UpdateDisabledChild(c.Request().Context(), &dc); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dc)
}

func (h *Handler) DeleteDisabledChild(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDisabledChild(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "disabled-child record not found")
	}
	return validation.HTTPError(err)
}

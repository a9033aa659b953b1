package reporting

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/registry/internal/domain/validation"
)

// Handler serves registry measures as JSON and XLSX.
type Handler struct {
	eval Evaluator
}

func NewHandler(eval Evaluator) *Handler {
	return &Handler{eval: eval}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("", h.ListMeasures)
	g.GET("/:id", h.EvaluateMeasure)
	g.GET("/:id/xlsx", h.ExportMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, Measures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	report, err := h.evaluate(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) ExportMeasure(c echo.Context) error {
	report, err := h.evaluate(c)
	if err != nil {
		return err
	}
	data, err := WriteXLSX(report)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed").SetInternal(err)
	}
	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s-%s.xlsx", report.MeasureID, report.GeneratedAt.Format("20060102")))
	return c.Blob(http.StatusOK, XLSXContentType, data)
}

// evaluate reads the optional from/to query params (YYYY-MM-DD) and runs the measure.
func (h *Handler) evaluate(c echo.Context) (*Report, error) {
	from, to, err := validation.ParseDateRange(map[string]string{
		"from": c.QueryParam("from"),
		"to":   c.QueryParam("to"),
	}, "from", "to")
	if err != nil {
		return nil, validation.HTTPError(err)
	}

	report, err := h.eval.Evaluate(c.Request().Context(), c.Param("id"), from, to)
	if err != nil {
		if errors.Is(err, ErrUnknownMeasure) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "measure not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	return report, nil
}

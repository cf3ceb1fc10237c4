package report

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medsched/medsched/internal/platform/auth"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	reports := api.Group("/reports", auth.RequireRole(auth.RoleAdmin))
	reports.GET("/doctors", h.DoctorActivity)
	reports.GET("/specialties", h.SpecialtyActivity)
	reports.GET("/daily", h.DailyVolume)
	reports.GET("/attendance", h.Attendance)
}

// rangeFromQuery parses optional ?from= and ?to= bounds; the service fills
// defaults for missing ones.
func rangeFromQuery(c echo.Context) (DateRange, error) {
	var r DateRange
	if v := c.QueryParam("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			return r, echo.NewHTTPError(http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		}
		r.From = from
	}
	if v := c.QueryParam("to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			return r, echo.NewHTTPError(http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		}
		r.To = to
	}
	return r, nil
}

func (h *Handler) DoctorActivity(c echo.Context) error {
	r, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.DoctorActivity(c.Request().Context(), r)
	if err != nil {
		return mapReportErr(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SpecialtyActivity(c echo.Context) error {
	r, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.SpecialtyActivity(c.Request().Context(), r)
	if err != nil {
		return mapReportErr(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DailyVolume(c echo.Context) error {
	r, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.DailyVolume(c.Request().Context(), r)
	if err != nil {
		return mapReportErr(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Attendance(c echo.Context) error {
	r, err := rangeFromQuery(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.Attendance(c.Request().Context(), r)
	if err != nil {
		return mapReportErr(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func mapReportErr(err error) error {
	if errors.Is(err, ErrInvalidRange) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

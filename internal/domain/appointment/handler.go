package appointment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medsched/medsched/internal/platform/auth"
	"github.com/medsched/medsched/pkg/pagination"
	"github.com/medsched/medsched/pkg/timeofday"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc      *Service
	patients PatientSource
}

func NewHandler(svc *Service, patients PatientSource) *Handler {
	return &Handler{svc: svc, patients: patients}
}

// ownsPatient reports whether the caller may act on the given patient's
// appointments. Staff always may; a patient-role caller only for the patient
// record linked to their own account.
func (h *Handler) ownsPatient(c echo.Context, patientID uuid.UUID) bool {
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return true
	}
	p, err := h.patients.Get(ctx, patientID)
	if err != nil {
		return false
	}
	return p.UserID != nil && p.UserID.String() == auth.UserIDFromContext(ctx)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist))
	staff.POST("/appointments", h.Create)
	staff.GET("/appointments/code/:code", h.GetByCode)
	staff.GET("/doctors/:doctor_id/appointments", h.ListByDoctor)
	staff.POST("/appointments/:id/complete", h.Complete)
	staff.POST("/appointments/:id/no-show", h.MarkNoShow)
	staff.DELETE("/appointments/:id", h.Delete)

	// Patients can see availability, their own appointments, and confirm or
	// cancel them.
	anyRole := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleReceptionist, auth.RolePatient))
	anyRole.GET("/doctors/:doctor_id/availability", h.Availability)
	anyRole.GET("/appointments/:id", h.Get)
	anyRole.GET("/patients/:patient_id/appointments", h.ListByPatient)
	anyRole.POST("/appointments/:id/confirm", h.Confirm)
	anyRole.POST("/appointments/:id/cancel", h.Cancel)
}

func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	date, err := time.Parse(dateLayout, c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	duration := 30
	if d := c.QueryParam("duration"); d != "" {
		duration, err = strconv.Atoi(d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid duration")
		}
	}

	slots, err := h.svc.Availability(c.Request().Context(), doctorID, date, duration)
	if err != nil {
		if errors.Is(err, ErrInvalidDuration) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id":    doctorID,
		"date":         date.Format(dateLayout),
		"duration_min": duration,
		"slots":        slots,
	})
}

type createRequest struct {
	PatientID   uuid.UUID           `json:"patient_id"`
	DoctorID    uuid.UUID           `json:"doctor_id"`
	LocationID  uuid.UUID           `json:"location_id"`
	Date        string              `json:"date"`
	Start       timeofday.TimeOfDay `json:"start"`
	DurationMin int                 `json:"duration_min"`
	Reason      string              `json:"reason"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	a := &Appointment{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		LocationID:  req.LocationID,
		Date:        date,
		Start:       req.Start,
		DurationMin: req.DurationMin,
		Reason:      req.Reason,
	}
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		a.CreatedBy = &uid
	}

	if err := h.svc.Create(c.Request().Context(), a); err != nil {
		switch {
		case errors.Is(err, ErrSlotTaken):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrPatientUnavailable),
			errors.Is(err, ErrDoctorUnavailable),
			errors.Is(err, ErrPastDate),
			errors.Is(err, ErrInvalidDuration):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	// 404 rather than 403 so patients cannot probe other bookings.
	if !h.ownsPatient(c, a.PatientID) {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetByCode(c echo.Context) error {
	a, err := h.svc.GetByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	if !h.ownsPatient(c, patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only list their own appointments")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	var from, to *time.Time
	if f := c.QueryParam("from"); f != "" {
		t, err := time.Parse(dateLayout, f)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		from = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		to = &t
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.doTransition(c, h.svc.Confirm)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.doTransition(c, h.svc.Cancel)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.doTransition(c, h.svc.Complete)
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	return h.doTransition(c, h.svc.MarkNoShow)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrCompletedImmutable):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) doTransition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if auth.RoleFromContext(c.Request().Context()) == auth.RolePatient {
		current, err := h.svc.Get(c.Request().Context(), id)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		if !h.ownsPatient(c, current.PatientID) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
	}
	a, err := fn(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

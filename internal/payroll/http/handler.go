// Package payrollhttp serves draft autosave for open payroll periods.
package payrollhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/platform/httpx"
)

type draftService interface {
	SaveDraft(ctx context.Context, edit payroll.DraftEdit) (payroll.Record, error)
	AddEvent(ctx context.Context, ev payroll.Event) (payroll.Event, error)
}

// Handler accepts edits while a period is open.
type Handler struct {
	logger    *slog.Logger
	drafts    draftService
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, drafts draftService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, drafts: drafts, validator: validator.New()}
}

// MountRoutes registers the draft routes under /api/payroll/periods.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/{id}/records/{employeeId}", h.handleSaveRecord)
	r.Post("/{id}/events", h.handleAddEvent)
}

type recordRequest struct {
	BaseSalary decimal.Decimal `json:"baseSalary"`
	WorkedDays int             `json:"workedDays" validate:"gte=0,lte=30"`
}

type eventRequest struct {
	EmployeeID           int64             `json:"employeeId" validate:"required,gt=0"`
	Type                 payroll.EventType `json:"type" validate:"required"`
	Subtype              string            `json:"subtype" validate:"max=64"`
	Value                decimal.Decimal   `json:"value"`
	Days                 int               `json:"days" validate:"gte=0,lte=30"`
	Hours                decimal.Decimal   `json:"hours"`
	ConstitutiveOfSalary bool              `json:"constitutiveOfSalary"`
}

func (h *Handler) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	employeeID, ok := pathID(w, r, "employeeId")
	if !ok {
		return
	}
	var req recordRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	rec, err := h.drafts.SaveDraft(r.Context(), payroll.DraftEdit{
		PeriodID:   periodID,
		EmployeeID: employeeID,
		BaseSalary: req.BaseSalary,
		WorkedDays: req.WorkedDays,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	periodID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req eventRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	ev, err := h.drafts.AddEvent(r.Context(), payroll.Event{
		PeriodID:             periodID,
		EmployeeID:           req.EmployeeID,
		Type:                 req.Type,
		Subtype:              req.Subtype,
		Value:                req.Value,
		Days:                 req.Days,
		Hours:                req.Hours,
		ConstitutiveOfSalary: req.ConstitutiveOfSalary,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ev)
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return httpx.Validate(h.validator, target)
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+key)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrValidation),
		errors.Is(err, payroll.ErrInvalidSalary),
		errors.Is(err, payroll.ErrInvalidWorkedDays),
		errors.Is(err, payroll.ErrInvalidEvent):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, period.ErrPeriodNotFound), errors.Is(err, payroll.ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, period.ErrPeriodClosed), errors.Is(err, payroll.ErrSaveInProgress):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("draft save failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

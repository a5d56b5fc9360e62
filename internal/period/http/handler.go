// Package periodhttp exposes the period catalog over HTTP.
package periodhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

type periodService interface {
	Get(ctx context.Context, companyID, periodID int64) (period.Period, error)
	Catalog(ctx context.Context, companyID int64, year int) ([]period.Slot, error)
	Detect(ctx context.Context, companyID int64, start, end time.Time) (period.Detection, error)
	CreateSlot(ctx context.Context, companyID int64, year, seq int) (period.Period, bool, error)
	EnsureYear(ctx context.Context, companyID int64, year int) (period.EnsureYearResult, error)
	Select(ctx context.Context, req period.SelectionRequest) (period.Selection, error)
}

// Handler serves /api/periods.
type Handler struct {
	logger    *slog.Logger
	service   periodService
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service periodService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the period routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/catalog", h.handleCatalog)
	r.Post("/detect", h.handleDetect)
	r.Post("/select", h.handleSelect)
	r.Post("/ensure-year", h.handleEnsureYear)
	r.Post("/slots", h.handleCreateSlot)
	r.Get("/{id}", h.handleGet)
}

type rangeRequest struct {
	CompanyID      int64  `json:"companyId" validate:"required,gt=0"`
	StartDate      string `json:"startDate" validate:"required_without=ResumePeriodID,omitempty,datetime=2006-01-02"`
	EndDate        string `json:"endDate" validate:"required_without=ResumePeriodID,omitempty,datetime=2006-01-02"`
	ResumePeriodID int64  `json:"resumePeriodId" validate:"gte=0"`
}

func (r rangeRequest) dates() (time.Time, time.Time) {
	start, _ := time.Parse(dateLayout, r.StartDate)
	end, _ := time.Parse(dateLayout, r.EndDate)
	return start, end
}

type yearRequest struct {
	CompanyID int64 `json:"companyId" validate:"required,gt=0"`
	Year      int   `json:"year" validate:"omitempty,gte=2000,lte=2100"`
}

type slotRequest struct {
	CompanyID int64 `json:"companyId" validate:"required,gt=0"`
	Year      int   `json:"year" validate:"required,gte=2000,lte=2100"`
	Sequence  int   `json:"sequence" validate:"required,gt=0"`
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return httpx.Validate(h.validator, target)
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt(r, "companyId")
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "companyId is required")
		return
	}
	year, err := queryInt(r, "year")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
		return
	}
	slots, err := h.service.Catalog(r.Context(), companyID, int(year))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companyId": companyID, "slots": slots})
}

func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	start, end := req.dates()
	det, err := h.service.Detect(r.Context(), req.CompanyID, start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, det)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	start, end := req.dates()
	sel, err := h.service.Select(r.Context(), period.SelectionRequest{
		CompanyID:      req.CompanyID,
		StartDate:      start,
		EndDate:        end,
		ResumePeriodID: req.ResumePeriodID,
	})
	if errors.Is(err, period.ErrPeriodConflict) && sel.Conflict != nil {
		httpx.JSON(w, http.StatusConflict, sel)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if sel.Created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, sel)
}

func (h *Handler) handleEnsureYear(w http.ResponseWriter, r *http.Request) {
	var req yearRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.EnsureYear(r.Context(), req.CompanyID, req.Year)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	p, created, err := h.service.CreateSlot(r.Context(), req.CompanyID, req.Year, req.Sequence)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period id")
		return
	}
	companyID, err := queryInt(r, "companyId")
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "companyId is required")
		return
	}
	p, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func queryInt(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrValidation),
		errors.Is(err, period.ErrInvalidRange),
		errors.Is(err, period.ErrInvalidSequence),
		errors.Is(err, period.ErrInvalidPeriodicity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, period.ErrPeriodNotFound), errors.Is(err, period.ErrCompanyMismatch):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, period.ErrPeriodConflict), errors.Is(err, period.ErrPeriodClosed):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("period request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

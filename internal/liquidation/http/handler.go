package liquidationhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nomina-co/nomina/internal/liquidation"
	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/platform/httpx"
	"github.com/nomina-co/nomina/internal/shared"
	"github.com/nomina-co/nomina/internal/validation"
	"github.com/nomina-co/nomina/internal/voucher"
)

type liquidationService interface {
	Validate(ctx context.Context, periodID, companyID int64) (validation.Result, error)
	Liquidate(ctx context.Context, in liquidation.Input) (liquidation.Result, error)
	RepairPeriod(ctx context.Context, periodID, companyID, actorID int64) (liquidation.RepairResult, error)
	Reliquidate(ctx context.Context, in liquidation.ReliquidationInput) (liquidation.ReliquidationResult, error)
	AuditTrail(ctx context.Context, periodID int64) ([]shared.AuditLog, error)
	Corrections(ctx context.Context, periodID int64) ([]liquidation.Correction, error)
}

type voucherLister interface {
	List(ctx context.Context, periodID int64) ([]voucher.Voucher, error)
}

// Handler exposes the liquidation engine as JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	service   liquidationService
	vouchers  voucherLister
	validator *validator.Validate
}

// NewHandler constructs a Handler. vouchers may be nil.
func NewHandler(logger *slog.Logger, service liquidationService, vouchers voucherLister) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, vouchers: vouchers, validator: validator.New()}
}

// MountRoutes registers the routes under /api/payroll/periods.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/validate", h.handleValidate)
	r.Post("/liquidate", h.handleLiquidate)
	r.Post("/repair", h.handleRepair)
	r.Post("/reliquidate", h.handleReliquidate)
	r.Get("/{id}/audit", h.handleAudit)
	r.Get("/{id}/corrections", h.handleCorrections)
	r.Get("/{id}/vouchers", h.handleVouchers)
}

type periodRequest struct {
	PeriodID  int64 `json:"periodId" validate:"required,gt=0"`
	CompanyID int64 `json:"companyId" validate:"required,gt=0"`
	ActorID   int64 `json:"actorId" validate:"gte=0"`
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return httpx.Validate(h.validator, target)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.Validate(r.Context(), req.PeriodID, req.CompanyID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	actorID := actor(r, req.ActorID)
	if actorID <= 0 {
		h.writeError(w, liquidation.ErrActorRequired)
		return
	}
	res, err := h.service.Liquidate(r.Context(), liquidation.Input{
		PeriodID:  req.PeriodID,
		CompanyID: req.CompanyID,
		ActorID:   actorID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if res.Status == liquidation.StatusNotAttempted {
		httpx.JSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleRepair(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.RepairPeriod(r.Context(), req.PeriodID, req.CompanyID, actor(r, req.ActorID))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleReliquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidation.ReliquidationInput
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	req.ActorID = actor(r, req.ActorID)
	if req.ActorID <= 0 {
		h.writeError(w, liquidation.ErrActorRequired)
		return
	}
	res, err := h.service.Reliquidate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	logs, err := h.service.AuditTrail(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periodId": id, "entries": logs})
}

func (h *Handler) handleCorrections(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	out, err := h.service.Corrections(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periodId": id, "corrections": out})
}

func (h *Handler) handleVouchers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.periodID(w, r)
	if !ok {
		return
	}
	if h.vouchers == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"periodId": id, "vouchers": []voucher.Voucher{}})
		return
	}
	out, err := h.vouchers.List(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periodId": id, "vouchers": out})
}

func (h *Handler) periodID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period id")
		return 0, false
	}
	return id, true
}

// actor prefers the authenticated actor over the one named in the body.
// Zero means neither was given.
func actor(r *http.Request, fromBody int64) int64 {
	if id := shared.ActorFromContext(r.Context()); id > 0 {
		return id
	}
	return fromBody
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrValidation),
		errors.Is(err, liquidation.ErrInvalidInput),
		errors.Is(err, liquidation.ErrJustificationRequired),
		errors.Is(err, liquidation.ErrNoAffectedEmployees),
		errors.Is(err, liquidation.ErrActorRequired),
		errors.Is(err, liquidation.ErrAdjustmentNoRecord),
		errors.Is(err, payroll.ErrInvalidEvent):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, period.ErrPeriodNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrPeriodBusy),
		errors.Is(err, period.ErrStaleVersion),
		errors.Is(err, period.ErrPeriodClosed),
		errors.Is(err, shared.ErrInvalidPeriodTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, liquidation.ErrNothingToLiquidate):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("liquidation request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

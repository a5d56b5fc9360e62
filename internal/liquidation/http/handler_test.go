package liquidationhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomina-co/nomina/internal/liquidation"
	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/shared"
	"github.com/nomina-co/nomina/internal/validation"
	"github.com/nomina-co/nomina/internal/voucher"
)

type stubService struct {
	liquidateRes liquidation.Result
	err          error
	lastInput    liquidation.Input
	lastReliq    liquidation.ReliquidationInput
	auditLogs    []shared.AuditLog
}

func (s *stubService) Validate(context.Context, int64, int64) (validation.Result, error) {
	return validation.Result{IsValid: true, Score: 100}, s.err
}

func (s *stubService) Liquidate(_ context.Context, in liquidation.Input) (liquidation.Result, error) {
	s.lastInput = in
	return s.liquidateRes, s.err
}

func (s *stubService) RepairPeriod(context.Context, int64, int64, int64) (liquidation.RepairResult, error) {
	return liquidation.RepairResult{EmployeesCount: 3, TotalsUpdated: true}, s.err
}

func (s *stubService) Reliquidate(_ context.Context, in liquidation.ReliquidationInput) (liquidation.ReliquidationResult, error) {
	s.lastReliq = in
	return liquidation.ReliquidationResult{EmployeesAffected: len(in.AffectedEmployeeIDs)}, s.err
}

func (s *stubService) AuditTrail(context.Context, int64) ([]shared.AuditLog, error) {
	return s.auditLogs, s.err
}

func (s *stubService) Corrections(context.Context, int64) ([]liquidation.Correction, error) {
	return []liquidation.Correction{}, s.err
}

type stubVouchers struct{}

func (stubVouchers) List(_ context.Context, periodID int64) ([]voucher.Voucher, error) {
	return []voucher.Voucher{{ID: 1, PeriodID: periodID, EmployeeID: 100, Status: voucher.StatusGenerated}}, nil
}

func newRouter(svc *stubService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, stubVouchers{})
	r := chi.NewRouter()
	r.Route("/api/payroll/periods", h.MountRoutes)
	return r
}

func do(t *testing.T, router http.Handler, method, path, body string, actorID int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actorID > 0 {
		req = req.WithContext(shared.ContextWithActor(req.Context(), actorID))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLiquidateReturnsResult(t *testing.T) {
	svc := &stubService{liquidateRes: liquidation.Result{Status: liquidation.StatusSucceeded, EmployeesProcessed: 2}}
	rec := do(t, newRouter(svc), http.MethodPost, "/api/payroll/periods/liquidate", `{"periodId":10,"companyId":1,"actorId":3}`, 9)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body liquidation.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, liquidation.StatusSucceeded, body.Status)
	assert.Equal(t, int64(9), svc.lastInput.ActorID, "authenticated actor wins over body")
}

func TestLiquidateNotAttemptedIsUnprocessable(t *testing.T) {
	svc := &stubService{liquidateRes: liquidation.Result{Status: liquidation.StatusNotAttempted, Message: "2 validaciones críticas fallidas"}}
	rec := do(t, newRouter(svc), http.MethodPost, "/api/payroll/periods/liquidate", `{"periodId":10,"companyId":1,"actorId":5}`, 0)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, int64(5), svc.lastInput.ActorID)
	assert.Contains(t, rec.Body.String(), "not_attempted")
}

func TestLiquidateRejectsInvalidBody(t *testing.T) {
	router := newRouter(&stubService{})
	for _, body := range []string{`{"periodId":0,"companyId":1}`, `{"periodId":1}`, `{"periodId":1,"companyId":1,"extra":true}`, `nope`} {
		rec := do(t, router, http.MethodPost, "/api/payroll/periods/liquidate", body, 0)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
}

func TestChangesWithoutActorAreRejected(t *testing.T) {
	svc := &stubService{liquidateRes: liquidation.Result{Status: liquidation.StatusSucceeded}}
	router := newRouter(svc)

	rec := do(t, router, http.MethodPost, "/api/payroll/periods/liquidate", `{"periodId":10,"companyId":1}`, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "acting user required")
	assert.Zero(t, svc.lastInput.PeriodID)

	rec = do(t, router, http.MethodPost, "/api/payroll/periods/reliquidate", `{"periodId":10,"companyId":1,"justification":"ajuste"}`, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.lastReliq.PeriodID)

	rec = do(t, router, http.MethodPost, "/api/payroll/periods/liquidate", `{"periodId":10,"companyId":1,"actorId":3}`, 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), svc.lastInput.ActorID)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: period 10", shared.ErrPeriodBusy), http.StatusConflict},
		{period.ErrStaleVersion, http.StatusConflict},
		{fmt.Errorf("load: %w", period.ErrPeriodNotFound), http.StatusNotFound},
		{liquidation.ErrNothingToLiquidate, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: employee 555", liquidation.ErrAdjustmentNoRecord), http.StatusBadRequest},
		{fmt.Errorf("%w: type \"gift\"", payroll.ErrInvalidEvent), http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &stubService{err: tc.err}
		rec := do(t, newRouter(svc), http.MethodPost, "/api/payroll/periods/repair", `{"periodId":10,"companyId":1}`, 0)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestReliquidatePassesInput(t *testing.T) {
	svc := &stubService{}
	body := `{"periodId":10,"companyId":1,"affectedEmployeeIds":[100,101],"justification":"ajuste","scope":"affected","regenerateVouchers":true}`
	rec := do(t, newRouter(svc), http.MethodPost, "/api/payroll/periods/reliquidate", body, 4)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []int64{100, 101}, svc.lastReliq.AffectedEmployeeIDs)
	assert.True(t, svc.lastReliq.RegenerateVouchers)
	assert.Equal(t, int64(4), svc.lastReliq.ActorID)

	body = `{"periodId":10,"companyId":1,"justification":"bonificación omitida",` +
		`"events":[{"employeeId":100,"type":"bonus","value":"100000","constitutiveOfSalary":true}]}`
	rec = do(t, newRouter(svc), http.MethodPost, "/api/payroll/periods/reliquidate", body, 4)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.lastReliq.Events, 1)
	ev := svc.lastReliq.Events[0]
	assert.Equal(t, int64(100), ev.EmployeeID)
	assert.Equal(t, payroll.EventBonus, ev.Type)
	assert.Equal(t, "100000", ev.Value.String())
	assert.True(t, ev.ConstitutiveOfSalary)

	rec = do(t, newRouter(svc), http.MethodPost, "/api/payroll/periods/reliquidate",
		`{"periodId":10,"companyId":1,"justification":"x","events":[{"type":"bonus","value":"1"}]}`, 4)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newRouter(svc), http.MethodPost, "/api/payroll/periods/reliquidate", `{"periodId":10,"companyId":1,"scope":"all"}`, 4)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, newRouter(svc), http.MethodPost, "/api/payroll/periods/reliquidate", `{"periodId":10,"companyId":1,"justification":"x","scope":"some"}`, 4)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditTrailAndVouchers(t *testing.T) {
	svc := &stubService{auditLogs: []shared.AuditLog{{Action: liquidation.StepStart, Entity: shared.AuditEntityPeriod, EntityID: "10"}}}
	router := newRouter(svc)

	rec := do(t, router, http.MethodGet, "/api/payroll/periods/10/audit", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), liquidation.StepStart)

	rec = do(t, router, http.MethodGet, "/api/payroll/periods/10/vouchers", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"generated"`)

	rec = do(t, router, http.MethodGet, "/api/payroll/periods/abc/audit", "", 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

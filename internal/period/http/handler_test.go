package periodhttp

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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomina-co/nomina/internal/period"
)

type stubService struct {
	selection period.Selection
	err       error
	lastSel   period.SelectionRequest
	lastYear  int
	detectArg [2]time.Time
}

func (s *stubService) Get(_ context.Context, companyID, periodID int64) (period.Period, error) {
	if s.err != nil {
		return period.Period{}, s.err
	}
	return period.Period{ID: periodID, CompanyID: companyID, State: period.StateDraft}, nil
}

func (s *stubService) Catalog(_ context.Context, _ int64, year int) ([]period.Slot, error) {
	s.lastYear = year
	return []period.Slot{{Sequence: 1, Label: "Primera quincena de enero 2025", Status: period.SlotAvailable}}, s.err
}

func (s *stubService) Detect(_ context.Context, _ int64, start, end time.Time) (period.Detection, error) {
	s.detectArg = [2]time.Time{start, end}
	return period.Detection{Action: period.ActionCreate, Proposal: &period.Proposal{Year: 2025, Sequence: 1, Coherent: true}}, s.err
}

func (s *stubService) CreateSlot(_ context.Context, companyID int64, year, seq int) (period.Period, bool, error) {
	return period.Period{ID: 7, CompanyID: companyID, Year: year, SequenceNumber: seq}, true, s.err
}

func (s *stubService) EnsureYear(_ context.Context, _ int64, year int) (period.EnsureYearResult, error) {
	return period.EnsureYearResult{Year: year, Generated: 24, Total: 24}, s.err
}

func (s *stubService) Select(_ context.Context, req period.SelectionRequest) (period.Selection, error) {
	s.lastSel = req
	return s.selection, s.err
}

func newRouter(svc *stubService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/api/periods", h.MountRoutes)
	return r
}

func send(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCatalog(t *testing.T) {
	svc := &stubService{}
	rec := send(newRouter(svc), http.MethodGet, "/api/periods/catalog?companyId=1&year=2025", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2025, svc.lastYear)
	assert.Contains(t, rec.Body.String(), "Primera quincena de enero 2025")

	rec = send(newRouter(svc), http.MethodGet, "/api/periods/catalog?year=2025", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectParsesDates(t *testing.T) {
	svc := &stubService{}
	rec := send(newRouter(svc), http.MethodPost, "/api/periods/detect", `{"companyId":1,"startDate":"2025-01-01","endDate":"2025-01-15"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), svc.detectArg[0])
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), svc.detectArg[1])

	rec = send(newRouter(svc), http.MethodPost, "/api/periods/detect", `{"companyId":1,"startDate":"01/01/2025","endDate":"2025-01-15"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectResumeSkipsDates(t *testing.T) {
	svc := &stubService{selection: period.Selection{Action: period.ActionContinue, Period: period.Period{ID: 42}}}
	rec := send(newRouter(svc), http.MethodPost, "/api/periods/select", `{"companyId":1,"resumePeriodId":42}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(42), svc.lastSel.ResumePeriodID)
	assert.True(t, svc.lastSel.StartDate.IsZero())
}

func TestSelectCreatedAndConflict(t *testing.T) {
	svc := &stubService{selection: period.Selection{Action: period.ActionCreate, Period: period.Period{ID: 5}, Created: true}}
	body := `{"companyId":1,"startDate":"2025-01-01","endDate":"2025-01-15"}`
	rec := send(newRouter(svc), http.MethodPost, "/api/periods/select", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	conflict := period.Period{ID: 3, Label: "Enero 2025"}
	svc = &stubService{
		selection: period.Selection{Action: period.ActionConflict, Conflict: &conflict},
		err:       fmt.Errorf("%w: Enero 2025", period.ErrPeriodConflict),
	}
	rec = send(newRouter(svc), http.MethodPost, "/api/periods/select", body)
	require.Equal(t, http.StatusConflict, rec.Code)
	var sel period.Selection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sel))
	require.NotNil(t, sel.Conflict)
	assert.Equal(t, int64(3), sel.Conflict.ID)

	rec = send(newRouter(svc), http.MethodPost, "/api/periods/select", `{"companyId":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnsureYearAndSlots(t *testing.T) {
	router := newRouter(&stubService{})

	rec := send(router, http.MethodPost, "/api/periods/ensure-year", `{"companyId":1,"year":2025}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"generated":24`)

	rec = send(router, http.MethodPost, "/api/periods/slots", `{"companyId":1,"year":2025,"sequence":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sequenceNumber":3`)

	rec = send(router, http.MethodPost, "/api/periods/slots", `{"companyId":1,"year":2025}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMapsErrors(t *testing.T) {
	rec := send(newRouter(&stubService{}), http.MethodGet, "/api/periods/9?companyId=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(newRouter(&stubService{err: period.ErrCompanyMismatch}), http.MethodGet, "/api/periods/9?companyId=2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(newRouter(&stubService{err: fmt.Errorf("%w: seq 30", period.ErrInvalidSequence)}), http.MethodPost, "/api/periods/slots", `{"companyId":1,"year":2025,"sequence":30}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package period

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// Service resolves, enumerates and materialises payroll periods.
type Service struct {
	store              Store
	catalog            *Catalog
	detector           *Detector
	defaultPeriodicity Periodicity
	ensureGroup        singleflight.Group
	logger             *slog.Logger
	now                func() time.Time
}

// NewService constructs a Service. defaultPeriodicity applies to companies
// without a configured periodicity.
func NewService(store Store, defaultPeriodicity Periodicity, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := StrategyFor(defaultPeriodicity); err != nil {
		defaultPeriodicity = Biweekly
	}
	return &Service{
		store:              store,
		catalog:            NewCatalog(store),
		detector:           NewDetector(store),
		defaultPeriodicity: defaultPeriodicity,
		logger:             logger,
		now:                time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// StrategyForCompany returns the strategy of the company's active periodicity.
func (s *Service) StrategyForCompany(ctx context.Context, companyID int64) (Strategy, error) {
	if companyID <= 0 {
		return nil, errors.New("period: company id required")
	}
	periodicity, err := s.store.CompanyPeriodicity(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if periodicity == "" {
		periodicity = s.defaultPeriodicity
	}
	return StrategyFor(periodicity)
}

// Get loads a period and checks it belongs to companyID.
func (s *Service) Get(ctx context.Context, companyID, periodID int64) (Period, error) {
	p, err := s.store.LoadPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if companyID > 0 && p.CompanyID != companyID {
		return Period{}, ErrCompanyMismatch
	}
	return p, nil
}

// Catalog lists every expected slot of the year for the company.
func (s *Service) Catalog(ctx context.Context, companyID int64, year int) ([]Slot, error) {
	strategy, err := s.StrategyForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.catalog.Slots(ctx, companyID, strategy, s.resolveYear(year))
}

// Detect classifies a date range for the company.
func (s *Service) Detect(ctx context.Context, companyID int64, start, end time.Time) (Detection, error) {
	strategy, err := s.StrategyForCompany(ctx, companyID)
	if err != nil {
		return Detection{}, err
	}
	return s.detector.Detect(ctx, companyID, strategy, start, end)
}

// CreateSlot materialises one to_create slot.
func (s *Service) CreateSlot(ctx context.Context, companyID int64, year, seq int) (Period, bool, error) {
	strategy, err := s.StrategyForCompany(ctx, companyID)
	if err != nil {
		return Period{}, false, err
	}
	p, created, err := s.catalog.CreateSlot(ctx, companyID, strategy, s.resolveYear(year), seq)
	if err != nil {
		return Period{}, false, err
	}
	if created {
		s.logger.Info("period slot created", slog.Int64("company_id", companyID), slog.Int64("period_id", p.ID), slog.String("label", p.Label))
	}
	return p, created, nil
}

// EnsureYear materialises the full year. Concurrent calls for the same
// company and year share one execution.
func (s *Service) EnsureYear(ctx context.Context, companyID int64, year int) (EnsureYearResult, error) {
	strategy, err := s.StrategyForCompany(ctx, companyID)
	if err != nil {
		return EnsureYearResult{}, err
	}
	year = s.resolveYear(year)
	key := strconv.FormatInt(companyID, 10) + ":" + string(strategy.Periodicity()) + ":" + strconv.Itoa(year)
	v, err, _ := s.ensureGroup.Do(key, func() (any, error) {
		return s.catalog.EnsureYear(ctx, companyID, strategy, year)
	})
	if err != nil {
		return EnsureYearResult{}, err
	}
	result := v.(EnsureYearResult)
	if result.Failed > 0 {
		s.logger.Warn("ensure year incomplete", slog.Int64("company_id", companyID), slog.Int("year", year), slog.Int("failed", result.Failed))
	}
	return result, nil
}

// Select resolves the period a user continues working on. Resume intents
// bypass detection; new ranges are created with their literal dates.
func (s *Service) Select(ctx context.Context, req SelectionRequest) (Selection, error) {
	if err := req.Validate(); err != nil {
		return Selection{}, err
	}
	if req.ResumePeriodID > 0 {
		p, err := s.Get(ctx, req.CompanyID, req.ResumePeriodID)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Action: ActionContinue, Period: p}, nil
	}

	strategy, err := s.StrategyForCompany(ctx, req.CompanyID)
	if err != nil {
		return Selection{}, err
	}
	det, err := s.detector.Detect(ctx, req.CompanyID, strategy, req.StartDate, req.EndDate)
	if err != nil {
		return Selection{}, err
	}
	switch det.Action {
	case ActionContinue:
		return Selection{Action: ActionContinue, Period: *det.Period}, nil
	case ActionConflict:
		return Selection{Action: ActionConflict, Conflict: det.Conflict}, fmt.Errorf("%w: %s", ErrPeriodConflict, det.Conflict.Label)
	}

	proposal := det.Proposal
	start, end := Date(req.StartDate), Date(req.EndDate)
	p, created, err := s.store.InsertPeriod(ctx, NewPeriod{
		CompanyID:      req.CompanyID,
		Year:           proposal.Year,
		Periodicity:    proposal.Periodicity,
		SequenceNumber: proposal.Sequence,
		StartDate:      start,
		EndDate:        end,
		Label:          proposal.Label,
	})
	if err != nil {
		return Selection{}, err
	}
	if !created && !p.Covers(start, end) {
		return Selection{Action: ActionConflict, Conflict: &p}, fmt.Errorf("%w: slot %d already taken by %s", ErrPeriodConflict, proposal.Sequence, p.Label)
	}
	if proposal.Warning != "" {
		s.logger.Warn("period created with non canonical range", slog.Int64("company_id", req.CompanyID), slog.Int64("period_id", p.ID), slog.String("warning", proposal.Warning))
	}
	return Selection{Action: ActionCreate, Period: p, Created: created, Warning: proposal.Warning}, nil
}

func (s *Service) resolveYear(year int) int {
	if year > 0 {
		return year
	}
	return s.now().Year()
}

package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/shared"
)

// DraftStore persists ordinary edits. Implementations re-check editability
// under the period row lock.
type DraftStore interface {
	LoadPeriod(ctx context.Context, periodID int64) (period.Period, error)
	SaveDraft(ctx context.Context, edit DraftEdit) (Record, error)
	AddEvent(ctx context.Context, ev Event) (Event, error)
}

// Locker serialises saves per period.
type Locker interface {
	AcquireWait(ctx context.Context, key string, ttl, wait time.Duration) (*shared.Lock, error)
}

// DraftService applies auto-saved edits to open periods, one save per period
// at a time.
type DraftService struct {
	store   DraftStore
	locker  Locker
	lockTTL time.Duration
	wait    time.Duration
	logger  *slog.Logger
}

// NewDraftService constructs a DraftService.
func NewDraftService(store DraftStore, locker Locker, logger *slog.Logger) *DraftService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftService{store: store, locker: locker, lockTTL: 10 * time.Second, wait: 2 * time.Second, logger: logger}
}

// SaveDraft rejects edits on closed periods and stores the row otherwise.
func (s *DraftService) SaveDraft(ctx context.Context, edit DraftEdit) (Record, error) {
	if edit.PeriodID <= 0 || edit.EmployeeID <= 0 {
		return Record{}, errors.New("payroll: period and employee required")
	}
	if !edit.BaseSalary.IsPositive() {
		return Record{}, ErrInvalidSalary
	}
	if edit.WorkedDays < 0 || edit.WorkedDays > 30 {
		return Record{}, fmt.Errorf("%w: %d", ErrInvalidWorkedDays, edit.WorkedDays)
	}
	if err := s.ensureEditable(ctx, edit.PeriodID); err != nil {
		return Record{}, err
	}
	lock, err := s.locker.AcquireWait(ctx, shared.AutosaveLockKey(edit.PeriodID), s.lockTTL, s.wait)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return Record{}, ErrSaveInProgress
		}
		return Record{}, err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release autosave lock", slog.Int64("period_id", edit.PeriodID), slog.Any("error", err))
		}
	}()
	return s.store.SaveDraft(ctx, edit)
}

// AddEvent attaches a novedad to an open period.
func (s *DraftService) AddEvent(ctx context.Context, ev Event) (Event, error) {
	if ev.PeriodID <= 0 {
		return Event{}, errors.New("payroll: period and employee required")
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	if err := s.ensureEditable(ctx, ev.PeriodID); err != nil {
		return Event{}, err
	}
	return s.store.AddEvent(ctx, ev)
}

func (s *DraftService) ensureEditable(ctx context.Context, periodID int64) error {
	p, err := s.store.LoadPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	return p.EnsureEditable()
}

package payroll

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/shared"
)

type draftStoreStub struct {
	mu        sync.Mutex
	periods   map[int64]period.Period
	records   map[int64]Record
	events    []Event
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	delay     time.Duration
}

func newDraftStoreStub(states map[int64]period.State) *draftStoreStub {
	s := &draftStoreStub{periods: map[int64]period.Period{}, records: map[int64]Record{}}
	for id, st := range states {
		s.periods[id] = period.Period{ID: id, State: st}
	}
	return s
}

func (s *draftStoreStub) LoadPeriod(_ context.Context, id int64) (period.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return period.Period{}, period.ErrPeriodNotFound
	}
	return p, nil
}

func (s *draftStoreStub) SaveDraft(_ context.Context, edit DraftEdit) (Record, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxFlight.Load()
		if n <= cur || s.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Record{PeriodID: edit.PeriodID, EmployeeID: edit.EmployeeID, BaseSalary: edit.BaseSalary, WorkedDays: edit.WorkedDays}
	s.records[edit.EmployeeID] = rec
	return rec, nil
}

func (s *draftStoreStub) AddEvent(_ context.Context, ev Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = int64(len(s.events) + 1)
	s.events = append(s.events, ev)
	return ev, nil
}

func newDraftService(t *testing.T, store DraftStore) *DraftService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewDraftService(store, shared.NewLocker(client), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.wait = 5 * time.Second
	return svc
}

func TestSaveDraftRejectsClosedPeriod(t *testing.T) {
	store := newDraftStoreStub(map[int64]period.State{1: period.StateClosed})
	svc := newDraftService(t, store)

	_, err := svc.SaveDraft(context.Background(), DraftEdit{PeriodID: 1, EmployeeID: 3, BaseSalary: dec(2_000_000), WorkedDays: 15})
	assert.ErrorIs(t, err, period.ErrPeriodClosed)
	assert.Empty(t, store.records)

	_, err = svc.AddEvent(context.Background(), Event{PeriodID: 1, EmployeeID: 3, Type: EventBonus, Value: dec(10)})
	assert.ErrorIs(t, err, period.ErrPeriodClosed)
}

func TestSaveDraftAcceptsOpenPeriod(t *testing.T) {
	store := newDraftStoreStub(map[int64]period.State{1: period.StateDraft, 2: period.StateProcessing})
	svc := newDraftService(t, store)

	rec, err := svc.SaveDraft(context.Background(), DraftEdit{PeriodID: 1, EmployeeID: 3, BaseSalary: dec(2_000_000), WorkedDays: 15})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.EmployeeID)

	ev, err := svc.AddEvent(context.Background(), Event{PeriodID: 2, EmployeeID: 3, Type: EventOvertime, Value: dec(90_000), ConstitutiveOfSalary: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.ID)
}

func TestSaveDraftValidatesInput(t *testing.T) {
	svc := newDraftService(t, newDraftStoreStub(map[int64]period.State{1: period.StateDraft}))

	_, err := svc.SaveDraft(context.Background(), DraftEdit{PeriodID: 1, EmployeeID: 3, BaseSalary: dec(0), WorkedDays: 15})
	assert.ErrorIs(t, err, ErrInvalidSalary)
	_, err = svc.SaveDraft(context.Background(), DraftEdit{PeriodID: 1, EmployeeID: 3, BaseSalary: dec(1), WorkedDays: 45})
	assert.ErrorIs(t, err, ErrInvalidWorkedDays)
	_, err = svc.AddEvent(context.Background(), Event{PeriodID: 1, EmployeeID: 3, Type: "gift", Value: dec(1)})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestSaveDraftSerialisesPerPeriod(t *testing.T) {
	store := newDraftStoreStub(map[int64]period.State{1: period.StateDraft})
	store.delay = 10 * time.Millisecond
	svc := newDraftService(t, store)

	var wg sync.WaitGroup
	for i := int64(1); i <= 5; i++ {
		wg.Add(1)
		go func(emp int64) {
			defer wg.Done()
			_, err := svc.SaveDraft(context.Background(), DraftEdit{PeriodID: 1, EmployeeID: emp, BaseSalary: dec(1_500_000), WorkedDays: 15})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.maxFlight.Load())
	assert.Len(t, store.records, 5)
}

package liquidation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/shared"
	"github.com/nomina-co/nomina/internal/validation"
)

type memState struct {
	periods     map[int64]period.Period
	records     map[int64][]payroll.Record
	events      map[int64][]payroll.Event
	corrections []Correction
}

func (s memState) clone() memState {
	out := memState{
		periods:     make(map[int64]period.Period, len(s.periods)),
		records:     make(map[int64][]payroll.Record, len(s.records)),
		events:      make(map[int64][]payroll.Event, len(s.events)),
		corrections: append([]Correction(nil), s.corrections...),
	}
	for k, v := range s.periods {
		out.periods[k] = v
	}
	for k, v := range s.records {
		out.records[k] = append([]payroll.Record(nil), v...)
	}
	for k, v := range s.events {
		out.events[k] = append([]payroll.Event(nil), v...)
	}
	return out
}

// memRepo is an in-memory Repository whose transactions apply atomically.
type memRepo struct {
	mu         sync.Mutex
	state      memState
	employees  map[int64]validation.Employee
	auditSink  *memAudit
	failUpdate bool
	failAudit  bool
	txCount    int
}

func newMemRepo() *memRepo {
	return &memRepo{
		state: memState{
			periods: map[int64]period.Period{},
			records: map[int64][]payroll.Record{},
			events:  map[int64][]payroll.Event{},
		},
		employees: map[int64]validation.Employee{},
	}
}

func (r *memRepo) addPeriod(p period.Period) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Version == 0 {
		p.Version = 1
	}
	r.state.periods[p.ID] = p
}

func (r *memRepo) addRecord(rec payroll.Record, companyID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = int64(len(r.state.records[rec.PeriodID]) + 1)
	r.state.records[rec.PeriodID] = append(r.state.records[rec.PeriodID], rec)
	r.employees[rec.EmployeeID] = validation.Employee{ID: rec.EmployeeID, CompanyID: companyID, Active: true}
}

func (r *memRepo) addEvent(ev payroll.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.state.events[ev.PeriodID]) + 1)
	r.state.events[ev.PeriodID] = append(r.state.events[ev.PeriodID], ev)
}

func (r *memRepo) period(id int64) period.Period {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.periods[id]
}

func (r *memRepo) record(periodID, employeeID int64) payroll.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.state.records[periodID] {
		if rec.EmployeeID == employeeID {
			return rec
		}
	}
	return payroll.Record{}
}

func (r *memRepo) LoadPeriod(_ context.Context, id int64) (period.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.state.periods[id]
	if !ok {
		return period.Period{}, period.ErrPeriodNotFound
	}
	return p, nil
}

func (r *memRepo) ListRecords(_ context.Context, id int64) ([]payroll.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]payroll.Record(nil), r.state.records[id]...), nil
}

func (r *memRepo) ListEvents(_ context.Context, id int64) ([]payroll.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]payroll.Event(nil), r.state.events[id]...), nil
}

func (r *memRepo) ListCorrections(_ context.Context, id int64) ([]Correction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Correction{}
	for _, c := range r.state.corrections {
		if c.PeriodID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txCount++
	work := r.state.clone()
	tx := &memTx{repo: r, state: &work}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = work
	if r.auditSink != nil {
		for _, entry := range tx.audit {
			_ = r.auditSink.Record(ctx, entry)
		}
	}
	return nil
}

// LoadSnapshot lets the real validation engine read the same state.
func (r *memRepo) LoadSnapshot(_ context.Context, periodID, companyID int64) (validation.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := validation.Snapshot{CompanyID: companyID, Employees: map[int64]validation.Employee{}}
	p, ok := r.state.periods[periodID]
	if !ok {
		return snap, nil
	}
	snap.Period = &p
	snap.Records = append([]payroll.Record(nil), r.state.records[periodID]...)
	snap.Events = append([]payroll.Event(nil), r.state.events[periodID]...)
	for k, v := range r.employees {
		snap.Employees[k] = v
	}
	return snap, nil
}

// Repair implements the totals repair only.
func (r *memRepo) Repair(ctx context.Context, action validation.RepairAction, periodID, _ int64) error {
	if action != validation.RepairRecomputeTotals {
		return validation.ErrUnknownRepair
	}
	return r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, err := tx.RecomputeTotals(ctx, periodID)
		return err
	})
}

type memTx struct {
	repo  *memRepo
	state *memState
	audit []shared.AuditLog
}

func (t *memTx) LockPeriod(_ context.Context, id int64) (period.Period, error) {
	p, ok := t.state.periods[id]
	if !ok {
		return period.Period{}, period.ErrPeriodNotFound
	}
	return p, nil
}

func (t *memTx) UpdateRecord(_ context.Context, rec payroll.Record) error {
	if t.repo.failUpdate {
		return errors.New("disk full")
	}
	rows := t.state.records[rec.PeriodID]
	for i := range rows {
		if rows[i].ID == rec.ID {
			rows[i] = rec
			return nil
		}
	}
	return payroll.ErrRecordNotFound
}

func (t *memTx) ClearComputed(_ context.Context, periodID int64, employeeIDs []int64) error {
	drop := make(map[int64]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		drop[id] = true
	}
	rows := t.state.records[periodID]
	for i := range rows {
		if drop[rows[i].EmployeeID] {
			rows[i] = payroll.Record{
				ID:         rows[i].ID,
				PeriodID:   rows[i].PeriodID,
				EmployeeID: rows[i].EmployeeID,
				BaseSalary: rows[i].BaseSalary,
				WorkedDays: rows[i].WorkedDays,
			}
		}
	}
	return nil
}

func (t *memTx) InsertEvent(_ context.Context, ev payroll.Event) (payroll.Event, error) {
	ev.ID = int64(len(t.state.events[ev.PeriodID]) + 1)
	t.state.events[ev.PeriodID] = append(t.state.events[ev.PeriodID], ev)
	return ev, nil
}

func (t *memTx) RecordAudit(_ context.Context, log shared.AuditLog) error {
	if t.repo.failAudit {
		return errors.New("audit table unavailable")
	}
	if err := log.Validate(); err != nil {
		return err
	}
	t.audit = append(t.audit, log)
	return nil
}

func (t *memTx) MarkEventsFolded(_ context.Context, periodID int64, employeeIDs []int64) error {
	want := make(map[int64]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		want[id] = true
	}
	rows := t.state.events[periodID]
	for i := range rows {
		if want[rows[i].EmployeeID] {
			rows[i].Folded = true
		}
	}
	return nil
}

func (t *memTx) RecomputeTotals(_ context.Context, periodID int64) (period.Totals, error) {
	totals := period.Totals{Gross: decimal.Zero, Deductions: decimal.Zero}
	seen := map[int64]bool{}
	for _, rec := range t.state.records[periodID] {
		if !rec.Computed() {
			continue
		}
		totals.Gross = totals.Gross.Add(rec.GrossPay)
		totals.Deductions = totals.Deductions.Add(rec.TotalDeductions)
		if !seen[rec.EmployeeID] {
			seen[rec.EmployeeID] = true
			totals.EmployeesCount++
		}
	}
	totals.Net = totals.Gross.Sub(totals.Deductions)
	p := t.state.periods[periodID]
	p.Totals = totals
	t.state.periods[periodID] = p
	return totals, nil
}

func (t *memTx) SetState(_ context.Context, p period.Period, target period.State) (period.Period, error) {
	current, ok := t.state.periods[p.ID]
	if !ok || current.Version != p.Version {
		return period.Period{}, period.ErrStaleVersion
	}
	current.State = target
	current.Version++
	if target == period.StateClosed {
		now := time.Now()
		current.ClosedAt = &now
	}
	t.state.periods[p.ID] = current
	return current, nil
}

func (t *memTx) InsertCorrection(_ context.Context, c Correction) error {
	c.ID = int64(len(t.state.corrections) + 1)
	t.state.corrections = append(t.state.corrections, c)
	return nil
}

type memAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *memAudit) Record(_ context.Context, log shared.AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *memAudit) List(_ context.Context, entity, entityID string) ([]shared.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []shared.AuditLog{}
	for _, l := range a.logs {
		if l.Entity == entity && l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (a *memAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type voucherStub struct {
	mu          sync.Mutex
	dispatched  []int64
	superseded  []int64
	dispatchErr error
}

func (v *voucherStub) Dispatch(_ context.Context, _ int64, ids []int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dispatchErr != nil {
		return 0, v.dispatchErr
	}
	v.dispatched = append(v.dispatched, ids...)
	return len(ids), nil
}

func (v *voucherStub) Supersede(_ context.Context, _ int64, ids []int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.superseded = append(v.superseded, ids...)
	return len(ids), nil
}

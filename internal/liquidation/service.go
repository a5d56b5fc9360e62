package liquidation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/nomina-co/nomina/internal/jobs"
	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
	"github.com/nomina-co/nomina/internal/shared"
	"github.com/nomina-co/nomina/internal/validation"
)

// Config tunes the service.
type Config struct {
	LockTTL time.Duration
	Workers int
}

// Service runs liquidation, reliquidation and period repair.
type Service struct {
	repo      Repository
	validator Validator
	calc      Calculator
	audit     AuditPort
	locker    Locker
	vouchers  VoucherDispatcher
	metrics   *jobmetrics.Metrics
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

// NewService wires the liquidation service.
func NewService(repo Repository, validator Validator, calc Calculator, audit AuditPort, locker Locker, cfg Config) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Service{
		repo:      repo,
		validator: validator,
		calc:      calc,
		audit:     audit,
		locker:    locker,
		logger:    slog.Default(),
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithVouchers sets the voucher dispatcher.
func (s *Service) WithVouchers(v VoucherDispatcher) *Service {
	s.vouchers = v
	return s
}

// WithMetrics sets the run metrics.
func (s *Service) WithMetrics(m *jobmetrics.Metrics) *Service {
	s.metrics = m
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Validate runs validate_pre_liquidation.
func (s *Service) Validate(ctx context.Context, periodID, companyID int64) (validation.Result, error) {
	return s.validator.Validate(ctx, periodID, companyID)
}

// AuditTrail returns every audit entry of a period in order.
func (s *Service) AuditTrail(ctx context.Context, periodID int64) ([]shared.AuditLog, error) {
	if s.audit == nil {
		return []shared.AuditLog{}, nil
	}
	return s.audit.List(ctx, shared.AuditEntityPeriod, strconv.FormatInt(periodID, 10))
}

// Corrections lists the reliquidation corrections of a period.
func (s *Service) Corrections(ctx context.Context, periodID int64) ([]Correction, error) {
	return s.repo.ListCorrections(ctx, periodID)
}

// Liquidate validates the period, computes every employee and closes the
// period in one transaction. Vouchers are scheduled after commit.
func (s *Service) Liquidate(ctx context.Context, in Input) (Result, error) {
	if in.PeriodID <= 0 || in.CompanyID <= 0 {
		return Result{Status: StatusNotAttempted}, ErrInvalidInput
	}
	if in.ActorID <= 0 {
		return Result{Status: StatusNotAttempted}, ErrActorRequired
	}
	lock, err := s.acquire(ctx, in.PeriodID)
	if err != nil {
		return Result{Status: StatusNotAttempted}, err
	}
	defer s.release(ctx, lock)

	tracker := s.metrics.Track("liquidation")
	res, err := s.liquidate(ctx, in)
	if err == nil && res.Status == StatusNotAttempted {
		tracker.Blocked()
	} else {
		_ = tracker.End(err)
	}
	s.metrics.AddEmployeeErrors("liquidation", in.CompanyID, len(res.Errors))
	return res, err
}

func (s *Service) liquidate(ctx context.Context, in Input) (Result, error) {
	res := Result{Status: StatusNotAttempted, Errors: []EmployeeError{}, AuditLog: []shared.AuditLog{}}
	vr, err := s.validator.Validate(ctx, in.PeriodID, in.CompanyID)
	if err != nil {
		return res, err
	}
	res.Validation = &vr
	if !vr.IsValid {
		res.Message = vr.Summary.Message
		return res, nil
	}

	tr := s.newTrail(in.PeriodID, in.ActorID)
	res.RunID = tr.runID
	fail := func(step string, err error) (Result, error) {
		tr.record(ctx, StepError, map[string]any{"step": step, "error": err.Error()})
		res.Status = StatusFailed
		res.Message = err.Error()
		res.AuditLog = tr.entries
		s.logger.Error("liquidation failed", slog.Int64("period_id", in.PeriodID),
			slog.String("step", step), slog.Any("error", err))
		return res, err
	}
	tr.record(ctx, StepStart, map[string]any{"company_id": in.CompanyID, "score": vr.Score})

	p, err := s.repo.LoadPeriod(ctx, in.PeriodID)
	if err != nil {
		return fail("load_period", err)
	}
	records, err := s.repo.ListRecords(ctx, in.PeriodID)
	if err != nil {
		return fail("load_records", err)
	}
	events, err := s.repo.ListEvents(ctx, in.PeriodID)
	if err != nil {
		return fail("load_events", err)
	}
	tr.record(ctx, StepDataLoaded, map[string]any{"records": len(records), "events": len(events)})

	computed, empErrs, err := s.compute(ctx, p, records, events)
	if err != nil {
		return fail("calculate", err)
	}
	res.Errors = empErrs
	if len(computed) == 0 {
		return fail("calculate", ErrNothingToLiquidate)
	}
	tr.record(ctx, StepCalculationsCompleted, map[string]any{"computed": len(computed), "errors": len(empErrs)})

	ids := employeeIDs(computed)
	failed := make([]int64, 0, len(empErrs))
	for _, e := range empErrs {
		failed = append(failed, e.EmployeeID)
	}
	var closing shared.AuditLog
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := lockFresh(ctx, tx, p)
		if err != nil {
			return err
		}
		if err := current.EnsureEditable(); err != nil {
			return err
		}
		if err := current.CheckTransition(period.StateClosed, false); err != nil {
			return err
		}
		for _, r := range computed {
			if err := tx.UpdateRecord(ctx, r); err != nil {
				return err
			}
		}
		// A failed employee must not keep a result from an earlier run.
		if err := tx.ClearComputed(ctx, p.ID, failed); err != nil {
			return err
		}
		if err := tx.MarkEventsFolded(ctx, p.ID, ids); err != nil {
			return err
		}
		if res.Totals, err = tx.RecomputeTotals(ctx, p.ID); err != nil {
			return err
		}
		closed, err := tx.SetState(ctx, current, period.StateClosed)
		if err != nil {
			return err
		}
		closing = tr.entry(StepTotalsUpdated, map[string]any{
			"total_gross":      res.Totals.Gross.String(),
			"total_deductions": res.Totals.Deductions.String(),
			"total_net":        res.Totals.Net.String(),
			"employees_count":  res.Totals.EmployeesCount,
			"excluded":         failed,
			"previous_state":   string(current.State),
			"new_state":        string(closed.State),
			"reason":           "liquidación",
		})
		return tx.RecordAudit(ctx, closing)
	})
	if err != nil {
		return fail("persist", err)
	}
	tr.keep(closing)
	res.EmployeesProcessed = len(computed)

	res.VouchersGenerated = s.dispatchVouchers(ctx, tr, p.ID, ids, false)

	res.Status = StatusSucceeded
	if len(res.Errors) > 0 {
		res.Status = StatusPartial
	}
	tr.record(ctx, StepCompleted, map[string]any{"status": string(res.Status), "employees": res.EmployeesProcessed})
	res.AuditLog = tr.entries
	s.logger.Info("period liquidated", slog.Int64("period_id", p.ID), slog.String("status", string(res.Status)),
		slog.Int("employees", res.EmployeesProcessed), slog.String("total_net", res.Totals.Net.String()))
	return res, nil
}

// Reliquidate recomputes employees of a period, reopening and closing it
// again with an audited pair of transitions when it was closed.
func (s *Service) Reliquidate(ctx context.Context, in ReliquidationInput) (ReliquidationResult, error) {
	in.Normalize()
	if err := in.Check(); err != nil {
		return ReliquidationResult{}, err
	}
	lock, err := s.acquire(ctx, in.PeriodID)
	if err != nil {
		return ReliquidationResult{}, err
	}
	defer s.release(ctx, lock)

	tracker := s.metrics.Track("reliquidation")
	res, err := s.reliquidate(ctx, in)
	_ = tracker.End(err)
	s.metrics.AddEmployeeErrors("reliquidation", in.CompanyID, len(res.Errors))
	return res, err
}

func (s *Service) reliquidate(ctx context.Context, in ReliquidationInput) (ReliquidationResult, error) {
	tr := s.newTrail(in.PeriodID, in.ActorID)
	res := ReliquidationResult{RunID: tr.runID, Corrections: []Correction{}, Errors: []EmployeeError{}}

	p, err := s.repo.LoadPeriod(ctx, in.PeriodID)
	if err != nil {
		return res, err
	}
	if p.CompanyID != in.CompanyID {
		return res, fmt.Errorf("%w: period %d company %d", period.ErrPeriodNotFound, in.PeriodID, in.CompanyID)
	}
	records, err := s.repo.ListRecords(ctx, p.ID)
	if err != nil {
		return res, err
	}
	if err := checkAdjustments(records, in.Events); err != nil {
		return res, err
	}

	fail := func(step string, err error) (ReliquidationResult, error) {
		tr.record(ctx, ActionReliquidationError, map[string]any{"step": step, "error": err.Error()})
		s.logger.Error("reliquidation failed", slog.Int64("period_id", in.PeriodID),
			slog.String("step", step), slog.Any("error", err))
		return res, err
	}

	wasClosed := p.State == period.StateClosed
	if wasClosed {
		reopened, err := s.transition(ctx, tr, p, period.StateProcessing, true, ActionReopenForAdjustment, in.Justification)
		if err != nil {
			return fail("reopen", err)
		}
		res.PeriodReopened = true
		p = reopened
	}

	events, err := s.repo.ListEvents(ctx, p.ID)
	if err != nil {
		return fail("load_events", err)
	}
	now := s.now()
	added := make([]payroll.Event, 0, len(in.Events))
	for _, a := range in.Events {
		added = append(added, a.Event(p.ID, now))
	}
	events = append(events, added...)

	selected, missing := selectScope(records, in)
	for _, id := range missing {
		res.Errors = append(res.Errors, EmployeeError{EmployeeID: id, Message: "el empleado no tiene registro en el periodo"})
	}
	previous := make(map[int64]payroll.Record, len(selected))
	for _, r := range selected {
		previous[r.ID] = r
	}

	computed, empErrs, err := s.compute(ctx, p, selected, events)
	if err != nil {
		return fail("calculate", err)
	}
	res.Errors = append(res.Errors, empErrs...)

	for _, r := range computed {
		before := previous[r.ID].NetPay()
		diff := r.NetPay().Sub(before)
		if diff.Abs().GreaterThan(CorrectionThreshold) {
			res.Corrections = append(res.Corrections, Correction{
				RunID:         tr.runID,
				PeriodID:      p.ID,
				EmployeeID:    r.EmployeeID,
				PreviousValue: before,
				NewValue:      r.NetPay(),
				Difference:    diff,
				Justification: in.Justification,
				ActorID:       in.ActorID,
				CreatedAt:     now,
			})
		}
	}

	ids := employeeIDs(computed)
	insert := eventsOf(added, ids)
	var eventsEntry *shared.AuditLog
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := lockFresh(ctx, tx, p)
		if err != nil {
			return err
		}
		if err := current.EnsureEditable(); err != nil {
			return err
		}
		stored := make([]int64, 0, len(insert))
		for _, ev := range insert {
			out, err := tx.InsertEvent(ctx, ev)
			if err != nil {
				return err
			}
			stored = append(stored, out.ID)
		}
		for _, r := range computed {
			if err := tx.UpdateRecord(ctx, r); err != nil {
				return err
			}
		}
		if err := tx.MarkEventsFolded(ctx, p.ID, ids); err != nil {
			return err
		}
		for _, c := range res.Corrections {
			if err := tx.InsertCorrection(ctx, c); err != nil {
				return err
			}
		}
		if res.Totals, err = tx.RecomputeTotals(ctx, p.ID); err != nil {
			return err
		}
		if len(insert) == 0 {
			return nil
		}
		entry := tr.entry(ActionEventsAdded, map[string]any{
			"events":    stored,
			"employees": employeeIDsOfEvents(insert),
			"reason":    in.Justification,
		})
		eventsEntry = &entry
		return tx.RecordAudit(ctx, entry)
	})
	if err != nil {
		res.Corrections = []Correction{}
		return fail("persist", err)
	}
	if eventsEntry != nil {
		tr.keep(*eventsEntry)
	}
	res.EventsAdded = len(insert)
	res.EmployeesAffected = len(computed)
	res.CorrectionsApplied = len(res.Corrections)

	if in.RegenerateVouchers && len(ids) > 0 {
		res.VouchersRegenerated = s.dispatchVouchers(ctx, tr, p.ID, ids, true)
	}

	if wasClosed {
		current, err := s.repo.LoadPeriod(ctx, p.ID)
		if err != nil {
			return fail("reclose", err)
		}
		if _, err := s.transition(ctx, tr, current, period.StateClosed, false, ActionCloseAfterAdjustment, in.Justification); err != nil {
			return fail("reclose", err)
		}
		res.PeriodReclosed = true
	}
	tr.record(ctx, ActionReliquidated, map[string]any{
		"scope":          string(in.Scope),
		"employees":      res.EmployeesAffected,
		"corrections":    res.CorrectionsApplied,
		"events_added":   res.EventsAdded,
		"events_skipped": len(added) - len(insert),
		"errors":         len(res.Errors),
	})
	s.logger.Info("period reliquidated", slog.Int64("period_id", p.ID),
		slog.Int("employees", res.EmployeesAffected), slog.Int("corrections", res.CorrectionsApplied))
	return res, nil
}

// RepairPeriod runs the auto-repair loop and rewrites the stored totals of
// an editable period from its records.
func (s *Service) RepairPeriod(ctx context.Context, periodID, companyID, actorID int64) (RepairResult, error) {
	if periodID <= 0 || companyID <= 0 {
		return RepairResult{}, ErrInvalidInput
	}
	lock, err := s.acquire(ctx, periodID)
	if err != nil {
		return RepairResult{}, err
	}
	defer s.release(ctx, lock)

	p, err := s.repo.LoadPeriod(ctx, periodID)
	if err != nil {
		return RepairResult{}, err
	}
	if p.CompanyID != companyID {
		return RepairResult{}, fmt.Errorf("%w: period %d company %d", period.ErrPeriodNotFound, periodID, companyID)
	}
	outcome, err := s.validator.Repair(ctx, periodID, companyID, actorID)
	if err != nil {
		return RepairResult{}, err
	}
	res := RepairResult{RepairLog: outcome.Log, Validation: outcome.After}

	records, err := s.repo.ListRecords(ctx, periodID)
	if err != nil {
		return res, err
	}
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		seen[r.EmployeeID] = struct{}{}
	}
	res.EmployeesCount = len(seen)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		res.Totals = current.Totals
		if !current.State.Editable() {
			return nil
		}
		totals, err := tx.RecomputeTotals(ctx, periodID)
		if err != nil {
			return err
		}
		res.TotalsUpdated = !totals.Equal(current.Totals)
		res.Totals = totals
		return nil
	})
	if err != nil {
		return res, err
	}
	tr := s.newTrail(periodID, actorID)
	tr.record(ctx, ActionPeriodRepaired, map[string]any{
		"employees_count": res.EmployeesCount,
		"totals_updated":  res.TotalsUpdated,
		"repairs":         len(res.RepairLog),
		"score":           res.Validation.Score,
	})
	return res, nil
}

// transition moves a period in its own transaction and audits the move in
// that same transaction.
func (s *Service) transition(ctx context.Context, tr *trail, p period.Period, target period.State, auditedReopen bool, action, reason string) (period.Period, error) {
	var (
		next  period.Period
		entry shared.AuditLog
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := lockFresh(ctx, tx, p)
		if err != nil {
			return err
		}
		if err := current.CheckTransition(target, auditedReopen); err != nil {
			return err
		}
		if next, err = tx.SetState(ctx, current, target); err != nil {
			return err
		}
		entry = tr.entry(action, map[string]any{
			"previous_state": string(current.State),
			"new_state":      string(next.State),
			"reason":         reason,
		})
		return tx.RecordAudit(ctx, entry)
	})
	if err != nil {
		return period.Period{}, err
	}
	tr.keep(entry)
	return next, nil
}

// checkAdjustments rejects events for employees without a record.
func checkAdjustments(records []payroll.Record, adjustments []Adjustment) error {
	present := make(map[int64]bool, len(records))
	for _, r := range records {
		present[r.EmployeeID] = true
	}
	for _, a := range adjustments {
		if !present[a.EmployeeID] {
			return fmt.Errorf("%w: employee %d", ErrAdjustmentNoRecord, a.EmployeeID)
		}
	}
	return nil
}

// eventsOf keeps the events of the given employees.
func eventsOf(events []payroll.Event, employeeIDs []int64) []payroll.Event {
	keep := make(map[int64]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		keep[id] = true
	}
	out := make([]payroll.Event, 0, len(events))
	for _, ev := range events {
		if keep[ev.EmployeeID] {
			out = append(out, ev)
		}
	}
	return out
}

func employeeIDsOfEvents(events []payroll.Event) []int64 {
	ids := make([]int64, 0, len(events))
	seen := make(map[int64]bool, len(events))
	for _, ev := range events {
		if !seen[ev.EmployeeID] {
			seen[ev.EmployeeID] = true
			ids = append(ids, ev.EmployeeID)
		}
	}
	return ids
}

// lockFresh row-locks the period and fails when it changed since p was read.
func lockFresh(ctx context.Context, tx TxRepository, p period.Period) (period.Period, error) {
	current, err := tx.LockPeriod(ctx, p.ID)
	if err != nil {
		return period.Period{}, err
	}
	if current.Version != p.Version {
		return period.Period{}, fmt.Errorf("%w: period %d at version %d, expected %d",
			period.ErrStaleVersion, p.ID, current.Version, p.Version)
	}
	return current, nil
}

// compute runs the calculator over records in parallel. Employees whose
// computation fails are reported and left out.
func (s *Service) compute(ctx context.Context, p period.Period, records []payroll.Record, events []payroll.Event) ([]payroll.Record, []EmployeeError, error) {
	byEmployee := make(map[int64][]payroll.Event)
	for _, ev := range events {
		byEmployee[ev.EmployeeID] = append(byEmployee[ev.EmployeeID], ev)
	}
	type outcome struct {
		record payroll.Record
		err    error
	}
	results := make([]outcome, len(records))
	at := s.now()
	year := p.StartDate.Year()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := s.calc.Calculate(payroll.Input{
				Year:       year,
				BaseSalary: rec.BaseSalary,
				WorkedDays: rec.WorkedDays,
				Events:     byEmployee[rec.EmployeeID],
			})
			if err != nil {
				results[i].err = err
				return nil
			}
			rec.Apply(c, at)
			results[i].record = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	computed := make([]payroll.Record, 0, len(records))
	errs := []EmployeeError{}
	for i, r := range results {
		if r.err != nil {
			errs = append(errs, EmployeeError{EmployeeID: records[i].EmployeeID, Message: r.err.Error()})
			s.logger.Warn("employee computation failed", slog.Int64("period_id", p.ID),
				slog.Int64("employee_id", records[i].EmployeeID), slog.Any("error", r.err))
			continue
		}
		computed = append(computed, r.record)
	}
	return computed, errs, nil
}

// dispatchVouchers schedules voucher generation. Failures are logged and
// audited but never undo the committed liquidation.
func (s *Service) dispatchVouchers(ctx context.Context, tr *trail, periodID int64, ids []int64, supersede bool) int {
	if s.vouchers == nil {
		return 0
	}
	meta := map[string]any{"requested": len(ids)}
	if supersede {
		n, err := s.vouchers.Supersede(ctx, periodID, ids)
		meta["superseded"] = n
		if err != nil {
			s.logger.Warn("voucher supersede failed", slog.Int64("period_id", periodID), slog.Any("error", err))
			meta["supersede_error"] = err.Error()
		}
	}
	n, err := s.vouchers.Dispatch(ctx, periodID, ids)
	meta["enqueued"] = n
	if err != nil {
		s.logger.Warn("voucher dispatch failed", slog.Int64("period_id", periodID), slog.Any("error", err))
		meta["error"] = err.Error()
	}
	tr.record(ctx, StepVouchersGenerated, meta)
	return n
}

func (s *Service) acquire(ctx context.Context, periodID int64) (*shared.Lock, error) {
	if s.locker == nil {
		return nil, nil
	}
	lock, err := s.locker.Acquire(ctx, shared.PeriodLockKey(periodID), s.cfg.LockTTL)
	if errors.Is(err, shared.ErrLockHeld) {
		return nil, fmt.Errorf("%w: period %d", shared.ErrPeriodBusy, periodID)
	}
	return lock, err
}

func (s *Service) release(ctx context.Context, lock *shared.Lock) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("release period lock", slog.Any("error", err))
	}
}

// selectScope picks the records to recompute and reports requested
// employees without a record.
func selectScope(records []payroll.Record, in ReliquidationInput) ([]payroll.Record, []int64) {
	if in.Scope == ScopeAll {
		return records, nil
	}
	wanted := make(map[int64]bool, len(in.AffectedEmployeeIDs))
	for _, id := range in.AffectedEmployeeIDs {
		wanted[id] = false
	}
	var selected []payroll.Record
	for _, r := range records {
		if _, ok := wanted[r.EmployeeID]; ok {
			wanted[r.EmployeeID] = true
			selected = append(selected, r)
		}
	}
	var missing []int64
	for id, found := range wanted {
		if !found {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return selected, missing
}

func employeeIDs(records []payroll.Record) []int64 {
	ids := make([]int64, 0, len(records))
	seen := make(map[int64]bool, len(records))
	for _, r := range records {
		if !seen[r.EmployeeID] {
			seen[r.EmployeeID] = true
			ids = append(ids, r.EmployeeID)
		}
	}
	return ids
}

// trail accumulates the audit entries of one run and persists each as it
// happens.
type trail struct {
	svc      *Service
	runID    string
	periodID int64
	actorID  int64
	entries  []shared.AuditLog
}

func (s *Service) newTrail(periodID, actorID int64) *trail {
	return &trail{svc: s, runID: uuid.NewString(), periodID: periodID, actorID: actorID, entries: []shared.AuditLog{}}
}

func (t *trail) entry(action string, meta map[string]any) shared.AuditLog {
	return shared.AuditLog{
		RunID:    t.runID,
		ActorID:  t.actorID,
		Action:   action,
		Entity:   shared.AuditEntityPeriod,
		EntityID: strconv.FormatInt(t.periodID, 10),
		Meta:     meta,
		At:       t.svc.now(),
	}
}

// keep adds an entry that was already persisted by a transaction.
func (t *trail) keep(entry shared.AuditLog) {
	t.entries = append(t.entries, entry)
}

// record persists a step outside any transaction, so it survives rollbacks.
func (t *trail) record(ctx context.Context, action string, meta map[string]any) {
	entry := t.entry(action, meta)
	t.keep(entry)
	if t.svc.audit == nil {
		return
	}
	if err := t.svc.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
		t.svc.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}

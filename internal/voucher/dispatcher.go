package voucher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Store persists voucher rows.
type Store interface {
	CreatePending(ctx context.Context, periodID, employeeID int64) (Voucher, error)
	Supersede(ctx context.Context, periodID int64, employeeIDs []int64) (int, error)
	MarkGenerated(ctx context.Context, id int64, path string) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	LoadDocument(ctx context.Context, id int64) (Document, error)
	ListByPeriod(ctx context.Context, periodID int64) ([]Voucher, error)
}

// Enqueuer schedules the generation of one voucher.
type Enqueuer interface {
	EnqueueVoucher(ctx context.Context, voucherID int64) error
}

// Dispatcher records pending vouchers and queues their generation.
type Dispatcher struct {
	store  Store
	queue  Enqueuer
	logger *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(store Store, queue Enqueuer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, queue: queue, logger: logger}
}

// Dispatch creates one pending voucher per employee and enqueues it. It
// returns how many were enqueued; failures are joined into the error and the
// voucher is marked failed.
func (d *Dispatcher) Dispatch(ctx context.Context, periodID int64, employeeIDs []int64) (int, error) {
	var (
		enqueued int
		errs     []error
	)
	for _, employeeID := range employeeIDs {
		v, err := d.store.CreatePending(ctx, periodID, employeeID)
		if err != nil {
			errs = append(errs, fmt.Errorf("employee %d: %w", employeeID, err))
			continue
		}
		if err := d.queue.EnqueueVoucher(ctx, v.ID); err != nil {
			errs = append(errs, fmt.Errorf("employee %d: enqueue: %w", employeeID, err))
			if markErr := d.store.MarkFailed(ctx, v.ID, err.Error()); markErr != nil {
				d.logger.Warn("mark voucher failed", slog.Int64("voucher_id", v.ID), slog.Any("error", markErr))
			}
			continue
		}
		enqueued++
	}
	if len(errs) > 0 {
		d.logger.Warn("voucher dispatch incomplete", slog.Int64("period_id", periodID),
			slog.Int("enqueued", enqueued), slog.Int("failed", len(errs)))
	}
	return enqueued, errors.Join(errs...)
}

// Supersede marks the live vouchers of the employees as replaced.
func (d *Dispatcher) Supersede(ctx context.Context, periodID int64, employeeIDs []int64) (int, error) {
	return d.store.Supersede(ctx, periodID, employeeIDs)
}

// List returns the vouchers of a period.
func (d *Dispatcher) List(ctx context.Context, periodID int64) ([]Voucher, error) {
	return d.store.ListByPeriod(ctx, periodID)
}

package validation

import (
	"context"
	"fmt"
	"log/slog"
)

// Loader reads the snapshot the rules evaluate.
type Loader interface {
	LoadSnapshot(ctx context.Context, periodID, companyID int64) (Snapshot, error)
}

// Repairer applies one repair action atomically.
type Repairer interface {
	Repair(ctx context.Context, action RepairAction, periodID, actorID int64) error
}

// Engine gates liquidation behind a scored validation pass.
type Engine struct {
	loader   Loader
	repairer Repairer
	logger   *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(loader Loader, repairer Repairer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{loader: loader, repairer: repairer, logger: logger}
}

// Validate evaluates every check against the current state of the period.
func (e *Engine) Validate(ctx context.Context, periodID, companyID int64) (Result, error) {
	snap, err := e.loader.LoadSnapshot(ctx, periodID, companyID)
	if err != nil {
		return Result{}, fmt.Errorf("validation: load period %d: %w", periodID, err)
	}
	return Evaluate(snap), nil
}

// Repair runs the repair of every failing auto-repairable check, then
// validates again. Repair failures are collected in the log.
func (e *Engine) Repair(ctx context.Context, periodID, companyID, actorID int64) (RepairOutcome, error) {
	before, err := e.Validate(ctx, periodID, companyID)
	if err != nil {
		return RepairOutcome{}, err
	}
	out := RepairOutcome{Before: before, Log: []RepairEntry{}}
	for _, c := range before.Checks {
		if c.Passed || !c.AutoRepairable {
			continue
		}
		entry := RepairEntry{Check: c.ID, Action: c.Repair}
		if err := e.repairer.Repair(ctx, c.Repair, periodID, actorID); err != nil {
			entry.Error = err.Error()
			e.logger.Warn("validation repair failed",
				slog.Int64("period_id", periodID), slog.String("check", string(c.ID)), slog.Any("error", err))
		} else {
			entry.Applied = true
		}
		out.Log = append(out.Log, entry)
	}
	if len(out.Log) == 0 {
		out.After = before
		return out, nil
	}
	out.After, err = e.Validate(ctx, periodID, companyID)
	if err != nil {
		return out, err
	}
	return out, nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nomina-co/nomina/internal/jobs"
	"github.com/nomina-co/nomina/internal/voucher"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueVouchers carries voucher rendering, weighted above the default queue.
	QueueVouchers = "vouchers"
	// TaskGenerateVoucher renders one payroll voucher.
	TaskGenerateVoucher = "payroll:voucher:generate"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// GenerateVoucherPayload identifies the voucher to render.
type GenerateVoucherPayload struct {
	VoucherID int64 `json:"voucher_id"`
}

// NewGenerateVoucherTask constructs an Asynq task.
func NewGenerateVoucherTask(voucherID int64) (*asynq.Task, error) {
	if voucherID <= 0 {
		return nil, fmt.Errorf("voucher id must be positive")
	}
	data, err := json.Marshal(GenerateVoucherPayload{VoucherID: voucherID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGenerateVoucher, data, asynq.Queue(QueueVouchers), asynq.MaxRetry(5)), nil
}

// VoucherGenerator renders a queued voucher.
type VoucherGenerator interface {
	Generate(ctx context.Context, voucherID int64) (string, error)
}

// VoucherJob processes TaskGenerateVoucher tasks.
type VoucherJob struct {
	Generator VoucherGenerator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewVoucherJob constructs the job handler.
func NewVoucherJob(generator VoucherGenerator, logger *slog.Logger, metrics *jobmetrics.Metrics) *VoucherJob {
	return &VoucherJob{Generator: generator, Logger: logger, Metrics: metrics}
}

// Handle renders the voucher. Superseded or missing vouchers are not retried.
func (j *VoucherJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Generator == nil {
		return errors.New("voucher job: generator not configured")
	}
	var payload GenerateVoucherPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.VoucherID <= 0 {
		return asynq.SkipRetry
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskGenerateVoucher)

	path, err := j.Generator.Generate(ctx, payload.VoucherID)
	if err != nil {
		if voucher.IsSkippable(err) {
			j.log().Info("voucher skipped", slog.Int64("voucher_id", payload.VoucherID), slog.Any("reason", err))
			_ = tracker.End(nil)
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		j.log().Error("generate voucher", slog.Int64("voucher_id", payload.VoucherID), slog.Any("error", err))
		return tracker.End(err)
	}
	j.log().Debug("voucher written", slog.Int64("voucher_id", payload.VoucherID), slog.String("path", path))
	return tracker.End(nil)
}

func (j *VoucherJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGenerateVoucher))
	}
	return slog.Default().With(slog.String("job", TaskGenerateVoucher))
}

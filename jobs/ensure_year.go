package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nomina-co/nomina/internal/jobs"
	"github.com/nomina-co/nomina/internal/period"
)

const (
	// TaskEnsureYear materialises the period catalog of a year.
	TaskEnsureYear = "payroll:period:ensure-year"
)

// EnsureYearPayload scopes the job. Zero values mean every active company
// and the current year; IncludeNext also prepares the following year.
type EnsureYearPayload struct {
	CompanyID   int64 `json:"company_id"`
	Year        int   `json:"year"`
	IncludeNext bool  `json:"include_next"`
}

// PeriodEnsurer creates the missing periods of a year.
type PeriodEnsurer interface {
	EnsureYear(ctx context.Context, companyID int64, year int) (period.EnsureYearResult, error)
}

// CompanyLister resolves the companies the cron covers.
type CompanyLister interface {
	ListActiveCompanies(ctx context.Context) ([]int64, error)
}

// EnsureYearJob coordinates the yearly catalog preparation.
type EnsureYearJob struct {
	Service PeriodEnsurer
	Repo    CompanyLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewEnsureYearJob constructs the job handler.
func NewEnsureYearJob(service PeriodEnsurer, repo CompanyLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *EnsureYearJob {
	return &EnsureYearJob{
		Service: service,
		Repo:    repo,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewEnsureYearTask creates an Asynq task for the given payload.
func NewEnsureYearTask(payload EnsureYearPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEnsureYear, body, asynq.Queue(QueueDefault)), nil
}

// Handle executes the ensure-year job. One company failing does not stop
// the others; the joined error is returned for retry.
func (j *EnsureYearJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil || j.Repo == nil {
		return errors.New("ensure year: dependencies not configured")
	}
	var payload EnsureYearPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskEnsureYear)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	companies, err := j.resolveCompanies(ctx, payload.CompanyID)
	if err != nil {
		resultErr = err
		j.log().Error("resolve companies", slog.Int64("company_id", payload.CompanyID), slog.Any("error", err))
		return resultErr
	}
	if len(companies) == 0 {
		j.log().Info("no active companies discovered")
		return resultErr
	}

	years := j.resolveYears(payload)
	start := j.now()
	var (
		generated int
		errs      []error
	)
	for _, companyID := range companies {
		for _, year := range years {
			res, err := j.Service.EnsureYear(ctx, companyID, year)
			if err != nil {
				errs = append(errs, fmt.Errorf("company %d year %d: %w", companyID, year, err))
				j.log().Error("ensure year", slog.Int64("company_id", companyID), slog.Int("year", year), slog.Any("error", err))
				continue
			}
			generated += res.Generated
			if res.Failed > 0 {
				errs = append(errs, fmt.Errorf("company %d year %d: %d slots failed", companyID, year, res.Failed))
			}
		}
	}
	resultErr = errors.Join(errs...)

	j.log().Info("ensured period catalogs", slog.Int("companies", len(companies)), slog.Any("years", years),
		slog.Int("generated", generated), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *EnsureYearJob) resolveCompanies(ctx context.Context, companyID int64) ([]int64, error) {
	if companyID > 0 {
		return []int64{companyID}, nil
	}
	if companyID < 0 {
		return nil, fmt.Errorf("company id must be positive")
	}
	return j.Repo.ListActiveCompanies(ctx)
}

func (j *EnsureYearJob) resolveYears(payload EnsureYearPayload) []int {
	year := payload.Year
	if year == 0 {
		year = j.now().Year()
	}
	if payload.IncludeNext {
		return []int{year, year + 1}
	}
	return []int{year}
}

func (j *EnsureYearJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *EnsureYearJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskEnsureYear))
	}
	return slog.Default().With(slog.String("job", TaskEnsureYear))
}

func (j *EnsureYearJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *EnsureYearJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}

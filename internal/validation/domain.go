package validation

import (
	"errors"

	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
)

// Category ranks a check. Critical failures block liquidation outright.
type Category string

const (
	Critical  Category = "critical"
	Important Category = "important"
	Minor     Category = "minor"
)

// CheckID names a validation rule.
type CheckID string

const (
	CheckPeriodExists         CheckID = "period_exists"
	CheckPeriodEditable       CheckID = "period_state_editable"
	CheckHasEmployees         CheckID = "has_employees"
	CheckPositiveSalary       CheckID = "positive_base_salary"
	CheckNoDuplicates         CheckID = "no_duplicate_employees"
	CheckReferentialIntegrity CheckID = "referential_integrity"
	CheckEventsFolded         CheckID = "events_folded"
	CheckWorkedDays           CheckID = "worked_days_consistent"
	CheckDeductionsPlausible  CheckID = "deductions_plausible"
	CheckMinimumWageFloor     CheckID = "minimum_wage_floor"
	CheckTotalsConsistent     CheckID = "totals_consistent"
	CheckLabelPresent         CheckID = "label_present"
)

// RepairAction identifies an idempotent fix for a failing check.
type RepairAction string

const (
	RepairReopenPeriod    RepairAction = "reopen_period"
	RepairDeduplicate     RepairAction = "deduplicate_records"
	RepairRecomputeTotals RepairAction = "recompute_totals"
	RepairFillLabel       RepairAction = "fill_label"
)

// PassThreshold is the minimum weighted score allowing liquidation.
const PassThreshold = 90

// Check is one evaluated rule.
type Check struct {
	ID             CheckID      `json:"id"`
	Category       Category     `json:"category"`
	Weight         int          `json:"weight"`
	Passed         bool         `json:"passed"`
	Message        string       `json:"message"`
	AutoRepairable bool         `json:"autoRepairable"`
	Repair         RepairAction `json:"repair,omitempty"`
}

// Summary counts check outcomes.
type Summary struct {
	Total           int    `json:"total"`
	Passed          int    `json:"passed"`
	Failed          int    `json:"failed"`
	CriticalFailed  int    `json:"criticalFailed"`
	ImportantFailed int    `json:"importantFailed"`
	MinorFailed     int    `json:"minorFailed"`
	Message         string `json:"message"`
}

// Result is the outcome of a validation pass. IsValid is true only when every
// critical check passed and the score reaches PassThreshold.
type Result struct {
	IsValid    bool    `json:"isValid"`
	Score      int     `json:"score"`
	Checks     []Check `json:"checks"`
	MustRepair []Check `json:"mustRepair"`
	Summary    Summary `json:"summary"`
}

// Check returns the evaluated check with id.
func (r Result) Check(id CheckID) (Check, bool) {
	for _, c := range r.Checks {
		if c.ID == id {
			return c, true
		}
	}
	return Check{}, false
}

// Employee is the minimal employee view needed for integrity checks.
type Employee struct {
	ID        int64
	CompanyID int64
	Active    bool
}

// Snapshot is everything the rules read about one period.
type Snapshot struct {
	CompanyID int64
	Period    *period.Period
	Records   []payroll.Record
	Events    []payroll.Event
	Employees map[int64]Employee
}

// RepairEntry records the outcome of one repair attempt.
type RepairEntry struct {
	Check   CheckID      `json:"check"`
	Action  RepairAction `json:"action"`
	Applied bool         `json:"applied"`
	Error   string       `json:"error,omitempty"`
}

// RepairOutcome holds validation before and after repairs.
type RepairOutcome struct {
	Before Result        `json:"before"`
	After  Result        `json:"after"`
	Log    []RepairEntry `json:"log"`
}

// ErrUnknownRepair is returned for actions without an implementation.
var ErrUnknownRepair = errors.New("validation: unknown repair action")

package validation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/nomina-co/nomina/internal/payroll"
	"github.com/nomina-co/nomina/internal/period"
)

type outcome struct {
	passed     bool
	message    string
	repairable bool
}

func pass(msg string) outcome { return outcome{passed: true, message: msg} }

func fail(msg string, args ...any) outcome {
	return outcome{message: fmt.Sprintf(msg, args...)}
}

type rule struct {
	id       CheckID
	category Category
	weight   int
	repair   RepairAction
	eval     func(Snapshot) outcome
}

var rules = []rule{
	{CheckPeriodExists, Critical, 10, "", checkPeriodExists},
	{CheckPeriodEditable, Critical, 10, RepairReopenPeriod, checkPeriodEditable},
	{CheckHasEmployees, Critical, 10, "", checkHasEmployees},
	{CheckPositiveSalary, Critical, 10, "", checkPositiveSalary},
	{CheckNoDuplicates, Critical, 10, RepairDeduplicate, checkNoDuplicates},
	{CheckReferentialIntegrity, Important, 5, "", checkReferentialIntegrity},
	{CheckEventsFolded, Important, 5, "", checkEventsFolded},
	{CheckWorkedDays, Important, 5, "", checkWorkedDays},
	{CheckDeductionsPlausible, Important, 5, "", checkDeductionsPlausible},
	{CheckMinimumWageFloor, Important, 5, "", checkMinimumWageFloor},
	{CheckTotalsConsistent, Minor, 3, RepairRecomputeTotals, checkTotalsConsistent},
	{CheckLabelPresent, Minor, 3, RepairFillLabel, checkLabelPresent},
}

// Evaluate runs every rule against the snapshot.
func Evaluate(s Snapshot) Result {
	checks := make([]Check, 0, len(rules))
	for _, r := range rules {
		o := r.eval(s)
		c := Check{
			ID:       r.id,
			Category: r.category,
			Weight:   r.weight,
			Passed:   o.passed,
			Message:  o.message,
		}
		if !o.passed && o.repairable && r.repair != "" {
			c.AutoRepairable = true
			c.Repair = r.repair
		}
		checks = append(checks, c)
	}
	return Score(checks)
}

// Score aggregates evaluated checks into a Result.
func Score(checks []Check) Result {
	res := Result{Checks: checks, MustRepair: []Check{}}
	var total, passed int
	criticalOK := true
	for _, c := range checks {
		total += c.Weight
		res.Summary.Total++
		if c.Passed {
			passed += c.Weight
			res.Summary.Passed++
			continue
		}
		res.Summary.Failed++
		switch c.Category {
		case Critical:
			criticalOK = false
			res.Summary.CriticalFailed++
			res.MustRepair = append(res.MustRepair, c)
		case Important:
			res.Summary.ImportantFailed++
		default:
			res.Summary.MinorFailed++
		}
	}
	if total > 0 {
		res.Score = int(math.Round(100 * float64(passed) / float64(total)))
	}
	res.IsValid = criticalOK && res.Score >= PassThreshold
	switch {
	case res.IsValid:
		res.Summary.Message = fmt.Sprintf("periodo listo para liquidar (puntaje %d)", res.Score)
	case !criticalOK:
		res.Summary.Message = fmt.Sprintf("%d validaciones críticas fallidas", res.Summary.CriticalFailed)
	default:
		res.Summary.Message = fmt.Sprintf("puntaje %d inferior al mínimo %d", res.Score, PassThreshold)
	}
	return res
}

func checkPeriodExists(s Snapshot) outcome {
	if s.Period == nil {
		return fail("el periodo no existe")
	}
	if s.Period.CompanyID != s.CompanyID {
		return fail("el periodo %d no pertenece a la empresa %d", s.Period.ID, s.CompanyID)
	}
	return pass("periodo encontrado")
}

// A closed period without any computed record was closed inconsistently and
// may be reopened automatically.
func checkPeriodEditable(s Snapshot) outcome {
	if s.Period == nil {
		return fail("sin periodo")
	}
	if s.Period.State.Editable() {
		return pass("periodo editable")
	}
	o := fail("el periodo está en estado %s", s.Period.State)
	o.repairable = computedCount(s.Records) == 0 && s.Period.Totals.Gross.IsZero()
	return o
}

func checkHasEmployees(s Snapshot) outcome {
	if len(s.Records) == 0 {
		return fail("el periodo no tiene empleados asociados")
	}
	return pass(fmt.Sprintf("%d registros de empleados", len(s.Records)))
}

func checkPositiveSalary(s Snapshot) outcome {
	var bad []int64
	for _, r := range s.Records {
		if !r.BaseSalary.IsPositive() {
			bad = append(bad, r.EmployeeID)
		}
	}
	if len(bad) > 0 {
		return fail("empleados sin salario base positivo: %v", bad)
	}
	return pass("salarios base positivos")
}

func checkNoDuplicates(s Snapshot) outcome {
	seen := make(map[int64]int, len(s.Records))
	var dups []int64
	for _, r := range s.Records {
		seen[r.EmployeeID]++
		if seen[r.EmployeeID] == 2 {
			dups = append(dups, r.EmployeeID)
		}
	}
	if len(dups) > 0 {
		o := fail("empleados duplicados: %v", dups)
		o.repairable = s.Period != nil && s.Period.State.Editable()
		return o
	}
	return pass("sin duplicados")
}

func checkReferentialIntegrity(s Snapshot) outcome {
	var bad []int64
	for _, r := range s.Records {
		emp, ok := s.Employees[r.EmployeeID]
		if !ok || !emp.Active || emp.CompanyID != s.CompanyID || (s.Period != nil && r.PeriodID != s.Period.ID) {
			bad = append(bad, r.EmployeeID)
		}
	}
	if len(bad) > 0 {
		return fail("registros con empleado inexistente, inactivo o de otra empresa: %v", bad)
	}
	return pass("integridad referencial correcta")
}

// checkEventsFolded requires every event to be folded into a stored
// computation, or foldable by the coming liquidation. An open period may hold
// pending events of employees with a record. A closed period may hold none,
// and its folded events must belong to a computed record.
func checkEventsFolded(s Snapshot) outcome {
	attached := make(map[int64]bool, len(s.Records))
	computed := make(map[int64]bool, len(s.Records))
	for _, r := range s.Records {
		attached[r.EmployeeID] = true
		if r.Computed() {
			computed[r.EmployeeID] = true
		}
	}
	closed := s.Period != nil && !s.Period.State.Editable()
	var orphans, unfolded []int64
	for _, ev := range s.Events {
		switch {
		case !attached[ev.EmployeeID] && !ev.Folded:
			orphans = append(orphans, ev.ID)
		case closed && (!ev.Folded || !computed[ev.EmployeeID]):
			unfolded = append(unfolded, ev.ID)
		}
	}
	if len(orphans) > 0 {
		return fail("novedades sin registro de nómina que las incorpore: %v", orphans)
	}
	if len(unfolded) > 0 {
		return fail("novedades no incorporadas al cálculo del periodo cerrado: %v", unfolded)
	}
	return pass("todas las novedades están incorporadas o pueden incorporarse")
}

func checkWorkedDays(s Snapshot) outcome {
	limit := 30
	if s.Period != nil {
		limit = payableDays(*s.Period)
	}
	var bad []int64
	for _, r := range s.Records {
		if r.WorkedDays <= 0 || r.WorkedDays > limit {
			bad = append(bad, r.EmployeeID)
		}
	}
	if len(bad) > 0 {
		return fail("días trabajados fuera de rango (1-%d): %v", limit, bad)
	}
	return pass("días trabajados consistentes")
}

func checkDeductionsPlausible(s Snapshot) outcome {
	var bad []int64
	for _, r := range s.Records {
		if !r.Computed() {
			continue
		}
		if r.TotalDeductions.IsNegative() || r.TotalDeductions.GreaterThan(r.GrossPay) {
			bad = append(bad, r.EmployeeID)
		}
	}
	if len(bad) > 0 {
		return fail("deducciones negativas o superiores al devengado: %v", bad)
	}
	return pass("deducciones razonables")
}

func checkMinimumWageFloor(s Snapshot) outcome {
	if s.Period == nil {
		return pass("sin periodo")
	}
	floor := payroll.MinimumWage(s.Period.StartDate.Year())
	var bad []int64
	for _, r := range s.Records {
		if r.BaseSalary.IsPositive() && r.BaseSalary.LessThan(floor) {
			bad = append(bad, r.EmployeeID)
		}
	}
	if len(bad) > 0 {
		return fail("salario inferior al SMMLV %s: %v", floor.StringFixed(0), bad)
	}
	return pass("salarios sobre el mínimo legal")
}

func checkTotalsConsistent(s Snapshot) outcome {
	if s.Period == nil {
		return fail("sin periodo")
	}
	want := sumTotals(s.Records)
	if !s.Period.Totals.Equal(want) {
		o := fail("totales almacenados (%s) difieren de la suma de registros (%s)",
			s.Period.Totals.Gross.StringFixed(0), want.Gross.StringFixed(0))
		o.repairable = s.Period.State.Editable()
		return o
	}
	return pass("totales consistentes")
}

func checkLabelPresent(s Snapshot) outcome {
	if s.Period == nil {
		return fail("sin periodo")
	}
	if s.Period.Label == "" {
		o := fail("el periodo no tiene etiqueta")
		o.repairable = s.Period.State.Editable()
		return o
	}
	return pass("etiqueta presente")
}

func computedCount(records []payroll.Record) int {
	n := 0
	for _, r := range records {
		if r.Computed() {
			n++
		}
	}
	return n
}

func sumTotals(records []payroll.Record) period.Totals {
	t := period.Totals{Gross: decimal.Zero, Deductions: decimal.Zero, Net: decimal.Zero}
	seen := make(map[int64]bool)
	for _, r := range records {
		if !r.Computed() {
			continue
		}
		t.Gross = t.Gross.Add(r.GrossPay)
		t.Deductions = t.Deductions.Add(r.TotalDeductions)
		if !seen[r.EmployeeID] {
			seen[r.EmployeeID] = true
			t.EmployeesCount++
		}
	}
	t.Net = t.Gross.Sub(t.Deductions)
	return t
}

// payableDays bounds worked days by the periodicity, widened for custom
// ranges longer than the canonical period.
func payableDays(p period.Period) int {
	limit := p.Periodicity.CommercialDays()
	span := int(p.EndDate.Sub(p.StartDate).Hours()/24) + 1
	if span > limit {
		limit = span
	}
	if limit > 30 {
		limit = 30
	}
	return limit
}

package period

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Strategy maps reference dates to canonical period boundaries for one
// periodicity. Implementations are pure.
type Strategy interface {
	Periodicity() Periodicity
	// Year is the catalog year a date belongs to.
	Year(ref time.Time) int
	Sequence(ref time.Time) int
	Bounds(ref time.Time) (start, end time.Time)
	CanonicalFor(year, seq int) (start, end time.Time, err error)
	SlotsInYear(year int) int
	Label(start, end time.Time, seq int) string
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the capitalised Spanish month name.
func MonthName(m time.Month) string {
	return cases.Title(language.Spanish).String(monthNames[m-1])
}

// StrategyFor dispatches a periodicity to its strategy.
func StrategyFor(p Periodicity) (Strategy, error) {
	switch p {
	case Weekly:
		return weeklyStrategy{}, nil
	case Biweekly:
		return biweeklyStrategy{}, nil
	case Monthly:
		return monthlyStrategy{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodicity, string(p))
}

// ValidatePeriodCoherence reports whether [start, end] is exactly the
// canonical period number under periodicity p.
func ValidatePeriodCoherence(start, end time.Time, p Periodicity, number int) bool {
	strategy, err := StrategyFor(p)
	if err != nil {
		return false
	}
	cs, ce, err := strategy.CanonicalFor(strategy.Year(start), number)
	if err != nil {
		return false
	}
	return sameDay(cs, start) && sameDay(ce, end)
}

// Propose derives creation metadata for a user-chosen range. Incoherent
// ranges keep the literal dates and carry a warning.
func Propose(strategy Strategy, start, end time.Time) Proposal {
	start, end = Date(start), Date(end)
	seq := strategy.Sequence(start)
	proposal := Proposal{
		Year:        strategy.Year(start),
		Periodicity: strategy.Periodicity(),
		Sequence:    seq,
		Label:       strategy.Label(start, end, seq),
		Coherent:    ValidatePeriodCoherence(start, end, strategy.Periodicity(), seq),
	}
	if !proposal.Coherent {
		cs, ce := strategy.Bounds(start)
		proposal.Warning = fmt.Sprintf("el rango %s - %s no coincide con el periodo canónico %s - %s; se usarán las fechas indicadas",
			start.Format(time.DateOnly), end.Format(time.DateOnly), cs.Format(time.DateOnly), ce.Format(time.DateOnly))
	}
	return proposal
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

type biweeklyStrategy struct{}

func (biweeklyStrategy) Periodicity() Periodicity { return Biweekly }

func (biweeklyStrategy) Year(ref time.Time) int { return ref.Year() }

func (biweeklyStrategy) Sequence(ref time.Time) int {
	seq := (int(ref.Month()) - 1) * 2
	if ref.Day() <= 15 {
		return seq + 1
	}
	return seq + 2
}

func (biweeklyStrategy) Bounds(ref time.Time) (time.Time, time.Time) {
	y, m, d := ref.Date()
	if d <= 15 {
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), time.Date(y, m, 15, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(y, m, 16, 0, 0, 0, 0, time.UTC), time.Date(y, m, lastDayOfMonth(y, m), 0, 0, 0, 0, time.UTC)
}

func (s biweeklyStrategy) CanonicalFor(year, seq int) (time.Time, time.Time, error) {
	if seq < 1 || seq > s.SlotsInYear(year) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: biweekly %d", ErrInvalidSequence, seq)
	}
	month := time.Month((seq + 1) / 2)
	day := 1
	if seq%2 == 0 {
		day = 16
	}
	start, end := s.Bounds(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	return start, end, nil
}

func (biweeklyStrategy) SlotsInYear(int) int { return 24 }

func (biweeklyStrategy) Label(start, _ time.Time, seq int) string {
	half := "1ra"
	if seq%2 == 0 {
		half = "2da"
	}
	return fmt.Sprintf("%s Quincena %s %d", half, MonthName(start.Month()), start.Year())
}

type monthlyStrategy struct{}

func (monthlyStrategy) Periodicity() Periodicity { return Monthly }

func (monthlyStrategy) Year(ref time.Time) int { return ref.Year() }

func (monthlyStrategy) Sequence(ref time.Time) int { return int(ref.Month()) }

func (monthlyStrategy) Bounds(ref time.Time) (time.Time, time.Time) {
	y, m, _ := ref.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), time.Date(y, m, lastDayOfMonth(y, m), 0, 0, 0, 0, time.UTC)
}

func (s monthlyStrategy) CanonicalFor(year, seq int) (time.Time, time.Time, error) {
	if seq < 1 || seq > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: monthly %d", ErrInvalidSequence, seq)
	}
	start, end := s.Bounds(time.Date(year, time.Month(seq), 1, 0, 0, 0, 0, time.UTC))
	return start, end, nil
}

func (monthlyStrategy) SlotsInYear(int) int { return 12 }

func (monthlyStrategy) Label(start, _ time.Time, _ int) string {
	return fmt.Sprintf("%s %d", MonthName(start.Month()), start.Year())
}

// weeklyStrategy numbers 7-day windows from the first Monday on or after
// January 1st. Days before that Monday close the previous year.
type weeklyStrategy struct{}

func firstMonday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(jan1.Weekday()) + 7) % 7
	return jan1.AddDate(0, 0, offset)
}

func daysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

func (weeklyStrategy) Periodicity() Periodicity { return Weekly }

func (weeklyStrategy) Year(ref time.Time) int {
	y := ref.Year()
	if Date(ref).Before(firstMonday(y)) {
		return y - 1
	}
	return y
}

func (s weeklyStrategy) Sequence(ref time.Time) int {
	return daysBetween(firstMonday(s.Year(ref)), ref)/7 + 1
}

func (s weeklyStrategy) Bounds(ref time.Time) (time.Time, time.Time) {
	start := firstMonday(s.Year(ref)).AddDate(0, 0, (s.Sequence(ref)-1)*7)
	return start, start.AddDate(0, 0, 6)
}

func (s weeklyStrategy) CanonicalFor(year, seq int) (time.Time, time.Time, error) {
	if seq < 1 || seq > s.SlotsInYear(year) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: weekly %d", ErrInvalidSequence, seq)
	}
	start := firstMonday(year).AddDate(0, 0, (seq-1)*7)
	return start, start.AddDate(0, 0, 6), nil
}

func (weeklyStrategy) SlotsInYear(year int) int {
	return daysBetween(firstMonday(year), firstMonday(year+1)) / 7
}

func (s weeklyStrategy) Label(start, end time.Time, seq int) string {
	return fmt.Sprintf("Semana %d %d (%s - %s)", seq, s.Year(start), start.Format("02/01"), end.Format("02/01"))
}

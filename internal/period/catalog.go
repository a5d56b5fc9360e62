package period

import (
	"context"
	"fmt"
	"time"
)

// Store persists periods. Implementations must enforce uniqueness of
// (company, year, periodicity, sequence).
type Store interface {
	LoadPeriod(ctx context.Context, id int64) (Period, error)
	ListYear(ctx context.Context, companyID int64, periodicity Periodicity, year int) ([]Period, error)
	ListOverlapping(ctx context.Context, companyID int64, start, end time.Time) ([]Period, error)
	// InsertPeriod creates the period, or returns the row already holding its
	// slot with created=false.
	InsertPeriod(ctx context.Context, in NewPeriod) (p Period, created bool, err error)
	// CompanyPeriodicity returns the configured periodicity, empty when unset.
	CompanyPeriodicity(ctx context.Context, companyID int64) (Periodicity, error)
	ListActiveCompanies(ctx context.Context) ([]int64, error)
}

// Catalog enumerates and materialises the expected periods of a year.
type Catalog struct {
	store Store
}

// NewCatalog constructs a Catalog over store.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// Slots merges expected slots with persisted periods. Missing slots are
// reported as to_create and never written.
func (c *Catalog) Slots(ctx context.Context, companyID int64, strategy Strategy, year int) ([]Slot, error) {
	existing, err := c.bySequence(ctx, companyID, strategy, year)
	if err != nil {
		return nil, err
	}
	n := strategy.SlotsInYear(year)
	slots := make([]Slot, 0, n)
	for seq := 1; seq <= n; seq++ {
		start, end, err := strategy.CanonicalFor(year, seq)
		if err != nil {
			return nil, err
		}
		slot := Slot{
			Sequence:  seq,
			StartDate: start,
			EndDate:   end,
			Label:     strategy.Label(start, end, seq),
			Status:    SlotToCreate,
		}
		if p, ok := existing[seq]; ok {
			p := p
			slot.Period = &p
			slot.StartDate, slot.EndDate, slot.Label = p.StartDate, p.EndDate, p.Label
			slot.Status = SlotAvailable
			if p.State == StateClosed {
				slot.Status = SlotClosed
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// CreateSlot persists the canonical period for seq. Repeating the call
// returns the same period with created=false.
func (c *Catalog) CreateSlot(ctx context.Context, companyID int64, strategy Strategy, year, seq int) (Period, bool, error) {
	start, end, err := strategy.CanonicalFor(year, seq)
	if err != nil {
		return Period{}, false, err
	}
	return c.store.InsertPeriod(ctx, NewPeriod{
		CompanyID:      companyID,
		Year:           year,
		Periodicity:    strategy.Periodicity(),
		SequenceNumber: seq,
		StartDate:      start,
		EndDate:        end,
		Label:          strategy.Label(start, end, seq),
	})
}

// EnsureYear materialises every missing slot. A failing slot is counted and
// reported without aborting the rest of the year.
func (c *Catalog) EnsureYear(ctx context.Context, companyID int64, strategy Strategy, year int) (EnsureYearResult, error) {
	existing, err := c.bySequence(ctx, companyID, strategy, year)
	if err != nil {
		return EnsureYearResult{}, err
	}
	result := EnsureYearResult{Year: year}
	for seq := 1; seq <= strategy.SlotsInYear(year); seq++ {
		if _, ok := existing[seq]; ok {
			result.Existing++
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, created, err := c.CreateSlot(ctx, companyID, strategy, year, seq)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("slot %d: %v", seq, err))
		case created:
			result.Generated++
		default:
			result.Existing++
		}
	}
	result.Total = result.Generated + result.Existing
	return result, nil
}

func (c *Catalog) bySequence(ctx context.Context, companyID int64, strategy Strategy, year int) (map[int]Period, error) {
	periods, err := c.store.ListYear(ctx, companyID, strategy.Periodicity(), year)
	if err != nil {
		return nil, fmt.Errorf("period: list year %d: %w", year, err)
	}
	out := make(map[int]Period, len(periods))
	for _, p := range periods {
		out[p.SequenceNumber] = p
	}
	return out, nil
}

package period

import (
	"context"
	"sort"
	"time"
)

// Detector classifies a user-chosen range against persisted periods.
type Detector struct {
	store Store
}

// NewDetector constructs a Detector over store.
func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// Detect returns continue for an exact match, conflict when an open period
// overlaps the range, and create otherwise. Closed periods never conflict.
func (d *Detector) Detect(ctx context.Context, companyID int64, strategy Strategy, start, end time.Time) (Detection, error) {
	start, end = Date(start), Date(end)
	if err := validateRange(start, end); err != nil {
		return Detection{}, err
	}
	candidates, err := d.store.ListOverlapping(ctx, companyID, start, end)
	if err != nil {
		return Detection{}, err
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StartDate.Before(candidates[j].StartDate)
	})
	for i := range candidates {
		if candidates[i].Covers(start, end) {
			p := candidates[i]
			return Detection{Action: ActionContinue, Period: &p}, nil
		}
	}
	for i := range candidates {
		p := candidates[i]
		if p.State != StateClosed && p.Overlaps(start, end) {
			return Detection{Action: ActionConflict, Conflict: &p}, nil
		}
	}
	proposal := Propose(strategy, start, end)
	return Detection{Action: ActionCreate, Proposal: &proposal}, nil
}

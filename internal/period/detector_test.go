package period

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectExactMatchContinues(t *testing.T) {
	store := newMemStore()
	existing := store.add(Period{CompanyID: 1, Year: 2025, Periodicity: Biweekly, SequenceNumber: 1,
		StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 15)})

	det, err := NewDetector(store).Detect(context.Background(), 1, mustStrategy(t, Biweekly), day(2025, 1, 1), day(2025, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, ActionContinue, det.Action)
	require.NotNil(t, det.Period)
	assert.Equal(t, existing.ID, det.Period.ID)
}

func TestDetectOverlapWithOpenPeriodConflicts(t *testing.T) {
	store := newMemStore()
	open := store.add(Period{CompanyID: 1, Year: 2025, Periodicity: Biweekly, SequenceNumber: 1,
		StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 15), State: StateProcessing})

	det, err := NewDetector(store).Detect(context.Background(), 1, mustStrategy(t, Biweekly), day(2025, 1, 10), day(2025, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, ActionConflict, det.Action)
	require.NotNil(t, det.Conflict)
	assert.Equal(t, open.ID, det.Conflict.ID)
}

func TestDetectIgnoresClosedOverlap(t *testing.T) {
	store := newMemStore()
	store.add(Period{CompanyID: 1, Year: 2025, Periodicity: Biweekly, SequenceNumber: 1,
		StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 15), State: StateClosed})

	det, err := NewDetector(store).Detect(context.Background(), 1, mustStrategy(t, Biweekly), day(2025, 1, 10), day(2025, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, det.Action)
	require.NotNil(t, det.Proposal)
	assert.False(t, det.Proposal.Coherent)
	assert.NotEmpty(t, det.Proposal.Warning)
}

func TestDetectFreeRangeProposesCreation(t *testing.T) {
	store := newMemStore()
	store.add(Period{CompanyID: 2, Year: 2025, Periodicity: Biweekly, SequenceNumber: 3,
		StartDate: day(2025, 2, 1), EndDate: day(2025, 2, 15)})

	det, err := NewDetector(store).Detect(context.Background(), 1, mustStrategy(t, Biweekly), day(2025, 2, 1), day(2025, 2, 15))
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, det.Action)
	assert.Equal(t, 3, det.Proposal.Sequence)
	assert.True(t, det.Proposal.Coherent)
	assert.Equal(t, "1ra Quincena Febrero 2025", det.Proposal.Label)
}

func TestDetectRejectsInvertedRange(t *testing.T) {
	_, err := NewDetector(newMemStore()).Detect(context.Background(), 1, mustStrategy(t, Monthly), day(2025, 2, 10), day(2025, 2, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

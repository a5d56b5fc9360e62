package period

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memStore struct {
	mu           sync.Mutex
	nextID       int64
	periods      map[int64]Period
	periodicity  map[int64]Periodicity
	failSequence map[int]error
	inserts      int
}

func newMemStore() *memStore {
	return &memStore{
		periods:      make(map[int64]Period),
		periodicity:  make(map[int64]Periodicity),
		failSequence: make(map[int]error),
	}
}

func (m *memStore) add(p Period) Period {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	if p.State == "" {
		p.State = StateDraft
	}
	m.periods[p.ID] = p
	return p
}

func (m *memStore) LoadPeriod(_ context.Context, id int64) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

func (m *memStore) ListYear(_ context.Context, companyID int64, periodicity Periodicity, year int) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Period
	for _, p := range m.periods {
		if p.CompanyID == companyID && p.Periodicity == periodicity && p.Year == year {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (m *memStore) ListOverlapping(_ context.Context, companyID int64, start, end time.Time) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Period
	for _, p := range m.periods {
		if p.CompanyID == companyID && p.Overlaps(start, end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) InsertPeriod(_ context.Context, in NewPeriod) (Period, bool, error) {
	if err := m.failSequence[in.SequenceNumber]; err != nil {
		return Period{}, false, err
	}
	m.mu.Lock()
	for _, p := range m.periods {
		if p.CompanyID == in.CompanyID && p.Year == in.Year && p.Periodicity == in.Periodicity && p.SequenceNumber == in.SequenceNumber {
			m.mu.Unlock()
			return p, false, nil
		}
	}
	m.inserts++
	m.nextID++
	p := Period{
		ID:             m.nextID,
		CompanyID:      in.CompanyID,
		Year:           in.Year,
		Periodicity:    in.Periodicity,
		SequenceNumber: in.SequenceNumber,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Label:          in.Label,
		State:          StateDraft,
		Version:        1,
	}
	m.periods[p.ID] = p
	m.mu.Unlock()
	return p, true, nil
}

func (m *memStore) CompanyPeriodicity(_ context.Context, companyID int64) (Periodicity, error) {
	if companyID == 404 {
		return "", ErrCompanyNotFound
	}
	return m.periodicity[companyID], nil
}

func (m *memStore) ListActiveCompanies(context.Context) ([]int64, error) {
	return nil, errors.New("not used")
}

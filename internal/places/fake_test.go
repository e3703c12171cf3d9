package places

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeDirectory struct {
	mu          sync.Mutex
	first       Page
	searchErr   error
	pages       map[string]Page
	pageErr     map[string]error
	details     map[string]Details
	detailErr   map[string]error
	detailCalls map[string]int
	pageTimes   []time.Time
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		pages:       map[string]Page{},
		pageErr:     map[string]error{},
		details:     map[string]Details{},
		detailErr:   map[string]error{},
		detailCalls: map[string]int{},
	}
}

func (f *fakeDirectory) TextSearch(_ context.Context, _, _ string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageTimes = append(f.pageTimes, time.Now())
	return f.first, f.searchErr
}

func (f *fakeDirectory) NextPage(_ context.Context, token string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageTimes = append(f.pageTimes, time.Now())
	if err := f.pageErr[token]; err != nil {
		return Page{}, err
	}
	return f.pages[token], nil
}

func (f *fakeDirectory) Details(_ context.Context, placeID string) (Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls[placeID]++
	if err := f.detailErr[placeID]; err != nil {
		return Details{}, err
	}
	d, ok := f.details[placeID]
	if !ok {
		return Details{}, errors.New("unknown place")
	}
	return d, nil
}

func (f *fakeDirectory) calls(placeID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[placeID]
}

func (f *fakeDirectory) times() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.pageTimes...)
}

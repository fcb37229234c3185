package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"leadfinder/internal/places"
	"leadfinder/internal/types"
)

// fakeNearby serves scripted pages per cell center and hands out "<center>#<page>" tokens.
type fakeNearby struct {
	mu       sync.Mutex
	pages    map[types.GeoPoint][]places.NearbyPage
	errs     map[types.GeoPoint]error
	notReady int // ErrTokenNotReady answers before a token is accepted
	calls    []places.NearbyQuery
}

func newFakeNearby() *fakeNearby {
	return &fakeNearby{
		pages: make(map[types.GeoPoint][]places.NearbyPage),
		errs:  make(map[types.GeoPoint]error),
	}
}

func (f *fakeNearby) add(center types.GeoPoint, pages ...[]types.PlaceCandidate) {
	for _, c := range pages {
		f.pages[center] = append(f.pages[center], places.NearbyPage{Candidates: c})
	}
}

func (f *fakeNearby) Nearby(ctx context.Context, q places.NearbyQuery) (places.NearbyPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)

	if err, ok := f.errs[q.Location]; ok {
		return places.NearbyPage{}, err
	}
	idx := 0
	if q.PageToken != "" {
		if f.notReady > 0 {
			f.notReady--
			return places.NearbyPage{}, places.ErrTokenNotReady
		}
		_, n, _ := strings.Cut(q.PageToken, "#")
		idx, _ = strconv.Atoi(n)
	}
	pages := f.pages[q.Location]
	if idx >= len(pages) {
		return places.NearbyPage{}, nil
	}
	page := pages[idx]
	if idx+1 < len(pages) {
		page.NextPageToken = fmt.Sprintf("%s#%d", q.Location, idx+1)
	}
	return page, nil
}

func (f *fakeNearby) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// MockDetails is a testify mock of DetailSource.
type MockDetails struct {
	mock.Mock
}

func (m *MockDetails) Details(ctx context.Context, placeID string) (types.LeadRecord, error) {
	args := m.Called(ctx, placeID)
	return args.Get(0).(types.LeadRecord), args.Error(1)
}

// MockGeocoder is a testify mock of Geocoder.
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (types.GeoPoint, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(types.GeoPoint), args.Error(1)
}

func cand(id string, p types.GeoPoint) types.PlaceCandidate {
	return types.PlaceCandidate{PlaceID: id, Location: p}
}

func ids(cands []types.PlaceCandidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.PlaceID)
	}
	return out
}

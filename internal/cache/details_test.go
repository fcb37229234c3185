package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadfinder/internal/types"
)

type MockDetailSource struct {
	mock.Mock
}

func (m *MockDetailSource) Details(ctx context.Context, placeID string) (types.LeadRecord, error) {
	args := m.Called(ctx, placeID)
	return args.Get(0).(types.LeadRecord), args.Error(1)
}

func sampleLead() types.LeadRecord {
	site := "https://joesdiner.com"
	return types.LeadRecord{
		PlaceID:  "abc",
		Name:     "Joe's Diner",
		Address:  "1 Main St, Commerce, TX",
		Phone:    "(903) 555-0100",
		Website:  &site,
		Location: types.GeoPoint{Latitude: 33.24, Longitude: -95.9},
	}
}

func encoded(t *testing.T, lead types.LeadRecord) string {
	t.Helper()
	data, err := json.Marshal(lead)
	require.NoError(t, err)
	return string(data)
}

func TestDetailCache_Hit(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	next := new(MockDetailSource)
	c := NewDetailCache(db, next, time.Hour, zerolog.Nop())

	rmock.ExpectGet(Key("abc")).SetVal(encoded(t, sampleLead()))

	lead, err := c.Details(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, sampleLead(), lead)
	next.AssertNotCalled(t, "Details", mock.Anything, mock.Anything)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestDetailCache_MissStores(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	next := new(MockDetailSource)
	c := NewDetailCache(db, next, time.Hour, zerolog.Nop())

	rmock.ExpectGet(Key("abc")).RedisNil()
	next.On("Details", mock.Anything, "abc").Return(sampleLead(), nil)
	rmock.ExpectSet(Key("abc"), encoded(t, sampleLead()), time.Hour).SetVal("OK")

	lead, err := c.Details(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, sampleLead(), lead)
	next.AssertExpectations(t)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestDetailCache_NoWebsiteSurvivesRoundTrip(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	c := NewDetailCache(db, new(MockDetailSource), 0, zerolog.Nop())

	bare := types.LeadRecord{PlaceID: "bait", Name: "Bob's Bait"}
	rmock.ExpectGet(Key("bait")).SetVal(encoded(t, bare))

	lead, err := c.Details(context.Background(), "bait")
	require.NoError(t, err)
	assert.False(t, lead.HasWebsite())
	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestDetailCache_RedisDownFallsThrough(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	next := new(MockDetailSource)
	c := NewDetailCache(db, next, time.Hour, zerolog.Nop())

	rmock.ExpectGet(Key("abc")).SetErr(errors.New("connection refused"))
	next.On("Details", mock.Anything, "abc").Return(sampleLead(), nil)
	rmock.ExpectSet(Key("abc"), encoded(t, sampleLead()), time.Hour).SetErr(errors.New("connection refused"))

	lead, err := c.Details(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Joe's Diner", lead.Name)
	next.AssertExpectations(t)
}

func TestDetailCache_CorruptEntryRefetched(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	next := new(MockDetailSource)
	c := NewDetailCache(db, next, time.Hour, zerolog.Nop())

	rmock.ExpectGet(Key("abc")).SetVal("{not json")
	next.On("Details", mock.Anything, "abc").Return(sampleLead(), nil)
	rmock.ExpectSet(Key("abc"), encoded(t, sampleLead()), time.Hour).SetVal("OK")

	lead, err := c.Details(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, sampleLead(), lead)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestDetailCache_SourceErrorNotCached(t *testing.T) {
	db, rmock := redismock.NewClientMock()
	next := new(MockDetailSource)
	c := NewDetailCache(db, next, time.Hour, zerolog.Nop())

	boom := errors.New("OVER_QUERY_LIMIT")
	rmock.ExpectGet(Key("abc")).RedisNil()
	next.On("Details", mock.Anything, "abc").Return(types.LeadRecord{}, boom)

	_, err := c.Details(context.Background(), "abc")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

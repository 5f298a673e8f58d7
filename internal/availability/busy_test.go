package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBookings struct {
	intervals []Interval
	err       error
}

func (s stubBookings) ConfirmedIntervals(ctx context.Context, userID string, from, to time.Time) ([]Interval, error) {
	return s.intervals, s.err
}

type stubExternal struct {
	intervals []Interval
	err       error
}

func (s stubExternal) BusyIntervals(ctx context.Context, userID string, from, to time.Time) ([]Interval, error) {
	return s.intervals, s.err
}

var dayWindow = struct{ from, to time.Time }{
	from: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	to:   time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
}

func TestCollectBusyUnionsBothSources(t *testing.T) {
	agg := NewBusyAggregator(
		stubBookings{intervals: []Interval{interval(10, 0, 10, 30)}},
		stubExternal{intervals: []Interval{interval(14, 0, 15, 0)}},
		zap.NewNop(),
	)

	busy, err := agg.CollectBusy(context.Background(), "host-1", dayWindow.from, dayWindow.to)
	require.NoError(t, err)
	require.Len(t, busy, 2)
	require.Contains(t, busy, interval(10, 0, 10, 30))
	require.Contains(t, busy, interval(14, 0, 15, 0))
}

func TestCollectBusyExternalFailureDegradesGracefully(t *testing.T) {
	agg := NewBusyAggregator(
		stubBookings{intervals: []Interval{interval(10, 0, 10, 30)}},
		stubExternal{err: errors.New("calendar unreachable")},
		zap.NewNop(),
	)

	busy, err := agg.CollectBusy(context.Background(), "host-1", dayWindow.from, dayWindow.to)
	require.NoError(t, err, "external failure must not surface")
	require.Equal(t, []Interval{interval(10, 0, 10, 30)}, busy)
}

func TestCollectBusyNoExternalSource(t *testing.T) {
	agg := NewBusyAggregator(
		stubBookings{intervals: []Interval{interval(9, 0, 9, 30)}},
		nil,
		zap.NewNop(),
	)

	busy, err := agg.CollectBusy(context.Background(), "host-1", dayWindow.from, dayWindow.to)
	require.NoError(t, err)
	require.Len(t, busy, 1)
}

func TestCollectBusyBookingStoreFailureAborts(t *testing.T) {
	agg := NewBusyAggregator(
		stubBookings{err: errors.New("db down")},
		stubExternal{},
		zap.NewNop(),
	)

	_, err := agg.CollectBusy(context.Background(), "host-1", dayWindow.from, dayWindow.to)
	require.Error(t, err, "the system of record is not best effort")
}

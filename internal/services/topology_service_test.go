package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

func testSections() []models.Section {
	return []models.Section{
		{ID: 1, Position: 0, Name: "Depot-Central", DistanceKM: decimal.NewFromInt(5),
			TravelTime: 20 * time.Minute, BusyTravelTime: 35 * time.Minute, PointIDs: []int64{10, 11}},
		{ID: 2, Position: 1, Name: "Central-Market", DistanceKM: decimal.NewFromInt(8),
			TravelTime: 30 * time.Minute, BusyTravelTime: 50 * time.Minute, PointIDs: []int64{12}},
		{ID: 3, Position: 2, Name: "Market-Harbor", DistanceKM: decimal.NewFromInt(12),
			TravelTime: 40 * time.Minute, BusyTravelTime: 60 * time.Minute, PointIDs: []int64{13, 14}},
	}
}

func TestSectionContaining(t *testing.T) {
	topo := TopologyService{}
	sections := testSections()

	sec, err := topo.SectionContaining(sections, 12)
	require.NoError(t, err)
	require.Equal(t, 1, sec.Position)

	_, err = topo.SectionContaining(sections, 999)
	require.True(t, domain.IsNotFound(err))
}

func TestEstimateArrivalOffPeak(t *testing.T) {
	sections := testSections()
	// 10:00 departure: no busy window applies anywhere on the walk.
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	arrival := EstimateArrival(start, sections, sections[2])
	require.Equal(t, start.Add(50*time.Minute), arrival)
}

func TestEstimateArrivalUsesProjectedClock(t *testing.T) {
	sections := testSections()
	// 08:50 departure: section 0 starts inside the morning window (busy, 35m),
	// so section 1 is entered at 09:25, outside it (nominal, 30m).
	start := time.Date(2026, 3, 2, 8, 50, 0, 0, time.UTC)

	arrival := EstimateArrival(start, sections, sections[2])
	require.Equal(t, start.Add(65*time.Minute), arrival)
}

func TestEstimateArrivalBusyBoundsInclusive(t *testing.T) {
	sections := testSections()
	// 09:00 sharp is still inside the morning window.
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	arrival := EstimateArrival(start, sections, sections[1])
	require.Equal(t, start.Add(35*time.Minute), arrival)

	// 09:01 is not.
	start = time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC)
	arrival = EstimateArrival(start, sections, sections[1])
	require.Equal(t, start.Add(20*time.Minute), arrival)
}

func TestEstimateArrivalMonotonic(t *testing.T) {
	sections := testSections()
	start := time.Date(2026, 3, 2, 6, 45, 0, 0, time.UTC)

	prev := EstimateArrival(start, sections, sections[0])
	require.Equal(t, start, prev, "first section arrival is the departure itself")
	for _, target := range sections[1:] {
		arrival := EstimateArrival(start, sections, target)
		require.False(t, arrival.Before(prev))
		prev = arrival
	}
}

func TestTripEndTime(t *testing.T) {
	sections := testSections()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.Equal(t, start.Add(90*time.Minute), TripEndTime(start, sections))
}

func TestSpanDistance(t *testing.T) {
	sections := testSections()
	require.Equal(t, "20", SpanDistance(sections, sections[1], sections[2]).String())
	require.Equal(t, "25", SpanDistance(sections, sections[0], sections[2]).String())
	require.Equal(t, "5", SpanDistance(sections, sections[0], sections[0]).String())
}

func TestMaxPosition(t *testing.T) {
	sections := testSections()
	pos, ok := MaxPosition(sections)
	require.True(t, ok)
	require.Equal(t, 2, pos)

	_, ok = MaxPosition(nil)
	require.False(t, ok)
}

func TestResolveItinerary(t *testing.T) {
	sections := testSections()

	start, end, err := resolveItinerary(sections, 10, 13)
	require.NoError(t, err)
	require.Equal(t, 0, start)
	require.Equal(t, 2, end)

	_, _, err = resolveItinerary(sections, 13, 10)
	require.True(t, domain.IsValidation(err), "reversed itinerary must be rejected")

	_, _, err = resolveItinerary(sections, 10, 999)
	require.True(t, domain.IsValidation(err))

	_, _, err = resolveItinerary(sections, 10, 11)
	require.True(t, domain.IsValidation(err), "same-section itinerary has zero span")
}

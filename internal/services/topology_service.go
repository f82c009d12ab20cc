package services

import (
	"time"

	"github.com/shopspring/decimal"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/repositories"
)

// Daily busy windows during which a section's busy travel time replaces its
// nominal one: office morning rush, school closing, office evening rush.
// Bounds are inclusive.
var busyWindows = [][2]int{
	{7*60 + 0, 9*60 + 0},
	{13*60 + 30, 14*60 + 30},
	{16*60 + 30, 19*60 + 30},
}

// TopologyService answers ordering and timing questions about a route's
// section sequence. Positions are validated at route creation, so the walk
// here can trust the order it loads.
type TopologyService struct {
	RouteRepo repositories.RouteRepository
}

// SectionContaining resolves a boarding point to the section serving it.
func (s TopologyService) SectionContaining(sections []models.Section, pointID int64) (models.Section, error) {
	for _, sec := range sections {
		if sec.ServesPoint(pointID) {
			return sec, nil
		}
	}
	return models.Section{}, domain.NotFoundError{Resource: "section for boarding point"}
}

func inBusyWindow(t time.Time) bool {
	minute := t.Hour()*60 + t.Minute()
	for _, w := range busyWindows {
		if w[0] <= minute && minute <= w[1] {
			return true
		}
	}
	return false
}

// EstimateArrival walks the ordered sections up to (excluding) the target,
// accumulating travel time. Each section's busy substitution is decided
// against the projected clock at that section, not wall-clock now, so the
// estimate is monotonically non-decreasing in target position.
func EstimateArrival(tripStart time.Time, sections []models.Section, target models.Section) time.Time {
	var elapsed time.Duration
	for _, sec := range sections {
		if sec.Position >= target.Position {
			break
		}
		projected := tripStart.Add(elapsed)
		if inBusyWindow(projected) && sec.BusyTravelTime > 0 {
			elapsed += sec.BusyTravelTime
		} else {
			elapsed += sec.TravelTime
		}
	}
	return tripStart.Add(elapsed)
}

// TripEndTime sums all nominal section durations from the trip start.
func TripEndTime(tripStart time.Time, sections []models.Section) time.Time {
	var total time.Duration
	for _, sec := range sections {
		total += sec.TravelTime
	}
	return tripStart.Add(total)
}

// SpanDistance totals distance from the start section through the end
// section inclusive.
func SpanDistance(sections []models.Section, start, end models.Section) decimal.Decimal {
	total := decimal.Zero
	counting := false
	for _, sec := range sections {
		if sec.Position == start.Position {
			counting = true
		}
		if counting {
			total = total.Add(sec.DistanceKM)
		}
		if sec.Position == end.Position {
			break
		}
	}
	return total
}

// MaxPosition is the route-length proxy the fare tables are keyed by.
func MaxPosition(sections []models.Section) (int, bool) {
	if len(sections) == 0 {
		return 0, false
	}
	return sections[len(sections)-1].Position, true
}

package services

import (
	"github.com/shopspring/decimal"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/repositories"
)

// FareService resolves the flat per-route fare for luxury and semi-luxury
// buses. The table key is the route's maximum section position, a proxy for
// full route length; the passenger's actual traveled span does not change
// the price. Normal-class fares are distance-based and computed by the
// booking client, so they pass through unchanged.
type FareService struct {
	TripRepo  repositories.TripRepository
	BusRepo   repositories.BusRepository
	RouteRepo repositories.RouteRepository
	FareRepo  repositories.FareRepository
}

type FareQuote struct {
	TripID       int64               `json:"trip_id"`
	ServiceClass models.ServiceClass `json:"service_class"`
	FareNumber   int                 `json:"fare_number"`
	FarePrice    decimal.Decimal     `json:"fare_price"`
}

func (s FareService) QuoteForTrip(tripID int64) (FareQuote, error) {
	trip, err := s.TripRepo.GetByID(tripID)
	if err != nil {
		return FareQuote{}, err
	}
	bus, err := s.BusRepo.GetByID(trip.BusID)
	if err != nil {
		return FareQuote{}, err
	}
	if bus.ServiceClass == models.ClassNormal {
		return FareQuote{}, domain.ValidationError{
			Field: "service_class",
			Msg:   "normal class fares are distance-based and supplied by the caller",
		}
	}

	sections, err := s.RouteRepo.SectionsByRoute(trip.RouteID)
	if err != nil {
		return FareQuote{}, err
	}
	maxPos, ok := MaxPosition(sections)
	if !ok {
		return FareQuote{}, domain.NotFoundError{Resource: "sections for route"}
	}

	// A missing fare-table entry is an error, never a silent zero.
	price, err := s.FareRepo.GetFare(bus.ServiceClass, maxPos)
	if err != nil {
		return FareQuote{}, err
	}

	return FareQuote{
		TripID:       tripID,
		ServiceClass: bus.ServiceClass,
		FareNumber:   maxPos,
		FarePrice:    price,
	}, nil
}

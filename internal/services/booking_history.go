package services

import (
	"time"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/ticket"
	"busline/internal/utils"
)

// HistoryEntry is one booking in the rider's history, bucketed by what the
// rider can still do with it.
type HistoryEntry struct {
	Booking   models.Booking `json:"booking"`
	TripName  string         `json:"trip_name"`
	TripStart time.Time      `json:"trip_start"`
	Bucket    string         `json:"bucket"`
}

const (
	BucketOngoing   = "ongoing"
	BucketCompleted = "completed"
	BucketVerified  = "verified"
	BucketFailed    = "failed"
)

// History lists the caller's bookings newest-first. Ongoing means the trip
// has not finished yet and the booking still holds its seat; completed means
// the trip ended without the ticket being scanned.
func (s BookingService) History(userID int64, now time.Time) ([]HistoryEntry, error) {
	bookings, err := s.BookingRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	type tripCtx struct {
		trip models.Trip
		ends time.Time
	}
	trips := make(map[int64]tripCtx, len(bookings))

	entries := make([]HistoryEntry, 0, len(bookings))
	for _, b := range bookings {
		tc, ok := trips[b.TripID]
		if !ok {
			trip, err := s.TripRepo.GetByID(b.TripID)
			if err != nil {
				return nil, err
			}
			sections, err := s.RouteRepo.SectionsByRoute(trip.RouteID)
			if err != nil {
				return nil, err
			}
			tc = tripCtx{trip: trip, ends: TripEndTime(trip.StartTime, sections)}
			trips[b.TripID] = tc
		}

		var bucket string
		switch {
		case b.Status.Canceled():
			bucket = BucketFailed
		case b.Status == models.StatusVerified:
			bucket = BucketVerified
		case now.After(tc.ends):
			bucket = BucketCompleted
		default:
			bucket = BucketOngoing
		}
		entries = append(entries, HistoryEntry{
			Booking:   b,
			TripName:  tc.trip.Name,
			TripStart: tc.trip.StartTime,
			Bucket:    bucket,
		})
	}
	return entries, nil
}

// TicketDetail is everything a rider sees on their ticket screen, including
// the projected pickup time at their boarding point.
type TicketDetail struct {
	Booking          models.Booking `json:"booking"`
	TripName         string         `json:"trip_name"`
	RouteName        string         `json:"route_name"`
	BusName          string         `json:"bus_name"`
	BusNumber        string         `json:"bus_number"`
	StartPoint       string         `json:"start_point"`
	EndPoint         string         `json:"end_point"`
	TripStart        time.Time      `json:"trip_start"`
	EstimatedPickup  time.Time      `json:"estimated_pickup"`
	EstimatedDropoff time.Time      `json:"estimated_dropoff"`
	TicketRef        string         `json:"ticket_ref"`
}

func (s BookingService) TicketDetails(bookingID int64, caller models.User) (TicketDetail, error) {
	var none TicketDetail
	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return none, err
	}
	if booking.UserID != caller.ID && !caller.Role.IsStaff() {
		return none, domain.AuthorizationError{Msg: "booking does not belong to the caller"}
	}

	trip, err := s.TripRepo.GetByID(booking.TripID)
	if err != nil {
		return none, err
	}
	bus, err := s.BusRepo.GetByID(trip.BusID)
	if err != nil {
		return none, err
	}
	route, err := s.RouteRepo.GetByID(trip.RouteID)
	if err != nil {
		return none, err
	}
	startPoint, err := s.BoardingPointRepo.GetByID(booking.StartPointID)
	if err != nil {
		return none, err
	}
	endPoint, err := s.BoardingPointRepo.GetByID(booking.EndPointID)
	if err != nil {
		return none, err
	}

	detail := TicketDetail{
		Booking:    booking,
		TripName:   trip.Name,
		RouteName:  route.Name,
		BusName:    bus.Name,
		BusNumber:  bus.Number,
		StartPoint: startPoint.Name,
		EndPoint:   endPoint.Name,
		TripStart:  trip.StartTime,
		TicketRef:  ticket.Reference(booking.ID, booking.SeatNumber),
	}
	if start, err2 := s.Availability.Topology.SectionContaining(route.Sections, booking.StartPointID); err2 == nil {
		detail.EstimatedPickup = EstimateArrival(trip.StartTime, route.Sections, start)
	}
	if end, err2 := s.Availability.Topology.SectionContaining(route.Sections, booking.EndPointID); err2 == nil {
		detail.EstimatedDropoff = EstimateArrival(trip.StartTime, route.Sections, end)
	}
	return detail, nil
}

// TicketPDF renders the printable e-ticket for a booking the caller owns.
func (s BookingService) TicketPDF(bookingID int64, caller models.User) ([]byte, string, error) {
	detail, err := s.TicketDetails(bookingID, caller)
	if err != nil {
		return nil, "", err
	}
	if detail.Booking.Status.Canceled() {
		return nil, "", domain.StateError{Msg: "canceled booking has no ticket"}
	}

	doc := ticket.Document{
		BookingID:    detail.Booking.ID,
		TripName:     detail.TripName,
		RouteName:    detail.RouteName,
		BusName:      detail.BusName,
		BusNumber:    detail.BusNumber,
		SeatNumber:   detail.Booking.SeatNumber,
		StartPoint:   detail.StartPoint,
		EndPoint:     detail.EndPoint,
		FarePrice:    utils.FormatMoney(detail.Booking.FarePrice),
		BookedAt:     utils.FormatDateTime(detail.Booking.BookedAt),
		TripStart:    utils.FormatDateTime(detail.TripStart),
		TravelDate:   utils.FormatDate(detail.TripStart),
		PassengerRef: caller.Name,
		Token:        detail.Booking.TicketToken,
	}
	data, name, err := ticket.RenderPDF(doc)
	if err != nil {
		return nil, "", domain.InternalError{Msg: "render ticket pdf", Err: err}
	}
	return data, name, nil
}

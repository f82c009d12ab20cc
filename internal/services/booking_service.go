package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/monitoring"
	"busline/internal/repositories"
	"busline/internal/ticket"
	"busline/internal/utils"
)

// BookingService owns every booking lifecycle transition. Each transition
// runs as one transaction around the seat-interval recheck and the row
// mutation, with the trip row locked first: two concurrent attempts on the
// same trip serialize there, so exactly one winner comes out of any
// overlapping pair. Ticket minting, notifications and cache invalidation
// happen strictly after commit.
type BookingService struct {
	DB *sql.DB

	TripRepo          repositories.TripRepository
	RouteRepo         repositories.RouteRepository
	SeatRepo          repositories.SeatRepository
	BookingRepo       repositories.BookingRepository
	BoardingPointRepo repositories.BoardingPointRepository
	BusRepo           repositories.BusRepository
	NotificationRepo  repositories.NotificationRepository

	Signer       *ticket.Signer
	Availability AvailabilityService
	RequestID    string
}

type CreateBookingRequest struct {
	UserID       int64
	TripID       int64
	SeatIDs      []int64
	StartPointID int64
	EndPointID   int64
	FarePrice    decimal.Decimal
}

type BookingSnapshot struct {
	BookingID   int64           `json:"booking_id"`
	SeatID      int64           `json:"seat_id"`
	SeatNumber  int             `json:"seat_number"`
	BookedAt    string          `json:"booked_at"`
	FarePrice   decimal.Decimal `json:"fare_price"`
	Status      string          `json:"status"`
	TicketToken string          `json:"ticket_token"`
	TicketRef   string          `json:"ticket_ref"`
}

func (r CreateBookingRequest) validate() error {
	switch {
	case r.UserID <= 0:
		return domain.ValidationError{Field: "user_id"}
	case r.TripID <= 0:
		return domain.ValidationError{Field: "trip_id"}
	case len(r.SeatIDs) == 0:
		return domain.ValidationError{Field: "seat_ids", Msg: "at least one seat is required"}
	case r.StartPointID <= 0:
		return domain.ValidationError{Field: "start_point_id"}
	case r.EndPointID <= 0:
		return domain.ValidationError{Field: "end_point_id"}
	case r.FarePrice.LessThanOrEqual(decimal.Zero):
		return domain.ValidationError{Field: "fare_price", Msg: "must be positive"}
	}
	return nil
}

// Create books one or more seats on a trip for a single itinerary. The
// whole batch commits or none of it does.
func (s BookingService) Create(ctx context.Context, req CreateBookingRequest) ([]BookingSnapshot, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	trip, err := s.TripRepo.GetByID(req.TripID)
	if err != nil {
		return nil, err
	}
	if _, err := s.BoardingPointRepo.GetByID(req.StartPointID); err != nil {
		return nil, err
	}
	if _, err := s.BoardingPointRepo.GetByID(req.EndPointID); err != nil {
		return nil, err
	}

	sections, err := s.RouteRepo.SectionsByRoute(trip.RouteID)
	if err != nil {
		return nil, err
	}
	startPos, endPos, err := resolveItinerary(sections, req.StartPointID, req.EndPointID)
	if err != nil {
		return nil, err
	}

	seats := make([]models.Seat, 0, len(req.SeatIDs))
	for _, seatID := range req.SeatIDs {
		seat, err := s.SeatRepo.GetByID(seatID)
		if err != nil {
			return nil, err
		}
		if seat.BusID != trip.BusID {
			return nil, domain.ValidationError{
				Field: "seat_ids",
				Msg:   fmt.Sprintf("seat %d does not belong to the trip's bus", seat.SeatNumber),
			}
		}
		seats = append(seats, seat)
	}

	perSeatFare := req.FarePrice.Div(decimal.NewFromInt(int64(len(seats)))).Round(2)
	net, cut := models.SplitFare(perSeatFare)
	now := time.Now()

	tx, err := s.DB.Begin()
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	lockedTrip, err := s.TripRepo.GetForUpdate(tx, trip.ID)
	if err != nil {
		return nil, err
	}
	if lockedTrip.Canceled {
		return nil, domain.StateError{Msg: "trip has been canceled"}
	}

	snapshots := make([]BookingSnapshot, 0, len(seats))
	for _, seat := range seats {
		overlapping, err := s.BookingRepo.CountOverlapping(tx, trip.ID, seat.ID, startPos, endPos)
		if err != nil {
			return nil, err
		}
		if overlapping > 0 {
			monitoring.TrackSeatConflict()
			return nil, domain.ConflictError{
				Resource: "seat",
				Msg:      fmt.Sprintf("seat %d is already booked for an overlapping range", seat.SeatNumber),
			}
		}

		bookingID, err := s.BookingRepo.Insert(tx, models.Booking{
			UserID:       req.UserID,
			TripID:       trip.ID,
			SeatID:       seat.ID,
			StartPointID: req.StartPointID,
			EndPointID:   req.EndPointID,
			StartPos:     startPos,
			EndPos:       endPos,
			FarePrice:    perSeatFare,
			BookedAt:     now,
			Status:       models.StatusBooked,
		})
		if err != nil {
			return nil, err
		}
		if err := s.TripRepo.AddRevenue(tx, trip.ID, net, cut); err != nil {
			return nil, err
		}

		snapshots = append(snapshots, BookingSnapshot{
			BookingID:  bookingID,
			SeatID:     seat.ID,
			SeatNumber: seat.SeatNumber,
			BookedAt:   utils.FormatDateTime(now),
			FarePrice:  perSeatFare,
			Status:     string(models.StatusBooked),
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.InternalError{Err: err}
	}

	for i := range snapshots {
		snapshots[i].TicketToken = s.mintAndStore(snapshots[i].BookingID, req.UserID, trip.ID)
		snapshots[i].TicketRef = ticket.Reference(snapshots[i].BookingID, snapshots[i].SeatNumber)
	}
	s.notifyBooking(req.UserID, trip, models.NotifyBookingConfirmation)
	s.Availability.Invalidate(ctx, trip.ID)
	monitoring.TrackBookingOperation("create", "ok")
	utils.LogEvent(s.RequestID, "booking", "create",
		fmt.Sprintf("trip_id=%d seats=%d", trip.ID, len(snapshots)))

	return snapshots, nil
}

type RescheduleRequest struct {
	UserID       int64
	BookingID    int64
	TripID       int64
	SeatIDs      []int64
	StartPointID int64
	EndPointID   int64
	FarePrice    decimal.Decimal
}

// Reschedule moves an existing booking onto a new trip/seat/itinerary by
// mutating the same row, advancing it along the reschedule chain. The old
// trip's revenue is debited by the prior fare and the new trip's credited
// with the new one inside a single transaction holding both trip locks.
func (s BookingService) Reschedule(ctx context.Context, req RescheduleRequest) (BookingSnapshot, error) {
	var none BookingSnapshot
	if req.BookingID <= 0 {
		return none, domain.ValidationError{Field: "old_booking_id"}
	}
	create := CreateBookingRequest{
		UserID:       req.UserID,
		TripID:       req.TripID,
		SeatIDs:      req.SeatIDs,
		StartPointID: req.StartPointID,
		EndPointID:   req.EndPointID,
		FarePrice:    req.FarePrice,
	}
	if err := create.validate(); err != nil {
		return none, err
	}

	booking, err := s.BookingRepo.GetByID(req.BookingID)
	if err != nil {
		return none, err
	}
	if booking.UserID != req.UserID {
		return none, domain.AuthorizationError{Msg: "booking does not belong to the caller"}
	}
	if _, err := booking.Status.NextReschedule(); err != nil {
		return none, err
	}

	newTrip, err := s.TripRepo.GetByID(req.TripID)
	if err != nil {
		return none, err
	}
	sections, err := s.RouteRepo.SectionsByRoute(newTrip.RouteID)
	if err != nil {
		return none, err
	}
	startPos, endPos, err := resolveItinerary(sections, req.StartPointID, req.EndPointID)
	if err != nil {
		return none, err
	}

	// One seat per booking; rebooking more seats is a create, not a move.
	seat, err := s.SeatRepo.GetByID(req.SeatIDs[0])
	if err != nil {
		return none, err
	}
	if seat.BusID != newTrip.BusID {
		return none, domain.ValidationError{
			Field: "seat_ids",
			Msg:   fmt.Sprintf("seat %d does not belong to the trip's bus", seat.SeatNumber),
		}
	}

	newFare := req.FarePrice.Round(2)
	now := time.Now()

	tx, err := s.DB.Begin()
	if err != nil {
		return none, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	// Trip locks taken in id order so two concurrent reschedules between the
	// same pair of trips cannot deadlock.
	oldTripID := booking.TripID
	if err := s.lockTripsInOrder(tx, oldTripID, newTrip.ID); err != nil {
		return none, err
	}

	lockedNew, err := s.TripRepo.GetForUpdate(tx, newTrip.ID)
	if err != nil {
		return none, err
	}
	if lockedNew.Canceled {
		return none, domain.StateError{Msg: "trip has been canceled"}
	}

	locked, err := s.BookingRepo.GetForUpdate(tx, booking.ID)
	if err != nil {
		return none, err
	}
	nextStatus, err := locked.Status.NextReschedule()
	if err != nil {
		return none, err
	}

	var overlapping int
	if lockedNew.ID == oldTripID {
		overlapping, err = s.BookingRepo.CountOverlappingExcept(tx, lockedNew.ID, seat.ID, locked.ID, startPos, endPos)
	} else {
		overlapping, err = s.BookingRepo.CountOverlapping(tx, lockedNew.ID, seat.ID, startPos, endPos)
	}
	if err != nil {
		return none, err
	}
	if overlapping > 0 {
		monitoring.TrackSeatConflict()
		return none, domain.ConflictError{
			Resource: "seat",
			Msg:      fmt.Sprintf("seat %d is already booked for an overlapping range", seat.SeatNumber),
		}
	}

	if err := s.TripRepo.AddRevenue(tx, oldTripID, locked.FarePrice.Neg(), decimal.Zero); err != nil {
		return none, err
	}
	if err := s.TripRepo.AddRevenue(tx, lockedNew.ID, newFare, decimal.Zero); err != nil {
		return none, err
	}

	locked.TripID = lockedNew.ID
	locked.SeatID = seat.ID
	locked.StartPointID = req.StartPointID
	locked.EndPointID = req.EndPointID
	locked.StartPos = startPos
	locked.EndPos = endPos
	locked.FarePrice = newFare
	locked.BookedAt = now
	locked.Status = nextStatus
	if err := s.BookingRepo.UpdateForReschedule(tx, locked); err != nil {
		return none, err
	}

	if err := tx.Commit(); err != nil {
		return none, domain.InternalError{Err: err}
	}

	token := s.mintAndStore(locked.ID, locked.UserID, locked.TripID)
	s.notifyBooking(locked.UserID, lockedNew, models.NotifyBookingRescheduled)
	s.Availability.Invalidate(ctx, oldTripID)
	s.Availability.Invalidate(ctx, lockedNew.ID)
	monitoring.TrackBookingOperation("reschedule", "ok")
	utils.LogEvent(s.RequestID, "booking", "reschedule",
		fmt.Sprintf("booking_id=%d old_trip=%d new_trip=%d", locked.ID, oldTripID, lockedNew.ID))

	return BookingSnapshot{
		BookingID:   locked.ID,
		SeatID:      seat.ID,
		SeatNumber:  seat.SeatNumber,
		BookedAt:    utils.FormatDateTime(now),
		FarePrice:   newFare,
		Status:      string(nextStatus),
		TicketToken: token,
		TicketRef:   ticket.Reference(locked.ID, seat.SeatNumber),
	}, nil
}

func (s BookingService) lockTripsInOrder(tx *sql.Tx, a, b int64) error {
	first, second := a, b
	if first > second {
		first, second = second, first
	}
	if _, err := s.TripRepo.GetForUpdate(tx, first); err != nil {
		return err
	}
	if first != second {
		if _, err := s.TripRepo.GetForUpdate(tx, second); err != nil {
			return err
		}
	}
	return nil
}

// Cancel performs a user-initiated cancellation: the trip's revenue gives
// back the booking's net share, the company cut stays credited, and the
// status becomes BOOKING_CANCELED. The freed interval is implicit because
// canceled bookings are excluded from availability checks.
func (s BookingService) Cancel(ctx context.Context, bookingID int64, caller models.User) error {
	if bookingID <= 0 {
		return domain.ValidationError{Field: "booking_id"}
	}
	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != caller.ID && !caller.Role.IsStaff() {
		return domain.AuthorizationError{Msg: "booking does not belong to the caller"}
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	if _, err := s.TripRepo.GetForUpdate(tx, booking.TripID); err != nil {
		return err
	}
	locked, err := s.BookingRepo.GetForUpdate(tx, booking.ID)
	if err != nil {
		return err
	}
	if !locked.Status.Cancelable() {
		if locked.Status == models.StatusVerified {
			return domain.StateError{Msg: "verified booking cannot be canceled"}
		}
		return domain.StateError{Msg: "booking is already canceled"}
	}

	net, _ := models.SplitFare(locked.FarePrice)
	if err := s.TripRepo.AddRevenue(tx, locked.TripID, net.Neg(), decimal.Zero); err != nil {
		return err
	}
	if err := s.BookingRepo.UpdateStatus(tx, locked.ID, models.StatusBookingCanceled); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.InternalError{Err: err}
	}

	s.Availability.Invalidate(ctx, locked.TripID)
	monitoring.TrackBookingOperation("cancel", "ok")
	utils.LogEvent(s.RequestID, "booking", "cancel", fmt.Sprintf("booking_id=%d", locked.ID))
	return nil
}

type VerifyResult struct {
	BookingID int64           `json:"booking_id"`
	TripID    int64           `json:"trip_id"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// VerifyTicket authenticates a presented token and transitions the booking
// to VERIFIED. The signature proves the tuple was minted by us; the storage
// cross-check proves it is still the booking's current identity. Revenue is
// untouched: it was credited at creation.
func (s BookingService) VerifyTicket(token string, conductor models.User) (VerifyResult, error) {
	var none VerifyResult
	if conductor.Role != models.RoleBusConductor {
		return none, domain.AuthorizationError{Msg: "only bus conductors can verify tickets"}
	}

	claims, err := s.Signer.Verify(token)
	if err != nil {
		monitoring.TrackVerification("rejected")
		return none, err
	}

	booking, err := s.BookingRepo.GetByID(claims.BookingID)
	if err != nil {
		monitoring.TrackVerification("rejected")
		return none, err
	}
	if booking.UserID != claims.UserID || booking.TripID != claims.TripID {
		monitoring.TrackVerification("rejected")
		return none, domain.IntegrityError{Msg: "ticket identifiers do not match the stored booking"}
	}

	trip, err := s.TripRepo.GetByID(booking.TripID)
	if err != nil {
		return none, err
	}
	if conductor.BusID != trip.BusID {
		monitoring.TrackVerification("rejected")
		return none, domain.AuthorizationError{Msg: "conductor is not assigned to this trip's bus"}
	}

	if booking.Status == models.StatusVerified {
		monitoring.TrackVerification("duplicate")
		return none, domain.StateError{Msg: "booking has already been verified"}
	}
	if booking.Status.Canceled() {
		monitoring.TrackVerification("rejected")
		return none, domain.StateError{Msg: "canceled booking cannot be verified"}
	}

	updated, err := s.BookingRepo.MarkVerified(s.DB, booking.ID)
	if err != nil {
		return none, err
	}
	if !updated {
		// lost the race to a concurrent scan or a cancel
		monitoring.TrackVerification("duplicate")
		return none, domain.StateError{Msg: "booking has already been verified or canceled"}
	}

	monitoring.TrackVerification("ok")
	utils.LogEvent(s.RequestID, "booking", "verify", fmt.Sprintf("booking_id=%d", booking.ID))
	return VerifyResult{BookingID: booking.ID, TripID: trip.ID, Revenue: trip.Revenue}, nil
}

func (s BookingService) mintAndStore(bookingID, userID, tripID int64) string {
	token := s.Signer.Mint(bookingID, userID, tripID)
	if err := s.BookingRepo.SetTicketToken(bookingID, token); err != nil {
		utils.LogEvent(s.RequestID, "booking", "mint_ticket",
			fmt.Sprintf("booking_id=%d store failed: %v", bookingID, err))
	}
	return token
}

func (s BookingService) notifyBooking(userID int64, trip models.Trip, notifType string) {
	bus, busErr := s.BusRepo.GetByID(trip.BusID)
	route, routeErr := s.RouteRepo.GetByID(trip.RouteID)
	busName, routeName := trip.Name, ""
	if busErr == nil {
		busName = bus.Name
	}
	if routeErr == nil {
		routeName = route.Name
	}
	var msg string
	switch notifType {
	case models.NotifyBookingRescheduled:
		msg = fmt.Sprintf("Your booking has been moved to %s on %s.", busName, routeName)
	default:
		msg = fmt.Sprintf("Your booking for %s on %s has been confirmed!", busName, routeName)
	}
	if err := s.NotificationRepo.Create(userID, msg, notifType); err != nil {
		utils.LogEvent(s.RequestID, "booking", "notify",
			fmt.Sprintf("user_id=%d notify failed: %v", userID, err))
	}
}

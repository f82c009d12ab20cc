package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/repositories"
	"busline/internal/ticket"
)

func newBookingService(db *sql.DB) BookingService {
	return BookingService{
		DB:                db,
		TripRepo:          repositories.TripRepository{DB: db},
		RouteRepo:         repositories.RouteRepository{DB: db},
		SeatRepo:          repositories.SeatRepository{DB: db},
		BookingRepo:       repositories.BookingRepository{DB: db},
		BoardingPointRepo: repositories.BoardingPointRepository{DB: db},
		BusRepo:           repositories.BusRepository{DB: db},
		NotificationRepo:  repositories.NotificationRepository{DB: db},
		Signer:            ticket.NewSigner("test-secret"),
		Availability:      AvailabilityService{},
	}
}

func tripRows(id int64, canceled bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "bus_id", "route_id", "start_time",
		"revenue", "company_cut", "revenue_released", "canceled",
	}).AddRow(id, "Express | on | Coastal", 3, 5, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		"0.00", "0.00", false, canceled)
}

func pointRows(id int64, name string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "province", "city", "latitude", "longitude"}).
		AddRow(id, name, "Western", "Colombo", 6.9, 79.8)
}

func sectionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "route_id", "name", "position", "distance_km", "travel_time_sec", "busy_travel_time_sec",
	}).
		AddRow(1, 5, "Depot-Central", 0, "5.00", 1200, 2100).
		AddRow(2, 5, "Central-Market", 1, "8.00", 1800, 3000).
		AddRow(3, 5, "Market-Harbor", 2, "12.00", 2400, 3600)
}

func sectionPointRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"section_id", "point_id"}).
		AddRow(1, 10).AddRow(1, 11).
		AddRow(2, 12).
		AddRow(3, 13).AddRow(3, 14)
}

// expectItineraryLookups covers the read-only prelude of Create: trip,
// both boarding points, the route's sections and the requested seat.
func expectItineraryLookups(mock sqlmock.Sqlmock, tripID int64, canceled bool) {
	mock.ExpectQuery("FROM bus_trips WHERE id=\\?").WithArgs(tripID).
		WillReturnRows(tripRows(tripID, canceled))
	mock.ExpectQuery("FROM boarding_points").WithArgs(int64(10)).
		WillReturnRows(pointRows(10, "Depot"))
	mock.ExpectQuery("FROM boarding_points").WithArgs(int64(13)).
		WillReturnRows(pointRows(13, "Harbor"))
	mock.ExpectQuery("FROM sections WHERE route_id=\\?").WithArgs(int64(5)).
		WillReturnRows(sectionRows())
	mock.ExpectQuery("FROM section_points").WithArgs(int64(5)).
		WillReturnRows(sectionPointRows())
	mock.ExpectQuery("FROM seats WHERE id=\\?").WithArgs(int64(21)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bus_id", "seat_number"}).AddRow(21, 3, 1))
}

func createReq() CreateBookingRequest {
	return CreateBookingRequest{
		UserID:       7,
		TripID:       9,
		SeatIDs:      []int64{21},
		StartPointID: 10,
		EndPointID:   13,
		FarePrice:    decimal.NewFromInt(1000),
	}
}

func TestCreateBookingSplitsFare(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectItineraryLookups(mock, 9, false)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bus_trips WHERE id=\\? FOR UPDATE").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(9), int64(21), "BOOKING_CANCELED", "BUS_TRIP_CANCELED", 0, 2).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(101, 1))
	// 3% of 1000 stays with the platform.
	mock.ExpectExec("UPDATE bus_trips SET revenue=revenue").
		WithArgs("970", "30", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// post-commit: token store and notification
	mock.ExpectExec("UPDATE bookings SET ticket_token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM buses WHERE id=\\?").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number", "seat_count", "service_class", "owner_id", "approved"}).
			AddRow(3, "Express", "NB-1234", 40, "LUXURY", 0, true))
	mock.ExpectQuery("FROM bus_routes WHERE id=\\?").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "route_number", "display_name", "is_reversed"}).
			AddRow(5, "Coastal", "138", "Coastal Line", false))
	mock.ExpectQuery("FROM sections WHERE route_id=\\?").WithArgs(int64(5)).
		WillReturnRows(sectionRows())
	mock.ExpectQuery("FROM section_points").WithArgs(int64(5)).
		WillReturnRows(sectionPointRows())
	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(1, 1))

	svc := newBookingService(db)
	snapshots, err := svc.Create(context.Background(), createReq())
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].BookingID != 101 {
		t.Fatalf("expected booking id 101, got %d", snapshots[0].BookingID)
	}
	if snapshots[0].TicketToken == "" {
		t.Fatal("expected a minted ticket token")
	}
	if snapshots[0].TicketRef != "TCK-101-1" {
		t.Fatalf("unexpected ticket ref %q", snapshots[0].TicketRef)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingSeatConflictRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectItineraryLookups(mock, 9, false)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bus_trips WHERE id=\\? FOR UPDATE").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	svc := newBookingService(db)
	_, err = svc.Create(context.Background(), createReq())
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingOnCanceledTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectItineraryLookups(mock, 9, false)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bus_trips WHERE id=\\? FOR UPDATE").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, true))
	mock.ExpectRollback()

	svc := newBookingService(db)
	_, err = svc.Create(context.Background(), createReq())
	if !domain.IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func bookingRow(id, userID, tripID, seatID int64, status models.BookingStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "trip_id", "seat_id", "seat_number",
		"start_point_id", "end_point_id", "start_pos", "end_pos",
		"fare_price", "booked_at", "ticket_token", "status",
	}).AddRow(id, userID, tripID, seatID, 1, 10, 13, 0, 2,
		"1000.00", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "tok", string(status))
}

func TestRescheduleMovesFareBetweenTrips(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	// Prelude: booking, target trip, its sections, the seat.
	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))
	mock.ExpectQuery("FROM bus_trips WHERE id=\\?").WithArgs(int64(12)).
		WillReturnRows(tripRows(12, false))
	mock.ExpectQuery("FROM sections WHERE route_id=\\?").WithArgs(int64(5)).
		WillReturnRows(sectionRows())
	mock.ExpectQuery("FROM section_points").WithArgs(int64(5)).
		WillReturnRows(sectionPointRows())
	mock.ExpectQuery("FROM seats WHERE id=\\?").WithArgs(int64(21)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bus_id", "seat_number"}).AddRow(21, 3, 1))

	mock.ExpectBegin()
	// Both trip rows locked in id order: 9 then 12.
	mock.ExpectQuery("FROM bus_trips WHERE id=\\? FOR UPDATE").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectQuery("FROM bus_trips WHERE id=\\? FOR UPDATE").WithArgs(int64(12)).
		WillReturnRows(tripRows(12, false))
	mock.ExpectQuery("FROM bus_trips WHERE id=\\? FOR UPDATE").WithArgs(int64(12)).
		WillReturnRows(tripRows(12, false))
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	// Old trip gives back the full prior fare, new trip gains the new one.
	mock.ExpectExec("UPDATE bus_trips SET revenue=revenue").
		WithArgs("-1000", "0", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bus_trips SET revenue=revenue").
		WithArgs("1200", "0", int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec("UPDATE bookings SET ticket_token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM buses WHERE id=\\?").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number", "seat_count", "service_class", "owner_id", "approved"}).
			AddRow(3, "Express", "NB-1234", 40, "LUXURY", 0, true))
	mock.ExpectQuery("FROM bus_routes WHERE id=\\?").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "route_number", "display_name", "is_reversed"}).
			AddRow(5, "Coastal", "138", "Coastal Line", false))
	mock.ExpectQuery("FROM sections WHERE route_id=\\?").WithArgs(int64(5)).
		WillReturnRows(sectionRows())
	mock.ExpectQuery("FROM section_points").WithArgs(int64(5)).
		WillReturnRows(sectionPointRows())
	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(1, 1))

	svc := newBookingService(db)
	snapshot, err := svc.Reschedule(context.Background(), RescheduleRequest{
		UserID:       7,
		BookingID:    101,
		TripID:       12,
		SeatIDs:      []int64{21},
		StartPointID: 10,
		EndPointID:   13,
		FarePrice:    decimal.NewFromInt(1200),
	})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if snapshot.Status != string(models.StatusRescheduled1) {
		t.Fatalf("expected RESCHEDULED_1, got %s", snapshot.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRescheduleOwnershipEnforced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))

	svc := newBookingService(db)
	_, err = svc.Reschedule(context.Background(), RescheduleRequest{
		UserID:       8,
		BookingID:    101,
		TripID:       12,
		SeatIDs:      []int64{21},
		StartPointID: 10,
		EndPointID:   13,
		FarePrice:    decimal.NewFromInt(1200),
	})
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestRescheduleCapEnforced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusRescheduled3))

	svc := newBookingService(db)
	_, err = svc.Reschedule(context.Background(), RescheduleRequest{
		UserID:       7,
		BookingID:    101,
		TripID:       12,
		SeatIDs:      []int64{21},
		StartPointID: 10,
		EndPointID:   13,
		FarePrice:    decimal.NewFromInt(1200),
	})
	if !domain.IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestCancelBookingDebitsFareKeepsCut(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bus_trips WHERE id=\\? FOR UPDATE").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))
	// The net share comes back out of trip revenue; the platform cut is
	// untouched, so the ledger returns to zero.
	mock.ExpectExec("UPDATE bus_trips SET revenue=revenue").
		WithArgs("-970", "0", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("BOOKING_CANCELED", int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := newBookingService(db)
	caller := models.User{ID: 7, Role: models.RoleNormalUser}
	if err := svc.Cancel(context.Background(), 101, caller); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelBookingOwnershipEnforced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))

	svc := newBookingService(db)
	stranger := models.User{ID: 8, Role: models.RoleNormalUser}
	err = svc.Cancel(context.Background(), 101, stranger)
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestCancelVerifiedBookingRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusVerified))

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bus_trips WHERE id=\\? FOR UPDATE").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusVerified))
	mock.ExpectRollback()

	svc := newBookingService(db)
	caller := models.User{ID: 7, Role: models.RoleNormalUser}
	err = svc.Cancel(context.Background(), 101, caller)
	if !domain.IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestVerifyTicketHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := newBookingService(db)
	token := svc.Signer.Mint(101, 7, 9)

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))
	mock.ExpectQuery("FROM bus_trips WHERE id=\\?").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("VERIFIED", int64(101), "VERIFIED", "BOOKING_CANCELED", "BUS_TRIP_CANCELED").
		WillReturnResult(sqlmock.NewResult(0, 1))

	conductor := models.User{ID: 50, Role: models.RoleBusConductor, BusID: 3}
	result, err := svc.VerifyTicket(token, conductor)
	if err != nil {
		t.Fatalf("verify ticket: %v", err)
	}
	if result.BookingID != 101 || result.TripID != 9 {
		t.Fatalf("unexpected result %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A second scan, or a trip cancel committing between the status read and the
// update, leaves the conditional update with zero rows. The transition must
// fail instead of overwriting whatever state won.
func TestVerifyTicketLostRaceRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := newBookingService(db)
	token := svc.Signer.Mint(101, 7, 9)

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))
	mock.ExpectQuery("FROM bus_trips WHERE id=\\?").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("VERIFIED", int64(101), "VERIFIED", "BOOKING_CANCELED", "BUS_TRIP_CANCELED").
		WillReturnResult(sqlmock.NewResult(0, 0))

	conductor := models.User{ID: 50, Role: models.RoleBusConductor, BusID: 3}
	_, err = svc.VerifyTicket(token, conductor)
	if !domain.IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerifyTicketRejectsWrongBus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := newBookingService(db)
	token := svc.Signer.Mint(101, 7, 9)

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusBooked))
	mock.ExpectQuery("FROM bus_trips WHERE id=\\?").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))

	conductor := models.User{ID: 50, Role: models.RoleBusConductor, BusID: 99}
	_, err = svc.VerifyTicket(token, conductor)
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestVerifyTicketDoubleScanRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := newBookingService(db)
	token := svc.Signer.Mint(101, 7, 9)

	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 7, 9, 21, models.StatusVerified))
	mock.ExpectQuery("FROM bus_trips WHERE id=\\?").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))

	conductor := models.User{ID: 50, Role: models.RoleBusConductor, BusID: 3}
	_, err = svc.VerifyTicket(token, conductor)
	if !domain.IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestVerifyTicketStorageMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	svc := newBookingService(db)
	token := svc.Signer.Mint(101, 7, 9)

	// Booking row carries a different owner than the token claims.
	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(101)).
		WillReturnRows(bookingRow(101, 8, 9, 21, models.StatusBooked))

	conductor := models.User{ID: 50, Role: models.RoleBusConductor, BusID: 3}
	_, err = svc.VerifyTicket(token, conductor)
	if !domain.IsIntegrity(err) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestVerifyTicketRequiresConductor(t *testing.T) {
	svc := newBookingService(nil)
	_, err := svc.VerifyTicket("whatever", models.User{ID: 7, Role: models.RoleNormalUser})
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

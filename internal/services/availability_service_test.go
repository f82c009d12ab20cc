package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"

	"busline/internal/repositories"
)

func newAvailabilityService(db *sql.DB) AvailabilityService {
	return AvailabilityService{
		TripRepo:          repositories.TripRepository{DB: db},
		RouteRepo:         repositories.RouteRepository{DB: db},
		SeatRepo:          repositories.SeatRepository{DB: db},
		BookingRepo:       repositories.BookingRepository{DB: db},
		BoardingPointRepo: repositories.BoardingPointRepository{DB: db},
		Topology:          TopologyService{RouteRepo: repositories.RouteRepository{DB: db}},
		CacheTTL:          30 * time.Second,
	}
}

func expectAvailabilityPrelude(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM bus_trips WHERE id=\\?").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectQuery("FROM sections WHERE route_id=\\?").WithArgs(int64(5)).
		WillReturnRows(sectionRows())
	mock.ExpectQuery("FROM section_points").WithArgs(int64(5)).
		WillReturnRows(sectionPointRows())
}

func seatListRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "bus_id", "seat_number"}).
		AddRow(21, 3, 1).
		AddRow(22, 3, 2)
}

// activeBookingRows holds seat 21 for [0,1): point 10 to point 12.
func activeBookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "trip_id", "seat_id", "seat_number",
		"start_point_id", "end_point_id", "start_pos", "end_pos",
		"fare_price", "booked_at", "ticket_token", "status",
	}).AddRow(101, 7, 9, 21, 1, 10, 12, 0, 1,
		"500.00", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "tok", "BOOKED")
}

func availabilityFor(t *testing.T, seats []SeatAvailability, seatID int64) bool {
	t.Helper()
	for _, s := range seats {
		if s.SeatID == seatID {
			return s.Available
		}
	}
	t.Fatalf("seat %d missing from result", seatID)
	return false
}

// A booking on the first leg must block that leg and any span crossing it,
// but leave the tail of the route free for the same seat.
func TestAvailableSeatsPartialRouteOccupancy(t *testing.T) {
	cases := []struct {
		name       string
		startPoint int64
		endPoint   int64
		wantSeat21 bool
	}{
		{"same leg", 10, 12, false},
		{"crossing span", 10, 13, false},
		{"disjoint tail", 12, 13, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock init error: %v", err)
			}
			defer db.Close()

			expectAvailabilityPrelude(mock)
			mock.ExpectQuery("FROM seats WHERE bus_id=\\?").WithArgs(int64(3)).
				WillReturnRows(seatListRows())
			mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(9), "BOOKING_CANCELED", "BUS_TRIP_CANCELED").
				WillReturnRows(activeBookingRows())

			svc := newAvailabilityService(db)
			seats, err := svc.AvailableSeats(context.Background(), 9, tc.startPoint, tc.endPoint)
			if err != nil {
				t.Fatalf("available seats: %v", err)
			}
			if got := availabilityFor(t, seats, 21); got != tc.wantSeat21 {
				t.Fatalf("seat 21 availability = %v, want %v", got, tc.wantSeat21)
			}
			if !availabilityFor(t, seats, 22) {
				t.Fatal("seat 22 must always be free")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestAvailableSeatsServedFromCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	rdb, rmock := redismock.NewClientMock()

	cached := []SeatAvailability{{SeatID: 21, SeatNumber: 1, Available: true}}
	raw, _ := json.Marshal(cached)

	expectAvailabilityPrelude(mock)
	rmock.ExpectGet("seats:ver:9").SetVal("4")
	rmock.ExpectGet("seats:9:v4:10-13").SetVal(string(raw))

	svc := newAvailabilityService(db)
	svc.Redis = rdb

	seats, err := svc.AvailableSeats(context.Background(), 9, 10, 13)
	if err != nil {
		t.Fatalf("available seats: %v", err)
	}
	if len(seats) != 1 || seats[0].SeatID != 21 {
		t.Fatalf("unexpected cached result %+v", seats)
	}
	// No seat or booking queries: the cache answered.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if err := rmock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}

func TestInvalidateBumpsVersion(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	rmock.ExpectIncr("seats:ver:9").SetVal(5)

	svc := AvailabilityService{Redis: rdb}
	svc.Invalidate(context.Background(), 9)

	if err := rmock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}

func TestSeatMapShowsJourneys(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bus_trips WHERE id=\\?").WithArgs(int64(9)).
		WillReturnRows(tripRows(9, false))
	mock.ExpectQuery("FROM seats WHERE bus_id=\\?").WithArgs(int64(3)).
		WillReturnRows(seatListRows())
	mock.ExpectQuery("FROM bookings b JOIN seats").WithArgs(int64(9), "BOOKING_CANCELED", "BUS_TRIP_CANCELED").
		WillReturnRows(activeBookingRows())
	mock.ExpectQuery("FROM boarding_points").WithArgs(int64(10)).
		WillReturnRows(pointRows(10, "Depot"))
	mock.ExpectQuery("FROM boarding_points").WithArgs(int64(12)).
		WillReturnRows(pointRows(12, "Market"))

	svc := newAvailabilityService(db)
	entries, err := svc.SeatMap(9)
	if err != nil {
		t.Fatalf("seat map: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Available || entries[0].StartPoint != "Depot" || entries[0].EndPoint != "Market" {
		t.Fatalf("unexpected occupied entry %+v", entries[0])
	}
	if !entries[1].Available {
		t.Fatal("seat 2 must be free")
	}
}

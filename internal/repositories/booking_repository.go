package repositories

import (
	"database/sql"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

type BookingRepository struct {
	DB *sql.DB
}

const bookingColumns = `b.id, b.user_id, b.trip_id, b.seat_id, s.seat_number,
	b.start_point_id, b.end_point_id, b.start_pos, b.end_pos,
	b.fare_price, b.booked_at, b.ticket_token, b.status`

func scanBooking(scan func(dest ...any) error) (models.Booking, error) {
	var b models.Booking
	var status string
	err := scan(&b.ID, &b.UserID, &b.TripID, &b.SeatID, &b.SeatNumber,
		&b.StartPointID, &b.EndPointID, &b.StartPos, &b.EndPos,
		&b.FarePrice, &b.BookedAt, &b.TicketToken, &status)
	if err != nil {
		return b, err
	}
	b.Status = models.BookingStatus(status)
	return b, nil
}

func (r BookingRepository) GetByID(id int64) (models.Booking, error) {
	return r.getOn(r.DB, id)
}

func (r BookingRepository) getOn(q Queryer, id int64) (models.Booking, error) {
	row := q.QueryRow(`
		SELECT `+bookingColumns+`
		FROM bookings b JOIN seats s ON s.id = b.seat_id
		WHERE b.id=?`, id)
	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return b, domain.NotFoundError{Resource: "booking"}
	}
	if err != nil {
		return b, domain.InternalError{Err: err}
	}
	return b, nil
}

// GetForUpdate locks the booking row inside the caller's transaction.
func (r BookingRepository) GetForUpdate(q Queryer, id int64) (models.Booking, error) {
	row := q.QueryRow(`
		SELECT `+bookingColumns+`
		FROM bookings b JOIN seats s ON s.id = b.seat_id
		WHERE b.id=? FOR UPDATE`, id)
	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return b, domain.NotFoundError{Resource: "booking"}
	}
	if err != nil {
		return b, domain.InternalError{Err: err}
	}
	return b, nil
}

// CountOverlapping reports how many active bookings on (trip, seat) overlap
// the half-open range [startPos, endPos). Run under the trip-row lock this
// is the commit-time availability recheck.
func (r BookingRepository) CountOverlapping(q Queryer, tripID, seatID int64, startPos, endPos int) (int, error) {
	var n int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM bookings
		WHERE trip_id=? AND seat_id=?
		  AND status NOT IN (?, ?)
		  AND NOT (end_pos <= ? OR start_pos >= ?)`,
		tripID, seatID,
		string(models.StatusBookingCanceled), string(models.StatusTripCanceled),
		startPos, endPos).Scan(&n)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return n, nil
}

// CountOverlappingExcept is CountOverlapping minus one booking, used when a
// reschedule moves a booking within the same trip and must not collide with
// its own old row.
func (r BookingRepository) CountOverlappingExcept(q Queryer, tripID, seatID, exceptBookingID int64, startPos, endPos int) (int, error) {
	var n int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM bookings
		WHERE trip_id=? AND seat_id=? AND id<>?
		  AND status NOT IN (?, ?)
		  AND NOT (end_pos <= ? OR start_pos >= ?)`,
		tripID, seatID, exceptBookingID,
		string(models.StatusBookingCanceled), string(models.StatusTripCanceled),
		startPos, endPos).Scan(&n)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return n, nil
}

func (r BookingRepository) Insert(q Queryer, b models.Booking) (int64, error) {
	res, err := q.Exec(`
		INSERT INTO bookings (user_id, trip_id, seat_id, start_point_id, end_point_id,
			start_pos, end_pos, fare_price, booked_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.TripID, b.SeatID, b.StartPointID, b.EndPointID,
		b.StartPos, b.EndPos, b.FarePrice, b.BookedAt, string(b.Status))
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// UpdateForReschedule mutates the booking row in place: same row, new
// itinerary, trip, seat, fare and timestamp, advanced status.
func (r BookingRepository) UpdateForReschedule(q Queryer, b models.Booking) error {
	res, err := q.Exec(`
		UPDATE bookings
		SET trip_id=?, seat_id=?, start_point_id=?, end_point_id=?,
			start_pos=?, end_pos=?, fare_price=?, booked_at=?, status=?
		WHERE id=?`,
		b.TripID, b.SeatID, b.StartPointID, b.EndPointID,
		b.StartPos, b.EndPos, b.FarePrice, b.BookedAt, string(b.Status), b.ID)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "booking"}
	}
	return nil
}

func (r BookingRepository) UpdateStatus(q Queryer, id int64, status models.BookingStatus) error {
	res, err := q.Exec(`UPDATE bookings SET status=? WHERE id=?`, string(status), id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "booking"}
	}
	return nil
}

// MarkVerified is a compare-and-set on the booking status: the row flips to
// VERIFIED only while it is still active and unverified. Zero rows affected
// means a concurrent scan or a cancel won the race.
func (r BookingRepository) MarkVerified(q Queryer, id int64) (bool, error) {
	res, err := q.Exec(`
		UPDATE bookings SET status=?
		WHERE id=? AND status NOT IN (?, ?, ?)`,
		string(models.StatusVerified),
		id,
		string(models.StatusVerified),
		string(models.StatusBookingCanceled),
		string(models.StatusTripCanceled))
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetTicketToken stores the minted token. Minting happens after the booking
// transaction commits, so this runs outside it.
func (r BookingRepository) SetTicketToken(id int64, token string) error {
	_, err := r.DB.Exec(`UPDATE bookings SET ticket_token=? WHERE id=?`, token, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

// SweepTripCanceled force-transitions every active, non-verified booking on
// the trip in one statement. VERIFIED rows are never touched.
func (r BookingRepository) SweepTripCanceled(q Queryer, tripID int64) (int64, error) {
	res, err := q.Exec(`
		UPDATE bookings SET status=?
		WHERE trip_id=? AND status NOT IN (?, ?, ?)`,
		string(models.StatusTripCanceled),
		tripID,
		string(models.StatusVerified),
		string(models.StatusBookingCanceled),
		string(models.StatusTripCanceled))
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r BookingRepository) ListByTrip(tripID int64) ([]models.Booking, error) {
	return r.list(`
		SELECT `+bookingColumns+`
		FROM bookings b JOIN seats s ON s.id = b.seat_id
		WHERE b.trip_id=? ORDER BY b.booked_at DESC`, tripID)
}

// ListActiveByTrip returns the bookings that count against seat intervals.
func (r BookingRepository) ListActiveByTrip(tripID int64) ([]models.Booking, error) {
	return r.list(`
		SELECT `+bookingColumns+`
		FROM bookings b JOIN seats s ON s.id = b.seat_id
		WHERE b.trip_id=? AND b.status NOT IN (?, ?)`,
		tripID,
		string(models.StatusBookingCanceled), string(models.StatusTripCanceled))
}

func (r BookingRepository) ListByUser(userID int64) ([]models.Booking, error) {
	return r.list(`
		SELECT `+bookingColumns+`
		FROM bookings b JOIN seats s ON s.id = b.seat_id
		WHERE b.user_id=? ORDER BY b.booked_at DESC`, userID)
}

// RecentByBus returns the latest bookings across all of a bus's trips, for
// the conductor report.
func (r BookingRepository) RecentByBus(busID int64, limit int) ([]models.Booking, error) {
	return r.list(`
		SELECT `+bookingColumns+`
		FROM bookings b
		JOIN seats s ON s.id = b.seat_id
		JOIN bus_trips t ON t.id = b.trip_id
		WHERE t.bus_id=? ORDER BY b.booked_at DESC LIMIT ?`, busID, limit)
}

func (r BookingRepository) list(query string, args ...any) ([]models.Booking, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, domain.InternalError{Err: err}
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

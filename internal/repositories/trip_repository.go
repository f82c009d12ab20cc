package repositories

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

type TripRepository struct {
	DB *sql.DB
}

const tripColumns = `id, name, bus_id, route_id, start_time, revenue, company_cut, revenue_released, canceled`

func scanTrip(row *sql.Row) (models.Trip, error) {
	var t models.Trip
	err := row.Scan(&t.ID, &t.Name, &t.BusID, &t.RouteID, &t.StartTime,
		&t.Revenue, &t.CompanyCut, &t.RevenueReleased, &t.Canceled)
	if err == sql.ErrNoRows {
		return t, domain.NotFoundError{Resource: "trip"}
	}
	if err != nil {
		return t, domain.InternalError{Err: err}
	}
	return t, nil
}

func (r TripRepository) GetByID(id int64) (models.Trip, error) {
	return scanTrip(r.DB.QueryRow(`SELECT `+tripColumns+` FROM bus_trips WHERE id=?`, id))
}

// GetForUpdate locks the trip row for the duration of the caller's
// transaction. Every create/reschedule/cancel against a trip goes through
// this lock, which is what serializes check-then-insert on seat intervals.
func (r TripRepository) GetForUpdate(q Queryer, id int64) (models.Trip, error) {
	return scanTrip(q.QueryRow(`SELECT `+tripColumns+` FROM bus_trips WHERE id=? FOR UPDATE`, id))
}

func (r TripRepository) Create(t models.Trip) (int64, error) {
	res, err := r.DB.Exec(`
		INSERT INTO bus_trips (name, bus_id, route_id, start_time)
		VALUES (?, ?, ?, ?)`,
		t.Name, t.BusID, t.RouteID, t.StartTime)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// AddRevenue credits (or debits, with negative amounts) the trip ledgers.
func (r TripRepository) AddRevenue(q Queryer, id int64, net, cut decimal.Decimal) error {
	res, err := q.Exec(`UPDATE bus_trips SET revenue=revenue+?, company_cut=company_cut+? WHERE id=?`,
		net, cut, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "trip"}
	}
	return nil
}

// MarkCanceled flips the canceled flag and zeroes revenue. The booking sweep
// runs in the same transaction via BookingRepository.SweepTripCanceled.
func (r TripRepository) MarkCanceled(q Queryer, id int64) error {
	_, err := q.Exec(`UPDATE bus_trips SET canceled=1, revenue=0.00 WHERE id=?`, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

func (r TripRepository) ListByBus(busID int64) ([]models.Trip, error) {
	return r.list(`SELECT `+tripColumns+` FROM bus_trips WHERE bus_id=? ORDER BY start_time DESC`, busID)
}

func (r TripRepository) ListUpcomingByBus(busID int64, after time.Time) ([]models.Trip, error) {
	return r.list(`SELECT `+tripColumns+` FROM bus_trips WHERE bus_id=? AND start_time > ? ORDER BY start_time`, busID, after)
}

// ListBookableByRoutes returns non-canceled trips on any of the routes whose
// departure is at least the lead-time away.
func (r TripRepository) ListBookableByRoutes(routeIDs []int64, notBefore time.Time) ([]models.Trip, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + tripColumns + ` FROM bus_trips WHERE canceled=0 AND start_time >= ? AND route_id IN (`
	args := []any{notBefore}
	for i, id := range routeIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += `) ORDER BY start_time`
	return r.list(query, args...)
}

func (r TripRepository) list(query string, args ...any) ([]models.Trip, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(&t.ID, &t.Name, &t.BusID, &t.RouteID, &t.StartTime,
			&t.Revenue, &t.CompanyCut, &t.RevenueReleased, &t.Canceled); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// UnreleasedRevenue sums revenue across the bus's trips that have not been
// paid out yet.
func (r TripRepository) UnreleasedRevenue(busID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.QueryRow(`
		SELECT COALESCE(SUM(revenue), 0) FROM bus_trips
		WHERE bus_id=? AND revenue_released=0`, busID).Scan(&total)
	if err != nil {
		return decimal.Zero, domain.InternalError{Err: err}
	}
	return total, nil
}

func (r TripRepository) CountInWindow(busID int64, from, to time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(`
		SELECT COUNT(*) FROM bus_trips
		WHERE bus_id=? AND canceled=0 AND start_time BETWEEN ? AND ?`,
		busID, from, to).Scan(&n)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return n, nil
}

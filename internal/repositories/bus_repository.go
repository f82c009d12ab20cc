package repositories

import (
	"database/sql"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

type BusRepository struct {
	DB *sql.DB
}

func (r BusRepository) GetByID(id int64) (models.Bus, error) {
	return r.getOne(`SELECT id, name, number, seat_count, service_class, COALESCE(owner_id,0), approved FROM buses WHERE id=?`, id)
}

func (r BusRepository) GetByNumber(number string) (models.Bus, error) {
	return r.getOne(`SELECT id, name, number, seat_count, service_class, COALESCE(owner_id,0), approved FROM buses WHERE number=?`, number)
}

func (r BusRepository) getOne(query string, arg any) (models.Bus, error) {
	var b models.Bus
	var class string
	err := r.DB.QueryRow(query, arg).
		Scan(&b.ID, &b.Name, &b.Number, &b.SeatCount, &class, &b.OwnerID, &b.Approved)
	if err == sql.ErrNoRows {
		return b, domain.NotFoundError{Resource: "bus"}
	}
	if err != nil {
		return b, domain.InternalError{Err: err}
	}
	b.ServiceClass = models.ParseServiceClass(class)
	return b, nil
}

// Create inserts the bus together with its seat rows 1..seat_count in one
// transaction. A bus without materialized seats has no bookable inventory.
func (r BusRepository) Create(b models.Bus) (int64, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO buses (name, number, seat_count, service_class, owner_id, approved)
		VALUES (?, ?, ?, ?, NULLIF(?,0), ?)`,
		b.Name, b.Number, b.SeatCount, string(b.ServiceClass), b.OwnerID, b.Approved)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, _ := res.LastInsertId()

	for n := 1; n <= b.SeatCount; n++ {
		if _, err := tx.Exec(`INSERT INTO seats (bus_id, seat_number) VALUES (?, ?)`, id, n); err != nil {
			return 0, domain.InternalError{Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

// ResyncSeats reconciles the seats table with a new seat count in one
// transaction: numbers above the new count are dropped, missing numbers
// 1..count are added. Explicit admin operation, not a save-time hook.
func (r BusRepository) ResyncSeats(busID int64, newCount int) error {
	if newCount < 0 {
		return domain.ValidationError{Field: "seat_count", Msg: "must not be negative"}
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM seats WHERE bus_id=? AND seat_number > ?`, busID, newCount); err != nil {
		return domain.InternalError{Err: err}
	}

	existing := map[int]bool{}
	rows, err := tx.Query(`SELECT seat_number FROM seats WHERE bus_id=?`, busID)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return domain.InternalError{Err: err}
		}
		existing[n] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.InternalError{Err: err}
	}

	for n := 1; n <= newCount; n++ {
		if existing[n] {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO seats (bus_id, seat_number) VALUES (?, ?)`, busID, n); err != nil {
			return domain.InternalError{Err: err}
		}
	}

	if _, err := tx.Exec(`UPDATE buses SET seat_count=? WHERE id=?`, newCount, busID); err != nil {
		return domain.InternalError{Err: err}
	}

	if err := tx.Commit(); err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

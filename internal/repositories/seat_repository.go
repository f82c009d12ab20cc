package repositories

import (
	"database/sql"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

type SeatRepository struct {
	DB *sql.DB
}

func (r SeatRepository) GetByID(id int64) (models.Seat, error) {
	var s models.Seat
	err := r.DB.QueryRow(`SELECT id, bus_id, seat_number FROM seats WHERE id=?`, id).
		Scan(&s.ID, &s.BusID, &s.SeatNumber)
	if err == sql.ErrNoRows {
		return s, domain.NotFoundError{Resource: "seat"}
	}
	if err != nil {
		return s, domain.InternalError{Err: err}
	}
	return s, nil
}

func (r SeatRepository) ListByBus(busID int64) ([]models.Seat, error) {
	rows, err := r.DB.Query(`SELECT id, bus_id, seat_number FROM seats WHERE bus_id=? ORDER BY seat_number`, busID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var seats []models.Seat
	for rows.Next() {
		var s models.Seat
		if err := rows.Scan(&s.ID, &s.BusID, &s.SeatNumber); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

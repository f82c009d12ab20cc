package repositories

import (
	"database/sql"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

type BoardingPointRepository struct {
	DB *sql.DB
}

func (r BoardingPointRepository) GetByID(id int64) (models.BoardingPoint, error) {
	var p models.BoardingPoint
	err := r.DB.QueryRow(`
		SELECT id, name, province, city, latitude, longitude
		FROM boarding_points WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.Province, &p.City, &p.Latitude, &p.Longitude)
	if err == sql.ErrNoRows {
		return p, domain.NotFoundError{Resource: "boarding point"}
	}
	if err != nil {
		return p, domain.InternalError{Err: err}
	}
	return p, nil
}

func (r BoardingPointRepository) Create(p models.BoardingPoint) (int64, error) {
	res, err := r.DB.Exec(`
		INSERT INTO boarding_points (name, province, city, latitude, longitude)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Province, p.City, p.Latitude, p.Longitude)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// UpdateCoordinates is the only mutation allowed once a point is referenced
// by sections or bookings (admin correction).
func (r BoardingPointRepository) UpdateCoordinates(id int64, lat, lon float64) error {
	res, err := r.DB.Exec(`UPDATE boarding_points SET latitude=?, longitude=? WHERE id=?`, lat, lon, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "boarding point"}
	}
	return nil
}

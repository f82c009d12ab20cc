package repositories

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

// FareRepository reads the per-class flat fare tables. Fares are keyed by
// route length (the route's maximum section position), not traveled span.
type FareRepository struct {
	DB *sql.DB
}

func (r FareRepository) GetFare(class models.ServiceClass, fareNumber int) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.DB.QueryRow(`
		SELECT fare_price FROM bus_fares WHERE service_class=? AND fare_number=?`,
		string(class), fareNumber).Scan(&price)
	if err == sql.ErrNoRows {
		return decimal.Zero, domain.NotFoundError{
			Resource: fmt.Sprintf("fare for class %s length %d", class, fareNumber),
		}
	}
	if err != nil {
		return decimal.Zero, domain.InternalError{Err: err}
	}
	return price, nil
}

func (r FareRepository) UpsertFare(class models.ServiceClass, fareNumber int, price decimal.Decimal) error {
	_, err := r.DB.Exec(`
		INSERT INTO bus_fares (service_class, fare_number, fare_price)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE fare_price=VALUES(fare_price)`,
		string(class), fareNumber, price)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

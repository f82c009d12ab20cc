package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/repositories"
)

// Seat rows 1..seat_count materialize in the same transaction as the bus;
// a bus must never exist without bookable inventory.
func TestCreateBusMaterializesSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO buses").
		WithArgs("Express", "NB-1234", 3, "LUXURY", int64(0), false).
		WillReturnResult(sqlmock.NewResult(3, 1))
	for n := 1; n <= 3; n++ {
		mock.ExpectExec("INSERT INTO seats").
			WithArgs(int64(3), n).
			WillReturnResult(sqlmock.NewResult(int64(n), 1))
	}
	mock.ExpectCommit()

	svc := FleetService{BusRepo: repositories.BusRepository{DB: db}}
	admin := models.User{ID: 1, Role: models.RoleAdmin}
	bus, err := svc.CreateBus(models.Bus{
		Name:         "Express",
		Number:       "NB-1234",
		SeatCount:    3,
		ServiceClass: models.ClassLuxury,
	}, admin)
	if err != nil {
		t.Fatalf("create bus: %v", err)
	}
	if bus.ID != 3 {
		t.Fatalf("expected bus id 3, got %d", bus.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBusRequiresAdmin(t *testing.T) {
	svc := FleetService{}
	_, err := svc.CreateBus(models.Bus{Name: "Express", Number: "NB-1234", SeatCount: 3},
		models.User{ID: 7, Role: models.RoleNormalUser})
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestUpdateBoardingPointCoordinates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE boarding_points SET latitude").
		WithArgs(6.9271, 79.8612, int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM boarding_points WHERE id=\\?").WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "province", "city", "latitude", "longitude"}).
			AddRow(11, "Fort", "Western", "Colombo", 6.9271, 79.8612))

	svc := FleetService{BoardingPointRepo: repositories.BoardingPointRepository{DB: db}}
	admin := models.User{ID: 1, Role: models.RoleAdmin}
	point, err := svc.UpdateBoardingPointCoordinates(11, 6.9271, 79.8612, admin)
	if err != nil {
		t.Fatalf("update coordinates: %v", err)
	}
	if point.Latitude != 6.9271 {
		t.Fatalf("expected latitude 6.9271, got %f", point.Latitude)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateBoardingPointCoordinatesOutOfRange(t *testing.T) {
	svc := FleetService{}
	admin := models.User{ID: 1, Role: models.RoleAdmin}
	if _, err := svc.UpdateBoardingPointCoordinates(11, 91, 0, admin); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for latitude, got %v", err)
	}
	if _, err := svc.UpdateBoardingPointCoordinates(11, 0, 181, admin); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for longitude, got %v", err)
	}
}

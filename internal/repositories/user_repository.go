package repositories

import (
	"database/sql"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) GetByID(id int64) (models.User, error) {
	var u models.User
	var role string
	err := r.DB.QueryRow(`
		SELECT id, name, username, email, phone, role, COALESCE(bus_id,0)
		FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &role, &u.BusID)
	if err == sql.ErrNoRows {
		return u, domain.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return u, domain.InternalError{Err: err}
	}
	u.Role = models.ParseRole(role)
	return u, nil
}

// GetCredentials looks a user up by email or username and returns the
// stored password hash alongside the profile.
func (r UserRepository) GetCredentials(identity string) (models.User, string, error) {
	var u models.User
	var role, hash string
	err := r.DB.QueryRow(`
		SELECT id, name, username, email, phone, role, COALESCE(bus_id,0), password_hash
		FROM users WHERE email=? OR username=?`, identity, identity).
		Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &role, &u.BusID, &hash)
	if err == sql.ErrNoRows {
		return u, "", domain.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return u, "", domain.InternalError{Err: err}
	}
	u.Role = models.ParseRole(role)
	return u, hash, nil
}

func (r UserRepository) Exists(email, username string) (bool, error) {
	var n int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM users WHERE email=? OR username=?`, email, username).Scan(&n); err != nil {
		return false, domain.InternalError{Err: err}
	}
	return n > 0, nil
}

func (r UserRepository) Create(u models.User, passwordHash string) (int64, error) {
	res, err := r.DB.Exec(`
		INSERT INTO users (name, username, email, phone, password_hash, role, bus_id)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?,0))`,
		u.Name, u.Username, u.Email, u.Phone, passwordHash, string(u.Role), u.BusID)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// ConductorForBus resolves the conductor account assigned to a bus, used by
// the machine login flow that authenticates by bus number.
func (r UserRepository) ConductorForBus(busID int64) (models.User, error) {
	var u models.User
	var role string
	err := r.DB.QueryRow(`
		SELECT id, name, username, email, phone, role, COALESCE(bus_id,0)
		FROM users WHERE bus_id=? AND role=?`, busID, string(models.RoleBusConductor)).
		Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Phone, &role, &u.BusID)
	if err == sql.ErrNoRows {
		return u, domain.NotFoundError{Resource: "conductor"}
	}
	if err != nil {
		return u, domain.InternalError{Err: err}
	}
	u.Role = models.ParseRole(role)
	return u, nil
}

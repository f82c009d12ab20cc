package repositories

import "database/sql"

// Queryer is satisfied by *sql.DB and *sql.Tx so the booking service can run
// repository calls inside its own transaction.
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

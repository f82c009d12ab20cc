package repositories

import (
	"database/sql"
	"strings"
	"time"

	"busline/internal/domain"
	"busline/internal/domain/models"
)

type RouteRepository struct {
	DB *sql.DB
}

func (r RouteRepository) GetByID(id int64) (models.Route, error) {
	var route models.Route
	err := r.DB.QueryRow(`
		SELECT id, name, route_number, display_name, is_reversed
		FROM bus_routes WHERE id=?`, id).
		Scan(&route.ID, &route.Name, &route.RouteNumber, &route.DisplayName, &route.Reversed)
	if err == sql.ErrNoRows {
		return route, domain.NotFoundError{Resource: "route"}
	}
	if err != nil {
		return route, domain.InternalError{Err: err}
	}

	sections, err := r.SectionsByRoute(id)
	if err != nil {
		return route, err
	}
	route.Sections = sections
	return route, nil
}

// SectionsByRoute loads a route's sections ordered by position, with each
// section's boarding-point set attached.
func (r RouteRepository) SectionsByRoute(routeID int64) ([]models.Section, error) {
	rows, err := r.DB.Query(`
		SELECT id, route_id, name, position, distance_km, travel_time_sec, busy_travel_time_sec
		FROM sections WHERE route_id=? ORDER BY position`, routeID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var sections []models.Section
	index := map[int64]int{}
	for rows.Next() {
		var s models.Section
		var travelSec, busySec int64
		if err := rows.Scan(&s.ID, &s.RouteID, &s.Name, &s.Position, &s.DistanceKM, &travelSec, &busySec); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		s.TravelTime = time.Duration(travelSec) * time.Second
		s.BusyTravelTime = time.Duration(busySec) * time.Second
		index[s.ID] = len(sections)
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.InternalError{Err: err}
	}
	if len(sections) == 0 {
		return sections, nil
	}

	prows, err := r.DB.Query(`
		SELECT sp.section_id, sp.point_id
		FROM section_points sp
		JOIN sections s ON s.id = sp.section_id
		WHERE s.route_id=?`, routeID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer prows.Close()

	for prows.Next() {
		var sectionID, pointID int64
		if err := prows.Scan(&sectionID, &pointID); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		if i, ok := index[sectionID]; ok {
			sections[i].PointIDs = append(sections[i].PointIDs, pointID)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return sections, nil
}

// Create stores a route together with its sections. Topology invariants are
// checked before anything is written.
func (r RouteRepository) Create(route models.Route) (int64, error) {
	if err := models.ValidateSections(route.Sections); err != nil {
		return 0, err
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO bus_routes (name, route_number, display_name, is_reversed)
		VALUES (?, ?, ?, ?)`,
		route.Name, route.RouteNumber, route.DisplayName, route.Reversed)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	routeID, _ := res.LastInsertId()

	for _, s := range route.Sections {
		sres, err := tx.Exec(`
			INSERT INTO sections (route_id, name, position, distance_km, travel_time_sec, busy_travel_time_sec)
			VALUES (?, ?, ?, ?, ?, ?)`,
			routeID, s.Name, s.Position, s.DistanceKM,
			int64(s.TravelTime.Seconds()), int64(s.BusyTravelTime.Seconds()))
		if err != nil {
			return 0, domain.InternalError{Err: err}
		}
		sectionID, _ := sres.LastInsertId()
		for _, pointID := range s.PointIDs {
			if _, err := tx.Exec(`
				INSERT INTO section_points (section_id, point_id) VALUES (?, ?)`,
				sectionID, pointID); err != nil {
				return 0, domain.InternalError{Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return routeID, nil
}

// Search matches route name or number, case-insensitive. Empty query lists
// all routes.
func (r RouteRepository) Search(query string) ([]models.Route, error) {
	query = strings.TrimSpace(query)
	var (
		rows *sql.Rows
		err  error
	)
	if query == "" {
		rows, err = r.DB.Query(`SELECT id, name, route_number, display_name, is_reversed FROM bus_routes`)
	} else {
		like := "%" + query + "%"
		rows, err = r.DB.Query(`
			SELECT id, name, route_number, display_name, is_reversed
			FROM bus_routes WHERE name LIKE ? OR route_number LIKE ?`, like, like)
	}
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		var route models.Route
		if err := rows.Scan(&route.ID, &route.Name, &route.RouteNumber, &route.DisplayName, &route.Reversed); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// RoutesServingPoints returns ids of routes whose boarding-point sets
// include both points, regardless of order; direction is checked against
// section positions by the caller.
func (r RouteRepository) RoutesServingPoints(startPointID, endPointID int64) ([]int64, error) {
	rows, err := r.DB.Query(`
		SELECT DISTINCT s1.route_id
		FROM sections s1
		JOIN section_points p1 ON p1.section_id = s1.id AND p1.point_id = ?
		JOIN sections s2 ON s2.route_id = s1.route_id
		JOIN section_points p2 ON p2.section_id = s2.id AND p2.point_id = ?`,
		startPointID, endPointID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

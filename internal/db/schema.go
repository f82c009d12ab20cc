package db

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates all tables when they are missing. MySQL has no range
// or exclusion constraints, so the seat-interval invariant cannot live here;
// the booking service enforces it under a trip-row lock. Everything this DDL
// can express (unique seat numbers, unique section positions, unique fare
// table keys) it does express.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	username VARCHAR(100) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(50) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(30) NOT NULL DEFAULT 'NORMAL_USER',
	bus_id BIGINT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_username (username),
	UNIQUE KEY uniq_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS boarding_points (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(1000) NOT NULL,
	province VARCHAR(250) NOT NULL DEFAULT '',
	city VARCHAR(250) NOT NULL DEFAULT '',
	latitude DOUBLE NOT NULL DEFAULT 0,
	longitude DOUBLE NOT NULL DEFAULT 0
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS bus_routes (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	route_number VARCHAR(255) NOT NULL DEFAULT '',
	display_name VARCHAR(255) NOT NULL DEFAULT '',
	is_reversed TINYINT(1) NOT NULL DEFAULT 0
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS sections (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	route_id BIGINT NOT NULL,
	name VARCHAR(255) NOT NULL,
	position INT NOT NULL,
	distance_km DECIMAL(6,2) NOT NULL DEFAULT 0,
	travel_time_sec INT NOT NULL DEFAULT 0,
	busy_travel_time_sec INT NOT NULL DEFAULT 0,
	UNIQUE KEY uniq_route_position (route_id, position),
	KEY idx_route (route_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS section_points (
	section_id BIGINT NOT NULL,
	point_id BIGINT NOT NULL,
	PRIMARY KEY (section_id, point_id),
	KEY idx_point (point_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS buses (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL DEFAULT '',
	number VARCHAR(25) NOT NULL,
	seat_count INT NOT NULL DEFAULT 0,
	service_class VARCHAR(20) NOT NULL DEFAULT 'NORMAL',
	owner_id BIGINT NULL,
	approved TINYINT(1) NOT NULL DEFAULT 0,
	UNIQUE KEY uniq_number (number)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS seats (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	bus_id BIGINT NOT NULL,
	seat_number INT NOT NULL,
	UNIQUE KEY uniq_bus_seat (bus_id, seat_number)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS bus_trips (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL DEFAULT '',
	bus_id BIGINT NOT NULL,
	route_id BIGINT NOT NULL,
	start_time DATETIME NOT NULL,
	revenue DECIMAL(10,2) NOT NULL DEFAULT 0.00,
	company_cut DECIMAL(10,2) NOT NULL DEFAULT 0.00,
	revenue_released TINYINT(1) NOT NULL DEFAULT 0,
	canceled TINYINT(1) NOT NULL DEFAULT 0,
	KEY idx_bus (bus_id),
	KEY idx_route (route_id),
	KEY idx_start_time (start_time)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	trip_id BIGINT NOT NULL,
	seat_id BIGINT NOT NULL,
	start_point_id BIGINT NOT NULL,
	end_point_id BIGINT NOT NULL,
	start_pos INT NOT NULL,
	end_pos INT NOT NULL,
	fare_price DECIMAL(10,2) NOT NULL DEFAULT 0.00,
	booked_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	ticket_token VARCHAR(512) NOT NULL DEFAULT '',
	status VARCHAR(55) NOT NULL DEFAULT 'BOOKED',
	KEY idx_trip_seat (trip_id, seat_id),
	KEY idx_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS bus_fares (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	service_class VARCHAR(20) NOT NULL,
	fare_number INT NOT NULL,
	fare_price DECIMAL(10,2) NOT NULL,
	UNIQUE KEY uniq_class_number (service_class, fare_number)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

		`CREATE TABLE IF NOT EXISTS notifications (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	message TEXT NOT NULL,
	type VARCHAR(50) NOT NULL,
	is_read TINYINT(1) NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}
	return nil
}

package config

import (
	"log"
	"os"
	"strings"
	"time"
)

type Env struct {
	AppAddr string
	GinMode string

	DBUser string
	DBPass string
	DBHost string
	DBName string

	RedisAddr     string
	RedisPassword string

	// TicketSecret signs ticket tokens. It is handed to the ticket signer at
	// startup and must never appear in logs.
	TicketSecret string
	JWTSecret    string

	AvailabilityCacheTTL time.Duration
}

func LoadEnv() Env {
	env := Env{
		AppAddr:              getEnv("APP_ADDR", ":8080"),
		GinMode:              getEnv("GIN_MODE", ""),
		DBUser:               getEnv("DB_USER", "root"),
		DBPass:               getEnv("DB_PASS", ""),
		DBHost:               getEnv("DB_HOST", "127.0.0.1:3306"),
		DBName:               getEnv("DB_NAME", "busline"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		TicketSecret:         getEnv("TICKET_SECRET", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", "30s"),
	}

	if env.TicketSecret == "" {
		log.Fatal("TICKET_SECRET is required")
	}
	if env.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	return env
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, defaultValue)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultValue)
	return d
}

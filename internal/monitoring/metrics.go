package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Booking state-machine transitions by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	seatConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_conflicts_total",
			Help: "Booking attempts rejected by the seat-interval check",
		},
	)

	ticketVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_verifications_total",
			Help: "Ticket verification attempts by result",
		},
		[]string{"result"},
	)
)

func TrackBookingOperation(operation, status string) {
	bookingOperations.WithLabelValues(operation, status).Inc()
}

func TrackSeatConflict() {
	seatConflicts.Inc()
}

func TrackVerification(result string) {
	ticketVerifications.WithLabelValues(result).Inc()
}

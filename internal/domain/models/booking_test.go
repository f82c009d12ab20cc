package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"busline/internal/domain"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestNextRescheduleChain(t *testing.T) {
	chain := []BookingStatus{StatusBooked, StatusRescheduled1, StatusRescheduled2, StatusRescheduled3}
	for i := 0; i < len(chain)-1; i++ {
		next, err := chain[i].NextReschedule()
		require.NoError(t, err)
		require.Equal(t, chain[i+1], next)
	}

	_, err := StatusRescheduled3.NextReschedule()
	require.True(t, domain.IsState(err), "fourth reschedule must be rejected")
}

func TestNextRescheduleRejectsTerminalStates(t *testing.T) {
	for _, status := range []BookingStatus{
		StatusVerified,
		StatusBookingCanceled,
		StatusTripCanceled,
	} {
		_, err := status.NextReschedule()
		require.Truef(t, domain.IsState(err), "status %s", status)
	}
}

func TestCancelable(t *testing.T) {
	require.True(t, StatusBooked.Cancelable())
	require.True(t, StatusRescheduled1.Cancelable())
	require.False(t, StatusVerified.Cancelable())
	require.False(t, StatusBookingCanceled.Cancelable())
	require.False(t, StatusTripCanceled.Cancelable())
}

func TestOverlapsRange(t *testing.T) {
	// Booking occupies [2, 5).
	b := Booking{StartPos: 2, EndPos: 5}

	cases := []struct {
		name       string
		start, end int
		want       bool
	}{
		{"identical", 2, 5, true},
		{"contained", 3, 4, true},
		{"contains", 0, 9, true},
		{"overlap left", 0, 3, true},
		{"overlap right", 4, 8, true},
		{"touching before", 0, 2, false},
		{"touching after", 5, 8, false},
		{"disjoint before", 0, 1, false},
		{"disjoint after", 6, 9, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, b.OverlapsRange(tc.start, tc.end))
		})
	}
}

func TestSplitFare(t *testing.T) {
	net, cut := SplitFare(mustDecimal(t, "1000.00"))
	require.Equal(t, "30", cut.String())
	require.Equal(t, "970", net.String())
	require.Equal(t, "1000", net.Add(cut).String())
}

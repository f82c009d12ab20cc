package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformCutRate is the fixed share of every fare retained by the platform.
var PlatformCutRate = decimal.NewFromFloat(0.03)

// Trip is one scheduled run of a bus over a route. It carries the running
// revenue ledgers; bookings credit and debit them inside the same
// transaction that mutates the booking row.
type Trip struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	BusID           int64           `json:"bus_id"`
	RouteID         int64           `json:"route_id"`
	StartTime       time.Time       `json:"start_time"`
	Revenue         decimal.Decimal `json:"revenue"`
	CompanyCut      decimal.Decimal `json:"company_cut"`
	RevenueReleased bool            `json:"revenue_released"`
	Canceled        bool            `json:"canceled"`
}

// SplitFare returns the net share credited to trip revenue and the platform
// cut for a single booking fare.
func SplitFare(fare decimal.Decimal) (net, cut decimal.Decimal) {
	cut = fare.Mul(PlatformCutRate).Round(2)
	net = fare.Sub(cut)
	return net, cut
}

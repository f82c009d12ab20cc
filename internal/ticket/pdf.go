package ticket

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
)

// Document carries everything the printable ticket shows. The token string
// is rendered verbatim so scanner apps can read it back; QR imaging itself
// is delegated to the mobile client.
type Document struct {
	BookingID    int64
	TripName     string
	RouteName    string
	BusName      string
	BusNumber    string
	SeatNumber   int
	StartPoint   string
	EndPoint     string
	FarePrice    string
	BookedAt     string
	TripStart    string
	TravelDate   string
	PassengerRef string
	Token        string
}

// RenderPDF builds the e-ticket PDF and a suggested filename.
func RenderPDF(d Document) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bus E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking      : #%d", d.BookingID),
		fmt.Sprintf("Passenger    : %s", safe(d.PassengerRef)),
		fmt.Sprintf("Trip         : %s", safe(d.TripName)),
		fmt.Sprintf("Route        : %s", safe(d.RouteName)),
		fmt.Sprintf("Bus          : %s (%s)", safe(d.BusName), safe(d.BusNumber)),
		fmt.Sprintf("Seat         : %d", d.SeatNumber),
		fmt.Sprintf("Journey      : %s -> %s", safe(d.StartPoint), safe(d.EndPoint)),
		fmt.Sprintf("Departure    : %s", safe(d.TripStart)),
		fmt.Sprintf("Fare         : %s", safe(d.FarePrice)),
		fmt.Sprintf("Booked at    : %s", safe(d.BookedAt)),
		fmt.Sprintf("Ticket code  : %s", Reference(d.BookingID, d.SeatNumber)),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Courier", "", 9)
	pdf.MultiCell(0, 5, d.Token, "", "", false)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this ticket to the conductor when boarding. Valid for one passenger on one seat.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("ticket_%d.pdf", d.BookingID)
	if d.TravelDate != "" {
		name = fmt.Sprintf("ticket_%d_%s.pdf", d.BookingID, d.TravelDate)
	}
	return buf.Bytes(), name, nil
}

func safe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}

// Package receipt renders bookings as printable PDF receipts.
package receipt

import (
	"bytes"
	"fmt"

	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/phpdave11/gofpdf"
)

// Render builds a one page A4 receipt for b on bus.
//
// Returns:
//   - []byte: the PDF document.
//   - string: a download filename derived from the receipt ID.
//   - error: any error from the PDF writer.
func Render(b domain.Booking, bus domain.Bus) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt "+b.ReceiptID, false)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS TICKET RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Receipt     : " + b.ReceiptID,
		"Status      : " + string(b.Status),
		"Booked at   : " + b.BookingDate.UTC().Format("2006-01-02 15:04 UTC"),
		"Travel date : " + b.TravelDate.Format(domain.DateLayout),
		"Bus         : " + safe(bus.PlateNumber),
		fmt.Sprintf("Departure   : %s  Arrival: %s", safe(bus.DepartureTime), safe(bus.ArrivalTime)),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, tr(s))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passengers")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	for i, p := range b.PassengerInfo {
		seat := p.SeatNumber
		if seat == "" {
			seat = "-"
		}
		pdf.Cell(0, 6, tr(fmt.Sprintf("%d) %s  seat %s  %s", i+1, safe(p.Name), seat, safe(string(p.PassengerType)))))
		pdf.Ln(6)
	}
	if len(b.PassengerInfo) == 0 {
		pdf.Cell(0, 6, fmt.Sprintf("%d seat(s)", len(b.SeatIDs)))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Total: "+b.TotalPrice.StringFixed(2))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Show this receipt to the conductor when boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("receipt.Render: %w", err)
	}

	return buf.Bytes(), b.ReceiptID + ".pdf", nil
}

func safe(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"ms-booking/internal/models"
)

// Issuer renders gate QR codes: the payload carries the booking ID and an
// HMAC so a gate device can reject fabricated codes before it ever calls the
// verification endpoint.
type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

func (i *Issuer) payload(booking models.Booking) string {
	return fmt.Sprintf("booking:%s;ticket:%s;signature:%s",
		booking.BookingID,
		booking.TicketID,
		i.sign(booking.BookingID, booking.TicketID, booking.UserID),
	)
}

// GenerateQR encodes the signed payload as a 256px PNG.
func (i *Issuer) GenerateQR(booking models.Booking) ([]byte, error) {
	return qrcode.Encode(i.payload(booking), qrcode.Medium, 256)
}

// ExtractBookingID parses a scanned payload and checks its signature against
// the referenced booking.
func (i *Issuer) ExtractBookingID(payload string, booking models.Booking) (string, bool) {
	parts := strings.Split(payload, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[0], "booking:") || !strings.HasPrefix(parts[2], "signature:") {
		return "", false
	}
	bookingID := strings.TrimPrefix(parts[0], "booking:")
	signature := strings.TrimPrefix(parts[2], "signature:")
	expected := i.sign(booking.BookingID, booking.TicketID, booking.UserID)
	return bookingID, hmac.Equal([]byte(expected), []byte(signature))
}

func (i *Issuer) sign(bookingID, ticketID, userID string) string {
	h := hmac.New(sha256.New, i.secret)
	h.Write([]byte(fmt.Sprintf("%s:%s:%s", bookingID, ticketID, userID)))
	return hex.EncodeToString(h.Sum(nil))
}

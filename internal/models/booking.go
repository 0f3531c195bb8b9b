package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID string `bun:"booking_id,pk" json:"booking_id"`
	UserID    string `bun:"user_id,notnull" json:"user_id"`
	TicketID  string `bun:"ticket_id,notnull" json:"ticket_id"`
	// EventName is denormalized at booking time so a booking stays readable
	// after the event row changes.
	EventName  string    `bun:"event_name,notnull" json:"event_name"`
	Quantity   int64     `bun:"quantity,notnull" json:"quantity"`
	TotalPrice int64     `bun:"total_price,notnull" json:"total_price"`
	Verified   bool      `bun:"verified,notnull,default:false" json:"verified"`
	BookedAt   time.Time `bun:"booking_date,notnull,default:current_timestamp" json:"booking_date"`
}

// BookingRequest deliberately carries no price field: total price is always
// derived from the stored ticket, never trusted from the client.
type BookingRequest struct {
	TicketID string `json:"ticket_id"`
	Quantity int64  `json:"quantity"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
	// Remaining is the ticket availability after this booking committed.
	Remaining int64 `json:"remaining_availability"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	EventID     string    `bun:"event_id,pk" json:"event_id"`
	UserID      string    `bun:"user_id,notnull" json:"user_id"`
	Name        string    `bun:"event_name,notnull" json:"event_name"`
	Date        time.Time `bun:"event_date,notnull" json:"event_date"`
	Location    string    `bun:"event_location,notnull" json:"event_location"`
	Description string    `bun:"event_description,nullzero" json:"event_description,omitempty"`
	// Closed flips to true once the event date has passed. Never reverts.
	Closed    bool      `bun:"closed,notnull,default:false" json:"closed"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type NewEventRequest struct {
	Name        string `json:"event_name"`
	Date        string `json:"event_date"` // YYYY-MM-DD
	Location    string `json:"event_location"`
	Description string `json:"event_description"`
}

type EventWithTickets struct {
	Event   Event    `json:"event"`
	Tickets []Ticket `json:"tickets"`
}

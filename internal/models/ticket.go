package models

import "github.com/uptrace/bun"

// Ticket is one sale tier of an event. Price is in minor currency units.
// Availability is only ever mutated by the inventory ledger.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID     string `bun:"ticket_id,pk" json:"ticket_id"`
	EventID      string `bun:"event_id,notnull" json:"event_id"`
	Type         string `bun:"ticket_type,notnull" json:"ticket_type"`
	Price        int64  `bun:"price,notnull" json:"price"`
	Availability int64  `bun:"availability,notnull" json:"availability"`
}

type NewTicketRequest struct {
	EventID      string `json:"event_id"`
	Type         string `json:"ticket_type"`
	Price        int64  `json:"price"`
	Availability int64  `json:"availability"`
}

package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

var (
	ErrInsufficientAvailability = errors.New("insufficient ticket availability")
	ErrTicketNotFound           = errors.New("ticket not found")
)

// Ledger is the only code path that mutates ticket availability. All
// serialization is delegated to the storage engine: the decrement is one
// conditional statement, so two concurrent reservations against the last
// unit can never both succeed, in this process or any other instance behind
// the load balancer.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve subtracts quantity from the ticket's availability iff enough units
// remain, and returns the ticket as it stands after the decrement. It runs
// against the caller's transaction handle so the booking insert and the
// decrement commit or roll back together.
//
// A read-then-write pair here would be a correctness bug: two requests could
// both observe availability = 1 and both proceed. The WHERE clause carries
// the race instead.
func (l *Ledger) Reserve(ctx context.Context, idb bun.IDB, ticketID string, quantity int64) (*models.Ticket, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	res, err := idb.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("availability = availability - ?", quantity).
		Where("ticket_id = ?", ticketID).
		Where("availability >= ?", quantity).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve ticket %s: %w", ticketID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Zero rows: either the ticket is gone or not enough units remain.
		// One probe read disambiguates.
		exists, err := idb.NewSelect().
			Model((*models.Ticket)(nil)).
			Where("ticket_id = ?", ticketID).
			Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check ticket %s: %w", ticketID, err)
		}
		if !exists {
			return nil, ErrTicketNotFound
		}
		return nil, ErrInsufficientAvailability
	}

	var ticket models.Ticket
	err = idb.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticket %s after reserve: %w", ticketID, err)
	}
	return &ticket, nil
}

// Release returns quantity units to the ticket, used when an unverified
// booking is cancelled. Runs in the caller's transaction for the same
// all-or-nothing pairing as Reserve.
func (l *Ledger) Release(ctx context.Context, idb bun.IDB, ticketID string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	res, err := idb.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("availability = availability + ?", quantity).
		Where("ticket_id = ?", ticketID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to release ticket %s: %w", ticketID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// GetTicket is a plain read used for price display; it never mutates.
func (l *Ledger) GetTicket(ctx context.Context, idb bun.IDB, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := idb.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

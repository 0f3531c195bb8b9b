package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

func (d *DB) CreateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Order("event_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (d *DB) ListEventsByUser(ctx context.Context, userID string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("user_id = ?", userID).
		Order("event_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (d *DB) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("event_id = ?", eventID).
		Exec(ctx)
	return err
}

// ListElapsedOpenEvents returns the events the next sweep will close, so the
// sweep can announce them.
func (d *DB) ListElapsedOpenEvents(ctx context.Context, today time.Time) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("event_date <= ?", today).
		Where("closed = ?", false).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CloseElapsedEvents flips closed on every event whose date has passed.
// One-way by construction: nothing ever sets closed back to false.
func (d *DB) CloseElapsedEvents(ctx context.Context, today time.Time) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("closed = ?", true).
		Where("event_date <= ?", today).
		Where("closed = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------- TICKETS ----------------

func (d *DB) CreateTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx)
	return err
}

func (d *DB) GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) GetTicketsByEvent(ctx context.Context, eventID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("event_id = ?", eventID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return tickets, nil
}

func (d *DB) DeleteTicket(ctx context.Context, ticketID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("ticket_id = ?", ticketID).
		Exec(ctx)
	return err
}

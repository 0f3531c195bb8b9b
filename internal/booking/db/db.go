package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// InsertBooking runs against idb so the caller can pair it with the ledger
// decrement in one transaction.
func (d *DB) InsertBooking(ctx context.Context, idb bun.IDB, booking *models.Booking) error {
	_, err := idb.NewInsert().Model(booking).Exec(ctx)
	return err
}

func (d *DB) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("booking_id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (d *DB) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("user_id = ?", userID).
		Order("booking_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// MarkVerified performs the one-way Unverified → Verified transition as a
// single conditional statement and reports how many rows it moved. Zero can
// mean "already verified" or "no such booking"; the service disambiguates.
func (d *DB) MarkVerified(ctx context.Context, bookingID string) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("verified = ?", true).
		Where("booking_id = ?", bookingID).
		Where("verified = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteUnverified removes a booking only while it has not been redeemed.
// The conditional delete makes concurrent cancel attempts safe: at most one
// caller observes a deleted row and releases inventory.
func (d *DB) DeleteUnverified(ctx context.Context, idb bun.IDB, bookingID string) (int64, error) {
	res, err := idb.NewDelete().
		Model((*models.Booking)(nil)).
		Where("booking_id = ?", bookingID).
		Where("verified = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetEventNameForTicket resolves the denormalized event name stored on a new
// booking.
func (d *DB) GetEventNameForTicket(ctx context.Context, idb bun.IDB, ticketID string) (string, error) {
	var eventName string
	err := idb.NewSelect().
		Column("e.event_name").
		Table("tickets").
		TableExpr("events AS e").
		Where("tickets.ticket_id = ?", ticketID).
		Where("e.event_id = tickets.event_id").
		Limit(1).
		Scan(ctx, &eventName)
	if err != nil {
		return "", err
	}
	return eventName, nil
}

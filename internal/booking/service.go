package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-booking/internal/inventory"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrBookingNotFound = errors.New("booking not found")
	ErrAlreadyVerified = errors.New("booking already verified")
	ErrNotOwner        = errors.New("booking belongs to another user")
)

type DBLayer interface {
	InsertBooking(ctx context.Context, idb bun.IDB, booking *models.Booking) error
	GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error)
	GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
	MarkVerified(ctx context.Context, bookingID string) (int64, error)
	DeleteUnverified(ctx context.Context, idb bun.IDB, bookingID string) (int64, error)
	GetEventNameForTicket(ctx context.Context, idb bun.IDB, ticketID string) (string, error)
}

type KafkaPublisher interface {
	PublishBookingCreated(booking models.Booking) error
	PublishBookingVerified(booking models.Booking) error
	PublishBookingCancelled(booking models.Booking) error
}

// Service orchestrates booking creation, cancellation, and check-in
// verification. The ledger decrement and the booking row always commit or
// roll back together.
type Service struct {
	Bun    *bun.DB
	DB     DBLayer
	Ledger *inventory.Ledger
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewService(bunDB *bun.DB, db DBLayer, ledger *inventory.Ledger, kafka KafkaPublisher, log *logger.Logger) *Service {
	return &Service{Bun: bunDB, DB: db, Ledger: ledger, Kafka: kafka, Logger: log}
}

// CreateBooking books quantity units of a ticket for the principal. The
// total price is computed from the stored ticket price inside the same
// transaction as the decrement, so a concurrent price change can never split
// a booking between old and new pricing.
func (s *Service) CreateBooking(ctx context.Context, principal *models.User, req models.BookingRequest) (*models.BookingResponse, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var booking models.Booking
	var remaining int64

	err := s.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		ticket, err := s.Ledger.Reserve(ctx, tx, req.TicketID, req.Quantity)
		if err != nil {
			return err
		}

		eventName, err := s.DB.GetEventNameForTicket(ctx, tx, req.TicketID)
		if err != nil {
			return fmt.Errorf("failed to resolve event for ticket %s: %w", req.TicketID, err)
		}

		booking = models.Booking{
			BookingID:  uuid.NewString(),
			UserID:     principal.UserID,
			TicketID:   req.TicketID,
			EventName:  eventName,
			Quantity:   req.Quantity,
			TotalPrice: req.Quantity * ticket.Price,
			Verified:   false,
			BookedAt:   time.Now(),
		}
		remaining = ticket.Availability

		return s.DB.InsertBooking(ctx, tx, &booking)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooking("CREATE", booking.BookingID, fmt.Sprintf("user=%s ticket=%s qty=%d total=%d", booking.UserID, booking.TicketID, booking.Quantity, booking.TotalPrice))
	if s.Kafka != nil {
		if err := s.Kafka.PublishBookingCreated(booking); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish booking created: %v", err))
		}
	}

	return &models.BookingResponse{Booking: booking, Remaining: remaining}, nil
}

// GetBooking returns the booking iff it belongs to the principal.
func (s *Service) GetBooking(ctx context.Context, principal *models.User, bookingID string) (*models.Booking, error) {
	booking, err := s.DB.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.UserID != principal.UserID {
		return nil, ErrNotOwner
	}
	return booking, nil
}

func (s *Service) ListBookings(ctx context.Context, principal *models.User) ([]models.Booking, error) {
	return s.DB.GetBookingsByUser(ctx, principal.UserID)
}

// CancelBooking removes an unredeemed booking and returns its units to the
// ticket. The conditional delete and the release run in one transaction;
// a booking that was verified in the meantime is reported as such and left
// untouched.
func (s *Service) CancelBooking(ctx context.Context, principal *models.User, bookingID string) error {
	booking, err := s.GetBooking(ctx, principal, bookingID)
	if err != nil {
		return err
	}

	err = s.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		rows, err := s.DB.DeleteUnverified(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Row is gone or got verified between the ownership read and
			// here. Re-read to report the right outcome.
			if _, err := s.DB.GetBookingByID(ctx, bookingID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrBookingNotFound
				}
				return err
			}
			return ErrAlreadyVerified
		}
		return s.Ledger.Release(ctx, tx, booking.TicketID, booking.Quantity)
	})
	if err != nil {
		return err
	}

	s.Logger.LogBooking("CANCEL", bookingID, fmt.Sprintf("restored %d units to ticket %s", booking.Quantity, booking.TicketID))
	if s.Kafka != nil {
		if err := s.Kafka.PublishBookingCancelled(*booking); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish booking cancelled: %v", err))
		}
	}
	return nil
}

// Verify drives the one-time Unverified → Verified transition at the venue
// gate. The single conditional update makes concurrent scans race-safe:
// exactly one observes the transition, every later attempt gets
// ErrAlreadyVerified.
func (s *Service) Verify(ctx context.Context, bookingID string) (*models.Booking, error) {
	rows, err := s.DB.MarkVerified(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		// Disambiguate: a gate operator needs to tell a reused ticket
		// (possible fraud) from a typo.
		if _, err := s.DB.GetBookingByID(ctx, bookingID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrBookingNotFound
			}
			return nil, err
		}
		return nil, ErrAlreadyVerified
	}

	booking, err := s.DB.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooking("VERIFY", bookingID, "checked in")
	if s.Kafka != nil {
		if err := s.Kafka.PublishBookingVerified(*booking); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish booking verified: %v", err))
		}
	}
	return booking, nil
}

package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNotOwner      = errors.New("event belongs to another user")
)

type EventDBLayer interface {
	CreateEvent(ctx context.Context, event models.Event) error
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListEventsByUser(ctx context.Context, userID string) ([]models.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	ListElapsedOpenEvents(ctx context.Context, today time.Time) ([]models.Event, error)
	CloseElapsedEvents(ctx context.Context, today time.Time) (int64, error)

	CreateTicket(ctx context.Context, ticket models.Ticket) error
	GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error)
	GetTicketsByEvent(ctx context.Context, eventID string) ([]models.Ticket, error)
	DeleteTicket(ctx context.Context, ticketID string) error
}

type KafkaPublisher interface {
	PublishEventClosed(event models.Event) error
}

// Service is the thin catalog side of the system: event and ticket rows with
// no concurrency hazard. Availability mutation stays with the inventory
// ledger; ticket creation only sets the starting count.
type Service struct {
	DB     EventDBLayer
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewService(db EventDBLayer, kafka KafkaPublisher, log *logger.Logger) *Service {
	return &Service{DB: db, Kafka: kafka, Logger: log}
}

func (s *Service) CreateEvent(ctx context.Context, principal *models.User, req models.NewEventRequest) (*models.Event, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid event_date %q: %w", req.Date, err)
	}

	event := models.Event{
		EventID:     uuid.NewString(),
		UserID:      principal.UserID,
		Name:        req.Name,
		Date:        date,
		Location:    req.Location,
		Description: req.Description,
		Closed:      false,
		CreatedAt:   time.Now(),
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEvent returns the event with its sale tiers.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*models.EventWithTickets, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	tickets, err := s.DB.GetTicketsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &models.EventWithTickets{Event: *event, Tickets: tickets}, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.DB.ListEvents(ctx)
}

func (s *Service) ListEventsByUser(ctx context.Context, userID string) ([]models.Event, error) {
	return s.DB.ListEventsByUser(ctx, userID)
}

func (s *Service) DeleteEvent(ctx context.Context, principal *models.User, eventID string) error {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	if event.UserID != principal.UserID {
		return ErrNotOwner
	}
	return s.DB.DeleteEvent(ctx, eventID)
}

func (s *Service) CreateTicket(ctx context.Context, principal *models.User, req models.NewTicketRequest) (*models.Ticket, error) {
	if req.Price < 0 || req.Availability < 0 {
		return nil, fmt.Errorf("price and availability must be non-negative")
	}

	event, err := s.DB.GetEventByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.UserID != principal.UserID {
		return nil, ErrNotOwner
	}

	ticket := models.Ticket{
		TicketID:     uuid.NewString(),
		EventID:      req.EventID,
		Type:         req.Type,
		Price:        req.Price,
		Availability: req.Availability,
	}
	if err := s.DB.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *Service) DeleteTicket(ctx context.Context, principal *models.User, ticketID string) error {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}

	event, err := s.DB.GetEventByID(ctx, ticket.EventID)
	if err != nil {
		return err
	}
	if event.UserID != principal.UserID {
		return ErrNotOwner
	}
	return s.DB.DeleteTicket(ctx, ticketID)
}

// RunStatusSweep closes elapsed events on a fixed interval until ctx is
// cancelled. Mirrors the production deployment where one sweep per half-day
// is plenty; the operation is idempotent so overlapping instances are safe.
func (s *Service) RunStatusSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	now := time.Now()

	// The announcement list is read before the update, so a concurrent sweep
	// instance may announce the same event twice. The closed transition
	// itself stays single-statement and one-way.
	elapsed, err := s.DB.ListElapsedOpenEvents(ctx, now)
	if err != nil {
		s.Logger.Error("SWEEP", fmt.Sprintf("failed to list elapsed events: %v", err))
		return
	}

	closed, err := s.DB.CloseElapsedEvents(ctx, now)
	if err != nil {
		s.Logger.Error("SWEEP", fmt.Sprintf("failed to close elapsed events: %v", err))
		return
	}
	if closed == 0 {
		return
	}
	s.Logger.Info("SWEEP", fmt.Sprintf("closed %d elapsed events", closed))

	if s.Kafka != nil {
		for _, event := range elapsed {
			event.Closed = true
			if err := s.Kafka.PublishEventClosed(event); err != nil {
				s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish event closed: %v", err))
			}
		}
	}
}

package events_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/events"
	eventsdb "ms-booking/internal/events/db"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

func setupService(t *testing.T) (*events.Service, *eventsdb.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(),
		(*models.Event)(nil), (*models.Ticket)(nil)))

	store := &eventsdb.DB{Bun: bunDB}
	t.Cleanup(func() { bunDB.Close() })
	return events.NewService(store, nil, logger.NewLogger()), store
}

func organizer() *models.User {
	return &models.User{UserID: uuid.NewString(), Username: "organizer", Email: "org@example.com"}
}

func eventRequest(date string) models.NewEventRequest {
	return models.NewEventRequest{
		Name:     "Open Air",
		Date:     date,
		Location: "Riverside Park",
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	service, _ := setupService(t)
	owner := organizer()
	ctx := context.Background()

	created, err := service.CreateEvent(ctx, owner, eventRequest("2026-10-01"))
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, created.UserID)
	assert.False(t, created.Closed)

	got, err := service.GetEvent(ctx, created.EventID)
	require.NoError(t, err)
	assert.Equal(t, "Open Air", got.Event.Name)
	assert.Empty(t, got.Tickets)
}

func TestCreateEventRejectsBadDate(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.CreateEvent(context.Background(), organizer(), eventRequest("01-10-2026"))
	assert.Error(t, err)
}

func TestGetEventNotFound(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.GetEvent(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, events.ErrEventNotFound)
}

func TestDeleteEventEnforcesOwnership(t *testing.T) {
	service, _ := setupService(t)
	owner := organizer()
	ctx := context.Background()

	created, err := service.CreateEvent(ctx, owner, eventRequest("2026-10-01"))
	require.NoError(t, err)

	err = service.DeleteEvent(ctx, organizer(), created.EventID)
	assert.ErrorIs(t, err, events.ErrNotOwner)

	require.NoError(t, service.DeleteEvent(ctx, owner, created.EventID))
	_, err = service.GetEvent(ctx, created.EventID)
	assert.ErrorIs(t, err, events.ErrEventNotFound)
}

func TestCreateTicketRequiresEventOwner(t *testing.T) {
	service, _ := setupService(t)
	owner := organizer()
	ctx := context.Background()

	created, err := service.CreateEvent(ctx, owner, eventRequest("2026-10-01"))
	require.NoError(t, err)

	req := models.NewTicketRequest{
		EventID:      created.EventID,
		Type:         "VIP",
		Price:        5000,
		Availability: 20,
	}

	_, err = service.CreateTicket(ctx, organizer(), req)
	assert.ErrorIs(t, err, events.ErrNotOwner)

	ticket, err := service.CreateTicket(ctx, owner, req)
	require.NoError(t, err)
	assert.Equal(t, int64(20), ticket.Availability)

	got, err := service.GetEvent(ctx, created.EventID)
	require.NoError(t, err)
	require.Len(t, got.Tickets, 1)
	assert.Equal(t, ticket.TicketID, got.Tickets[0].TicketID)
}

func TestCreateTicketRejectsNegativeValues(t *testing.T) {
	service, _ := setupService(t)
	owner := organizer()
	ctx := context.Background()

	created, err := service.CreateEvent(ctx, owner, eventRequest("2026-10-01"))
	require.NoError(t, err)

	_, err = service.CreateTicket(ctx, owner, models.NewTicketRequest{
		EventID: created.EventID,
		Type:    "VIP",
		Price:   -1,
	})
	assert.Error(t, err)
}

func TestCloseElapsedEvents(t *testing.T) {
	service, store := setupService(t)
	owner := organizer()
	ctx := context.Background()

	past, err := service.CreateEvent(ctx, owner, eventRequest("2026-01-01"))
	require.NoError(t, err)
	future, err := service.CreateEvent(ctx, owner, eventRequest("2099-01-01"))
	require.NoError(t, err)

	closed, err := store.CloseElapsedEvents(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	got, err := service.GetEvent(ctx, past.EventID)
	require.NoError(t, err)
	assert.True(t, got.Event.Closed)

	got, err = service.GetEvent(ctx, future.EventID)
	require.NoError(t, err)
	assert.False(t, got.Event.Closed)

	// Idempotent: a second sweep finds nothing left to close.
	closed, err = store.CloseElapsedEvents(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), closed)
}

package inventory_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/inventory"
	"ms-booking/internal/models"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	// A uniquely named shared-cache DB so parallel tests don't see each
	// other's rows.
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.Ticket)(nil)))

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func seedTicket(t *testing.T, db *bun.DB, availability int64) *models.Ticket {
	t.Helper()

	ticket := &models.Ticket{
		TicketID:     uuid.NewString(),
		EventID:      uuid.NewString(),
		Type:         "VIP",
		Price:        2500,
		Availability: availability,
	}
	_, err := db.NewInsert().Model(ticket).Exec(context.Background())
	require.NoError(t, err)
	return ticket
}

func TestReserveDecrementsAvailability(t *testing.T) {
	db := setupTestDB(t)
	ticket := seedTicket(t, db, 10)

	ledger := inventory.NewLedger()
	got, err := ledger.Reserve(context.Background(), db, ticket.TicketID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Availability)
	assert.Equal(t, ticket.Price, got.Price)
}

func TestReserveRejectsInsufficientAvailability(t *testing.T) {
	db := setupTestDB(t)
	ticket := seedTicket(t, db, 2)

	ledger := inventory.NewLedger()
	_, err := ledger.Reserve(context.Background(), db, ticket.TicketID, 3)
	assert.ErrorIs(t, err, inventory.ErrInsufficientAvailability)

	// The failed attempt must not touch the count.
	got, err := ledger.GetTicket(context.Background(), db, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Availability)
}

func TestReserveUnknownTicket(t *testing.T) {
	db := setupTestDB(t)

	ledger := inventory.NewLedger()
	_, err := ledger.Reserve(context.Background(), db, uuid.NewString(), 1)
	assert.ErrorIs(t, err, inventory.ErrTicketNotFound)
}

func TestReserveExactRemainder(t *testing.T) {
	db := setupTestDB(t)
	ticket := seedTicket(t, db, 5)

	ledger := inventory.NewLedger()
	got, err := ledger.Reserve(context.Background(), db, ticket.TicketID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Availability)

	_, err = ledger.Reserve(context.Background(), db, ticket.TicketID, 1)
	assert.ErrorIs(t, err, inventory.ErrInsufficientAvailability)
}

// Two reservations race for the last unit. Exactly one may win, no matter
// how the scheduler interleaves them.
func TestConcurrentReservesLastUnit(t *testing.T) {
	db := setupTestDB(t)
	ticket := seedTicket(t, db, 1)

	ledger := inventory.NewLedger()
	results := make([]error, 2)
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = ledger.Reserve(context.Background(), db, ticket.TicketID, 1)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, inventory.ErrInsufficientAvailability)
		}
	}
	assert.Equal(t, 1, wins, "exactly one reservation may claim the last unit")

	got, err := ledger.GetTicket(context.Background(), db, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Availability)
}

func TestReleaseRestoresAvailability(t *testing.T) {
	db := setupTestDB(t)
	ticket := seedTicket(t, db, 4)

	ledger := inventory.NewLedger()
	_, err := ledger.Reserve(context.Background(), db, ticket.TicketID, 4)
	require.NoError(t, err)

	require.NoError(t, ledger.Release(context.Background(), db, ticket.TicketID, 4))

	got, err := ledger.GetTicket(context.Background(), db, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Availability)
}

func TestReleaseUnknownTicket(t *testing.T) {
	db := setupTestDB(t)

	ledger := inventory.NewLedger()
	err := ledger.Release(context.Background(), db, uuid.NewString(), 1)
	assert.ErrorIs(t, err, inventory.ErrTicketNotFound)
}

func TestGetTicketNotFound(t *testing.T) {
	db := setupTestDB(t)

	ledger := inventory.NewLedger()
	_, err := ledger.GetTicket(context.Background(), db, uuid.NewString())
	assert.ErrorIs(t, err, inventory.ErrTicketNotFound)
}

package booking_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/booking/qr"
	"ms-booking/internal/inventory"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type apiFixture struct {
	router  *chi.Mux
	bun     *bun.DB
	service *booking.Service
}

// setupAPI wires the handler over a real sqlite-backed service. The guard is
// replaced by seeding the principal straight into the request context.
func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(),
		(*models.Booking)(nil), (*models.Ticket)(nil), (*models.Event)(nil)))

	log := logger.NewLogger()
	service := booking.NewService(bunDB, &bookingdb.DB{Bun: bunDB}, inventory.NewLedger(), nil, log)
	handler := &booking_api.Handler{
		BookingService: service,
		QR:             qr.NewIssuer("handler-test-secret"),
		Logger:         log,
	}

	r := chi.NewRouter()
	r.Post("/bookings", handler.CreateBooking)
	r.Get("/bookings/{bookingId}", handler.GetBooking)
	r.Delete("/bookings/{bookingId}", handler.CancelBooking)
	r.Get("/bookings/{bookingId}/qr", handler.BookingQR)
	r.Patch("/bookings/{bookingId}/verify", handler.VerifyBooking)

	t.Cleanup(func() { bunDB.Close() })
	return &apiFixture{router: r, bun: bunDB, service: service}
}

func (f *apiFixture) seedTicket(t *testing.T, price, availability int64) *models.Ticket {
	t.Helper()
	ctx := context.Background()

	event := &models.Event{
		EventID:   uuid.NewString(),
		UserID:    uuid.NewString(),
		Name:      "Film Night",
		Date:      time.Now().AddDate(0, 1, 0),
		Location:  "Roof Terrace",
		CreatedAt: time.Now(),
	}
	_, err := f.bun.NewInsert().Model(event).Exec(ctx)
	require.NoError(t, err)

	ticket := &models.Ticket{
		TicketID:     uuid.NewString(),
		EventID:      event.EventID,
		Type:         "Standard",
		Price:        price,
		Availability: availability,
	}
	_, err = f.bun.NewInsert().Model(ticket).Exec(ctx)
	require.NoError(t, err)
	return ticket
}

func (f *apiFixture) do(t *testing.T, principal *models.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if principal != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func apiUser() *models.User {
	return &models.User{UserID: uuid.NewString(), Username: "visitor", Email: "visitor@example.com"}
}

func TestCreateBookingEndpoint(t *testing.T) {
	f := setupAPI(t)
	ticket := f.seedTicket(t, 1200, 8)
	user := apiUser()

	rec := f.do(t, user, "POST", "/bookings", models.BookingRequest{
		TicketID: ticket.TicketID,
		Quantity: 2,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data models.BookingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, int64(2400), envelope.Data.Booking.TotalPrice)
	assert.Equal(t, int64(6), envelope.Data.Remaining)
	assert.Equal(t, user.UserID, envelope.Data.Booking.UserID)
}

func TestCreateBookingEndpointRejectsZeroQuantity(t *testing.T) {
	f := setupAPI(t)
	ticket := f.seedTicket(t, 1200, 8)

	rec := f.do(t, apiUser(), "POST", "/bookings", models.BookingRequest{
		TicketID: ticket.TicketID,
		Quantity: 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingEndpointInsufficientAvailability(t *testing.T) {
	f := setupAPI(t)
	ticket := f.seedTicket(t, 1200, 1)

	rec := f.do(t, apiUser(), "POST", "/bookings", models.BookingRequest{
		TicketID: ticket.TicketID,
		Quantity: 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingEndpointUnknownTicket(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, apiUser(), "POST", "/bookings", models.BookingRequest{
		TicketID: uuid.NewString(),
		Quantity: 1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingEndpointWithoutPrincipal(t *testing.T) {
	f := setupAPI(t)
	ticket := f.seedTicket(t, 1200, 8)

	rec := f.do(t, nil, "POST", "/bookings", models.BookingRequest{
		TicketID: ticket.TicketID,
		Quantity: 1,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetBookingEndpointHidesOtherUsers(t *testing.T) {
	f := setupAPI(t)
	ticket := f.seedTicket(t, 1200, 8)
	owner := apiUser()

	resp, err := f.service.CreateBooking(context.Background(), owner, models.BookingRequest{
		TicketID: ticket.TicketID,
		Quantity: 1,
	})
	require.NoError(t, err)

	rec := f.do(t, apiUser(), "GET", "/bookings/"+resp.Booking.BookingID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, owner, "GET", "/bookings/"+resp.Booking.BookingID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifyEndpointFirstScanWinsSecondConflicts(t *testing.T) {
	f := setupAPI(t)
	ticket := f.seedTicket(t, 1200, 8)
	owner := apiUser()

	resp, err := f.service.CreateBooking(context.Background(), owner, models.BookingRequest{
		TicketID: ticket.TicketID,
		Quantity: 1,
	})
	require.NoError(t, err)

	rec := f.do(t, nil, "PATCH", "/bookings/"+resp.Booking.BookingID+"/verify", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, nil, "PATCH", "/bookings/"+resp.Booking.BookingID+"/verify", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyEndpointUnknownBooking(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, nil, "PATCH", "/bookings/"+uuid.NewString()+"/verify", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelEndpointAfterVerifyConflicts(t *testing.T) {
	f := setupAPI(t)
	ticket := f.seedTicket(t, 1200, 8)
	owner := apiUser()

	resp, err := f.service.CreateBooking(context.Background(), owner, models.BookingRequest{
		TicketID: ticket.TicketID,
		Quantity: 1,
	})
	require.NoError(t, err)

	rec := f.do(t, nil, "PATCH", "/bookings/"+resp.Booking.BookingID+"/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, owner, "DELETE", "/bookings/"+resp.Booking.BookingID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingQREndpointReturnsPNG(t *testing.T) {
	f := setupAPI(t)
	ticket := f.seedTicket(t, 1200, 8)
	owner := apiUser()

	resp, err := f.service.CreateBooking(context.Background(), owner, models.BookingRequest{
		TicketID: ticket.TicketID,
		Quantity: 1,
	})
	require.NoError(t, err)

	rec := f.do(t, owner, "GET", "/bookings/"+resp.Booking.BookingID+"/qr", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, rec.Body.Bytes()[:4])
}

package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingTestColumns = []string{
	"id", "vehicle_id", "customer_name", "customer_email", "customer_phone",
	"service_type", "pickup_location", "dropoff_location", "start_date", "start_time",
	"duration_hours", "total_amount", "currency", "status", "payment_status",
	"gateway_session_id", "gateway_payment_id", "hold_expires_at", "vehicle_released",
	"created_at", "updated_at",
}

func bookingRow(bookingID, vehicleID uuid.UUID, status, paymentStatus string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingTestColumns).AddRow(
		bookingID, vehicleID, "Ada Lovelace", "ada@example.com", "",
		"airport_transfer", "Changi Airport", "Raffles Hotel", "2026-09-15", "14:00",
		0, 80.0, "USD", status, paymentStatus,
		nil, nil, now.Add(30*time.Minute), false,
		now, now,
	)
}

func TestCreateBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})

	t.Run("Success", func(t *testing.T) {
		booking := &models.Booking{
			VehicleID:      uuid.New(),
			CustomerName:   "Ada Lovelace",
			CustomerEmail:  "ada@example.com",
			ServiceType:    models.ServiceTypeAirportTransfer,
			PickupLocation: "Changi Airport",
			TotalAmount:    80,
			Currency:       "USD",
			HoldExpiresAt:  time.Now().Add(30 * time.Minute),
		}

		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(booking)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, booking.ID)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO bookings`).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.Create(&models.Booking{VehicleID: uuid.New()})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create booking")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBookingByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})

	t.Run("Found", func(t *testing.T) {
		bookingID := uuid.New()
		vehicleID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(bookingID, vehicleID, "pending", "pending"))

		booking, err := repo.GetByID(bookingID)
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, bookingID, booking.ID)
		assert.Equal(t, vehicleID, booking.VehicleID)
		assert.Equal(t, models.BookingStatusPending, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		bookingID := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(bookingID).
			WillReturnError(sql.ErrNoRows)

		booking, err := repo.GetByID(bookingID)
		require.NoError(t, err)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})
	bookingID := uuid.New()

	t.Run("Winner Flips Row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, "pi_123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		transitioned, err := repo.MarkPaid(bookingID, "pi_123")
		require.NoError(t, err)
		assert.True(t, transitioned)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Loser Sees Zero Rows", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, "pi_123").
			WillReturnResult(sqlmock.NewResult(0, 0))

		transitioned, err := repo.MarkPaid(bookingID, "pi_123")
		require.NoError(t, err)
		assert.False(t, transitioned)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, "pi_123").
			WillReturnError(fmt.Errorf("connection reset"))

		_, err := repo.MarkPaid(bookingID, "pi_123")
		assert.Error(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelBookingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})
	bookingID := uuid.New()
	holdUntil := time.Now()

	t.Run("Pending Booking Cancelled", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, true, holdUntil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		cancelled, err := repo.Cancel(bookingID, true, holdUntil)
		require.NoError(t, err)
		assert.True(t, cancelled)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Paid Booking Not Cancelled", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, true, holdUntil).
			WillReturnResult(sqlmock.NewResult(0, 0))

		cancelled, err := repo.Cancel(bookingID, true, holdUntil)
		require.NoError(t, err)
		assert.False(t, cancelled)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPatchTotalAmount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})
	bookingID := uuid.New()

	t.Run("Patched Before Session Exists", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, 90.0).
			WillReturnResult(sqlmock.NewResult(0, 1))

		patched, err := repo.PatchTotalAmount(bookingID, 90)
		require.NoError(t, err)
		assert.True(t, patched)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Refused Once Session Exists", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(bookingID, 90.0).
			WillReturnResult(sqlmock.NewResult(0, 0))

		patched, err := repo.PatchTotalAmount(bookingID, 90)
		require.NoError(t, err)
		assert.False(t, patched)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetExpiredHolds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBookingRepository(&mockDatabase{db: db})

	bookingID := uuid.New()
	vehicleID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM bookings`).
		WithArgs(100).
		WillReturnRows(bookingRow(bookingID, vehicleID, "pending", "pending"))

	bookings, err := repo.GetExpiredHolds(100)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, bookingID, bookings[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// mockDatabase adapts a raw *sql.DB (sqlmock) to the DB interface
type mockDatabase struct {
	db *sql.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in mock")
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in mock")
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}

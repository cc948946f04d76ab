package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/luxeride/booking-backend/internal/config"
	"github.com/luxeride/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBookingStore is an in-memory BookingStore with the same conditional
// transition semantics as the SQL repository
type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[uuid.UUID]*models.Booking)}
}

func (s *fakeBookingStore) Create(booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking.ID = uuid.New()
	booking.Status = models.BookingStatusPending
	booking.PaymentStatus = models.PaymentStatusPending
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	s.bookings[booking.ID] = &copied
	return nil
}

func (s *fakeBookingStore) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (s *fakeBookingStore) MarkPaid(bookingID uuid.UUID, gatewayPaymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[bookingID]
	if !ok || booking.Status != models.BookingStatusPending || booking.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	booking.Status = models.BookingStatusConfirmed
	booking.PaymentStatus = models.PaymentStatusPaid
	booking.GatewayPaymentID = &gatewayPaymentID
	return true, nil
}

func (s *fakeBookingStore) MarkPaymentFailed(bookingID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[bookingID]
	if !ok || booking.Status != models.BookingStatusPending || booking.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	booking.PaymentStatus = models.PaymentStatusFailed
	return true, nil
}

func (s *fakeBookingStore) Cancel(bookingID uuid.UUID, vehicleReleased bool, holdExpiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[bookingID]
	if !ok || booking.Status != models.BookingStatusPending || booking.PaymentStatus == models.PaymentStatusPaid {
		return false, nil
	}
	booking.Status = models.BookingStatusCancelled
	booking.VehicleReleased = vehicleReleased
	booking.HoldExpiresAt = holdExpiresAt
	return true, nil
}

// fakeVehicleStore is an in-memory VehicleStore with conditional reserve
type fakeVehicleStore struct {
	mu       sync.Mutex
	vehicles map[uuid.UUID]*models.Vehicle
}

func newFakeVehicleStore(vehicles ...*models.Vehicle) *fakeVehicleStore {
	s := &fakeVehicleStore{vehicles: make(map[uuid.UUID]*models.Vehicle)}
	for _, v := range vehicles {
		s.vehicles[v.ID] = v
	}
	return s
}

func (s *fakeVehicleStore) GetByID(vehicleID uuid.UUID) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vehicle, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, nil
	}
	copied := *vehicle
	return &copied, nil
}

func (s *fakeVehicleStore) Reserve(vehicleID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vehicle, ok := s.vehicles[vehicleID]
	if !ok || vehicle.Status != models.VehicleStatusAvailable {
		return false, nil
	}
	vehicle.Status = models.VehicleStatusReserved
	return true, nil
}

func (s *fakeVehicleStore) Release(vehicleID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vehicle, ok := s.vehicles[vehicleID]
	if !ok || vehicle.Status != models.VehicleStatusReserved {
		return false, nil
	}
	vehicle.Status = models.VehicleStatusAvailable
	return true, nil
}

func (s *fakeVehicleStore) status(vehicleID uuid.UUID) models.VehicleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicles[vehicleID].Status
}

// countingNotifier records every send
type countingNotifier struct {
	mu    sync.Mutex
	sends []string
	fail  bool
}

func (n *countingNotifier) Send(to, subject, templateName string, data interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("smtp unreachable")
	}
	n.sends = append(n.sends, to)
	return nil
}

func (n *countingNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

func testVehicle() *models.Vehicle {
	return &models.Vehicle{
		ID:                   uuid.New(),
		Name:                 "Mercedes S-Class",
		Category:             "sedan",
		Seats:                4,
		PriceAirportTransfer: 80,
		PriceTripBase:        70,
		Price6Hours:          360,
		Price12Hours:         720,
		PricePerHour:         60,
		Status:               models.VehicleStatusAvailable,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestLifecycle(
	bookings *fakeBookingStore,
	vehicles *fakeVehicleStore,
	notifier *countingNotifier,
	reservation config.ReservationConfig,
) *BookingLifecycleService {
	return NewBookingLifecycleService(
		bookings,
		vehicles,
		newTestPricingService(testPricingConfig()),
		notifier,
		reservation,
		"USD",
		testLogger(),
	)
}

func testCreateRequest(vehicleID uuid.UUID) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		VehicleID:       vehicleID.String(),
		CustomerName:    "Ada Lovelace",
		CustomerEmail:   "ada@example.com",
		ServiceType:     string(models.ServiceTypeAirportTransfer),
		PickupLocation:  "Changi Airport Terminal 1",
		DropoffLocation: "Raffles Hotel",
		StartDate:       "2026-09-15",
		StartTime:       "14:00",
	}
}

func TestCreateBooking(t *testing.T) {
	reservation := config.ReservationConfig{HoldTTL: 30 * time.Minute}

	t.Run("Success Reserves Vehicle", func(t *testing.T) {
		vehicle := testVehicle()
		bookings := newFakeBookingStore()
		vehicles := newFakeVehicleStore(vehicle)
		svc := newTestLifecycle(bookings, vehicles, &countingNotifier{}, reservation)

		booking, breakdown, err := svc.Create(testCreateRequest(vehicle.ID))
		require.NoError(t, err)
		require.NotNil(t, booking)
		require.NotNil(t, breakdown)

		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
		assert.Equal(t, 80.0, booking.TotalAmount)
		assert.Equal(t, "USD", booking.Currency)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), booking.HoldExpiresAt, 5*time.Second)
		assert.Equal(t, models.VehicleStatusReserved, vehicles.status(vehicle.ID))
	})

	t.Run("Reserved Vehicle Rejected", func(t *testing.T) {
		vehicle := testVehicle()
		vehicle.Status = models.VehicleStatusReserved
		svc := newTestLifecycle(newFakeBookingStore(), newFakeVehicleStore(vehicle), &countingNotifier{}, reservation)

		_, _, err := svc.Create(testCreateRequest(vehicle.ID))
		assert.True(t, IsVehicleUnavailable(err))
	})

	t.Run("Unknown Vehicle Rejected", func(t *testing.T) {
		svc := newTestLifecycle(newFakeBookingStore(), newFakeVehicleStore(), &countingNotifier{}, reservation)

		_, _, err := svc.Create(testCreateRequest(uuid.New()))
		assert.ErrorIs(t, err, ErrVehicleNotFound)
	})

	t.Run("Only One Of Two Racing Creates Wins", func(t *testing.T) {
		vehicle := testVehicle()
		bookings := newFakeBookingStore()
		vehicles := newFakeVehicleStore(vehicle)
		svc := newTestLifecycle(bookings, vehicles, &countingNotifier{}, reservation)

		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.Create(testCreateRequest(vehicle.ID))
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		winners := 0
		for err := range results {
			if err == nil {
				winners++
			} else {
				assert.True(t, IsVehicleUnavailable(err))
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestConfirmPayment(t *testing.T) {
	reservation := config.ReservationConfig{HoldTTL: 30 * time.Minute}

	setup := func(t *testing.T, notifier *countingNotifier) (*BookingLifecycleService, *models.Booking, *fakeVehicleStore) {
		vehicle := testVehicle()
		bookings := newFakeBookingStore()
		vehicles := newFakeVehicleStore(vehicle)
		svc := newTestLifecycle(bookings, vehicles, notifier, reservation)
		booking, _, err := svc.Create(testCreateRequest(vehicle.ID))
		require.NoError(t, err)
		return svc, booking, vehicles
	}

	t.Run("First Confirmation Transitions And Notifies", func(t *testing.T) {
		notifier := &countingNotifier{}
		svc, booking, _ := setup(t, notifier)

		confirmed, err := svc.ConfirmPayment(booking.ID, "pi_123")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
		assert.Equal(t, models.PaymentStatusPaid, confirmed.PaymentStatus)
		require.NotNil(t, confirmed.GatewayPaymentID)
		assert.Equal(t, "pi_123", *confirmed.GatewayPaymentID)
		assert.Equal(t, 1, notifier.sendCount())
	})

	t.Run("Repeat Confirmation Is Idempotent", func(t *testing.T) {
		notifier := &countingNotifier{}
		svc, booking, _ := setup(t, notifier)

		_, err := svc.ConfirmPayment(booking.ID, "pi_123")
		require.NoError(t, err)

		confirmed, err := svc.ConfirmPayment(booking.ID, "pi_123")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, confirmed.PaymentStatus)
		assert.Equal(t, 1, notifier.sendCount())
	})

	t.Run("Concurrent Confirmations Notify Once", func(t *testing.T) {
		notifier := &countingNotifier{}
		svc, booking, _ := setup(t, notifier)

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.ConfirmPayment(booking.ID, "pi_123")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, notifier.sendCount())
	})

	t.Run("Failed Notification Does Not Unwind Payment", func(t *testing.T) {
		notifier := &countingNotifier{fail: true}
		svc, booking, _ := setup(t, notifier)

		confirmed, err := svc.ConfirmPayment(booking.ID, "pi_123")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, confirmed.PaymentStatus)
	})

	t.Run("Cancelled Booking Rejected", func(t *testing.T) {
		notifier := &countingNotifier{}
		svc, booking, _ := setup(t, notifier)

		_, err := svc.Cancel(booking.ID)
		require.NoError(t, err)

		_, err = svc.ConfirmPayment(booking.ID, "pi_123")
		assert.ErrorIs(t, err, ErrBookingCancelled)
		assert.Equal(t, 0, notifier.sendCount())
	})

	t.Run("Unknown Booking Rejected", func(t *testing.T) {
		svc, _, _ := setup(t, &countingNotifier{})
		_, err := svc.ConfirmPayment(uuid.New(), "pi_123")
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("Pending Cancel Releases Vehicle Immediately", func(t *testing.T) {
		vehicle := testVehicle()
		vehicles := newFakeVehicleStore(vehicle)
		svc := newTestLifecycle(newFakeBookingStore(), vehicles, &countingNotifier{},
			config.ReservationConfig{HoldTTL: 30 * time.Minute})
		booking, _, err := svc.Create(testCreateRequest(vehicle.ID))
		require.NoError(t, err)

		cancelled, err := svc.Cancel(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
		assert.True(t, cancelled.VehicleReleased)
		assert.Equal(t, models.VehicleStatusAvailable, vehicles.status(vehicle.ID))
	})

	t.Run("Grace Period Defers Release To Sweep", func(t *testing.T) {
		vehicle := testVehicle()
		vehicles := newFakeVehicleStore(vehicle)
		svc := newTestLifecycle(newFakeBookingStore(), vehicles, &countingNotifier{},
			config.ReservationConfig{HoldTTL: 30 * time.Minute, CancelReleaseGrace: 10 * time.Minute})
		booking, _, err := svc.Create(testCreateRequest(vehicle.ID))
		require.NoError(t, err)

		cancelled, err := svc.Cancel(booking.ID)
		require.NoError(t, err)
		assert.False(t, cancelled.VehicleReleased)
		assert.WithinDuration(t, time.Now().Add(10*time.Minute), cancelled.HoldExpiresAt, 5*time.Second)
		assert.Equal(t, models.VehicleStatusReserved, vehicles.status(vehicle.ID))
	})

	t.Run("Confirmed Booking Not Cancellable", func(t *testing.T) {
		vehicle := testVehicle()
		vehicles := newFakeVehicleStore(vehicle)
		svc := newTestLifecycle(newFakeBookingStore(), vehicles, &countingNotifier{},
			config.ReservationConfig{HoldTTL: 30 * time.Minute})
		booking, _, err := svc.Create(testCreateRequest(vehicle.ID))
		require.NoError(t, err)
		_, err = svc.ConfirmPayment(booking.ID, "pi_123")
		require.NoError(t, err)

		_, err = svc.Cancel(booking.ID)
		assert.ErrorIs(t, err, ErrNotCancellable)
		assert.Equal(t, models.VehicleStatusReserved, vehicles.status(vehicle.ID))
	})
}

func TestFailPayment(t *testing.T) {
	vehicle := testVehicle()
	vehicles := newFakeVehicleStore(vehicle)
	bookings := newFakeBookingStore()
	svc := newTestLifecycle(bookings, vehicles, &countingNotifier{},
		config.ReservationConfig{HoldTTL: 30 * time.Minute})
	booking, _, err := svc.Create(testCreateRequest(vehicle.ID))
	require.NoError(t, err)

	t.Run("Marks Payment Failed", func(t *testing.T) {
		failed, err := svc.FailPayment(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, failed.PaymentStatus)
		assert.Equal(t, models.BookingStatusPending, failed.Status)
	})

	t.Run("Paid Booking Never Demoted", func(t *testing.T) {
		vehicle2 := testVehicle()
		vehicles2 := newFakeVehicleStore(vehicle2)
		svc2 := newTestLifecycle(newFakeBookingStore(), vehicles2, &countingNotifier{},
			config.ReservationConfig{HoldTTL: 30 * time.Minute})
		paid, _, err := svc2.Create(testCreateRequest(vehicle2.ID))
		require.NoError(t, err)
		_, err = svc2.ConfirmPayment(paid.ID, "pi_456")
		require.NoError(t, err)

		result, err := svc2.FailPayment(paid.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, result.PaymentStatus)
	})
}

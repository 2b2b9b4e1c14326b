package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ticketblitz/internal/booking"
	"ticketblitz/internal/clients"
	"ticketblitz/internal/saga"
)

type memStore struct {
	bookings      map[uint64]*booking.Booking
	statusChanges int
}

func newMemStore(bookings ...*booking.Booking) *memStore {
	s := &memStore{bookings: make(map[uint64]*booking.Booking)}
	for _, b := range bookings {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *memStore) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *memStore) GetForUpdateTx(tx *gorm.DB, id uint64) (*booking.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) UpdateStatusTx(tx *gorm.DB, id uint64, status booking.Status) error {
	s.bookings[id].Status = status
	s.statusChanges++
	return nil
}

type fakeInventory struct {
	releases    int
	failUntil   int
	lastEventID uint64
	lastCount   int
}

func (f *fakeInventory) GetEvent(ctx context.Context, eventID uint64, authToken string) (*clients.EventInfo, error) {
	return nil, errors.New("not used")
}

func (f *fakeInventory) Reserve(ctx context.Context, eventID uint64, count int, authToken string) (bool, error) {
	return false, errors.New("not used")
}

func (f *fakeInventory) Release(ctx context.Context, eventID uint64, count int, authToken string) error {
	f.releases++
	f.lastEventID = eventID
	f.lastCount = count
	if f.releases <= f.failUntil {
		return errors.New("inventory unreachable")
	}
	return nil
}

func pendingBooking(id uint64) *booking.Booking {
	return &booking.Booking{
		ID:          id,
		UserID:      1,
		EventID:     2,
		TicketCount: 3,
		TotalPrice:  decimal.RequireFromString("150.00"),
		Status:      booking.StatusPending,
	}
}

func paymentUpdated(bookingID uint64, status string) saga.PaymentUpdated {
	return saga.PaymentUpdated{
		BookingID:     bookingID,
		UserID:        1,
		Status:        status,
		TransactionID: "chrg_123",
		AuthToken:     "Bearer tok",
	}
}

func newTestService(store BookingStore, inv clients.Inventory) *Service {
	return NewService(store, inv, 3, time.Millisecond, zerolog.Nop())
}

func TestPaymentSuccessConfirmsBooking(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	inv := &fakeInventory{}
	svc := newTestService(store, inv)

	err := svc.HandlePaymentUpdated(context.Background(), paymentUpdated(1, saga.PaymentStatusSuccess))
	require.NoError(t, err)

	assert.Equal(t, booking.StatusConfirmed, store.bookings[1].Status)
	assert.Zero(t, inv.releases, "confirmed booking keeps its tickets")
}

func TestPaymentFailureCancelsAndReleases(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	inv := &fakeInventory{}
	svc := newTestService(store, inv)

	err := svc.HandlePaymentUpdated(context.Background(), paymentUpdated(1, saga.PaymentStatusFailed))
	require.NoError(t, err)

	assert.Equal(t, booking.StatusCancelled, store.bookings[1].Status)
	assert.Equal(t, 1, inv.releases)
	assert.Equal(t, uint64(2), inv.lastEventID)
	assert.Equal(t, 3, inv.lastCount, "release count matches the reservation")
}

func TestRedeliveryIsIdempotent(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	inv := &fakeInventory{}
	svc := newTestService(store, inv)

	evt := paymentUpdated(1, saga.PaymentStatusFailed)
	require.NoError(t, svc.HandlePaymentUpdated(context.Background(), evt))
	require.NoError(t, svc.HandlePaymentUpdated(context.Background(), evt))
	require.NoError(t, svc.HandlePaymentUpdated(context.Background(), evt))

	assert.Equal(t, 1, store.statusChanges, "terminal booking is never updated again")
	assert.Equal(t, 1, inv.releases, "compensation runs exactly once")
}

func TestSuccessAfterCancellationIsIgnored(t *testing.T) {
	b := pendingBooking(1)
	b.Status = booking.StatusCancelled
	store := newMemStore(b)
	inv := &fakeInventory{}
	svc := newTestService(store, inv)

	err := svc.HandlePaymentUpdated(context.Background(), paymentUpdated(1, saga.PaymentStatusSuccess))
	require.NoError(t, err)

	assert.Equal(t, booking.StatusCancelled, store.bookings[1].Status)
	assert.Zero(t, store.statusChanges)
}

func TestUnknownStatusDropped(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	inv := &fakeInventory{}
	svc := newTestService(store, inv)

	err := svc.HandlePaymentUpdated(context.Background(), paymentUpdated(1, "MAYBE"))
	require.NoError(t, err)

	assert.Equal(t, booking.StatusPending, store.bookings[1].Status)
	assert.Zero(t, inv.releases)
}

func TestMissingBookingDropped(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeInventory{})

	err := svc.HandlePaymentUpdated(context.Background(), paymentUpdated(99, saga.PaymentStatusSuccess))
	assert.NoError(t, err, "orphan payment update must not poison the consumer")
}

func TestCompensationRetriesUntilSuccess(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	inv := &fakeInventory{failUntil: 2}
	svc := newTestService(store, inv)

	err := svc.HandlePaymentUpdated(context.Background(), paymentUpdated(1, saga.PaymentStatusFailed))
	require.NoError(t, err)

	assert.Equal(t, 3, inv.releases, "two failures then success")
	assert.Equal(t, booking.StatusCancelled, store.bookings[1].Status)
}

func TestCompensationExhaustionIsSwallowed(t *testing.T) {
	store := newMemStore(pendingBooking(1))
	inv := &fakeInventory{failUntil: 100}
	svc := newTestService(store, inv)

	err := svc.HandlePaymentUpdated(context.Background(), paymentUpdated(1, saga.PaymentStatusFailed))
	assert.NoError(t, err, "the booking is already cancelled, redelivery would short-circuit")
	assert.Equal(t, 3, inv.releases, "bounded retries")
}

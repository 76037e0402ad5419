package kafka

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seating-core/internal/apperr"
	"github.com/iliyamo/seating-core/internal/model"
)

// MockHoldService is a mock of the hold manager
type MockHoldService struct {
	mock.Mock
}

func (m *MockHoldService) Confirm(ctx context.Context, holdID, holderID string) (model.SeatHold, error) {
	args := m.Called(holdID, holderID)
	return args.Get(0).(model.SeatHold), args.Error(1)
}

func (m *MockHoldService) ReleaseHold(ctx context.Context, holdID, holderID string) (int, error) {
	args := m.Called(holdID, holderID)
	return args.Int(0), args.Error(1)
}

type MockLayout struct {
	mock.Mock
}

func (m *MockLayout) ReplaceTicketTypes(ctx context.Context, seatingID string, types []model.TicketType) error {
	return m.Called(seatingID, types).Error(0)
}

// fakeReader replays messages and then reports EOF.
type fakeReader struct {
	msgs []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error { return nil }

func TestProcessCompletedOrderConfirmsHold(t *testing.T) {
	holds := new(MockHoldService)
	holds.On("Confirm", "h-1", "u1").Return(model.SeatHold{ID: "h-1", Seats: []model.HeldSeat{{SeatUID: "A1"}}}, nil)
	c := NewOrderConsumer(&BaseConsumer{Topic: "orders"}, holds)

	err := c.processOrder(context.Background(), []byte(`{"order_id":"o-1","hold_id":"h-1","user_id":"u1","status":"completed"}`))
	assert.NoError(t, err)
	holds.AssertExpectations(t)
}

func TestProcessPaidAfterExpiry(t *testing.T) {
	holds := new(MockHoldService)
	holds.On("Confirm", "h-1", "u1").Return(model.SeatHold{}, apperr.ErrHoldExpired)
	c := NewOrderConsumer(&BaseConsumer{}, holds)

	err := c.processOrder(context.Background(), []byte(`{"order_id":"o-1","hold_id":"h-1","user_id":"u1","status":"PAID"}`))
	assert.ErrorIs(t, err, apperr.ErrHoldExpired)
}

func TestProcessFailedOrderReleasesHold(t *testing.T) {
	holds := new(MockHoldService)
	holds.On("ReleaseHold", "h-1", "u1").Return(2, nil).Once()
	holds.On("ReleaseHold", "h-2", "u1").Return(0, apperr.NotFound("hold", "h-2")).Once()
	c := NewOrderConsumer(&BaseConsumer{}, holds)

	assert.NoError(t, c.processOrder(context.Background(), []byte(`{"order_id":"o-1","hold_id":"h-1","user_id":"u1","status":"failed"}`)))
	assert.NoError(t, c.processOrder(context.Background(), []byte(`{"order_id":"o-2","hold_id":"h-2","user_id":"u1","status":"cancelled"}`)))
	holds.AssertExpectations(t)
}

func TestProcessIgnoresPendingAndUnseated(t *testing.T) {
	holds := new(MockHoldService)
	c := NewOrderConsumer(&BaseConsumer{}, holds)

	assert.NoError(t, c.processOrder(context.Background(), []byte(`{"order_id":"o-1","hold_id":"h-1","status":"pending"}`)))
	assert.NoError(t, c.processOrder(context.Background(), []byte(`{"order_id":"o-2","status":"completed"}`)))
	assert.Error(t, c.processOrder(context.Background(), []byte(`{`)))
	holds.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	holds.AssertNotCalled(t, "ReleaseHold", mock.Anything, mock.Anything)
}

func TestTicketTypeConsumerReplaces(t *testing.T) {
	layout := new(MockLayout)
	layout.On("ReplaceTicketTypes", "es-1", mock.MatchedBy(func(types []model.TicketType) bool {
		return len(types) == 1 && types[0].ID == "std"
	})).Return(nil)
	c := NewTicketTypeConsumer(&BaseConsumer{}, layout)

	err := c.processTicketTypes(context.Background(), []byte(`{"event_seating_id":"es-1","ticket_types":[{"id":"std","has_seating":true,"seating_sections":[{"section_id":"S1"}]}]}`))
	require.NoError(t, err)
	layout.AssertExpectations(t)

	assert.Error(t, c.processTicketTypes(context.Background(), []byte(`{"ticket_types":[]}`)))
}

func TestConsumeMessagesDrainsUntilEOF(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "orders", Value: []byte("a")},
		{Topic: "orders", Value: []byte("b")},
		{Topic: "orders", Value: []byte("c")},
	}}
	base := &BaseConsumer{Reader: reader, Topic: "orders"}

	var seen []string
	base.ConsumeMessages(context.Background(), func(_ context.Context, v []byte) error {
		seen = append(seen, string(v))
		if string(v) == "b" {
			return errors.New("poison")
		}
		return nil
	})
	assert.Equal(t, []string{"a", "b", "c"}, seen, "handler errors do not stop the loop")
}

func TestNilReaderReturnsImmediately(t *testing.T) {
	base := NewBaseConsumer(nil, "g", "")
	base.ConsumeMessages(context.Background(), func(context.Context, []byte) error {
		t.Fatal("handler must not run")
		return nil
	})
	assert.NoError(t, base.Close())
}

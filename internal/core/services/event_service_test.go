package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/go-redis/redismock/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedgerEvent_Names(t *testing.T) {
	tests := []struct {
		kind domain.TransactionKind
		want string
	}{
		{domain.KindTaskReward, "reward"},
		{domain.KindReferralCommission, "commission"},
		{domain.KindWithdrawalHold, "withdrawal"},
		{domain.KindWithdrawalRefund, "withdrawal"},
		{domain.KindWithdrawalSettled, "withdrawal"},
		{domain.KindVoucherCredit, "voucher"},
		{domain.KindAdjustment, "adjustment"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			event := NewLedgerEvent(&models.Transaction{ID: 7, AccountID: 3, Kind: string(tt.kind), Amount: testutil.Money("1")})
			assert.Equal(t, tt.want, event.Event)
			assert.EqualValues(t, 3, event.AccountID)
			assert.EqualValues(t, 7, event.TransactionID)
		})
	}
}

func TestEventDispatcher_DeliversAndDrains(t *testing.T) {
	sink := newRecordingSink()
	dispatcher := NewEventDispatcher(8, logger.Discard(), sink)
	dispatcher.Start()

	dispatcher.PublishTransactions(
		&models.Transaction{ID: 1, AccountID: 1, Kind: string(domain.KindTaskReward)},
		nil,
		&models.Transaction{ID: 2, AccountID: 1, Kind: string(domain.KindAdjustment)},
	)
	dispatcher.Stop()
	dispatcher.Stop()

	require.Len(t, sink.events, 2)
	assert.EqualValues(t, 1, (<-sink.events).TransactionID)
	assert.EqualValues(t, 2, (<-sink.events).TransactionID)
}

func TestEventDispatcher_DropsWhenFull(t *testing.T) {
	sink := newRecordingSink()
	dispatcher := NewEventDispatcher(1, logger.Discard(), sink)

	// not started: the second publish finds the buffer full
	dispatcher.Publish(LedgerEvent{TransactionID: 1}, LedgerEvent{TransactionID: 2})

	dispatcher.Start()
	dispatcher.Stop()

	require.Len(t, sink.events, 1)
	assert.EqualValues(t, 1, (<-sink.events).TransactionID)
}

func TestEventDispatcher_NilIsNoop(t *testing.T) {
	var dispatcher *EventDispatcher
	assert.NotPanics(t, func() {
		dispatcher.Publish(LedgerEvent{})
		dispatcher.PublishTransactions(&models.Transaction{})
	})
}

type failingSink struct{}

func (failingSink) Name() string { return "failing" }

func (failingSink) Send(context.Context, LedgerEvent) error { return errors.New("unreachable") }

func TestEventDispatcher_SinkFailureDoesNotBlockOthers(t *testing.T) {
	sink := newRecordingSink()
	dispatcher := NewEventDispatcher(4, logger.Discard(), failingSink{}, sink)
	dispatcher.Start()
	dispatcher.Publish(LedgerEvent{TransactionID: 9})
	dispatcher.Stop()

	require.Len(t, sink.events, 1)
}

func TestEventHub_SendsToAccountStreams(t *testing.T) {
	hub := NewEventHub(logger.Discard())
	mine := &SSEClient{ID: "a", AccountID: 1, Channel: make(chan LedgerEvent, 1)}
	other := &SSEClient{ID: "b", AccountID: 2, Channel: make(chan LedgerEvent, 1)}
	hub.Register(mine)
	hub.Register(other)
	assert.Equal(t, 2, hub.ClientCount())

	require.NoError(t, hub.Send(context.Background(), LedgerEvent{AccountID: 1, TransactionID: 5}))
	// a full channel is skipped instead of blocking
	require.NoError(t, hub.Send(context.Background(), LedgerEvent{AccountID: 1, TransactionID: 6}))

	select {
	case event := <-mine.Channel:
		assert.EqualValues(t, 5, event.TransactionID)
	default:
		t.Fatal("expected an event for account 1")
	}
	assert.Empty(t, other.Channel)

	hub.Unregister("a")
	hub.Unregister("a")
	assert.Equal(t, 1, hub.ClientCount())
	_, open := <-mine.Channel
	assert.False(t, open)
}

func TestLedgerService_PublishesThroughHub(t *testing.T) {
	db := testutil.NewDB(t)
	hub := NewEventHub(logger.Discard())
	dispatcher := NewEventDispatcher(8, logger.Discard(), hub)
	dispatcher.Start()
	svc := NewServices(db, testutil.Config(), logger.Discard(), dispatcher)

	account := testutil.CreateAccount(t, db)
	client := &SSEClient{ID: "live", AccountID: account.ID, Channel: make(chan LedgerEvent, 4)}
	hub.Register(client)

	txn, err := svc.Ledger.Credit(context.Background(), LedgerEntry{
		AccountID: account.ID,
		Amount:    testutil.Money("12.5"),
		Kind:      domain.KindAdjustment,
		Reference: "live-1",
	})
	require.NoError(t, err)
	dispatcher.Stop()

	select {
	case event := <-client.Channel:
		assert.Equal(t, txn.ID, event.TransactionID)
		assert.Equal(t, "adjustment", event.Event)
		assert.True(t, event.BalanceAfter.Equal(testutil.Money("12.5")))
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestRedisEventSink_Send(t *testing.T) {
	client, mock := redismock.NewClientMock()
	sink := NewRedisEventSink(client, "ledger.events", logger.Discard())

	event := LedgerEvent{Event: "reward", AccountID: 4, TransactionID: 11, Amount: testutil.Money("10")}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	mock.ExpectPublish("ledger.events", string(payload)).SetVal(1)

	require.NoError(t, sink.Send(context.Background(), event))
	assert.Equal(t, "redis", sink.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisEventSink_BreakerOpensAfterFailures(t *testing.T) {
	client, mock := redismock.NewClientMock()
	sink := NewRedisEventSink(client, "ledger.events", logger.Discard())

	event := LedgerEvent{Event: "withdrawal", AccountID: 1}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		mock.ExpectPublish("ledger.events", string(payload)).SetErr(errors.New("connection refused"))
	}
	for i := 0; i < 3; i++ {
		assert.Error(t, sink.Send(context.Background(), event))
	}

	// open breaker rejects without touching redis
	err = sink.Send(context.Background(), event)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

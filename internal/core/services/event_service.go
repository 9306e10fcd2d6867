package services

import (
	"context"
	"sync"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/persistence/models"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/metrics"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LedgerEvent is emitted after a ledger mutation commits
type LedgerEvent struct {
	Event         string          `json:"event"`
	AccountID     uint            `json:"account_id"`
	TransactionID uint            `json:"transaction_id"`
	Kind          string          `json:"kind"`
	Direction     string          `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reference     string          `json:"reference"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewLedgerEvent builds the event for a committed transaction
func NewLedgerEvent(txn *models.Transaction) LedgerEvent {
	return LedgerEvent{
		Event:         eventNameFor(domain.TransactionKind(txn.Kind)),
		AccountID:     txn.AccountID,
		TransactionID: txn.ID,
		Kind:          txn.Kind,
		Direction:     txn.Direction,
		Amount:        txn.Amount,
		BalanceAfter:  txn.BalanceAfter,
		Reference:     txn.Reference,
		OccurredAt:    txn.CreatedAt,
	}
}

func eventNameFor(kind domain.TransactionKind) string {
	switch kind {
	case domain.KindTaskReward:
		return "reward"
	case domain.KindReferralCommission:
		return "commission"
	case domain.KindWithdrawalHold, domain.KindWithdrawalRefund, domain.KindWithdrawalSettled:
		return "withdrawal"
	case domain.KindVoucherCredit:
		return "voucher"
	default:
		return "adjustment"
	}
}

// EventSink delivers ledger events to one destination
type EventSink interface {
	Name() string
	Send(ctx context.Context, event LedgerEvent) error
}

// ============================================================
// Dispatcher
// ============================================================

// EventDispatcher fans committed ledger events out to sinks on a background
// goroutine. Publishing never blocks and delivery failures never reach the
// ledger caller.
type EventDispatcher struct {
	sinks    []EventSink
	queue    chan LedgerEvent
	log      *logger.Logger
	timeout  time.Duration
	stopChan chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewEventDispatcher creates a dispatcher with a bounded buffer
func NewEventDispatcher(buffer int, log *logger.Logger, sinks ...EventSink) *EventDispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &EventDispatcher{
		sinks:    sinks,
		queue:    make(chan LedgerEvent, buffer),
		log:      log,
		timeout:  5 * time.Second,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the delivery loop
func (d *EventDispatcher) Start() {
	d.log.WithField("sinks", len(d.sinks)).Info("🚀 Event dispatcher started")
	go d.run()
}

// Stop drains queued events and stops the delivery loop
func (d *EventDispatcher) Stop() {
	d.once.Do(func() {
		close(d.stopChan)
		<-d.done
		d.log.Info("🛑 Event dispatcher stopped")
	})
}

// Publish enqueues events. A full buffer drops the event with a warning.
func (d *EventDispatcher) Publish(events ...LedgerEvent) {
	if d == nil {
		return
	}
	for _, event := range events {
		select {
		case d.queue <- event:
		default:
			metrics.DroppedEvents.Inc()
			d.log.WithFields(logrus.Fields{
				"account_id":     event.AccountID,
				"transaction_id": event.TransactionID,
			}).Warn("⚠️ Event buffer full, dropping ledger event")
		}
	}
}

// PublishTransactions enqueues one event per committed transaction
func (d *EventDispatcher) PublishTransactions(txns ...*models.Transaction) {
	if d == nil {
		return
	}
	for _, txn := range txns {
		if txn != nil {
			d.Publish(NewLedgerEvent(txn))
		}
	}
}

func (d *EventDispatcher) run() {
	defer close(d.done)
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stopChan:
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *EventDispatcher) deliver(event LedgerEvent) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := sink.Send(ctx, event); err != nil {
			d.log.WithFields(logrus.Fields{
				"sink":           sink.Name(),
				"transaction_id": event.TransactionID,
			}).WithError(err).Warn("❌ Failed to deliver ledger event")
		}
		cancel()
	}
}

// ============================================================
// SSE hub
// ============================================================

// SSEClient represents a connected live-update client
type SSEClient struct {
	ID        string
	AccountID uint
	Channel   chan LedgerEvent
}

// EventHub manages live SSE connections per account
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*SSEClient
	log     *logger.Logger
}

// NewEventHub creates a new SSE hub
func NewEventHub(log *logger.Logger) *EventHub {
	return &EventHub{
		clients: make(map[string]*SSEClient),
		log:     log,
	}
}

// Register adds a new SSE client
func (h *EventHub) Register(client *SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.log.WithFields(logrus.Fields{
		"client_id":  client.ID,
		"account_id": client.AccountID,
		"total":      len(h.clients),
	}).Debug("📡 SSE client registered")
}

// Unregister removes an SSE client
func (h *EventHub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Channel)
		delete(h.clients, clientID)
		h.log.WithFields(logrus.Fields{
			"client_id": clientID,
			"total":     len(h.clients),
		}).Debug("📡 SSE client unregistered")
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Name implements EventSink
func (h *EventHub) Name() string {
	return "sse"
}

// Send implements EventSink; it delivers to the account's open streams
func (h *EventHub) Send(_ context.Context, event LedgerEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.AccountID != event.AccountID {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			h.log.WithField("client_id", client.ID).Warn("⚠️ SSE channel full, skipping")
		}
	}
	return nil
}

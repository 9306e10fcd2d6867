package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/adapters/http/middleware"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const sseHeartbeat = 30 * time.Second

// EventsHandler streams ledger events to the signed-in member
type EventsHandler struct {
	hub *services.EventHub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *services.EventHub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles the member's live ledger stream
// @Summary Live ledger events
// @Description Server-sent events for rewards, commissions, withdrawals and adjustments on the caller's account
// @Tags Account
// @Produce text/event-stream
// @Security BearerAuth
// @Router /me/events [get]
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	accountID := middleware.AccountID(c)
	clientID := fmt.Sprintf("acc-%d-%s", accountID, uuid.NewString()[:8])

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		client := &services.SSEClient{
			ID:        clientID,
			AccountID: accountID,
			Channel:   make(chan services.LedgerEvent, 50),
		}

		h.hub.Register(client)
		defer h.hub.Unregister(clientID)

		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q,\"account_id\":%d}\n\n", clientID, accountID)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				if err := writeLedgerEvent(w, event); err != nil {
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}

// writeLedgerEvent writes one SSE frame and flushes it
func writeLedgerEvent(w *bufio.Writer, event services.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.TransactionID, event.Event, payload)
	return w.Flush()
}

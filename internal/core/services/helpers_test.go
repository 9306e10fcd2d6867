package services

import (
	"context"
	"testing"

	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"
	"github.com/umardraz9/mlmpk-sub009/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// recordingSink captures dispatched events
type recordingSink struct {
	events chan LedgerEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(chan LedgerEvent, 128)}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, event LedgerEvent) error {
	s.events <- event
	return nil
}

// newTestServices wires the full service graph over a fresh in-memory database
func newTestServices(t *testing.T) (*gorm.DB, *Services) {
	t.Helper()

	db := testutil.NewDB(t)
	return db, NewServices(db, testutil.Config(), logger.Discard(), nil)
}

func decimalNull(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(testutil.Money(s))
}

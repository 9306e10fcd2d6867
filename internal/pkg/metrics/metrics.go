package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerTransactions counts appended ledger entries
	LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "earnings",
		Name:      "ledger_transactions_total",
		Help:      "Ledger entries appended, by kind and direction.",
	}, []string{"kind", "direction"})

	// TaskOutcomes counts task completion attempts by outcome
	TaskOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "earnings",
		Name:      "task_outcomes_total",
		Help:      "Task completion attempts, by outcome.",
	}, []string{"outcome"})

	// WithdrawalTransitions counts withdrawal state changes
	WithdrawalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "earnings",
		Name:      "withdrawal_transitions_total",
		Help:      "Withdrawal state transitions, by target status.",
	}, []string{"status"})

	// CommissionLevels counts per-level commission outcomes
	CommissionLevels = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "earnings",
		Name:      "commission_levels_total",
		Help:      "Commission fan-out level outcomes.",
	}, []string{"outcome"})

	// IntegrityWarnings counts data-integrity warnings
	IntegrityWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "earnings",
		Name:      "integrity_warnings_total",
		Help:      "Data-integrity warnings, by source.",
	}, []string{"source"})

	// DroppedEvents counts ledger events dropped by a full dispatch buffer
	DroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "earnings",
		Name:      "events_dropped_total",
		Help:      "Ledger events dropped because the dispatch buffer was full.",
	})
)

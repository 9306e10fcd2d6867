package domain

// MembershipStatus is the lifecycle state of an account's paid plan
type MembershipStatus string

const (
	MembershipInactive MembershipStatus = "INACTIVE"
	MembershipActive   MembershipStatus = "ACTIVE"
	MembershipExpired  MembershipStatus = "EXPIRED"
)

// TransactionKind classifies a ledger entry. The set is closed.
type TransactionKind string

const (
	KindTaskReward         TransactionKind = "TASK_REWARD"
	KindReferralCommission TransactionKind = "REFERRAL_COMMISSION"
	KindWithdrawalHold     TransactionKind = "WITHDRAWAL_HOLD"
	KindWithdrawalRefund   TransactionKind = "WITHDRAWAL_REFUND"
	KindWithdrawalSettled  TransactionKind = "WITHDRAWAL_SETTLED"
	KindVoucherCredit      TransactionKind = "VOUCHER_CREDIT"
	KindAdjustment         TransactionKind = "ADJUSTMENT"
)

// Direction is the effect of a ledger entry on the balance
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
	DirectionNone   Direction = "NONE"
)

// Opposite returns the compensating direction
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionCredit:
		return DirectionDebit
	case DirectionDebit:
		return DirectionCredit
	}
	return DirectionNone
}

// Allows reports whether entries of this kind may move the balance in direction d.
func (k TransactionKind) Allows(d Direction) bool {
	switch k {
	case KindTaskReward, KindReferralCommission, KindWithdrawalRefund, KindVoucherCredit:
		return d == DirectionCredit
	case KindWithdrawalHold:
		return d == DirectionDebit
	case KindWithdrawalSettled:
		return d == DirectionNone
	case KindAdjustment:
		return d == DirectionCredit || d == DirectionDebit
	}
	return false
}

// IsEarning reports whether credits of this kind count toward total earnings.
// Refunds give back held funds and are not earnings.
func (k TransactionKind) IsEarning() bool {
	switch k {
	case KindTaskReward, KindReferralCommission, KindVoucherCredit, KindAdjustment:
		return true
	}
	return false
}

// IsValid reports whether k is a known kind
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindTaskReward, KindReferralCommission, KindWithdrawalHold, KindWithdrawalRefund,
		KindWithdrawalSettled, KindVoucherCredit, KindAdjustment:
		return true
	}
	return false
}

// TransactionStatus of a ledger entry
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "PENDING"
	TxStatusCompleted TransactionStatus = "COMPLETED"
	TxStatusReversed  TransactionStatus = "REVERSED"
)

// TaskStatus of a task completion record
type TaskStatus string

const (
	TaskInProgress    TaskStatus = "IN_PROGRESS"
	TaskPendingReview TaskStatus = "PENDING_REVIEW"
	TaskCompleted     TaskStatus = "COMPLETED"
	TaskRejected      TaskStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is allowed
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskRejected
}

// WithdrawalStatus of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "PENDING"
	WithdrawalApproved  WithdrawalStatus = "APPROVED"
	WithdrawalCompleted WithdrawalStatus = "COMPLETED"
	WithdrawalRejected  WithdrawalStatus = "REJECTED"
	WithdrawalCancelled WithdrawalStatus = "CANCELLED"
)

// IsTerminal reports whether the request is finished
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalRejected || s == WithdrawalCancelled
}

// IsOpen reports whether the request still holds funds
func (s WithdrawalStatus) IsOpen() bool {
	return s == WithdrawalPending || s == WithdrawalApproved
}

// ReviewDecision is an admin verdict on a PENDING_REVIEW task completion
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "APPROVE"
	ReviewReject  ReviewDecision = "REJECT"
)

// EngagementSignals are the raw client-side measurements for one task attempt.
// Pointers distinguish "not supplied" from zero values; every field is required.
type EngagementSignals struct {
	TimeSpentMs           *int64   `json:"time_spent_ms"`
	ScrollDepthRatio      *float64 `json:"scroll_depth_ratio"`
	HadPointerMovement    *bool    `json:"had_pointer_movement"`
	ContentEngagementFlag *bool    `json:"content_engagement_flag"`
}

// VerificationResult is the outcome of scoring a set of signals
type VerificationResult struct {
	Passed  bool     `json:"passed"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

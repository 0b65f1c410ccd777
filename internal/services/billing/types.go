package billing

import "time"

// ChargeStatus classifies a single charge attempt against the gateway.
type ChargeStatus string

const (
	// ChargeSucceeded means money moved and the cycle is paid.
	ChargeSucceeded ChargeStatus = "succeeded"
	// ChargeRequiresAction means the gateway wants the cardholder to
	// authenticate. Not a failure: no retry is scheduled, the client is
	// told to complete the flow.
	ChargeRequiresAction ChargeStatus = "requires_action"
	// ChargeDeclined is a definitive refusal (insufficient funds, lost
	// card). Retried on the normal schedule.
	ChargeDeclined ChargeStatus = "declined"
	// ChargeTransientFailure is a network or gateway hiccup whose real
	// outcome is unknown. Scheduled for retry like a decline; the stable
	// idempotency key keeps the retry from double charging.
	ChargeTransientFailure ChargeStatus = "transient_failure"
)

// ChargeAttempt is what the gateway reports back for one attempt.
type ChargeAttempt struct {
	Status          ChargeStatus
	PaymentIntentID string
	ChargeID        string
	// InvoiceID is set when the confirmation arrived via an invoice event.
	InvoiceID string
	// ClientSecret is forwarded to the client on requires_action.
	ClientSecret string
	// DeclineReason is the gateway's decline code, informational only.
	DeclineReason string
}

// EvalState is the account state an evaluation resolved to.
type EvalState string

const (
	StateTrialActive  EvalState = "trial_active"
	StateActive       EvalState = "active"
	StateRetryPending EvalState = "retry_pending"
	StateBlocked      EvalState = "blocked"
	// StateActionRequired means a charge was attempted and the gateway is
	// waiting on the cardholder.
	StateActionRequired EvalState = "action_required"
	// StateConflicted means another trigger won the race for this cycle.
	// The caller re-reads if it needs the final state.
	StateConflicted EvalState = "conflicted"
)

// EvalResult is the outcome of one lifecycle evaluation.
type EvalResult struct {
	State         EvalState
	TrialEndsAt   *time.Time
	NextRetryAt   *time.Time
	RetryCount    int
	BlockedAt     *time.Time
	InvoiceNumber string
	ClientSecret  string
}

package models

import "time"

// BillingRecord is the per-user billing state. Exactly one of
// {trial pending, awaiting first charge, first charge done, blocked}
// describes a record at any time; NextRetryAt is non-nil iff
// PaymentFailedAt is non-nil and AccountBlockedAt is nil.
type BillingRecord struct {
	BaseModel
	UserID string `gorm:"type:uuid;not null;uniqueIndex"`

	// TrialEndsAt is nil once irrelevant (resolved by a successful charge).
	TrialEndsAt *time.Time

	// GatewayCustomerID is the payment gateway's customer reference.
	// Set once, never changed afterwards.
	GatewayCustomerID string `gorm:"index"`

	// FirstChargeDone is monotonic false -> true; only an explicit
	// administrative action may reset it.
	FirstChargeDone bool `gorm:"not null;default:false"`

	// Failure triple: set together on a failed charge, cleared together
	// on success.
	PaymentFailedAt *time.Time
	NextRetryAt     *time.Time `gorm:"index"`
	RetryCount      int        `gorm:"not null;default:0"`

	// AccountBlockedAt denies the account non-billing API access until a
	// successful charge clears it.
	AccountBlockedAt *time.Time

	// Version guards every mutation via compare-and-swap. Two triggers
	// racing on the same record leave exactly one winner.
	Version int `gorm:"not null;default:0"`
}

// TrialPending reports whether the trial window is still running.
func (b *BillingRecord) TrialPending(now time.Time) bool {
	return !b.FirstChargeDone &&
		b.AccountBlockedAt == nil &&
		b.PaymentFailedAt == nil &&
		b.TrialEndsAt != nil && b.TrialEndsAt.After(now)
}

// Blocked reports whether access is currently denied.
func (b *BillingRecord) Blocked() bool {
	return b.AccountBlockedAt != nil
}

// ChargeDue reports whether an evaluation at `now` should attempt a charge.
// A record in the failure track is due only when its retry deadline passed;
// otherwise it is due once the trial window is over.
func (b *BillingRecord) ChargeDue(now time.Time) bool {
	if b.FirstChargeDone || b.AccountBlockedAt != nil {
		return false
	}
	if b.PaymentFailedAt != nil {
		return b.NextRetryAt != nil && !b.NextRetryAt.After(now)
	}
	return b.TrialEndsAt != nil && !b.TrialEndsAt.After(now)
}

// FailureTrackConsistent checks the retry/failure invariant.
func (b *BillingRecord) FailureTrackConsistent() bool {
	wantRetry := b.PaymentFailedAt != nil && b.AccountBlockedAt == nil
	return (b.NextRetryAt != nil) == wantRetry
}

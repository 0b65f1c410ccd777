package models

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestBillingRecord_ChargeDue(t *testing.T) {
	now := date(2024, 3, 10)

	tests := []struct {
		name   string
		record BillingRecord
		due    bool
	}{
		{
			name:   "trial still running",
			record: BillingRecord{TrialEndsAt: lo.ToPtr(date(2024, 3, 20))},
			due:    false,
		},
		{
			name:   "trial over, first charge pending",
			record: BillingRecord{TrialEndsAt: lo.ToPtr(date(2024, 3, 1))},
			due:    true,
		},
		{
			name:   "trial ends exactly now",
			record: BillingRecord{TrialEndsAt: lo.ToPtr(now)},
			due:    true,
		},
		{
			name: "failure track, retry not yet due",
			record: BillingRecord{
				TrialEndsAt:     lo.ToPtr(date(2024, 3, 1)),
				PaymentFailedAt: lo.ToPtr(date(2024, 3, 5)),
				NextRetryAt:     lo.ToPtr(date(2024, 3, 12)),
				RetryCount:      1,
			},
			due: false,
		},
		{
			name: "failure track, retry due",
			record: BillingRecord{
				TrialEndsAt:     lo.ToPtr(date(2024, 3, 1)),
				PaymentFailedAt: lo.ToPtr(date(2024, 3, 1)),
				NextRetryAt:     lo.ToPtr(date(2024, 3, 8)),
				RetryCount:      1,
			},
			due: true,
		},
		{
			name:   "already active",
			record: BillingRecord{FirstChargeDone: true},
			due:    false,
		},
		{
			name: "blocked account is never due",
			record: BillingRecord{
				TrialEndsAt:      lo.ToPtr(date(2024, 2, 1)),
				PaymentFailedAt:  lo.ToPtr(date(2024, 2, 1)),
				AccountBlockedAt: lo.ToPtr(date(2024, 2, 29)),
			},
			due: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.due, tt.record.ChargeDue(now))
		})
	}
}

func TestBillingRecord_FailureTrackConsistent(t *testing.T) {
	good := BillingRecord{
		PaymentFailedAt: lo.ToPtr(date(2024, 2, 15)),
		NextRetryAt:     lo.ToPtr(date(2024, 2, 22)),
		RetryCount:      1,
	}
	assert.True(t, good.FailureTrackConsistent())

	// Blocked records carry no retry deadline.
	blocked := BillingRecord{
		PaymentFailedAt:  lo.ToPtr(date(2024, 2, 15)),
		AccountBlockedAt: lo.ToPtr(date(2024, 2, 29)),
	}
	assert.True(t, blocked.FailureTrackConsistent())

	// A retry deadline without a failure timestamp violates the invariant.
	bad := BillingRecord{NextRetryAt: lo.ToPtr(date(2024, 2, 22))}
	assert.False(t, bad.FailureTrackConsistent())

	clean := BillingRecord{FirstChargeDone: true}
	assert.True(t, clean.FailureTrackConsistent())
}

func TestBillingRecord_TrialPending(t *testing.T) {
	now := date(2024, 3, 10)

	assert.True(t, (&BillingRecord{TrialEndsAt: lo.ToPtr(date(2024, 3, 11))}).TrialPending(now))
	assert.False(t, (&BillingRecord{TrialEndsAt: lo.ToPtr(date(2024, 3, 9))}).TrialPending(now))
	assert.False(t, (&BillingRecord{}).TrialPending(now))
	assert.False(t, (&BillingRecord{
		TrialEndsAt:     lo.ToPtr(date(2024, 3, 11)),
		FirstChargeDone: true,
	}).TrialPending(now))
}

package billing

import (
	"testing"
	"time"

	"hercules_backend/internal/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestIsLastDayOfMonth(t *testing.T) {
	tests := []struct {
		day  time.Time
		want bool
	}{
		{date(2024, 2, 29), true},  // leap February
		{date(2024, 2, 28), false}, // leap February, one day early
		{date(2023, 2, 28), true},  // plain February
		{date(2024, 4, 30), true},
		{date(2024, 4, 29), false},
		{date(2024, 12, 31), true},
		{date(2024, 1, 1), false},
		{at(2024, 3, 31, 23), true}, // time of day is irrelevant
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isLastDayOfMonth(tt.day), "day %s", tt.day.Format(time.DateOnly))
	}
}

func TestSplitTax(t *testing.T) {
	tests := []struct {
		total, exTax, tax int64
	}{
		{29900, 23920, 5980}, // 299 NOK splits evenly
		{100, 80, 20},
		{101, 80, 21}, // 80.8 truncates toward zero, tax takes the rest
		{1, 0, 1},
		{0, 0, 0},
	}
	for _, tt := range tests {
		exTax, tax := splitTax(tt.total)
		assert.Equal(t, tt.exTax, exTax, "total %d", tt.total)
		assert.Equal(t, tt.tax, tax, "total %d", tt.total)
		assert.Equal(t, tt.total, exTax+tax, "parts must sum to the total")
	}
}

func TestChargeIdempotencyKey(t *testing.T) {
	rec := &models.BillingRecord{
		UserID:      "user-1",
		TrialEndsAt: lo.ToPtr(date(2024, 3, 1)),
	}

	key := chargeIdempotencyKey(rec.UserID, cycleIdentifier(rec))
	assert.Len(t, key, 16)
	assert.Equal(t, key, chargeIdempotencyKey(rec.UserID, cycleIdentifier(rec)), "deterministic")

	other := &models.BillingRecord{UserID: "user-2", TrialEndsAt: rec.TrialEndsAt}
	assert.NotEqual(t, key, chargeIdempotencyKey(other.UserID, cycleIdentifier(other)))

	// A resolved trial falls back to the initial-cycle name.
	resolved := &models.BillingRecord{UserID: "user-1"}
	assert.Equal(t, "initial", cycleIdentifier(resolved))
}

package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"hercules_backend/internal/models"
)

// chargeIdempotencyKey derives the gateway idempotency key for one billing
// cycle. Deterministic: every trigger (login, sweep, manual retry) attempting
// the same user/cycle produces the same key, so the gateway sees one attempt.
func chargeIdempotencyKey(userID string, cycle string) string {
	sum := sha256.Sum256([]byte("charge:" + userID + ":" + cycle))
	return hex.EncodeToString(sum[:8])
}

// cycleIdentifier names the billing cycle a record is currently trying to
// pay. The trial end date anchors the first charge and all its retries.
func cycleIdentifier(rec *models.BillingRecord) string {
	if rec.TrialEndsAt != nil {
		return rec.TrialEndsAt.UTC().Format(time.DateOnly)
	}
	return "initial"
}

package billing

import (
	"errors"
	"fmt"
	"time"

	"hercules_backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrVersionConflict means another trigger advanced the record first.
	// Callers treat it as a no-op, never as a failure.
	ErrVersionConflict = errors.New("billing record version conflict")

	ErrRecordNotFound = errors.New("billing record not found")
)

// Repository persists billing records and the sales ledger. Methods take the
// *gorm.DB handle per call so handlers can pass either the pool or a
// per-request transaction.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// --- Billing records ---

func (r *Repository) GetRecord(db *gorm.DB, userID string) (*models.BillingRecord, error) {
	var rec models.BillingRecord
	err := db.Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) GetRecordByCustomerRef(db *gorm.DB, customerRef string) (*models.BillingRecord, error) {
	var rec models.BillingRecord
	err := db.Where("gateway_customer_id = ?", customerRef).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// EnsureRecord returns the user's billing record, creating it with the given
// trial window on first sight. Concurrent creation collapses onto the stored
// row through the unique user_id index.
func (r *Repository) EnsureRecord(db *gorm.DB, userID string, trialEndsAt *time.Time) (*models.BillingRecord, error) {
	rec, err := r.GetRecord(db, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.BillingRecord{
		UserID:      userID,
		TrialEndsAt: trialEndsAt,
	}
	if err := db.Create(fresh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetRecord(db, userID)
		}
		return nil, err
	}
	return fresh, nil
}

// SaveCustomerRef stores the gateway customer reference. Set once: a record
// that already carries a reference is left untouched.
func (r *Repository) SaveCustomerRef(db *gorm.DB, rec *models.BillingRecord, customerRef string) error {
	res := db.Model(&models.BillingRecord{}).
		Where("id = ? AND gateway_customer_id = ''", rec.ID).
		Update("gateway_customer_id", customerRef)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		rec.GatewayCustomerID = customerRef
	}
	return nil
}

// ApplyTransition commits a state transition guarded by the record version,
// recording the sales document (when given) in the same transaction. Returns
// the allocated invoice number, or ErrVersionConflict when another trigger
// advanced the record first.
func (r *Repository) ApplyTransition(db *gorm.DB, rec *models.BillingRecord, expectedVersion int, doc *models.SalesDocument) (string, error) {
	var invoiceNumber string

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.BillingRecord{}).
			Where("id = ? AND version = ?", rec.ID, expectedVersion).
			Updates(map[string]interface{}{
				"trial_ends_at":      rec.TrialEndsAt,
				"first_charge_done":  rec.FirstChargeDone,
				"payment_failed_at":  rec.PaymentFailedAt,
				"next_retry_at":      rec.NextRetryAt,
				"retry_count":        rec.RetryCount,
				"account_blocked_at": rec.AccountBlockedAt,
				"version":            expectedVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if doc != nil {
			stored, _, err := r.recordDocument(tx, doc)
			if err != nil {
				return err
			}
			invoiceNumber = stored.InvoiceNumber
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	rec.Version = expectedVersion + 1
	return invoiceNumber, nil
}

// --- Sales ledger ---

// RecordDocument appends a document to the ledger. When the external
// reference was already recorded, the existing document is returned with
// duplicate=true: replayed triggers are idempotent successes.
func (r *Repository) RecordDocument(db *gorm.DB, doc *models.SalesDocument) (*models.SalesDocument, bool, error) {
	var (
		stored    *models.SalesDocument
		duplicate bool
	)
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		stored, duplicate, err = r.recordDocument(tx, doc)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return stored, duplicate, nil
}

func (r *Repository) recordDocument(tx *gorm.DB, doc *models.SalesDocument) (*models.SalesDocument, bool, error) {
	var existing models.SalesDocument
	err := tx.Where("external_reference = ?", doc.ExternalReference).First(&existing).Error
	if err == nil {
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if doc.DocumentDate.IsZero() {
		doc.DocumentDate = time.Now().UTC()
	}

	number, err := r.nextInvoiceNumber(tx, doc.DocumentDate.Year())
	if err != nil {
		return nil, false, err
	}
	doc.InvoiceNumber = number

	if err := tx.Create(doc).Error; err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

// nextInvoiceNumber allocates from the per-year counter. The counter row is
// locked for the rest of the transaction, so concurrent allocations
// serialize and numbers stay strictly increasing. An aborted transaction
// releases the number unused; the counter never skips or repeats a value
// for a committed document.
func (r *Repository) nextInvoiceNumber(tx *gorm.DB, year int) (string, error) {
	var seq int64
	err := tx.Raw(`
		INSERT INTO invoice_counters (year, last_value) VALUES (?, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = invoice_counters.last_value + 1
		RETURNING last_value
	`, year).Scan(&seq).Error
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(year, seq), nil
}

// FormatInvoiceNumber renders the human-readable "YEAR-NNNN" form.
func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("%d-%04d", year, seq)
}

// MarkAccountingMirrored attaches the external accounting reference. The only
// permitted update on a ledger row.
func (r *Repository) MarkAccountingMirrored(db *gorm.DB, invoiceNumber string, orderID int64) error {
	now := time.Now().UTC()
	return db.Model(&models.SalesDocument{}).
		Where("invoice_number = ?", invoiceNumber).
		Updates(map[string]interface{}{
			"accounting_order_id": orderID,
			"accounting_sent_at":  now,
		}).Error
}

// LatestInvoiceForUser returns the user's most recent invoice document.
func (r *Repository) LatestInvoiceForUser(db *gorm.DB, userID string) (*models.SalesDocument, error) {
	var doc models.SalesDocument
	err := db.Where("customer_id = ? AND document_type = ?", userID, models.DocumentTypeInvoice).
		Order("created_at DESC").
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns ledger rows, newest first.
func (r *Repository) ListDocuments(db *gorm.DB, limit, offset int) ([]models.SalesDocument, int64, error) {
	var (
		docs  []models.SalesDocument
		total int64
	)
	if err := db.Model(&models.SalesDocument{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&docs).Error
	return docs, total, err
}

// --- Sweep support ---

// DueUserIDs finds users whose evaluation at `now` should attempt a charge.
// Mirrors models.BillingRecord.ChargeDue.
func (r *Repository) DueUserIDs(db *gorm.DB, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := db.Model(&models.BillingRecord{}).
		Where("account_blocked_at IS NULL AND first_charge_done = false").
		Where(db.
			Where("payment_failed_at IS NULL AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?", now).
			Or("payment_failed_at IS NOT NULL AND next_retry_at IS NOT NULL AND next_retry_at <= ?", now)).
		Order("user_id").
		Limit(limit).
		Pluck("user_id", &ids).Error
	return ids, err
}

// --- Webhook events ---

// InsertWebhookEvent logs an inbound gateway event. Returns false when the
// event ID was seen before (gateway redelivery).
func (r *Repository) InsertWebhookEvent(db *gorm.DB, ev *models.WebhookEvent) (bool, error) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	if err := db.Create(ev).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

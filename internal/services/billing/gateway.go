package billing

import (
	"context"
	"time"

	"hercules_backend/internal/models"

	"gorm.io/gorm"
)

// PaymentGateway is the slice of the payment provider the lifecycle needs.
type PaymentGateway interface {
	// EnsureCustomer returns the gateway customer reference for the user,
	// creating one on first call.
	EnsureCustomer(ctx context.Context, user *models.User) (string, error)

	// Charge attempts an off-session charge. idempotencyKey makes the call
	// safe to repeat for the same billing cycle: the gateway collapses
	// duplicates onto the first attempt.
	Charge(ctx context.Context, customerRef, idempotencyKey string, amountMinor int64, currency, description string) (*ChargeAttempt, error)
}

// Store is the persistence surface the billing services run on. The *gorm.DB
// handle is passed through so handlers can supply a per-request transaction;
// test fakes ignore it.
type Store interface {
	GetRecord(db *gorm.DB, userID string) (*models.BillingRecord, error)
	GetRecordByCustomerRef(db *gorm.DB, customerRef string) (*models.BillingRecord, error)
	EnsureRecord(db *gorm.DB, userID string, trialEndsAt *time.Time) (*models.BillingRecord, error)
	SaveCustomerRef(db *gorm.DB, rec *models.BillingRecord, customerRef string) error

	// ApplyTransition commits the mutated record iff its stored version
	// still equals expectedVersion, writing doc in the same transaction.
	// Returns repositories' ErrVersionConflict when the CAS loses.
	ApplyTransition(db *gorm.DB, rec *models.BillingRecord, expectedVersion int, doc *models.SalesDocument) (string, error)

	RecordDocument(db *gorm.DB, doc *models.SalesDocument) (*models.SalesDocument, bool, error)
	LatestInvoiceForUser(db *gorm.DB, userID string) (*models.SalesDocument, error)
	MarkAccountingMirrored(db *gorm.DB, invoiceNumber string, orderID int64) error
	DueUserIDs(db *gorm.DB, now time.Time, limit int) ([]string, error)
	InsertWebhookEvent(db *gorm.DB, ev *models.WebhookEvent) (bool, error)
}

// UserStore is the slice of the user repository billing needs.
type UserStore interface {
	GetByID(db *gorm.DB, id string) (*models.User, error)
}

// Notifier sends billing lifecycle mail. Failures are logged, never fatal.
type Notifier interface {
	PaymentFailed(user *models.User, nextRetryAt time.Time) error
	AccountBlocked(user *models.User) error
	Receipt(user *models.User, invoiceNumber string, totalMinor int64, currency string) error
}

// AccountingMirror pushes ledger documents into the external accounting
// system. Best-effort: the ledger is authoritative regardless.
type AccountingMirror interface {
	MirrorDocument(ctx context.Context, doc *models.SalesDocument) (orderID int64, err error)
}

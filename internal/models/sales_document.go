package models

import (
	"time"

	"gorm.io/datatypes"
)

// SalesDocument is one row of the legally-required sales ledger
// (5 year retention). Append-only: rows are never updated after creation
// except for the accounting-mirror fields.
type SalesDocument struct {
	BaseModel
	DocumentType  DocumentType `gorm:"not null"`
	InvoiceNumber string       `gorm:"not null;uniqueIndex"` // "YEAR-NNNN", allocated exactly once
	DocumentDate  time.Time    `gorm:"not null"`

	// Seller identity is required on every invoice.
	SellerName      string `gorm:"not null"`
	SellerOrgNumber string

	CustomerID    *string `gorm:"type:uuid;index"`
	CustomerName  string
	CustomerEmail string `gorm:"index"`

	Description string

	// Amounts in minor units (øre). Tax is the fixed-rate 25% VAT share
	// included in Total.
	AmountExTax int64 `gorm:"not null"`
	Tax         int64 `gorm:"not null"`
	Total       int64 `gorm:"not null"`
	Currency    string `gorm:"default:'NOK'"`

	PaymentStatus PaymentStatus `gorm:"default:'paid'"`

	// Gateway references for traceability.
	GatewayInvoiceID       string
	GatewayChargeID        string
	GatewayPaymentIntentID string

	// ExternalReference correlates the document to the triggering gateway
	// event or charge attempt. Unique: a replayed trigger never creates a
	// second document.
	ExternalReference string `gorm:"not null;uniqueIndex"`

	// Accounting mirror (best-effort, set after a successful push).
	AccountingOrderID *int64
	AccountingSentAt  *time.Time
}

// InvoiceCounter backs the per-year monotonic invoice numbering.
type InvoiceCounter struct {
	Year      int   `gorm:"primaryKey"`
	LastValue int64 `gorm:"not null"`
}

// WebhookEvent logs every gateway event we accepted, keyed by the gateway's
// own event ID so redeliveries are detected before any processing.
type WebhookEvent struct {
	BaseModel
	EventID    string         `gorm:"not null;uniqueIndex"`
	EventType  string         `gorm:"not null;index"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt time.Time      `gorm:"not null"`
}

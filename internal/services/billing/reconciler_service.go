package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"
	billingrepo "hercules_backend/internal/repositories/billing"

	"github.com/stripe/stripe-go/v82"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReconcilerService settles gateway webhook events against the billing
// state. Webhooks race with login evaluations and the sweep on the same
// record; the shared version CAS and the deterministic charge reference keep
// the outcome single: one winner, one ledger document.
type ReconcilerService struct {
	store     Store
	users     UserStore
	lifecycle *LifecycleService
}

func NewReconcilerService(store Store, users UserStore, lifecycle *LifecycleService) *ReconcilerService {
	return &ReconcilerService{store: store, users: users, lifecycle: lifecycle}
}

// HandleEvent processes one verified gateway event. Redelivered events are
// detected by the gateway's event ID and acknowledged without reprocessing.
func (s *ReconcilerService) HandleEvent(ctx context.Context, db *gorm.DB, event *stripe.Event) error {
	fresh, err := s.store.InsertWebhookEvent(db, &models.WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		Payload:   datatypes.JSON(event.Data.Raw),
	})
	if err != nil {
		return err
	}
	if !fresh {
		logger.CtxInfo(ctx, "webhook event redelivered, skipping", "event_id", event.ID)
		return nil
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return s.handlePaymentSucceeded(ctx, db, event)
	case "invoice.paid":
		return s.handleInvoicePaid(ctx, db, event)
	case "charge.refunded":
		return s.handleChargeRefunded(ctx, db, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, db, event)
	default:
		logger.CtxDebug(ctx, "ignoring webhook event type", "event_type", event.Type)
		return nil
	}
}

// handlePaymentSucceeded lands an asynchronous charge confirmation, e.g.
// after the customer completed a requires_action flow. If a synchronous
// trigger already recorded the success, the CAS or the charge reference
// makes this a no-op.
func (s *ReconcilerService) handlePaymentSucceeded(ctx context.Context, db *gorm.DB, event *stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return err
	}
	if intent.Customer == nil {
		logger.CtxWarn(ctx, "payment intent without customer, ignoring", "event_id", event.ID)
		return nil
	}

	attempt := &ChargeAttempt{
		Status:          ChargeSucceeded,
		PaymentIntentID: intent.ID,
	}
	if intent.LatestCharge != nil {
		attempt.ChargeID = intent.LatestCharge.ID
	}
	return s.settleSuccess(ctx, db, intent.Customer.ID, attempt, event.ID)
}

// handleInvoicePaid lands a gateway-side invoice confirmation, clearing a
// pending retry cycle the same way a successful synchronous charge would.
func (s *ReconcilerService) handleInvoicePaid(ctx context.Context, db *gorm.DB, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}
	if invoice.Customer == nil {
		return nil
	}
	return s.settleSuccess(ctx, db, invoice.Customer.ID,
		&ChargeAttempt{Status: ChargeSucceeded, InvoiceID: invoice.ID}, event.ID)
}

// settleSuccess runs the shared success transition for webhook-confirmed
// payments. The deterministic charge key doubles as the document reference,
// so a synchronous trigger and a webhook landing the same cycle produce one
// document between them.
func (s *ReconcilerService) settleSuccess(ctx context.Context, db *gorm.DB, customerRef string, attempt *ChargeAttempt, eventID string) error {
	rec, err := s.store.GetRecordByCustomerRef(db, customerRef)
	if errors.Is(err, billingrepo.ErrRecordNotFound) {
		logger.CtxWarn(ctx, "payment event for unknown customer, ignoring",
			"event_id", eventID, "customer_ref", customerRef)
		return nil
	}
	if err != nil {
		return err
	}
	if rec.FirstChargeDone && !rec.Blocked() {
		return nil
	}

	user, err := s.users.GetByID(db, rec.UserID)
	if err != nil {
		return err
	}

	key := chargeIdempotencyKey(rec.UserID, cycleIdentifier(rec))
	res, err := s.lifecycle.applySuccess(ctx, db, rec, rec.Version, user, attempt, key)
	if err != nil {
		return err
	}
	if res.State == StateConflicted {
		logger.CtxInfo(ctx, "webhook settlement lost version race", "event_id", eventID)
	}
	return nil
}

// handleChargeRefunded appends a credit note mirroring the refunded invoice.
// The invoice row itself is never touched.
func (s *ReconcilerService) handleChargeRefunded(ctx context.Context, db *gorm.DB, event *stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return err
	}
	if charge.Customer == nil {
		return nil
	}

	rec, err := s.store.GetRecordByCustomerRef(db, charge.Customer.ID)
	if errors.Is(err, billingrepo.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	invoice, err := s.store.LatestInvoiceForUser(db, rec.UserID)
	if errors.Is(err, billingrepo.ErrRecordNotFound) {
		logger.CtxWarn(ctx, "refund without a matching invoice", "event_id", event.ID)
		return nil
	}
	if err != nil {
		return err
	}

	creditNote := ledgerCopy(invoice, models.DocumentTypeCreditNote, event.ID)
	creditNote.AmountExTax = -invoice.AmountExTax
	creditNote.Tax = -invoice.Tax
	creditNote.Total = -invoice.Total
	creditNote.PaymentStatus = models.PaymentStatusRefunded
	creditNote.GatewayChargeID = charge.ID
	creditNote.Description = "Refund of invoice " + invoice.InvoiceNumber

	stored, duplicate, err := s.store.RecordDocument(db, creditNote)
	if err != nil {
		return err
	}
	if duplicate {
		return nil
	}
	logger.CtxInfo(ctx, "credit note recorded",
		"invoice_number", stored.InvoiceNumber, "refunded_invoice", invoice.InvoiceNumber)
	s.lifecycle.mirrorBestEffort(ctx, db, stored)
	return nil
}

// handleSubscriptionDeleted closes the customer relationship with a final
// invoice document referencing the last regular invoice.
func (s *ReconcilerService) handleSubscriptionDeleted(ctx context.Context, db *gorm.DB, event *stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}

	rec, err := s.store.GetRecordByCustomerRef(db, sub.Customer.ID)
	if errors.Is(err, billingrepo.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	invoice, err := s.store.LatestInvoiceForUser(db, rec.UserID)
	if errors.Is(err, billingrepo.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	final := ledgerCopy(invoice, models.DocumentTypeFinalInvoice, event.ID)
	final.Total = 0
	final.AmountExTax = 0
	final.Tax = 0
	final.Description = "Subscription ended, closing invoice " + invoice.InvoiceNumber

	stored, duplicate, err := s.store.RecordDocument(db, final)
	if err != nil {
		return err
	}
	if !duplicate {
		logger.CtxInfo(ctx, "final invoice recorded",
			"invoice_number", stored.InvoiceNumber, "closed_invoice", invoice.InvoiceNumber)
	}
	return nil
}

// ledgerCopy starts a new document from an existing one, carrying the party
// and seller fields. The new document gets its own number on insert.
func ledgerCopy(src *models.SalesDocument, docType models.DocumentType, externalRef string) *models.SalesDocument {
	return &models.SalesDocument{
		DocumentType:    docType,
		DocumentDate:    time.Now().UTC(),
		SellerName:      src.SellerName,
		SellerOrgNumber: src.SellerOrgNumber,
		CustomerID:      src.CustomerID,
		CustomerName:    src.CustomerName,
		CustomerEmail:   src.CustomerEmail,
		Currency:        src.Currency,
		PaymentStatus:   src.PaymentStatus,

		GatewayInvoiceID:       src.GatewayInvoiceID,
		GatewayPaymentIntentID: src.GatewayPaymentIntentID,
		ExternalReference:      externalRef,
	}
}

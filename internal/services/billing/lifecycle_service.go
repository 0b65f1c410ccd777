package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hercules_backend/internal/config"
	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"
	billingrepo "hercules_backend/internal/repositories/billing"
	"hercules_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// LifecycleService drives the subscription state machine. Evaluate is the
// single entry point for all three triggers (login, periodic sweep, manual
// retry); concurrent evaluations of the same user are resolved by the store's
// version CAS, so at most one of them charges and writes.
type LifecycleService struct {
	store    Store
	users    UserStore
	gateway  PaymentGateway
	notifier Notifier
	mirror   AccountingMirror
	cfg      *config.Config

	// now is swappable for calendar-sensitive tests.
	now func() time.Time
}

func NewLifecycleService(store Store, users UserStore, gateway PaymentGateway, notifier Notifier, mirror AccountingMirror, cfg *config.Config) *LifecycleService {
	return &LifecycleService{
		store:    store,
		users:    users,
		gateway:  gateway,
		notifier: notifier,
		mirror:   mirror,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartTrial creates the user's billing record with a fresh trial window.
// Safe to call more than once; the stored record wins.
func (s *LifecycleService) StartTrial(db *gorm.DB, userID string) (*models.BillingRecord, error) {
	trialEnds := s.now().AddDate(0, 0, s.cfg.Billing.TrialDays)
	return s.store.EnsureRecord(db, userID, &trialEnds)
}

// Status describes the account's billing state without attempting a charge.
func (s *LifecycleService) Status(db *gorm.DB, userID string) (*EvalResult, error) {
	rec, err := s.store.GetRecord(db, userID)
	if errors.Is(err, billingrepo.ErrRecordNotFound) {
		rec, err = s.StartTrial(db, userID)
	}
	if err != nil {
		return nil, err
	}
	return s.describe(rec), nil
}

// Evaluate reconciles the account's billing state at the current time,
// attempting a charge when one is due. Called on login and by the sweep.
func (s *LifecycleService) Evaluate(ctx context.Context, db *gorm.DB, userID string) (*EvalResult, error) {
	rec, err := s.store.GetRecord(db, userID)
	if errors.Is(err, billingrepo.ErrRecordNotFound) {
		rec, err = s.StartTrial(db, userID)
	}
	if err != nil {
		return nil, err
	}

	if !rec.ChargeDue(s.now()) {
		return s.describe(rec), nil
	}
	return s.attemptCharge(ctx, db, rec)
}

// RetryNow is the user-initiated retry. It bypasses the retry schedule and
// the block: a blocked account's only way back is a successful charge here.
func (s *LifecycleService) RetryNow(ctx context.Context, db *gorm.DB, userID string) (*EvalResult, error) {
	rec, err := s.store.GetRecord(db, userID)
	if err != nil {
		return nil, err
	}
	if rec.FirstChargeDone {
		return s.describe(rec), nil
	}
	if rec.PaymentFailedAt == nil && !rec.Blocked() && rec.TrialPending(s.now()) {
		return nil, apperrors.ErrInvalidOperation("billing", "Nothing to retry while the trial is running")
	}
	return s.attemptCharge(ctx, db, rec)
}

func (s *LifecycleService) describe(rec *models.BillingRecord) *EvalResult {
	switch {
	case rec.Blocked():
		return &EvalResult{State: StateBlocked, BlockedAt: rec.AccountBlockedAt, RetryCount: rec.RetryCount}
	case rec.FirstChargeDone:
		return &EvalResult{State: StateActive}
	case rec.PaymentFailedAt != nil:
		return &EvalResult{State: StateRetryPending, NextRetryAt: rec.NextRetryAt, RetryCount: rec.RetryCount}
	default:
		return &EvalResult{State: StateTrialActive, TrialEndsAt: rec.TrialEndsAt}
	}
}

func (s *LifecycleService) attemptCharge(ctx context.Context, db *gorm.DB, rec *models.BillingRecord) (*EvalResult, error) {
	expectedVersion := rec.Version

	user, err := s.users.GetByID(db, rec.UserID)
	if err != nil {
		return nil, err
	}

	if rec.GatewayCustomerID == "" {
		customerRef, err := s.gateway.EnsureCustomer(ctx, user)
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveCustomerRef(db, rec, customerRef); err != nil {
			return nil, err
		}
	}

	key := chargeIdempotencyKey(rec.UserID, cycleIdentifier(rec))
	attempt, err := s.gateway.Charge(ctx, rec.GatewayCustomerID, key,
		s.cfg.Billing.PriceMinor, s.cfg.Billing.Currency, s.subscriptionDescription())
	if err != nil {
		// Unclassifiable gateway error; the attempt's real outcome is
		// unknown. The idempotency key makes the scheduled retry safe
		// even if the original call went through.
		logger.CtxWithError(ctx, "charge attempt errored", err, "user_id", rec.UserID)
		attempt = &ChargeAttempt{Status: ChargeTransientFailure, DeclineReason: err.Error()}
	}

	switch attempt.Status {
	case ChargeSucceeded:
		return s.applySuccess(ctx, db, rec, expectedVersion, user, attempt, key)
	case ChargeRequiresAction:
		// The gateway is waiting on the cardholder. No state change, no
		// retry schedule; the webhook settles the outcome.
		logger.CtxInfo(ctx, "charge requires customer action",
			"user_id", rec.UserID, "payment_intent_id", attempt.PaymentIntentID)
		res := s.describe(rec)
		res.State = StateActionRequired
		res.ClientSecret = attempt.ClientSecret
		return res, nil
	default:
		// Declines and transient failures both schedule the retry. The
		// same idempotency key is re-derived on the retry, so the gateway
		// collapses the cycle onto one charge at most.
		return s.applyFailure(ctx, db, rec, expectedVersion, user, attempt)
	}
}

func (s *LifecycleService) applySuccess(ctx context.Context, db *gorm.DB, rec *models.BillingRecord, expectedVersion int, user *models.User, attempt *ChargeAttempt, chargeKey string) (*EvalResult, error) {
	now := s.now()

	next := *rec
	next.FirstChargeDone = true
	next.TrialEndsAt = nil
	next.PaymentFailedAt = nil
	next.NextRetryAt = nil
	next.RetryCount = 0
	next.AccountBlockedAt = nil

	doc := s.invoiceDocument(user, attempt, chargeKey, now)

	invoiceNumber, err := s.store.ApplyTransition(db, &next, expectedVersion, doc)
	if errors.Is(err, billingrepo.ErrVersionConflict) {
		logger.CtxInfo(ctx, "billing transition lost version race", "user_id", rec.UserID)
		return &EvalResult{State: StateConflicted}, nil
	}
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "subscription charge succeeded",
		"user_id", rec.UserID, "invoice_number", invoiceNumber,
		"payment_intent_id", attempt.PaymentIntentID)

	if err := s.notifier.Receipt(user, invoiceNumber, doc.Total, doc.Currency); err != nil {
		logger.CtxWithError(ctx, "receipt mail failed", err, "user_id", rec.UserID)
	}
	doc.InvoiceNumber = invoiceNumber
	s.mirrorBestEffort(ctx, db, doc)

	return &EvalResult{State: StateActive, InvoiceNumber: invoiceNumber}, nil
}

func (s *LifecycleService) applyFailure(ctx context.Context, db *gorm.DB, rec *models.BillingRecord, expectedVersion int, user *models.User, attempt *ChargeAttempt) (*EvalResult, error) {
	now := s.now()

	if rec.Blocked() {
		// A failed manual retry on a blocked account changes nothing.
		return s.describe(rec), nil
	}

	next := *rec
	next.RetryCount = rec.RetryCount + 1

	blocked := false
	if rec.PaymentFailedAt != nil && isLastDayOfMonth(now) {
		// A repeated failure on the month's last day hard-blocks the
		// account instead of scheduling a retry into the next month.
		next.AccountBlockedAt = &now
		next.NextRetryAt = nil
		blocked = true
	} else {
		failedAt := now
		retryAt := now.AddDate(0, 0, s.cfg.Billing.RetryDays)
		next.PaymentFailedAt = &failedAt
		next.NextRetryAt = &retryAt
	}

	_, err := s.store.ApplyTransition(db, &next, expectedVersion, nil)
	if errors.Is(err, billingrepo.ErrVersionConflict) {
		logger.CtxInfo(ctx, "billing transition lost version race", "user_id", rec.UserID)
		return &EvalResult{State: StateConflicted}, nil
	}
	if err != nil {
		return nil, err
	}

	if blocked {
		logger.CtxWarn(ctx, "account blocked after repeated payment failure",
			"user_id", rec.UserID, "retry_count", next.RetryCount,
			"reason", attempt.DeclineReason)
		if err := s.notifier.AccountBlocked(user); err != nil {
			logger.CtxWithError(ctx, "block mail failed", err, "user_id", rec.UserID)
		}
		return &EvalResult{State: StateBlocked, BlockedAt: next.AccountBlockedAt, RetryCount: next.RetryCount}, nil
	}

	logger.CtxWarn(ctx, "subscription charge declined, retry scheduled",
		"user_id", rec.UserID, "retry_count", next.RetryCount,
		"next_retry_at", next.NextRetryAt, "reason", attempt.DeclineReason)
	if err := s.notifier.PaymentFailed(user, *next.NextRetryAt); err != nil {
		logger.CtxWithError(ctx, "payment failure mail failed", err, "user_id", rec.UserID)
	}
	return &EvalResult{State: StateRetryPending, NextRetryAt: next.NextRetryAt, RetryCount: next.RetryCount}, nil
}

func (s *LifecycleService) invoiceDocument(user *models.User, attempt *ChargeAttempt, externalRef string, now time.Time) *models.SalesDocument {
	exTax, tax := splitTax(s.cfg.Billing.PriceMinor)
	return &models.SalesDocument{
		DocumentType:    models.DocumentTypeInvoice,
		DocumentDate:    now,
		SellerName:      s.cfg.Billing.SellerName,
		SellerOrgNumber: s.cfg.Billing.SellerOrgNumber,
		CustomerID:      &user.ID,
		CustomerName:    user.Name,
		CustomerEmail:   user.Email,
		Description:     s.subscriptionDescription(),
		AmountExTax:     exTax,
		Tax:             tax,
		Total:           s.cfg.Billing.PriceMinor,
		Currency:        s.cfg.Billing.Currency,
		PaymentStatus:   models.PaymentStatusPaid,

		GatewayInvoiceID:       attempt.InvoiceID,
		GatewayPaymentIntentID: attempt.PaymentIntentID,
		GatewayChargeID:        attempt.ChargeID,
		ExternalReference:      externalRef,
	}
}

func (s *LifecycleService) subscriptionDescription() string {
	return fmt.Sprintf("%s subscription, first month", s.cfg.Billing.SellerName)
}

// mirrorBestEffort pushes the document into the accounting system. The
// ledger row is already committed; a mirror failure only logs.
func (s *LifecycleService) mirrorBestEffort(ctx context.Context, db *gorm.DB, doc *models.SalesDocument) {
	if s.mirror == nil {
		return
	}
	orderID, err := s.mirror.MirrorDocument(ctx, doc)
	if err != nil {
		logger.CtxWithError(ctx, "accounting mirror failed", err,
			"invoice_number", doc.InvoiceNumber)
		return
	}
	if err := s.store.MarkAccountingMirrored(db, doc.InvoiceNumber, orderID); err != nil {
		logger.CtxWithError(ctx, "recording accounting reference failed", err,
			"invoice_number", doc.InvoiceNumber)
	}
}

package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"hercules_backend/internal/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func stripeEvent(id, eventType, payload string) *stripe.Event {
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func newReconcilerFixture(t *testing.T) (*testFixture, *ReconcilerService) {
	t.Helper()
	f := newFixture(at(2024, 3, 1, 9))
	return f, NewReconcilerService(f.store, f.users, f.svc)
}

func (f *testFixture) seedInvoice(t *testing.T, externalRef string) *models.SalesDocument {
	t.Helper()
	doc, duplicate, err := f.store.RecordDocument(nil, &models.SalesDocument{
		DocumentType:      models.DocumentTypeInvoice,
		DocumentDate:      at(2024, 3, 1, 9),
		SellerName:        "Hercules",
		SellerOrgNumber:   "999888777",
		CustomerID:        lo.ToPtr("user-1"),
		CustomerName:      "Ola Nordmann",
		CustomerEmail:     "ola@example.com",
		AmountExTax:       23920,
		Tax:               5980,
		Total:             29900,
		Currency:          "NOK",
		PaymentStatus:     models.PaymentStatusPaid,
		ExternalReference: externalRef,
	})
	require.NoError(t, err)
	require.False(t, duplicate)
	return doc
}

func TestWebhookSettlesPendingCharge(t *testing.T) {
	f, rec := newReconcilerFixture(t)
	f.seedRecord(&models.BillingRecord{
		TrialEndsAt:       lo.ToPtr(date(2024, 3, 1)),
		GatewayCustomerID: "cus_user-1",
	})

	ev := stripeEvent("evt_1", "payment_intent.succeeded",
		`{"id":"pi_1","customer":"cus_user-1","latest_charge":"ch_1"}`)
	require.NoError(t, rec.HandleEvent(context.Background(), nil, ev))

	stored, err := f.store.GetRecord(nil, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.FirstChargeDone)
	assert.Nil(t, stored.TrialEndsAt)

	require.Len(t, f.store.docs, 1)
	doc := f.store.docs[0]
	assert.Equal(t, models.DocumentTypeInvoice, doc.DocumentType)
	assert.Equal(t, "pi_1", doc.GatewayPaymentIntentID)
	assert.Equal(t, 1, f.notifier.receipt)
}

func TestInvoicePaidClearsPendingRetry(t *testing.T) {
	f, rec := newReconcilerFixture(t)
	f.seedRecord(&models.BillingRecord{
		TrialEndsAt:       lo.ToPtr(date(2024, 2, 15)),
		GatewayCustomerID: "cus_user-1",
		PaymentFailedAt:   lo.ToPtr(at(2024, 2, 15, 10)),
		NextRetryAt:       lo.ToPtr(at(2024, 2, 22, 10)),
		RetryCount:        1,
		Version:           1,
	})

	ev := stripeEvent("evt_inv_1", "invoice.paid",
		`{"id":"in_1","customer":"cus_user-1"}`)
	require.NoError(t, rec.HandleEvent(context.Background(), nil, ev))

	stored, err := f.store.GetRecord(nil, "user-1")
	require.NoError(t, err)
	assert.True(t, stored.FirstChargeDone)
	assert.Nil(t, stored.PaymentFailedAt)
	assert.Nil(t, stored.NextRetryAt)
	assert.Equal(t, 0, stored.RetryCount)

	require.Len(t, f.store.docs, 1)
	assert.Equal(t, "in_1", f.store.docs[0].GatewayInvoiceID)
}

func TestWebhookRedeliveryIgnored(t *testing.T) {
	f, rec := newReconcilerFixture(t)
	f.seedRecord(&models.BillingRecord{
		TrialEndsAt:       lo.ToPtr(date(2024, 3, 1)),
		GatewayCustomerID: "cus_user-1",
	})

	payload := `{"id":"pi_1","customer":"cus_user-1"}`
	require.NoError(t, rec.HandleEvent(context.Background(), nil,
		stripeEvent("evt_1", "payment_intent.succeeded", payload)))
	require.NoError(t, rec.HandleEvent(context.Background(), nil,
		stripeEvent("evt_1", "payment_intent.succeeded", payload)))

	assert.Len(t, f.store.docs, 1, "redelivery must not duplicate the invoice")
	assert.Equal(t, 1, f.notifier.receipt)
}

func TestWebhookAfterSynchronousWinnerIsNoOp(t *testing.T) {
	f, rec := newReconcilerFixture(t)
	f.seedRecord(&models.BillingRecord{
		GatewayCustomerID: "cus_user-1",
		FirstChargeDone:   true,
		Version:           1,
	})

	ev := stripeEvent("evt_2", "payment_intent.succeeded",
		`{"id":"pi_1","customer":"cus_user-1"}`)
	require.NoError(t, rec.HandleEvent(context.Background(), nil, ev))

	assert.Empty(t, f.store.docs)
	stored, _ := f.store.GetRecord(nil, "user-1")
	assert.Equal(t, 1, stored.Version)
}

func TestWebhookUnknownCustomerIgnored(t *testing.T) {
	_, rec := newReconcilerFixture(t)
	ev := stripeEvent("evt_3", "payment_intent.succeeded",
		`{"id":"pi_1","customer":"cus_stranger"}`)
	assert.NoError(t, rec.HandleEvent(context.Background(), nil, ev))
}

func TestRefundAppendsCreditNote(t *testing.T) {
	f, rec := newReconcilerFixture(t)
	f.seedRecord(&models.BillingRecord{
		GatewayCustomerID: "cus_user-1",
		FirstChargeDone:   true,
		Version:           1,
	})
	invoice := f.seedInvoice(t, "charge-key-1")

	ev := stripeEvent("evt_refund_1", "charge.refunded",
		`{"id":"ch_1","customer":"cus_user-1"}`)
	require.NoError(t, rec.HandleEvent(context.Background(), nil, ev))

	require.Len(t, f.store.docs, 2)
	note := f.store.docs[1]
	assert.Equal(t, models.DocumentTypeCreditNote, note.DocumentType)
	assert.Equal(t, "2024-0002", note.InvoiceNumber)
	assert.Equal(t, int64(-29900), note.Total)
	assert.Equal(t, int64(-23920), note.AmountExTax)
	assert.Equal(t, int64(-5980), note.Tax)
	assert.Equal(t, models.PaymentStatusRefunded, note.PaymentStatus)
	assert.Equal(t, "evt_refund_1", note.ExternalReference)

	// The refunded invoice row itself is untouched.
	assert.Equal(t, int64(29900), invoice.Total)
	assert.Equal(t, models.PaymentStatusPaid, f.store.docs[0].PaymentStatus)

	// Redelivery of the same event adds nothing.
	require.NoError(t, rec.HandleEvent(context.Background(), nil,
		stripeEvent("evt_refund_1", "charge.refunded", `{"id":"ch_1","customer":"cus_user-1"}`)))
	assert.Len(t, f.store.docs, 2)
}

func TestSubscriptionDeletedAppendsFinalInvoice(t *testing.T) {
	f, rec := newReconcilerFixture(t)
	f.seedRecord(&models.BillingRecord{
		GatewayCustomerID: "cus_user-1",
		FirstChargeDone:   true,
		Version:           1,
	})
	f.seedInvoice(t, "charge-key-1")

	ev := stripeEvent("evt_sub_del_1", "customer.subscription.deleted",
		`{"id":"sub_1","customer":"cus_user-1"}`)
	require.NoError(t, rec.HandleEvent(context.Background(), nil, ev))

	require.Len(t, f.store.docs, 2)
	final := f.store.docs[1]
	assert.Equal(t, models.DocumentTypeFinalInvoice, final.DocumentType)
	assert.Equal(t, int64(0), final.Total)
	assert.Contains(t, final.Description, "2024-0001")
}

func TestWebhookIgnoresUnhandledTypes(t *testing.T) {
	f, rec := newReconcilerFixture(t)
	for i, eventType := range []string{"invoice.created", "customer.updated", "payout.paid"} {
		ev := stripeEvent(fmt.Sprintf("evt_other_%d", i), eventType, `{}`)
		require.NoError(t, rec.HandleEvent(context.Background(), nil, ev))
	}
	assert.Empty(t, f.store.docs)
}

package email

import (
	"fmt"
	"time"

	"hercules_backend/internal/models"
)

// BillingMailer sends the billing lifecycle notifications.
type BillingMailer struct {
	sender Sender
}

func NewBillingMailer(sender Sender) *BillingMailer {
	return &BillingMailer{sender: sender}
}

func (m *BillingMailer) PaymentFailed(user *models.User, nextRetryAt time.Time) error {
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We could not charge your subscription. We will automatically try again on %s.</p>
<p>Please make sure your card has sufficient funds, or update your payment method before then.</p>`,
		displayName(user), nextRetryAt.Format("2 January 2006"),
	)
	return m.sender.Send(user.Email, "Payment failed – we will retry", body)
}

func (m *BillingMailer) AccountBlocked(user *models.User) error {
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your subscription payment is still failing, so your account has been blocked.</p>
<p>Log in and complete the payment to regain access.</p>`,
		displayName(user),
	)
	return m.sender.Send(user.Email, "Account blocked – payment required", body)
}

func (m *BillingMailer) Receipt(user *models.User, invoiceNumber string, totalMinor int64, currency string) error {
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Thank you! Your subscription payment went through.</p>
<p>Invoice %s – %.2f %s.</p>`,
		displayName(user), invoiceNumber, float64(totalMinor)/100.0, currency,
	)
	return m.sender.Send(user.Email, fmt.Sprintf("Receipt %s", invoiceNumber), body)
}

func displayName(user *models.User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Email
}

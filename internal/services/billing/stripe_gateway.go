package billing

import (
	"context"

	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"

	"github.com/stripe/stripe-go/v82"
)

// StripeGateway implements PaymentGateway against Stripe off-session
// payment intents.
type StripeGateway struct {
	client *stripe.Client
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{client: stripe.NewClient(secretKey, nil)}
}

func (g *StripeGateway) EnsureCustomer(ctx context.Context, user *models.User) (string, error) {
	params := &stripe.CustomerCreateParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
		Metadata: map[string]string{
			"hercules_user_id": user.ID,
		},
	}
	customer, err := g.client.V1Customers.Create(ctx, params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (g *StripeGateway) Charge(ctx context.Context, customerRef, idempotencyKey string, amountMinor int64, currency, description string) (*ChargeAttempt, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:      stripe.Int64(amountMinor),
		Currency:    stripe.String(currency),
		Customer:    stripe.String(customerRef),
		Description: stripe.String(description),
		OffSession:  stripe.Bool(true),
		Confirm:     stripe.Bool(true),
	}
	params.IdempotencyKey = stripe.String(idempotencyKey)

	intent, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return classifyStripeError(err), nil
	}

	attempt := &ChargeAttempt{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}
	if intent.LatestCharge != nil {
		attempt.ChargeID = intent.LatestCharge.ID
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		attempt.Status = ChargeSucceeded
	case stripe.PaymentIntentStatusRequiresAction:
		attempt.Status = ChargeRequiresAction
	default:
		logger.Warn("unexpected payment intent status",
			"payment_intent_id", intent.ID,
			"status", intent.Status)
		attempt.Status = ChargeDeclined
	}
	return attempt, nil
}

// classifyStripeError maps a Stripe API error onto a charge outcome. Card
// refusals become declines; anything whose real outcome is unknown (network,
// rate limit, API error) becomes a transient failure so the next sweep can
// settle it through the idempotency key.
func classifyStripeError(err error) *ChargeAttempt {
	stripeErr, ok := err.(*stripe.Error)
	if !ok {
		return &ChargeAttempt{Status: ChargeTransientFailure, DeclineReason: err.Error()}
	}

	attempt := &ChargeAttempt{DeclineReason: string(stripeErr.Code)}
	if stripeErr.PaymentIntent != nil {
		attempt.PaymentIntentID = stripeErr.PaymentIntent.ID
		attempt.ClientSecret = stripeErr.PaymentIntent.ClientSecret
	}

	switch {
	case stripeErr.Code == stripe.ErrorCodeAuthenticationRequired:
		attempt.Status = ChargeRequiresAction
	case stripeErr.Type == stripe.ErrorTypeCard:
		attempt.Status = ChargeDeclined
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
		attempt.Status = ChargeDeclined
	default:
		attempt.Status = ChargeTransientFailure
	}
	return attempt
}

package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/agendfy/agendfy-backend/internal/webhooks/stripe"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

// Service starts and cancels premium subscriptions at the billing provider.
// It never writes entitlement state itself; that always lands through the
// webhook path.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*SessionOutput, error)
	CancelSubscription(ctx context.Context, input CancelInput) error
}

// CreateSessionInput identifies the authenticated caller starting checkout.
type CreateSessionInput struct {
	UserID       uuid.UUID
	Email        string
	BusinessName string
	Role         enums.Role
}

// SessionOutput is returned to the UI for the provider redirect.
type SessionOutput struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CancelInput identifies the subscription to cancel.
type CancelInput struct {
	UserID         uuid.UUID
	SubscriptionID string
}

// ServiceParams wires the checkout service dependencies.
type ServiceParams struct {
	StripeClient StripeCheckoutClient
	PriceID      string
	SuccessURL   string
	CancelURL    string
	Logger       *logger.Logger
	Timeout      time.Duration
}

type service struct {
	stripe     StripeCheckoutClient
	priceID    string
	successURL string
	cancelURL  string
	logg       *logger.Logger
	timeout    time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Timeout <= 0 {
		params.Timeout = 10 * time.Second
	}
	return &service{
		stripe:     params.StripeClient,
		priceID:    params.PriceID,
		successURL: params.SuccessURL,
		cancelURL:  params.CancelURL,
		logg:       params.Logger,
		timeout:    params.Timeout,
	}, nil
}

// CreateSession opens a subscription-mode checkout for the caller. The
// professional id rides as metadata on both the session and the subscription
// so the completion webhook can resolve the tenant.
func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*SessionOutput, error) {
	if input.Role != enums.RoleProfessional {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only professional accounts can subscribe")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if s.priceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription price is not configured")
	}

	metadata := map[string]string{
		stripewebhook.MetadataProfessionalID: input.UserID.String(),
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		Metadata:   metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if input.Email != "" {
		params.CustomerEmail = stripe.String(input.Email)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.stripe.CreateCheckoutSession(callCtx, params)
	if err != nil {
		return nil, classifyStripeError(err, "creating checkout session")
	}

	ctx = s.logg.WithProfessionalID(ctx, input.UserID.String())
	ctx = s.logg.WithField(ctx, "session_id", session.ID)
	s.logg.Info(ctx, "checkout session created")

	return &SessionOutput{SessionID: session.ID, URL: session.URL}, nil
}

// CancelSubscription cancels at the provider. The entitlement flip arrives
// asynchronously via customer.subscription.deleted.
func (s *service) CancelSubscription(ctx context.Context, input CancelInput) error {
	if input.SubscriptionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.stripe.CancelSubscription(callCtx, input.SubscriptionID, &stripe.SubscriptionCancelParams{}); err != nil {
		return classifyStripeError(err, "cancelling subscription")
	}

	ctx = s.logg.WithProfessionalID(ctx, input.UserID.String())
	ctx = s.logg.WithField(ctx, "subscription_id", input.SubscriptionID)
	s.logg.Info(ctx, "subscription cancellation requested")
	return nil
}

// classifyStripeError separates bad credentials from bad requests so
// operators see the difference in logs and status codes.
func classifyStripeError(err error, action string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorType("authentication_error"):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "billing provider rejected the API key")
		case stripe.ErrorTypeInvalidRequest:
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "billing provider rejected the request")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

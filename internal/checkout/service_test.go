package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/agendfy/agendfy-backend/internal/webhooks/stripe"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

type fakeCheckoutClient struct {
	sessionParams *stripe.CheckoutSessionParams
	session       *stripe.CheckoutSession
	sessionErr    error

	cancelledID string
	cancelErr   error
}

func (f *fakeCheckoutClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.sessionParams = params
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeCheckoutClient) CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	f.cancelledID = id
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &stripe.Subscription{ID: id}, nil
}

func newTestService(t *testing.T, client *fakeCheckoutClient, priceID string) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		StripeClient: client,
		PriceID:      priceID,
		SuccessURL:   "https://app.agendfy.test/billing/success",
		CancelURL:    "https://app.agendfy.test/billing/cancel",
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func professionalInput() CreateSessionInput {
	return CreateSessionInput{
		UserID:       uuid.New(),
		Email:        "pro@example.com",
		BusinessName: "Studio Glow",
		Role:         enums.RoleProfessional,
	}
}

func TestCreateSessionBuildsSubscriptionCheckout(t *testing.T) {
	client := &fakeCheckoutClient{
		session: &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"},
	}
	svc := newTestService(t, client, "price_premium")
	input := professionalInput()

	out, err := svc.CreateSession(context.Background(), input)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if out.SessionID != "cs_1" || out.URL == "" {
		t.Fatalf("unexpected output %+v", out)
	}

	params := client.sessionParams
	if params == nil {
		t.Fatalf("no session params captured")
	}
	if *params.Mode != string(stripe.CheckoutSessionModeSubscription) {
		t.Fatalf("mode = %q, want subscription", *params.Mode)
	}
	if len(params.LineItems) != 1 || *params.LineItems[0].Price != "price_premium" {
		t.Fatalf("line items %+v", params.LineItems)
	}
	wantID := input.UserID.String()
	if params.Metadata[stripewebhook.MetadataProfessionalID] != wantID {
		t.Fatalf("session metadata missing professional id")
	}
	if params.SubscriptionData == nil || params.SubscriptionData.Metadata[stripewebhook.MetadataProfessionalID] != wantID {
		t.Fatalf("subscription metadata missing professional id")
	}
}

func TestCreateSessionRejectsNonProfessional(t *testing.T) {
	client := &fakeCheckoutClient{}
	svc := newTestService(t, client, "price_premium")

	input := professionalInput()
	input.Role = enums.RoleClient

	_, err := svc.CreateSession(context.Background(), input)
	if err == nil {
		t.Fatalf("expected forbidden")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.sessionParams != nil {
		t.Fatalf("provider must not be called for non-professionals")
	}
}

func TestCreateSessionMissingPriceIsMisconfigured(t *testing.T) {
	svc := newTestService(t, &fakeCheckoutClient{}, "")

	_, err := svc.CreateSession(context.Background(), professionalInput())
	if err == nil {
		t.Fatalf("expected misconfiguration error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSessionClassifiesProviderErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode pkgerrors.Code
	}{
		{
			name:     "authentication failure",
			err:      &stripe.Error{Type: stripe.ErrorType("authentication_error")},
			wantCode: pkgerrors.CodeInternal,
		},
		{
			name:     "invalid request",
			err:      &stripe.Error{Type: stripe.ErrorTypeInvalidRequest},
			wantCode: pkgerrors.CodeStateConflict,
		},
		{
			name:     "network failure",
			err:      errors.New("connection reset"),
			wantCode: pkgerrors.CodeDependency,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeCheckoutClient{sessionErr: tc.err}
			svc := newTestService(t, client, "price_premium")

			_, err := svc.CreateSession(context.Background(), professionalInput())
			if err == nil {
				t.Fatalf("expected error")
			}
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != tc.wantCode {
				t.Fatalf("code = %v, want %v (err %v)", pkgerrors.As(err), tc.wantCode, err)
			}
		})
	}
}

func TestCancelSubscription(t *testing.T) {
	client := &fakeCheckoutClient{}
	svc := newTestService(t, client, "price_premium")

	err := svc.CancelSubscription(context.Background(), CancelInput{
		UserID:         uuid.New(),
		SubscriptionID: "sub_1",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if client.cancelledID != "sub_1" {
		t.Fatalf("cancelled %q, want sub_1", client.cancelledID)
	}
}

func TestCancelSubscriptionRequiresID(t *testing.T) {
	svc := newTestService(t, &fakeCheckoutClient{}, "price_premium")

	err := svc.CancelSubscription(context.Background(), CancelInput{UserID: uuid.New()})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

package admin

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/agendfy/agendfy-backend/internal/webhooks/stripe"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

// Service lets operators force-reconcile an account's billing state when a
// webhook was lost or a tenant reports a mismatch. It reuses the exact
// webhook upsert path; there is no second write path to drift.
type Service interface {
	SyncByEmail(ctx context.Context, email string) (*SyncResult, error)
	Recover(ctx context.Context, subscriptionID string) (*SyncResult, error)
}

// SyncResult reports what an operator reconciliation touched.
type SyncResult struct {
	CustomerID          string `json:"customer_id,omitempty"`
	SubscriptionsSynced int    `json:"subscriptions_synced"`
}

type subscriptionSyncer interface {
	SyncSubscription(ctx context.Context, sub *stripe.Subscription) error
}

// ServiceParams wires the admin service dependencies.
type ServiceParams struct {
	StripeClient stripewebhook.StripeBillingClient
	Syncer       subscriptionSyncer
	Logger       *logger.Logger
	FetchTimeout time.Duration
}

type service struct {
	stripe       stripewebhook.StripeBillingClient
	syncer       subscriptionSyncer
	logg         *logger.Logger
	fetchTimeout time.Duration
}

func NewService(params ServiceParams) (Service, error) {
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Syncer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription syncer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.FetchTimeout <= 0 {
		params.FetchTimeout = 10 * time.Second
	}
	return &service{
		stripe:       params.StripeClient,
		syncer:       params.Syncer,
		logg:         params.Logger,
		fetchTimeout: params.FetchTimeout,
	}, nil
}

// SyncByEmail finds the provider customer for the email and replays every
// subscription through the upsert path.
func (s *service) SyncByEmail(ctx context.Context, email string) (*SyncResult, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	customer, err := s.stripe.FindCustomerByEmail(fetchCtx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up provider customer")
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no provider customer for email")
	}

	subs, err := s.stripe.ListSubscriptionsByCustomer(fetchCtx, customer.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing provider subscriptions")
	}

	synced := 0
	for _, sub := range subs {
		if err := s.syncer.SyncSubscription(ctx, sub); err != nil {
			return nil, err
		}
		synced++
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"customer_id":          customer.ID,
		"subscriptions_synced": synced,
	})
	s.logg.Info(ctx, "billing state reconciled by email")

	return &SyncResult{CustomerID: customer.ID, SubscriptionsSynced: synced}, nil
}

// Recover replays a single known subscription id through the upsert path.
func (s *service) Recover(ctx context.Context, subscriptionID string) (*SyncResult, error) {
	if subscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	sub, err := s.stripe.GetSubscription(fetchCtx, subscriptionID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching provider subscription")
	}

	if err := s.syncer.SyncSubscription(ctx, sub); err != nil {
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "subscription_id", subscriptionID)
	s.logg.Info(ctx, "billing state recovered from subscription")

	return &SyncResult{SubscriptionsSynced: 1}, nil
}

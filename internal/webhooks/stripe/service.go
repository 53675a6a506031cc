package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
	pkgstripe "github.com/agendfy/agendfy-backend/pkg/stripe"
)

// MetadataProfessionalID is the metadata key carrying the tenant id on
// checkout sessions and subscriptions.
const MetadataProfessionalID = "professional_id"

type accountStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProfessionalAccount, error)
	FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.ProfessionalAccount, error)
	MergeFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

// ServiceParams wires the webhook service dependencies.
type ServiceParams struct {
	Accounts     accountStore
	StripeClient StripeBillingClient
	Logger       *logger.Logger
	FetchTimeout time.Duration
}

// Service maps verified billing events onto account entitlement state.
type Service struct {
	accounts     accountStore
	stripe       StripeBillingClient
	logg         *logger.Logger
	fetchTimeout time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account store required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.FetchTimeout <= 0 {
		params.FetchTimeout = 10 * time.Second
	}
	return &Service{
		accounts:     params.Accounts,
		stripe:       params.StripeClient,
		logg:         params.Logger,
		fetchTimeout: params.FetchTimeout,
		now:          time.Now,
	}, nil
}

// HandleEvent dispatches one verified event. Unknown event types are acked
// as no-ops so the provider stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	ctx = s.logg.WithEventID(ctx, event.ID)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.handleCheckoutCompleted(ctx, &session)

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &sub, uuid.Nil)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.handleSubscriptionDeleted(ctx, &sub)

	case stripe.EventTypeInvoicePaymentSucceeded:
		subscriptionID := event.GetObjectValue("subscription")
		if subscriptionID == "" {
			// one-off invoices carry no subscription, nothing to sync
			return nil
		}
		sub, err := s.fetchSubscription(ctx, subscriptionID)
		if err != nil {
			return err
		}
		return s.syncSubscription(ctx, sub, uuid.Nil)

	default:
		return nil
	}
}

// SyncSubscription applies the standard upsert to a subscription fetched
// out of band, for operator reconciliation. Same path, same guards.
func (s *Service) SyncSubscription(ctx context.Context, sub *stripe.Subscription) error {
	if sub != nil && sub.Status == stripe.SubscriptionStatusCanceled {
		return s.handleSubscriptionDeleted(ctx, sub)
	}
	return s.syncSubscription(ctx, sub, uuid.Nil)
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	professionalID, err := professionalIDFromMetadata(session.Metadata)
	if err != nil {
		s.logg.Error(ctx, "checkout session missing professional_id metadata", err)
		return err
	}

	if session.Subscription == nil || session.Subscription.ID == "" {
		// non-subscription checkout, nothing to sync
		return nil
	}

	sub, err := s.fetchSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return err
	}
	return s.syncSubscription(ctx, sub, professionalID)
}

// syncSubscription is the single upsert path shared by webhook and admin
// reconciliation. professionalID may be uuid.Nil when the caller has no
// session metadata; the subscription's own metadata or the stored mirror
// resolves the tenant then.
func (s *Service) syncSubscription(ctx context.Context, sub *stripe.Subscription, professionalID uuid.UUID) error {
	if sub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}

	account, err := s.resolveAccount(ctx, sub, professionalID)
	if err != nil {
		return err
	}

	ctx = s.logg.WithProfessionalID(ctx, account.ID.String())

	isActive := sub.Status == stripe.SubscriptionStatusActive
	periodEnd := pkgstripe.SafeUnix(periodEndFromSubscription(sub))

	// An active subscription without a period end would grant premium with
	// no renewal horizon. Abort so the provider redelivers once the payload
	// is sane.
	if isActive && periodEnd == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "active subscription with no current period end").
			WithDetails(map[string]any{"subscription_id": sub.ID})
	}

	status := enums.SubscriptionStatusFree
	if isActive {
		status = enums.SubscriptionStatusPremium
	}

	fields := map[string]any{
		"subscription_status":     status,
		"subscription_active":     isActive,
		"stripe_subscription_id":  sub.ID,
		"plan":                    planFromSubscription(sub),
		"subscription_started_at": pkgstripe.SafeUnix(sub.StartDate),
		"current_period_end":      periodEnd,
		"cancel_at_period_end":    sub.CancelAtPeriodEnd,
		"cancel_at":               pkgstripe.SafeUnix(sub.CancelAt),
		"trial_active":            false,
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		fields["stripe_customer_id"] = sub.Customer.ID
	}
	if account.TrialActive {
		fields["trial_ended_at"] = s.now().UTC()
	}

	if err := s.accounts.MergeFields(ctx, account.ID, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting subscription state")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"subscription_id": sub.ID,
		"status":          string(status),
	})
	s.logg.Info(ctx, "subscription state synced")
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil || sub.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}

	account, err := s.resolveAccount(ctx, sub, uuid.Nil)
	if err != nil {
		return err
	}

	ctx = s.logg.WithProfessionalID(ctx, account.ID.String())

	fields := map[string]any{
		"subscription_status":  enums.SubscriptionStatusFree,
		"subscription_active":  false,
		"cancel_at_period_end": false,
		"cancel_at":            nil,
		"trial_active":         false,
	}
	if account.TrialActive {
		fields["trial_ended_at"] = s.now().UTC()
	}

	if err := s.accounts.MergeFields(ctx, account.ID, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting subscription deletion")
	}

	s.logg.Info(ctx, "subscription deleted, account downgraded to free")
	return nil
}

func (s *Service) resolveAccount(ctx context.Context, sub *stripe.Subscription, professionalID uuid.UUID) (*models.ProfessionalAccount, error) {
	if professionalID == uuid.Nil {
		var err error
		professionalID, err = professionalIDFromMetadata(sub.Metadata)
		if err != nil {
			// older subscriptions may predate the metadata, the stored
			// mirror still knows the tenant
			stored, lookupErr := s.accounts.FindByStripeSubscriptionID(ctx, sub.ID)
			if lookupErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "looking up account by subscription")
			}
			if stored == nil {
				s.logg.Error(ctx, "subscription event with no resolvable account", err)
				return nil, err
			}
			return stored, nil
		}
	}

	account, err := s.accounts.FindByID(ctx, professionalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found for subscription event").
			WithDetails(map[string]any{"professional_id": professionalID.String()})
	}
	return account, nil
}

func (s *Service) fetchSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	sub, err := s.stripe.GetSubscription(fetchCtx, id, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching stripe subscription")
	}
	return sub, nil
}

func professionalIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw, ok := metadata[MetadataProfessionalID]
	if !ok || raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "professional_id metadata missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "professional_id metadata is not a uuid")
	}
	return id, nil
}

func planFromSubscription(sub *stripe.Subscription) *string {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	item := sub.Items.Data[0]
	if item.Price == nil {
		return nil
	}
	plan := item.Price.ID
	if item.Price.LookupKey != "" {
		plan = item.Price.LookupKey
	}
	return &plan
}

func periodEndFromSubscription(sub *stripe.Subscription) int64 {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return 0
	}
	return sub.Items.Data[0].CurrentPeriodEnd
}

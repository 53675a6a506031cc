package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

type fakeAccountStore struct {
	byID     map[uuid.UUID]*models.ProfessionalAccount
	bySubID  map[string]*models.ProfessionalAccount
	merges   []map[string]any
	mergeErr error
}

func newFakeAccountStore(accounts ...*models.ProfessionalAccount) *fakeAccountStore {
	f := &fakeAccountStore{
		byID:    map[uuid.UUID]*models.ProfessionalAccount{},
		bySubID: map[string]*models.ProfessionalAccount{},
	}
	for _, a := range accounts {
		f.byID[a.ID] = a
		if a.StripeSubscriptionID != nil {
			f.bySubID[*a.StripeSubscriptionID] = a
		}
	}
	return f
}

func (f *fakeAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*models.ProfessionalAccount, error) {
	return f.byID[id], nil
}

func (f *fakeAccountStore) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.ProfessionalAccount, error) {
	return f.bySubID[subscriptionID], nil
}

func (f *fakeAccountStore) MergeFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merges = append(f.merges, fields)
	if account := f.byID[id]; account != nil {
		applyMergeToAccount(account, fields)
	}
	return nil
}

// applyMergeToAccount mirrors the column merge onto the in-memory account so
// multi-event scenarios see accumulated state.
func applyMergeToAccount(account *models.ProfessionalAccount, fields map[string]any) {
	if v, ok := fields["subscription_status"]; ok {
		account.SubscriptionStatus = v.(enums.SubscriptionStatus)
	}
	if v, ok := fields["subscription_active"]; ok {
		account.SubscriptionActive = v.(bool)
	}
	if v, ok := fields["trial_active"]; ok {
		account.TrialActive = v.(bool)
	}
	if v, ok := fields["cancel_at_period_end"]; ok {
		account.CancelAtPeriodEnd = v.(bool)
	}
	if v, ok := fields["stripe_subscription_id"]; ok {
		id := v.(string)
		account.StripeSubscriptionID = &id
	}
	if v, ok := fields["trial_ended_at"]; ok {
		t := v.(time.Time)
		account.TrialEndedAt = &t
	}
	if v, ok := fields["current_period_end"]; ok {
		if t, isTime := v.(*time.Time); isTime {
			account.CurrentPeriodEnd = t
		}
	}
	if v, ok := fields["cancel_at"]; ok {
		if v == nil {
			account.CancelAt = nil
		}
	}
}

type fakeStripeClient struct {
	subs map[string]*stripe.Subscription
	err  error
}

func (f *fakeStripeClient) GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subs[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func (f *fakeStripeClient) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	return nil, nil
}

func (f *fakeStripeClient) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	return nil, nil
}

func trialAccount() *models.ProfessionalAccount {
	started := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	ends := started.AddDate(0, 0, 3)
	return &models.ProfessionalAccount{
		ID:                 uuid.New(),
		Email:              "pro@example.com",
		Role:               enums.RoleProfessional,
		SubscriptionStatus: enums.SubscriptionStatusPremiumTrial,
		TrialActive:        true,
		TrialStartedAt:     &started,
		TrialEndsAt:        &ends,
	}
}

func activeSubscription(id string, professionalID uuid.UUID, periodEnd int64) *stripe.Subscription {
	return &stripe.Subscription{
		ID:        id,
		Status:    stripe.SubscriptionStatusActive,
		StartDate: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC).Unix(),
		Customer:  &stripe.Customer{ID: "cus_123"},
		Metadata:  map[string]string{MetadataProfessionalID: professionalID.String()},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					CurrentPeriodEnd: periodEnd,
					Price:            &stripe.Price{ID: "price_premium", LookupKey: "premium_monthly"},
				},
			},
		},
	}
}

func subscriptionEvent(t *testing.T, eventType stripe.EventType, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal event payload: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func newTestService(t *testing.T, store *fakeAccountStore, client StripeBillingClient) *Service {
	t.Helper()
	if client == nil {
		client = &fakeStripeClient{}
	}
	svc, err := NewService(ServiceParams{
		Accounts:     store,
		StripeClient: client,
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		FetchTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSubscriptionUpdatedGrantsPremiumAndEndsTrial(t *testing.T) {
	account := trialAccount()
	store := newFakeAccountStore(account)
	svc := newTestService(t, store, nil)

	periodEnd := time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC).Unix()
	sub := activeSubscription("sub_1", account.ID, periodEnd)
	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionUpdated, sub)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(store.merges) != 1 {
		t.Fatalf("expected one merge write, got %d", len(store.merges))
	}
	fields := store.merges[0]
	if fields["subscription_status"] != enums.SubscriptionStatusPremium {
		t.Fatalf("status = %v, want premium", fields["subscription_status"])
	}
	if fields["subscription_active"] != true {
		t.Fatalf("subscription_active not set")
	}
	if fields["trial_active"] != false {
		t.Fatalf("trial must end on subscription sync")
	}
	if _, ok := fields["trial_ended_at"]; !ok {
		t.Fatalf("trial_ended_at must be stamped while the trial was live")
	}
	if fields["stripe_customer_id"] != "cus_123" {
		t.Fatalf("customer id not mirrored")
	}
	plan, ok := fields["plan"].(*string)
	if !ok || plan == nil || *plan != "premium_monthly" {
		t.Fatalf("plan = %v, want lookup key premium_monthly", fields["plan"])
	}
	end, ok := fields["current_period_end"].(*time.Time)
	if !ok || end == nil || end.Unix() != periodEnd {
		t.Fatalf("current_period_end = %v, want %d", fields["current_period_end"], periodEnd)
	}
}

func TestSubscriptionSyncIsReplayIdempotent(t *testing.T) {
	account := trialAccount()
	store := newFakeAccountStore(account)
	svc := newTestService(t, store, nil)

	periodEnd := time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC).Unix()
	sub := activeSubscription("sub_1", account.ID, periodEnd)

	for i := 0; i < 3; i++ {
		event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionUpdated, sub)
		if err := svc.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
	}

	if account.SubscriptionStatus != enums.SubscriptionStatusPremium || !account.SubscriptionActive {
		t.Fatalf("replays must converge on the same premium state: %+v", account)
	}
	first := store.merges[0]
	last := store.merges[len(store.merges)-1]
	if first["subscription_status"] != last["subscription_status"] ||
		first["subscription_active"] != last["subscription_active"] {
		t.Fatalf("replayed merges diverged: %v vs %v", first, last)
	}
}

func TestFatalGuardActiveWithoutPeriodEnd(t *testing.T) {
	account := trialAccount()
	store := newFakeAccountStore(account)
	svc := newTestService(t, store, nil)

	sub := activeSubscription("sub_1", account.ID, 0)
	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionUpdated, sub)

	err := svc.HandleEvent(context.Background(), event)
	if err == nil {
		t.Fatalf("expected the inconsistent payload to abort")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.merges) != 0 {
		t.Fatalf("fatal guard must not write anything, got %v", store.merges)
	}
	if account.SubscriptionStatus != enums.SubscriptionStatusPremiumTrial {
		t.Fatalf("account state must be untouched, got %q", account.SubscriptionStatus)
	}
}

func TestNonActiveStatusDowngradesWithoutPeriodEnd(t *testing.T) {
	account := trialAccount()
	account.TrialActive = false
	store := newFakeAccountStore(account)
	svc := newTestService(t, store, nil)

	sub := activeSubscription("sub_1", account.ID, 0)
	sub.Status = stripe.SubscriptionStatusCanceled
	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionUpdated, sub)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	fields := store.merges[0]
	if fields["subscription_status"] != enums.SubscriptionStatusFree {
		t.Fatalf("non-active subscription must resolve to free, got %v", fields["subscription_status"])
	}
	if _, ok := fields["trial_ended_at"]; ok {
		t.Fatalf("trial_ended_at must not be stamped when no trial was live")
	}
}

func TestCheckoutCompletedRequiresMetadata(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestService(t, store, nil)

	session := &stripe.CheckoutSession{
		ID:           "cs_1",
		Subscription: &stripe.Subscription{ID: "sub_1"},
	}
	event := subscriptionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	err := svc.HandleEvent(context.Background(), event)
	if err == nil {
		t.Fatalf("expected missing metadata to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckoutCompletedWithoutSubscriptionIsNoop(t *testing.T) {
	account := trialAccount()
	store := newFakeAccountStore(account)
	svc := newTestService(t, store, nil)

	session := &stripe.CheckoutSession{
		ID:       "cs_1",
		Metadata: map[string]string{MetadataProfessionalID: account.ID.String()},
	}
	event := subscriptionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(store.merges) != 0 {
		t.Fatalf("one-off checkout must not touch subscription state")
	}
}

func TestCheckoutCompletedFetchesAndSyncs(t *testing.T) {
	account := trialAccount()
	store := newFakeAccountStore(account)
	periodEnd := time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC).Unix()
	client := &fakeStripeClient{subs: map[string]*stripe.Subscription{
		"sub_1": activeSubscription("sub_1", account.ID, periodEnd),
	}}
	svc := newTestService(t, store, client)

	session := &stripe.CheckoutSession{
		ID:           "cs_1",
		Metadata:     map[string]string{MetadataProfessionalID: account.ID.String()},
		Subscription: &stripe.Subscription{ID: "sub_1"},
	}
	event := subscriptionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if account.SubscriptionStatus != enums.SubscriptionStatusPremium {
		t.Fatalf("checkout completion must grant premium, got %q", account.SubscriptionStatus)
	}
}

func TestInvoicePaymentWithoutSubscriptionIsNoop(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestService(t, store, nil)

	event := &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypeInvoicePaymentSucceeded,
		Data: &stripe.EventData{
			Raw:    json.RawMessage(`{"id":"in_1"}`),
			Object: map[string]any{"id": "in_1"},
		},
	}

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(store.merges) != 0 {
		t.Fatalf("invoice without a subscription must be acked as a no-op")
	}
}

func TestSubscriptionFetchFailureIsDependencyError(t *testing.T) {
	account := trialAccount()
	store := newFakeAccountStore(account)
	client := &fakeStripeClient{err: errors.New("upstream timeout")}
	svc := newTestService(t, store, client)

	event := &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypeInvoicePaymentSucceeded,
		Data: &stripe.EventData{
			Raw:    json.RawMessage(`{"id":"in_1","subscription":"sub_1"}`),
			Object: map[string]any{"id": "in_1", "subscription": "sub_1"},
		},
	}

	err := svc.HandleEvent(context.Background(), event)
	if err == nil {
		t.Fatalf("expected fetch failure to propagate")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnknownEventTypeIsAcked(t *testing.T) {
	store := newFakeAccountStore()
	svc := newTestService(t, store, nil)

	event := &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventType("customer.tax_id.created"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown event must be a silent ack: %v", err)
	}
}

func TestPremiumThenDeletedEndsFreeWithFlagsCleared(t *testing.T) {
	account := trialAccount()
	store := newFakeAccountStore(account)
	periodEnd := time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC).Unix()
	client := &fakeStripeClient{subs: map[string]*stripe.Subscription{
		"sub_1": activeSubscription("sub_1", account.ID, periodEnd),
	}}
	svc := newTestService(t, store, client)
	ctx := context.Background()

	// checkout completes, premium lands, trial ends
	session := &stripe.CheckoutSession{
		ID:           "cs_1",
		Metadata:     map[string]string{MetadataProfessionalID: account.ID.String()},
		Subscription: &stripe.Subscription{ID: "sub_1"},
	}
	if err := svc.HandleEvent(ctx, subscriptionEvent(t, stripe.EventTypeCheckoutSessionCompleted, session)); err != nil {
		t.Fatalf("checkout completed: %v", err)
	}
	if account.SubscriptionStatus != enums.SubscriptionStatusPremium || account.TrialActive {
		t.Fatalf("after checkout: %+v", account)
	}
	if account.TrialEndedAt == nil {
		t.Fatalf("trial end must be recorded")
	}

	// provider cancels, account falls back to free, flags cleared
	deleted := activeSubscription("sub_1", account.ID, periodEnd)
	deleted.Status = stripe.SubscriptionStatusCanceled
	deleted.CancelAtPeriodEnd = true
	if err := svc.HandleEvent(ctx, subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionDeleted, deleted)); err != nil {
		t.Fatalf("subscription deleted: %v", err)
	}

	if account.SubscriptionStatus != enums.SubscriptionStatusFree {
		t.Fatalf("deleted subscription must end free, got %q", account.SubscriptionStatus)
	}
	if account.SubscriptionActive {
		t.Fatalf("subscription must be inactive after deletion")
	}
	if account.CancelAtPeriodEnd || account.CancelAt != nil {
		t.Fatalf("cancellation flags must be cleared: %+v", account)
	}
}

func TestDeletedResolvesAccountByStoredSubscriptionID(t *testing.T) {
	account := trialAccount()
	subID := "sub_legacy"
	account.StripeSubscriptionID = &subID
	store := newFakeAccountStore(account)
	svc := newTestService(t, store, nil)

	// no metadata on the provider object
	deleted := &stripe.Subscription{
		ID:     subID,
		Status: stripe.SubscriptionStatusCanceled,
	}
	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionDeleted, deleted)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if account.SubscriptionStatus != enums.SubscriptionStatusFree {
		t.Fatalf("legacy subscription must still downgrade, got %q", account.SubscriptionStatus)
	}
}

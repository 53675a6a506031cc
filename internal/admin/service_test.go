package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

type fakeBillingClient struct {
	customer *stripe.Customer
	subs     []*stripe.Subscription
	subByID  map[string]*stripe.Subscription
	err      error
}

func (f *fakeBillingClient) GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subByID[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func (f *fakeBillingClient) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.subs, nil
}

func (f *fakeBillingClient) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.customer, nil
}

type fakeSyncer struct {
	synced []string
	err    error
}

func (f *fakeSyncer) SyncSubscription(ctx context.Context, sub *stripe.Subscription) error {
	if f.err != nil {
		return f.err
	}
	f.synced = append(f.synced, sub.ID)
	return nil
}

func newTestService(t *testing.T, client *fakeBillingClient, syncer *fakeSyncer) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		StripeClient: client,
		Syncer:       syncer,
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSyncByEmailReplaysAllSubscriptions(t *testing.T) {
	client := &fakeBillingClient{
		customer: &stripe.Customer{ID: "cus_1"},
		subs: []*stripe.Subscription{
			{ID: "sub_1"},
			{ID: "sub_2"},
		},
	}
	syncer := &fakeSyncer{}
	svc := newTestService(t, client, syncer)

	result, err := svc.SyncByEmail(context.Background(), "pro@example.com")
	if err != nil {
		t.Fatalf("sync by email: %v", err)
	}
	if result.CustomerID != "cus_1" || result.SubscriptionsSynced != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(syncer.synced) != 2 || syncer.synced[0] != "sub_1" || syncer.synced[1] != "sub_2" {
		t.Fatalf("synced %v", syncer.synced)
	}
}

func TestSyncByEmailUnknownCustomer(t *testing.T) {
	svc := newTestService(t, &fakeBillingClient{}, &fakeSyncer{})

	_, err := svc.SyncByEmail(context.Background(), "ghost@example.com")
	if err == nil {
		t.Fatalf("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSyncByEmailRequiresEmail(t *testing.T) {
	svc := newTestService(t, &fakeBillingClient{}, &fakeSyncer{})

	_, err := svc.SyncByEmail(context.Background(), "")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecoverFetchesAndSyncs(t *testing.T) {
	client := &fakeBillingClient{
		subByID: map[string]*stripe.Subscription{"sub_9": {ID: "sub_9"}},
	}
	syncer := &fakeSyncer{}
	svc := newTestService(t, client, syncer)

	result, err := svc.Recover(context.Background(), "sub_9")
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if result.SubscriptionsSynced != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(syncer.synced) != 1 || syncer.synced[0] != "sub_9" {
		t.Fatalf("synced %v", syncer.synced)
	}
}

func TestRecoverProviderFailure(t *testing.T) {
	client := &fakeBillingClient{err: errors.New("upstream down")}
	svc := newTestService(t, client, &fakeSyncer{})

	_, err := svc.Recover(context.Background(), "sub_9")
	if err == nil {
		t.Fatalf("expected dependency error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error: %v", err)
	}
}

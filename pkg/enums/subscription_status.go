package enums

import "fmt"

// SubscriptionStatus is the entitlement tier stored on a professional account.
// Exactly one tier holds at any time; webhook sync and the trial reconciler
// are the only writers.
type SubscriptionStatus string

const (
	SubscriptionStatusFree         SubscriptionStatus = "free"
	SubscriptionStatusPremiumTrial SubscriptionStatus = "premium_trial"
	SubscriptionStatusPremium      SubscriptionStatus = "premium"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusFree,
	SubscriptionStatusPremiumTrial,
	SubscriptionStatusPremium,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}

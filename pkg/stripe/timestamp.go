package stripe

import "time"

// SafeUnix converts a provider-side unix timestamp into a UTC time pointer.
// Stripe payloads occasionally carry zeroed or negative epoch values for
// fields that were never set; those degrade to nil instead of producing
// 1970-adjacent garbage dates.
func SafeUnix(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// SafeUnixFloat handles raw JSON numbers (decoded as float64) the same way.
func SafeUnixFloat(raw any) *time.Time {
	switch v := raw.(type) {
	case int64:
		return SafeUnix(v)
	case int:
		return SafeUnix(int64(v))
	case float64:
		return SafeUnix(int64(v))
	default:
		return nil
	}
}

package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlanTransition is the audit trail of the most recent downgrade
// reconciliation, persisted as JSONB on the professional account.
type PlanTransition struct {
	LastCheck         time.Time `json:"last_check"`
	ServicesDisabled  int       `json:"services_disabled"`
	TotalClients      int       `json:"total_clients"`
	TotalAppointments int       `json:"total_appointments"`
	Notified          bool      `json:"notified"`
}

// Value marshals the record into JSON for Postgres.
func (p PlanTransition) Value() (driver.Value, error) {
	buf, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the record.
func (p *PlanTransition) Scan(value interface{}) error {
	if value == nil {
		*p = PlanTransition{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("plan transition: unsupported scan type %T", value)
	}

	var result PlanTransition
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*p = result
	return nil
}

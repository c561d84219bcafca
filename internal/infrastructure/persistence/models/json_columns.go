package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/meterbill/backend/internal/domain/billing"
)

// PriceTiers stores tariff bands as a JSON array
type PriceTiers []billing.PriceTier

// Value implements driver.Valuer
func (t PriceTiers) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]billing.PriceTier(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (t *PriceTiers) Scan(value any) error {
	var tiers []billing.PriceTier
	if err := scanJSON(value, &tiers); err != nil {
		return fmt.Errorf("scan price tiers: %w", err)
	}
	*t = tiers
	return nil
}

// Allocations stores a payment's invoice allocations as a JSON array
type Allocations []billing.PaymentAllocation

// Value implements driver.Valuer
func (a Allocations) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]billing.PaymentAllocation(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Allocations) Scan(value any) error {
	var allocations []billing.PaymentAllocation
	if err := scanJSON(value, &allocations); err != nil {
		return fmt.Errorf("scan allocations: %w", err)
	}
	*a = allocations
	return nil
}

func scanJSON(value any, dest any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported type %T", value)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dest)
}

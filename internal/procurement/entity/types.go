package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// NewID returns a 32 character identifier.
func NewID() string {
	return uuid.New().String()[:32]
}

// QuantityScale decimal places kept for quantities, matching decimal(12,3).
const QuantityScale = 1000

// RoundQuantity rounds q to the quantity column scale.
func RoundQuantity(q float64) float64 {
	return math.Round(q*QuantityScale) / QuantityScale
}

// AddQuantity sums two quantities at column scale.
func AddQuantity(a, b float64) float64 {
	return RoundQuantity(a + b)
}

// QuantityReached reports whether got covers want at column scale.
func QuantityReached(got, want float64) bool {
	return RoundQuantity(got) >= RoundQuantity(want)
}

// JSONB free-form JSON object column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	data, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("failed to scan JSONB: %w", err)
	}
	if len(data) == 0 {
		*j = JSONB{}
		return nil
	}
	return json.Unmarshal(data, j)
}

// StringList JSON array of strings.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(value interface{}) error {
	data, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("failed to scan StringList: %w", err)
	}
	if len(data) == 0 {
		*s = StringList{}
		return nil
	}
	return json.Unmarshal(data, s)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}

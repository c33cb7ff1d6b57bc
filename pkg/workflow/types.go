package workflow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ResourceID identifies a counter in a ResourceStore (a SKU, an account, a member, a volume).
type ResourceID struct {
	value string
}

// NewResourceID validates and normalizes a resource id.
func NewResourceID(raw string) (ResourceID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ResourceID{}, fmt.Errorf("%w: empty value", ErrInvalidResourceID)
	}
	return ResourceID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ResourceID) String() string {
	return id.value
}

// IsZero reports whether the id was never set.
func (id ResourceID) IsZero() bool {
	return id.value == ""
}

// Scoped derives a namespaced id such as "borrowed:alice".
func (id ResourceID) Scoped(namespace string) ResourceID {
	return ResourceID{value: namespace + resourceKeyDelimiter + id.value}
}

// Quantity is a non-negative decimal amount: a stock count, money, megabytes or a borrowed count.
type Quantity struct {
	value decimal.Decimal
}

// NewQuantity validates that value is not negative.
func NewQuantity(value decimal.Decimal) (Quantity, error) {
	if value.IsNegative() {
		return Quantity{}, fmt.Errorf("%w: must not be negative", ErrInvalidQuantity)
	}
	return Quantity{value: value}, nil
}

// NewQuantityFromInt builds a Quantity from a whole number.
func NewQuantityFromInt(raw int64) (Quantity, error) {
	return NewQuantity(decimal.NewFromInt(raw))
}

// ParseQuantity parses a decimal string such as "100.00".
func ParseQuantity(raw string) (Quantity, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	return NewQuantity(parsed)
}

// NewPositiveQuantity validates that value is strictly positive.
func NewPositiveQuantity(value decimal.Decimal) (Quantity, error) {
	if !value.IsPositive() {
		return Quantity{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidQuantity)
	}
	return Quantity{value: value}, nil
}

// NewCount validates a strictly positive whole number of units.
func NewCount(value decimal.Decimal) (Quantity, error) {
	quantity, err := NewPositiveQuantity(value)
	if err != nil {
		return Quantity{}, err
	}
	if !quantity.IsWhole() {
		return Quantity{}, fmt.Errorf("%w: must be a whole number", ErrInvalidQuantity)
	}
	return quantity, nil
}

// Decimal returns the underlying decimal value.
func (quantity Quantity) Decimal() decimal.Decimal {
	return quantity.value
}

// String renders the quantity without trailing zeros.
func (quantity Quantity) String() string {
	return quantity.value.String()
}

// IsZero reports whether the quantity is zero.
func (quantity Quantity) IsZero() bool {
	return quantity.value.IsZero()
}

// IsWhole reports whether the quantity has no fractional part.
func (quantity Quantity) IsWhole() bool {
	return quantity.value.Equal(quantity.value.Truncate(0))
}

// GreaterThan reports whether quantity > other.
func (quantity Quantity) GreaterThan(other Quantity) bool {
	return quantity.value.GreaterThan(other.value)
}

// Equal reports whether both quantities hold the same value.
func (quantity Quantity) Equal(other Quantity) bool {
	return quantity.value.Equal(other.value)
}

// Add returns quantity + other.
func (quantity Quantity) Add(other Quantity) Quantity {
	return Quantity{value: quantity.value.Add(other.value)}
}

// Sub returns quantity - other, refusing to produce a negative result.
func (quantity Quantity) Sub(other Quantity) (Quantity, error) {
	difference := quantity.value.Sub(other.value)
	if difference.IsNegative() {
		return Quantity{}, fmt.Errorf("%w: %s - %s", ErrNegativeQuantity, quantity, other)
	}
	return Quantity{value: difference}, nil
}

// Mul returns quantity * other.
func (quantity Quantity) Mul(other Quantity) Quantity {
	return Quantity{value: quantity.value.Mul(other.value)}
}

// MarshalJSON encodes the quantity as a JSON number.
func (quantity Quantity) MarshalJSON() ([]byte, error) {
	return []byte(quantity.value.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (quantity *Quantity) UnmarshalJSON(data []byte) error {
	var parsed decimal.Decimal
	if err := parsed.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	validated, err := NewQuantity(parsed)
	if err != nil {
		return err
	}
	*quantity = validated
	return nil
}

// Request is the immutable bundle of inputs for one pipeline run. Only the
// fields used by the pipeline's guards are populated.
type Request struct {
	Item      ResourceID
	Account   ResourceID
	Member    ResourceID
	Volume    ResourceID
	Quantity  Quantity
	UnitPrice Quantity
	Amount    Quantity
	Address   string
	Username  string
	Password  string
	FilePath  string
}

package ids

import (
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrPrecisionMismatch is returned when arithmetic is attempted between
// two scaled values with different scales.
var ErrPrecisionMismatch = errors.New("ids: precision mismatch")

// Scale is the number of decimal places represented by a scaled integer.
type Scale int32

// Price is a non-negative scaled integer; the decimal point sits Scale
// digits from the right.
type Price struct {
	v     int64
	scale Scale
}

// NewPrice builds a Price from its canonical integer representation.
func NewPrice(v int64, scale Scale) (Price, error) {
	if v < 0 {
		return Price{}, ErrQuantityNonPositive
	}
	return Price{v: v, scale: scale}, nil
}

// ParsePrice converts a decimal string (as received from a venue) into a
// canonical scaled Price without floating point rounding.
func ParsePrice(s string, scale Scale) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, err
	}
	scaled := d.Shift(int32(scale)).Round(0)
	return NewPrice(scaled.IntPart(), scale)
}

// Int64 returns the canonical integer representation.
func (p Price) Int64() int64 { return p.v }

// Scale returns the decimal scale.
func (p Price) Scale() Scale { return p.scale }

// IsZero reports whether the price is exactly zero.
func (p Price) IsZero() bool { return p.v == 0 }

// Equal compares two prices for value equality, including scale.
func (p Price) Equal(other Price) bool { return p.v == other.v && p.scale == other.scale }

// Compare returns -1, 0, or 1 comparing p to other. Scales must match.
func (p Price) Compare(other Price) (int, error) {
	if p.scale != other.scale {
		return 0, ErrPrecisionMismatch
	}
	switch {
	case p.v < other.v:
		return -1, nil
	case p.v > other.v:
		return 1, nil
	default:
		return 0, nil
	}
}

// Add returns p+other; scales must match.
func (p Price) Add(other Price) (Price, error) {
	if p.scale != other.scale {
		return Price{}, ErrPrecisionMismatch
	}
	return Price{v: p.v + other.v, scale: p.scale}, nil
}

// Sub returns p-other; scales must match. The result may be negative
// during intermediate PnL computation even though Price itself models a
// non-negative venue-quoted price.
func (p Price) Sub(other Price) (int64, error) {
	if p.scale != other.scale {
		return 0, ErrPrecisionMismatch
	}
	return p.v - other.v, nil
}

// String renders the scaled integer with its decimal point.
func (p Price) String() string { return appendScaledInt(nil, p.v, int(p.scale)) }

// ErrQuantityNonPositive is returned when a quantity or price is negative.
var ErrQuantityNonPositive = errors.New("ids: value must be non-negative")

// Quantity is a non-negative scaled integer.
type Quantity struct {
	v     int64
	scale Scale
}

// NewQuantity builds a Quantity from its canonical integer representation.
func NewQuantity(v int64, scale Scale) (Quantity, error) {
	if v < 0 {
		return Quantity{}, ErrQuantityNonPositive
	}
	return Quantity{v: v, scale: scale}, nil
}

// ParseQuantity converts a decimal string into a canonical scaled Quantity.
func ParseQuantity(s string, scale Scale) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, err
	}
	scaled := d.Shift(int32(scale)).Round(0)
	return NewQuantity(scaled.IntPart(), scale)
}

func (q Quantity) Int64() int64   { return q.v }
func (q Quantity) Scale() Scale   { return q.scale }
func (q Quantity) IsZero() bool   { return q.v == 0 }
func (q Quantity) Equal(o Quantity) bool { return q.v == o.v && q.scale == o.scale }

// Compare returns -1, 0, or 1 comparing q to other. Scales must match.
func (q Quantity) Compare(other Quantity) (int, error) {
	if q.scale != other.scale {
		return 0, ErrPrecisionMismatch
	}
	switch {
	case q.v < other.v:
		return -1, nil
	case q.v > other.v:
		return 1, nil
	default:
		return 0, nil
	}
}

// Add returns q+other; scales must match.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if q.scale != other.scale {
		return Quantity{}, ErrPrecisionMismatch
	}
	return Quantity{v: q.v + other.v, scale: q.scale}, nil
}

// Sub returns q-other; scales must match and the result must stay
// non-negative.
func (q Quantity) Sub(other Quantity) (Quantity, error) {
	if q.scale != other.scale {
		return Quantity{}, ErrPrecisionMismatch
	}
	if other.v > q.v {
		return Quantity{}, ErrQuantityNonPositive
	}
	return Quantity{v: q.v - other.v, scale: q.scale}, nil
}

func (q Quantity) String() string { return appendScaledInt(nil, q.v, int(q.scale)) }

// Notional is a scaled integer representing price*quantity.
type Notional struct {
	v     int64
	scale Scale
}

func NewNotional(v int64, scale Scale) Notional { return Notional{v: v, scale: scale} }
func (n Notional) Int64() int64                 { return n.v }
func (n Notional) Scale() Scale                 { return n.scale }
func (n Notional) IsZero() bool                 { return n.v == 0 }
func (n Notional) String() string               { return appendScaledInt(nil, n.v, int(n.scale)) }

// Fee is a scaled integer representing a venue fee, possibly negative
// (a rebate).
type Fee struct {
	v     int64
	scale Scale
}

func NewFee(v int64, scale Scale) Fee { return Fee{v: v, scale: scale} }
func (f Fee) Int64() int64            { return f.v }
func (f Fee) Scale() Scale            { return f.scale }
func (f Fee) String() string          { return appendScaledInt(nil, f.v, int(f.scale)) }

func appendScaledInt(buf []byte, value int64, scale int) string {
	if scale <= 0 {
		return string(strconv.AppendInt(buf, value, 10))
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(-value)
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return string(buf)
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return string(buf)
}

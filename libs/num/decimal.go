package num

import (
	"github.com/shopspring/decimal"
)

// Decimal is the arbitrary-precision type used for feature values and PnL.
type Decimal = decimal.Decimal

var dzero = decimal.Zero

func DecimalZero() Decimal {
	return dzero
}

func DecimalFromInt64(i int64) Decimal {
	return decimal.NewFromInt(i)
}

func DecimalFromUint64(u uint64) Decimal {
	return decimal.NewFromUint64(u)
}

func DecimalFromString(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}

func MustDecimalFromString(s string) Decimal {
	d, err := DecimalFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

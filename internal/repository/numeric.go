package repository

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// NumericToCents converts a pgtype.Numeric read from a numeric(15,0) money
// column into int64 cents. Errors on NULL and on int64 overflow; a negative
// exponent (fractional digits) is truncated since the schema forbids them.
func NumericToCents(n pgtype.Numeric) (int64, error) {
	if !n.Valid {
		return 0, fmt.Errorf("numeric value is NULL")
	}

	// pgtype.Numeric carries the value as Int * 10^Exp.
	v := new(big.Int).Set(n.Int)
	if n.Exp > 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil)
		v.Mul(v, scale)
	} else if n.Exp < 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil)
		v.Div(v, scale)
	}

	if !v.IsInt64() {
		return 0, fmt.Errorf("numeric value %s overflows int64", v.String())
	}
	return v.Int64(), nil
}

// CentsToNumeric converts int64 cents into a pgtype.Numeric for writing to
// a numeric(15,0) column.
func CentsToNumeric(cents int64) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              big.NewInt(cents),
		Exp:              0,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}

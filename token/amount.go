package token

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// unit is 10^Decimals, the number of base units in one whole token.
var unit = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// Unit returns 10^Decimals as a fresh value.
func Unit() *uint256.Int {
	return new(uint256.Int).Set(unit)
}

// WholeTokens returns n whole tokens in base units (n * 10^Decimals).
func WholeTokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), unit)
}

// InitialSupply returns the genesis supply in base units:
// 100,000 whole tokens.
func InitialSupply() *uint256.Int {
	return WholeTokens(InitialWholeSupply)
}

// ParseAmount parses a decimal token amount into base units.
// "500" is 500 whole tokens, "1.5" is 15 * 10^17 base units.
// At most Decimals fractional digits are accepted.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrBadAmount)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrBadAmount, s, Decimals)
	}

	w, err := parseDigits(whole)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	out, overflow := new(uint256.Int).MulOverflow(w, unit)
	if overflow {
		return nil, fmt.Errorf("%w: %q", ErrOverflow, s)
	}

	if frac != "" {
		// Right-pad the fractional part to Decimals digits.
		f, err := parseDigits(frac + strings.Repeat("0", Decimals-len(frac)))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
		}
		out, overflow = out.AddOverflow(out, f)
		if overflow {
			return nil, fmt.Errorf("%w: %q", ErrOverflow, s)
		}
	}
	return out, nil
}

// MustParseAmount parses a decimal token amount and panics on failure.
// Intended for fixtures and tests.
func MustParseAmount(s string) *uint256.Int {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatAmount renders base units as a decimal token amount with
// trailing fractional zeros trimmed: 15*10^17 renders "1.5".
func FormatAmount(v *uint256.Int) string {
	q := new(uint256.Int)
	r := new(uint256.Int)
	q.DivMod(v, unit, r)
	if r.IsZero() {
		return q.Dec()
	}
	dec := r.Dec()
	frac := strings.TrimRight(strings.Repeat("0", Decimals-len(dec))+dec, "0")
	return q.Dec() + "." + frac
}

func parseDigits(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty digit string")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("non-digit %q", c)
		}
	}
	v := new(uint256.Int)
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return v, nil
	}
	if err := v.SetFromDecimal(trimmed); err != nil {
		return nil, err
	}
	return v, nil
}

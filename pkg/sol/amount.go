// Package sol implements fixed-point SOL amounts.
//
// Amounts are stored as integer lamports (1 SOL = 10^9 lamports) so that
// bid comparison and balance arithmetic are exact. The JSON representation
// is a plain decimal number in SOL with at most nine fractional digits.
package sol

import (
	"fmt"
	"strconv"
	"strings"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// Amount is a quantity of SOL in lamports.
type Amount int64

// FromLamports constructs an Amount from a raw lamport count.
func FromLamports(l int64) Amount {
	return Amount(l)
}

// FromSOL constructs an Amount from whole SOL.
func FromSOL(s int64) Amount {
	return Amount(s * LamportsPerSOL)
}

// Lamports returns the raw lamport count.
func (a Amount) Lamports() int64 {
	return int64(a)
}

// MulRatio returns a * num / den using exact integer arithmetic.
// Used for fee multipliers like the JIT premium (105/100).
func (a Amount) MulRatio(num, den int64) Amount {
	return Amount(int64(a) * num / den)
}

// String formats the amount as decimal SOL with trailing zeros trimmed.
func (a Amount) String() string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}

	whole := v / LamportsPerSOL
	frac := v % LamportsPerSOL

	var s string
	if frac == 0 {
		s = strconv.FormatInt(whole, 10)
	} else {
		s = strings.TrimRight(fmt.Sprintf("%d.%09d", whole, frac), "0")
	}

	if neg {
		s = "-" + s
	}

	return s
}

// Parse parses a decimal SOL string into an Amount.
// At most nine fractional digits are accepted; excess precision is an error
// rather than silently rounded.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}

	wholeStr, fracStr, hasFrac := strings.Cut(s, ".")
	if wholeStr == "" && fracStr == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	if wholeStr == "" {
		wholeStr = "0"
	}

	whole, err := strconv.ParseInt(wholeStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	var frac int64

	if hasFrac {
		if fracStr == "" {
			return 0, fmt.Errorf("invalid amount %q", s)
		}

		if len(fracStr) > 9 {
			return 0, fmt.Errorf("amount %q has more than 9 fractional digits", s)
		}

		frac, err = strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}

		// Scale to lamports: "002" -> 2_000_000
		for i := len(fracStr); i < 9; i++ {
			frac *= 10
		}
	}

	v := whole*LamportsPerSOL + frac
	if neg {
		v = -v
	}

	return Amount(v), nil
}

// MarshalJSON encodes the amount as a bare decimal JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON decodes a decimal JSON number (or quoted decimal string).
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

package source

import (
	"math"
	"strconv"
	"strings"
)

const radixDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

// Token derives the token the syndication endpoint expects for a post id:
// (id / 1e15) * π written in base 36, with every '0' and '.' removed.
// The number is rendered exactly as a browser renders Number#toString(36),
// since the endpoint computes the same value on its side.
func Token(postID string) string {
	id, err := strconv.ParseFloat(postID, 64)
	if err != nil {
		return ""
	}
	s := FormatRadix((id/1e15)*math.Pi, 36)
	return strings.NewReplacer("0", "", ".", "").Replace(s)
}

// FormatRadix renders v in the given base (2..36) using the shortest digit string
// that reads back to v, with ties in the last digit rounded to even.
func FormatRadix(v float64, base int) string {
	switch {
	case base < 2 || base > 36:
		return ""
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	default:
	}

	negative := v < 0
	if negative {
		v = -v
	}
	radix := float64(base)

	integer := math.Floor(v)
	fraction := v - integer

	// Only emit fraction digits up to the precision of v.
	delta := math.Max(0.5*(math.Nextafter(v, math.Inf(1))-v), math.SmallestNonzeroFloat64)

	var frac []byte
	if fraction >= delta {
		for {
			fraction *= radix
			delta *= radix
			digit := int(fraction)
			frac = append(frac, radixDigits[digit])
			fraction -= float64(digit)

			if fraction > 0.5 || (fraction == 0.5 && digit&1 == 1) {
				if fraction+delta > 1 {
					frac, integer = roundUp(frac, integer, base)
					break
				}
			}
			if fraction < delta {
				break
			}
		}
	}

	// Digits below the precision of integer are written as zeros.
	var zeros int
	for exponent(integer/radix) > 0 {
		integer /= radix
		zeros++
	}
	var intDigits []byte
	for {
		rem := math.Mod(integer, radix)
		intDigits = append(intDigits, radixDigits[int(rem)])
		integer = (integer - rem) / radix
		if integer <= 0 {
			break
		}
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i := len(intDigits) - 1; i >= 0; i-- {
		b.WriteByte(intDigits[i])
	}
	b.WriteString(strings.Repeat("0", zeros))
	if len(frac) > 0 {
		b.WriteByte('.')
		b.Write(frac)
	}
	return b.String()
}

// roundUp adds one unit in the last fraction digit, carrying leftwards and into
// the integer part when every fraction digit overflows.
func roundUp(frac []byte, integer float64, base int) ([]byte, float64) {
	for len(frac) > 0 {
		last := len(frac) - 1
		digit := strings.IndexByte(radixDigits, frac[last])
		if digit+1 < base {
			frac[last] = radixDigits[digit+1]
			return frac, integer
		}
		frac = frac[:last]
	}
	return frac, integer + 1
}

// exponent returns e such that x = m * 2^e with m a 53-bit integer.
func exponent(x float64) int {
	const (
		bias            = 0x3ff + 52
		denormal        = -bias + 1
		exponentMask    = 0x7ff
		significandBits = 52
	)
	biased := int(math.Float64bits(x)>>significandBits) & exponentMask
	if biased == 0 {
		return denormal
	}
	return biased - bias
}

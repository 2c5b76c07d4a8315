package common

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	NativeDecimals = 18 // POL/ETH native token
)

// FormatUnits converts an integer chain amount to a decimal string by
// inserting the decimal point, without float precision loss.
// Example: FormatUnits(24981836, 6) = "24.981836"
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	s := value.String()

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	// Pad with leading zeros if needed
	for len(s) <= decimals {
		s = "0" + s
	}

	pos := len(s) - decimals
	out := s[:pos] + "." + s[pos:]
	if neg {
		out = "-" + out
	}
	return out
}

// ParseUnits converts a decimal string to an integer chain amount by
// removing the decimal point, without float precision loss.
// Example: ParseUnits("24.981836", 6) = 24981836
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty string")
	}

	parts := strings.Split(s, ".")

	if len(parts) == 1 {
		n, ok := new(big.Int).SetString(parts[0], 10)
		if !ok {
			return nil, fmt.Errorf("invalid number: %s", s)
		}
		mul := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
		return n.Mul(n, mul), nil
	}

	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid decimal format")
	}

	whole := parts[0]
	frac := parts[1]

	// Pad or truncate fractional part to exact decimals
	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	} else if len(frac) > decimals {
		frac = frac[:decimals]
	}

	n, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid number: %s", s)
	}
	return n, nil
}

// WeiToUSD converts a wei cost to USD given a native-token/USD price.
// Float is acceptable here: the result feeds a best-effort profitability
// gate, not an accounting entry.
func WeiToUSD(wei *big.Int, usdPrice float64) float64 {
	if wei == nil {
		return 0
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	out, _ := new(big.Float).Mul(eth, big.NewFloat(usdPrice)).Float64()
	return out
}

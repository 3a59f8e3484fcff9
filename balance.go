package passbridge

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// defaultCurrencyPrecision applies to codes missing from currencyPrecisions.
const defaultCurrencyPrecision = 2

// currencyPrecisions lists ISO 4217 minor-unit exponents that differ from
// the default of 2, plus the most common 2-decimal codes for reference.
var currencyPrecisions = map[string]int{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0,
	"KRW": 0, "PYG": 0, "RWF": 0, "UGX": 0, "UYI": 0, "VND": 0, "VUV": 0,
	"XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
	"CLF": 4, "UYW": 4,
	"AUD": 2, "CAD": 2, "CHF": 2, "CNY": 2, "EUR": 2, "GBP": 2, "HKD": 2,
	"INR": 2, "MXN": 2, "NZD": 2, "SEK": 2, "SGD": 2, "USD": 2, "ZAR": 2,
}

// CurrencyPrecision returns the number of decimal places of a currency.
// Unknown codes use two decimal places.
func CurrencyPrecision(code string) int {
	if p, ok := currencyPrecisions[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return p
	}
	return defaultCurrencyPrecision
}

// Balance is a point or monetary balance. Value keeps the textual form of
// the number, CurrencyCode is empty for point balances.
type Balance struct {
	Value        string
	CurrencyCode string
}

// MinorUnits scales a currency balance to an integer of minor units,
// rounding half away from zero. Values finer than the currency precision
// are lost. Non-finite values and amounts whose micros overflow int64 are
// rejected.
func (b Balance) MinorUnits() (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(b.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("balance %q is not numeric: %w", b.Value, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("balance %q is not finite", b.Value)
	}
	precision := CurrencyPrecision(b.CurrencyCode)
	minor := math.Round(f * math.Pow10(precision))
	if math.Abs(minor) >= maxInt64Float/math.Pow10(6-precision) {
		return 0, fmt.Errorf("balance %q is out of range", b.Value)
	}
	return int64(minor), nil
}

// BalanceFromMinorUnits reverses MinorUnits.
func BalanceFromMinorUnits(minor int64, code string) Balance {
	precision := CurrencyPrecision(code)
	value := float64(minor) / math.Pow10(precision)
	return Balance{
		Value:        strconv.FormatFloat(value, 'f', -1, 64),
		CurrencyCode: strings.ToUpper(code),
	}
}

// balanceSlot is the payload's polymorphic balance value.
type balanceSlot struct {
	String *string  `json:"string,omitempty"`
	Int    *int64   `json:"int,omitempty"`
	Double *float64 `json:"double,omitempty"`
	Money  *money   `json:"money,omitempty"`
}

type money struct {
	Micros       microsValue `json:"micros"`
	CurrencyCode string      `json:"currencyCode"`
}

// microsValue is written as a JSON string and read from either a string or
// a number.
type microsValue int64

func (m microsValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(m), 10))
}

func (m *microsValue) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("micros %s: %w", data, err)
	}
	*m = microsValue(v)
	return nil
}

const microsPerUnit = 1_000_000

// maxInt64Float is 2^63, the first float64 above math.MaxInt64.
const maxInt64Float = float64(1 << 63)

func encodeBalance(b Balance) (*balanceSlot, error) {
	if b.CurrencyCode != "" {
		minor, err := b.MinorUnits()
		if err != nil {
			return nil, err
		}
		micros := minor * int64(math.Pow10(6-CurrencyPrecision(b.CurrencyCode)))
		return &balanceSlot{Money: &money{
			Micros:       microsValue(micros),
			CurrencyCode: strings.ToUpper(b.CurrencyCode),
		}}, nil
	}

	raw := strings.TrimSpace(b.Value)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return &balanceSlot{String: &raw}, nil
	}
	if math.Abs(f) >= maxInt64Float || strings.Contains(strconv.FormatFloat(f, 'f', -1, 64), ".") {
		return &balanceSlot{Double: &f}, nil
	}
	i := int64(f)
	return &balanceSlot{Int: &i}, nil
}

func decodeBalance(slot *balanceSlot) (Balance, bool) {
	switch {
	case slot == nil:
		return Balance{}, false
	case slot.Money != nil:
		code := slot.Money.CurrencyCode
		precision := CurrencyPrecision(code)
		minor := int64(slot.Money.Micros) / int64(math.Pow10(6-precision))
		return BalanceFromMinorUnits(minor, code), true
	case slot.Double != nil:
		return Balance{Value: strconv.FormatFloat(*slot.Double, 'f', -1, 64)}, true
	case slot.Int != nil:
		return Balance{Value: strconv.FormatInt(*slot.Int, 10)}, true
	case slot.String != nil:
		return Balance{Value: *slot.String}, true
	}
	return Balance{}, false
}

package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Weight is a mass in whole grams. JSON carries it as kilograms with up to
// three decimal places, parsed from the literal so no binary rounding occurs.
type Weight int64

// Volume is a volume in whole cubic centimetres. JSON carries cubic metres.
type Volume int64

const (
	Gram     Weight = 1
	Kilogram Weight = 1000

	CubicCentimetre Volume = 1
	CubicMetre      Volume = 1_000_000
)

const (
	weightDecimals = 3
	volumeDecimals = 6
)

// Kg returns the weight in kilograms, for display and percentages only.
func (w Weight) Kg() float64 { return float64(w) / float64(Kilogram) }

func (w Weight) String() string { return formatFixed(int64(w), weightDecimals) }

func (w Weight) MarshalJSON() ([]byte, error) { return []byte(w.String()), nil }

// Value stores grams as BIGINT.
func (w Weight) Value() (driver.Value, error) { return int64(w), nil }

func (w *Weight) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	v, err := parseFixed(b, weightDecimals)
	if err != nil {
		return fmt.Errorf("weight in kg: %w", err)
	}
	*w = Weight(v)
	return nil
}

// M3 returns the volume in cubic metres, for display only.
func (v Volume) M3() float64 { return float64(v) / float64(CubicMetre) }

func (v Volume) String() string { return formatFixed(int64(v), volumeDecimals) }

func (v Volume) MarshalJSON() ([]byte, error) { return []byte(v.String()), nil }

func (v Volume) Value() (driver.Value, error) { return int64(v), nil }

func (v *Volume) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	n, err := parseFixed(b, volumeDecimals)
	if err != nil {
		return fmt.Errorf("volume in m3: %w", err)
	}
	*v = Volume(n)
	return nil
}

var pow10 = [...]int64{1, 10, 100, 1000, 10000, 100000, 1000000}

// parseFixed reads a plain decimal literal as an integer count of 10^-decimals units.
// Trailing zeros beyond the precision are accepted; significant digits are not.
func parseFixed(b []byte, decimals int) (int64, error) {
	s := string(b)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || strings.ContainsAny(s, "+-eE") {
		return 0, fmt.Errorf("%q is not a plain decimal number", b)
	}
	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return 0, fmt.Errorf("%q has more than %d decimal places", b, decimals)
	}
	n, err := strconv.ParseInt(whole+frac+strings.Repeat("0", decimals-len(frac)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", b, err)
	}
	if neg {
		n = -n
	}
	return n, nil
}

func formatFixed(v int64, decimals int) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	scale := pow10[decimals]
	whole, frac := v/scale, v%scale
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	digits := strings.TrimRight(fmt.Sprintf("%0*d", decimals, frac), "0")
	return sign + strconv.FormatInt(whole, 10) + "." + digits
}

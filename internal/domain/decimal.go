package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimal is a float that accepts the backend's decimal encodings:
// JSON numbers, numeric strings ("4.5") and comma decimals ("4,5").
type Decimal float64

func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*d = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
		if s == "" {
			*d = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decimal %q: %w", s, err)
	}
	if !IsFinite(f) {
		return fmt.Errorf("decimal %q: not a finite number", s)
	}
	*d = Decimal(f)
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	if !d.IsFinite() {
		return nil, fmt.Errorf("decimal %v: not a finite number", float64(d))
	}
	return []byte(strconv.FormatFloat(float64(d), 'f', -1, 64)), nil
}

func (d Decimal) Float64() float64 { return float64(d) }

func (d Decimal) IsFinite() bool { return IsFinite(float64(d)) }

// IsFinite rejects NaN and both infinities, which JSON cannot carry and
// which compare false against every bound.
func IsFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"lessonplanner/internal/schedule"
)

// OptionalPeriod is a period number that may be absent. On the wire it is a
// number, a numeric string or null.
type OptionalPeriod struct {
	Value int
	Valid bool
}

// PeriodOf wraps n as a present period.
func PeriodOf(n int) OptionalPeriod {
	return OptionalPeriod{Value: n, Valid: true}
}

// NoPeriod is the absent period.
var NoPeriod = OptionalPeriod{}

// Ptr returns nil when absent.
func (p OptionalPeriod) Ptr() *int {
	if !p.Valid {
		return nil
	}
	v := p.Value
	return &v
}

func (p OptionalPeriod) String() string {
	if !p.Valid {
		return "-"
	}
	return strconv.Itoa(p.Value)
}

func (p OptionalPeriod) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(p.Value)), nil
}

func (p *OptionalPeriod) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = NoPeriod
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("period must be a number")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*p = NoPeriod
			return nil
		}
		if n, err = strconv.Atoi(s); err != nil {
			return fmt.Errorf("period must be a number, got %q", s)
		}
	}
	if n < schedule.MinPeriod || n > schedule.MaxPeriod {
		return fmt.Errorf("period %d out of range %d-%d", n, schedule.MinPeriod, schedule.MaxPeriod)
	}
	*p = PeriodOf(n)
	return nil
}

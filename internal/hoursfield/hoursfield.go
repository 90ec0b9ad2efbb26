// Package hoursfield parses, validates and formats the hours input field.
// Hours are entered either in decimal notation (1.5) or as a clock (01:30).
package hoursfield

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmpty  = errors.New("hours value is empty")
	ErrFormat = errors.New("hours must be decimal (1.5) or HH:MM (01:30)")
	ErrRange  = errors.New("hours out of range")
	ErrStep   = errors.New("hours must be a multiple of the step")
)

var (
	decimalPattern  = regexp.MustCompile(`^\d+(\.\d+)?$`)
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	partialHour     = regexp.MustCompile(`^\d{1,2}$`)
	partialDecimal  = regexp.MustCompile(`^\d+\.$`)
	sixty           = decimal.NewFromInt(60)
	maxClockHours   = 12
	maxClockMinutes = 59
)

// Notation identifies how a value was typed
type Notation int

const (
	NotationUnknown Notation = iota
	NotationDecimal
	NotationClock
)

func (n Notation) String() string {
	switch n {
	case NotationDecimal:
		return "decimal"
	case NotationClock:
		return "time"
	default:
		return "unknown"
	}
}

// Limits bounds an hours value
type Limits struct {
	Min  decimal.Decimal
	Max  decimal.Decimal
	Step decimal.Decimal
}

// DefaultLimits are the limits of a single hour entry: 0.5 to 12 in half hours
func DefaultLimits() Limits {
	return Limits{
		Min:  decimal.RequireFromString("0.5"),
		Max:  decimal.NewFromInt(12),
		Step: decimal.RequireFromString("0.5"),
	}
}

// Detect reports the notation of s without range checks
func Detect(s string) Notation {
	s = strings.TrimSpace(s)
	switch {
	case decimalPattern.MatchString(s):
		return NotationDecimal
	case clockPattern.MatchString(s):
		return NotationClock
	default:
		return NotationUnknown
	}
}

// Parse converts s into hours. Clock values are rounded to one decimal place.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}

	switch Detect(s) {
	case NotationDecimal:
		h, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return h, nil
	case NotationClock:
		hours, minutes, err := splitClock(s)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(int64(hours)).
			Add(decimal.NewFromInt(int64(minutes)).Div(sixty)).
			Round(1), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrFormat, s)
	}
}

// Validate checks h against limits. A zero Step disables the step check.
func Validate(h decimal.Decimal, limits Limits) error {
	if h.LessThan(limits.Min) || h.GreaterThan(limits.Max) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrRange, h, limits.Min, limits.Max)
	}
	if !limits.Step.IsZero() && !h.Mod(limits.Step).IsZero() {
		return fmt.Errorf("%w: %s is not a multiple of %s", ErrStep, h, limits.Step)
	}
	return nil
}

// ParseValid is Parse followed by Validate
func ParseValid(s string, limits Limits) (decimal.Decimal, error) {
	h, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}
	if err := Validate(h, limits); err != nil {
		return decimal.Zero, err
	}
	return h, nil
}

// FormatClock renders hours as HH:MM (1.5 → 01:30)
func FormatClock(h decimal.Decimal) string {
	hours := h.Floor()
	minutes := h.Sub(hours).Mul(sixty).Round(0).IntPart()
	whole := hours.IntPart()
	if minutes == 60 {
		whole++
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", whole, minutes)
}

// FormatDecimal renders hours with one decimal place (2 → 2.0)
func FormatDecimal(h decimal.Decimal) string {
	return h.StringFixed(1)
}

// Normalize is the on-blur formatting: clocks are zero padded and whole
// decimals get a trailing .0. Anything else is returned unchanged.
func Normalize(s string) string {
	trimmed := strings.TrimSpace(s)
	switch Detect(trimmed) {
	case NotationClock:
		hours, minutes, err := splitClock(trimmed)
		if err != nil {
			return s
		}
		return fmt.Sprintf("%02d:%02d", hours, minutes)
	case NotationDecimal:
		h, err := decimal.NewFromString(trimmed)
		if err != nil {
			return s
		}
		if h.Equal(h.Floor()) {
			return FormatDecimal(h)
		}
		return trimmed
	default:
		return s
	}
}

// AutoComplete finishes a partially typed value: "8" → "08:00", "1." → "1.0"
func AutoComplete(s string) string {
	value := strings.TrimSpace(s)

	if partialHour.MatchString(value) {
		if hours, err := strconv.Atoi(value); err == nil && hours <= maxClockHours {
			return fmt.Sprintf("%02d:00", hours)
		}
	}

	if partialDecimal.MatchString(value) {
		return value + "0"
	}

	return s
}

// Conversion describes s in the other notation, e.g. "1.5 horas = 01:30"
func Conversion(s string) (string, bool) {
	s = strings.TrimSpace(s)
	h, err := Parse(s)
	if err != nil {
		return "", false
	}

	switch Detect(s) {
	case NotationDecimal:
		return fmt.Sprintf("%s horas = %s", s, FormatClock(h)), true
	case NotationClock:
		return fmt.Sprintf("%s = %s horas", s, FormatDecimal(h)), true
	default:
		return "", false
	}
}

func splitClock(s string) (int, int, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours > maxClockHours || minutes > maxClockMinutes {
		return 0, 0, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	return hours, minutes, nil
}

package hoursfield

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{"1.5", "1.5", nil},
		{"8", "8", nil},
		{" 2.25 ", "2.25", nil},
		{"01:30", "1.5", nil},
		{"1:30", "1.5", nil},
		{"00:20", "0.3", nil},
		{"12:00", "12", nil},
		{"00:45", "0.8", nil},
		{"", "", ErrEmpty},
		{"   ", "", ErrEmpty},
		{"1,5", "", ErrFormat},
		{"-1", "", ErrFormat},
		{"1.", "", ErrFormat},
		{"13:00", "", ErrFormat},
		{"10:60", "", ErrFormat},
		{"1:5", "", ErrFormat},
		{"abc", "", ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Parse(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error = %v", tt.input, err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("Parse(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		hours   string
		wantErr error
	}{
		{"0.5", nil},
		{"1", nil},
		{"7.5", nil},
		{"12", nil},
		{"0", ErrRange},
		{"0.4", ErrRange},
		{"12.5", ErrRange},
		{"1.3", ErrStep},
		{"2.25", ErrStep},
	}

	for _, tt := range tests {
		err := Validate(d(tt.hours), limits)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Validate(%s) = %v, want %v", tt.hours, err, tt.wantErr)
		}
	}

	noStep := Limits{Min: d("0.5"), Max: d("12")}
	if err := Validate(d("1.3"), noStep); err != nil {
		t.Errorf("Validate(1.3) with zero step = %v, want nil", err)
	}
}

func TestParseValid(t *testing.T) {
	h, err := ParseValid("01:30", DefaultLimits())
	if err != nil || !h.Equal(d("1.5")) {
		t.Errorf("ParseValid(01:30) = %s, %v; want 1.5, nil", h, err)
	}

	if _, err := ParseValid("00:20", DefaultLimits()); !errors.Is(err, ErrRange) {
		t.Errorf("ParseValid(00:20) error = %v, want ErrRange", err)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		hours string
		want  string
	}{
		{"1.5", "01:30"},
		{"0.5", "00:30"},
		{"8", "08:00"},
		{"12", "12:00"},
		{"2.25", "02:15"},
		{"1.999", "02:00"},
	}

	for _, tt := range tests {
		if got := FormatClock(d(tt.hours)); got != tt.want {
			t.Errorf("FormatClock(%s) = %s, want %s", tt.hours, got, tt.want)
		}
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := map[string]string{
		"2":    "2.0",
		"1.5":  "1.5",
		"0.25": "0.3",
	}

	for in, want := range tests {
		if got := FormatDecimal(d(in)); got != want {
			t.Errorf("FormatDecimal(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1:30", "01:30"},
		{"8:05", "08:05"},
		{"4", "4.0"},
		{"1.5", "1.5"},
		{"13:00", "13:00"},
		{"abc", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAutoComplete(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"8", "08:00"},
		{"12", "12:00"},
		{"0", "00:00"},
		{"13", "13"},
		{"1.", "1.0"},
		{"10.", "10.0"},
		{"1.5", "1.5"},
		{"01:30", "01:30"},
	}

	for _, tt := range tests {
		if got := AutoComplete(tt.input); got != tt.want {
			t.Errorf("AutoComplete(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDetectAndConversion(t *testing.T) {
	if got := Detect("1.5"); got != NotationDecimal {
		t.Errorf("Detect(1.5) = %v, want decimal", got)
	}
	if got := Detect("01:30"); got != NotationClock {
		t.Errorf("Detect(01:30) = %v, want time", got)
	}
	if got := Detect("x"); got != NotationUnknown {
		t.Errorf("Detect(x) = %v, want unknown", got)
	}

	if got, ok := Conversion("1.5"); !ok || got != "1.5 horas = 01:30" {
		t.Errorf("Conversion(1.5) = %q, %v", got, ok)
	}
	if got, ok := Conversion("02:00"); !ok || got != "02:00 = 2.0 horas" {
		t.Errorf("Conversion(02:00) = %q, %v", got, ok)
	}
	if _, ok := Conversion("bad"); ok {
		t.Error("Conversion(bad) ok = true, want false")
	}
}

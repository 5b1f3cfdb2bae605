package ormbase

import (
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validator normalizes a raw value into the column's Go representation,
// or fails with a *FieldError. nil always passes through unchanged:
// nullability is enforced at pre-commit, not on assignment.
type Validator interface {
	Validate(raw any) (any, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(raw any) (any, error)

func (f ValidatorFunc) Validate(raw any) (any, error) { return f(raw) }

// IntegerValidator accepts integral numbers and numeric strings.
type IntegerValidator struct {
	Min *int64
	Max *int64
}

func (v IntegerValidator) Validate(raw any) (any, error) {
	n, ok, err := toInt64(raw)
	if err != nil || !ok {
		return nil, err
	}
	if v.Min != nil && n < *v.Min {
		return nil, NewFieldError("Please enter a number greater than or equal to " + strconv.FormatInt(*v.Min, 10))
	}
	if v.Max != nil && n > *v.Max {
		return nil, NewFieldError("Please enter a number less than or equal to " + strconv.FormatInt(*v.Max, 10))
	}
	return n, nil
}

func toInt64(raw any) (int64, bool, error) {
	switch x := raw.(type) {
	case nil:
		return 0, false, nil
	case int:
		return int64(x), true, nil
	case int8:
		return int64(x), true, nil
	case int16:
		return int64(x), true, nil
	case int32:
		return int64(x), true, nil
	case int64:
		return x, true, nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), true, nil
	case uint16:
		return int64(x), true, nil
	case uint32:
		return int64(x), true, nil
	case uint64:
		return uintToInt64(x)
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case decimal.Decimal:
		if !x.IsInteger() {
			return 0, false, NewFieldError("Please enter a whole number")
		}
		return x.IntPart(), true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false, NewFieldError("Please enter a whole number")
		}
		return n, true, nil
	}
	return 0, false, NewFieldError("Please enter a whole number")
}

func uintToInt64(u uint64) (int64, bool, error) {
	if u > math.MaxInt64 {
		return 0, false, NewFieldError("Number is too large")
	}
	return int64(u), true, nil
}

func floatToInt64(f float64) (int64, bool, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false, NewFieldError("Please enter a whole number")
	}
	if f >= 9223372036854775808.0 || f < -9223372036854775808.0 {
		return 0, false, NewFieldError("Number is too large")
	}
	return int64(f), true, nil
}

// Rounding selects how DecimalValidator fits values to the column scale.
type Rounding int

const (
	RoundNone Rounding = iota
	RoundHalfUp
	RoundHalfEven
	RoundDown
)

// DecimalValidator normalizes numbers to decimal.Decimal.
// Scale < 0 means the column has no declared scale; Precision 0 means
// the number of digits is not limited. With RoundNone, input with more
// fractional digits than Scale is rejected.
type DecimalValidator struct {
	Min       *decimal.Decimal
	Max       *decimal.Decimal
	Precision int32
	Scale     int32
	Rounding  Rounding
}

func (v DecimalValidator) Validate(raw any) (any, error) {
	d, ok, err := toDecimal(raw)
	if err != nil || !ok {
		return nil, err
	}
	if v.Scale >= 0 {
		switch v.Rounding {
		case RoundHalfUp:
			d = d.Round(v.Scale)
		case RoundHalfEven:
			d = d.RoundBank(v.Scale)
		case RoundDown:
			d = d.Truncate(v.Scale)
		default:
			if t := d.Truncate(v.Scale); !t.Equal(d) {
				return nil, NewFieldError("Please enter no more than " + strconv.Itoa(int(v.Scale)) + " decimal places")
			}
		}
	}
	if v.Precision > 0 && !v.fits(d) {
		return nil, NewFieldError("Number is too large")
	}
	if v.Min != nil && d.LessThan(*v.Min) {
		return nil, NewFieldError("Please enter a number greater than or equal to " + v.Min.String())
	}
	if v.Max != nil && d.GreaterThan(*v.Max) {
		return nil, NewFieldError("Please enter a number less than or equal to " + v.Max.String())
	}
	return d, nil
}

// fits reports whether d has room in Precision digits, Scale of them
// fractional when a scale is declared.
func (v DecimalValidator) fits(d decimal.Decimal) bool {
	whole := 0
	if i := d.Truncate(0).Abs(); !i.IsZero() {
		whole = len(i.String())
	}
	if v.Scale >= 0 {
		return whole <= int(v.Precision-v.Scale)
	}
	frac := 0
	if e := d.Exponent(); e < 0 {
		frac = int(-e)
	}
	return whole+frac <= int(v.Precision)
}

func toDecimal(raw any) (decimal.Decimal, bool, error) {
	switch x := raw.(type) {
	case nil:
		return decimal.Decimal{}, false, nil
	case decimal.Decimal:
		return x, true, nil
	case float32:
		return decimal.NewFromFloat32(x), true, nil
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return decimal.Decimal{}, false, NewFieldError("Please enter a number")
		}
		return decimal.NewFromFloat(x), true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Decimal{}, false, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false, NewFieldError("Please enter a number")
		}
		return d, true, nil
	}
	n, ok, err := toInt64(raw)
	if err != nil || !ok {
		return decimal.Decimal{}, false, NewFieldError("Please enter a number")
	}
	return decimal.NewFromInt(n), true, nil
}

// UnicodeValidator accepts text, optionally bounded by MaxLength runes.
type UnicodeValidator struct {
	MaxLength int
	Truncate  bool
}

func (v UnicodeValidator) Validate(raw any) (any, error) {
	s, ok, err := toText(raw)
	if err != nil || !ok {
		return nil, err
	}
	if v.MaxLength > 0 && utf8.RuneCountInString(s) > v.MaxLength {
		if !v.Truncate {
			return nil, NewFieldError("Please enter no more than " + strconv.Itoa(v.MaxLength) + " characters")
		}
		s = string([]rune(s)[:v.MaxLength])
	}
	return s, nil
}

func toText(raw any) (string, bool, error) {
	switch x := raw.(type) {
	case nil:
		return "", false, nil
	case string:
		if !utf8.ValidString(x) {
			return "", false, NewFieldError("Please enter valid text")
		}
		return x, true, nil
	case []byte:
		if !utf8.Valid(x) {
			return "", false, NewFieldError("Please enter valid text")
		}
		return string(x), true, nil
	case interface{ String() string }:
		return x.String(), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true, nil
	}
	if n, ok, err := toInt64(raw); err == nil && ok {
		return strconv.FormatInt(n, 10), true, nil
	}
	return "", false, NewFieldError("Please enter valid text")
}

// EnumValidator restricts text to a fixed set of choices.
type EnumValidator struct {
	Choices   []string
	MaxLength int
}

func (v EnumValidator) Validate(raw any) (any, error) {
	s, ok, err := toText(raw)
	if err != nil || !ok {
		return nil, err
	}
	if s == "" {
		return s, nil
	}
	for _, c := range v.Choices {
		if c == s {
			return s, nil
		}
	}
	return nil, NewFieldError("Please choose one of: " + strings.Join(v.Choices, ", "))
}

// TypeValidator restricts integers to the keys of Choices. A label string is
// accepted and mapped back to its key.
type TypeValidator struct {
	Choices map[int64]string
}

func (v TypeValidator) Validate(raw any) (any, error) {
	if s, isStr := raw.(string); isStr {
		for k, label := range v.Choices {
			if label == s {
				return k, nil
			}
		}
	}
	n, ok, err := toInt64(raw)
	if err != nil {
		return nil, NewFieldError("Please choose a valid option")
	}
	if !ok {
		return nil, nil
	}
	if _, known := v.Choices[n]; !known {
		return nil, NewFieldError("Please choose a valid option")
	}
	return n, nil
}

// BooleanValidator accepts bools, 0/1 and the usual textual spellings.
type BooleanValidator struct{}

func (BooleanValidator) Validate(raw any) (any, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "":
			return nil, nil
		case "1", "t", "true", "y", "yes", "on":
			return true, nil
		case "0", "f", "false", "n", "no", "off":
			return false, nil
		}
		return nil, NewFieldError("Please enter yes or no")
	}
	n, ok, err := toInt64(raw)
	if err != nil || !ok || (n != 0 && n != 1) {
		return nil, NewFieldError("Please enter yes or no")
	}
	return n == 1, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339Nano, "01/02/2006", "2006-01-02 15:04:05"}

// DateValidator normalizes to midnight UTC.
type DateValidator struct{}

func (DateValidator) Validate(raw any) (any, error) {
	t, ok, err := toTime(raw, dateLayouts, "Please enter a valid date")
	if err != nil || !ok {
		return nil, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

var timeLayouts = []string{"15:04:05", "15:04", "15:04:05.999999999", "3:04PM", "3:04 PM", time.RFC3339Nano}

// TimeValidator normalizes time-of-day values onto 0000-01-01 UTC.
type TimeValidator struct{}

func (TimeValidator) Validate(raw any) (any, error) {
	t, ok, err := toTime(raw, timeLayouts, "Please enter a valid time")
	if err != nil || !ok {
		return nil, err
	}
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
}

var dateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// DateTimeValidator normalizes to UTC.
type DateTimeValidator struct{}

func (DateTimeValidator) Validate(raw any) (any, error) {
	t, ok, err := toTime(raw, dateTimeLayouts, "Please enter a valid date and time")
	if err != nil || !ok {
		return nil, err
	}
	return t.UTC(), nil
}

func toTime(raw any, layouts []string, msg string) (time.Time, bool, error) {
	switch x := raw.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return x, true, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, false, nil
		}
		return *x, true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false, nil
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true, nil
			}
		}
	}
	return time.Time{}, false, NewFieldError(msg)
}

// EmailValidator accepts a bare address (no display name).
type EmailValidator struct {
	MaxLength int
}

func (v EmailValidator) Validate(raw any) (any, error) {
	s, ok, err := toText(raw)
	if err != nil || !ok {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return s, nil
	}
	if v.MaxLength > 0 && utf8.RuneCountInString(s) > v.MaxLength {
		return nil, NewFieldError("Please enter no more than " + strconv.Itoa(v.MaxLength) + " characters")
	}
	addr, perr := mail.ParseAddress(s)
	if perr != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@"):], ".") {
		return nil, NewFieldError("Please enter a valid email address")
	}
	return s, nil
}

var (
	zip5Re   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	zipExtRe = regexp.MustCompile(`^\d{4}$`)
)

// ZipCode5Validator accepts ZIP or ZIP+4 codes.
type ZipCode5Validator struct{}

func (ZipCode5Validator) Validate(raw any) (any, error) {
	return matchCode(raw, zip5Re, 5, "Please enter a valid zip code")
}

// ZipCodeExtValidator accepts the 4-digit ZIP+4 extension.
type ZipCodeExtValidator struct{}

func (ZipCodeExtValidator) Validate(raw any) (any, error) {
	return matchCode(raw, zipExtRe, 4, "Please enter a valid zip code extension")
}

func matchCode(raw any, re *regexp.Regexp, width int, msg string) (any, error) {
	var s string
	if n, ok, err := toInt64(raw); err == nil && ok {
		if _, isStr := raw.(string); !isStr {
			s = strconv.FormatInt(n, 10)
			for len(s) < width {
				s = "0" + s
			}
		}
	}
	if s == "" {
		t, ok, err := toText(raw)
		if err != nil || !ok {
			return nil, err
		}
		s = strings.TrimSpace(t)
	}
	if s == "" {
		return s, nil
	}
	if !re.MatchString(s) {
		return nil, NewFieldError(msg)
	}
	return s, nil
}

// PhoneValidator strips common punctuation and requires at most Length digits.
type PhoneValidator struct {
	Length int
}

func (v PhoneValidator) Validate(raw any) (any, error) {
	s, ok, err := toText(raw)
	if err != nil || !ok {
		return nil, err
	}
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '+':
			return -1
		}
		return r
	}, s)
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, NewFieldError("Please enter digits only")
		}
	}
	if v.Length > 0 && len(digits) > v.Length {
		return nil, NewFieldError("Please enter no more than " + strconv.Itoa(v.Length) + " digits")
	}
	return digits, nil
}

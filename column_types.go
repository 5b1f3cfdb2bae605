package ormbase

import "github.com/shopspring/decimal"

// Kind is the semantic kind of a column, layered over its storage type.
type Kind int

const (
	KindInteger Kind = iota
	KindBigInteger
	KindDecimal
	KindCurrency
	KindUnicode
	KindUnicodeText
	KindEnum
	KindDate
	KindTime
	KindDateTime
	KindBoolean
	KindType
	KindPhoneNumber
	KindPhoneExt
	KindEmail
	KindObjectID
	KindZipCode5
	KindZipCodeExt
)

var kindNames = [...]string{
	KindInteger:     "integer",
	KindBigInteger:  "biginteger",
	KindDecimal:     "decimal",
	KindCurrency:    "currency",
	KindUnicode:     "unicode",
	KindUnicodeText: "unicodetext",
	KindEnum:        "enum",
	KindDate:        "date",
	KindTime:        "time",
	KindDateTime:    "datetime",
	KindBoolean:     "boolean",
	KindType:        "type",
	KindPhoneNumber: "phone",
	KindPhoneExt:    "phoneext",
	KindEmail:       "email",
	KindObjectID:    "objectid",
	KindZipCode5:    "zip5",
	KindZipCodeExt:  "zipext",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// ColumnType pairs a storage representation with a validator.
// Scale is -1 when the type declares none.
type ColumnType struct {
	Kind        Kind
	Storage     FieldType
	Length      int
	Precision   int
	Scale       int
	Choices     []string
	TypeChoices map[int64]string
	Validator   Validator

	err error
}

// Err reports an option that could not be applied; Registry.Register
// surfaces it as a configuration error.
func (t *ColumnType) Err() error { return t.err }

type typeConfig struct {
	min, max  any
	validator Validator
	truncate  bool
	precision *int
	scale     *int
	rounding  Rounding
}

// TypeOption customizes a ColumnType constructor.
type TypeOption func(*typeConfig)

// Min sets the lower bound of numeric kinds.
func Min(v any) TypeOption { return func(c *typeConfig) { c.min = v } }

// Max sets the upper bound of numeric kinds.
func Max(v any) TypeOption { return func(c *typeConfig) { c.max = v } }

// WithValidator replaces the kind's default validator.
func WithValidator(v Validator) TypeOption { return func(c *typeConfig) { c.validator = v } }

// Truncate makes text kinds cut overlong input instead of rejecting it.
func Truncate() TypeOption { return func(c *typeConfig) { c.truncate = true } }

// Precision overrides the total digits of Decimal/Currency.
func Precision(p int) TypeOption { return func(c *typeConfig) { c.precision = &p } }

// Scale overrides the fractional digits of Decimal/Currency.
func Scale(s int) TypeOption { return func(c *typeConfig) { c.scale = &s } }

// WithRounding fits decimal input to the column scale.
func WithRounding(r Rounding) TypeOption { return func(c *typeConfig) { c.rounding = r } }

func applyTypeOptions(opts []TypeOption) *typeConfig {
	c := &typeConfig{}
	for _, o := range opts {
		o(c)
	}
	return c
}

func integerType(kind Kind, c *typeConfig) *ColumnType {
	t := &ColumnType{Kind: kind, Storage: TypeInt64, Scale: -1}
	if c.validator != nil {
		t.Validator = c.validator
		return t
	}
	v := IntegerValidator{}
	if c.min != nil {
		n, ok, err := toInt64(c.min)
		if err != nil || !ok {
			t.err = configErr("", "invalid integer minimum %v", c.min)
		}
		v.Min = &n
	}
	if c.max != nil {
		n, ok, err := toInt64(c.max)
		if err != nil || !ok {
			t.err = configErr("", "invalid integer maximum %v", c.max)
		}
		v.Max = &n
	}
	t.Validator = v
	return t
}

// Integer is a 64-bit integer column.
func Integer(opts ...TypeOption) *ColumnType {
	return integerType(KindInteger, applyTypeOptions(opts))
}

// BigInteger is an integer column stored as BIGINT.
func BigInteger(opts ...TypeOption) *ColumnType {
	return integerType(KindBigInteger, applyTypeOptions(opts))
}

// ObjectID holds the primary key of another record without a constraint.
func ObjectID(opts ...TypeOption) *ColumnType {
	c := applyTypeOptions(opts)
	c.min = int64(1)
	return integerType(KindObjectID, c)
}

func decimalType(kind Kind, precision, scale int, c *typeConfig) *ColumnType {
	if c.precision != nil {
		precision = *c.precision
	}
	if c.scale != nil {
		scale = *c.scale
	}
	t := &ColumnType{Kind: kind, Storage: TypeDecimal, Precision: precision, Scale: scale}
	if c.validator != nil {
		t.Validator = c.validator
		return t
	}
	v := DecimalValidator{Precision: int32(precision), Scale: int32(scale), Rounding: c.rounding}
	if c.min != nil {
		d, ok, err := toDecimal(c.min)
		if err != nil || !ok {
			t.err = configErr("", "invalid decimal minimum %v", c.min)
		}
		v.Min = &d
	}
	if c.max != nil {
		d, ok, err := toDecimal(c.max)
		if err != nil || !ok {
			t.err = configErr("", "invalid decimal maximum %v", c.max)
		}
		v.Max = &d
	}
	t.Validator = v
	return t
}

// Decimal is a fixed-point column, precision 10 and scale 2 by default.
func Decimal(opts ...TypeOption) *ColumnType {
	return decimalType(KindDecimal, 10, 2, applyTypeOptions(opts))
}

// Currency is a fixed-point column with precision 15 and no declared scale.
func Currency(opts ...TypeOption) *ColumnType {
	return decimalType(KindCurrency, 15, -1, applyTypeOptions(opts))
}

func textType(kind Kind, length int, v Validator, c *typeConfig) *ColumnType {
	t := &ColumnType{Kind: kind, Storage: TypeText, Length: length, Scale: -1}
	switch {
	case c.validator != nil:
		t.Validator = c.validator
	case v != nil:
		t.Validator = v
	default:
		t.Validator = UnicodeValidator{MaxLength: length, Truncate: c.truncate}
	}
	return t
}

// Unicode is a bounded text column; length 0 means unbounded.
func Unicode(length int, opts ...TypeOption) *ColumnType {
	return textType(KindUnicode, length, nil, applyTypeOptions(opts))
}

// UnicodeText is an unbounded text column.
func UnicodeText(opts ...TypeOption) *ColumnType {
	return textType(KindUnicodeText, 0, nil, applyTypeOptions(opts))
}

// Enum is a text column restricted to choices.
func Enum(choices []string, length int, opts ...TypeOption) *ColumnType {
	t := textType(KindEnum, length, EnumValidator{Choices: choices, MaxLength: length}, applyTypeOptions(opts))
	t.Choices = choices
	return t
}

// PhoneNumber holds up to 10 digits.
func PhoneNumber(opts ...TypeOption) *ColumnType {
	return textType(KindPhoneNumber, 10, PhoneValidator{Length: 10}, applyTypeOptions(opts))
}

// PhoneExt holds up to 6 digits.
func PhoneExt(opts ...TypeOption) *ColumnType {
	return textType(KindPhoneExt, 6, PhoneValidator{Length: 6}, applyTypeOptions(opts))
}

// Email holds an address of at most 255 characters.
func Email(opts ...TypeOption) *ColumnType {
	return textType(KindEmail, 255, EmailValidator{MaxLength: 255}, applyTypeOptions(opts))
}

// ZipCode5 holds a ZIP or ZIP+4 code.
func ZipCode5(opts ...TypeOption) *ColumnType {
	return textType(KindZipCode5, 10, ZipCode5Validator{}, applyTypeOptions(opts))
}

// ZipCodeExt holds the 4-digit ZIP+4 extension.
func ZipCodeExt(opts ...TypeOption) *ColumnType {
	return textType(KindZipCodeExt, 4, ZipCodeExtValidator{}, applyTypeOptions(opts))
}

func simpleType(kind Kind, storage FieldType, v Validator, c *typeConfig) *ColumnType {
	if c.validator != nil {
		v = c.validator
	}
	return &ColumnType{Kind: kind, Storage: storage, Scale: -1, Validator: v}
}

// Date holds a calendar date.
func Date(opts ...TypeOption) *ColumnType {
	return simpleType(KindDate, TypeDate, DateValidator{}, applyTypeOptions(opts))
}

// Time holds a time of day.
func Time(opts ...TypeOption) *ColumnType {
	return simpleType(KindTime, TypeTime, TimeValidator{}, applyTypeOptions(opts))
}

// DateTime holds a UTC instant.
func DateTime(opts ...TypeOption) *ColumnType {
	return simpleType(KindDateTime, TypeDateTime, DateTimeValidator{}, applyTypeOptions(opts))
}

// Boolean holds true/false.
func Boolean(opts ...TypeOption) *ColumnType {
	return simpleType(KindBoolean, TypeBool, BooleanValidator{}, applyTypeOptions(opts))
}

// Type is an integer column restricted to the keys of choices.
func Type(choices map[int64]string, opts ...TypeOption) *ColumnType {
	c := applyTypeOptions(opts)
	t := integerType(KindType, c)
	if c.validator == nil {
		t.Validator = TypeValidator{Choices: choices}
	}
	t.TypeChoices = choices
	return t
}

// formatScaled renders a number with exactly scale fractional digits.
func formatScaled(d decimal.Decimal, scale int) string {
	return d.StringFixed(int32(scale))
}

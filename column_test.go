package ormbase_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywasm/ormbase"
)

func TestInferServerDefault(t *testing.T) {
	cases := []struct {
		name string
		def  any
		typ  *ormbase.ColumnType
		want string
	}{
		{"true", true, ormbase.Boolean(), "'1'"},
		{"false", false, ormbase.Boolean(), "'0'"},
		{"nil", nil, ormbase.Integer(), "NULL"},
		{"utcnow", ormbase.UTCNow, ormbase.DateTime(), "CURRENT_TIMESTAMP"},
		{"int plain", 7, ormbase.Integer(), "'7'"},
		{"int with scale", 7, ormbase.Decimal(), "'7.00'"},
		{"float with scale", 1.5, ormbase.Decimal(), "'1.50'"},
		{"float without scale", 1.5, ormbase.Currency(), "'1.5'"},
		{"decimal", decimal.RequireFromString("3.1"), ormbase.Decimal(ormbase.Scale(3)), "'3.100'"},
		{"string", "it's", ormbase.Unicode(10), "'it''s'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ormbase.InferServerDefault(tc.def, tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.SQL)
		})
	}

	t.Run("unsupported object", func(t *testing.T) {
		_, err := ormbase.InferServerDefault(struct{ X int }{1}, ormbase.Integer())
		assert.ErrorIs(t, err, ormbase.ErrConfig)
	})

	t.Run("other generators", func(t *testing.T) {
		g := ormbase.NewGenerator("uuid", func() any { return "x" })
		_, err := ormbase.InferServerDefault(g, ormbase.Unicode(36))
		assert.ErrorIs(t, err, ormbase.ErrConfig)
	})
}

type plain struct{ ormbase.Base }

func registerOne(t *testing.T, cols ...ormbase.ColumnDef) (*ormbase.RecordType, error) {
	t.Helper()
	return ormbase.NewRegistry().Register(ormbase.TypeDef{
		Name:    "Thing",
		Columns: cols,
		New:     func() ormbase.Record { return &plain{} },
	})
}

func TestColumnDeclaration(t *testing.T) {
	t.Run("default infers persisted default at registration", func(t *testing.T) {
		rt, err := registerOne(t, ormbase.Col("enabled", ormbase.Boolean(), ormbase.NotNull(), ormbase.Default(false)))
		require.NoError(t, err)
		c := rt.Column("enabled")
		require.NotNil(t, c.ServerDefault)
		assert.Equal(t, "'0'", c.ServerDefault.SQL)
		assert.True(t, c.HasDefault())
		assert.Equal(t, "thing", c.Table().Name)
	})

	t.Run("unconvertible default fails registration", func(t *testing.T) {
		_, err := registerOne(t, ormbase.Col("data", ormbase.UnicodeText(), ormbase.Default([]int{1})))
		var cfg *ormbase.ConfigError
		require.True(t, errors.As(err, &cfg))
		assert.Equal(t, "Thing", cfg.Type)
	})

	t.Run("explicit persisted default is kept", func(t *testing.T) {
		rt, err := registerOne(t, ormbase.Col("n", ormbase.Integer(), ormbase.ServerDefault("1 + 1")))
		require.NoError(t, err)
		assert.Equal(t, "1 + 1", rt.Column("n").ServerDefault.SQL)
		assert.True(t, rt.Column("n").HasDefault())
	})

	t.Run("malformed persisted default is rejected", func(t *testing.T) {
		_, err := registerOne(t, ormbase.Col("n", ormbase.Integer(), ormbase.ServerDefault("1 +")))
		assert.ErrorIs(t, err, ormbase.ErrConfig)
	})

	t.Run("columns are nullable unless declared otherwise", func(t *testing.T) {
		rt, err := registerOne(t, ormbase.Col("a", ormbase.Integer()), ormbase.Col("b", ormbase.Integer(), ormbase.NotNull()))
		require.NoError(t, err)
		assert.True(t, rt.Column("a").Nullable)
		assert.False(t, rt.Column("b").Nullable)
		assert.True(t, rt.Column("b").Constraints().Has(ormbase.ConstraintNotNull))
	})

	t.Run("bad type option surfaces as configuration error", func(t *testing.T) {
		_, err := registerOne(t, ormbase.Col("n", ormbase.Integer(ormbase.Min("low"))))
		assert.ErrorIs(t, err, ormbase.ErrConfig)
	})

	t.Run("fixed lengths", func(t *testing.T) {
		assert.Equal(t, 10, ormbase.PhoneNumber().Length)
		assert.Equal(t, 6, ormbase.PhoneExt().Length)
		assert.Equal(t, 255, ormbase.Email().Length)
		assert.Equal(t, 10, ormbase.ZipCode5().Length)
		assert.Equal(t, 4, ormbase.ZipCodeExt().Length)
		assert.Equal(t, 2, ormbase.Decimal().Scale)
		assert.Equal(t, -1, ormbase.Currency().Scale)
	})
}

func TestKindNames(t *testing.T) {
	for _, k := range []ormbase.Kind{ormbase.KindInteger, ormbase.KindEnum, ormbase.KindZipCodeExt} {
		back, ok := ormbase.ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, back)
	}
	assert.Equal(t, "unknown", ormbase.Kind(-1).String())
	assert.Equal(t, "unknown", ormbase.Kind(1000).String())
	assert.Equal(t, "decimal", ormbase.TypeDecimal.String())
	assert.Equal(t, "unknown", ormbase.FieldType(-1).String())
}

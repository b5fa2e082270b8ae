package format

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyFormat(t *testing.T) {
	m, err := NewMoney("USD", "$", "en")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Code())

	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0"},
		{"600", "$600"},
		{"1234.5", "$1,235"},
		{"1234.49", "$1,234"},
		{"-600", "-$600"},
		{"-0.4", "$0"},
		{"1000000", "$1,000,000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Format(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestMoneyLocaleGrouping(t *testing.T) {
	m, err := NewMoney("EUR", "€", "it")
	require.NoError(t, err)
	assert.Equal(t, "€1.235", m.Format(decimal.RequireFromString("1234.5")))
}

func TestNewMoneyRejectsBadInput(t *testing.T) {
	_, err := NewMoney("DOLLARS", "$", "en")
	assert.Error(t, err)

	_, err = NewMoney("USD", "$", "not a locale")
	assert.Error(t, err)
}

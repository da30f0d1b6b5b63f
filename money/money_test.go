package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1.234.567", 1234567},
		{"Rp 1.234.567", 1234567},
		{"Rp1.000", 1000},
		{"  500000 ", 500000},
		{"-5.000", -5000},
		{"10.000,00", 10000},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "Rp", "12a", "1.000,50", "1,2,3", "99999999999999999999",
		"1.2.3", "1.0000", ".500", "1.000.", "1234.567"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0", Format(0))
	assert.Equal(t, "999", Format(999))
	assert.Equal(t, "1.234.567", Format(1234567))
	assert.Equal(t, "Rp 2.500.000", FormatRupiah(2500000))
	assert.Equal(t, "-Rp 5.000", FormatRupiah(-5000))
}

func TestParseFormat_RoundTrip(t *testing.T) {
	for _, n := range []int64{1, 1000, 15000000, 987654321} {
		got, err := Parse(FormatRupiah(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

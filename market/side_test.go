package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"Buy", Buy, false},
		{"buy", Buy, false},
		{"LONG", Buy, false},
		{"Sell", Sell, false},
		{"short", Sell, false},
		{" SELL ", Sell, false},
		{"hold", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		assert.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestSideSign(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, Buy.Sign())
	assert.Equal(t, -1.0, Sell.Sign())
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

func TestWholeUnit(t *testing.T) {
	t.Parallel()

	assert.True(t, WholeUnit("DOGEUSDT"))
	assert.True(t, WholeUnit("xrpusdt"))
	assert.False(t, WholeUnit("BTCUSDT"))
}

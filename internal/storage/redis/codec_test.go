package redis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
)

func TestEncodeDecodeBar_KeepsNaN(t *testing.T) {
	in := domain.Bar{Open: math.NaN(), High: 1.25, Low: 0.5, Close: 1e-9, Volume: 0}

	out, err := decodeBar(encodeBar(in))
	require.NoError(t, err)

	assert.True(t, math.IsNaN(out.Open))
	assert.Equal(t, 1.25, out.High)
	assert.Equal(t, 0.5, out.Low)
	assert.Equal(t, 1e-9, out.Close)
	assert.Equal(t, 0.0, out.Volume)
}

func TestDecodeBar_Malformed(t *testing.T) {
	_, err := decodeBar("1,2,3")
	assert.Error(t, err)

	_, err = decodeBar("1,2,3,x,5")
	assert.Error(t, err)
}

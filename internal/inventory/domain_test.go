package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextAverageCost(t *testing.T) {
	t.Run("blends into existing stock", func(t *testing.T) {
		avg := 5.0
		got := NextAverageCost(&avg, 10, 7, 5)
		require.InDelta(t, 85.0/15.0, got, 1e-9)
	})

	t.Run("empty item takes the purchase price", func(t *testing.T) {
		avg := 5.0
		require.Equal(t, 7.0, NextAverageCost(&avg, 0, 7, 5))
		require.Equal(t, 7.0, NextAverageCost(nil, 0, 7, 5))
	})

	t.Run("nil average treated as zero cost", func(t *testing.T) {
		got := NextAverageCost(nil, 10, 6, 5)
		require.InDelta(t, 30.0/15.0, got, 1e-9)
	})
}

func TestProfit(t *testing.T) {
	t.Run("uses the unrounded average", func(t *testing.T) {
		avg := 85.0 / 15.0
		require.Equal(t, 19.0, Profit(12, &avg, 3))
	})

	t.Run("falls back to full price without a cost basis", func(t *testing.T) {
		require.Equal(t, 36.0, Profit(12, nil, 3))
	})

	t.Run("negative margin stays negative", func(t *testing.T) {
		avg := 15.0
		require.Equal(t, -9.0, Profit(12, &avg, 3))
	})
}

func TestRound2(t *testing.T) {
	require.Equal(t, 19.0, Round2(19.000000000000004))
	require.Equal(t, 0.13, Round2(0.125))
	require.Equal(t, -2.5, Round2(-2.504))
}

package chain

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func reveal32(value uint64) []byte {
	b := make([]byte, 32)
	binary.LittleEndian.PutUint64(b, value)
	b[31] = 0xff
	return b
}

func TestResolveWinner(t *testing.T) {
	prizeMap := []int64{7, 3, 9, 1}

	t.Run("maps the revealed value to a slot", func(t *testing.T) {
		// 10 % 4 = 2，命中第三个槽位
		idx, prizeId, err := ResolveWinner(reveal32(10), 4, prizeMap)
		require.NoError(t, err)
		require.Equal(t, uint64(2), idx)
		require.Equal(t, int64(9), prizeId)
	})

	t.Run("is deterministic", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			idx, prizeId, err := ResolveWinner(reveal32(10), 4, prizeMap)
			require.NoError(t, err)
			require.Equal(t, uint64(2), idx)
			require.Equal(t, int64(9), prizeId)
		}
	})

	t.Run("uses little endian byte order", func(t *testing.T) {
		// 前 8 字节为 [1,0,0,0,0,0,0,0]，小端序读出 1 而不是 2^56
		b := make([]byte, 32)
		b[0] = 1
		idx, prizeId, err := ResolveWinner(b, 4, prizeMap)
		require.NoError(t, err)
		require.Equal(t, uint64(1), idx)
		require.Equal(t, int64(3), prizeId)
	})

	t.Run("rejects unrevealed value", func(t *testing.T) {
		_, _, err := ResolveWinner(make([]byte, 32), 4, prizeMap)
		require.ErrorIs(t, err, ErrNotRevealed)
	})

	t.Run("rejects short value", func(t *testing.T) {
		_, _, err := ResolveWinner([]byte{1, 2, 3}, 4, prizeMap)
		require.ErrorIs(t, err, ErrNotRevealed)
	})

	t.Run("rejects zero slots", func(t *testing.T) {
		_, _, err := ResolveWinner(reveal32(10), 0, nil)
		require.Error(t, err)
	})

	t.Run("rejects mismatched prize map", func(t *testing.T) {
		_, _, err := ResolveWinner(reveal32(10), 5, prizeMap)
		require.Error(t, err)
	})
}

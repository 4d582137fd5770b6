//go:build unit

package wol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicPacket(t *testing.T) {
	t.Run("ValidMAC", func(t *testing.T) {
		packet, err := MagicPacket("aa:bb:cc:dd:ee:ff")
		require.NoError(t, err)
		require.Len(t, packet, PacketSize)

		// Synchronization stream
		for i := 0; i < 6; i++ {
			assert.Equal(t, byte(0xFF), packet[i])
		}

		// MAC repeated 16 times
		mac := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
		for rep := 0; rep < 16; rep++ {
			offset := 6 + rep*6
			assert.Equal(t, mac, packet[offset:offset+6])
		}
	})

	t.Run("InvalidMAC", func(t *testing.T) {
		_, err := MagicPacket("not-a-mac")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid mac address")
	})

	t.Run("EUI64Rejected", func(t *testing.T) {
		_, err := MagicPacket("01:23:45:67:89:ab:cd:ef")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must be 6 octets")
	})
}

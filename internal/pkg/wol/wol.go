// Package wol builds Wake-on-LAN magic packets.
package wol

import (
	"bytes"
	"fmt"
	"net"
)

// PacketSize is the length of a magic packet: a 6-byte synchronization
// stream followed by the target MAC repeated 16 times.
const PacketSize = 6 + 16*6

// MagicPacket builds the magic packet for the given hardware address.
// Only 6-octet (EUI-48) addresses are accepted.
func MagicPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("invalid mac address %q: %w", mac, err)
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("mac address %q must be 6 octets, got %d", mac, len(hw))
	}

	var buf bytes.Buffer
	buf.Grow(PacketSize)
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	for i := 0; i < 16; i++ {
		buf.Write(hw)
	}
	return buf.Bytes(), nil
}

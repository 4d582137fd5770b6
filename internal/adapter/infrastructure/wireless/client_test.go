//go:build unit

package wireless

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClientAdapter(t *testing.T) {
	adapter := NewClientAdapter()
	assert.NotNil(t, adapter)
}

func TestParseStatus(t *testing.T) {
	t.Run("Associated", func(t *testing.T) {
		out := "bssid=aa:bb:cc:dd:ee:ff\nfreq=5180\nssid=home-main\nid=0\nmode=station\nwpa_state=COMPLETED\nip_address=192.168.10.50\n"

		status := parseStatus(out)
		assert.True(t, status.Associated)
		assert.Equal(t, "home-main", status.SSID)
	})

	t.Run("Scanning", func(t *testing.T) {
		out := "wpa_state=SCANNING\np2p_device_address=aa:bb:cc:dd:ee:ff\n"

		status := parseStatus(out)
		assert.False(t, status.Associated)
		assert.Empty(t, status.SSID)
	})

	t.Run("EmptyOutput", func(t *testing.T) {
		status := parseStatus("")
		assert.False(t, status.Associated)
		assert.Empty(t, status.SSID)
	})
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"home-main"`, quote("home-main"))
}

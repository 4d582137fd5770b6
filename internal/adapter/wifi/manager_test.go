//go:build unit

package wifi

import (
	"context"
	"testing"

	"github.com/kazu-1234/SmartPowerManager/internal/mock"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"
	"github.com/kazu-1234/SmartPowerManager/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testWiFiConfig() *config.WiFiConfig {
	return &config.WiFiConfig{
		Interface: "lo",
		Networks: []config.WiFiNetwork{
			{SSID: "home-main", PSK: "secret1"},
			{SSID: "home-fallback", PSK: "secret2"},
		},
	}
}

func TestNewManager(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	wireless := mock.NewMockWirelessClient(ctrl)
	networkMgr := mock.NewMockNetworkManager(ctrl)

	t.Run("ValidConfig", func(t *testing.T) {
		manager, err := NewManager(testWiFiConfig(), wireless, networkMgr)
		require.NoError(t, err)
		assert.Equal(t, "lo", manager.Name())
		assert.Len(t, manager.networks, 2)
	})

	t.Run("InvalidInterface", func(t *testing.T) {
		cfg := testWiFiConfig()
		cfg.Interface = "nonexistent"

		_, err := NewManager(cfg, wireless, networkMgr)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "interface not found")
	})

	t.Run("NoNetworks", func(t *testing.T) {
		cfg := &config.WiFiConfig{Interface: "lo"}

		_, err := NewManager(cfg, wireless, networkMgr)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no networks")
	})
}

func TestManager_associate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	wireless := mock.NewMockWirelessClient(ctrl)
	networkMgr := mock.NewMockNetworkManager(ctrl)

	manager, err := NewManager(testWiFiConfig(), wireless, networkMgr)
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("FirstNetworkSucceeds", func(t *testing.T) {
		wireless.EXPECT().
			Connect(ctx, "lo", "home-main", "secret1").
			Return(nil)

		wireless.EXPECT().
			Status(ctx, "lo").
			Return(port.WirelessStatus{Associated: true, SSID: "home-main"}, nil)

		ssid, err := manager.associate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "home-main", ssid)
	})

	t.Run("FallsBackToSecondNetwork", func(t *testing.T) {
		// First credential fails to even start associating
		wireless.EXPECT().
			Connect(ctx, "lo", "home-main", "secret1").
			Return(assert.AnError)

		wireless.EXPECT().
			Connect(ctx, "lo", "home-fallback", "secret2").
			Return(nil)

		wireless.EXPECT().
			Status(ctx, "lo").
			Return(port.WirelessStatus{Associated: true, SSID: "home-fallback"}, nil)

		ssid, err := manager.associate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "home-fallback", ssid)
	})

	t.Run("AllNetworksFail", func(t *testing.T) {
		wireless.EXPECT().
			Connect(ctx, "lo", "home-main", "secret1").
			Return(assert.AnError)

		wireless.EXPECT().
			Connect(ctx, "lo", "home-fallback", "secret2").
			Return(assert.AnError)

		_, err := manager.associate(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no configured network could be joined")
	})

	t.Run("StatusErrorMovesToNextNetwork", func(t *testing.T) {
		wireless.EXPECT().
			Connect(ctx, "lo", "home-main", "secret1").
			Return(nil)

		wireless.EXPECT().
			Status(ctx, "lo").
			Return(port.WirelessStatus{}, assert.AnError)

		wireless.EXPECT().
			Disconnect(ctx, "lo").
			Return(nil)

		wireless.EXPECT().
			Connect(ctx, "lo", "home-fallback", "secret2").
			Return(nil)

		wireless.EXPECT().
			Status(ctx, "lo").
			Return(port.WirelessStatus{Associated: true, SSID: "home-fallback"}, nil)

		ssid, err := manager.associate(ctx)
		require.NoError(t, err)
		assert.Equal(t, "home-fallback", ssid)
	})
}

func TestManager_monitor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	wireless := mock.NewMockWirelessClient(ctrl)
	networkMgr := mock.NewMockNetworkManager(ctrl)

	manager, err := NewManager(testWiFiConfig(), wireless, networkMgr)
	require.NoError(t, err)

	t.Run("ReturnsWhenAssociationLost", func(t *testing.T) {
		ctx := context.Background()

		wireless.EXPECT().
			Status(gomock.Any(), "lo").
			Return(port.WirelessStatus{Associated: false}, nil)

		err := manager.monitor(ctx, "home-main")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "association with home-main lost")
	})

	t.Run("ReturnsWhenRoamed", func(t *testing.T) {
		ctx := context.Background()

		wireless.EXPECT().
			Status(gomock.Any(), "lo").
			Return(port.WirelessStatus{Associated: true, SSID: "home-fallback"}, nil)

		err := manager.monitor(ctx, "home-main")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "roamed")
	})

	t.Run("StopsOnContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := manager.monitor(ctx, "home-main")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

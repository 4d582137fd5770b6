//go:build unit

package timesync

import (
	"context"
	"testing"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/mock"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNewManager(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockNTPClient(ctrl)

	t.Run("ValidConfig", func(t *testing.T) {
		manager, err := NewManager(&config.NTPConfig{
			Server:       "ntp.nict.jp",
			SyncInterval: config.Duration(time.Hour),
		}, client)
		require.NoError(t, err)
		assert.Equal(t, "timesync", manager.Name())
		assert.Equal(t, time.Hour, manager.interval)
	})

	t.Run("DefaultInterval", func(t *testing.T) {
		manager, err := NewManager(&config.NTPConfig{Server: "ntp.nict.jp"}, client)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultSyncInterval.Std(), manager.interval)
	})

	t.Run("MissingServer", func(t *testing.T) {
		_, err := NewManager(&config.NTPConfig{}, client)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ntp server is not configured")
	})
}

func TestManager_syncOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockNTPClient(ctrl)

	manager, err := NewManager(&config.NTPConfig{Server: "ntp.nict.jp"}, client)
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("SuccessfulSync", func(t *testing.T) {
		now := time.Now()
		resp := &ntp.Response{
			Time:          now,
			ReferenceTime: now,
			ClockOffset:   10 * time.Millisecond,
			Stratum:       2,
		}

		client.EXPECT().
			Query(ctx, "ntp.nict.jp").
			Return(resp, nil)

		err := manager.syncOnce(ctx)
		assert.NoError(t, err)
	})

	t.Run("QueryFailure", func(t *testing.T) {
		client.EXPECT().
			Query(ctx, "ntp.nict.jp").
			Return(nil, assert.AnError)

		err := manager.syncOnce(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ntp query failed")
	})

	t.Run("KissOfDeathRejected", func(t *testing.T) {
		now := time.Now()
		resp := &ntp.Response{
			Time:          now,
			ReferenceTime: now,
			Stratum:       0, // kiss-of-death
		}

		client.EXPECT().
			Query(ctx, "ntp.nict.jp").
			Return(resp, nil)

		err := manager.syncOnce(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ntp response rejected")
	})
}

func TestManager_Run_StopsOnCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mock.NewMockNTPClient(ctrl)

	manager, err := NewManager(&config.NTPConfig{Server: "ntp.nict.jp"}, client)
	require.NoError(t, err)

	// The initial sync timer may still fire before the cancellation is seen
	client.EXPECT().
		Query(gomock.Any(), "ntp.nict.jp").
		Return(nil, assert.AnError).
		AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = manager.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

//go:build unit

package wake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/mock"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/config"
	"github.com/kazu-1234/SmartPowerManager/internal/pkg/wol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// commandServer is a fake command endpoint recording acknowledgements.
type commandServer struct {
	mu       sync.Mutex
	commands []command
	acks     []acknowledgement
}

func (s *commandServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(envelope{Commands: s.commands})
		case http.MethodPost:
			var ack acknowledgement
			if err := json.NewDecoder(r.Body).Decode(&ack); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			s.acks = append(s.acks, ack)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (s *commandServer) recordedAcks() []acknowledgement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]acknowledgement(nil), s.acks...)
}

func testWakeConfig(pollURL string) *config.WakeConfig {
	return &config.WakeConfig{
		PollURL:      pollURL,
		PollInterval: config.Duration(time.Second),
		Targets: []config.WakeTarget{
			{Name: "desktop", MAC: "aa:bb:cc:dd:ee:ff", Broadcast: "192.168.10.255", Port: 9},
		},
	}
}

func TestNewManager(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mock.NewMockWakeTransport(ctrl)

	t.Run("ValidConfig", func(t *testing.T) {
		manager, err := NewManager(testWakeConfig("http://example.com/exec"), transport)
		require.NoError(t, err)
		assert.Equal(t, "wake", manager.Name())
		assert.Len(t, manager.targets, 1)
	})

	t.Run("MissingPollURL", func(t *testing.T) {
		cfg := testWakeConfig("")
		_, err := NewManager(cfg, transport)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "poll URL is not configured")
	})

	t.Run("NoTargets", func(t *testing.T) {
		cfg := testWakeConfig("http://example.com/exec")
		cfg.Targets = nil
		_, err := NewManager(cfg, transport)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no wake targets configured")
	})
}

func TestManager_pollOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mock.NewMockWakeTransport(ctrl)
	ctx := context.Background()

	t.Run("WakeCommandSendsPacketAndAcks", func(t *testing.T) {
		server := &commandServer{commands: []command{{ID: "cmd-1", Action: "wake", Target: "desktop"}}}
		ts := httptest.NewServer(server.handler())
		defer ts.Close()

		manager, err := NewManager(testWakeConfig(ts.URL), transport)
		require.NoError(t, err)

		expectedPacket, err := wol.MagicPacket("aa:bb:cc:dd:ee:ff")
		require.NoError(t, err)

		transport.EXPECT().
			Broadcast(ctx, expectedPacket, "192.168.10.255:9").
			Return(nil)

		err = manager.pollOnce(ctx)
		require.NoError(t, err)

		acks := server.recordedAcks()
		require.Len(t, acks, 1)
		assert.Equal(t, "cmd-1", acks[0].ID)
		assert.Equal(t, StatusSent, acks[0].Status)
	})

	t.Run("DuplicateCommandNotResent", func(t *testing.T) {
		server := &commandServer{commands: []command{{ID: "cmd-2", Action: "wake", Target: "desktop"}}}
		ts := httptest.NewServer(server.handler())
		defer ts.Close()

		manager, err := NewManager(testWakeConfig(ts.URL), transport)
		require.NoError(t, err)

		transport.EXPECT().
			Broadcast(ctx, gomock.Any(), "192.168.10.255:9").
			Return(nil).
			Times(1)

		require.NoError(t, manager.pollOnce(ctx))
		require.NoError(t, manager.pollOnce(ctx))

		acks := server.recordedAcks()
		require.Len(t, acks, 2)
		assert.Equal(t, StatusSent, acks[0].Status)
		assert.Equal(t, StatusDuplicate, acks[1].Status)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		server := &commandServer{commands: []command{{ID: "cmd-3", Action: "wake", Target: "toaster"}}}
		ts := httptest.NewServer(server.handler())
		defer ts.Close()

		manager, err := NewManager(testWakeConfig(ts.URL), transport)
		require.NoError(t, err)

		// No Broadcast expected

		require.NoError(t, manager.pollOnce(ctx))

		acks := server.recordedAcks()
		require.Len(t, acks, 1)
		assert.Equal(t, StatusUnknownTarget, acks[0].Status)
	})

	t.Run("UnsupportedAction", func(t *testing.T) {
		server := &commandServer{commands: []command{{ID: "cmd-4", Action: "reboot", Target: "desktop"}}}
		ts := httptest.NewServer(server.handler())
		defer ts.Close()

		manager, err := NewManager(testWakeConfig(ts.URL), transport)
		require.NoError(t, err)

		require.NoError(t, manager.pollOnce(ctx))

		acks := server.recordedAcks()
		require.Len(t, acks, 1)
		assert.Equal(t, StatusUnsupported, acks[0].Status)
	})

	t.Run("BroadcastFailureReported", func(t *testing.T) {
		server := &commandServer{commands: []command{{ID: "cmd-5", Action: "wake", Target: "desktop"}}}
		ts := httptest.NewServer(server.handler())
		defer ts.Close()

		manager, err := NewManager(testWakeConfig(ts.URL), transport)
		require.NoError(t, err)

		transport.EXPECT().
			Broadcast(ctx, gomock.Any(), "192.168.10.255:9").
			Return(assert.AnError)

		require.NoError(t, manager.pollOnce(ctx))

		acks := server.recordedAcks()
		require.Len(t, acks, 1)
		assert.Equal(t, StatusFailed, acks[0].Status)
	})

	t.Run("ProbeConfirmsTargetAwake", func(t *testing.T) {
		server := &commandServer{commands: []command{{ID: "cmd-6", Action: "wake", Target: "desktop"}}}
		ts := httptest.NewServer(server.handler())
		defer ts.Close()

		cfg := testWakeConfig(ts.URL)
		cfg.Targets[0].ProbeURL = "http://192.168.10.20:8080/health"

		manager, err := NewManager(cfg, transport)
		require.NoError(t, err)

		transport.EXPECT().
			Broadcast(ctx, gomock.Any(), "192.168.10.255:9").
			Return(nil)

		transport.EXPECT().
			Probe(ctx, "http://192.168.10.20:8080/health").
			Return(nil)

		require.NoError(t, manager.pollOnce(ctx))

		acks := server.recordedAcks()
		require.Len(t, acks, 1)
		assert.Equal(t, StatusAwake, acks[0].Status)
	})

	t.Run("EndpointError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		manager, err := NewManager(testWakeConfig(ts.URL), transport)
		require.NoError(t, err)

		err = manager.pollOnce(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "returned status 500")
	})
}

func TestManager_pruneSeen(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mock.NewMockWakeTransport(ctrl)

	manager, err := NewManager(testWakeConfig("http://example.com/exec"), transport)
	require.NoError(t, err)

	now := time.Now()
	manager.seen["old"] = now.Add(-2 * time.Hour)
	manager.seen["recent"] = now.Add(-time.Minute)

	manager.pruneSeen(now)

	assert.NotContains(t, manager.seen, "old")
	assert.Contains(t, manager.seen, "recent")
}

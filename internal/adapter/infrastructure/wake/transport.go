// Package wake provides a wake transport adapter implementation.
package wake

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/port"
)

const (
	dialTimeout  = 3 * time.Second
	probeTimeout = 5 * time.Second
)

// TransportAdapter is an adapter that implements the WakeTransport port
// using UDP datagrams for magic packets and HTTP for wake verification.
type TransportAdapter struct {
	httpClient *http.Client
}

// Ensure TransportAdapter implements the WakeTransport port
var _ port.WakeTransport = (*TransportAdapter)(nil)

// NewTransportAdapter creates a new wake transport adapter.
func NewTransportAdapter() *TransportAdapter {
	return &TransportAdapter{
		httpClient: &http.Client{Timeout: probeTimeout},
	}
}

// Broadcast sends the payload as a single UDP datagram to addr.
func (t *TransportAdapter) Broadcast(ctx context.Context, payload []byte, addr string) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("failed to open UDP socket to %s: %w", addr, err)
	}
	defer conn.Close()

	n, err := conn.Write(payload)
	if err != nil {
		return fmt.Errorf("failed to send datagram to %s: %w", addr, err)
	}
	if n != len(payload) {
		return fmt.Errorf("short write to %s: sent %d of %d bytes", addr, n, len(payload))
	}
	return nil
}

// Probe checks whether the target answers on the given URL. Any HTTP
// response counts as the target being up.
func (t *TransportAdapter) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe of %s failed: %w", url, err)
	}
	resp.Body.Close()
	return nil
}

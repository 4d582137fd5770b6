// Package ntp provides an NTP client adapter implementation.
package ntp

import (
	"context"
	"fmt"
	"time"

	"github.com/kazu-1234/SmartPowerManager/internal/port"

	"github.com/beevik/ntp"
)

const queryTimeout = 5 * time.Second

// ClientAdapter is an adapter that implements the NTPClient port using the
// beevik/ntp library.
type ClientAdapter struct{}

// Ensure ClientAdapter implements the NTPClient port
var _ port.NTPClient = (*ClientAdapter)(nil)

// NewClientAdapter creates a new NTP client adapter.
func NewClientAdapter() *ClientAdapter {
	return &ClientAdapter{}
}

// Query asks the server for the current time and clock offset.
func (c *ClientAdapter) Query(ctx context.Context, server string) (*ntp.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: queryTimeout})
	if err != nil {
		return nil, fmt.Errorf("ntp query to %s failed: %w", server, err)
	}
	return resp, nil
}

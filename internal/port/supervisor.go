// Package port defines the primary ports (interfaces) for the application.
// This follows the Ports and Adapters (Hexagonal Architecture) pattern.
package port

import (
	"context"
)

//go:generate mockgen -source=supervisor.go -destination=../mock/mock_supervisor.go -package=mock

// Supervisor is the primary port for the long-running components of the
// daemon. Each adapter (WiFi association, DHCP, static addressing, time
// synchronization, wake-command polling) implements this contract and is
// run concurrently by the serve command.
type Supervisor interface {
	// Run starts the component and runs until the context is cancelled.
	// It returns an error if the component fails or if the context is
	// cancelled.
	Run(ctx context.Context) error

	// Name returns a short identifier for the component, used in logs.
	Name() string
}

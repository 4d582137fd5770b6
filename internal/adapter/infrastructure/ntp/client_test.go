//go:build unit

package ntp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClientAdapter(t *testing.T) {
	adapter := NewClientAdapter()
	assert.NotNil(t, adapter)
}

func TestClientAdapter_Query_CancelledContext(t *testing.T) {
	adapter := NewClientAdapter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.Query(ctx, "ntp.nict.jp")
	assert.ErrorIs(t, err, context.Canceled)
}

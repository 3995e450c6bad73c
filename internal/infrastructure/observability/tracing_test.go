package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/infrastructure/observability"
)

func TestSetupTracing_SinEndpointEsNoOp(t *testing.T) {
	shutdown, err := observability.SetupTracing(context.Background(), observability.TracingConfig{ServiceName: "pos-ledger"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_ConEndpoint(t *testing.T) {
	shutdown, err := observability.SetupTracing(context.Background(), observability.TracingConfig{
		ServiceName: "pos-ledger", Endpoint: "localhost:4318", Insecure: true,
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// sin spans pendientes el cierre no contacta al colector
	_ = shutdown(ctx)
}

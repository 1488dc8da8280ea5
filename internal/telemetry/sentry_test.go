package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WithoutDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NotPanics(t, func() {
		shutdown()
		CaptureError(context.Background(), errors.New("boom"))
		Degraded(context.Background(), "speech", errors.New("down"))
	})
}

func TestWithHub_ReusesExistingHub(t *testing.T) {
	ctx, hub := WithHub(context.Background())
	require.NotNil(t, hub)
	assert.Same(t, hub, sentry.GetHubFromContext(ctx))

	again, sameHub := WithHub(ctx)
	assert.Same(t, hub, sameHub)
	assert.Equal(t, ctx, again)
}

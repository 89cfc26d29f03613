package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assessment-api/pkg/config"
)

func TestInitTracingDisabledReturnsNoop(t *testing.T) {
	shutdown := InitTracing(context.Background(), config.TracingConfig{}, config.EnvDevelopment, zap.NewNop())
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingStdoutExporter(t *testing.T) {
	cfg := config.TracingConfig{Enabled: true, ServiceName: "assessment-test", SampleRatio: 1}
	shutdown := InitTracing(context.Background(), cfg, config.EnvDevelopment, nil)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

package logging

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"chatty", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestWithLambda_AddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
		AwsRequestID: "req-123",
	})

	WithLambda(ctx, zap.New(core)).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-123", logs.All()[0].ContextMap()["aws_request_id"])
}

func TestWithLambda_WithoutLambdaContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	WithLambda(context.Background(), zap.New(core)).Info("hello")

	require.Equal(t, 1, logs.Len())
	_, ok := logs.All()[0].ContextMap()["aws_request_id"]
	assert.False(t, ok)
}

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildAuthMiddlewareDevWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	mw, err := buildAuthMiddleware(context.Background(), " DEV ", zap.New(core))
	require.NoError(t, err)
	require.NotNil(t, mw)
	require.Equal(t, 1, logs.Len())
}

func TestBuildAuthMiddlewareRejectsUnknownProvider(t *testing.T) {
	_, err := buildAuthMiddleware(context.Background(), "basic", zap.NewNop())
	require.ErrorContains(t, err, "unsupported auth provider")
}

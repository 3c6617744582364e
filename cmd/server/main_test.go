package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/adreports/internal/config"
)

func TestRunRejectsInvalidConfig(t *testing.T) {
	err := run(context.Background(), zap.NewNop(), config.Config{AIProvider: "mistral", AIMaxTokens: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestServeReturnsListenError(t *testing.T) {
	srv := &http.Server{}
	err := serve(context.Background(), srv, func() error { return errors.New("address in use") })
	assert.EqualError(t, err, "listen: address in use")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.NotFoundHandler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, func() error { return srv.Serve(ln) }) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

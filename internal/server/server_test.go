package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerLifecycle(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	srv := New(handler, "0", nil)
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err, ok := <-srv.Errors():
		assert.False(t, ok, "unexpected serve error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve loop did not stop")
	}
}

func TestServerStartBindError(t *testing.T) {
	first := New(http.NotFoundHandler(), "0", nil)
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background())

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)

	second := New(http.NotFoundHandler(), port, nil)
	assert.Error(t, second.Start())
}

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

	"zlibsearch/internal/config"
	"zlibsearch/internal/search"
)

func testServerConfig(port int) config.ServerConfig {
	return config.ServerConfig{
		ComponentConfig:   config.ComponentConfig{Host: "127.0.0.1", Port: port},
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   2 * time.Second,
	}
}

func TestServeAndShutdown(t *testing.T) {
	engine := search.EngineFunc(func(context.Context, string, uint) ([]search.Book, error) {
		return []search.Book{{ID: 1, Title: "Dune"}}, nil
	})
	srv := New(testServerConfig(0), newTestRouter(engine), nil)

	ln, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	res, err := http.Get(base + "/search?query=dune")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"books":[{"id":1,"title":"Dune","author":"","publisher":"","extension":"","filesize":0,"language":"","year":0,"pages":0,"isbn":"","ipfs_cid":""}]}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListenFailsOnBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	_, err = New(testServerConfig(port), http.NotFoundHandler(), nil).Listen()
	assert.Error(t, err)
}

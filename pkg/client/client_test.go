package client_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelbridge/pixelbridge/internal/config"
	"github.com/pixelbridge/pixelbridge/internal/dispatch"
	"github.com/pixelbridge/pixelbridge/internal/engine"
	"github.com/pixelbridge/pixelbridge/internal/handle"
	"github.com/pixelbridge/pixelbridge/internal/server"
	"github.com/pixelbridge/pixelbridge/pkg/client"
)

func startServer(t *testing.T) *server.Server {
	t.Helper()
	handles := handle.NewTable(time.Minute)
	t.Cleanup(handles.Close)
	table, err := dispatch.NewTable(engine.New().Root(), handles)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.Port = 0
	s := server.New(cfg, table)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func TestDialRefused(t *testing.T) {
	// Reserved port with nothing listening.
	_, err := client.Dial("127.0.0.1:1")
	assert.Error(t, err)
}

func TestCallAPI(t *testing.T) {
	s := startServer(t)
	c, err := client.Dial(s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	raw, err := c.CallAPI("version", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"1.2.0"`, string(raw))

	var ref handle.Ref
	require.NoError(t, c.CallAPIInto(&ref, "Image.new", []any{320, 240, 0}, nil))
	var height int
	require.NoError(t, c.CallAPIInto(&height, "Image.get_height", nil, map[string]any{"image": ref.Handle}))
	assert.Equal(t, 240, height)
}

func TestCallAPIError(t *testing.T) {
	s := startServer(t)
	c, err := client.Dial(s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.CallAPI("nowhere.at_all", nil, nil)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "resolution_error", apiErr.Type)
	assert.Contains(t, apiErr.Error(), "resolution_error: ")

	// The connection survives an API error.
	_, err = c.CallAPI("version", nil, nil)
	assert.NoError(t, err)
}

func TestShutdown(t *testing.T) {
	s := startServer(t)
	c, err := client.Dial(s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Shutdown())
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

// Package client implements a Go client for the pixelbridge command socket.
// One client owns one connection and issues sequential command/response
// exchanges; responses arrive in the order commands were sent.
package client

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/pixelbridge/pixelbridge/pkg/protocol"
)

// DefaultAddr is the daemon's documented default listen address.
const DefaultAddr = "127.0.0.1:9876"

// APIError is a server-side error response surfaced to the caller.
type APIError struct {
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Client talks to a pixelbridge server over one TCP connection.
type Client struct {
	conn net.Conn
	fr   *protocol.FrameReader
}

// Dial connects to addr. An empty addr uses DefaultAddr.
func Dial(addr string) (*Client, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{
		conn: conn,
		fr:   protocol.NewFrameReader(conn, 0),
	}, nil
}

// CallAPI invokes the operation at apiPath with positional args and named
// kwargs and returns the raw result. Server-side failures come back as
// *APIError; transport failures as plain errors.
func (c *Client) CallAPI(apiPath string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	params, err := json.Marshal(protocol.CallParams{APIPath: apiPath, Args: args, Kwargs: kwargs})
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(&protocol.Command{Type: protocol.TypeCallAPI, Params: params})
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// CallAPIInto invokes apiPath and decodes the result into out.
func (c *Client) CallAPIInto(out any, apiPath string, args []any, kwargs map[string]any) error {
	raw, err := c.CallAPI(apiPath, args, kwargs)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Shutdown asks the server to stop after acknowledging.
func (c *Client) Shutdown() error {
	_, err := c.roundTrip(&protocol.Command{Type: protocol.TypeShutdown})
	return err
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(cmd *protocol.Command) (*protocol.Response, error) {
	frame, err := protocol.EncodeFrame(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	payload, err := c.fr.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != protocol.StatusSuccess {
		return nil, &APIError{Type: resp.ErrorType, Message: resp.Message}
	}
	return &resp, nil
}

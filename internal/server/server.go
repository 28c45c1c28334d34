// Package server implements the pixelbridge command server: a loopback TCP
// listener that decodes framed JSON commands, routes call_api invocations
// through the engine-affine executor, and writes structured responses.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/pixelbridge/pixelbridge/internal/config"
	"github.com/pixelbridge/pixelbridge/internal/dispatch"
	"github.com/pixelbridge/pixelbridge/internal/logger"
	"github.com/pixelbridge/pixelbridge/pkg/protocol"
)

// State is the server lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateServing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateServing:
		return "serving"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Server owns the listening socket and connection set. It holds no business
// state: every successful call_api mutates the host engine, nothing here.
type Server struct {
	cfg     *config.Config
	invoker Invoker
	log     *log.Logger

	mu       sync.Mutex
	state    State
	stopping bool
	ln       net.Listener
	exec     *Executor
	conns    map[*conn]struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

type conn struct {
	nc   net.Conn
	id   string
	busy atomic.Bool
}

// New creates a server over cfg and the given invoker. The server may be
// started and stopped repeatedly.
func New(cfg *config.Config, invoker Invoker) *Server {
	return &Server{
		cfg:     cfg,
		invoker: invoker,
		log:     logger.Named("server"),
	}
}

// Start binds the listening socket and begins accepting connections.
// A bind failure is fatal to startup and is not retried.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateListening || s.state == StateServing {
		return fmt.Errorf("server already started")
	}

	addr := s.cfg.ListenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	s.ln = ln
	s.exec = NewExecutor(s.invoker)
	s.conns = make(map[*conn]struct{})
	s.done = make(chan struct{})
	s.stopping = false
	s.state = StateListening
	go s.exec.Run()
	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.log.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil when not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop closes the listening socket, lets in-flight exchanges finish, and
// shuts down the executor. Idempotent; blocks until drained.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	if s.stopping {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.stopping = true
	ln := s.ln
	var idle []*conn
	for c := range s.conns {
		if !c.busy.Load() {
			idle = append(idle, c)
		}
	}
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	// Connections waiting between exchanges can be closed now; busy ones
	// finish their current exchange first.
	for _, c := range idle {
		c.nc.Close()
	}

	s.wg.Wait()

	s.mu.Lock()
	if s.exec != nil {
		s.exec.Stop()
	}
	s.ln = nil
	s.state = StateStopped
	if s.done != nil {
		close(s.done)
	}
	s.mu.Unlock()
	s.log.Info("stopped")
}

// Done returns a channel closed when the current run has fully stopped,
// whether by Stop or by a shutdown command. Nil before the first Start.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Server) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isStopping() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept error", "error", err)
			continue
		}
		c := &conn{nc: nc, id: newConnID()}
		if !s.track(c) {
			nc.Close()
			return
		}
		s.wg.Add(1)
		go s.handleConn(c)
	}
}

func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.conns[c] = struct{}{}
	s.state = StateServing
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
	if len(s.conns) == 0 && s.state == StateServing && !s.stopping {
		s.state = StateListening
	}
}

func (s *Server) handleConn(c *conn) {
	defer s.wg.Done()
	defer c.nc.Close()
	defer s.untrack(c)

	s.log.Debug("client connected", "conn", c.id, "remote", c.nc.RemoteAddr().String())
	fr := protocol.NewFrameReader(c.nc, s.cfg.Server.MaxFrameBytes)

	for {
		if s.isStopping() {
			return
		}
		if d := s.cfg.Server.ReadTimeout(); d > 0 {
			c.nc.SetReadDeadline(time.Now().Add(d))
		}

		frame, err := fr.ReadFrame()
		if err != nil {
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				// The stream cannot be resynchronized after an oversized
				// frame; report and drop the connection.
				s.writeResponse(c, protocol.Error(protocol.ErrTypeDecode,
					"frame exceeds maximum size of %d bytes", s.maxFrameBytes()))
			} else if !errors.Is(err, io.EOF) && !s.isStopping() {
				s.log.Debug("connection closed", "conn", c.id, "error", err)
			}
			return
		}
		if len(bytes.TrimSpace(frame)) == 0 {
			continue
		}

		c.busy.Store(true)
		resp, shutdown := s.dispatch(c, frame)
		werr := s.writeResponse(c, resp)
		c.busy.Store(false)

		if shutdown {
			s.log.Info("shutdown command received", "conn", c.id)
			go s.Stop()
			return
		}
		if werr != nil {
			return
		}
		if !s.cfg.Server.KeepAlive {
			return
		}
	}
}

// dispatch routes one decoded frame. It always produces exactly one
// response; the bool result requests server shutdown after the response is
// flushed.
func (s *Server) dispatch(c *conn, frame []byte) (*protocol.Response, bool) {
	cmd, err := protocol.DecodeCommand(frame)
	if err != nil {
		return protocol.Error(protocol.ErrTypeDecode, "%v", err), false
	}

	switch cmd.Type {
	case protocol.TypeCallAPI:
		p, err := protocol.ParseCallParams(cmd.Params)
		if err != nil {
			return protocol.Error(protocol.ErrTypeDecode, "%v", err), false
		}
		s.log.Debug("call", "conn", c.id, "api_path", p.APIPath)

		ctx := context.Background()
		if d := s.cfg.Server.InvokeTimeout(); d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		result, err := s.exec.Do(ctx, p.APIPath, p.Args, p.Kwargs)
		if err != nil {
			s.log.Debug("call failed", "conn", c.id, "api_path", p.APIPath, "error", err)
			return errorResponse(err), false
		}
		resp, err := protocol.Success(result)
		if err != nil {
			return protocol.Error(protocol.ErrTypeInvocation, "unserializable result: %v", err), false
		}
		return resp, false

	case protocol.TypeShutdown:
		resp, _ := protocol.Success(nil)
		return resp, true

	default:
		return protocol.Error(protocol.ErrTypeUnknown, "unknown command type %q", cmd.Type), false
	}
}

func errorResponse(err error) *protocol.Response {
	var re *dispatch.ResolutionError
	var ie *dispatch.InvocationError
	switch {
	case errors.As(err, &re):
		return protocol.Error(protocol.ErrTypeResolution, "%v", re)
	case errors.As(err, &ie):
		return protocol.Error(protocol.ErrTypeInvocation, "%v", ie)
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.Error(protocol.ErrTypeInvocation, "invocation exceeded the configured time ceiling")
	case errors.Is(err, ErrStopped):
		return protocol.Error(protocol.ErrTypeInvocation, "server is shutting down")
	default:
		return protocol.Error(protocol.ErrTypeInvocation, "%v", err)
	}
}

// writeResponse serializes resp as one frame. A write failure terminates
// only this connection.
func (s *Server) writeResponse(c *conn, resp *protocol.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to marshal response", "conn", c.id, "error", err)
		return err
	}
	if err := protocol.WriteFrame(c.nc, data); err != nil {
		s.log.Debug("write failed", "conn", c.id, "error", err)
		return err
	}
	return nil
}

func (s *Server) maxFrameBytes() int {
	if s.cfg.Server.MaxFrameBytes > 0 {
		return s.cfg.Server.MaxFrameBytes
	}
	return protocol.DefaultMaxFrameBytes
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newConnID generates a ULID for log correlation of connections.
func newConnID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

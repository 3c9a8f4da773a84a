// Package tcp serves the clock-in protocol: one JSON request and one JSON
// response per connection, then the server closes the socket.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/common"
	"github.com/dmitrijs2005/punchclock/internal/logging"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/dmitrijs2005/punchclock/internal/netx"
	"github.com/dmitrijs2005/punchclock/internal/protocol"
	"github.com/google/uuid"
)

// Registrar stores a decoded clock-in.
type Registrar interface {
	Register(ctx context.Context, e models.ClockEvent) (*models.AttendanceRecord, error)
}

type Config struct {
	Address        string
	Workers        int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

const (
	DefaultWorkers        = 4
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
	DefaultMaxMessageSize = 4096

	lingerTimeout = 500 * time.Millisecond
	lingerLimit   = 64 << 10
)

type Server struct {
	cfg       Config
	registrar Registrar
	logger    logging.Logger

	ready     chan struct{}
	readyOnce sync.Once
	addr      net.Addr
}

// NewServer returns a server with zero config values replaced by defaults.
func NewServer(cfg Config, r Registrar, l logging.Logger) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		cfg:       cfg,
		registrar: r,
		logger:    l.With("module", "tcp_server"),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the server accepts connections.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr is the bound address. It is valid after Ready is closed.
func (s *Server) Addr() net.Addr { return s.addr }

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, handling at most Workers of them at a
// time. When ctx is cancelled it stops accepting, waits for in-flight
// connections and returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping TCP server...")
		ln.Close()
	}()

	s.addr = ln.Addr()
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info(ctx, "Starting TCP server", "address", ln.Addr().String(), "workers", s.cfg.Workers)

	slots := make(chan struct{}, s.cfg.Workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		conn, err := ln.Accept()
		if err != nil {
			<-slots
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error(ctx, "accept failed", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			s.handle(context.WithoutCancel(ctx), conn)
		}()
	}
}

// handle runs one request/response exchange. It never panics.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	log := s.logger.With("conn_id", uuid.NewString(), "remote", conn.RemoteAddr().String())
	replied := false

	defer func() {
		if p := recover(); p != nil {
			log.Error(ctx, "panic while handling connection", "panic", p, "stack", string(debug.Stack()))
			if !replied {
				s.reply(ctx, log, conn, protocol.Failure(common.ErrInternal))
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

	e, err := protocol.DecodeRequest(io.LimitReader(conn, s.cfg.MaxMessageSize))
	if errors.Is(err, protocol.ErrEmptyRequest) {
		log.Debug(ctx, "connection closed without a request")
		return
	}
	if err != nil {
		log.Warn(ctx, "rejected request", "kind", protocol.Kind(err), "error", err)
		replied = true
		s.reply(ctx, log, conn, protocol.Failure(err))
		return
	}

	rec, err := s.registrar.Register(ctx, e)
	if err != nil {
		kind := protocol.Kind(err)
		switch kind {
		case "duplicate":
			log.Info(ctx, "duplicate clock-in", "username", e.Username, "date", e.Date())
		default:
			log.Error(ctx, "registration failed", "kind", kind, "username", e.Username, "error", err)
		}
		replied = true
		s.reply(ctx, log, conn, protocol.Failure(err))
		return
	}

	log.Info(ctx, "clock-in registered", "id", rec.ID, "username", rec.Username, "date", rec.Date, "time", rec.Time)
	replied = true
	s.reply(ctx, log, conn, protocol.Success())
}

func (s *Server) reply(ctx context.Context, log logging.Logger, conn net.Conn, resp protocol.Response) {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := protocol.WriteResponse(conn, resp); err != nil {
		if netx.IsExpectedCloseError(err) {
			log.Debug(ctx, "client went away before the response", "error", err)
			return
		}
		log.Warn(ctx, "write response failed", "error", err)
		return
	}
	linger(conn)
}

// linger half-closes conn and discards input the client is still sending.
// Closing a socket with unread data resets it, and the peer may then lose
// the response.
func linger(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, lingerLimit))
}

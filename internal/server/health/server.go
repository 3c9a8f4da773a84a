// Package health exposes the standard gRPC health-checking service so
// orchestrators can probe the clock-in listener.
package health

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "punchclock.Registration"

// DefaultStopTimeout bounds the graceful stop. Watch streams never end on
// their own, so they are cut once it expires.
const DefaultStopTimeout = 2 * time.Second

type Server struct {
	address     string
	logger      logging.Logger
	health      *health.Server
	stopTimeout time.Duration
}

// NewServer starts in NOT_SERVING until SetServing(true) is called.
func NewServer(address string, l logging.Logger) *Server {
	s := &Server{
		address:     address,
		logger:      l.With("module", "health"),
		health:      health.NewServer(),
		stopTimeout: DefaultStopTimeout,
	}
	s.SetServing(false)
	return s
}

// SetServing updates the reported status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve answers health checks on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping health server...")
		s.health.Shutdown()
		s.stop(srv)
	}()

	s.logger.Info(ctx, "Starting health server", "address", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}

func (s *Server) stop(srv *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	t := time.NewTimer(s.stopTimeout)
	defer t.Stop()

	select {
	case <-stopped:
	case <-t.C:
		s.logger.Warn(context.Background(), "graceful stop timed out, closing open streams", "timeout", s.stopTimeout)
		srv.Stop()
		<-stopped
	}
}

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/maritimalarm/maritime-alarm/internal/logger"
)

// listener binds an address once and remembers the bound address.
type listener struct {
	address string
	ready   chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	bound   net.Addr
}

func newListener(address string) *listener {
	return &listener{address: address, ready: make(chan struct{})}
}

func (l *listener) listen(ctx context.Context) (net.Listener, error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", l.address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", l.address, err)
	}

	l.mu.Lock()
	l.bound = lis.Addr()
	l.mu.Unlock()

	l.once.Do(func() { close(l.ready) })

	return lis, nil
}

// Ready is closed once the service has bound its address.
func (l *listener) Ready() <-chan struct{} {
	return l.ready
}

// Addr returns the bound address, or the configured one before binding.
func (l *listener) Addr() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.bound == nil {
		return l.address
	}

	return l.bound.String()
}

// HTTPService serves an http.Handler as a supervised service.
type HTTPService struct {
	*listener

	name            string
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService serves handler on address.
func NewHTTPService(name, address string, handler http.Handler, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultTreeConfig().ShutdownTimeout
	}

	return &HTTPService{
		listener: newListener(address),
		name:     name,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve listens and serves until ctx is done, then shuts down gracefully.
func (s *HTTPService) Serve(ctx context.Context) error {
	ctx = logger.WithName(ctx, s.name)

	lis, err := s.listen(ctx)
	if err != nil {
		return err
	}

	s.server.BaseContext = func(net.Listener) context.Context {
		return context.WithoutCancel(ctx)
	}

	logger.InfoKV(ctx, "HTTP server listening", "listen_address", s.Addr())

	errCh := make(chan error, 1)

	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	case <-ctx.Done():
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}

		<-errCh

		return ctx.Err()
	}
}

func (s *HTTPService) String() string {
	return s.name
}

// GRPCService serves a grpc.Server as a supervised service.
type GRPCService struct {
	*listener

	name   string
	server *grpc.Server
}

// NewGRPCService serves server on address.
func NewGRPCService(name, address string, server *grpc.Server) *GRPCService {
	return &GRPCService{
		listener: newListener(address),
		name:     name,
		server:   server,
	}
}

// Serve listens and serves until ctx is done, then stops gracefully.
func (s *GRPCService) Serve(ctx context.Context) error {
	ctx = logger.WithName(ctx, s.name)

	lis, err := s.listen(ctx)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "gRPC server listening", "listen_address", s.Addr())

	// Closed after GracefulStop finishes so Serve returns only once the server is down.
	done := make(chan struct{})
	stop := make(chan struct{})

	go func() {
		defer close(done)

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Shutting down gRPC server")
		case <-stop:
		}

		s.server.GracefulStop()
	}()

	err = s.server.Serve(lis)
	close(stop)
	<-done

	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return ctx.Err()
}

func (s *GRPCService) String() string {
	return s.name
}

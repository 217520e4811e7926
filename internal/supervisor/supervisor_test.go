package supervisor

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func waitReady(t *testing.T, ready <-chan struct{}) {
	t.Helper()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("service did not bind its address")
	}
}

func TestTree_ServesHTTPAndGRPC(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, health.NewServer())

	httpService := NewHTTPService("http", "127.0.0.1:0", mux, time.Second)
	grpcService := NewGRPCService("grpc", "127.0.0.1:0", grpcServer)

	tree := NewTree(context.Background(), "test", TreeConfig{ShutdownTimeout: 2 * time.Second})
	tree.Add(httpService)
	tree.Add(grpcService)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitReady(t, httpService.Ready())
	waitReady(t, grpcService.Ready())

	resp, err := http.Get("http://" + httpService.Addr() + "/ping")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "pong", string(body))

	conn, err := grpc.NewClient(grpcService.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	defer func() { _ = conn.Close() }()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()

	check, err := healthpb.NewHealthClient(conn).Check(callCtx, new(healthpb.HealthCheckRequest))
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check.GetStatus())

	cancel()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestListener_AddrBeforeBind(t *testing.T) {
	t.Parallel()

	s := NewHTTPService("http", "127.0.0.1:0", http.NewServeMux(), 0)
	require.Equal(t, "127.0.0.1:0", s.Addr())
	require.Equal(t, "http", s.String())
	require.Equal(t, DefaultTreeConfig().ShutdownTimeout, s.shutdownTimeout)
}

func TestHTTPService_ListenFailure(t *testing.T) {
	t.Parallel()

	s := NewHTTPService("http", "256.0.0.1:bad", http.NewServeMux(), time.Second)
	require.Error(t, s.Serve(context.Background()))
}

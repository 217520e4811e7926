package server

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/maritimalarm/maritime-alarm/internal/api/grpc/feed"
	"github.com/maritimalarm/maritime-alarm/internal/api/rest"
	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/engine"
	"github.com/maritimalarm/maritime-alarm/internal/evaluator"
	"github.com/maritimalarm/maritime-alarm/internal/feed/websocket"
	"github.com/maritimalarm/maritime-alarm/internal/geofence"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/remote"
	"github.com/maritimalarm/maritime-alarm/internal/repository/alarms"
	"github.com/maritimalarm/maritime-alarm/internal/repository/snapshot"
	"github.com/maritimalarm/maritime-alarm/internal/supervisor"
)

// App is a fully wired server.
type App struct {
	settings *config.Config
	ships    *snapshot.FileRepository
	alarms   alarms.Repository
	engine   *engine.Engine
	hub      *websocket.Hub
	http     *supervisor.HTTPService
	grpc     *supervisor.GRPCService
	tree     *supervisor.Tree
}

// New builds every component from validated settings. ctx carries the logger.
func New(ctx context.Context, settings *config.Config) (*App, error) {
	atlas, err := geofence.Load(settings.Geofence)
	if err != nil {
		return nil, fmt.Errorf("load geofences: %w", err)
	}

	logger.InfoKV(ctx, "Geofences loaded", "sets", atlas.Sets())

	alarmRepo, err := alarms.Open(settings.AlarmStore)
	if err != nil {
		return nil, fmt.Errorf("open alarm store: %w", err)
	}

	app := &App{
		settings: settings,
		ships:    snapshot.NewFileRepository(settings.SnapshotFile),
		alarms:   alarmRepo,
		hub:      websocket.NewHub(),
	}

	source, err := app.source()
	if err != nil {
		_ = alarmRepo.Close()

		return nil, err
	}

	targets, err := app.targets()
	if err != nil {
		_ = alarmRepo.Close()

		return nil, err
	}

	app.engine, err = engine.New(engine.Options{
		Source:        source,
		Evaluator:     evaluator.New(atlas, settings.Rules),
		Targets:       targets,
		PollInterval:  settings.PollInterval,
		SweepInterval: settings.SweepInterval,
		FetchTimeout:  settings.Timeout,
	})
	if err != nil {
		_ = alarmRepo.Close()

		return nil, fmt.Errorf("create engine: %w", err)
	}

	router := rest.NewRouter(ctx, rest.Dependencies{
		Ships:     app.ships,
		Alarms:    alarmRepo,
		Hub:       app.hub,
		Tracked:   app.engine.Tracked,
		RateLimit: settings.RateLimit,
	})

	grpcServer := grpc.NewServer()
	feed.Register(grpcServer, feed.NewServer(&feedService{alarms: alarmRepo, engine: app.engine}))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(feed.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	app.http = supervisor.NewHTTPService("http", settings.HTTPAddress, router, settings.Timeout)
	app.grpc = supervisor.NewGRPCService("grpc", settings.GRPCAddress, grpcServer)

	app.tree = supervisor.NewTree(ctx, "maritime-alarm", supervisor.DefaultTreeConfig())
	app.tree.Add(app.hub)
	app.tree.Add(app.engine)
	app.tree.Add(app.http)
	app.tree.Add(app.grpc)

	return app, nil
}

// Serve runs all services until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	logger.InfoKV(ctx, "Serving",
		"http_addr", a.settings.HTTPAddress,
		"grpc_addr", a.settings.GRPCAddress,
		"snapshot_file", a.settings.SnapshotFile,
		"alarm_store", a.settings.AlarmStore.Driver)

	err := a.tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logger.Info(ctx, "Server stopped")

	return nil
}

// WaitReady blocks until both listeners are bound or ctx is done.
func (a *App) WaitReady(ctx context.Context) error {
	for _, ready := range []<-chan struct{}{a.http.Ready(), a.grpc.Ready()} {
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// HTTPAddr returns the bound HTTP address.
func (a *App) HTTPAddr() string {
	return a.http.Addr()
}

// GRPCAddr returns the bound gRPC address.
func (a *App) GRPCAddr() string {
	return a.grpc.Addr()
}

// Close releases the alarm store.
func (a *App) Close() error {
	return a.alarms.Close()
}

// source polls a remote receive endpoint when one is configured and the
// local snapshot store otherwise. Only reports newer than the previous poll
// reach the engine.
func (a *App) source() (engine.Source, error) {
	if a.settings.SourceURL == "" {
		return engine.NewFreshSource(engine.NewStoreSource(a.ships)), nil
	}

	client, err := remote.NewClient("source", a.settings.SourceURL, a.settings.Timeout)
	if err != nil {
		return nil, fmt.Errorf("create snapshot source: %w", err)
	}

	return engine.NewFreshSource(client), nil
}

func (a *App) targets() ([]engine.Target, error) {
	targets := []engine.Target{
		{Name: "store", Sink: engine.StoreSink(a.alarms)},
		{Name: "websocket", Sink: a.hub},
	}

	if a.settings.ForwardAlarmsURL == "" {
		return targets, nil
	}

	forwarder, err := remote.NewClient("forward", a.settings.ForwardAlarmsURL, a.settings.Timeout)
	if err != nil {
		return nil, fmt.Errorf("create alarm forwarder: %w", err)
	}

	return append(targets, engine.Target{Name: forwarder.Name(), Sink: forwarder}), nil
}

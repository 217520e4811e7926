package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/feed/websocket"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/metrics"
	"github.com/maritimalarm/maritime-alarm/internal/repository/alarms"
	"github.com/maritimalarm/maritime-alarm/internal/repository/snapshot"
)

// DefaultRecentAlarms is how many alarms a display shows.
const DefaultRecentAlarms = 4

// maxBodySize bounds receive payloads slightly above the snapshot cap.
const maxBodySize = 2 << 20

// Dependencies are the collaborators served over HTTP.
type Dependencies struct {
	// Ships is the vessel snapshot store.
	Ships snapshot.Repository
	// Alarms is the alarm sink.
	Alarms alarms.Repository
	// Hub serves the websocket feed when set.
	Hub *websocket.Hub
	// Tracked returns the number of vessels in the engine state when set.
	Tracked func() int
	// RateLimit throttles writes per client IP.
	RateLimit config.RateLimit
}

type handler struct {
	deps Dependencies
}

// NewRouter builds the HTTP routes. ctx carries the base logger.
func NewRouter(ctx context.Context, deps Dependencies) http.Handler {
	h := &handler{deps: deps}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger.WithName(ctx, "http")))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/receive", func(r chi.Router) {
		r.Get("/", h.read)
		r.With(rateLimit(deps.RateLimit)).Post("/", h.receive)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/alarms/recent", h.recentAlarms)
		r.Get("/vessels/tracked", h.trackedVessels)
	})

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.Handler(func(ctx context.Context) ([]alarm.Alarm, error) {
			return deps.Alarms.Recent(ctx, DefaultRecentAlarms)
		}))
	}

	return r
}

func rateLimit(limit config.RateLimit) func(http.Handler) http.Handler {
	if limit.Requests <= 0 || limit.Window <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		limit.Requests,
		limit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Too many requests.", http.StatusTooManyRequests)
		}),
	)
}

// requestLogger logs every request and records it in the HTTP metrics,
// labeled by route pattern to keep cardinality bounded.
func requestLogger(ctx context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqCtx := logger.ToContext(r.Context(), logger.FromContext(ctx).With(
				"request_id", middleware.GetReqID(r.Context())))

			next.ServeHTTP(ww, r.WithContext(reqCtx))

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(started))
			logger.DebugKV(reqCtx, "HTTP request served",
				"method", r.Method, "route", route, "status", status,
				"bytes", ww.BytesWritten(), "duration", time.Since(started))
		})
	}
}

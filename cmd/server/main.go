package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "ekyc/internal/jwt_token"
	"ekyc/internal/jwt_token/revocation"
	"ekyc/internal/kyc/bootstrap"
	"ekyc/internal/kyc/dispatch"
	"ekyc/internal/kyc/handler"
	kycmetrics "ekyc/internal/kyc/metrics"
	"ekyc/internal/kyc/service"
	"ekyc/internal/ledger/backend"
	"ekyc/internal/platform/config"
	"ekyc/internal/platform/httpserver"
	"ekyc/internal/platform/logger"
	"ekyc/internal/platform/metrics"
	"ekyc/internal/platform/redis"
	"ekyc/internal/platform/tracing"
	"ekyc/pkg/platform/audit/publishers/compliance"
	"ekyc/pkg/platform/audit/store/outbox"
	"ekyc/pkg/platform/httputil"
	"ekyc/pkg/platform/middleware/admin"
	"ekyc/pkg/platform/middleware/auth"
	"ekyc/pkg/platform/middleware/metadata"
	"ekyc/pkg/platform/middleware/request"
	"ekyc/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/kyc.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("trace exporter shutdown failed", "error", err)
		}
	}()

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	store, err := backend.Open(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	auditStack, err := buildAudit(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	defer auditStack.close()

	svc := service.New(store,
		service.WithLogger(log),
		service.WithMetrics(kycmetrics.New()),
		service.WithComplianceAuditor(compliance.New(outbox.New(),
			compliance.WithLogger(log),
			compliance.WithMetrics(compliance.NewMetrics()),
		)),
		service.WithSecurityAuditor(auditStack.security),
		service.WithOpsTracker(auditStack.ops),
		service.WithSelfRevoke(cfg.AllowSelfRevoke),
	)

	if cfg.SeedFile != "" {
		seed, err := bootstrap.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := bootstrap.Apply(ctx, svc, seed, log); err != nil {
			return err
		}
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	router := newRouter(cfg, log, handler.New(svc, dispatch.New(svc), log), jwtService, rdb)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ekyc", "addr", cfg.Addr, "ledger", cfg.Ledger.Backend, "audit_sink", cfg.Audit.Sink)
		return httpserver.Serve(gctx, srv, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		return auditStack.relay.Run(gctx)
	})
	if auditStack.consumer != nil {
		g.Go(func() error {
			return auditStack.consumer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRouter(cfg config.Server, log *slog.Logger, h *handler.Handler, jwtService *jwttoken.JWTService, rdb *redis.Client) http.Handler {
	httpMetrics := metrics.New()

	var trl revocation.List
	if rdb != nil {
		trl = revocation.NewRedisTRL(rdb.Client, cfg.Ledger.Namespace)
	} else {
		trl = revocation.NewMemoryTRL(nil)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log, httpMetrics))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			if err := rdb.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "redis unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), trl, log))
		h.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.AdminTokenHash, log))
		h.RegisterAdmin(r)
		revocation.NewHandler(trl, jwtService, log).Register(r)
	})
	return r
}

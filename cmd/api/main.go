package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/adapters/backend"
	server "hotel_bookings/internal/adapters/http_server"
	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/adapters/pushhints"
	"hotel_bookings/internal/app"
	"hotel_bookings/internal/connectivity"
	"hotel_bookings/internal/domain"
	"hotel_bookings/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// backend
	client, err := backend.New(backend.Config{
		BaseURL:     cfg.BackendBase,
		Tokens:      domain.StaticToken(cfg.BackendToken),
		RPS:         cfg.BackendRPS,
		Timeout:     cfg.BackendTimeout,
		ReadRetries: cfg.BackendReadRetries,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}

	mon := connectivity.New(link(cfg.Link), client, cfg.ProbeInterval)
	svc := app.NewService(mon, app.Backends{
		Bookings: backend.NewResource[domain.Booking](client, "bookings"),
		Hotels:   backend.NewResource[domain.Hotel](client, "hotels"),
		Rooms:    backend.NewResource[domain.Room](client, "rooms"),
	}, cfg.WarmPageSize)

	log.Info().
		Str("backend", cfg.BackendBase).
		Str("link", string(cfg.Link)).
		Str("connectivity", mon.Status().String()).
		Msg("gateway starting")

	var wg sync.WaitGroup
	goRun := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	goRun(mon.Run)
	goRun(svc.Run)
	goRun(func(ctx context.Context) { svc.Warm(ctx, cfg.WarmPageSize, 3) })
	if cfg.PushURL != "" {
		l := pushhints.New(pushhints.Config{URL: cfg.PushURL, PageSize: cfg.WarmPageSize}, svc.Bookings)
		goRun(l.Run)
	}

	// http
	srv := server.New(log.Logger, cfg.BackendTimeout+5*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	wg.Wait()
	n := 0
	pending := svc.Status().Pending
	for _, c := range pending {
		n += c
	}
	if n > 0 {
		log.Warn().Interface("pending", pending).Msg("unsynced operations are dropped on exit")
	}
}

func link(mode shared.LinkMode) connectivity.Link {
	switch mode {
	case shared.LinkOnline:
		return connectivity.NewStaticLink(true)
	case shared.LinkOffline:
		return connectivity.NewStaticLink(false)
	}
	return connectivity.NetLink{}
}

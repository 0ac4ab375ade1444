package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitesmith/internal/metrics"
	"git.home.luguber.info/inful/sitesmith/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	addr := w.MetricsAddr
	if addr == "" {
		addr = cfg.Watch.MetricsAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var reg *prom.Registry
	if addr != "" {
		reg = prom.NewRegistry()
		srv := &http.Server{Addr: addr, Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				g.logger().Error("Metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
		g.logger().Info("Serving metrics", "addr", addr)
	}

	ws, err := openWorkspace(g, cfg, nil, reg)
	if err != nil {
		return err
	}
	if _, err := ws.builder.BuildAll(ctx); err != nil {
		return err
	}

	_, srcRoot, err := splitSource(cfg.SourceDir)
	if err != nil {
		return err
	}
	watcher, err := watch.New(ws.projectDir, srcRoot, ws.builder, watch.WithDebounce(cfg.Watch.Debounce), watch.WithLogger(g.logger()))
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

func metricsMux(reg *prom.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	return mux
}

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/config"
	"github.com/marco/movieExplorer/internal/credential"
	"github.com/marco/movieExplorer/internal/metrics"
	"github.com/marco/movieExplorer/internal/proxy"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	keyReloadDebounce = 500 * time.Millisecond
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (env only when empty)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("config_load_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting movieproxy", "env", cfg.Env, "base_path", cfg.HTTP.BasePath)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	creds, closeCreds, err := setupCredentials(cfg)
	if err != nil {
		log.Error("credentials_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeCreds()

	if creds.APIKey() == "" {
		log.Warn("tmdb_api_key_missing", slog.String("hint", "set TMDB_API_KEY or TMDB_API_KEY_FILE"))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cat := catalog.NewClient(catalog.ClientConfig{
		Credentials:    creds,
		BaseURL:        cfg.TMDB.BaseURL,
		Language:       cfg.TMDB.Language,
		Timeout:        cfg.TMDBTimeout(),
		RequestLogFunc: m.ObserveCatalog,
	})

	apiHandler := proxy.NewRouter(cat, proxy.Options{
		Logger:   log,
		Timeout:  cfg.RequestTimeout(),
		BasePath: cfg.HTTP.BasePath,
		Metrics:  m,
	})

	var ready int32 // 0 not ready, 1 ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.Handle("/", apiHandler)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", cfg.HTTP.Addr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", cfg.HTTP.Addr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("proxy_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// setupCredentials prefers a watched key file over a static key.
func setupCredentials(cfg *config.Config) (credential.Source, func(), error) {
	if cfg.TMDB.APIKeyFile == "" {
		return credential.Static(cfg.TMDB.APIKey), func() {}, nil
	}

	fs, err := credential.NewFileSource(cfg.TMDB.APIKeyFile, keyReloadDebounce)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {
		if err := fs.Close(); err != nil {
			slog.Warn("credentials_close_failed", slog.String("err", err.Error()))
		}
	}, nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

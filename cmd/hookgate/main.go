// Command hookgate runs the webhook gateway: the ingestion and management
// HTTP API plus the delivery engine.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/api"
	"github.com/xraph/hookgate/config"
	"github.com/xraph/hookgate/notify"
	"github.com/xraph/hookgate/observability"
	"github.com/xraph/hookgate/ratelimit"
)

func main() {
	configPath := flag.String("config", "hookgate.yaml", "path to the YAML configuration file")
	flag.Parse()

	level := new(slog.LevelVar)
	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log, level)
	slog.SetDefault(logger)

	if err := run(cfg, loader, level, logger); err != nil {
		logger.Error("hookgate exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, loader *config.Loader, level *slog.LevelVar, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck // process is exiting

	if cfg.Store.Migrate {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []hookgate.Option{
		hookgate.WithStore(st),
		hookgate.WithLogger(logger),
		hookgate.WithConfig(cfg.Gateway),
		hookgate.WithNotifier(newNotifier(cfg.Notify, logger)),
		hookgate.WithMetrics(observability.NewMetrics(reg)),
		hookgate.WithTracer(observability.NewTracer()),
	}
	if cfg.RateLimit.Backend == "redis" {
		redisOpts, err := goredis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			return err
		}
		rdb := goredis.NewClient(redisOpts)
		defer rdb.Close() //nolint:errcheck // process is exiting
		opts = append(opts, hookgate.WithRateLimiter(ratelimit.NewRedisCounter(rdb)))
	}
	if cfg.Encryption.MasterKey != "" {
		opts = append(opts, hookgate.WithMasterKey([]byte(cfg.Encryption.MasterKey)))
	}

	gw, err := hookgate.New(opts...)
	if err != nil {
		return err
	}

	handler := api.NewHandler(gw, api.HandlerConfig{
		AdminToken:   cfg.HTTP.AdminToken,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, logger)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	gw.Start(ctx)
	go reloadOnHangup(ctx, loader, level, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	return gw.Stop(shutdownCtx)
}

// reloadOnHangup re-reads the configuration on SIGHUP. Only the log level is
// applied live; other changes need a restart.
func reloadOnHangup(ctx context.Context, loader *config.Loader, level *slog.LevelVar, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := loader.Reload()
			if err != nil {
				logger.Error("config reload failed", "error", err)
				continue
			}
			level.Set(parseLevel(cfg.Log.Level))
			logger.Info("config reloaded", "log_level", level.Level())
		}
	}
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) notify.Notifier {
	var multi notify.Multi
	if cfg.ChatWebhookURL != "" {
		multi = append(multi, notify.NewChat(cfg.ChatWebhookURL, nil))
	}
	if cfg.SMTP.Host != "" {
		email, err := notify.NewEmail(notify.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		})
		if err != nil {
			logger.Warn("email notifications disabled", "error", err)
		} else {
			multi = append(multi, email)
		}
	}
	if len(multi) == 0 {
		return notify.Nop{}
	}
	return multi
}

func newLogger(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	level.Set(parseLevel(cfg.Level))
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

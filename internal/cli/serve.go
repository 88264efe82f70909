package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/plura-proxy/internal/logger"
	"github.com/rcliao/plura-proxy/internal/platform"
	"github.com/rcliao/plura-proxy/internal/proxy"
	"github.com/rcliao/plura-proxy/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack bot",
		Long:  "Serve the Slack Events API intake and message actions until SIGINT or SIGTERM, then drain in-flight proxies.",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	s, cfg := openStore()
	defer s.Close()
	if err := cfg.RequireSlack(); err != nil {
		exitErr("config", err)
	}

	log := logger.New("plura-proxy", cfg.LogLevel)
	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("slack_api", cfg.SlackAPIURL).
		Bool("signed_requests", cfg.SlackSigningSecret != "").
		Dur("operation_timeout", cfg.OperationTimeout).
		Msg("Configuration loaded")

	slack := platform.NewSlack(platform.SlackConfig{
		Token:   cfg.SlackBotToken,
		BaseURL: cfg.SlackAPIURL,
	})
	adapter := platform.NewRetrying(slack, platform.RetryConfig{
		MaxRetries: cfg.PlatformMaxRetries,
		RPS:        cfg.PlatformRPS,
		Burst:      cfg.PlatformBurst,
	}, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := proxy.New(proxy.Options{
		Registry: s,
		Ledger:   s,
		Adapter:  adapter,
		Logger:   log,
		Metrics:  proxy.NewMetrics(reg),
		Timeout:  cfg.OperationTimeout,
	})
	srv := server.New(engine, s, server.Options{
		SigningSecret: cfg.SlackSigningSecret,
		Logger:        log,
		Gatherer:      reg,
	})
	httpSrv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		srv.Wait()
		if cerr := engine.Close(shutdownCtx); cerr != nil {
			log.Error().Err(cerr).Msg("in-flight proxies did not finish")
			err = errors.Join(err, cerr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		exitErr("serve", err)
	}
	log.Info().Msg("stopped")
}

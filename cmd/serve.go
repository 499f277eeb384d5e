package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/automation"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/billing"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/cache"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/controllers"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/db"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/middlewares"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/realtime"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/router"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/storage"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/telemetry"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/weather"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	schedulerInterval = time.Minute
	shutdownTimeout   = 15 * time.Second
	startupTimeout    = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, MQTT subscriber and scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := connect(); err != nil {
		return err
	}
	if err := db.SeedPlans(config.DB); err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	if err := db.SeedPlatformConfig(config.DB); err != nil {
		return fmt.Errorf("seed platform config: %w", err)
	}
	if err := config.InitPlatformState(config.DB); err != nil {
		return fmt.Errorf("load platform state: %w", err)
	}

	stopJWKS, err := middlewares.InitJWKS(config.C.JWKSURL)
	if err != nil {
		return fmt.Errorf("jwks: %w", err)
	}
	defer stopJWKS()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	hub := realtime.Default
	deps := controllers.Deps{Hub: hub}
	engine := &automation.Engine{DB: config.DB, Hub: hub, Location: config.Location()}
	ingestor := &telemetry.Ingestor{DB: config.DB, Hub: hub, Rules: engine}

	var weatherCache weather.Cache
	if config.C.RedisURL != "" {
		rdb, err := cache.NewRedis(startCtx, config.C.RedisURL, "irrify:")
		if err != nil {
			return err
		}
		defer rdb.Close()
		weatherCache = rdb
		slog.Info("redis cache enabled")
	}
	wc := weather.NewClient(config.C.WeatherBaseURL, weatherCache, config.C.WeatherCacheTTL)
	deps.Weather = wc
	engine.Weather = wc

	if config.C.MinioEndpoint != "" {
		store, err := storage.NewMinIO(startCtx, storage.Config{
			Endpoint:  config.C.MinioEndpoint,
			AccessKey: config.C.MinioAccessKey,
			SecretKey: config.C.MinioSecretKey,
			Bucket:    config.C.MinioBucket,
			UseSSL:    config.C.MinioUseSSL,
			PublicURL: config.C.MinioPublicURL,
		})
		if err != nil {
			return err
		}
		deps.Storage = store
		slog.Info("object storage enabled", "bucket", config.C.MinioBucket)
	}

	if config.C.StripeSecretKey != "" {
		deps.Billing = &billing.Service{
			DB:       config.DB,
			Provider: billing.NewStripeProvider(config.C.StripeSecretKey, config.C.StripeWebhookSecret),
			BaseURL:  config.C.AppBaseURL,
		}
		slog.Info("stripe billing enabled")
	}

	if config.C.InfluxURL != "" {
		sink, err := telemetry.NewInfluxSink(startCtx, config.C.InfluxURL, config.C.InfluxToken,
			config.C.InfluxOrg, config.C.InfluxBucket)
		if err != nil {
			return err
		}
		defer sink.Close()
		ingestor.Sink = sink
		slog.Info("influxdb sink enabled", "bucket", config.C.InfluxBucket)
	}

	if config.C.MQTTBrokerURL != "" {
		mq, err := telemetry.NewMQTT(telemetry.MQTTConfig{
			BrokerURL:   config.C.MQTTBrokerURL,
			ClientID:    config.C.MQTTClientID,
			Username:    config.C.MQTTUsername,
			Password:    config.C.MQTTPassword,
			TopicPrefix: config.C.MQTTTopicPrefix,
		}, ingestor)
		if err != nil {
			return err
		}
		defer mq.Close()
		engine.Publisher = mq
		go mq.Run(ctx)
	}

	deps.Engine = engine
	deps.Ingestor = ingestor
	controllers.Configure(deps)

	if config.C.SchedulerEnabled {
		go engine.Run(ctx, schedulerInterval)
	}

	if config.C.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + config.C.AppPort,
		Handler:           router.Setup(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", config.C.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

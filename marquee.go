package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/mflix-org/marquee/common/logging"
	"github.com/mflix-org/marquee/events"
	"github.com/mflix-org/marquee/user"
	"github.com/mflix-org/marquee/user/middlewares"
)

type (
	Config struct {
		Service ServiceConfig
		Log     logging.Config
		Mongo   user.MongoConfig
		User    user.ApiConfig
		Events  events.Config
	}
	ServiceConfig struct {
		Addr            string        `envconfig:"SERVICE_ADDR" default:":8009"`
		ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	}
)

const (
	marquee_service_prefix = "marquee"
	marquee_env_prefix     = "MARQUEE"
)

// loadConfig reads every section from MARQUEE_* variables.
func loadConfig() (*Config, error) {
	var config Config
	for _, section := range []interface{}{&config.Service, &config.Log, &config.Mongo, &config.User, &config.Events} {
		if err := envconfig.Process(marquee_env_prefix, section); err != nil {
			return nil, err
		}
	}
	return &config, nil
}

func main() {
	config, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("Problem loading config")
	}
	logger := logging.Configure(config.Log, marquee_service_prefix)

	/*
	 * Storage
	 */
	ctx, cancel := context.WithTimeout(context.Background(), config.Mongo.Timeout)
	store, err := user.NewMongoStoreClient(ctx, &config.Mongo)
	if err != nil {
		cancel()
		logger.WithError(err).Fatal("unable to create the store")
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("unable to ensure the indexes, continuing")
	}
	cancel()

	notifier, err := events.NewNotifier(&config.Events)
	if err != nil {
		logger.WithError(err).Fatal("unable to create the events notifier")
	}

	rtr := mux.NewRouter()
	rtr.Use(middlewares.TraceSessionIdMiddleware)
	rtr.Use(middlewares.RequestIdMiddleware)
	rtr.Use(middlewares.New(logger).LoggingMiddleware)

	/*
	 * User-Api setup
	 */
	logger.Info("adding api/user")
	userapi := user.InitApi(config.User, store, notifier)
	userapi.SetHandlers("", rtr)

	rtr.Handle("/metrics", promhttp.Handler()).Methods("GET")

	/*
	 * Serve it up
	 */
	server := &http.Server{
		Addr:    config.Service.Addr,
		Handler: rtr,
	}
	go func() {
		logger.WithField("addr", server.Addr).Info("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	logger.Infof("Got signal [%s]", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Service.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("unable to shut the server down cleanly")
	}
	if err := notifier.Close(); err != nil {
		logger.WithError(err).Warn("unable to close the events notifier")
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("unable to close the store")
	}
}

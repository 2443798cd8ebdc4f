// Command sarthi is the preview-environment orchestrator's HTTP server: it
// loads configuration, verifies the docker socket is reachable, and serves
// /deploy and /metrics.
package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tushar5526/sarthi/internal/config"
	"github.com/tushar5526/sarthi/internal/deployer"
	"github.com/tushar5526/sarthi/internal/dockersocket"
	"github.com/tushar5526/sarthi/internal/httpapi"
	"github.com/tushar5526/sarthi/internal/logger"
	"github.com/tushar5526/sarthi/internal/metrics"
)

func main() {
	// Set default log level to debug until the configured level is known.
	log := logger.New(slog.LevelDebug)

	c, err := config.GetAppConfig()
	if err != nil {
		log.Critical("failed to get application configuration", logger.ErrAttr(err))
	}

	logLevel, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		logLevel = slog.LevelInfo
	}

	log = logger.New(logLevel)

	log.Info("starting application", slog.String("log_level", c.LogLevel))
	log.Debug("loaded configuration", slog.Any("config", logger.BuildLogValue(c, "VaultToken", "SecretText")))

	if err := dockersocket.VerifyConnection(); err != nil {
		log.Critical(dockersocket.ErrDockerSocketConnectionFailed.Error(), logger.ErrAttr(err))
	}

	log.Debug("connection to docker socket was successful")

	metrics.AppInfo.WithLabelValues("dev", c.LogLevel, "").Set(1)

	d := deployer.New(c, log)

	mux := httpapi.Mux(d, log, c.SecretText, metrics.Handler())

	log.Info("listening for deploy requests", slog.Int("http_port", int(c.HTTPPort)))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", c.HTTPPort), mux); err != nil {
		log.Critical("http server stopped", logger.ErrAttr(err))
	}
}

// Command audit-consumer drains the domain events queue into an
// append-only audit log.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/school-api/internal/config"
	"github.com/iliyamo/school-api/internal/logger"
	"github.com/iliyamo/school-api/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &queue.AuditConsumer{
		URL:   cfg.Events.RabbitURL,
		Queue: cfg.Events.Queue,
		Dir:   cfg.Events.AuditLogDir,
		Log:   log,
	}
	log.WithFields(logrus.Fields{"queue": c.Queue, "dir": c.Dir}).Info("audit consumer started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("audit consumer stopped")
	}
	log.Info("audit consumer stopped")
}

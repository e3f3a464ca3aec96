package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/school-api/internal/config"
	"github.com/iliyamo/school-api/internal/database"
	"github.com/iliyamo/school-api/internal/handler"
	"github.com/iliyamo/school-api/internal/logger"
	"github.com/iliyamo/school-api/internal/middleware"
	"github.com/iliyamo/school-api/internal/repository"
	"github.com/iliyamo/school-api/internal/router"
	"github.com/iliyamo/school-api/internal/service"
	"github.com/iliyamo/school-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.DB.Driver).Fatal("database connect failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(ctx, db, cfg.DB.Driver)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("database migrate failed")
	}

	// Redis only backs the /auth rate limiter; without it requests pass.
	limiter := middleware.NewTokenBucket(cfg.RateLimit, nil, log)
	if cfg.RateLimit.Enabled {
		rdb := config.NewRedisClient(cfg.Redis)
		if rdb == nil {
			log.WithField("addr", cfg.Redis.Addr).Warn("redis unavailable; rate limiting disabled")
		} else {
			defer rdb.Close()
			limiter = middleware.NewTokenBucket(cfg.RateLimit, rdb, log)
		}
	}

	var events service.Publisher = service.Nop{}
	if cfg.Events.Enabled {
		p := service.NewAMQPPublisher(cfg.Events.RabbitURL, cfg.Events.Queue, log)
		defer p.Close()
		events = p
	}

	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	gate := middleware.JWTAuth(tokens, log)

	e := router.New(log)
	router.RegisterRoutes(e, handler.Health(db))
	router.RegisterAuth(e,
		handler.NewAuthHandler(repository.NewUserRepo(db), tokens, cfg.BcryptCost, events, log),
		gate, limiter)
	router.RegisterResources(e, router.Resources{
		Students: handler.NewStudentHandler(repository.NewStudentRepo(db), events),
		Courses:  handler.NewCourseHandler(repository.NewCourseRepo(db), events),
		Teachers: handler.NewTeacherHandler(repository.NewTeacherRepo(db), events),
	}, cfg.Policy(), gate)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{
			"addr":      addr,
			"env":       cfg.Env,
			"driver":    cfg.DB.Driver,
			"protected": cfg.ProtectedResources,
		}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

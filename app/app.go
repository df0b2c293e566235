package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bookhaven/lending-service/config"
	"github.com/bookhaven/lending-service/internal/handler"
	"github.com/bookhaven/lending-service/internal/repository"
	"github.com/bookhaven/lending-service/internal/server"
	"github.com/bookhaven/lending-service/internal/service"
	"github.com/bookhaven/lending-service/migrations"
	"github.com/bookhaven/lending-service/pkg/auth"
	"github.com/bookhaven/lending-service/pkg/kafka"
	"github.com/bookhaven/lending-service/pkg/logger"
	"github.com/bookhaven/lending-service/pkg/postgres"
)

func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "lending")
	auth.SetKey(cfg.JWTSecret)

	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return fmt.Errorf("db init %w", err)
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return fmt.Errorf("repo init %w", err)
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("kafka.NewProducer %w", err)
	}
	svc := service.NewService(repo, service.NewAuditRecorder(producer, log), log)

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.AuditConsumerGroup)
	if err != nil {
		return fmt.Errorf("kafka.NewConsumer %w", err)
	}

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))

	consumeCtx, consumeCancel := context.WithCancel(context.Background())
	g := new(errgroup.Group)
	g.Go(func() error {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		kafka.Consume(consumeCtx, consumer, handler.NewConsumer(svc.SaveAction, log), log, kafka.AuditTopic)
		return nil
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	consumeCancel()
	if err := g.Wait(); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	if err := consumer.Close(); err != nil {
		log.Error("consumer.Close", zap.Error(err))
	}
	if err := producer.Close(); err != nil {
		log.Error("producer.Close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
	return nil
}

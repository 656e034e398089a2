package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/libracore/circulation-service/circulation/config"
	"github.com/libracore/circulation-service/circulation/internal/handler"
	"github.com/libracore/circulation-service/circulation/internal/repository"
	"github.com/libracore/circulation-service/circulation/internal/server"
	"github.com/libracore/circulation-service/circulation/internal/service"
	"github.com/libracore/circulation-service/circulation/migrations"
	"github.com/libracore/circulation-service/pkg/kafka"
	"github.com/libracore/circulation-service/pkg/logger"
	"github.com/libracore/circulation-service/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "circulation")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	// Events are best-effort: the service runs without a broker,
	// only the transaction history goes dark.
	var publisher service.Publisher
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Warn("kafka.NewProducer, running without events", zap.Error(err))
	} else {
		publisher = producer
	}

	svc := service.NewService(repo, publisher, service.Config{
		FineRatePerDay:  cfg.Circulation.FineRatePerDay,
		DefaultLoanDays: cfg.Circulation.DefaultLoanDays,
	}, log)

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case termSig := <-sig:
			log.Debug("Graceful shutdown", zap.Any("signal", termSig))
		case <-gctx.Done():
		}

		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return srv.Stop(closeCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server run", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("producer close", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("db close", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}

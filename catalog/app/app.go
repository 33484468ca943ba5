package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/catalog/config"
	"github.com/Astemirdum/book-search/catalog/internal/handler"
	"github.com/Astemirdum/book-search/catalog/internal/repository"
	"github.com/Astemirdum/book-search/catalog/internal/server"
	"github.com/Astemirdum/book-search/catalog/internal/service"
	"github.com/Astemirdum/book-search/catalog/migrations"
	"github.com/Astemirdum/book-search/pkg/kafka"
	"github.com/Astemirdum/book-search/pkg/logger"
	"github.com/Astemirdum/book-search/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "catalog")

	if cfg.Database.Migrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := postgres.Migrate(migrateCtx, cfg.Database.DSN(), migrations.MigrationFiles)
		cancel()
		if err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	// the pool is dialed by the first request, so the server comes up
	// even while the database is down
	pool := postgres.NewLazyPool(&cfg.Database)
	var repo repository.Repository = repository.NewRepository(pool, cfg.Database.QueryTimeout, log)

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		repo = repository.NewCachedRepository(repo, rdb, cfg.Redis.TTL, log)
	}

	var producer sarama.AsyncProducer
	if cfg.Kafka.Enabled() {
		var err error
		producer, err = kafka.NewAsyncProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewAsyncProducer", zap.Error(err))
		}
	}
	svc := service.NewService(repo, service.NewEventLog(producer, kafka.CatalogTopic, log), log)

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("producer.Close", zap.Error(err))
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	pool.Close()
	log.Info("Graceful shutdown finished")
}

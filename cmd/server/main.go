package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gobwas/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/firehose"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/gateway"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/httpx"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/marketdata"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/marketdata/finnhub"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/marketdata/polygon"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/registry"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/rest"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/scheduler"
	"github.com/HaydenEquityAi/stockmarket/cmd/server/internal/store"
	"github.com/HaydenEquityAi/stockmarket/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	stockStore := store.NewRedisStore(rdb)

	fetchTimeout := time.Duration(cfg.Market.FetchTimeoutSec) * time.Second
	httpClient := httpx.New(fetchTimeout)

	// Provider selection is static per process start; fallback only runs
	// from the primary (polygon) to the secondary (finnhub).
	polygonClient := polygon.New(polygon.Config{APIKey: cfg.Market.PolygonAPIKey}, httpClient, logger)
	finnhubClient := finnhub.New(finnhub.Config{APIKey: cfg.Market.FinnhubAPIKey}, httpClient, logger)

	var active, fallback marketdata.Client
	switch cfg.Market.Provider {
	case "finnhub":
		active = finnhubClient
	default:
		active = polygonClient
		fallback = finnhubClient
	}
	adapter := marketdata.NewAdapter(active, fallback, fetchTimeout, logger)
	logger.Info("Market data provider selected", zap.String("provider", active.Name()))

	var publisher scheduler.QuotePublisher
	var fhClose func() error
	if cfg.Kafka.Enabled {
		fh := firehose.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = fh
		fhClose = fh.Close
		logger.Info("Quote firehose enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	reg := registry.NewRegistry(logger)
	sched := scheduler.New(reg, adapter, stockStore, publisher,
		time.Duration(cfg.Market.PollIntervalMS)*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)

	heartbeat := time.Duration(cfg.Market.HeartbeatSec) * time.Second

	mux := http.NewServeMux()
	rest.NewHandler(adapter, stockStore, logger).Register(mux)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		client := gateway.NewClient(conn, reg, logger, heartbeat)
		client.Start()
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	reg.Shutdown()
	if fhClose != nil {
		if err := fhClose(); err != nil {
			logger.Error("Error closing firehose", zap.Error(err))
		}
	}
	stockStore.Close()
	logger.Info("Shutdown Complete")
}

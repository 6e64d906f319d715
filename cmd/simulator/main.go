package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/HaydenEquityAi/stockmarket/cmd/simulator/internal/simulator"
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

	tickers, err := config.LoadTickers(cfg.Market.TickersFile)
	if err != nil {
		logger.Fatal("Failed to load tickers file", zap.Error(err))
	}
	if len(tickers) == 0 {
		logger.Fatal("No tickers to simulate", zap.String("file", cfg.Market.TickersFile))
	}

	clock := simulator.RealClock{}

	creator := simulator.NewTopicCreator(logger,
		&simulator.RealKafkaDialer{Dialer: kafka.DefaultDialer}, clock)
	creator.Create(cfg.Kafka.Brokers, cfg.Kafka.Topic)

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.Hash{},
	}

	sim := simulator.NewQuoteSimulator(logger, writer, tickers,
		simulator.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sim.Run(ctx)
		close(done)
	}()

	<-sigChan
	logger.Info("Shutdown signal received")
	cancel()
	<-done

	if err := writer.Close(); err != nil {
		logger.Error("Error closing writer", zap.Error(err))
	}
	logger.Info("Simulator exited cleanly")
}

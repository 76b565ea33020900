// Command tradewatch pretty-prints execution messages published by the
// matcher with the kafka-go driver. It is a developer tool.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/erain9/pricetime/config"
	"github.com/erain9/pricetime/pkg/logging"
	"github.com/erain9/pricetime/pkg/messaging/kafka"
)

func main() {
	group := flag.String("group", "tradewatch", "Kafka consumer group")
	configFile := flag.String("config", "", "Path to config file (YAML)")
	flag.Parse()

	args := []string{}
	if *configFile != "" {
		args = append(args, "-config", *configFile)
	}
	cfg, err := config.Load("tradewatch", args)
	if err != nil {
		bootLogger := logging.Setup(logging.DefaultConfig())
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: true,
		Output: os.Stdout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic, *group, logger)
	defer consumer.Close()

	logger.Info().
		Str("broker", cfg.Kafka.BrokerAddr).
		Str("topic", cfg.Kafka.Topic).
		Str("group", *group).
		Msg("Watching executions")

	if err := consumer.Consume(ctx, kafka.LogHandler(logger)); err != nil {
		logger.Error().Err(err).Msg("Consumer stopped")
		os.Exit(1)
	}
}

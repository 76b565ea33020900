package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/erain9/pricetime/config"
	"github.com/erain9/pricetime/pkg/db/queue"
	"github.com/erain9/pricetime/pkg/logging"
	"github.com/erain9/pricetime/pkg/messaging"
	"github.com/erain9/pricetime/pkg/messaging/kafka"
	"github.com/erain9/pricetime/pkg/otel"
	"github.com/erain9/pricetime/pkg/parser"
	"github.com/erain9/pricetime/pkg/session"
	"github.com/nikolaydubina/fpdecimal"
)

func main() {
	cfg, err := config.Load("matcher", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Format == "pretty",
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithSession(logger.WithContext(ctx), cfg.Matcher.Session)

	in := io.Reader(os.Stdin)
	if cfg.Matcher.Input != "-" {
		f, err := os.Open(cfg.Matcher.Input)
		if err != nil {
			logger.Fatal().Err(err).Str("input", cfg.Matcher.Input).Msg("Failed to open input")
		}
		defer f.Close()
		in = f
	}

	if err := run(ctx, cfg, in, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("Matcher failed")
		os.Exit(1)
	}
}

// run reads orders from in until EOF or ctx is done, writing trades and the
// final book to out
func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	logger := logging.FromContext(ctx)

	tickSize, err := fpdecimal.FromString(cfg.Matcher.TickSize)
	if err != nil {
		return fmt.Errorf("invalid tick size %q: %w", cfg.Matcher.TickSize, err)
	}

	if cfg.Otel.Enabled {
		cleanup, err := otel.Init(ctx, otel.Config{
			ServiceName:    cfg.Otel.ServiceName,
			Endpoint:       cfg.Otel.Endpoint,
			RuntimeMetrics: true,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		defer cleanup()
	}

	metrics, err := otel.NewMatchMetrics(nil)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	opts := []session.Option{
		session.WithTickSize(tickSize),
		session.WithDepth(cfg.Matcher.Depth),
		session.WithMetrics(metrics),
		session.WithLogger(logger),
	}

	sender, err := newSender(cfg)
	if err != nil {
		return err
	}
	if sender != nil {
		defer func() {
			if err := sender.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close execution sender")
			}
		}()
		opts = append(opts, session.WithSender(sender))
		logger.Info().
			Str("driver", cfg.Kafka.Driver).
			Str("broker", cfg.Kafka.BrokerAddr).
			Str("topic", cfg.Kafka.Topic).
			Msg("Publishing executions")
	}

	sess := session.New(cfg.Matcher.Session, opts...)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = sess.Run(runCtx)
	}()
	defer sess.Close()

	r := newRenderer(out, sess, cfg.Matcher.Color)
	scanner := parser.NewScanner(in, session.NewOrderID, parser.WithErrorHandler(func(lineNo int, err error) {
		logger.Warn().Err(err).Int("line", lineNo).Msg("Skipping malformed order")
	}))

	for scanner.Next() {
		result, err := sess.Submit(ctx, scanner.Order())
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn().Err(err).Int("line", scanner.LineNo()).Msg("Order rejected")
			continue
		}
		if err := r.result(result); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read orders: %w", err)
	}

	snap, err := sess.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	logger.Info().
		Int("lines_skipped", scanner.Skipped()).
		Int("bids", snap.BidOrders).
		Int("asks", snap.AskOrders).
		Msg("Input exhausted")

	return r.book(snap)
}

// newSender returns the execution publisher for the configured driver, or nil
func newSender(cfg *config.Config) (messaging.ExecutionSender, error) {
	switch cfg.Kafka.Driver {
	case config.DriverKafkaGo:
		return kafka.NewKafkaSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic), nil
	case config.DriverSarama:
		pool, err := queue.NewSenderPool(queue.DefaultPoolSize, func() (messaging.ExecutionSender, error) {
			sender, err := queue.NewQueueSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
			if err != nil {
				return nil, err
			}
			return sender, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sarama sender pool: %w", err)
		}
		return pool, nil
	default:
		return nil, nil
	}
}

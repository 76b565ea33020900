package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/erain9/pricetime/pkg/core"
	"github.com/erain9/pricetime/pkg/logging"
	"github.com/erain9/pricetime/pkg/quoter"
	"github.com/erain9/pricetime/pkg/session"
	"golang.org/x/time/rate"
)

type options struct {
	workers         int
	ordersPerWorker int
	ratePerSecond   int
	marketRatio     float64
	midPrice        int64
	spread          int64
	maxAmount       int64
	seed            int64
	ladderLevels    int
}

func main() {
	opts := options{}
	flag.IntVar(&opts.workers, "workers", 100, "Concurrent submitters")
	flag.IntVar(&opts.ordersPerWorker, "orders", 1000, "Orders per worker")
	flag.IntVar(&opts.ratePerSecond, "rate", 50000, "Max orders per second across all workers, 0 for unlimited")
	flag.Float64Var(&opts.marketRatio, "market_ratio", 0.1, "Fraction of market orders")
	flag.Int64Var(&opts.midPrice, "mid", 10000, "Mid price in ticks")
	flag.Int64Var(&opts.spread, "spread", 50, "Max distance from mid in ticks")
	flag.Int64Var(&opts.maxAmount, "max_amount", 100, "Max order amount")
	flag.IntVar(&opts.ladderLevels, "ladder_levels", 10, "Quote levels per side placed before the run, 0 to start empty")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "Random seed")
	logLevel := flag.String("log_level", "info", "Log level")
	flag.Parse()

	logger := logging.Setup(logging.Config{Level: *logLevel, Pretty: true, Output: os.Stderr})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("Load test failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	logger := logging.FromContext(ctx)

	sess := session.New("loadtest", session.WithLogger(logger))
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = sess.Run(runCtx)
	}()
	defer sess.Close()

	limit := rate.Inf
	if opts.ratePerSecond > 0 {
		limit = rate.Limit(opts.ratePerSecond)
	}
	limiter := rate.NewLimiter(limit, max(opts.workers, 1))

	var sequence atomic.Uint64
	if opts.ladderLevels > 0 {
		ladder := quoter.NewLayeredSymmetric(quoter.Config{
			Levels:     opts.ladderLevels,
			HalfSpread: 1,
			Step:       max(opts.spread/int64(opts.ladderLevels), 1),
			Amount:     max(opts.maxAmount, 1),
		})
		q := quoter.New(sess, ladder, func() uint64 { return sequence.Add(1) }, logger)
		if _, err := q.Place(ctx, opts.midPrice); err != nil {
			return fmt.Errorf("failed to seed book: %w", err)
		}
	}

	var (
		trades   atomic.Int64
		failures atomic.Int64
		mu       sync.Mutex
		wg       sync.WaitGroup
	)
	// submit covers queueing, matching and publication; execute is matching only
	submitLatency := newHistogram()
	executeLatency := newHistogram()

	start := time.Now()
	logger.Info().
		Int("workers", opts.workers).
		Int("orders_per_worker", opts.ordersPerWorker).
		Int("rate", opts.ratePerSecond).
		Msg("Starting load test")

	for i := 0; i < opts.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(opts.seed + int64(worker)))
			localSubmit := newHistogram()
			localExecute := newHistogram()

			for j := 0; j < opts.ordersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					break
				}

				// sequences are drawn here, so concurrent workers may hand
				// them to the engine out of order; priority still follows them
				order := randomOrder(r, opts, sequence.Add(1))
				begin := time.Now()
				res, err := sess.Submit(ctx, order)
				if err != nil {
					if ctx.Err() != nil {
						break
					}
					failures.Add(1)
					continue
				}
				_ = localSubmit.RecordValue(time.Since(begin).Nanoseconds())
				_ = localExecute.RecordValue(res.ExecuteTime.Nanoseconds())
				trades.Add(int64(len(res.Trades)))
			}

			mu.Lock()
			submitLatency.Merge(localSubmit)
			executeLatency.Merge(localExecute)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	snap, err := sess.Snapshot(context.Background())
	if err != nil && !errors.Is(err, session.ErrSessionClosed) {
		return err
	}

	submitted := submitLatency.TotalCount()
	fmt.Fprintf(out, "orders:      %d in %v (%.0f/s)\n", submitted, elapsed.Round(time.Millisecond), float64(submitted)/elapsed.Seconds())
	fmt.Fprintf(out, "trades:      %d\n", trades.Load())
	fmt.Fprintf(out, "failures:    %d\n", failures.Load())
	if snap != nil {
		fmt.Fprintf(out, "resting:     %d bids, %d asks\n", snap.BidOrders, snap.AskOrders)
	}
	printLatency(out, "execute", executeLatency)
	printLatency(out, "submit", submitLatency)

	if failures.Load() > 0 {
		return fmt.Errorf("%d orders failed", failures.Load())
	}
	return nil
}

// newHistogram tracks 1ns to 10s at 3 significant figures
func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, int64(10*time.Second), 3)
}

func printLatency(out io.Writer, name string, h *hdrhistogram.Histogram) {
	fmt.Fprintf(out, "%-8s µs: p50=%.1f p90=%.1f p99=%.1f p99.9=%.1f max=%.1f mean=%.1f\n",
		name,
		micros(h.ValueAtQuantile(50)),
		micros(h.ValueAtQuantile(90)),
		micros(h.ValueAtQuantile(99)),
		micros(h.ValueAtQuantile(99.9)),
		micros(h.Max()),
		h.Mean()/1e3,
	)
}

func micros(ns int64) float64 {
	return float64(ns) / 1e3
}

func randomOrder(r *rand.Rand, opts options, seq uint64) *core.Order {
	side := core.Bid
	if r.Intn(2) == 0 {
		side = core.Ask
	}
	amount := 1 + r.Int63n(max(opts.maxAmount, 1))
	price := max(opts.midPrice+r.Int63n(2*opts.spread+1)-opts.spread, 0)
	id := session.NewOrderID()

	if r.Float64() < opts.marketRatio {
		return core.NewMarketOrder(id, side, amount, price, seq)
	}
	return core.NewLimitOrder(id, side, amount, price, seq)
}

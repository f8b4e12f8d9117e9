package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	cache "github.com/krisalay/memocache"
	"github.com/krisalay/memocache/types"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "concurrent GetOrSetValue load on the in-memory facade",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "keys", Usage: "distinct keys preloaded", Value: 100_000},
			&cli.IntFlag{Name: "goroutines", Usage: "concurrent callers", Value: 200},
			&cli.IntFlag{Name: "ops", Usage: "operations per goroutine", Value: 5000},
			&cli.BoolFlag{Name: "context", Usage: "use the single-flight GetOrSetValueContext path"},
		},
		Action: runBench,
	}
}

func runBench(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	keys := cmd.Int("keys")
	goroutines := cmd.Int("goroutines")
	opsPerG := cmd.Int("ops")
	useCtx := cmd.Bool("context")
	if keys <= 0 || goroutines <= 0 || opsPerG <= 0 {
		return fmt.Errorf("--keys, --goroutines and --ops must be positive")
	}

	w := out(cmd)
	banner(w, "CACHE LOAD BENCHMARK")
	fmt.Fprintln(w, "Shards       :", cfg.Memory.Shards)
	fmt.Fprintln(w, "Preload Keys :", humanize.Comma(int64(keys)))
	fmt.Fprintln(w, "Goroutines   :", goroutines)
	fmt.Fprintln(w, "Ops/Goroutine:", humanize.Comma(int64(opsPerG)))
	fmt.Fprintln(w, "Context path :", useCtx)

	store := cache.NewMemoryStoreFromConfig(cfg.Memory, logger)
	defer store.Close()

	metrics := &types.Counters{}
	c := cache.NewMemory[int](store, cache.Options{
		AbsoluteExpiration: time.Hour,
		Logger:             logger,
		Metrics:            metrics,
	})

	names := make([]string, keys)
	for i := range names {
		names[i] = fmt.Sprintf("key-%d", i)
	}

	// ---------------- Preload ----------------
	for i, k := range names {
		c.SetValue("", k, i)
	}
	logger.Debug("preload complete", zap.Int("keys", keys))

	// ---------------- Load ----------------
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerG; j++ {
				// roughly one key in eleven is outside the preloaded range
				n := (id*opsPerG + j) % (keys + keys/10 + 1)
				key := fmt.Sprintf("key-%d", n)
				if useCtx {
					c.GetOrSetValueContext(ctx, "", key, func(context.Context) (int, error) { return n, nil })
				} else {
					c.GetOrSetValue("", key, func() (int, error) { return n, nil })
				}
			}
		}(g)
	}
	wg.Wait()

	duration := time.Since(start)
	totalOps := goroutines * opsPerG
	s := metrics.Snapshot()

	banner(w, "RESULTS")
	fmt.Fprintf(w, "Total Operations : %s\n", humanize.Comma(int64(totalOps)))
	fmt.Fprintf(w, "Total Time       : %v\n", duration)
	fmt.Fprintf(w, "Throughput       : %s ops/sec\n", humanize.CommafWithDigits(float64(totalOps)/duration.Seconds(), 2))
	fmt.Fprintf(w, "Hits / Misses    : %s / %s (%.1f%%)\n", humanize.Comma(s.Hits), humanize.Comma(s.Misses), 100*s.HitRatio())
	fmt.Fprintf(w, "Entries          : %s\n", humanize.Comma(int64(store.Len())))
	return nil
}

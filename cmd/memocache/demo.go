package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"

	cache "github.com/krisalay/memocache"
	"github.com/krisalay/memocache/api"
	"github.com/krisalay/memocache/observer"
	"github.com/krisalay/memocache/types"
)

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "walk through the in-memory facade",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "expiry",
				Usage: "absolute expiration used by the expiry step",
				Value: time.Second,
			},
		},
		Action: runDemo,
	}
}

func runDemo(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	w := out(cmd)
	expiry := cmd.Duration("expiry")

	banner(w, "SYSTEM BOOT")
	fmt.Fprintln(w, "SHARDS          :", cfg.Memory.Shards)
	fmt.Fprintln(w, "DEFAULT EXPIRY  :", cache.DefaultMemoryExpiration)
	fmt.Fprintln(w, "CLEANUP         :", cfg.Memory.CleanupInterval)

	// ---------------- Store + Facade ----------------
	metrics := &types.Counters{}
	hub := observer.NewHub()
	events, unsubscribe := hub.Subscribe(256)

	counts := make(map[observer.Kind]int)
	var done sync.WaitGroup
	done.Add(1)
	go func() {
		defer done.Done()
		for ev := range events {
			counts[ev.Kind]++
		}
	}()

	store := cache.NewMemoryStoreFromConfig(cfg.Memory, logger)
	defer store.Close()

	users := cache.NewMemory[string](store, cache.Options{
		Logger:   logger,
		Metrics:  metrics,
		Observer: hub,
	})

	var loads atomic.Int32
	load := func(v string) api.Factory[string] {
		return func() (string, error) {
			loads.Add(1)
			fmt.Fprintln(w, "FACTORY → load", v)
			return v, nil
		}
	}

	// ====================================================
	banner(w, "1) CACHE MISS")
	v, _ := users.GetOrSetValue("", "a", load("alpha"))
	fmt.Fprintln(w, "CACHE  → GET a =", v)

	// ====================================================
	banner(w, "2) CACHE HIT")
	v, _ = users.GetOrSetValue("", "a", load("alpha"))
	fmt.Fprintln(w, "CACHE  → GET a =", v)

	// ====================================================
	banner(w, "3) EXPIRATION")
	users.SetValue("", "x", "temp-value", api.WithAbsoluteExpiration(expiry))
	fmt.Fprintf(w, "CACHE  → SET x (absolute = %v)\n", expiry)

	time.Sleep(expiry + expiry/2)

	_, ok := users.TryGetValue("", "x")
	fmt.Fprintln(w, "CACHE  → x present after expiry =", ok)

	// ====================================================
	banner(w, "4) SINGLE-FLIGHT")
	slow := func(ctx context.Context) (string, error) {
		loads.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "beta", nil
	}

	got := make([]string, 5)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			got[id], _ = users.GetOrSetValueContext(ctx, "", "b", slow)
		}(i)
	}
	wg.Wait()
	for id, val := range got {
		fmt.Fprintf(w, "GOROUTINE-%d → GET b = %v\n", id, val)
	}

	// ====================================================
	banner(w, "5) NAMESPACING")
	users.SetValue("tenant-1:", "name", "ada")
	users.SetValue("tenant-2:", "name", "grace")
	for _, uk := range []string{"tenant-1:", "tenant-2:"} {
		v, _ := users.TryGetValue(uk, "name")
		fmt.Fprintf(w, "CACHE  → GET %sname = %v\n", uk, v)
	}

	// ====================================================
	banner(w, "6) REMOVE")
	users.Remove("b")
	fmt.Fprintln(w, "CACHE  → REMOVE b")
	_, ok = users.TryGetValue("", "b")
	fmt.Fprintln(w, "CACHE  → b present after remove =", ok)

	// ====================================================
	unsubscribe()
	done.Wait()

	s := metrics.Snapshot()
	banner(w, "METRICS")
	fmt.Fprintf(w, "HITS       : %d\n", s.Hits)
	fmt.Fprintf(w, "MISSES     : %d\n", s.Misses)
	fmt.Fprintf(w, "POPULATED  : %d\n", s.Populated)
	fmt.Fprintf(w, "HIT RATIO  : %.2f\n", s.HitRatio())
	fmt.Fprintf(w, "FACTORY    : %d\n", loads.Load())

	banner(w, "EVENTS")
	for _, k := range []observer.Kind{observer.Hit, observer.Miss, observer.BeforePopulate, observer.AfterPopulate, observer.Set, observer.Removed} {
		fmt.Fprintf(w, "%-16s: %d\n", k, counts[k])
	}
	fmt.Fprintf(w, "%-16s: %d\n", "dropped", hub.Dropped())

	banner(w, "SHUTDOWN")
	fmt.Fprintln(w, "SYSTEM → store closed cleanly")
	return nil
}

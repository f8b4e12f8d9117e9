package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	cache "github.com/krisalay/memocache"
	"github.com/krisalay/memocache/api"
	"github.com/krisalay/memocache/serializer"
)

func userKeyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user-key",
		Aliases: []string{"u"},
		Usage:   "prefix joined in front of KEY",
	}
}

// withFacade opens the configured distributed backend for the duration of fn.
// Values are handled as generic JSON documents.
func withFacade(cmd *cli.Command, fn func(*cache.Distributed[any], *zap.Logger) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Distributed.Codec == serializer.Gob.Name() {
		return errors.New("the command line reads and writes JSON values; set distributed.codec to json")
	}

	d, err := cache.NewDistributedFromConfig[any](cfg, cache.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer d.Close()

	return fn(d, logger)
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the value stored under KEY",
		UsageText: "memocache get [--user-key U] KEY",
		Flags:     []cli.Flag{userKeyFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			return withFacade(cmd, func(d *cache.Distributed[any], _ *zap.Logger) error {
				opt, err := d.Lookup(ctx, cmd.String("user-key"), cmd.Args().First())
				if err != nil {
					return err
				}
				v, ok := opt.Get()
				if !ok {
					return fmt.Errorf("%s: not found", cache.ResolveKey(cmd.String("user-key"), cmd.Args().First()))
				}

				b, err := serializer.JSON.Marshal(v, serializer.Settings{SortMapKeys: true, Indent: 2})
				if err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), string(b))
				return nil
			})
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "store VALUE under KEY; VALUE is parsed as JSON, else kept as a string",
		UsageText: "memocache set [--user-key U] [--absolute D | --at RFC3339] [--sliding D] KEY VALUE",
		Flags: []cli.Flag{
			userKeyFlag(),
			&cli.DurationFlag{Name: "absolute", Usage: "time-to-live from now"},
			&cli.StringFlag{Name: "at", Usage: "absolute deadline, RFC 3339"},
			&cli.DurationFlag{Name: "sliding", Usage: "idle window renewed by reads"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}

			var opts []api.Option
			if d := cmd.Duration("absolute"); d > 0 {
				opts = append(opts, api.WithAbsoluteExpiration(d))
			}
			if at := cmd.String("at"); at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				opts = append(opts, api.WithAbsoluteExpirationAt(t))
			}
			if d := cmd.Duration("sliding"); d > 0 {
				opts = append(opts, api.WithSlidingExpiration(d))
			}

			raw := cmd.Args().Get(1)
			var value any
			if err := serializer.JSON.Unmarshal([]byte(raw), &value, serializer.Default()); err != nil {
				value = raw
			}

			return withFacade(cmd, func(d *cache.Distributed[any], logger *zap.Logger) error {
				key := cmd.Args().First()
				if err := d.SetValueContext(ctx, cmd.String("user-key"), key, value, opts...); err != nil {
					return err
				}
				logger.Info("value stored", zap.String("key", cache.ResolveKey(cmd.String("user-key"), key)))
				return nil
			})
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:      "refresh",
		Usage:     "renew the sliding window of KEY (used as given)",
		UsageText: "memocache refresh KEY",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			return withFacade(cmd, func(d *cache.Distributed[any], _ *zap.Logger) error {
				return d.RefreshContext(ctx, cmd.Args().First())
			})
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "delete KEY (used as given)",
		UsageText: "memocache remove KEY",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			return withFacade(cmd, func(d *cache.Distributed[any], _ *zap.Logger) error {
				return d.RemoveContext(ctx, cmd.Args().First())
			})
		},
	}
}

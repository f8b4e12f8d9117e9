package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/krisalay/memocache/config"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "memocache",
		Usage: "memoizing cache toolbox",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file; built-in defaults when empty",
				Sources: cli.EnvVars("MEMOCACHE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level from the config",
			},
		},
		Commands: []*cli.Command{
			demoCommand(),
			benchCommand(),
			getCommand(),
			setCommand(),
			refreshCommand(),
			removeCommand(),
		},
	}
}

// loadConfig reads --config and builds the logger it describes.
func loadConfig(cmd *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, nil, err
		}
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// requireArgs fails unless exactly n positional arguments were given.
func requireArgs(cmd *cli.Command, n int) error {
	if cmd.Args().Len() != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d\nusage: %s", cmd.Name, n, cmd.Args().Len(), cmd.UsageText)
	}
	return nil
}

func banner(w io.Writer, title string) {
	fmt.Fprintf(w, "\n==================== %s ====================\n", title)
}

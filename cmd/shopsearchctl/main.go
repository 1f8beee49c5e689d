package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/shopsearch/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// commonFlags returns fresh flag values; urfave flags keep parse state and cannot be shared.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config-env",
			Usage: "config environment (local, docker, prod); defaults to $ENV",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "dotenv file loaded before the config",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "log SDK operations to stderr",
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "shopsearchctl",
		Usage:   "query a shopsearch catalogue from the terminal",
		Version: version.String(),
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "run a hybrid product search",
				ArgsUsage: "<query>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "color", Usage: "exact color filter"},
					&cli.StringFlag{Name: "gender", Usage: "mens, womens or all"},
					&cli.FloatFlag{Name: "min-price", Usage: "lower price bound (requires --max-price)"},
					&cli.FloatFlag{Name: "max-price", Usage: "upper price bound (requires --min-price)"},
					&cli.IntFlag{Name: "limit", Usage: "number of results"},
					&cli.BoolFlag{Name: "json", Usage: "print results as JSON"},
				}, commonFlags()...),
				Action: searchAction,
			},
			{
				Name:   "health",
				Usage:  "check backend and embedding providers",
				Flags:  commonFlags(),
				Action: healthAction,
			},
		},
	}
}

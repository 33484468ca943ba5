package main

import (
	"context"
	stdLog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/book-search/pkg/logger"
	"github.com/Astemirdum/book-search/search/app"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stdLog.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "search",
		Usage:     "Search the book catalog as you type",
		UsageText: "search [--query TEXT]\n\nEvery input line replaces the query. Type :retry after a failure, :quit to exit.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "catalog-addr",
				Aliases: []string{"a"},
				Usage:   "Catalog service address, host:port or base URL",
				EnvVars: []string{"CATALOG_ADDR"},
				Value:   "localhost:8080",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Initial query, searched before any input is read",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Upper bound for one search round trip, 0 for none",
				EnvVars: []string{"CATALOG_TIMEOUT"},
				Value:   10 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "warn",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	level, err := zapcore.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	cfg := app.Config{
		CatalogAddr: c.String("catalog-addr"),
		Query:       c.String("query"),
		Timeout:     c.Duration("timeout"),
		Log:         logger.Log{LogLevel: level},
	}
	return app.Run(c.Context, cfg, os.Stdin, os.Stdout)
}

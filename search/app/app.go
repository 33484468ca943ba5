package app

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/book-search/pkg/logger"
	"github.com/Astemirdum/book-search/search/internal/client"
	"github.com/Astemirdum/book-search/search/internal/coordinator"
)

const (
	cmdRetry = ":retry"
	cmdQuit  = ":quit"
)

type Config struct {
	CatalogAddr string
	// Query is searched before any input is read.
	Query   string
	Timeout time.Duration
	Log     logger.Log
}

var _ coordinator.Store = (*client.Client)(nil)

func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	log := logger.NewLogger(cfg.Log, "search")
	defer func() { _ = log.Sync() }()

	store := client.New(cfg.CatalogAddr, cfg.Timeout, log)
	c := coordinator.New(ctx, store, log)
	defer c.Close()

	log.Debug("session start", zap.String("catalog", cfg.CatalogAddr))
	return Session(ctx, c, cfg.Query, in, out)
}

// Session feeds every line of in to c as the full current input and renders
// each state c goes through to out. It ends on ":quit", on ctx cancellation,
// or at the end of in once the last search has settled. c is closed on
// return.
func Session(ctx context.Context, c *coordinator.Coordinator, initial string, in io.Reader, out io.Writer) error {
	updates := c.Updates()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var renderErr error
		for s := range updates {
			if renderErr != nil {
				continue
			}
			renderErr = render(out, s)
		}
		return renderErr
	})
	g.Go(func() error {
		defer c.Close()
		return feed(ctx, c, initial, in)
	})
	return g.Wait()
}

func feed(ctx context.Context, c *coordinator.Coordinator, initial string, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	c.Input(initial)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return err
					}
				default:
				}
				if _, err := c.Await(ctx); err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			}
			switch strings.TrimSpace(line) {
			case cmdQuit:
				return nil
			case cmdRetry:
				c.Retry()
			default:
				c.Input(line)
			}
		}
	}
}

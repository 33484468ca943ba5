package postgres

import (
	"context"
	"database/sql"
	"io/fs"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for goose
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

type Config struct {
	Host           string        `envconfig:"DB_HOST" default:"localhost"`
	Port           string        `envconfig:"DB_PORT" default:"5432"`
	Username       string        `envconfig:"DB_USER" default:"postgres"`
	Password       string        `envconfig:"DB_PASSWORD" json:"-"`
	NameDB         string        `envconfig:"DB_NAME" default:"catalog"`
	SSLMode        string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns       int32         `envconfig:"DB_MAX_CONNS" default:"5"`
	AcquireTimeout time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"3s"`
	QueryTimeout   time.Duration `envconfig:"DB_QUERY_TIMEOUT" default:"0s"`
	Migrate        bool          `envconfig:"DB_MIGRATE" default:"false"`
}

func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.NameDB,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewPool dials the database and verifies the connection with a ping.
func NewPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool.ParseConfig")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool.NewWithConfig")
	}

	pingCtx := ctx
	if cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.AcquireTimeout)
		defer cancel()
	}
	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pool.Ping")
	}
	return pool, nil
}

// LazyPool owns one pool shared by all callers. The pool is dialed on the
// first Get; a failed dial is not remembered, so the next Get tries again.
type LazyPool struct {
	cfg     *Config
	connect func(ctx context.Context, cfg *Config) (*pgxpool.Pool, error)

	mu   sync.Mutex
	pool *pgxpool.Pool
}

func NewLazyPool(cfg *Config) *LazyPool {
	return &LazyPool{
		cfg:     cfg,
		connect: NewPool,
	}
}

func (p *LazyPool) Get(ctx context.Context) (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		return p.pool, nil
	}
	pool, err := p.connect(ctx, p.cfg)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return pool, nil
}

func (p *LazyPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}

// Migrate applies the goose migrations found at the root of migrations.
func Migrate(ctx context.Context, dsn string, migrations fs.FS) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return errors.Wrap(err, "sql.Open")
	}
	defer db.Close()
	if err = db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "db.Ping")
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err = goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "goose.SetDialect")
	}
	if err = goose.Up(db, "."); err != nil {
		return errors.Wrap(err, "goose.Up")
	}
	return nil
}

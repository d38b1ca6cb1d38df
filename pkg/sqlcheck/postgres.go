package sqlcheck

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver
)

type postgresDB struct {
	db *sqlx.DB
}

// ConnectPostgres opens and pings a PostgreSQL connection with lib/pq.
func ConnectPostgres(ctx context.Context, cfg Config) (DB, error) {
	ctx, cancel := withTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", postgresDSN(cfg))
	if err != nil {
		return nil, classifyPostgres("connect", err)
	}
	db.SetMaxOpenConns(1)
	return &postgresDB{db: db}, nil
}

// postgresDSN adds a connect_timeout to the URL unless it already has one.
func postgresDSN(cfg Config) string {
	u, err := url.Parse(cfg.URL)
	if err != nil || cfg.ConnectTimeout <= 0 {
		return cfg.URL
	}
	q := u.Query()
	if q.Get("connect_timeout") == "" {
		q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (p *postgresDB) Exec(ctx context.Context, query string) (int64, error) {
	res, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return 0, classifyPostgres("exec", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (p *postgresDB) QueryInt(ctx context.Context, query string) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, query); err != nil {
		return 0, classifyPostgres("query", err)
	}
	return n, nil
}

func (p *postgresDB) QueryString(ctx context.Context, query string) (string, error) {
	var s string
	if err := p.db.GetContext(ctx, &s, query); err != nil {
		return "", classifyPostgres("query", err)
	}
	return s, nil
}

func (p *postgresDB) Close() error {
	return p.db.Close()
}

var _ DB = (*postgresDB)(nil)

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}


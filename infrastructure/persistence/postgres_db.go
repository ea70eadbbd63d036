package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"multipost/infrastructure/configuration"

	_ "github.com/lib/pq"
)

// PostgresDSN builds a postgres:// connection URL.
func PostgresDSN(cfg configuration.Db) string {
	q := url.Values{}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	u := &url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

// NewPostgreSQLDB opens and pings a PostgreSQL pool.
func NewPostgreSQLDB(ctx context.Context, cfg configuration.Db) (*sql.DB, error) {
	db, err := sql.Open("postgres", PostgresDSN(cfg))
	if err != nil {
		return nil, err
	}
	configurePool(db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

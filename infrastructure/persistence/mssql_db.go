package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"multipost/infrastructure/configuration"

	_ "github.com/microsoft/go-mssqldb"
)

// NewMSSQLDB creates a sql.DB for Azure SQL / SQL Server using native database/sql.
func NewMSSQLDB(ctx context.Context, cfg configuration.Db) (*sql.DB, error) {
	// Build sqlserver:// user:pass@host:port?database=DB&encrypt=true
	q := url.Values{}
	if cfg.Name != "" {
		q.Set("database", cfg.Name)
	}
	// Azure SQL requires encrypt=true
	q.Set("encrypt", "true")
	// Local containers use a self-signed certificate
	if cfg.Host == "localhost" || cfg.Host == "127.0.0.1" {
		q.Set("TrustServerCertificate", "true")
	}

	u := &url.URL{Scheme: "sqlserver", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	u.RawQuery = q.Encode()

	db, err := sql.Open("sqlserver", u.String())
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

func configurePool(db *sql.DB) {
	db.SetConnMaxIdleTime(20 * time.Second)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
}

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"multipost/domain/model"
)

// OAuthTokenRepository stores platform credentials in PostgreSQL, one row per
// platform.
type OAuthTokenRepository struct{ db *sql.DB }

func NewOAuthTokenRepository(db *sql.DB) *OAuthTokenRepository { return &OAuthTokenRepository{db: db} }

// EnsureOAuthTokenSchema creates the oauth_tokens table if it does not exist.
func EnsureOAuthTokenSchema(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS oauth_tokens (
		id BIGSERIAL PRIMARY KEY,
		platform VARCHAR(32) NOT NULL UNIQUE,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		user_access_token TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NULL,
		user_token_expires_at TIMESTAMPTZ NULL,
		scopes TEXT NOT NULL DEFAULT '',
		page_id VARCHAR(128) NULL,
		page_name VARCHAR(255) NULL,
		account_id VARCHAR(128) NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	ALTER TABLE oauth_tokens ADD COLUMN IF NOT EXISTS user_token_expires_at TIMESTAMPTZ NULL`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create oauth_tokens: %w", err)
	}
	return nil
}

func (r *OAuthTokenRepository) Put(ctx context.Context, t *model.PlatformCredential) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	q := `INSERT INTO oauth_tokens (platform, access_token, refresh_token, user_access_token, expires_at, user_token_expires_at, scopes, page_id, page_name, account_id, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		  ON CONFLICT (platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			user_access_token=EXCLUDED.user_access_token,
			expires_at=EXCLUDED.expires_at,
			user_token_expires_at=EXCLUDED.user_token_expires_at,
			scopes=EXCLUDED.scopes,
			page_id=EXCLUDED.page_id,
			page_name=EXCLUDED.page_name,
			account_id=EXCLUDED.account_id,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, string(t.Platform), t.AccessToken, t.RefreshToken, t.UserAccessToken, t.ExpiresAt, t.UserTokenExpiresAt, t.Scopes, t.PageID, t.PageName, t.AccountID, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *OAuthTokenRepository) Get(ctx context.Context, platform model.Platform) (*model.PlatformCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, platform, access_token, refresh_token, user_access_token, expires_at, user_token_expires_at, scopes, page_id, page_name, account_id, created_at, updated_at FROM oauth_tokens WHERE platform=$1`, string(platform))
	return scanCredential(row)
}

func scanCredential(row *sql.Row) (*model.PlatformCredential, error) {
	tok := &model.PlatformCredential{}
	var platform string
	var exp, userExp sql.NullTime
	var pageID, pageName, accountID sql.NullString
	if err := row.Scan(&tok.ID, &platform, &tok.AccessToken, &tok.RefreshToken, &tok.UserAccessToken, &exp, &userExp, &tok.Scopes, &pageID, &pageName, &accountID, &tok.CreatedAt, &tok.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCredentialNotFound
		}
		return nil, err
	}
	tok.Platform = model.Platform(platform)
	if exp.Valid {
		tok.ExpiresAt = &exp.Time
	}
	if userExp.Valid {
		tok.UserTokenExpiresAt = &userExp.Time
	}
	if pageID.Valid {
		v := pageID.String
		tok.PageID = &v
	}
	if pageName.Valid {
		v := pageName.String
		tok.PageName = &v
	}
	if accountID.Valid {
		v := accountID.String
		tok.AccountID = &v
	}
	return tok, nil
}

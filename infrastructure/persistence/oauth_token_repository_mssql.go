package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"multipost/domain/model"
)

type OAuthTokenRepositoryMSSQL struct{ db *sql.DB }

func NewOAuthTokenRepositoryMSSQL(db *sql.DB) *OAuthTokenRepositoryMSSQL {
	return &OAuthTokenRepositoryMSSQL{db: db}
}

// EnsureOAuthTokenSchemaMSSQL creates the oauth_tokens table for SQL Server if it does not exist.
func EnsureOAuthTokenSchemaMSSQL(ctx context.Context, db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.oauth_tokens') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[oauth_tokens] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        platform NVARCHAR(32) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NULL,
        user_access_token NVARCHAR(MAX) NULL,
        expires_at DATETIME2 NULL,
        user_token_expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL,
        page_id NVARCHAR(128) NULL,
        page_name NVARCHAR(255) NULL,
        account_id NVARCHAR(128) NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_oauth_tokens_platform ON dbo.[oauth_tokens](platform);
END
IF COL_LENGTH('dbo.oauth_tokens', 'user_token_expires_at') IS NULL
    ALTER TABLE dbo.[oauth_tokens] ADD user_token_expires_at DATETIME2 NULL;`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create oauth_tokens (mssql): %w", err)
	}
	return nil
}

func (r *OAuthTokenRepositoryMSSQL) Put(ctx context.Context, t *model.PlatformCredential) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	// Normalize nullable values for MSSQL driver
	exp, userExp := nullTime(t.ExpiresAt), nullTime(t.UserTokenExpiresAt)
	// MERGE upsert by platform
	q := `MERGE dbo.[oauth_tokens] AS target
USING (VALUES (@p1)) AS src(platform)
ON target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    access_token=@p2,
    refresh_token=@p3,
    user_access_token=@p4,
    expires_at=@p5,
    user_token_expires_at=@p6,
    scopes=@p7,
    page_id=@p8,
    page_name=@p9,
    account_id=@p10,
    updated_at=@p12
WHEN NOT MATCHED THEN
    INSERT (platform, access_token, refresh_token, user_access_token, expires_at, user_token_expires_at, scopes, page_id, page_name, account_id, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12);`
	_, err := r.db.ExecContext(ctx, q,
		string(t.Platform),
		t.AccessToken,
		t.RefreshToken,
		t.UserAccessToken,
		exp,
		userExp,
		t.Scopes,
		nullString(t.PageID),
		nullString(t.PageName),
		nullString(t.AccountID),
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func (r *OAuthTokenRepositoryMSSQL) Get(ctx context.Context, platform model.Platform) (*model.PlatformCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, platform, access_token, COALESCE(refresh_token, ''), COALESCE(user_access_token, ''), expires_at, user_token_expires_at, scopes, page_id, page_name, account_id, created_at, updated_at FROM dbo.[oauth_tokens] WHERE platform=@p1`, string(platform))
	return scanCredential(row)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

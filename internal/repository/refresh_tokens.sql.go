package repository

import (
	"context"
)

const createRefreshToken = `-- name: CreateRefreshToken :exec
INSERT INTO "refresh_tokens" (
    "token_hash",
    "client_id",
    "subject",
    "scope",
    "issued_at",
    "expires_at"
) VALUES (
    ?, ?, ?, ?, ?, ?
)
`

type CreateRefreshTokenParams struct {
	TokenHash string
	ClientID  string
	Subject   string
	Scope     string
	IssuedAt  int64
	ExpiresAt int64
}

func (q *Queries) CreateRefreshToken(ctx context.Context, arg CreateRefreshTokenParams) error {
	_, err := q.db.ExecContext(ctx, createRefreshToken,
		arg.TokenHash,
		arg.ClientID,
		arg.Subject,
		arg.Scope,
		arg.IssuedAt,
		arg.ExpiresAt,
	)
	return err
}

const deleteExpiredRefreshTokens = `-- name: DeleteExpiredRefreshTokens :exec
DELETE FROM "refresh_tokens"
WHERE "expires_at" < ?
`

func (q *Queries) DeleteExpiredRefreshTokens(ctx context.Context, now int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpiredRefreshTokens, now)
	return err
}

const getRefreshToken = `-- name: GetRefreshToken :one
SELECT token_hash, client_id, subject, scope, issued_at, expires_at, last_used_at, revoked FROM "refresh_tokens"
WHERE "token_hash" = ? LIMIT 1
`

func (q *Queries) GetRefreshToken(ctx context.Context, tokenHash string) (RefreshToken, error) {
	row := q.db.QueryRowContext(ctx, getRefreshToken, tokenHash)
	var i RefreshToken
	err := row.Scan(
		&i.TokenHash,
		&i.ClientID,
		&i.Subject,
		&i.Scope,
		&i.IssuedAt,
		&i.ExpiresAt,
		&i.LastUsedAt,
		&i.Revoked,
	)
	return i, err
}

const revokeRefreshToken = `-- name: RevokeRefreshToken :execrows
UPDATE "refresh_tokens" SET "revoked" = 1
WHERE "token_hash" = ?
  AND "client_id" = ?
`

type RevokeRefreshTokenParams struct {
	TokenHash string
	ClientID  string
}

func (q *Queries) RevokeRefreshToken(ctx context.Context, arg RevokeRefreshTokenParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, revokeRefreshToken, arg.TokenHash, arg.ClientID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const rotateRefreshToken = `-- name: RotateRefreshToken :one
UPDATE "refresh_tokens" SET "revoked" = 1, "last_used_at" = ?
WHERE "token_hash" = ?
  AND "client_id" = ?
  AND "revoked" = 0
  AND "expires_at" > ?
RETURNING token_hash, client_id, subject, scope, issued_at, expires_at, last_used_at, revoked
`

type RotateRefreshTokenParams struct {
	LastUsedAt int64
	TokenHash  string
	ClientID   string
	Now        int64
}

// RotateRefreshToken revokes a live refresh token in a single statement so that
// only one concurrent caller can redeem it.
func (q *Queries) RotateRefreshToken(ctx context.Context, arg RotateRefreshTokenParams) (RefreshToken, error) {
	row := q.db.QueryRowContext(ctx, rotateRefreshToken,
		arg.LastUsedAt,
		arg.TokenHash,
		arg.ClientID,
		arg.Now,
	)
	var i RefreshToken
	err := row.Scan(
		&i.TokenHash,
		&i.ClientID,
		&i.Subject,
		&i.Scope,
		&i.IssuedAt,
		&i.ExpiresAt,
		&i.LastUsedAt,
		&i.Revoked,
	)
	return i, err
}

const touchRefreshToken = `-- name: TouchRefreshToken :one
UPDATE "refresh_tokens" SET "last_used_at" = ?
WHERE "token_hash" = ?
  AND "client_id" = ?
  AND "revoked" = 0
  AND "expires_at" > ?
RETURNING token_hash, client_id, subject, scope, issued_at, expires_at, last_used_at, revoked
`

type TouchRefreshTokenParams struct {
	LastUsedAt int64
	TokenHash  string
	ClientID   string
	Now        int64
}

func (q *Queries) TouchRefreshToken(ctx context.Context, arg TouchRefreshTokenParams) (RefreshToken, error) {
	row := q.db.QueryRowContext(ctx, touchRefreshToken,
		arg.LastUsedAt,
		arg.TokenHash,
		arg.ClientID,
		arg.Now,
	)
	var i RefreshToken
	err := row.Scan(
		&i.TokenHash,
		&i.ClientID,
		&i.Subject,
		&i.Scope,
		&i.IssuedAt,
		&i.ExpiresAt,
		&i.LastUsedAt,
		&i.Revoked,
	)
	return i, err
}

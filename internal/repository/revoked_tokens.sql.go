package repository

import (
	"context"
)

const createRevokedToken = `-- name: CreateRevokedToken :exec
INSERT OR IGNORE INTO "revoked_tokens" (
    "jti",
    "client_id",
    "expires_at"
) VALUES (
    ?, ?, ?
)
`

type CreateRevokedTokenParams struct {
	Jti       string
	ClientID  string
	ExpiresAt int64
}

func (q *Queries) CreateRevokedToken(ctx context.Context, arg CreateRevokedTokenParams) error {
	_, err := q.db.ExecContext(ctx, createRevokedToken, arg.Jti, arg.ClientID, arg.ExpiresAt)
	return err
}

const deleteExpiredRevokedTokens = `-- name: DeleteExpiredRevokedTokens :exec
DELETE FROM "revoked_tokens"
WHERE "expires_at" < ?
`

func (q *Queries) DeleteExpiredRevokedTokens(ctx context.Context, now int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpiredRevokedTokens, now)
	return err
}

const isTokenRevoked = `-- name: IsTokenRevoked :one
SELECT EXISTS (
    SELECT 1 FROM "revoked_tokens" WHERE "jti" = ?
)
`

func (q *Queries) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	row := q.db.QueryRowContext(ctx, isTokenRevoked, jti)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

package repository

import (
	"context"
)

const createSession = `-- name: CreateSession :exec
INSERT INTO "sessions" (
    "uuid",
    "username",
    "expires_at"
) VALUES (
    ?, ?, ?
)
`

type CreateSessionParams struct {
	UUID      string
	Username  string
	ExpiresAt int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, createSession, arg.UUID, arg.Username, arg.ExpiresAt)
	return err
}

const deleteExpiredSessions = `-- name: DeleteExpiredSessions :exec
DELETE FROM "sessions"
WHERE "expires_at" < ?
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	return err
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM "sessions"
WHERE "uuid" = ?
`

func (q *Queries) DeleteSession(ctx context.Context, uuid string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, uuid)
	return err
}

const getSession = `-- name: GetSession :one
SELECT uuid, username, expires_at FROM "sessions"
WHERE "uuid" = ? LIMIT 1
`

func (q *Queries) GetSession(ctx context.Context, uuid string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, uuid)
	var i Session
	err := row.Scan(&i.UUID, &i.Username, &i.ExpiresAt)
	return i, err
}

package repository

import (
	"context"
)

const consumeAuthorizationCode = `-- name: ConsumeAuthorizationCode :one
UPDATE "authorization_codes" SET "used" = 1
WHERE "code_hash" = ?
  AND "client_id" = ?
  AND "redirect_uri" = ?
  AND "used" = 0
  AND "expires_at" > ?
RETURNING code_hash, client_id, redirect_uri, subject, scope, issued_at, expires_at, used
`

type ConsumeAuthorizationCodeParams struct {
	CodeHash    string
	ClientID    string
	RedirectURI string
	Now         int64
}

// ConsumeAuthorizationCode flips the used flag of a live code in a single
// statement. It returns sql.ErrNoRows when the code was not redeemable.
func (q *Queries) ConsumeAuthorizationCode(ctx context.Context, arg ConsumeAuthorizationCodeParams) (AuthorizationCode, error) {
	row := q.db.QueryRowContext(ctx, consumeAuthorizationCode,
		arg.CodeHash,
		arg.ClientID,
		arg.RedirectURI,
		arg.Now,
	)
	var i AuthorizationCode
	err := row.Scan(
		&i.CodeHash,
		&i.ClientID,
		&i.RedirectURI,
		&i.Subject,
		&i.Scope,
		&i.IssuedAt,
		&i.ExpiresAt,
		&i.Used,
	)
	return i, err
}

const createAuthorizationCode = `-- name: CreateAuthorizationCode :exec
INSERT INTO "authorization_codes" (
    "code_hash",
    "client_id",
    "redirect_uri",
    "subject",
    "scope",
    "issued_at",
    "expires_at"
) VALUES (
    ?, ?, ?, ?, ?, ?, ?
)
`

type CreateAuthorizationCodeParams struct {
	CodeHash    string
	ClientID    string
	RedirectURI string
	Subject     string
	Scope       string
	IssuedAt    int64
	ExpiresAt   int64
}

func (q *Queries) CreateAuthorizationCode(ctx context.Context, arg CreateAuthorizationCodeParams) error {
	_, err := q.db.ExecContext(ctx, createAuthorizationCode,
		arg.CodeHash,
		arg.ClientID,
		arg.RedirectURI,
		arg.Subject,
		arg.Scope,
		arg.IssuedAt,
		arg.ExpiresAt,
	)
	return err
}

const deleteExpiredAuthorizationCodes = `-- name: DeleteExpiredAuthorizationCodes :exec
DELETE FROM "authorization_codes"
WHERE "expires_at" < ?
`

func (q *Queries) DeleteExpiredAuthorizationCodes(ctx context.Context, now int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpiredAuthorizationCodes, now)
	return err
}

const getAuthorizationCode = `-- name: GetAuthorizationCode :one
SELECT code_hash, client_id, redirect_uri, subject, scope, issued_at, expires_at, used FROM "authorization_codes"
WHERE "code_hash" = ? LIMIT 1
`

func (q *Queries) GetAuthorizationCode(ctx context.Context, codeHash string) (AuthorizationCode, error) {
	row := q.db.QueryRowContext(ctx, getAuthorizationCode, codeHash)
	var i AuthorizationCode
	err := row.Scan(
		&i.CodeHash,
		&i.ClientID,
		&i.RedirectURI,
		&i.Subject,
		&i.Scope,
		&i.IssuedAt,
		&i.ExpiresAt,
		&i.Used,
	)
	return i, err
}

package repository

import (
	"context"
)

const deleteClient = `-- name: DeleteClient :exec
DELETE FROM "clients"
WHERE "client_id" = ?
`

func (q *Queries) DeleteClient(ctx context.Context, clientID string) error {
	_, err := q.db.ExecContext(ctx, deleteClient, clientID)
	return err
}

const getClient = `-- name: GetClient :one
SELECT client_id, secret_hash, name, redirect_uris, grant_types, scopes, public, secret_optional, created_at, updated_at FROM "clients"
WHERE "client_id" = ? LIMIT 1
`

func (q *Queries) GetClient(ctx context.Context, clientID string) (Client, error) {
	row := q.db.QueryRowContext(ctx, getClient, clientID)
	var i Client
	err := row.Scan(
		&i.ClientID,
		&i.SecretHash,
		&i.Name,
		&i.RedirectURIs,
		&i.GrantTypes,
		&i.Scopes,
		&i.Public,
		&i.SecretOptional,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listClientIDs = `-- name: ListClientIDs :many
SELECT client_id FROM "clients"
ORDER BY "client_id"
`

func (q *Queries) ListClientIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listClientIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var clientID string
		if err := rows.Scan(&clientID); err != nil {
			return nil, err
		}
		items = append(items, clientID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertClient = `-- name: UpsertClient :exec
INSERT INTO "clients" (
    "client_id",
    "secret_hash",
    "name",
    "redirect_uris",
    "grant_types",
    "scopes",
    "public",
    "secret_optional",
    "created_at",
    "updated_at"
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)
ON CONFLICT ("client_id") DO UPDATE SET
    "secret_hash" = excluded."secret_hash",
    "name" = excluded."name",
    "redirect_uris" = excluded."redirect_uris",
    "grant_types" = excluded."grant_types",
    "scopes" = excluded."scopes",
    "public" = excluded."public",
    "secret_optional" = excluded."secret_optional",
    "updated_at" = excluded."updated_at"
`

type UpsertClientParams struct {
	ClientID       string
	SecretHash     string
	Name           string
	RedirectURIs   string
	GrantTypes     string
	Scopes         string
	Public         bool
	SecretOptional bool
	CreatedAt      int64
	UpdatedAt      int64
}

func (q *Queries) UpsertClient(ctx context.Context, arg UpsertClientParams) error {
	_, err := q.db.ExecContext(ctx, upsertClient,
		arg.ClientID,
		arg.SecretHash,
		arg.Name,
		arg.RedirectURIs,
		arg.GrantTypes,
		arg.Scopes,
		arg.Public,
		arg.SecretOptional,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

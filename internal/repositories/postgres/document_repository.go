// Package postgres implements the record collections on a single PostgreSQL table.
// Each record is one row with a JSONB body and a revision drawn from a shared sequence;
// transactions commit with UPDATE ... WHERE rev = $n and change notifications travel over
// LISTEN/NOTIFY.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"github.com/ArowuTest/team-raffle-backend/internal/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

// NotifyChannel is the LISTEN/NOTIFY channel carrying record changes
const NotifyChannel = "raffle_changes"

// schema is applied in order. Revisions come from documents_rev_seq so a deleted and
// recreated row never repeats a revision.
var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS documents_rev_seq`,
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT   NOT NULL,
		key        TEXT   NOT NULL,
		rev        BIGINT NOT NULL,
		body       JSONB  NOT NULL,
		PRIMARY KEY (collection, key)
	)`,
}

var _ repositories.Collection[models.Team] = (*DocumentRepository[models.Team])(nil)

// notification is the NOTIFY payload
type notification struct {
	Collection string                  `json:"collection"`
	Key        string                  `json:"key"`
	Type       repositories.ChangeType `json:"type"`
}

// DocumentRepository implements repositories.Collection for one collection name
type DocumentRepository[T any] struct {
	pool        *pgxpool.Pool
	collection  string
	maxAttempts int
}

// EnsureSchema creates the revision sequence and documents table if needed
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// NewDocumentRepository creates a DocumentRepository for the named collection
func NewDocumentRepository[T any](pool *pgxpool.Pool, collection string, maxAttempts int) *DocumentRepository[T] {
	if maxAttempts <= 0 {
		maxAttempts = repositories.DefaultMaxAttempts
	}
	return &DocumentRepository[T]{pool: pool, collection: collection, maxAttempts: maxAttempts}
}

// NewRepositories applies the schema and creates the four raffle collections
func NewRepositories(ctx context.Context, pool *pgxpool.Pool, maxAttempts int) (repositories.Repositories, error) {
	if err := EnsureSchema(ctx, pool); err != nil {
		return repositories.Repositories{}, err
	}
	return repositories.Repositories{
		Teams:      NewDocumentRepository[models.Team](pool, repositories.CollectionTeams, maxAttempts),
		Selections: NewDocumentRepository[models.Selection](pool, repositories.CollectionSelection, maxAttempts),
		Prizes:     NewDocumentRepository[models.Prizes](pool, repositories.CollectionPrizes, maxAttempts),
		Results:    NewDocumentRepository[models.Results](pool, repositories.CollectionResults, maxAttempts),
	}, nil
}

// Read returns the record stored under key
func (r *DocumentRepository[T]) Read(ctx context.Context, key string) (*T, error) {
	_, doc, err := r.find(ctx, r.pool, key)
	return doc, err
}

// Write upserts the record and notifies listeners
func (r *DocumentRepository[T]) Write(ctx context.Context, key string, doc *T) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", r.collection, key, err)
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// xmax is zero only on a freshly inserted row
		var created bool
		err := tx.QueryRow(ctx, `
			INSERT INTO documents (collection, key, rev, body)
			VALUES ($1, $2, nextval('documents_rev_seq'), $3)
			ON CONFLICT (collection, key) DO UPDATE
			SET rev = EXCLUDED.rev, body = EXCLUDED.body
			RETURNING xmax = 0
		`, r.collection, key, body).Scan(&created)
		if err != nil {
			return err
		}
		changeType := repositories.ChangeModified
		if created {
			changeType = repositories.ChangeCreated
		}
		return r.notify(ctx, tx, key, changeType)
	})
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", r.collection, key, err)
	}
	return nil
}

// Create inserts the record if the key is free
func (r *DocumentRepository[T]) Create(ctx context.Context, key string, doc *T) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", r.collection, key, err)
	}
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO documents (collection, key, rev, body)
			VALUES ($1, $2, nextval('documents_rev_seq'), $3)
			ON CONFLICT (collection, key) DO NOTHING
		`, r.collection, key, body)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repositories.ErrAlreadyExists
		}
		return r.notify(ctx, tx, key, repositories.ChangeCreated)
	})
	if errors.Is(err, repositories.ErrAlreadyExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", r.collection, key, err)
	}
	return nil
}

// Transact applies fn and commits only if the row revision is unchanged
func (r *DocumentRepository[T]) Transact(ctx context.Context, key string, fn func(doc *T) error) (*T, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		rev, doc, err := r.find(ctx, r.pool, key)
		if err != nil {
			return nil, err
		}
		if err := fn(doc); err != nil {
			return nil, err
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("transact %s/%s: %w", r.collection, key, err)
		}

		committed := false
		err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `
				UPDATE documents SET rev = nextval('documents_rev_seq'), body = $4
				WHERE collection = $1 AND key = $2 AND rev = $3
			`, r.collection, key, rev, body)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			committed = true
			return r.notify(ctx, tx, key, repositories.ChangeModified)
		})
		if err != nil {
			return nil, fmt.Errorf("transact %s/%s: %w", r.collection, key, err)
		}
		if committed {
			return doc, nil
		}
		slog.Debug("Transaction conflict, retrying", "collection", r.collection, "key", key, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: %s/%s after %d attempts: %w",
		repositories.ErrTransactionAborted, r.collection, key, r.maxAttempts, repositories.ErrConflict)
}

// Delete removes the record and notifies listeners if it existed
func (r *DocumentRepository[T]) Delete(ctx context.Context, key string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND key = $2`, r.collection, key)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		return r.notify(ctx, tx, key, repositories.ChangeDeleted)
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.collection, key, err)
	}
	return nil
}

// Subscribe holds a pooled connection in LISTEN mode for the lifetime of the subscription.
// Created and modified changes carry the record as read after the notification arrives.
func (r *DocumentRepository[T]) Subscribe(ctx context.Context, key string, onChange func(repositories.Change[T])) (repositories.Unsubscribe, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s/%s: %w", r.collection, key, err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("subscribe %s/%s: %w", r.collection, key, err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer func() {
			if _, err := conn.Exec(context.Background(), "UNLISTEN *"); err != nil {
				conn.Conn().Close(context.Background())
			}
			conn.Release()
		}()
		for {
			n, err := conn.Conn().WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					slog.Error("Listener stopped", "collection", r.collection, "key", key, "error", err)
					onChange(repositories.StoppedChange[T](key, err))
				}
				return
			}
			var payload notification
			if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil {
				slog.Warn("Ignoring malformed notification", "payload", n.Payload, "error", err)
				continue
			}
			if payload.Collection != r.collection || payload.Key != key {
				continue
			}
			change := repositories.Change[T]{Type: payload.Type, Key: key}
			if payload.Type != repositories.ChangeDeleted {
				doc, err := r.Read(listenCtx, key)
				if err != nil {
					if !repositories.IsNotFound(err) {
						slog.Error("Failed to load changed record", "collection", r.collection, "key", key, "error", err)
					}
					continue
				}
				change.Doc = doc
			}
			onChange(change)
		}
	}()

	return func() { cancel() }, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *DocumentRepository[T]) find(ctx context.Context, q querier, key string) (int64, *T, error) {
	var (
		rev  int64
		body []byte
	)
	err := q.QueryRow(ctx, `SELECT rev, body FROM documents WHERE collection = $1 AND key = $2`,
		r.collection, key).Scan(&rev, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, repositories.ErrNotFound
		}
		return 0, nil, fmt.Errorf("read %s/%s: %w", r.collection, key, err)
	}
	doc := new(T)
	if err := json.Unmarshal(body, doc); err != nil {
		return 0, nil, fmt.Errorf("decode %s/%s: %w", r.collection, key, err)
	}
	return rev, doc, nil
}

func (r *DocumentRepository[T]) notify(ctx context.Context, tx pgx.Tx, key string, changeType repositories.ChangeType) error {
	payload, err := json.Marshal(notification{Collection: r.collection, Key: key, Type: changeType})
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, string(payload))
	return err
}

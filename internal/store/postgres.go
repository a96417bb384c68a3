package store

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"moodchat/internal/chaterr"
	"moodchat/internal/message"
)

const messagesDDL = `
CREATE TABLE IF NOT EXISTS messages (
    id BIGSERIAL PRIMARY KEY,
    sender TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    attachment_url TEXT NOT NULL DEFAULT '',
    replied_to BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the message stream in a PostgreSQL table. The insert
// feed is process-local: this store is meant to sit behind a single serving
// process which relays invalidations to remote clients.
type PostgresStore struct {
	db       *sql.DB
	notifier *Notifier
}

// OpenPostgresStore connects via the pgx stdlib driver and runs the schema
// migration.
func OpenPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, chaterr.Wrap(chaterr.CodeStorage, "open database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, chaterr.Wrap(chaterr.CodeStorage, "ping database", err)
	}
	st := NewPostgresStore(db)
	if err := st.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// NewPostgresStore wraps an existing connection without migrating, which
// keeps construction testable against a mock.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, notifier: NewNotifier()}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, messagesDDL); err != nil {
		return chaterr.Wrap(chaterr.CodeStorage, "migrate messages table", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Insert(ctx context.Context, row Row) (message.Message, error) {
	if err := ValidateRow(row); err != nil {
		return message.Message{}, err
	}
	msg := message.Message{
		Sender:        row.Sender,
		Body:          row.Body,
		AttachmentURL: row.AttachmentURL,
		RepliedTo:     row.RepliedTo,
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (sender, body, attachment_url, replied_to)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		string(row.Sender), row.Body, row.AttachmentURL, row.RepliedTo,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return message.Message{}, chaterr.Wrap(chaterr.CodeInsert, "insert message", err)
	}
	s.notifier.Notify()
	return msg, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]message.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, body, attachment_url, replied_to, created_at
		 FROM messages ORDER BY created_at, id`)
	if err != nil {
		return nil, chaterr.Wrap(chaterr.CodeFetch, "list messages", err)
	}
	defer rows.Close()

	out := make([]message.Message, 0, 64)
	for rows.Next() {
		var msg message.Message
		var sender string
		var repliedTo sql.NullInt64
		if err := rows.Scan(&msg.ID, &sender, &msg.Body, &msg.AttachmentURL, &repliedTo, &msg.CreatedAt); err != nil {
			return nil, chaterr.Wrap(chaterr.CodeFetch, "scan message", err)
		}
		msg.Sender = message.Role(sender)
		if repliedTo.Valid {
			id := repliedTo.Int64
			msg.RepliedTo = &id
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, chaterr.Wrap(chaterr.CodeFetch, "list messages", err)
	}
	return out, nil
}

func (s *PostgresStore) SubscribeOnInsert(fn func()) *Subscription {
	return s.notifier.Subscribe(fn)
}

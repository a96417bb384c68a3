package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"moodchat/internal/chaterr"
	"moodchat/internal/message"
)

const messagesBucket = "messages"

// BoltStore persists the message stream in BoltDB so a single-binary
// deployment needs no external database. Keys are the zero-padded message
// id, which preserves insertion order under a cursor scan.
type BoltStore struct {
	db       *bbolt.DB
	notifier *Notifier

	mu     sync.Mutex
	lastTS time.Time
}

func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, chaterr.Wrap(chaterr.CodeStorage, "prepare store dir", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, chaterr.Wrap(chaterr.CodeStorage, "open message db", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(messagesBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, chaterr.Wrap(chaterr.CodeStorage, "init message bucket", err)
	}
	return &BoltStore{db: db, notifier: NewNotifier()}, nil
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) Insert(ctx context.Context, row Row) (message.Message, error) {
	if err := ctx.Err(); err != nil {
		return message.Message{}, chaterr.Wrap(chaterr.CodeInsert, "insert message", err)
	}
	if err := ValidateRow(row); err != nil {
		return message.Message{}, err
	}

	msg := message.Message{
		Sender:        row.Sender,
		Body:          row.Body,
		AttachmentURL: row.AttachmentURL,
		RepliedTo:     row.RepliedTo,
		CreatedAt:     s.nextTimestamp(),
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(messagesBucket))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		msg.ID = int64(seq)
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return bucket.Put(boltKey(msg.ID), data)
	})
	if err != nil {
		return message.Message{}, chaterr.Wrap(chaterr.CodeInsert, "insert message", err)
	}
	s.notifier.Notify()
	return msg, nil
}

func (s *BoltStore) ListAll(ctx context.Context) ([]message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, chaterr.Wrap(chaterr.CodeFetch, "list messages", err)
	}
	out := make([]message.Message, 0, 64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(messagesBucket))
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var msg message.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				continue
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, chaterr.Wrap(chaterr.CodeFetch, "list messages", err)
	}
	return out, nil
}

func (s *BoltStore) SubscribeOnInsert(fn func()) *Subscription {
	return s.notifier.Subscribe(fn)
}

// nextTimestamp returns a UTC timestamp strictly after every timestamp
// assigned so far, keeping created_at monotonic even when the wall clock
// reads the same nanosecond twice.
func (s *BoltStore) nextTimestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if !now.After(s.lastTS) {
		now = s.lastTS.Add(time.Nanosecond)
	}
	s.lastTS = now
	return now
}

func boltKey(id int64) []byte {
	return []byte(fmt.Sprintf("%020d", id))
}

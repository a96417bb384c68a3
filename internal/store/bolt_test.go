package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"moodchat/internal/chaterr"
	"moodchat/internal/message"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := OpenBoltStore(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestBoltInsertAssignsIDAndTimestamp(t *testing.T) {
	st := openTestStore(t)
	msg, err := st.Insert(context.Background(), Row{Sender: message.RoleUser, Body: "hi"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if msg.ID != 1 {
		t.Fatalf("expected first id 1, got %d", msg.ID)
	}
	if msg.CreatedAt.IsZero() {
		t.Fatalf("created_at not assigned")
	}
}

func TestBoltListAllOrderedByCreatedAt(t *testing.T) {
	st := openTestStore(t)
	for _, body := range []string{"one", "two", "three"} {
		if _, err := st.Insert(context.Background(), Row{Sender: message.RoleUser, Body: body}); err != nil {
			t.Fatalf("insert %q: %v", body, err)
		}
	}
	all, err := st.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if !all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("created_at not strictly increasing at %d: %v vs %v", i, all[i-1].CreatedAt, all[i].CreatedAt)
		}
		if all[i].ID <= all[i-1].ID {
			t.Fatalf("ids out of order at %d", i)
		}
	}
}

func TestBoltRejectsEmptyRow(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Insert(context.Background(), Row{Sender: message.RoleAdmin, Body: "   "})
	if err == nil {
		t.Fatalf("expected validation error for empty row")
	}
	if chaterr.CodeOf(err) != chaterr.CodeInvalidArg {
		t.Fatalf("expected INVALID_ARGUMENT, got %s", chaterr.CodeOf(err))
	}
	all, _ := st.ListAll(context.Background())
	if len(all) != 0 {
		t.Fatalf("rejected row must not be stored")
	}
}

func TestBoltAttachmentOnlyRowAllowed(t *testing.T) {
	st := openTestStore(t)
	msg, err := st.Insert(context.Background(), Row{Sender: message.RoleUser, AttachmentURL: "http://localhost/attachments/a.png"})
	if err != nil {
		t.Fatalf("attachment-only insert: %v", err)
	}
	if msg.Body != "" || msg.AttachmentURL == "" {
		t.Fatalf("unexpected stored row: %+v", msg)
	}
}

func TestBoltRepliedToRoundTrip(t *testing.T) {
	st := openTestStore(t)
	first, err := st.Insert(context.Background(), Row{Sender: message.RoleUser, Body: "hi"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err = st.Insert(context.Background(), Row{Sender: message.RoleAdmin, Body: "hello", RepliedTo: &first.ID})
	if err != nil {
		t.Fatalf("insert reply: %v", err)
	}
	all, err := st.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all[1].RepliedTo == nil || *all[1].RepliedTo != first.ID {
		t.Fatalf("replied_to lost: %+v", all[1])
	}
}

func TestBoltMonotonicTimestampUnderClockRepeat(t *testing.T) {
	st := openTestStore(t)
	st.mu.Lock()
	st.lastTS = time.Now().UTC().Add(time.Hour)
	pinned := st.lastTS
	st.mu.Unlock()

	msg, err := st.Insert(context.Background(), Row{Sender: message.RoleUser, Body: "later"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !msg.CreatedAt.After(pinned) {
		t.Fatalf("timestamp must be nudged past the last assigned value")
	}
}

func TestBoltInsertNotifiesSubscribers(t *testing.T) {
	st := openTestStore(t)
	fired := make(chan struct{}, 4)
	sub := st.SubscribeOnInsert(func() { fired <- struct{}{} })
	defer sub.Unsubscribe()

	if _, err := st.Insert(context.Background(), Row{Sender: message.RoleUser, Body: "ping"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("subscriber not notified after insert")
	}
}

package remote

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"moodchat/internal/attach"
	"moodchat/internal/blob"
	"moodchat/internal/chaterr"
	"moodchat/internal/engine"
	"moodchat/internal/message"
	"moodchat/internal/server"
	"moodchat/internal/store"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.OpenBoltStore(filepath.Join(dir, "messages.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	storage, err := blob.OpenDiskStorage(filepath.Join(dir, "blobs.db"), filepath.Join(dir, "blobs"), "http://127.0.0.1/attachments")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	srv := server.New(st, storage, attach.NewUploader(storage, time.Second), server.Options{})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		_ = storage.Close()
		_ = st.Close()
	})
	return ts
}

func TestRemoteInsertAndListRoundTrip(t *testing.T) {
	ts := newBackend(t)
	rs := Open(ts.URL, time.Second)
	defer rs.Close()

	msg, err := rs.Insert(context.Background(), store.Row{Sender: message.RoleUser, Body: "hi"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if msg.ID == 0 || msg.CreatedAt.IsZero() {
		t.Fatalf("server-assigned fields missing: %+v", msg)
	}

	all, err := rs.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Body != "hi" {
		t.Fatalf("unexpected history: %+v", all)
	}
}

func TestRemoteInsertValidationHappensLocally(t *testing.T) {
	rs := Open("http://127.0.0.1:1", time.Second) // nothing listening
	defer rs.Close()
	_, err := rs.Insert(context.Background(), store.Row{Sender: message.RoleUser, Body: "  "})
	if chaterr.CodeOf(err) != chaterr.CodeInvalidArg {
		t.Fatalf("expected local INVALID_ARGUMENT, got %v", err)
	}
}

func TestRemoteListFailureWrapsFetchCode(t *testing.T) {
	rs := Open("http://127.0.0.1:1", 200*time.Millisecond)
	defer rs.Close()
	_, err := rs.ListAll(context.Background())
	if err == nil {
		t.Fatalf("expected fetch error")
	}
	if code := chaterr.CodeOf(err); code != chaterr.CodeFetch && code != chaterr.CodeTimeout {
		t.Fatalf("expected FETCH or TIMEOUT code, got %s", code)
	}
}

func TestRemoteSubscriptionDeliversInsertSignals(t *testing.T) {
	ts := newBackend(t)
	rs := Open(ts.URL, time.Second)
	defer rs.Close()

	fired := make(chan struct{}, 4)
	sub := rs.SubscribeOnInsert(func() { fired <- struct{}{} })
	defer sub.Unsubscribe()
	// give the websocket pump a moment to connect
	time.Sleep(100 * time.Millisecond)

	if _, err := rs.Insert(context.Background(), store.Row{Sender: message.RoleUser, Body: "ping"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("insert signal never arrived over the websocket")
	}
}

func TestRemoteUploadReturnsURL(t *testing.T) {
	ts := newBackend(t)
	rs := Open(ts.URL, time.Second)
	defer rs.Close()

	url, err := rs.Upload(context.Background(), &message.Attachment{Name: "cat.png", Mime: "image/png", Data: pngBytes})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url == "" {
		t.Fatalf("empty url")
	}
}

func TestRemoteUploadRejectsNonImage(t *testing.T) {
	ts := newBackend(t)
	rs := Open(ts.URL, time.Second)
	defer rs.Close()

	_, err := rs.Upload(context.Background(), &message.Attachment{Name: "notes.txt", Mime: "text/plain", Data: []byte("x")})
	if chaterr.CodeOf(err) != chaterr.CodeInvalidArg {
		t.Fatalf("expected INVALID_ARGUMENT from server, got %v", err)
	}
}

func TestEngineOverRemoteStore(t *testing.T) {
	ts := newBackend(t)
	rs := Open(ts.URL, time.Second)
	defer rs.Close()

	e := engine.New(rs, message.RoleUser, engine.Options{Uploader: rs})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()
	// let the websocket pump connect before sending
	time.Sleep(100 * time.Millisecond)

	if err := e.Send(context.Background(), &message.Draft{Text: "hello over the wire"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := e.Messages(); len(msgs) == 1 {
			if msgs[0].Body != "hello over the wire" {
				t.Fatalf("unexpected reconciled message: %+v", msgs[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("engine never reconciled the remote insert")
}

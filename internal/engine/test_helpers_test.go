package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"moodchat/internal/message"
	"moodchat/internal/store"
)

// fakeStore is an in-memory Store with controllable failures and fetch
// gating, recording every insert it receives.
type fakeStore struct {
	mu        sync.Mutex
	notifier  *store.Notifier
	msgs      []message.Message
	nextID    int64
	clock     time.Time
	insertErr error
	listErr   error
	listGate  chan struct{}
	inserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notifier: store.NewNotifier(),
		clock:    time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) Insert(ctx context.Context, row store.Row) (message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return message.Message{}, f.insertErr
	}
	if err := store.ValidateRow(row); err != nil {
		return message.Message{}, err
	}
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	msg := message.Message{
		ID:            f.nextID,
		Sender:        row.Sender,
		Body:          row.Body,
		AttachmentURL: row.AttachmentURL,
		RepliedTo:     row.RepliedTo,
		CreatedAt:     f.clock,
	}
	f.msgs = append(f.msgs, msg)
	notifier := f.notifier
	go notifier.Notify()
	return msg, nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]message.Message, error) {
	f.mu.Lock()
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]message.Message, len(f.msgs))
	copy(out, f.msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) SubscribeOnInsert(fn func()) *store.Subscription {
	return f.notifier.Subscribe(fn)
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

// seed appends a message directly, bypassing the notification feed.
func (f *fakeStore) seed(msg message.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	if msg.ID > f.nextID {
		f.nextID = msg.ID
	}
}

func fakeRow(body string) store.Row {
	return store.Row{Sender: message.RoleUser, Body: body}
}

// recordingRenderer captures every snapshot handed to it.
type recordingRenderer struct {
	mu        sync.Mutex
	snapshots [][]message.Message
}

func (r *recordingRenderer) Render(msgs []message.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]message.Message, len(msgs))
	copy(snapshot, msgs)
	r.snapshots = append(r.snapshots, snapshot)
}

func (r *recordingRenderer) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recordingRenderer) last() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

// fakeUploader resolves uploads to a canned URL or failure.
type fakeUploader struct {
	mu      sync.Mutex
	url     string
	err     error
	uploads int
}

func (u *fakeUploader) Upload(ctx context.Context, att *message.Attachment) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads++
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

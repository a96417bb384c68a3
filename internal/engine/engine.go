// Package engine implements the chat synchronization core: it owns a
// time-ordered view of the two-party conversation, mediates sends, and
// reconciles the local cache against the store on every insert
// notification.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"moodchat/internal/chaterr"
	"moodchat/internal/message"
	"moodchat/internal/store"
)

// State is the engine lifecycle phase.
type State int

const (
	Disconnected State = iota
	Subscribed
)

func (s State) String() string {
	if s == Subscribed {
		return "subscribed"
	}
	return "disconnected"
}

// Uploader resolves a staged attachment into a public URL before the
// message row is persisted.
type Uploader interface {
	Upload(ctx context.Context, att *message.Attachment) (string, error)
}

// Renderer receives the reconciled message list after every cache replace.
// Rendering is the collaborator's concern; the engine only hands over an
// ordered snapshot it no longer touches.
type Renderer interface {
	Render([]message.Message)
}

const DefaultTimeout = 15 * time.Second

// Options carries the engine collaborators.
type Options struct {
	Uploader Uploader
	Renderer Renderer
	Timeout  time.Duration
	Logger   *log.Logger
}

// Engine maintains a locally coherent message cache for one active view.
// The cache is replaced wholesale on each successful fetch, never mutated
// incrementally, so readers always observe a complete snapshot.
type Engine struct {
	st   store.Store
	role message.Role

	uploader Uploader
	renderer Renderer
	timeout  time.Duration
	logger   *log.Logger

	mu    sync.Mutex
	state State
	gen   uint64
	cache []message.Message
	sub   *store.Subscription
	ctx   context.Context
}

func New(st store.Store, role message.Role, opts Options) *Engine {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		st:       st,
		role:     role,
		uploader: opts.Uploader,
		renderer: opts.Renderer,
		timeout:  timeout,
		logger:   logger,
	}
}

// Role returns the viewer role this engine was mounted with.
func (e *Engine) Role() message.Role { return e.role }

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start performs the initial full fetch and subscribes to the store's
// insert feed. The initial fetch is best-effort: a transport failure is
// logged and the next notification re-attempts it.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == Subscribed {
		e.mu.Unlock()
		return chaterr.New(chaterr.CodeInternal, "engine already subscribed")
	}
	e.state = Subscribed
	e.ctx = ctx
	gen := e.gen
	e.mu.Unlock()

	e.refresh(gen)

	sub := e.st.SubscribeOnInsert(func() {
		e.refresh(gen)
	})

	e.mu.Lock()
	if e.gen != gen {
		// torn down while we were subscribing
		e.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	e.sub = sub
	e.mu.Unlock()
	return nil
}

// Stop tears the subscription down and invalidates in-flight completions.
// It is idempotent and safe to call from any exit path.
func (e *Engine) Stop() {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.state = Disconnected
	e.gen++
	e.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Messages returns an ordered snapshot copy of the current cache.
func (e *Engine) Messages() []message.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]message.Message, len(e.cache))
	copy(out, e.cache)
	return out
}

// ResolveParent looks the reply target up in the loaded cache. A miss is
// expected for dangling references and must be rendered as a degraded
// preview, not treated as an error.
func (e *Engine) ResolveParent(id int64) (message.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, msg := range e.cache {
		if msg.ID == id {
			return msg, true
		}
	}
	return message.Message{}, false
}

// Send uploads the staged attachment (if any), inserts the message row,
// and clears the draft on success. The draft is left intact on every
// failure so the user can retry, and no optimistic local insertion happens:
// the sender sees their message once the insert notification round-trips.
func (e *Engine) Send(ctx context.Context, draft *message.Draft) error {
	if draft.Empty() {
		return nil
	}

	attachmentURL := ""
	if draft.Attachment != nil {
		if e.uploader == nil {
			return chaterr.New(chaterr.CodeUpload, "no uploader configured")
		}
		url, err := e.uploader.Upload(ctx, draft.Attachment)
		if err != nil {
			// abort the whole send; never a body-only row with a
			// silently dropped image
			return err
		}
		attachmentURL = url
	}

	row := store.Row{
		Sender:        e.role,
		Body:          draft.Text,
		AttachmentURL: attachmentURL,
		RepliedTo:     draft.ReplyTarget,
	}
	insertCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if _, err := e.st.Insert(insertCtx, row); err != nil {
		return err
	}
	draft.Clear()
	return nil
}

// refresh re-issues the full fetch and atomically replaces the cache,
// unless the engine generation moved on while the fetch was in flight.
func (e *Engine) refresh(gen uint64) {
	e.mu.Lock()
	if e.gen != gen || e.state != Subscribed {
		e.mu.Unlock()
		return
	}
	ctx := e.ctx
	e.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	msgs, err := e.st.ListAll(fetchCtx)
	if err != nil {
		// best-effort cache: the next notification re-attempts
		e.logger.Printf("chat fetch failed: %v", err)
		return
	}

	e.mu.Lock()
	if e.gen != gen || e.state != Subscribed {
		e.mu.Unlock()
		return
	}
	e.cache = msgs
	renderer := e.renderer
	snapshot := make([]message.Message, len(msgs))
	copy(snapshot, msgs)
	e.mu.Unlock()

	if renderer != nil {
		renderer.Render(snapshot)
	}
}

// Package remote implements the message store contract against the
// moodchat server API, so the terminal client runs the same sync engine as
// an embedded deployment.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"moodchat/internal/chaterr"
	"moodchat/internal/message"
	"moodchat/internal/store"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBackoff     = 30 * time.Second
)

// Store talks to a moodchat server. Insert and ListAll are plain HTTP
// calls; the insert feed arrives over the server's websocket and is
// re-broadcast through a local notifier.
type Store struct {
	baseURL  string
	client   *http.Client
	notifier *store.Notifier

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	once   sync.Once
}

func Open(baseURL string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		notifier: store.NewNotifier(),
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, row store.Row) (message.Message, error) {
	if err := store.ValidateRow(row); err != nil {
		return message.Message{}, err
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return message.Message{}, chaterr.Wrap(chaterr.CodeInsert, "encode message row", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/messages", bytes.NewReader(payload))
	if err != nil {
		return message.Message{}, chaterr.Wrap(chaterr.CodeInsert, "build insert request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Chat-Role", string(row.Sender))

	resp, err := s.client.Do(req)
	if err != nil {
		return message.Message{}, chaterr.Wrap(chaterr.CodeInsert, "insert message", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return message.Message{}, remoteError(chaterr.CodeInsert, "insert message", resp)
	}
	var msg message.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return message.Message{}, chaterr.Wrap(chaterr.CodeInsert, "decode stored message", err)
	}
	return msg, nil
}

func (s *Store) ListAll(ctx context.Context) ([]message.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/messages", nil)
	if err != nil {
		return nil, chaterr.Wrap(chaterr.CodeFetch, "build fetch request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, chaterr.Wrap(chaterr.CodeFetch, "fetch messages", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(chaterr.CodeFetch, "fetch messages", resp)
	}
	var msgs []message.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, chaterr.Wrap(chaterr.CodeFetch, "decode messages", err)
	}
	return msgs, nil
}

// SubscribeOnInsert registers the callback and lazily starts the websocket
// pump on first use.
func (s *Store) SubscribeOnInsert(fn func()) *store.Subscription {
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		if s.closed {
			cancel()
			s.mu.Unlock()
			return
		}
		s.cancel = cancel
		s.mu.Unlock()
		go s.pump(ctx)
	})
	return s.notifier.Subscribe(fn)
}

// Upload sends a staged image to the server's attachment endpoint and
// returns the public URL, satisfying the engine's Uploader contract.
func (s *Store) Upload(ctx context.Context, att *message.Attachment) (string, error) {
	if att == nil || len(att.Data) == 0 {
		return "", chaterr.InvalidArg("no attachment staged")
	}
	body, contentType, err := multipartImage(att)
	if err != nil {
		return "", chaterr.Wrap(chaterr.CodeUpload, "encode upload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/attachments", body)
	if err != nil {
		return "", chaterr.Wrap(chaterr.CodeUpload, "build upload request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", chaterr.Wrap(chaterr.CodeUpload, "upload attachment", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", remoteError(chaterr.CodeUpload, "upload attachment", resp)
	}
	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", chaterr.Wrap(chaterr.CodeUpload, "decode upload response", err)
	}
	return result.URL, nil
}

// pump keeps one websocket open against /ws, forwarding every event to the
// notifier and reconnecting with capped backoff until Close.
func (s *Store) pump(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL(), nil)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			s.notifier.Notify()
		}
		close(done)
		_ = conn.Close()
	}
}

func (s *Store) wsURL() string {
	url := s.baseURL + "/ws"
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

// remoteError rebuilds the server's error taxonomy from its JSON payload.
func remoteError(fallback chaterr.Code, op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Code    chaterr.Code `json:"code"`
		Message string       `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Code != "" {
		return chaterr.New(payload.Code, payload.Message)
	}
	return chaterr.New(fallback, fmt.Sprintf("%s: server returned %d: %s", op, resp.StatusCode, strings.TrimSpace(string(data))))
}

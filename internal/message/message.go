package message

import (
	"strings"
	"time"
)

// Role identifies which of the two fixed chat parties authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the two known parties.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Message is one persisted chat entry. The store assigns ID and CreatedAt
// on insert; a message is never mutated afterwards.
type Message struct {
	ID            int64     `json:"id"`
	Sender        Role      `json:"sender"`
	Body          string    `json:"body,omitempty"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	RepliedTo     *int64    `json:"replied_to,omitempty"`
}

// HasContent reports whether the message satisfies the store invariant of
// carrying a non-empty body or an attachment.
func (m Message) HasContent() bool {
	return strings.TrimSpace(m.Body) != "" || m.AttachmentURL != ""
}

// Attachment is a staged local file waiting to be uploaded with a draft.
// Data is read fully at stage time so a failed send can be retried without
// re-opening the original file.
type Attachment struct {
	Name string
	Mime string
	Data []byte
}

// Draft is the ephemeral compose state of an outgoing message. It is owned
// by the composing client and is only cleared on a successful send or an
// explicit cancel.
type Draft struct {
	Text        string
	Attachment  *Attachment
	ReplyTarget *int64
}

// Empty reports whether the draft has nothing worth sending.
func (d *Draft) Empty() bool {
	if d == nil {
		return true
	}
	return strings.TrimSpace(d.Text) == "" && d.Attachment == nil
}

// Clear resets the draft after a successful send.
func (d *Draft) Clear() {
	if d == nil {
		return
	}
	d.Text = ""
	d.Attachment = nil
	d.ReplyTarget = nil
}

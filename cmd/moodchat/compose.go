package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"moodchat/internal/engine"
	"moodchat/internal/message"
	"moodchat/internal/ui"
)

const composeHelp = "commands: /reply <id>, /attach <path>, /send, /cancel, /quit"

// composer owns the local draft and translates input lines into engine
// calls. At most one send is outstanding, and while it is in flight every
// draft-mutating command is rejected with a notice: the in-flight draft
// must stay intact until the send resolves.
type composer struct {
	eng    *engine.Engine
	system func(string)
	// onSending toggles the compose control while a send is in flight.
	onSending func(bool)

	mu      sync.Mutex
	draft   message.Draft
	sending bool
}

func newComposer(eng *engine.Engine, system func(string), onSending func(bool)) *composer {
	if system == nil {
		system = func(string) {}
	}
	if onSending == nil {
		onSending = func(bool) {}
	}
	return &composer{eng: eng, system: system, onSending: onSending}
}

// handle processes one input line and reports whether the client should
// quit.
func (c *composer) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "/quit":
		return true
	case line == "/cancel":
		c.cancelDraft()
		return false
	case line == "/send":
		c.dispatch(ctx, "")
		return false
	case strings.HasPrefix(line, "/reply "):
		c.setReply(strings.TrimSpace(strings.TrimPrefix(line, "/reply ")))
		return false
	case strings.HasPrefix(line, "/attach "):
		c.stageAttachment(strings.TrimSpace(strings.TrimPrefix(line, "/attach ")))
		return false
	case strings.HasPrefix(line, "/"):
		c.system(composeHelp)
		return false
	}
	c.dispatch(ctx, line)
	return false
}

// dispatch stages text (if any) and hands a copy of the draft to the send
// goroutine. The engine works on the copy, so nothing else ever touches
// the draft a send is reading.
func (c *composer) dispatch(ctx context.Context, text string) {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		c.system("still sending, hold on")
		return
	}
	if text != "" {
		c.draft.Text = text
	}
	if c.draft.Empty() {
		c.mu.Unlock()
		c.system("nothing staged to send")
		return
	}
	draft := c.draft
	c.sending = true
	c.mu.Unlock()

	c.onSending(true)
	go c.send(ctx, draft)
}

func (c *composer) send(ctx context.Context, draft message.Draft) {
	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
		c.onSending(false)
	}()
	if err := c.eng.Send(ctx, &draft); err != nil {
		// draft stays staged for retry
		c.system(fmt.Sprintf("send failed: %v", err))
		return
	}
	c.mu.Lock()
	c.draft.Clear()
	c.mu.Unlock()
}

func (c *composer) cancelDraft() {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		c.system("still sending, hold on")
		return
	}
	c.draft.Clear()
	c.mu.Unlock()
	c.system("draft cleared")
}

func (c *composer) setReply(arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		c.system("usage: /reply <message id>")
		return
	}
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		c.system("still sending, hold on")
		return
	}
	c.draft.ReplyTarget = &id
	c.mu.Unlock()
	if parent, ok := c.eng.ResolveParent(id); ok {
		c.system(fmt.Sprintf("replying to %s", ui.ReplyPreview(parent.ID, c.eng.ResolveParent)))
	} else {
		c.system(fmt.Sprintf("replying to #%d (not loaded here)", id))
	}
}

func (c *composer) stageAttachment(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		c.system(fmt.Sprintf("cannot read %s: %v", path, err))
		return
	}
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		c.system("still sending, hold on")
		return
	}
	c.draft.Attachment = &message.Attachment{Name: filepath.Base(path), Data: data}
	c.mu.Unlock()
	c.system(fmt.Sprintf("staged %s (%d bytes), /send delivers it", filepath.Base(path), len(data)))
}

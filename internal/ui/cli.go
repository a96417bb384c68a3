package ui

import (
	"fmt"
	"io"
	"sync"

	"moodchat/internal/message"
)

const (
	ansiReset = "\x1b[0m"
	ansiTime  = "\x1b[36m"
	ansiSelf  = "\x1b[33m"
	ansiOther = "\x1b[35m"
	ansiMeta  = "\x1b[32m"
)

// CLIDisplay prints the conversation to a writer. Renders are full
// snapshots; only the tail the previous render has not shown yet is
// printed, so the terminal reads like a live tail of the stream.
type CLIDisplay struct {
	out     io.Writer
	color   bool
	self    message.Role
	labels  Labels
	resolve Resolver

	mu      sync.Mutex
	shown   int
	lastTop int64
}

func NewCLIDisplay(out io.Writer, color bool, self message.Role, labels Labels, resolve Resolver) *CLIDisplay {
	if labels == nil {
		labels = DefaultLabels()
	}
	return &CLIDisplay{out: out, color: color, self: self, labels: labels, resolve: resolve}
}

func (c *CLIDisplay) Render(msgs []message.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := c.shown
	if start > len(msgs) || (len(msgs) > 0 && start > 0 && msgs[0].ID != c.lastTop) {
		// the stream was replaced wholesale; print it again from the top
		start = 0
	}
	for _, msg := range msgs[start:] {
		fmt.Fprintln(c.out, c.formatLine(msg))
	}
	c.shown = len(msgs)
	if len(msgs) > 0 {
		c.lastTop = msgs[0].ID
	} else {
		c.lastTop = 0
	}
}

func (c *CLIDisplay) System(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.color {
		fmt.Fprintf(c.out, "%s>>> %s%s\n", ansiMeta, text, ansiReset)
		return
	}
	fmt.Fprintf(c.out, ">>> %s\n", text)
}

func (c *CLIDisplay) formatLine(msg message.Message) string {
	ts := msg.CreatedAt.Local().Format("15:04:05")
	name := c.labels.Name(msg.Sender)
	line := ""
	if c.color {
		nameColor := ansiOther
		if msg.Sender == c.self {
			nameColor = ansiSelf
		}
		line = fmt.Sprintf("%s[%s]%s %s%s%s: %s", ansiTime, ts, ansiReset, nameColor, name, ansiReset, msg.Body)
	} else {
		line = fmt.Sprintf("[%s] %s: %s", ts, name, msg.Body)
	}
	if msg.RepliedTo != nil {
		line += fmt.Sprintf(" (re: %s)", ReplyPreview(*msg.RepliedTo, c.resolve))
	}
	if msg.AttachmentURL != "" {
		line += fmt.Sprintf(" [image: %s]", msg.AttachmentURL)
	}
	return line
}

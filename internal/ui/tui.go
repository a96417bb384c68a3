package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"moodchat/internal/message"
)

// TUIDisplay renders the conversation with tview. Each Render clears and
// refills the message view from the snapshot, matching the engine's
// full-replace reconciliation.
type TUIDisplay struct {
	app      *tview.Application
	messages *tview.TextView
	status   *tview.TextView
	input    *tview.InputField

	self    message.Role
	labels  Labels
	resolve Resolver
	submit  func(string)
	once    sync.Once
}

func NewTUIDisplay(title string, self message.Role, labels Labels, resolve Resolver, submit func(string)) *TUIDisplay {
	if labels == nil {
		labels = DefaultLabels()
	}
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(false).
		SetScrollable(true)
	messages.SetBorder(true).SetTitle(title)

	status := tview.NewTextView().SetDynamicColors(true)
	status.SetBorder(true).SetTitle("Status")

	input := tview.NewInputField().
		SetLabel("> ").
		SetFieldTextColor(tcell.ColorWhite)

	td := &TUIDisplay{
		app:      tview.NewApplication(),
		messages: messages,
		status:   status,
		input:    input,
		self:     self,
		labels:   labels,
		resolve:  resolve,
		submit:   submit,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			text := strings.TrimSpace(input.GetText())
			if text != "" && td.submit != nil {
				go td.submit(text)
			}
			input.SetText("")
		}
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 5, false).
		AddItem(status, 4, 1, false).
		AddItem(input, 3, 1, true)

	td.app.SetRoot(layout, true).EnableMouse(true)
	return td
}

func (t *TUIDisplay) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		t.once.Do(func() {
			t.app.Stop()
		})
	}()
	return t.app.Run()
}

func (t *TUIDisplay) Stop() {
	t.once.Do(func() {
		t.app.Stop()
	})
}

func (t *TUIDisplay) Render(msgs []message.Message) {
	t.app.QueueUpdateDraw(func() {
		t.messages.Clear()
		for _, msg := range msgs {
			fmt.Fprint(t.messages, t.formatLine(msg))
		}
		t.messages.ScrollToEnd()
	})
}

func (t *TUIDisplay) System(text string) {
	t.app.QueueUpdateDraw(func() {
		t.status.Clear()
		fmt.Fprintf(t.status, "[green]%s[-]\n", tview.Escape(text))
	})
}

// SetInputEnabled disables compose while a send is in flight so at most
// one send is outstanding.
func (t *TUIDisplay) SetInputEnabled(enabled bool) {
	t.app.QueueUpdateDraw(func() {
		t.input.SetDisabled(!enabled)
	})
}

func (t *TUIDisplay) formatLine(msg message.Message) string {
	ts := msg.CreatedAt.Local().Format("15:04:05")
	name := t.labels.Name(msg.Sender)
	nameColor := "lightblue"
	if msg.Sender == t.self {
		nameColor = "lightgreen"
	}
	content := fmt.Sprintf("[yellow][%s][-] [%s]%s[-]: %s", ts, nameColor, name, tview.Escape(msg.Body))
	if msg.RepliedTo != nil {
		content += fmt.Sprintf(" [grey](re: %s)[-]", tview.Escape(ReplyPreview(*msg.RepliedTo, t.resolve)))
	}
	if msg.AttachmentURL != "" {
		content += fmt.Sprintf(" [orange](image: %s)[-]", tview.Escape(msg.AttachmentURL))
	}
	return content + "\n"
}

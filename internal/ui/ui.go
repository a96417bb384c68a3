// Package ui renders reconciled message lists for the terminal client.
package ui

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"moodchat/internal/message"
)

// Resolver looks a reply target up in the engine cache. A miss renders a
// degraded preview instead of failing.
type Resolver func(id int64) (message.Message, bool)

// Labels maps each party to its display name.
type Labels map[message.Role]string

// DefaultLabels mirrors the role names when no display names are set.
func DefaultLabels() Labels {
	return Labels{message.RoleUser: "user", message.RoleAdmin: "admin"}
}

func (l Labels) Name(role message.Role) string {
	if name, ok := l[role]; ok && name != "" {
		return name
	}
	return string(role)
}

// ReplyPreview summarizes the parent of a reply, falling back when the
// parent is not in the loaded set.
func ReplyPreview(id int64, resolve Resolver) string {
	if resolve == nil {
		return "original message unavailable"
	}
	parent, ok := resolve(id)
	if !ok {
		return "original message unavailable"
	}
	excerpt := strings.TrimSpace(parent.Body)
	if excerpt == "" && parent.AttachmentURL != "" {
		excerpt = "[image]"
	}
	if runes := []rune(excerpt); len(runes) > 40 {
		excerpt = string(runes[:37]) + "..."
	}
	return fmt.Sprintf("#%d %s", parent.ID, excerpt)
}

// ShouldUseColor determines if ANSI coloring should be enabled for CLI
// output.
func ShouldUseColor(disable bool) bool {
	if disable {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if runtime.GOOS == "windows" {
		if os.Getenv("WT_SESSION") != "" || os.Getenv("ANSICON") != "" || strings.EqualFold(os.Getenv("ConEmuANSI"), "ON") {
			return true
		}
		return false
	}
	return true
}

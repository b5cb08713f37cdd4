package engine

import (
	"fmt"
	"strings"

	"github.com/repchat/internal/store"
)

// BuildContext renders the text blob the assistant sees ahead of the
// current message: the user's identity, score, and notes, then the prior
// turns oldest-first. Empty notes and empty history render as nothing
// rather than failing. Pure function, no side effects.
func BuildContext(user *store.User, history []store.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User ID: %s\n", user.ID)
	fmt.Fprintf(&b, "Current score: %d\n", user.Score)
	if user.Notes != "" {
		fmt.Fprintf(&b, "Notes about the user: %s\n", user.Notes)
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, msg := range history {
			label := "User"
			if msg.Role == store.RoleAssistant {
				label = "AI"
			}
			fmt.Fprintf(&b, "%s: %s\n", label, msg.Content)
		}
	}

	return b.String()
}

// ComposeMessage joins the context blob and the user's new message into
// the single text attached to the thread.
func ComposeMessage(user *store.User, history []store.Message, message string) string {
	return BuildContext(user, history) + "\nUser message: " + message
}

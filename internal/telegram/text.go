package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"labelops/internal/chatdefaults"
	"labelops/internal/routing"
)

const (
	setClientUsage   = "Usage: /setclient client_XX"
	corruptStateText = "Chat defaults file is unreadable. Fix or remove it before changing defaults."
)

var helpText = strings.Join([]string{
	"Commands:",
	"/status - bot health and available clients",
	"/clients - list client IDs",
	"/setclient client_XX - set chat default",
	"/chatid - show chat ID",
}, "\n")

func joinClients(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}

func clientsText(ids []string) string {
	return "Available clients: " + joinClients(ids)
}

// statusText renders the /status reply. loadErr is the error, if any, from
// reading the chat defaults; the global default is reported either way.
func statusText(st routing.Status, loadErr error) string {
	lines := []string{
		"✅ Bot online",
		"Default client: " + st.DefaultClientID,
		"Clients: " + joinClients(st.Clients),
	}
	switch {
	case loadErr == nil:
		lines = append(lines, "This chat: "+st.ChatClientID)
	case errors.Is(loadErr, chatdefaults.ErrCorruptState):
		lines = append(lines, "This chat: unknown (chat defaults file is corrupt)")
	default:
		lines = append(lines, "This chat: unknown (chat defaults unavailable)")
	}
	return strings.Join(lines, "\n")
}

func chatIDText(chat *gotgbot.Chat) string {
	if chat == nil {
		return "Chat ID: unknown"
	}
	return fmt.Sprintf("Chat ID: %d", chat.Id)
}

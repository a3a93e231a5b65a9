package telegram

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"labelops/internal/chatdefaults"
	"labelops/internal/routing"
)

func TestCommandRemainder(t *testing.T) {
	cases := map[string]string{
		"/setclient client_02":                   "client_02",
		"  /setclient   client_02 x ":            "client_02 x",
		"/setclient\nclient_02":                  "client_02",
		"/setclient\tclient_02":                  "client_02",
		"/setclient@labelops_bot\u00a0client_02": "client_02",
		"/setclient":                             "",
		"/setclient  \n ":                        "",
		"":                                       "",
	}
	for in, want := range cases {
		if got := commandRemainder(in); got != want {
			t.Fatalf("commandRemainder(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetClientArgumentAcceptsAnyWhitespace(t *testing.T) {
	for _, text := range []string{"/setclient Client_02", "/setclient\nClient_02", "/setclient\tClient_02 trailing"} {
		if got, _ := splitFirstWord(commandRemainder(text)); got != "Client_02" {
			t.Fatalf("argument of %q = %q, want Client_02", text, got)
		}
	}
}

func TestSplitFirstWord(t *testing.T) {
	first, rest := splitFirstWord("  Client_02\u00a0\nextra words ")
	if first != "Client_02" || rest != "extra words" {
		t.Fatalf("splitFirstWord() = %q, %q", first, rest)
	}
	first, rest = splitFirstWord("   ")
	if first != "" || rest != "" {
		t.Fatalf("splitFirstWord(blank) = %q, %q", first, rest)
	}
}

func TestIsCommand(t *testing.T) {
	cmd := &gotgbot.Message{Text: "/foo bar", Entities: []gotgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: 4}}}
	if !isCommand(cmd) {
		t.Fatalf("expected leading bot_command to be a command")
	}
	plain := &gotgbot.Message{Text: "client_02\nsee /status", Entities: []gotgbot.MessageEntity{{Type: "bot_command", Offset: 14, Length: 7}}}
	if isCommand(plain) {
		t.Fatalf("command entity mid-text must not make the message a command")
	}
	if isCommand(&gotgbot.Message{Text: "hello"}) {
		t.Fatalf("plain text is not a command")
	}
}

func TestStatusText(t *testing.T) {
	st := routing.Status{DefaultClientID: "client_01", ChatClientID: "client_02", Clients: []string{"client_01", "client_02"}}

	got := statusText(st, nil)
	want := "✅ Bot online\nDefault client: client_01\nClients: client_01, client_02\nThis chat: client_02"
	if got != want {
		t.Fatalf("statusText() = %q, want %q", got, want)
	}

	corrupt := fmt.Errorf("load chat defaults: %w", chatdefaults.ErrCorruptState)
	if got := statusText(st, corrupt); !strings.Contains(got, "corrupt") || !strings.HasPrefix(got, "✅ Bot online") {
		t.Fatalf("statusText(corrupt) = %q", got)
	}
	if got := statusText(st, errors.New("disk gone")); !strings.Contains(got, "unavailable") {
		t.Fatalf("statusText(other) = %q", got)
	}
}

func TestClientsText(t *testing.T) {
	if got := clientsText([]string{"client_01", "client_02"}); got != "Available clients: client_01, client_02" {
		t.Fatalf("clientsText() = %q", got)
	}
	if got := clientsText(nil); got != "Available clients: none" {
		t.Fatalf("clientsText(nil) = %q", got)
	}
}

func TestChatIDText(t *testing.T) {
	if got := chatIDText(&gotgbot.Chat{Id: -100123}); got != "Chat ID: -100123" {
		t.Fatalf("chatIDText() = %q", got)
	}
	if got := chatIDText(nil); got != "Chat ID: unknown" {
		t.Fatalf("chatIDText(nil) = %q", got)
	}
}

func TestHelpTextListsCommands(t *testing.T) {
	for _, cmd := range []string{"/status", "/clients", "/setclient", "/chatid"} {
		if !strings.Contains(helpText, cmd) {
			t.Fatalf("help text missing %s", cmd)
		}
	}
}

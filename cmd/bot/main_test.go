package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSanitizeTelegramErr(t *testing.T) {
	token := "123456:AAE-secret"
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAE-secret/getUpdates": timeout`)
	got := sanitizeTelegramErr(err, token)
	if strings.Contains(got, "AAE-secret") {
		t.Fatalf("token leaked: %q", got)
	}
	if !strings.Contains(got, "<redacted-token>") {
		t.Fatalf("expected redaction marker in %q", got)
	}
	if sanitizeTelegramErr(nil, token) != "" {
		t.Fatalf("nil error should render empty")
	}
	if got := sanitizeTelegramErr(errors.New("plain"), ""); got != "plain" {
		t.Fatalf("empty token should pass message through, got %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"chatty":  zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
